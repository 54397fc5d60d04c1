package usecase

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/awnumar/memguard"

	phiDomain "github.com/openspace-ehr/phiguard/internal/phi/domain"
	phiService "github.com/openspace-ehr/phiguard/internal/phi/service"
)

// encryptionUseCase implements EncryptionUseCase.
type encryptionUseCase struct {
	keyDeriver    phiService.KeyDeriver
	cipherFactory phiService.CipherFactory
	random        io.Reader
}

// NewEncryptionUseCase creates an EncryptionUseCase that derives a fresh
// AES-256-GCM key per value from the root key behind keyDeriver.
func NewEncryptionUseCase(
	keyDeriver phiService.KeyDeriver,
	cipherFactory phiService.CipherFactory,
) EncryptionUseCase {
	return &encryptionUseCase{
		keyDeriver:    keyDeriver,
		cipherFactory: cipherFactory,
		random:        rand.Reader,
	}
}

// Encrypt seals plaintext under a per-message key derived with a random salt.
func (e *encryptionUseCase) Encrypt(ctx context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	salt := make([]byte, phiDomain.SaltSize)
	if _, err := io.ReadFull(e.random, salt); err != nil {
		return "", fmt.Errorf("%w: failed to generate salt: %v", phiDomain.ErrEncryptionFailed, err)
	}

	nonce := make([]byte, phiDomain.NonceSize)
	if _, err := io.ReadFull(e.random, nonce); err != nil {
		return "", fmt.Errorf("%w: failed to generate nonce: %v", phiDomain.ErrEncryptionFailed, err)
	}

	aead, err := e.messageCipher(salt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", phiDomain.ErrEncryptionFailed, err)
	}

	ciphertext, err := aead.Seal(nonce, []byte(plaintext), nil)
	if err != nil {
		return "", err
	}

	return phiDomain.EncryptedField{Salt: salt, Nonce: nonce, Ciphertext: ciphertext}.String(), nil
}

// Decrypt authenticates and opens a blob produced by Encrypt.
func (e *encryptionUseCase) Decrypt(ctx context.Context, blob string) (string, error) {
	if blob == "" {
		return "", nil
	}

	field, err := phiDomain.ParseEncryptedField(blob)
	if err != nil {
		return "", err
	}

	aead, err := e.messageCipher(field.Salt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", phiDomain.ErrDecryptionFailed, err)
	}

	plaintext, err := aead.Open(field.Nonce, field.Ciphertext, nil)
	if err != nil {
		return "", err
	}
	defer memguard.WipeBytes(plaintext)

	return string(plaintext), nil
}

// messageCipher derives the per-message key for salt and wipes it once the
// cipher has been keyed.
func (e *encryptionUseCase) messageCipher(salt []byte) (phiService.AEAD, error) {
	key, err := e.keyDeriver.Derive(salt, phiDomain.MessageKeyInfo)
	if err != nil {
		return nil, err
	}
	defer memguard.WipeBytes(key)

	return e.cipherFactory.NewCipher(key)
}

// EncryptField tags value with its type marker and encrypts it.
func (e *encryptionUseCase) EncryptField(
	ctx context.Context,
	value any,
	hint phiDomain.FieldType,
) (string, error) {
	payload, skip, err := typedPayload(value, hint)
	if err != nil {
		return "", err
	}
	if skip {
		if s, ok := value.(string); ok {
			return s, nil
		}
		return "", nil
	}

	blob, err := e.Encrypt(ctx, payload)
	if err != nil {
		return "", err
	}
	return phiDomain.EncryptedPrefix + blob, nil
}

// typedPayload renders value as "<type>:<text>". skip is true for values that
// must be stored as they are: nil, "" and strings that are already encrypted fields.
// An empty hint means string; the hint only applies to string values, whose
// text must decode back unchanged under it.
func typedPayload(value any, hint phiDomain.FieldType) (payload string, skip bool, err error) {
	if hint == "" {
		hint = phiDomain.FieldTypeString
	}
	if !hint.Valid() {
		return "", false, fmt.Errorf("%w: %q", phiDomain.ErrUnknownFieldType, string(hint))
	}

	switch v := value.(type) {
	case nil:
		return "", true, nil
	case string:
		if v == "" || isEncryptedField(v) {
			return "", true, nil
		}
		if err := hint.CheckText(v); err != nil {
			return "", false, err
		}
		return string(hint) + ":" + v, false, nil
	case int:
		return intPayload(int64(v)), false, nil
	case int8:
		return intPayload(int64(v)), false, nil
	case int16:
		return intPayload(int64(v)), false, nil
	case int32:
		return intPayload(int64(v)), false, nil
	case int64:
		return intPayload(v), false, nil
	case uint:
		return uintPayload(uint64(v)), false, nil
	case uint8:
		return intPayload(int64(v)), false, nil
	case uint16:
		return intPayload(int64(v)), false, nil
	case uint32:
		return intPayload(int64(v)), false, nil
	case uint64:
		return uintPayload(v), false, nil
	case float32:
		return floatPayload(float64(v), 32), false, nil
	case float64:
		return floatPayload(v, 64), false, nil
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return "", false, fmt.Errorf("%w: failed to serialize value: %v", phiDomain.ErrEncryptionFailed, err)
	}
	return string(phiDomain.FieldTypeJSON) + ":" + string(encoded), false, nil
}

func intPayload(v int64) string {
	return string(phiDomain.FieldTypeInt) + ":" + strconv.FormatInt(v, 10)
}

// uintPayload keeps values above math.MaxInt64 exact; smaller ones use the int marker.
func uintPayload(v uint64) string {
	if v <= math.MaxInt64 {
		return intPayload(int64(v))
	}
	return string(phiDomain.FieldTypeUint) + ":" + strconv.FormatUint(v, 10)
}

func floatPayload(v float64, bitSize int) string {
	return string(phiDomain.FieldTypeFloat) + ":" + strconv.FormatFloat(v, 'g', -1, bitSize)
}

// isEncryptedField reports whether s is a structurally valid current-version field.
func isEncryptedField(s string) bool {
	blob, err := phiDomain.StripPrefix(s)
	if err != nil {
		return false
	}
	_, err = phiDomain.ParseEncryptedField(blob)
	return err == nil
}

// DecryptField decrypts a stored field and restores its type.
func (e *encryptionUseCase) DecryptField(ctx context.Context, stored string) (any, error) {
	fieldType, value, err := e.openField(ctx, stored)
	if err != nil {
		return nil, err
	}

	switch fieldType {
	case phiDomain.FieldTypeJSON:
		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err != nil {
			return nil, fmt.Errorf("%w: malformed json payload", phiDomain.ErrInvalidFormat)
		}
		return decoded, nil
	case phiDomain.FieldTypeInt:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed int payload", phiDomain.ErrInvalidFormat)
		}
		return n, nil
	case phiDomain.FieldTypeUint:
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed uint payload", phiDomain.ErrInvalidFormat)
		}
		return n, nil
	case phiDomain.FieldTypeFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed float payload", phiDomain.ErrInvalidFormat)
		}
		return f, nil
	default:
		return value, nil
	}
}

// DecryptFieldInto decrypts a stored field and decodes it into dst, which must be a pointer.
func (e *encryptionUseCase) DecryptFieldInto(ctx context.Context, stored string, dst any) error {
	fieldType, value, err := e.openField(ctx, stored)
	if err != nil {
		return err
	}

	raw := []byte(value)
	switch fieldType {
	case phiDomain.FieldTypeJSON, phiDomain.FieldTypeInt, phiDomain.FieldTypeUint, phiDomain.FieldTypeFloat:
	default:
		raw, err = json.Marshal(value)
		if err != nil {
			return fmt.Errorf("%w: %v", phiDomain.ErrInvalidFormat, err)
		}
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: cannot decode %s field: %v", phiDomain.ErrInvalidFormat, fieldType, err)
	}
	return nil
}

// openField returns the type marker and text of a stored field. Legacy
// plaintext is reported as a string.
func (e *encryptionUseCase) openField(ctx context.Context, stored string) (phiDomain.FieldType, string, error) {
	if stored == "" || !phiDomain.IsEncrypted(stored) {
		return phiDomain.FieldTypeString, stored, nil
	}

	blob, err := phiDomain.StripPrefix(stored)
	if err != nil {
		return "", "", err
	}

	payload, err := e.Decrypt(ctx, blob)
	if err != nil {
		return "", "", err
	}

	fieldType, value := phiDomain.SplitTyped(payload)
	return fieldType, value, nil
}

// IsEncrypted reports whether value carries the encrypted marker.
func (e *encryptionUseCase) IsEncrypted(value string) bool {
	return phiDomain.IsEncrypted(value)
}

// BlindIndex computes HMAC-SHA256 over the length-prefixed scope and value with
// a key derived from the root key. The result is hex encoded.
func (e *encryptionUseCase) BlindIndex(ctx context.Context, value, scope string) (string, error) {
	if value == "" {
		return "", nil
	}

	key, err := e.keyDeriver.Derive(nil, phiDomain.BlindIndexInfo)
	if err != nil {
		return "", err
	}
	defer memguard.WipeBytes(key)

	mac := hmac.New(sha256.New, key)
	writeLengthPrefixed(mac, []byte(scope))
	writeLengthPrefixed(mac, []byte(value))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func writeLengthPrefixed(w io.Writer, b []byte) {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(b)))
	_, _ = w.Write(length[:])
	_, _ = w.Write(b)
}

// EncryptSearchable stores the blind index next to the encrypted field.
func (e *encryptionUseCase) EncryptSearchable(ctx context.Context, value, scope string) (string, error) {
	if value == "" {
		return "", nil
	}

	index, err := e.BlindIndex(ctx, value, scope)
	if err != nil {
		return "", err
	}

	field, err := e.EncryptField(ctx, value, phiDomain.FieldTypeString)
	if err != nil {
		return "", err
	}
	return index + phiDomain.SearchableSeparator + field, nil
}

// DecryptSearchable drops the blind index and decrypts the field.
func (e *encryptionUseCase) DecryptSearchable(ctx context.Context, stored string) (string, error) {
	if index, field, ok := strings.Cut(stored, phiDomain.SearchableSeparator); ok && !phiDomain.IsEncrypted(index) &&
		phiDomain.IsEncrypted(field) {
		stored = field
	}

	value, err := e.DecryptField(ctx, stored)
	if err != nil {
		return "", err
	}
	if s, ok := value.(string); ok {
		return s, nil
	}
	return fmt.Sprint(value), nil
}
