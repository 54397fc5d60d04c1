package usecase

import (
	"context"
	"time"

	"github.com/openspace-ehr/phiguard/internal/metrics"
	phiDomain "github.com/openspace-ehr/phiguard/internal/phi/domain"
)

// encryptionUseCaseWithMetrics decorates EncryptionUseCase with metrics instrumentation.
type encryptionUseCaseWithMetrics struct {
	next    EncryptionUseCase
	metrics metrics.BusinessMetrics
}

// NewEncryptionUseCaseWithMetrics wraps an EncryptionUseCase with metrics recording.
func NewEncryptionUseCaseWithMetrics(useCase EncryptionUseCase, m metrics.BusinessMetrics) EncryptionUseCase {
	return &encryptionUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (e *encryptionUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}

	e.metrics.RecordOperation(ctx, "phi", operation, status)
	e.metrics.RecordDuration(ctx, "phi", operation, time.Since(start), status)
}

// Encrypt records metrics for value encryption.
func (e *encryptionUseCaseWithMetrics) Encrypt(ctx context.Context, plaintext string) (string, error) {
	start := time.Now()
	blob, err := e.next.Encrypt(ctx, plaintext)
	e.record(ctx, "phi_encrypt", start, err)
	return blob, err
}

// Decrypt records metrics for value decryption.
func (e *encryptionUseCaseWithMetrics) Decrypt(ctx context.Context, blob string) (string, error) {
	start := time.Now()
	plaintext, err := e.next.Decrypt(ctx, blob)
	e.record(ctx, "phi_decrypt", start, err)
	return plaintext, err
}

// EncryptField records metrics for field encryption.
func (e *encryptionUseCaseWithMetrics) EncryptField(
	ctx context.Context,
	value any,
	hint phiDomain.FieldType,
) (string, error) {
	start := time.Now()
	stored, err := e.next.EncryptField(ctx, value, hint)
	e.record(ctx, "phi_encrypt_field", start, err)
	return stored, err
}

// DecryptField records metrics for field decryption.
func (e *encryptionUseCaseWithMetrics) DecryptField(ctx context.Context, stored string) (any, error) {
	start := time.Now()
	value, err := e.next.DecryptField(ctx, stored)
	e.record(ctx, "phi_decrypt_field", start, err)
	return value, err
}

// DecryptFieldInto records metrics for typed field decryption.
func (e *encryptionUseCaseWithMetrics) DecryptFieldInto(ctx context.Context, stored string, dst any) error {
	start := time.Now()
	err := e.next.DecryptFieldInto(ctx, stored, dst)
	e.record(ctx, "phi_decrypt_field", start, err)
	return err
}

// IsEncrypted is not instrumented.
func (e *encryptionUseCaseWithMetrics) IsEncrypted(value string) bool {
	return e.next.IsEncrypted(value)
}

// BlindIndex records metrics for search hash computation.
func (e *encryptionUseCaseWithMetrics) BlindIndex(ctx context.Context, value, scope string) (string, error) {
	start := time.Now()
	index, err := e.next.BlindIndex(ctx, value, scope)
	e.record(ctx, "phi_blind_index", start, err)
	return index, err
}

// EncryptSearchable records metrics for searchable field encryption.
func (e *encryptionUseCaseWithMetrics) EncryptSearchable(ctx context.Context, value, scope string) (string, error) {
	start := time.Now()
	stored, err := e.next.EncryptSearchable(ctx, value, scope)
	e.record(ctx, "phi_encrypt_searchable", start, err)
	return stored, err
}

// DecryptSearchable records metrics for searchable field decryption.
func (e *encryptionUseCaseWithMetrics) DecryptSearchable(ctx context.Context, stored string) (string, error) {
	start := time.Now()
	value, err := e.next.DecryptSearchable(ctx, stored)
	e.record(ctx, "phi_decrypt_searchable", start, err)
	return value, err
}
