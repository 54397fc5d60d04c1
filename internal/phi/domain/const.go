// Package domain defines the PHI field encryption model: key material, the
// encrypted field wire format and its error taxonomy.
package domain

// Sizes of the fixed-width parts of an encrypted field blob.
const (
	SaltSize  = 16
	NonceSize = 12
	TagSize   = 16
	KeySize   = 32

	// MinBlobSize is the decoded length of a blob carrying an empty ciphertext.
	MinBlobSize = SaltSize + NonceSize + TagSize
)

// HKDF info strings. Changing any of these makes existing data unreadable.
const (
	RootKeyInfo    = "hipaa-ehr-master-key"
	MessageKeyInfo = "message-key"
	BlindIndexInfo = "blind-index-v1"
	AuditKeyInfo   = "audit-event-signing-v1"
)

// Storage markers for encrypted column values.
const (
	// EncryptedMarker identifies any encrypted value regardless of format version.
	EncryptedMarker = "ENC:"
	// EncryptedPrefix is the marker for the current format version.
	EncryptedPrefix = "ENC:v1:"
	// SearchableSeparator splits "<blind index>|<encrypted field>" values.
	SearchableSeparator = "|"
)

// FieldType tags the plaintext inside an encrypted field so it can be decoded back.
type FieldType string

const (
	FieldTypeString FieldType = "string"
	FieldTypeJSON   FieldType = "json"
	FieldTypeInt    FieldType = "int"
	FieldTypeUint   FieldType = "uint"
	FieldTypeFloat  FieldType = "float"
	FieldTypeDate   FieldType = "date"
)
