package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	phiDomain "github.com/openspace-ehr/phiguard/internal/phi/domain"
	phiUseCase "github.com/openspace-ehr/phiguard/internal/phi/usecase"
)

// parseFieldType converts a --type flag into a field type marker.
func parseFieldType(fieldType string) (phiDomain.FieldType, error) {
	hint := phiDomain.FieldType(fieldType)
	if !hint.Valid() {
		return "", fmt.Errorf(
			"invalid field type: %s (valid options: string, json, int, uint, float, date)",
			fieldType,
		)
	}
	return hint, nil
}

// checkFieldValue rejects values that would not decode back under hint.
func checkFieldValue(value string, hint phiDomain.FieldType) error {
	if err := hint.CheckText(value); err != nil {
		return fmt.Errorf("value is not a valid %s", hint)
	}
	return nil
}

// RunEncryptField encrypts one value as a stored field. With scope set the output
// carries a blind index so the column stays searchable by equality.
func RunEncryptField(
	ctx context.Context,
	encryption phiUseCase.EncryptionUseCase,
	writer io.Writer,
	value, fieldType, scope, format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	hint, err := parseFieldType(fieldType)
	if err != nil {
		return err
	}
	if err := checkFieldValue(value, hint); err != nil {
		return err
	}

	var stored string
	if scope != "" {
		if hint != phiDomain.FieldTypeString {
			return fmt.Errorf("searchable fields only support the string type")
		}
		stored, err = encryption.EncryptSearchable(ctx, value, scope)
	} else {
		stored, err = encryption.EncryptField(ctx, value, hint)
	}
	if err != nil {
		return fmt.Errorf("failed to encrypt field: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, map[string]any{"value": stored})
	}
	_, _ = fmt.Fprintln(writer, stored)
	return nil
}

// RunDecryptField decrypts a stored field, searchable or not. Legacy plaintext is
// printed unchanged.
func RunDecryptField(
	ctx context.Context,
	encryption phiUseCase.EncryptionUseCase,
	writer io.Writer,
	stored, format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	var value any
	var err error
	if strings.Contains(stored, phiDomain.SearchableSeparator+phiDomain.EncryptedMarker) {
		value, err = encryption.DecryptSearchable(ctx, stored)
	} else {
		value, err = encryption.DecryptField(ctx, stored)
	}
	if err != nil {
		return fmt.Errorf("failed to decrypt field: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, map[string]any{"value": value})
	}
	_, _ = fmt.Fprintln(writer, value)
	return nil
}

// RunBlindIndex prints the blind index of value in scope, for building search queries.
func RunBlindIndex(
	ctx context.Context,
	encryption phiUseCase.EncryptionUseCase,
	writer io.Writer,
	value, scope, format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if scope == "" {
		return fmt.Errorf("scope is required")
	}

	index, err := encryption.BlindIndex(ctx, value, scope)
	if err != nil {
		return fmt.Errorf("failed to compute blind index: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, map[string]any{"scope": scope, "blind_index": index})
	}
	_, _ = fmt.Fprintln(writer, index)
	return nil
}
