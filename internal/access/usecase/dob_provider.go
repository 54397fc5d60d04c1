package usecase

import (
	"context"

	accessDomain "github.com/openspace-ehr/phiguard/internal/access/domain"
	apperrors "github.com/openspace-ehr/phiguard/internal/errors"
	phiUseCase "github.com/openspace-ehr/phiguard/internal/phi/usecase"
)

type patientDOBProvider struct {
	patientRepo PatientRepository
	encryption  phiUseCase.EncryptionUseCase
}

// NewDOBProvider creates a DOBProvider that reads the DOB column and decrypts
// it when it holds an encrypted or searchable field. Legacy plaintext passes through.
func NewDOBProvider(patientRepo PatientRepository, encryption phiUseCase.EncryptionUseCase) DOBProvider {
	return &patientDOBProvider{patientRepo: patientRepo, encryption: encryption}
}

// DateOfBirth returns the plaintext record DOB.
func (p *patientDOBProvider) DateOfBirth(ctx context.Context, patientID string) (string, error) {
	if patientID == "" {
		return "", accessDomain.ErrInvalidPatientID
	}

	stored, err := p.patientRepo.GetDateOfBirth(ctx, patientID)
	if err != nil {
		return "", err
	}

	dob, err := p.encryption.DecryptSearchable(ctx, stored)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to decrypt date of birth")
	}
	return dob, nil
}
