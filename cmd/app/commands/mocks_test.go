package commands

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/openspace-ehr/phiguard/internal/audit/domain"
	auditUseCase "github.com/openspace-ehr/phiguard/internal/audit/usecase"
	phiDomain "github.com/openspace-ehr/phiguard/internal/phi/domain"
	phiService "github.com/openspace-ehr/phiguard/internal/phi/service"
	phiUseCase "github.com/openspace-ehr/phiguard/internal/phi/usecase"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newEncryptionUseCase builds the real field encryption service over a fixed secret.
func newEncryptionUseCase(t *testing.T) phiUseCase.EncryptionUseCase {
	t.Helper()
	keyMaterial, err := phiDomain.NewKeyMaterial([]byte("command-test-master-secret"), phiDomain.KeySourceEnv)
	require.NoError(t, err)
	t.Cleanup(keyMaterial.Close)

	return phiUseCase.NewEncryptionUseCase(
		phiService.NewKeyDeriver(keyMaterial),
		phiService.NewAESGCMFactory(),
	)
}

type mockColumnMigrationUseCase struct {
	mock.Mock
}

func (m *mockColumnMigrationUseCase) Analyze(
	ctx context.Context,
	target phiDomain.ColumnTarget,
) (*phiDomain.ColumnReport, error) {
	args := m.Called(ctx, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*phiDomain.ColumnReport), args.Error(1)
}

func (m *mockColumnMigrationUseCase) Encrypt(
	ctx context.Context,
	target phiDomain.ColumnTarget,
	opts phiUseCase.EncryptColumnOptions,
) (*phiDomain.ColumnReport, error) {
	args := m.Called(ctx, target, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*phiDomain.ColumnReport), args.Error(1)
}

func (m *mockColumnMigrationUseCase) Verify(
	ctx context.Context,
	target phiDomain.ColumnTarget,
	sampleSize int,
) (*phiDomain.ColumnReport, error) {
	args := m.Called(ctx, target, sampleSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*phiDomain.ColumnReport), args.Error(1)
}

var _ phiUseCase.ColumnMigrationUseCase = (*mockColumnMigrationUseCase)(nil)

type mockAuditEventUseCase struct {
	mock.Mock
}

func (m *mockAuditEventUseCase) List(
	ctx context.Context,
	offset, limit int,
	from, to *time.Time,
) ([]*auditDomain.AuditEvent, error) {
	args := m.Called(ctx, offset, limit, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.AuditEvent), args.Error(1)
}

func (m *mockAuditEventUseCase) VerifyBatch(
	ctx context.Context,
	start, end time.Time,
) (*auditUseCase.VerificationReport, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditUseCase.VerificationReport), args.Error(1)
}

var _ auditUseCase.AuditEventUseCase = (*mockAuditEventUseCase)(nil)

type mockProtectionUseCase struct {
	mock.Mock
}

func (m *mockProtectionUseCase) Status(ctx context.Context) (bool, string, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.String(1), args.Error(2)
}

func (m *mockProtectionUseCase) SetEnabled(ctx context.Context, enabled bool) error {
	return m.Called(ctx, enabled).Error(0)
}

type mockKMSService struct {
	mock.Mock
}

func (m *mockKMSService) OpenKeeper(ctx context.Context, uri string) (phiService.KMSKeeper, error) {
	args := m.Called(ctx, uri)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(phiService.KMSKeeper), args.Error(1)
}
