package usecase

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	accessDomain "github.com/openspace-ehr/phiguard/internal/access/domain"
	apperrors "github.com/openspace-ehr/phiguard/internal/errors"
)

// DefaultProtectionRefresh bounds how stale a cached protection toggle may be.
const DefaultProtectionRefresh = 30 * time.Second

// Sources reported by ProtectionUseCase.Status.
const (
	ProtectionSourceSetting = "system_settings"
	ProtectionSourceConfig  = "config"
)

// settingsProtection reads patient_record_protection from system settings and
// falls back to the configured default when the row is absent or unreadable.
type settingsProtection struct {
	repo     SettingsRepository
	fallback bool
	refresh  time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	cached    bool
	fetchedAt time.Time
}

func newSettingsProtection(
	repo SettingsRepository,
	fallback bool,
	refresh time.Duration,
	logger *slog.Logger,
) *settingsProtection {
	return &settingsProtection{
		repo:     repo,
		fallback: fallback,
		refresh:  refresh,
		logger:   logger,
		now:      time.Now,
	}
}

// NewProtectionSetting creates a ProtectionSetting that caches the database
// value for refresh. A zero refresh reads the database on every call.
func NewProtectionSetting(
	repo SettingsRepository,
	fallback bool,
	refresh time.Duration,
	logger *slog.Logger,
) ProtectionSetting {
	return newSettingsProtection(repo, fallback, refresh, logger)
}

// NewProtectionUseCase creates a ProtectionUseCase over the same setting.
func NewProtectionUseCase(repo SettingsRepository, fallback bool, logger *slog.Logger) ProtectionUseCase {
	return newSettingsProtection(repo, fallback, 0, logger)
}

// IsEnabled returns the toggle. Read errors other than "not found" keep
// protection on.
func (s *settingsProtection) IsEnabled(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !s.fetchedAt.IsZero() && now.Sub(s.fetchedAt) < s.refresh {
		return s.cached
	}

	enabled, _, err := s.read(ctx)
	if err != nil {
		s.logger.Error("failed to read patient protection setting", slog.Any("error", err))
		return true
	}

	s.cached = enabled
	s.fetchedAt = now
	return enabled
}

func (s *settingsProtection) read(ctx context.Context) (bool, string, error) {
	value, err := s.repo.Get(ctx, accessDomain.ProtectionSettingName)
	if err != nil {
		if apperrors.Is(err, accessDomain.ErrSettingNotFound) {
			return s.fallback, ProtectionSourceConfig, nil
		}
		return true, "", err
	}

	enabled, ok := accessDomain.ParseBoolSetting(value)
	if !ok {
		s.logger.Warn("unrecognised patient protection setting, using configured default",
			slog.String("value", value),
			slog.Bool("default", s.fallback),
		)
		return s.fallback, ProtectionSourceConfig, nil
	}
	return enabled, ProtectionSourceSetting, nil
}

// Status returns the current toggle and where it came from.
func (s *settingsProtection) Status(ctx context.Context) (bool, string, error) {
	return s.read(ctx)
}

// SetEnabled writes the toggle to system settings.
func (s *settingsProtection) SetEnabled(ctx context.Context, enabled bool) error {
	if err := s.repo.Set(ctx, accessDomain.ProtectionSettingName, strconv.FormatBool(enabled)); err != nil {
		return err
	}

	s.mu.Lock()
	s.fetchedAt = time.Time{}
	s.mu.Unlock()
	return nil
}

type staticProtection bool

// NewStaticProtectionSetting creates a ProtectionSetting with a fixed value.
func NewStaticProtectionSetting(enabled bool) ProtectionSetting {
	return staticProtection(enabled)
}

func (s staticProtection) IsEnabled(context.Context) bool {
	return bool(s)
}
