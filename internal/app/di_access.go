package app

import (
	"context"
	"fmt"
	"time"

	accessHTTP "github.com/openspace-ehr/phiguard/internal/access/http"
	accessRepository "github.com/openspace-ehr/phiguard/internal/access/repository"
	accessService "github.com/openspace-ehr/phiguard/internal/access/service"
	accessUseCase "github.com/openspace-ehr/phiguard/internal/access/usecase"
	phiDomain "github.com/openspace-ehr/phiguard/internal/phi/domain"
	"github.com/openspace-ehr/phiguard/internal/session"
)

const (
	// protectionRefresh is how long the patient protection toggle is cached.
	protectionRefresh = 30 * time.Second
	// redisConnectTimeout bounds the initial Redis ping.
	redisConnectTimeout = 5 * time.Second
	// redisSessionPrefix namespaces session hashes in a shared Redis.
	redisSessionPrefix = "phiguard:session:"
	// limiterCleanupInterval is how often idle per-IP limiters are swept.
	limiterCleanupInterval = 5 * time.Minute
)

// SessionStore returns the session store selected by SESSION_DRIVER.
func (c *Container) SessionStore() (session.Store, error) {
	var err error
	c.sessionStoreInit.Do(func() {
		c.sessionStore, err = c.initSessionStore()
		if err != nil {
			c.initErrors["sessionStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionStore"]; exists {
		return nil, storedErr
	}
	return c.sessionStore, nil
}

// SettingsRepository returns the system settings repository for the configured driver.
func (c *Container) SettingsRepository() (accessUseCase.SettingsRepository, error) {
	var err error
	c.settingsRepositoryInit.Do(func() {
		c.settingsRepository, err = c.initSettingsRepository()
		if err != nil {
			c.initErrors["settingsRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["settingsRepository"]; exists {
		return nil, storedErr
	}
	return c.settingsRepository, nil
}

// PatientRepository returns the repository that reads patient dates of birth.
func (c *Container) PatientRepository() (accessUseCase.PatientRepository, error) {
	var err error
	c.patientRepositoryInit.Do(func() {
		c.patientRepository, err = c.initPatientRepository()
		if err != nil {
			c.initErrors["patientRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["patientRepository"]; exists {
		return nil, storedErr
	}
	return c.patientRepository, nil
}

// ProtectionSetting returns the cached patient protection toggle.
func (c *Container) ProtectionSetting() (accessUseCase.ProtectionSetting, error) {
	var err error
	c.protectionSettingInit.Do(func() {
		c.protectionSetting, err = c.initProtectionSetting()
		if err != nil {
			c.initErrors["protectionSetting"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["protectionSetting"]; exists {
		return nil, storedErr
	}
	return c.protectionSetting, nil
}

// ProtectionUseCase returns the use case that reads and changes the protection toggle.
func (c *Container) ProtectionUseCase() (accessUseCase.ProtectionUseCase, error) {
	var err error
	c.protectionUseCaseInit.Do(func() {
		c.protectionUseCase, err = c.initProtectionUseCase()
		if err != nil {
			c.initErrors["protectionUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["protectionUseCase"]; exists {
		return nil, storedErr
	}
	return c.protectionUseCase, nil
}

// PatientAccessGuard returns the DOB re-verification gate.
func (c *Container) PatientAccessGuard() (accessUseCase.PatientAccessGuard, error) {
	var err error
	c.patientAccessGuardInit.Do(func() {
		c.patientAccessGuard, err = c.initPatientAccessGuard()
		if err != nil {
			c.initErrors["patientAccessGuard"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["patientAccessGuard"]; exists {
		return nil, storedErr
	}
	return c.patientAccessGuard, nil
}

// DOBProvider returns the provider that resolves a patient's decrypted date of birth.
func (c *Container) DOBProvider() (accessUseCase.DOBProvider, error) {
	var err error
	c.dobProviderInit.Do(func() {
		c.dobProvider, err = c.initDOBProvider()
		if err != nil {
			c.initErrors["dobProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["dobProvider"]; exists {
		return nil, storedErr
	}
	return c.dobProvider, nil
}

// VerifyRateLimiter returns the per-IP limiter for the verify route, or nil when disabled.
func (c *Container) VerifyRateLimiter() *accessHTTP.IPRateLimiter {
	c.verifyLimiterInit.Do(func() {
		if !c.config.RateLimitVerifyEnabled {
			return
		}
		c.verifyLimiter = accessHTTP.NewIPRateLimiter(
			c.config.RateLimitVerifyRequestsPerSec,
			c.config.RateLimitVerifyBurst,
			limiterCleanupInterval,
			c.Logger(),
		)
	})
	return c.verifyLimiter
}

// AccessHandler returns the HTTP handler for the patient access routes.
func (c *Container) AccessHandler() (*accessHTTP.AccessHandler, error) {
	var err error
	c.accessHandlerInit.Do(func() {
		c.accessHandler, err = c.initAccessHandler()
		if err != nil {
			c.initErrors["accessHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["accessHandler"]; exists {
		return nil, storedErr
	}
	return c.accessHandler, nil
}

func (c *Container) initSessionStore() (session.Store, error) {
	switch c.config.SessionDriver {
	case "memory":
		return session.NewMemoryStore(c.config.SessionTTL, time.Minute), nil
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
		defer cancel()

		client, err := session.NewRedisClient(ctx, c.config.RedisAddr, c.config.RedisPassword, c.config.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return session.NewRedisStore(client, redisSessionPrefix, c.config.SessionTTL), nil
	default:
		return nil, fmt.Errorf("unsupported session driver: %s", c.config.SessionDriver)
	}
}

func (c *Container) initSettingsRepository() (accessUseCase.SettingsRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for settings repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return accessRepository.NewMySQLSettingsRepository(db), nil
	case "postgres":
		return accessRepository.NewPostgreSQLSettingsRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initPatientRepository() (accessUseCase.PatientRepository, error) {
	target, err := phiDomain.ParseColumnTarget(
		fmt.Sprintf("%s.%s:%s", c.config.PatientTable, c.config.PatientDOBColumn, c.config.PatientIDColumn),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid patient table configuration: %w", err)
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for patient repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return accessRepository.NewMySQLPatientRepository(db, target)
	case "postgres":
		return accessRepository.NewPostgreSQLPatientRepository(db, target)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initProtectionSetting() (accessUseCase.ProtectionSetting, error) {
	repo, err := c.SettingsRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings repository for protection setting: %w", err)
	}
	return accessUseCase.NewProtectionSetting(
		repo,
		c.config.PatientProtectionEnabled,
		protectionRefresh,
		c.Logger(),
	), nil
}

func (c *Container) initProtectionUseCase() (accessUseCase.ProtectionUseCase, error) {
	repo, err := c.SettingsRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings repository for protection use case: %w", err)
	}
	return accessUseCase.NewProtectionUseCase(repo, c.config.PatientProtectionEnabled, c.Logger()), nil
}

func (c *Container) initPatientAccessGuard() (accessUseCase.PatientAccessGuard, error) {
	protection, err := c.ProtectionSetting()
	if err != nil {
		return nil, fmt.Errorf("failed to get protection setting for patient access guard: %w", err)
	}
	sink, err := c.AuditSink()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit sink for patient access guard: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for patient access guard: %w", err)
	}

	var serverSecret []byte
	if c.config.AccessGrantSigningSecret != "" {
		serverSecret = []byte(c.config.AccessGrantSigningSecret)
	}

	guard := accessUseCase.NewPatientAccessGuard(
		protection,
		accessService.NewGrantSigner(serverSecret),
		accessService.NewDOBMatcher(),
		accessUseCase.NewAttemptLimiter(c.config.AccessLockoutMaxAttempts, c.config.AccessLockoutWindow),
		sink,
		c.config.AccessGrantTTL,
		c.Logger(),
	)
	return accessUseCase.NewPatientAccessGuardWithMetrics(guard, businessMetrics), nil
}

func (c *Container) initDOBProvider() (accessUseCase.DOBProvider, error) {
	patientRepo, err := c.PatientRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get patient repository for dob provider: %w", err)
	}
	encryption, err := c.EncryptionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get encryption use case for dob provider: %w", err)
	}
	return accessUseCase.NewDOBProvider(patientRepo, encryption), nil
}

func (c *Container) initAccessHandler() (*accessHTTP.AccessHandler, error) {
	guard, err := c.PatientAccessGuard()
	if err != nil {
		return nil, fmt.Errorf("failed to get patient access guard for access handler: %w", err)
	}
	dobProvider, err := c.DOBProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get dob provider for access handler: %w", err)
	}
	return accessHTTP.NewAccessHandler(guard, dobProvider, c.config.AccessExpiryWarning, c.Logger()), nil
}
