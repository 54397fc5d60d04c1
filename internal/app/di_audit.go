package app

import (
	"fmt"

	auditRepository "github.com/openspace-ehr/phiguard/internal/audit/repository"
	auditService "github.com/openspace-ehr/phiguard/internal/audit/service"
	auditUseCase "github.com/openspace-ehr/phiguard/internal/audit/usecase"
)

// AuditEventRepository returns the audit event repository for the configured driver.
func (c *Container) AuditEventRepository() (auditUseCase.AuditEventRepository, error) {
	var err error
	c.auditRepositoryInit.Do(func() {
		c.auditRepository, err = c.initAuditEventRepository()
		if err != nil {
			c.initErrors["auditRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditRepository"]; exists {
		return nil, storedErr
	}
	return c.auditRepository, nil
}

// EventSigner returns the signer that seals audit events.
func (c *Container) EventSigner() (auditService.EventSigner, error) {
	var err error
	c.eventSignerInit.Do(func() {
		c.eventSigner, err = c.initEventSigner()
		if err != nil {
			c.initErrors["eventSigner"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["eventSigner"]; exists {
		return nil, storedErr
	}
	return c.eventSigner, nil
}

// AuditSink returns the sink selected by AUDIT_SINK.
func (c *Container) AuditSink() (auditUseCase.Sink, error) {
	var err error
	c.auditSinkInit.Do(func() {
		c.auditSink, err = c.initAuditSink()
		if err != nil {
			c.initErrors["auditSink"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditSink"]; exists {
		return nil, storedErr
	}
	return c.auditSink, nil
}

// AuditEventUseCase returns the use case that verifies stored audit events.
func (c *Container) AuditEventUseCase() (auditUseCase.AuditEventUseCase, error) {
	var err error
	c.auditEventUseCaseInit.Do(func() {
		c.auditEventUseCase, err = c.initAuditEventUseCase()
		if err != nil {
			c.initErrors["auditEventUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditEventUseCase"]; exists {
		return nil, storedErr
	}
	return c.auditEventUseCase, nil
}

func (c *Container) initAuditEventRepository() (auditUseCase.AuditEventRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for audit event repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return auditRepository.NewMySQLAuditEventRepository(db), nil
	case "postgres":
		return auditRepository.NewPostgreSQLAuditEventRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initEventSigner() (auditService.EventSigner, error) {
	keyDeriver, err := c.KeyDeriver()
	if err != nil {
		return nil, fmt.Errorf("failed to get key deriver for event signer: %w", err)
	}
	return auditService.NewEventSigner(keyDeriver), nil
}

func (c *Container) initAuditSink() (auditUseCase.Sink, error) {
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for audit sink: %w", err)
	}

	var sink auditUseCase.Sink
	switch c.config.AuditSink {
	case "log":
		sink = auditUseCase.NewLogSink(c.Logger())
	case "database":
		repo, err := c.AuditEventRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get audit event repository for audit sink: %w", err)
		}
		signer, err := c.EventSigner()
		if err != nil {
			return nil, fmt.Errorf("failed to get event signer for audit sink: %w", err)
		}
		sink = auditUseCase.NewDatabaseSink(repo, signer, c.Logger())
	default:
		return nil, fmt.Errorf("unsupported audit sink: %s", c.config.AuditSink)
	}

	return auditUseCase.NewSinkWithMetrics(sink, businessMetrics), nil
}

func (c *Container) initAuditEventUseCase() (auditUseCase.AuditEventUseCase, error) {
	repo, err := c.AuditEventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit event repository for audit event use case: %w", err)
	}
	signer, err := c.EventSigner()
	if err != nil {
		return nil, fmt.Errorf("failed to get event signer for audit event use case: %w", err)
	}
	return auditUseCase.NewAuditEventUseCase(repo, signer), nil
}
