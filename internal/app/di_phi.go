package app

import (
	"context"
	"fmt"
	"time"

	phiDomain "github.com/openspace-ehr/phiguard/internal/phi/domain"
	phiRepository "github.com/openspace-ehr/phiguard/internal/phi/repository"
	phiService "github.com/openspace-ehr/phiguard/internal/phi/service"
	phiUseCase "github.com/openspace-ehr/phiguard/internal/phi/usecase"
)

// keyLoadTimeout bounds the KMS round trip made while unwrapping the master secret.
const keyLoadTimeout = 30 * time.Second

// KMSService returns the KMS service used to wrap and unwrap the master secret.
func (c *Container) KMSService() phiService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = phiService.NewKMSService()
	})
	return c.kmsService
}

// KeyMaterial returns the protected root key.
func (c *Container) KeyMaterial() (*phiDomain.KeyMaterial, error) {
	var err error
	c.keyMaterialInit.Do(func() {
		c.keyMaterial, err = c.initKeyMaterial()
		if err != nil {
			c.initErrors["keyMaterial"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyMaterial"]; exists {
		return nil, storedErr
	}
	return c.keyMaterial, nil
}

// KeyDeriver returns the HKDF deriver over the root key.
func (c *Container) KeyDeriver() (phiService.KeyDeriver, error) {
	var err error
	c.keyDeriverInit.Do(func() {
		c.keyDeriver, err = c.initKeyDeriver()
		if err != nil {
			c.initErrors["keyDeriver"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyDeriver"]; exists {
		return nil, storedErr
	}
	return c.keyDeriver, nil
}

// EncryptionUseCase returns the PHI encryption service.
func (c *Container) EncryptionUseCase() (phiUseCase.EncryptionUseCase, error) {
	var err error
	c.encryptionUseCaseInit.Do(func() {
		c.encryptionUseCase, err = c.initEncryptionUseCase()
		if err != nil {
			c.initErrors["encryptionUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["encryptionUseCase"]; exists {
		return nil, storedErr
	}
	return c.encryptionUseCase, nil
}

// ColumnRepository returns the record store column repository for the configured driver.
func (c *Container) ColumnRepository() (phiUseCase.ColumnRepository, error) {
	var err error
	c.columnRepositoryInit.Do(func() {
		c.columnRepository, err = c.initColumnRepository()
		if err != nil {
			c.initErrors["columnRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["columnRepository"]; exists {
		return nil, storedErr
	}
	return c.columnRepository, nil
}

// ColumnMigrationUseCase returns the use case that encrypts existing PHI columns.
func (c *Container) ColumnMigrationUseCase() (phiUseCase.ColumnMigrationUseCase, error) {
	var err error
	c.columnMigrationInit.Do(func() {
		c.columnMigration, err = c.initColumnMigrationUseCase()
		if err != nil {
			c.initErrors["columnMigration"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["columnMigration"]; exists {
		return nil, storedErr
	}
	return c.columnMigration, nil
}

func (c *Container) initKeyMaterial() (*phiDomain.KeyMaterial, error) {
	ctx, cancel := context.WithTimeout(context.Background(), keyLoadTimeout)
	defer cancel()

	keyMaterial, err := phiUseCase.LoadKeyMaterial(ctx, phiUseCase.KeyLoaderOptions{
		MasterSecret: c.config.EncryptionKey,
		KMSKeyURI:    c.config.EncryptionKeyKMSURI,
		KeyFile:      c.config.EncryptionKeyFile,
		Production:   c.config.IsProduction(),
	}, c.KMSService(), c.Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to load encryption key: %w", err)
	}
	return keyMaterial, nil
}

func (c *Container) initKeyDeriver() (phiService.KeyDeriver, error) {
	keyMaterial, err := c.KeyMaterial()
	if err != nil {
		return nil, fmt.Errorf("failed to get key material for key deriver: %w", err)
	}
	return phiService.NewKeyDeriver(keyMaterial), nil
}

func (c *Container) initEncryptionUseCase() (phiUseCase.EncryptionUseCase, error) {
	keyDeriver, err := c.KeyDeriver()
	if err != nil {
		return nil, fmt.Errorf("failed to get key deriver for encryption use case: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for encryption use case: %w", err)
	}

	useCase := phiUseCase.NewEncryptionUseCase(keyDeriver, phiService.NewAESGCMFactory())
	return phiUseCase.NewEncryptionUseCaseWithMetrics(useCase, businessMetrics), nil
}

func (c *Container) initColumnRepository() (phiUseCase.ColumnRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for column repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return phiRepository.NewMySQLColumnRepository(db), nil
	case "postgres":
		return phiRepository.NewPostgreSQLColumnRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initColumnMigrationUseCase() (phiUseCase.ColumnMigrationUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for column migration use case: %w", err)
	}
	columnRepo, err := c.ColumnRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get column repository for column migration use case: %w", err)
	}
	encryption, err := c.EncryptionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get encryption use case for column migration use case: %w", err)
	}
	return phiUseCase.NewColumnMigrationUseCase(txManager, columnRepo, encryption, c.Logger()), nil
}
