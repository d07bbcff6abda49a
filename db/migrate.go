package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/youssefsiam38/flowent-gateway/models"
)

type Migration struct {
	Version string
	Name    string
	Up      func(*gorm.DB) error
	Down    func(*gorm.DB) error
}

type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

func CreateMigrator(db *gorm.DB) *Migrator {
	return &Migrator{
		db:         db,
		migrations: make([]Migration, 0),
	}
}

// CreateGatewayMigrator returns a Migrator loaded with the gateway schema.
func CreateGatewayMigrator(db *gorm.DB) *Migrator {
	m := CreateMigrator(db)
	m.AddMigration("0001", "create_tenants", createTable(&models.Tenant{}), dropTable(&models.Tenant{}))
	m.AddMigration("0002", "create_api_tokens", createTable(&models.APIToken{}), dropTable(&models.APIToken{}))
	m.AddMigration("0003", "create_hmac_keys", func(tx *gorm.DB) error {
		if err := tx.Migrator().AutoMigrate(&models.HMACKey{}); err != nil {
			return err
		}
		if err := tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_hmac_keys_tenant_version ON hmac_keys (tenant_id, version)`).Error; err != nil {
			return err
		}
		return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_hmac_keys_one_active ON hmac_keys (tenant_id) WHERE active`).Error
	}, dropTable(&models.HMACKey{}))
	m.AddMigration("0004", "create_actions", createTable(&models.Action{}), dropTable(&models.Action{}))
	return m
}

// AutoMigrate brings db up to the latest gateway schema.
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	return CreateGatewayMigrator(db.WithContext(ctx)).Up()
}

func createTable(model interface{}) func(*gorm.DB) error {
	return func(tx *gorm.DB) error {
		return tx.Migrator().AutoMigrate(model)
	}
}

func dropTable(model interface{}) func(*gorm.DB) error {
	return func(tx *gorm.DB) error {
		return tx.Migrator().DropTable(model)
	}
}

func (m *Migrator) AddMigration(version, name string, up, down func(*gorm.DB) error) {
	m.migrations = append(m.migrations, Migration{
		Version: version,
		Name:    name,
		Up:      up,
		Down:    down,
	})
}

// Up applies every pending migration, each in its own transaction.
func (m *Migrator) Up() error {
	if err := m.createMigrationsTable(); err != nil {
		return err
	}

	applied, err := m.getAppliedMigrations()
	if err != nil {
		return err
	}

	for _, migration := range m.migrations {
		if applied[migration.Version] {
			continue
		}

		err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
			}
			return recordMigration(tx, migration.Version, migration.Name)
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// Down rolls back every applied migration newer than version. An empty
// version rolls back everything.
func (m *Migrator) Down(version string) error {
	applied, err := m.getAppliedMigrations()
	if err != nil {
		return err
	}

	for i := len(m.migrations) - 1; i >= 0; i-- {
		migration := m.migrations[i]
		if migration.Version == version {
			break
		}
		if !applied[migration.Version] {
			continue
		}

		err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Down(tx); err != nil {
				return fmt.Errorf("failed to rollback migration %s: %w", migration.Version, err)
			}
			return tx.Exec("DELETE FROM schema_migrations WHERE version = ?", migration.Version).Error
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (m *Migrator) createMigrationsTable() error {
	return m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`).Error
}

func (m *Migrator) getAppliedMigrations() (map[string]bool, error) {
	var results []struct {
		Version string
	}

	if err := m.db.Table("schema_migrations").Select("version").Find(&results).Error; err != nil {
		return nil, err
	}

	applied := make(map[string]bool)
	for _, result := range results {
		applied[result.Version] = true
	}
	return applied, nil
}

func recordMigration(tx *gorm.DB, version, name string) error {
	return tx.Exec(`
		INSERT INTO schema_migrations (version, name)
		VALUES (?, ?)
		ON CONFLICT (version) DO NOTHING
	`, version, name).Error
}

func (m *Migrator) Status() ([]MigrationStatus, error) {
	if err := m.createMigrationsTable(); err != nil {
		return nil, err
	}
	applied, err := m.getAppliedMigrations()
	if err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(m.migrations))
	for _, migration := range m.migrations {
		statuses = append(statuses, MigrationStatus{
			Version: migration.Version,
			Name:    migration.Name,
			Applied: applied[migration.Version],
		})
	}
	return statuses, nil
}

type MigrationStatus struct {
	Version string
	Name    string
	Applied bool
}
