package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	followupdomain "github.com/smallbiznis/followup/internal/followup/domain"
	recurringdomain "github.com/smallbiznis/followup/internal/recurring/domain"
	transactiondomain "github.com/smallbiznis/followup/internal/transaction/domain"
	"github.com/smallbiznis/followup/pkg/db"
	"gorm.io/gorm"
)

//go:embed migrations
var embeddedMigrations embed.FS

const (
	migrationsDir = "migrations/postgres"
	sqliteSchema  = "migrations/sqlite/schema.sql"
)

// Apply brings the schema for dialect up to date.
func Apply(ctx context.Context, conn *gorm.DB, dialect string) error {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case db.TypePostgres:
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	case db.TypeSQLite:
		return ApplySQLite(ctx, conn)
	case db.TypeMySQL:
		return conn.WithContext(ctx).AutoMigrate(
			&followupdomain.FollowupRequest{},
			&recurringdomain.RecurringCall{},
			&transactiondomain.FacilityTransaction{},
		)
	default:
		return fmt.Errorf("unsupported migration dialect %q", dialect)
	}
}

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(sqlDB *sql.DB) error {
	if sqlDB == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// ApplySQLite creates the schema on a sqlite handle. Statements are idempotent.
func ApplySQLite(ctx context.Context, conn *gorm.DB) error {
	raw, err := embeddedMigrations.ReadFile(sqliteSchema)
	if err != nil {
		return fmt.Errorf("read sqlite schema: %w", err)
	}
	if err := conn.WithContext(ctx).Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	for _, stmt := range strings.Split(string(raw), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if err := conn.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}
