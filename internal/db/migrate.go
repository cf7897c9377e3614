package db

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/diewo77/invoicebook/internal/config"
	"github.com/diewo77/invoicebook/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

var requiredTables = []string{"users", "companies", "invoices", "invoice_line_items", "user_profiles", "banking_details"}

// Migrate brings the schema up to date according to mode. SQL migrations are
// postgres only; sqlite always uses AutoMigrate.
func Migrate(ctx context.Context, conn *gorm.DB, mode string, log *zap.Logger) error {
	switch {
	case mode == config.MigrationsOff:
		log.Info("migrations disabled")
		return nil
	case mode == config.MigrationsSQL && conn.Dialector.Name() == "postgres":
		if err := RunSQLMigrations(conn); err != nil {
			return err
		}
		log.Info("sql migrations applied")
	default:
		if err := AutoMigrate(ctx, conn); err != nil {
			return err
		}
		log.Info("automigrate completed")
	}

	for _, table := range requiredTables {
		if !conn.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

// AutoMigrate creates or updates every model table.
func AutoMigrate(ctx context.Context, conn *gorm.DB) error {
	for _, m := range models.All() {
		if err := conn.WithContext(ctx).AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

// RunSQLMigrations applies the embedded golang-migrate files.
func RunSQLMigrations(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	// Do not call m.Close here because it would close the shared *sql.DB.
	return nil
}
