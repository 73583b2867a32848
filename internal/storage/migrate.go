package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/mysql/*.sql
var migrationsFS embed.FS

// RunMigrations applies the embedded schema for the given dialect.
func RunMigrations(dialect Dialect, dsn string) error {
	// Separate connection: closing the migrate instance closes its database.
	migrateDB, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	var driver database.Driver
	switch dialect {
	case DialectSQLite:
		driver, err = sqlite.WithInstance(migrateDB, &sqlite.Config{})
	case DialectMySQL:
		driver, err = mysql.WithInstance(migrateDB, &mysql.Config{})
	default:
		return fmt.Errorf("unsupported dialect: %s", dialect)
	}
	if err != nil {
		return fmt.Errorf("create %s driver: %w", dialect, err)
	}

	d, err := iofs.New(migrationsFS, "migrations/"+string(dialect))
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, string(dialect), driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
