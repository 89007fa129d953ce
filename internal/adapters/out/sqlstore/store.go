// Package sqlstore opens the relational store behind the order repository.
//
// Two drivers are supported through GORM:
//
//	sqlite   - a single file (or ":memory:"), opened with WAL journaling, foreign keys
//	           and a busy timeout, on exactly one connection so writes serialize
//	postgres - a server database, used by the integration suites
//
// Example:
//
//	db, err := sqlstore.Open(sqlstore.Config{Driver: sqlstore.DriverSQLite, Path: "orders.db"}, logger)
//	if err != nil {
//	    return err
//	}
//	defer sqlstore.Close(db)
//
//	if err := sqlstore.Migrate(ctx, db); err != nil {
//	    return err
//	}
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"orderadmin/internal/adapters/out/sqlstore/orderrepo"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	// MemoryPath opens a private in-memory SQLite database.
	MemoryPath = ":memory:"

	busyTimeout      = 5 * time.Second
	postgresMaxConns = 10
	slowQuery        = 200 * time.Millisecond
)

// Config selects and addresses the store.
type Config struct {
	Driver string

	// Path is the SQLite database file.
	Path string

	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// Open connects to the configured store. GORM's own log lines go to log at warn level.
func Open(cfg Config, log *slog.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(
			slog.NewLogLogger(log.With("component", "gorm").Handler(), slog.LevelWarn),
			logger.Config{
				SlowThreshold:             slowQuery,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
				ParameterizedQueries:      true,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if cfg.Driver == DriverSQLite {
		// A private :memory: database lives as long as its only connection.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		sqlDB.SetConnMaxIdleTime(0)
	} else {
		sqlDB.SetMaxOpenConns(postgresMaxConns)
	}

	return db, nil
}

// Migrate creates or updates the orders and order_items tables, then derives the
// search key of orders stored before the column existed.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&orderrepo.OrderDTO{}, &orderrepo.OrderItemDTO{}); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}
	if _, err := orderrepo.BackfillSearchKeys(ctx, db); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}
	return nil
}

// Ping checks that the store answers a trivial query.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err = sqlDB.PingContext(ctx); err != nil {
		return err
	}

	var one int
	return db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialectorFor(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverSQLite:
		if strings.TrimSpace(cfg.Path) == "" {
			return nil, errors.New("sqlite store needs a database path")
		}
		if err := ensureDir(cfg.Path); err != nil {
			return nil, err
		}
		return sqlite.Open(sqliteDSN(cfg.Path)), nil
	case DriverPostgres:
		return postgres.Open(postgresDSN(cfg)), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q, expected %s or %s", cfg.Driver, DriverSQLite, DriverPostgres)
	}
}

// ensureDir creates the directory holding a SQLite database file.
func ensureDir(path string) error {
	path, _, _ = strings.Cut(path, "?")
	if path == MemoryPath || strings.HasPrefix(path, "file:") {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory %s: %w", dir, err)
	}
	return nil
}

// sqliteDSN attaches the pragmas every connection must run with.
func sqliteDSN(path string) string {
	pragmas := []string{
		fmt.Sprintf("_pragma=busy_timeout(%d)", busyTimeout.Milliseconds()),
		"_pragma=foreign_keys(1)",
	}
	if path != MemoryPath {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)", "_pragma=synchronous(NORMAL)")
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(pragmas, "&")
}

func postgresDSN(cfg Config) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
}
