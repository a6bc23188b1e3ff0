package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"anoa.com/librarydesk/pkg/apperror"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options selects and parameterises the backing store.
type Options struct {
	Driver     string
	Host       string
	User       string
	Password   string
	Name       string
	Port       string
	SQLitePath string
	LogLevel   logger.LogLevel
}

// Connect opens the configured database. Driver errors are translated so that
// unique violations surface as gorm.ErrDuplicatedKey.
func Connect(opts Options) (*gorm.DB, error) {
	cfg := &gorm.Config{
		TranslateError: true,
	}
	if opts.LogLevel != 0 {
		cfg.Logger = logger.Default.LogMode(opts.LogLevel)
	}

	switch opts.Driver {
	case DriverSQLite:
		return openSQLite(opts.SQLitePath, cfg)
	case DriverPostgres, "":
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			valueOrDefault(opts.Host, "localhost"),
			valueOrDefault(opts.User, "postgres"),
			opts.Password,
			valueOrDefault(opts.Name, "librarydesk"),
			valueOrDefault(opts.Port, "5432"),
		)

		db, err := gorm.Open(postgres.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect postgres: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

// OpenSQLite opens a SQLite file with foreign keys on and a single connection,
// which makes SQLite the single writer the loan ledger expects.
func OpenSQLite(path string) (*gorm.DB, error) {
	return openSQLite(path, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
}

func openSQLite(path string, cfg *gorm.Config) (*gorm.DB, error) {
	path = valueOrDefault(path, "library.db")
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// TranslateError converts storage errors into apperror sentinels at the
// repository boundary. Unknown errors pass through untouched.
func TranslateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperror.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperror.ErrConflict
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return apperror.ErrConflict
	}
	return err
}

func valueOrDefault(val, fallback string) string {
	if val != "" {
		return val
	}

	return fallback
}
