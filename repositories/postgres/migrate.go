package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// ErrFailedToApplyMigrations wraps every migration failure
var ErrFailedToApplyMigrations = errors.New("failed to apply migrations")

// Migrate applies the embedded schema and seed migrations. table overrides
// goose's version table when not empty.
func Migrate(ctx context.Context, db *DB, table string) error {
	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	goose.SetLogger(newGooseLogger(db.logger))
	if table != "" {
		goose.SetTableName(table)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	if err := goose.UpContext(ctx, db.DB, migrationsDir); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	version, err := goose.GetDBVersionContext(ctx, db.DB)
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	db.logger.Info("database migrations applied", zap.Int64("version", version))
	return nil
}

// gooseLogger routes goose's Printf-style output into zap
type gooseLogger struct {
	log *zap.Logger
}

func newGooseLogger(log *zap.Logger) goose.Logger {
	return &gooseLogger{log: log.Named("migrate")}
}

func (l *gooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(fmt.Sprintf(format, v...))
}

func (l *gooseLogger) Printf(format string, v ...any) {
	l.log.Info(fmt.Sprintf(format, v...))
}
