package postgres

import (
	"context"

	"github.com/jfi/employee-api/config"
	"github.com/jfi/employee-api/repositories"
	"go.uber.org/zap"
)

// RepositoryFactory owns the connection pool and builds repositories on it
type RepositoryFactory struct {
	db     *DB
	logger *zap.Logger
}

// NewRepositoryFactory connects to the database and, when enabled, applies
// migrations before returning
func NewRepositoryFactory(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*RepositoryFactory, error) {
	db, err := NewDB(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations {
		if err := Migrate(ctx, db, cfg.MigrationsTable); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return NewRepositoryFactoryFromDB(db, logger), nil
}

// NewRepositoryFactoryFromDB builds a factory on an existing pool
func NewRepositoryFactoryFromDB(db *DB, logger *zap.Logger) *RepositoryFactory {
	return &RepositoryFactory{db: db, logger: logger}
}

// NewRepositories creates all repository instances
func (f *RepositoryFactory) NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Employees: NewEmployeeRepository(f.db, f.logger),
		TxManager: NewTransactionManager(f.db, f.logger),
	}
}

// GetDB returns the database connection
func (f *RepositoryFactory) GetDB() *DB {
	return f.db
}

// Close closes the database connection
func (f *RepositoryFactory) Close() error {
	return f.db.Close()
}
