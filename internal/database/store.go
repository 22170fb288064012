// internal/database/store.go
package database

import (
	"context"
)

// Store defines the interface for database operations
type Store interface {
	// User config operations
	GetConfig(ctx context.Context, user string, names []string) ([]ConfigRecord, error)
	PutConfig(ctx context.Context, records []ConfigRecord) error
	DeleteConfig(ctx context.Context, user, name string) error
	DeleteUser(ctx context.Context, user string) error
	Users(ctx context.Context) ([]string, error)

	// Stats
	CountItems(ctx context.Context) (int, error)
	GetDatabaseStats(ctx context.Context) (*DatabaseStats, error)

	// Close the database connection
	Close() error
}
