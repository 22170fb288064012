// internal/database/models.go
package database

import (
	"time"
)

// ConfigRecord is one persisted user config item.
type ConfigRecord struct {
	User      string    `json:"user"`
	Name      string    `json:"name"`
	Value     any       `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DatabaseStats provides information about database size and contents.
type DatabaseStats struct {
	TotalUsers   int       `json:"total_users"`
	TotalItems   int       `json:"total_items"`
	DatabaseSize int64     `json:"database_size_bytes"`
	NewestUpdate time.Time `json:"newest_update"`
}
