// internal/database/boltstore.go - BoltDB user config store
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

var (
	UserConfigBucket = []byte("user_config")
	MetaBucket       = []byte("meta")
)

var ErrEmptyUser = errors.New("user name is empty")

type BoltStore struct {
	db   *bbolt.DB
	path string
	now  func() time.Time
}

func NewBoltStore(path string) (*BoltStore, error) {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB: %w", err)
	}

	store := &BoltStore{db: db, path: path, now: time.Now}

	if err := store.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return store, nil
}

func (s *BoltStore) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{UserConfigBucket, MetaBucket}
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
}

// GetConfig returns the stored records among names. Names never stored are
// left out.
func (s *BoltStore) GetConfig(ctx context.Context, user string, names []string) ([]ConfigRecord, error) {
	if user == "" {
		return nil, ErrEmptyUser
	}
	var records []ConfigRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		ub := tx.Bucket(UserConfigBucket).Bucket([]byte(user))
		if ub == nil {
			return nil
		}
		for _, name := range names {
			v := ub.Get([]byte(name))
			if v == nil {
				continue
			}
			var rec ConfigRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal config %s/%s: %w", user, name, err)
			}
			records = append(records, rec)
		}
		return nil
	})

	return records, err
}

// PutConfig writes records in one transaction. A record with a nil value
// removes the item.
func (s *BoltStore) PutConfig(ctx context.Context, records []ConfigRecord) error {
	now := s.now()

	return s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(UserConfigBucket)
		for _, rec := range records {
			if rec.User == "" {
				return ErrEmptyUser
			}
			ub, err := root.CreateBucketIfNotExists([]byte(rec.User))
			if err != nil {
				return fmt.Errorf("failed to create bucket for user %s: %w", rec.User, err)
			}

			if rec.Value == nil {
				if err := ub.Delete([]byte(rec.Name)); err != nil {
					return err
				}
				continue
			}

			rec.UpdatedAt = now
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("failed to marshal config %s/%s: %w", rec.User, rec.Name, err)
			}
			if err := ub.Put([]byte(rec.Name), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) DeleteConfig(ctx context.Context, user, name string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		ub := tx.Bucket(UserConfigBucket).Bucket([]byte(user))
		if ub == nil {
			return nil
		}
		return ub.Delete([]byte(name))
	})
}

func (s *BoltStore) DeleteUser(ctx context.Context, user string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(UserConfigBucket)
		if root.Bucket([]byte(user)) == nil {
			return nil
		}
		return root.DeleteBucket([]byte(user))
	})
}

func (s *BoltStore) Users(ctx context.Context) ([]string, error) {
	var users []string

	err := s.db.View(func(tx *bbolt.Tx) error {
		return forEachUser(tx, func(k []byte, _ *bbolt.Bucket) error {
			users = append(users, string(k))
			return nil
		})
	})
	sort.Strings(users)

	return users, err
}

func (s *BoltStore) CountItems(ctx context.Context) (int, error) {
	count := 0

	err := s.db.View(func(tx *bbolt.Tx) error {
		return forEachUser(tx, func(_ []byte, ub *bbolt.Bucket) error {
			count += ub.Stats().KeyN
			return nil
		})
	})

	return count, err
}

// GetDatabaseStats returns information about database size and contents
func (s *BoltStore) GetDatabaseStats(ctx context.Context) (*DatabaseStats, error) {
	stats := &DatabaseStats{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		return forEachUser(tx, func(_ []byte, ub *bbolt.Bucket) error {
			stats.TotalUsers++
			return ub.ForEach(func(_, v []byte) error {
				stats.TotalItems++
				var rec ConfigRecord
				if err := json.Unmarshal(v, &rec); err == nil && rec.UpdatedAt.After(stats.NewestUpdate) {
					stats.NewestUpdate = rec.UpdatedAt
				}
				return nil
			})
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get database stats: %w", err)
	}

	// Get file size
	if fileInfo, err := os.Stat(s.path); err == nil {
		stats.DatabaseSize = fileInfo.Size()
	}

	return stats, nil
}

// forEachUser visits the per-user buckets. Nested buckets show up in
// ForEach with a nil value.
func forEachUser(tx *bbolt.Tx, fn func(user []byte, ub *bbolt.Bucket) error) error {
	root := tx.Bucket(UserConfigBucket)
	return root.ForEach(func(k, v []byte) error {
		if v != nil {
			return nil
		}
		return fn(k, root.Bucket(k))
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
