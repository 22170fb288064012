// internal/database/userconfig.go
package database

import (
	"context"

	"hatoview/internal/metrics"
	"hatoview/internal/userconfig"
)

// UserConfig exposes one user's items as a userconfig.Store.
func (s *BoltStore) UserConfig(user string, collector *metrics.Collector) userconfig.Store {
	return &userStore{store: s, user: user, metrics: collector}
}

type userStore struct {
	store   Store
	user    string
	metrics *metrics.Collector
}

func (u *userStore) Get(ctx context.Context, names []string) (userconfig.Items, error) {
	records, err := u.store.GetConfig(ctx, u.user, names)
	u.metrics.RecordUserConfig("get", err)
	if err != nil {
		return nil, err
	}

	items := make(userconfig.Items, len(names))
	for _, name := range names {
		items[name] = nil
	}
	for _, rec := range records {
		items[rec.Name] = rec.Value
	}
	return items, nil
}

func (u *userStore) Store(ctx context.Context, items userconfig.Items) error {
	records := make([]ConfigRecord, 0, len(items))
	for name, v := range items {
		records = append(records, ConfigRecord{User: u.user, Name: name, Value: v})
	}
	err := u.store.PutConfig(ctx, records)
	u.metrics.RecordUserConfig("store", err)
	return err
}
