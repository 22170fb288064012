// internal/view/view.go
package view

import (
	"context"
	"errors"
	"net/url"
	"time"

	"hatoview/internal/hatohol"
	"hatoview/internal/metrics"
	"hatoview/internal/userconfig"
)

// Kind names a list view.
type Kind string

const (
	KindEvents   Kind = "events"
	KindTriggers Kind = "triggers"
	KindItems    Kind = "items"
)

// Kinds lists every view kind in display order.
var Kinds = []Kind{KindEvents, KindTriggers, KindItems}

func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

var (
	ErrUnknownFilter   = errors.New("unknown filter")
	ErrUnknownColumn   = errors.New("unknown column")
	ErrInvalidPageSize = errors.New("page size must be positive")
	ErrNotStarted      = errors.New("view not started")
)

// Getter is the part of the transport a view needs.
type Getter interface {
	Get(ctx context.Context, path string, query url.Values) (*hatohol.Reply, error)
}

// View is a paginated, filtered, auto-refreshing list.
type View interface {
	Kind() Kind
	Start(ctx context.Context) error
	Load(ctx context.Context, page int) error
	Reload(ctx context.Context) error
	SelectPage(ctx context.Context, page int) error
	SetRecordsPerPage(ctx context.Context, n int) error
	SetFilter(ctx context.Context, key, value string) error
	Sort(ctx context.Context, column string, descending bool) error
	SetAutoRefresh(enabled bool)
	Model() (Model, bool)
	Stop()
}

// Deps are the collaborators of a view.
type Deps struct {
	Client    Getter
	Config    userconfig.Store
	Scheduler Scheduler
	Clock     func() time.Time
	Metrics   *metrics.Collector

	ReloadInterval time.Duration
	// AutoRefresh is the initial auto-refresh state.
	AutoRefresh    bool
	MaxPagesToShow int
	// RecordsPerPage overrides the built-in default page size.
	RecordsPerPage int
	// URL carries deep-link parameters that seed the filter state.
	URL url.Values

	// OnRender is called outside the view lock after each new model.
	OnRender func(Model)
}

func (d Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

// New creates the view of the given kind.
func New(kind Kind, deps Deps) (View, error) {
	switch kind {
	case KindEvents:
		return NewListView[hatohol.Event](EventsAdapter{}, deps), nil
	case KindTriggers:
		return NewListView[hatohol.Trigger](TriggersAdapter{}, deps), nil
	case KindItems:
		return NewListView[hatohol.Item](ItemsAdapter{}, deps), nil
	default:
		return nil, errors.New("unknown view kind: " + string(kind))
	}
}
