// internal/dashboard/engine.go
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"hatoview/internal/config"
	"hatoview/internal/database"
	"hatoview/internal/deleter"
	"hatoview/internal/hatohol"
	"hatoview/internal/history"
	"hatoview/internal/metrics"
	"hatoview/internal/query"
	"hatoview/internal/userconfig"
	"hatoview/internal/view"
)

const (
	subscriberBuffer     = 16
	storeMetricsInterval = 30 * time.Second
)

var (
	ErrUnknownView     = errors.New("unknown view")
	ErrInvalidResource = errors.New("invalid resource name")
)

// Backend is everything the dashboard needs from the transport.
type Backend interface {
	view.Getter
	deleter.Client
	userconfig.RawDoer
}

type Options struct {
	Config     *config.Config
	Client     Backend
	UserConfig userconfig.Store
	Metrics    *metrics.Collector
	Scheduler  view.Scheduler
	Clock      func() time.Time
}

// Engine owns the views and fans every render out to subscribers.
type Engine struct {
	config  *config.Config
	client  Backend
	metrics *metrics.Collector
	deleter *deleter.Bulk
	clock   func() time.Time
	views   map[view.Kind]view.View

	mu          sync.RWMutex
	subscribers map[string]chan view.Model
	running     bool
	cancel      context.CancelFunc
}

func NewEngine(opts Options) (*Engine, error) {
	if opts.Config == nil || opts.Client == nil {
		return nil, errors.New("config and client are required")
	}
	cfg := opts.Config

	e := &Engine{
		config:      cfg,
		client:      opts.Client,
		metrics:     opts.Metrics,
		deleter:     deleter.New(opts.Client, cfg.Views.DeleteConcurrency, opts.Metrics),
		clock:       opts.Clock,
		views:       make(map[view.Kind]view.View, len(view.Kinds)),
		subscribers: make(map[string]chan view.Model),
	}

	store := opts.UserConfig
	if store == nil {
		store = userconfig.NewMemory()
	}

	for _, kind := range view.Kinds {
		v, err := view.New(kind, view.Deps{
			Client:         opts.Client,
			Config:         store,
			Scheduler:      opts.Scheduler,
			Clock:          opts.Clock,
			Metrics:        opts.Metrics,
			ReloadInterval: cfg.Views.ReloadInterval,
			AutoRefresh:    cfg.Views.AutoRefreshEnabled(),
			MaxPagesToShow: cfg.Views.MaxPagesToShow,
			RecordsPerPage: cfg.Views.RecordsPerPage,
			OnRender:       e.broadcast,
		})
		if err != nil {
			return nil, err
		}
		e.views[kind] = v
	}

	return e, nil
}

// NewUserConfigStore picks the user config store named in the config. The
// bolt store needs db; the others ignore it.
func NewUserConfigStore(cfg *config.Config, client userconfig.RawDoer, db *database.BoltStore, collector *metrics.Collector) (userconfig.Store, error) {
	switch cfg.UserConfig.Store {
	case config.StoreRemote:
		return userconfig.NewRemote(client, ""), nil
	case config.StoreBolt:
		if db == nil {
			return nil, errors.New("bolt user config store requires an open database")
		}
		return db.UserConfig(cfg.UserConfig.User, collector), nil
	case config.StoreMemory:
		return userconfig.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown user config store %q", cfg.UserConfig.Store)
	}
}

// Start loads every view concurrently. A view that fails to load keeps its
// error in its model and does not stop the others.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = true
	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.mu.Unlock()

	logrus.Info("Starting dashboard engine")

	var g errgroup.Group
	for kind, v := range e.views {
		kind, v := kind, v
		g.Go(func() error {
			if err := v.Start(ctx); err != nil {
				logrus.WithError(err).WithField("view", string(kind)).Warn("Initial view load failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	go e.runStoreMetrics(runCtx)
	return nil
}

func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	logrus.Info("Stopping dashboard engine")
	for _, v := range e.views {
		v.Stop()
	}
	e.cancel()
	for id, ch := range e.subscribers {
		close(ch)
		delete(e.subscribers, id)
	}
	e.running = false
}

func (e *Engine) runStoreMetrics(ctx context.Context) {
	ticker := time.NewTicker(storeMetricsInterval)
	defer ticker.Stop()

	for {
		if err := e.metrics.UpdateStoreMetrics(ctx); err != nil {
			logrus.WithError(err).Debug("Failed to update store metrics")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (e *Engine) View(kind view.Kind) (view.View, error) {
	v, ok := e.views[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownView, kind)
	}
	return v, nil
}

// Model returns the current model of kind, loading the view first if it
// has never rendered.
func (e *Engine) Model(ctx context.Context, kind view.Kind) (view.Model, error) {
	v, err := e.View(kind)
	if err != nil {
		return view.Model{}, err
	}
	if m, ok := v.Model(); ok {
		return m, nil
	}
	if err := v.Start(ctx); err != nil {
		if m, ok := v.Model(); ok {
			return m, nil
		}
		return view.Model{}, err
	}
	m, _ := v.Model()
	return m, nil
}

// Subscribe registers for render pushes. The returned function
// unsubscribes. A subscriber that falls behind misses models rather than
// blocking renders.
func (e *Engine) Subscribe() (string, <-chan view.Model, func()) {
	id := uuid.New().String()
	ch := make(chan view.Model, subscriberBuffer)

	e.mu.Lock()
	e.subscribers[id] = ch
	e.mu.Unlock()

	return id, ch, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if c, ok := e.subscribers[id]; ok {
			close(c)
			delete(e.subscribers, id)
		}
	}
}

func (e *Engine) broadcast(m view.Model) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for id, ch := range e.subscribers {
		select {
		case ch <- m:
		default:
			logrus.WithFields(logrus.Fields{
				"subscriber": id,
				"view":       string(m.View),
			}).Debug("Subscriber is behind, dropping model")
		}
	}
}

// Delete removes ids of resource and reloads the view that lists it.
func (e *Engine) Delete(ctx context.Context, resource string, ids []hatohol.ID) (deleter.Result, error) {
	if resource == "" || strings.ContainsAny(resource, "/?#") {
		return deleter.Result{}, fmt.Errorf("%w: %q", ErrInvalidResource, resource)
	}

	result := e.deleter.Delete(ctx, resource, ids, func(done, total int) {
		logrus.WithFields(logrus.Fields{
			"resource":  resource,
			"completed": done,
			"total":     total,
		}).Debug("Delete progress")
	})

	if kind, ok := viewFor(resource); ok {
		if err := e.views[kind].Reload(ctx); err != nil {
			logrus.WithError(err).WithField("view", string(kind)).Warn("Reload after delete failed")
		}
	}
	return result, nil
}

func viewFor(resource string) (view.Kind, bool) {
	switch resource {
	case query.ResourceEvent:
		return view.KindEvents, true
	case query.ResourceTrigger:
		return view.KindTriggers, true
	case query.ResourceItem:
		return view.KindItems, true
	}
	return "", false
}

// HistoryResult is one item's loaded history.
type HistoryResult struct {
	Item    hatohol.Item      `json:"item"`
	Servers hatohol.ServerMap `json:"servers,omitempty"`
	Points  []history.Point   `json:"points"`
	Query   history.Query     `json:"query"`
}

// History loads the history of one item within the configured span.
func (e *Engine) History(ctx context.Context, q history.Query) (*HistoryResult, error) {
	loader := history.NewLoader(history.Options{
		Client:      e.client,
		Query:       q,
		DefaultSpan: e.config.Views.HistorySpan,
		Clock:       e.clock,
	})
	points, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	item, _ := loader.Item()
	return &HistoryResult{
		Item:    item,
		Servers: loader.Servers(),
		Points:  points,
		Query:   loader.LastQuery(),
	}, nil
}
