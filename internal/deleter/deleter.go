// internal/deleter/deleter.go
package deleter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"hatoview/internal/hatohol"
	"hatoview/internal/metrics"
)

const DefaultConcurrency = 4

// ErrUnexpectedID means the backend acknowledged a different record than
// the one requested.
var ErrUnexpectedID = errors.New("reply id is not among the requested ids")

// Client deletes one record and returns the id the backend acknowledged.
type Client interface {
	Delete(ctx context.Context, resource string, id hatohol.ID) (hatohol.ID, error)
}

// Progress is called after each request with the number completed so far.
type Progress func(completed, total int)

type ItemError struct {
	ID      hatohol.ID `json:"id"`
	Message string     `json:"error"`
	Err     error      `json:"-"`
}

func (e ItemError) Error() string {
	return fmt.Sprintf("delete %s: %v", e.ID, e.Err)
}

func (e ItemError) Unwrap() error { return e.Err }

// Result tallies a bulk delete. A failed item never fails the batch.
type Result struct {
	Total     int         `json:"total"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Errors    []ItemError `json:"errors,omitempty"`
}

// Bulk sends one DELETE per id with bounded concurrency.
type Bulk struct {
	client      Client
	concurrency int
	metrics     *metrics.Collector
}

func New(client Client, concurrency int, collector *metrics.Collector) *Bulk {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Bulk{client: client, concurrency: concurrency, metrics: collector}
}

// Delete removes every id of resource. Duplicate ids are sent once.
func (b *Bulk) Delete(ctx context.Context, resource string, ids []hatohol.ID, progress Progress) Result {
	ids = unique(ids)
	requested := make(map[hatohol.ID]bool, len(ids))
	for _, id := range ids {
		requested[id] = true
	}

	failures := make([]error, len(ids))
	var (
		mu        sync.Mutex
		completed int
	)

	var g errgroup.Group
	g.SetLimit(b.concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			failures[i] = b.deleteOne(ctx, resource, id, requested)

			mu.Lock()
			completed++
			done := completed
			mu.Unlock()
			if progress != nil {
				progress(done, len(ids))
			}
			return nil
		})
	}
	_ = g.Wait()

	result := Result{Total: len(ids)}
	for i, err := range failures {
		if err == nil {
			result.Succeeded++
			continue
		}
		result.Failed++
		result.Errors = append(result.Errors, ItemError{ID: ids[i], Message: err.Error(), Err: err})
	}

	b.metrics.RecordDelete(resource, result.Succeeded, result.Failed)
	logrus.WithFields(logrus.Fields{
		"resource":  resource,
		"total":     result.Total,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	}).Info("Bulk delete finished")
	return result
}

func (b *Bulk) deleteOne(ctx context.Context, resource string, id hatohol.ID, requested map[hatohol.ID]bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	got, err := b.client.Delete(ctx, resource, id)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"resource": resource,
			"id":       id,
		}).Warn("Delete failed")
		return err
	}
	if !requested[got] {
		return fmt.Errorf("%w: got %q", ErrUnexpectedID, got)
	}
	return nil
}

func unique(ids []hatohol.ID) []hatohol.ID {
	seen := make(map[hatohol.ID]bool, len(ids))
	out := make([]hatohol.ID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
