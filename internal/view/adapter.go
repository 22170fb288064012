// internal/view/adapter.go
package view

import (
	"hatoview/internal/hatohol"
	"hatoview/internal/query"
)

// Page is one decoded list reply.
type Page[R any] struct {
	Records      []R
	Servers      hatohol.ServerMap
	Total        *int
	Applications []string
}

// RowContext carries what a row needs beyond its own record.
type RowContext struct {
	Servers   hatohol.ServerMap
	Durations DurationMap
}

// Adapter supplies the resource-specific parts of a ListView.
type Adapter[R any] interface {
	Kind() Kind
	Schema() query.Schema
	Columns() []Column
	Decode(reply *hatohol.Reply) (Page[R], error)
	// Samples feeds the duration map. Adapters without durations return nil.
	Samples(records []R) []Sample
	// Keep applies the client-only filters.
	Keep(rec R, filters map[string]string) bool
	Row(rec R, rc RowContext) Row
	// ServerSortColumn is the column the backend sorts by, or "".
	ServerSortColumn() string
}
