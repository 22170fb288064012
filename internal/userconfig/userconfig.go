// internal/userconfig/userconfig.go
package userconfig

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
)

// Items maps flat config names such as "num-events-per-page" to scalar
// values. A nil value means unset.
type Items map[string]any

// Store is a per-user key/value config collaborator.
type Store interface {
	// Get returns a value for every requested name. Names that were never
	// stored map to nil.
	Get(ctx context.Context, names []string) (Items, error)
	Store(ctx context.Context, items Items) error
}

// FindOrDefault returns items[name] if it is set, otherwise def.
func FindOrDefault(items Items, name string, def any) any {
	if items == nil {
		return def
	}
	v, ok := items[name]
	if !ok || v == nil {
		return def
	}
	return v
}

// String renders a scalar the way it is sent in a query string. The second
// result is false for nil and for values that are not scalars.
func String(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10), true
		}
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return "", false
	}
}

// Int converts a stored scalar to an int.
func Int(v any) (int, bool) {
	s, ok := String(v)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Memory is an in-process Store.
type Memory struct {
	mu    sync.RWMutex
	items Items
}

func NewMemory() *Memory {
	return &Memory{items: Items{}}
}

func (m *Memory) Get(_ context.Context, names []string) (Items, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(Items, len(names))
	for _, name := range names {
		out[name] = m.items[name]
	}
	return out, nil
}

func (m *Memory) Store(_ context.Context, items Items) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, v := range items {
		if v == nil {
			delete(m.items, name)
			continue
		}
		m.items[name] = v
	}
	return nil
}
