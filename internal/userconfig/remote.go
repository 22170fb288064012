// internal/userconfig/remote.go
package userconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// RawDoer issues a request whose reply is plain JSON rather than an
// envelope. transport.Client satisfies it.
type RawDoer interface {
	DoJSON(ctx context.Context, method, path string, query, form url.Values, out any) error
}

// Remote stores config on the backend's userconfig endpoint.
type Remote struct {
	client RawDoer
	path   string
}

func NewRemote(client RawDoer, path string) *Remote {
	if path == "" {
		path = "userconfig"
	}
	return &Remote{client: client, path: path}
}

func (r *Remote) Get(ctx context.Context, names []string) (Items, error) {
	q := url.Values{}
	for _, name := range names {
		q.Add("items[]", name)
	}

	var raw map[string]json.RawMessage
	if err := r.client.DoJSON(ctx, http.MethodGet, r.path, q, nil, &raw); err != nil {
		return nil, fmt.Errorf("get user config: %w", err)
	}

	items := make(Items, len(names))
	for _, name := range names {
		items[name] = nil
		v, ok := raw[name]
		if !ok {
			continue
		}
		var value any
		if err := json.Unmarshal(v, &value); err != nil {
			return nil, fmt.Errorf("decode user config %q: %w", name, err)
		}
		// An empty string is how a cleared item comes back.
		if value == "" {
			continue
		}
		items[name] = value
	}
	return items, nil
}

// Store posts items as form values. A nil value is sent empty, which
// clears the item; Get reports it as unset again.
func (r *Remote) Store(ctx context.Context, items Items) error {
	form := url.Values{}
	for name, v := range items {
		if v == nil {
			form.Set(name, "")
			continue
		}
		s, ok := String(v)
		if !ok {
			continue
		}
		form.Set(name, s)
	}
	if len(form) == 0 {
		return nil
	}
	if err := r.client.DoJSON(ctx, http.MethodPost, r.path, nil, form, nil); err != nil {
		return fmt.Errorf("store user config: %w", err)
	}
	return nil
}
