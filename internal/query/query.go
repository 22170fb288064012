// internal/query/query.go
package query

import (
	"errors"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"hatoview/internal/userconfig"
)

// ErrOffsetWithoutLimit means a non-first page was requested without a
// positive page size. The backend rejects such a query, so it is a caller
// bug and never retried.
var ErrOffsetWithoutLimit = errors.New("offset requires a positive limit")

// Query keys shared by the list resources.
const (
	KeyLimit           = "limit"
	KeyOffset          = "offset"
	KeyServerID        = "serverId"
	KeyHostgroupID     = "hostgroupId"
	KeyHostID          = "hostId"
	KeyMinimumSeverity = "minimumSeverity"
	KeyStatus          = "status"
	KeyAppName         = "appName"
	KeySortType        = "sortType"
	KeySortOrder       = "sortOrder"
	KeyBeginTime       = "beginTime"
	KeyEndTime         = "endTime"
)

// IsSentinel reports whether v means "this filter is not applied".
func IsSentinel(v string) bool {
	return v == "" || v == "*" || v == "-1"
}

// Field describes one query key.
type Field struct {
	Key     string
	Default string
	// ConfigKey is the user config item the value is persisted under.
	ConfigKey string
	// Numeric values must parse as finite numbers. Integer values must
	// parse as integers no smaller than Min.
	Numeric bool
	Integer bool
	Min     int
	// ClientOnly fields are applied over the fetched page and never sent.
	ClientOnly bool
}

// Schema is the set of fields a resource accepts.
type Schema struct {
	Resource string
	Fields   []Field
	// URLKeys are the deep-link parameters the view accepts.
	URLKeys []string
}

func (s Schema) Field(key string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// WithDefault returns a copy of s whose field key defaults to value.
func (s Schema) WithDefault(key, value string) Schema {
	fields := make([]Field, len(s.Fields))
	copy(fields, s.Fields)
	for i := range fields {
		if fields[i].Key == key {
			fields[i].Default = value
		}
	}
	s.Fields = fields
	return s
}

// ConfigNames lists the user config items the schema persists.
func (s Schema) ConfigNames() []string {
	var names []string
	for _, f := range s.Fields {
		if f.ConfigKey != "" {
			names = append(names, f.ConfigKey)
		}
	}
	return names
}

// SeedFromURL picks the whitelisted keys out of a deep link.
func (s Schema) SeedFromURL(params url.Values) map[string]string {
	ui := map[string]string{}
	for _, key := range s.URLKeys {
		if v, ok := params[key]; ok && len(v) > 0 {
			ui[key] = v[0]
		}
	}
	return ui
}

// Inputs are the sources a query is resolved from, highest precedence
// first: UI state, saved user config, built-in defaults. Page is the
// zero-based page to fetch.
type Inputs struct {
	UI    map[string]string
	Saved userconfig.Items
	Page  int
}

// Resolve returns the effective value of f. A numeric candidate that does
// not parse, or an integer candidate below the field minimum, is skipped in
// favour of the next source.
func Resolve(f Field, in Inputs) string {
	candidates := make([]string, 0, 2)
	if v, ok := in.UI[f.Key]; ok {
		candidates = append(candidates, v)
	}
	if f.ConfigKey != "" {
		if v, ok := userconfig.String(in.Saved[f.ConfigKey]); ok {
			candidates = append(candidates, v)
		}
	}

	for _, v := range candidates {
		if v, ok := f.accept(v); ok {
			return v
		}
	}
	return f.Default
}

func (f Field) accept(v string) (string, bool) {
	switch {
	case f.Integer:
		v = strings.TrimSpace(v)
		n, err := strconv.Atoi(v)
		if err != nil || n < f.Min {
			return "", false
		}
		return v, true
	case f.Numeric:
		v = strings.TrimSpace(v)
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return "", false
		}
		return v, true
	default:
		return v, true
	}
}

// Limit is the resolved page size, or 0 when none applies.
func (s Schema) Limit(in Inputs) int {
	f, ok := s.Field(KeyLimit)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(Resolve(f, in))
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// Query is a flat mapping of query keys to values.
type Query map[string]string

// Build resolves every server-side field. It has no side effects, so
// callers may build speculatively to find out whether anything changed.
func Build(s Schema, in Inputs) (Query, error) {
	limit := s.Limit(in)
	if in.Page > 0 && limit <= 0 {
		return nil, ErrOffsetWithoutLimit
	}

	q := Query{}
	for _, f := range s.Fields {
		if f.ClientOnly {
			continue
		}
		switch f.Key {
		case KeyLimit:
			if limit > 0 {
				q[KeyLimit] = strconv.Itoa(limit)
			}
		case KeyOffset:
			if limit > 0 {
				q[KeyOffset] = strconv.Itoa(in.Page * limit)
			}
		default:
			if v := Resolve(f, in); !IsSentinel(v) {
				q[f.Key] = v
			}
		}
	}
	return q, nil
}

// ClientFilters resolves the client-only fields. Sentinel values are left
// out.
func ClientFilters(s Schema, in Inputs) map[string]string {
	out := map[string]string{}
	for _, f := range s.Fields {
		if !f.ClientOnly {
			continue
		}
		if v := Resolve(f, in); !IsSentinel(v) {
			out[f.Key] = v
		}
	}
	return out
}

// Changes returns the user config items whose resolved value differs from
// what is saved (or from the default when nothing is saved).
func Changes(s Schema, in Inputs) userconfig.Items {
	items := userconfig.Items{}
	limit := s.Limit(in)

	for _, f := range s.Fields {
		if f.ConfigKey == "" {
			continue
		}

		var current string
		if f.Key == KeyOffset {
			current = strconv.Itoa(in.Page * limit)
		} else {
			current = Resolve(f, in)
		}

		saved, ok := userconfig.String(in.Saved[f.ConfigKey])
		if !ok {
			saved = f.Default
		}
		if current == saved {
			continue
		}

		if f.Numeric || f.Integer {
			if n, err := strconv.Atoi(current); err == nil {
				items[f.ConfigKey] = n
				continue
			}
		}
		items[f.ConfigKey] = current
	}
	return items
}

func (q Query) Values() url.Values {
	v := make(url.Values, len(q))
	for key, val := range q {
		v.Set(key, val)
	}
	return v
}

// Encode serializes q with keys in sorted order.
func (q Query) Encode() string {
	return q.Values().Encode()
}

// Path returns "resource?query".
func (q Query) Path(resource string) string {
	if len(q) == 0 {
		return resource
	}
	return resource + "?" + q.Encode()
}

// Keys returns the keys of q in sorted order.
func (q Query) Keys() []string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
