package userconfig

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOrDefault(t *testing.T) {
	items := Items{"num-events-per-page": float64(20), "color": nil}
	assert.Equal(t, float64(20), FindOrDefault(items, "num-events-per-page", 50))
	assert.Equal(t, "red", FindOrDefault(items, "color", "red"))
	assert.Equal(t, 5, FindOrDefault(items, "missing", 5))
	assert.Equal(t, 5, FindOrDefault(nil, "missing", 5))
}

func TestString(t *testing.T) {
	cases := []struct {
		in   any
		want string
		ok   bool
	}{
		{"abc", "abc", true},
		{true, "true", true},
		{20, "20", true},
		{int64(-1), "-1", true},
		{float64(50), "50", true},
		{18.2, "18.2", true},
		{nil, "", false},
		{[]int{1}, "", false},
	}
	for _, c := range cases {
		got, ok := String(c.in)
		assert.Equal(t, c.ok, ok, "%v", c.in)
		assert.Equal(t, c.want, got, "%v", c.in)
	}

	n, ok := Int("30")
	assert.True(t, ok)
	assert.Equal(t, 30, n)
	_, ok = Int("abc")
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Store(ctx, Items{"level": 99, "color": "red"}))
	got, err := m.Get(ctx, []string{"level", "color", "foo"})
	require.NoError(t, err)
	assert.Equal(t, Items{"level": 99, "color": "red", "foo": nil}, got)

	require.NoError(t, m.Store(ctx, Items{"color": nil}))
	got, err = m.Get(ctx, []string{"color"})
	require.NoError(t, err)
	assert.Nil(t, got["color"])
}

type fakeDoer struct {
	method string
	path   string
	query  url.Values
	form   url.Values
	reply  string
}

func (f *fakeDoer) DoJSON(_ context.Context, method, path string, query, form url.Values, out any) error {
	f.method, f.path, f.query, f.form = method, path, query, form
	if out == nil {
		return nil
	}
	return json.Unmarshal([]byte(f.reply), out)
}

func TestRemoteGet(t *testing.T) {
	doer := &fakeDoer{reply: `{"num-events-per-page":"20","foo":null,"bar":""}`}
	r := NewRemote(doer, "")

	items, err := r.Get(context.Background(), []string{"num-events-per-page", "foo", "bar"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, doer.method)
	assert.Equal(t, "userconfig", doer.path)
	assert.Equal(t, []string{"num-events-per-page", "foo", "bar"}, doer.query["items[]"])
	assert.Equal(t, Items{"num-events-per-page": "20", "foo": nil, "bar": nil}, items)
}

func TestRemoteStoreClearsNil(t *testing.T) {
	doer := &fakeDoer{}
	r := NewRemote(doer, "userconfig")

	require.NoError(t, r.Store(context.Background(), Items{"num-events-per-page": 20, "x": nil}))
	assert.Equal(t, http.MethodPost, doer.method)
	assert.Equal(t, "20", doer.form.Get("num-events-per-page"))
	require.Contains(t, doer.form, "x")
	assert.Equal(t, "", doer.form.Get("x"))

	doer.method = ""
	require.NoError(t, r.Store(context.Background(), Items{"bad": []int{1}}))
	assert.Empty(t, doer.method, "nothing storable, nothing sent")
}
