package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hatoview/internal/hatohol"
	"hatoview/internal/session"
)

type fakeBackend struct {
	mu       sync.Mutex
	logins   int32
	requests int32
	// expireNext makes the next n authenticated requests reply
	// SESSION_EXPIRED.
	expireNext int
	lastForm   url.Values
	lastHeader http.Header
	handler    func(w http.ResponseWriter, r *http.Request) bool
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/login" {
		n := atomic.AddInt32(&b.logins, 1)
		if r.URL.Query().Get("password") != "secret" {
			fmt.Fprint(w, `{"apiVersion":3,"errorCode":43}`)
			return
		}
		fmt.Fprintf(w, `{"apiVersion":3,"errorCode":0,"sessionId":"session-%d"}`, n)
		return
	}

	atomic.AddInt32(&b.requests, 1)
	b.mu.Lock()
	b.lastHeader = r.Header.Clone()
	_ = r.ParseForm()
	b.lastForm = r.PostForm
	expire := b.expireNext > 0
	if expire {
		b.expireNext--
	}
	handler := b.handler
	b.mu.Unlock()

	if expire || r.Header.Get(hatohol.SessionHeader) == "" {
		fmt.Fprint(w, `{"apiVersion":3,"errorCode":39}`)
		return
	}
	if handler != nil && handler(w, r) {
		return
	}
	fmt.Fprint(w, `{"apiVersion":3,"errorCode":0,"events":[],"servers":{}}`)
}

func newTestClient(t *testing.T, backend http.Handler, password string) *Client {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	c, err := New(Options{
		BaseURL:     srv.URL + "/",
		Credentials: session.StaticCredentials{User: "admin", Password: password},
	})
	require.NoError(t, err)
	return c
}

func TestGetLogsInFirstAndSendsSessionHeader(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestClient(t, backend, "secret")

	reply, err := c.Get(context.Background(), "event", url.Values{"limit": {"50"}})
	require.NoError(t, err)
	assert.True(t, reply.Has("events"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&backend.logins))
	assert.Equal(t, "session-1", backend.lastHeader.Get(hatohol.SessionHeader))
	assert.NotEmpty(t, backend.lastHeader.Get("X-Request-ID"))
	assert.Equal(t, "session-1", c.Session().Get())
}

func TestSessionExpiredRetriesOnce(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestClient(t, backend, "secret")
	c.Session().Set("stale")
	backend.expireNext = 1

	_, err := c.Get(context.Background(), "trigger", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&backend.logins))
	assert.Equal(t, int32(2), atomic.LoadInt32(&backend.requests))
	assert.Equal(t, "session-1", c.Session().Get())
}

func TestSecondSessionExpiredIsTerminal(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestClient(t, backend, "secret")
	c.Session().Set("stale")
	backend.expireNext = 2

	_, err := c.Get(context.Background(), "trigger", nil)
	require.Error(t, err)
	assert.True(t, hatohol.IsSessionExpired(err))

	var perr *hatohol.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, hatohol.CodeSessionExpired, perr.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&backend.logins))
	assert.Equal(t, int32(2), atomic.LoadInt32(&backend.requests))
}

func TestFailedReloginIsNotLooped(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestClient(t, backend, "wrong")
	c.Session().Set("stale")
	backend.expireNext = 1

	_, err := c.Get(context.Background(), "item", nil)
	require.Error(t, err)

	var perr *hatohol.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, hatohol.CodeAuthFailed, perr.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&backend.logins))
	assert.Equal(t, int32(1), atomic.LoadInt32(&backend.requests))
}

func TestConcurrentExpiriesShareOneLogin(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestClient(t, backend, "secret")
	c.Session().Set("stale")
	backend.handler = func(w http.ResponseWriter, r *http.Request) bool {
		if r.Header.Get(hatohol.SessionHeader) == "stale" {
			fmt.Fprint(w, `{"apiVersion":3,"errorCode":39}`)
			return true
		}
		return false
	}

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(context.Background(), "event", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&backend.logins))
}

func TestProtocolErrorIsNotRetried(t *testing.T) {
	backend := &fakeBackend{handler: func(w http.ResponseWriter, r *http.Request) bool {
		fmt.Fprint(w, `{"apiVersion":3,"errorCode":33}`)
		return true
	}}
	c := newTestClient(t, backend, "secret")

	_, err := c.Get(context.Background(), "event", url.Values{"offset": {"50"}})
	var perr *hatohol.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, hatohol.CodeOffsetWithoutLimit, perr.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&backend.requests))
}

func TestNon2xxWithoutEnvelopeIsTransportError(t *testing.T) {
	backend := &fakeBackend{handler: func(w http.ResponseWriter, r *http.Request) bool {
		http.Error(w, "boom", http.StatusBadGateway)
		return true
	}}
	c := newTestClient(t, backend, "secret")

	_, err := c.Get(context.Background(), "event", nil)
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusBadGateway, terr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&backend.requests))
}

func TestConnectionRefusedIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Options{BaseURL: base, Credentials: session.StaticCredentials{User: "a", Password: "b"}})
	require.NoError(t, err)
	c.Session().Set("token")

	_, err = c.Get(context.Background(), "event", nil)
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Error(t, errors.Unwrap(terr))
}

func TestMutations(t *testing.T) {
	backend := &fakeBackend{handler: func(w http.ResponseWriter, r *http.Request) bool {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/action":
			fmt.Fprint(w, `{"apiVersion":3,"errorCode":0,"id":12}`)
		case r.Method == http.MethodPut && r.URL.Path == "/action/12":
			fmt.Fprint(w, `{"apiVersion":3,"errorCode":0,"id":"12"}`)
		case r.Method == http.MethodDelete && r.URL.Path == "/action/12":
			fmt.Fprint(w, `{"apiVersion":3,"errorCode":0}`)
		default:
			http.NotFound(w, r)
		}
		return true
	}}
	c := newTestClient(t, backend, "secret")
	ctx := context.Background()

	id, err := c.Create(ctx, "action", url.Values{"type": {"0"}})
	require.NoError(t, err)
	assert.Equal(t, hatohol.ID("12"), id)
	assert.Equal(t, "0", backend.lastForm.Get("type"))

	id, err = c.Update(ctx, "action", "12", url.Values{"type": {"1"}})
	require.NoError(t, err)
	assert.Equal(t, hatohol.ID("12"), id)

	_, err = c.Delete(ctx, "action", "12")
	var perr *hatohol.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, hatohol.StatusNotFoundField, perr.Status)
	assert.Equal(t, "id", perr.Field)
}

func TestDoJSONRenewsOnUnauthorized(t *testing.T) {
	var calls int32
	backend := &fakeBackend{handler: func(w http.ResponseWriter, r *http.Request) bool {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return true
		}
		fmt.Fprint(w, `{"num-events-per-page":20}`)
		return true
	}}
	c := newTestClient(t, backend, "secret")
	c.Session().Set("stale")

	var out map[string]any
	require.NoError(t, c.DoJSON(context.Background(), http.MethodGet, "userconfig", url.Values{"items[]": {"num-events-per-page"}}, nil, &out))
	assert.Equal(t, float64(20), out["num-events-per-page"])
	assert.Equal(t, int32(1), atomic.LoadInt32(&backend.logins))
}

func TestNewValidatesURL(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	_, err = New(Options{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
}

func TestLoginWithoutCredentials(t *testing.T) {
	c, err := New(Options{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "event", nil)
	assert.ErrorIs(t, err, session.ErrNoCredentials)
}
