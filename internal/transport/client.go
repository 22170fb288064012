// internal/transport/client.go
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"hatoview/internal/hatohol"
	"hatoview/internal/metrics"
	"hatoview/internal/session"
)

const (
	maxReplyBytes   = 32 << 20
	requestIDHeader = "X-Request-ID"
	loginPath       = "login"

	outcomeOK        = "ok"
	outcomeTransport = "transport_error"
	outcomeProtocol  = "protocol_error"
)

// TransportError is a connectivity failure or a non-2xx reply without a
// usable envelope. It is never retried.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: HTTP %s", e.Method, e.URL, e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }

type Options struct {
	BaseURL           string
	Timeout           time.Duration
	Credentials       session.Credentials
	Session           *session.Manager
	RequestsPerSecond float64
	Burst             int
	HTTPClient        *http.Client
	Metrics           *metrics.Collector
}

// Client talks to the monitoring backend. It is safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	session *session.Manager
	creds   session.Credentials
	limiter *rate.Limiter
	metrics *metrics.Collector
}

func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("backend url is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend url scheme %q", base.Scheme)
	}

	c := &Client{
		base:    base,
		http:    opts.HTTPClient,
		session: opts.Session,
		creds:   opts.Credentials,
		metrics: opts.Metrics,
	}
	if c.http == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if c.session == nil {
		c.session = session.NewManager()
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c, nil
}

// Session returns the session manager shared by every request.
func (c *Client) Session() *session.Manager { return c.session }

// Do issues one request and validates the reply envelope. A SESSION_EXPIRED
// reply triggers one re-login and one replay; a second expiry is returned
// as is.
func (c *Client) Do(ctx context.Context, method, path string, query, form url.Values) (*hatohol.Reply, error) {
	token, err := c.ensureSession(ctx)
	if err != nil {
		return nil, err
	}

	reply, err := c.send(ctx, method, path, query, form, token)
	if !hatohol.IsSessionExpired(err) {
		return reply, err
	}

	logrus.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
	}).Info("Session expired, logging in again")

	token, rerr := c.session.Renew(ctx, token, c.Login)
	c.metrics.RecordSessionRenewal(rerr)
	if rerr != nil {
		return nil, fmt.Errorf("login after expired session: %w", rerr)
	}
	return c.send(ctx, method, path, query, form, token)
}

func (c *Client) Get(ctx context.Context, path string, query url.Values) (*hatohol.Reply, error) {
	return c.Do(ctx, http.MethodGet, path, query, nil)
}

// Create posts a new record and returns its id.
func (c *Client) Create(ctx context.Context, resource string, form url.Values) (hatohol.ID, error) {
	reply, err := c.Do(ctx, http.MethodPost, resource, nil, form)
	if err != nil {
		return "", err
	}
	return mutationID(reply)
}

func (c *Client) Update(ctx context.Context, resource string, id hatohol.ID, form url.Values) (hatohol.ID, error) {
	reply, err := c.Do(ctx, http.MethodPut, resource+"/"+string(id), nil, form)
	if err != nil {
		return "", err
	}
	return mutationID(reply)
}

func (c *Client) Delete(ctx context.Context, resource string, id hatohol.ID) (hatohol.ID, error) {
	reply, err := c.Do(ctx, http.MethodDelete, resource+"/"+string(id), nil, nil)
	if err != nil {
		return "", err
	}
	return mutationID(reply)
}

func mutationID(reply *hatohol.Reply) (hatohol.ID, error) {
	var m hatohol.MutationReply
	if err := reply.Decode(&m, "id"); err != nil {
		return "", err
	}
	return m.ID, nil
}

// Login authenticates with the configured credentials and returns the new
// session id. It does not store the id; session.Manager does that.
func (c *Client) Login(ctx context.Context) (string, error) {
	if c.creds == nil {
		return "", session.ErrNoCredentials
	}
	user, password, err := c.creds.Credentials(ctx)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("user", user)
	q.Set("password", password)

	reply, err := c.send(ctx, http.MethodGet, loginPath, q, nil, "")
	if err != nil {
		return "", fmt.Errorf("failed to login: %w", err)
	}
	var login hatohol.LoginReply
	if err := reply.Decode(&login, "sessionId"); err != nil {
		return "", fmt.Errorf("failed to login: %w", err)
	}
	if login.SessionID == "" {
		return "", fmt.Errorf("failed to login: %w", &hatohol.ProtocolError{Status: hatohol.StatusNotFoundField, Field: "sessionId"})
	}

	logrus.WithField("user", user).Info("Logged in to backend")
	return login.SessionID, nil
}

// DoJSON issues a request to an endpoint that replies with plain JSON. An
// HTTP 401 is treated like an expired session.
func (c *Client) DoJSON(ctx context.Context, method, path string, query, form url.Values, out any) error {
	token, err := c.ensureSession(ctx)
	if err != nil {
		return err
	}

	body, err := c.sendRaw(ctx, method, path, query, form, token)
	var terr *TransportError
	if errors.As(err, &terr) && terr.StatusCode == http.StatusUnauthorized {
		token, rerr := c.session.Renew(ctx, token, c.Login)
		c.metrics.RecordSessionRenewal(rerr)
		if rerr != nil {
			return fmt.Errorf("login after expired session: %w", rerr)
		}
		body, err = c.sendRaw(ctx, method, path, query, form, token)
	}
	if err != nil {
		return err
	}

	if out == nil || len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &hatohol.ProtocolError{Status: hatohol.StatusNullOrUndefined, Message: err.Error()}
	}
	return nil
}

func (c *Client) ensureSession(ctx context.Context) (string, error) {
	if token := c.session.Get(); token != "" {
		return token, nil
	}
	token, err := c.session.Renew(ctx, "", c.Login)
	if err != nil {
		return "", err
	}
	return token, nil
}

func (c *Client) send(ctx context.Context, method, path string, query, form url.Values, token string) (*hatohol.Reply, error) {
	start := time.Now()
	resource := resourceOf(path)

	resp, body, err := c.roundTrip(ctx, method, path, query, form, token)
	if err != nil {
		c.metrics.RecordRequest(method, resource, outcomeTransport, time.Since(start))
		return nil, err
	}

	reply, perr := hatohol.ParseReply(body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var protoErr *hatohol.ProtocolError
		if perr == nil || !errors.As(perr, &protoErr) || protoErr.Status != hatohol.StatusErrorCodeIsNotOK {
			c.metrics.RecordRequest(method, resource, outcomeTransport, time.Since(start))
			return nil, &TransportError{
				Method:     method,
				URL:        c.redacted(path),
				StatusCode: resp.StatusCode,
				Status:     resp.Status,
			}
		}
	}
	if perr != nil {
		c.metrics.RecordRequest(method, resource, outcomeProtocol, time.Since(start))
		logrus.WithFields(logrus.Fields{
			"method":   method,
			"resource": resource,
		}).WithError(perr).Debug("Backend reply rejected")
		return reply, perr
	}

	c.metrics.RecordRequest(method, resource, outcomeOK, time.Since(start))
	return reply, nil
}

func (c *Client) sendRaw(ctx context.Context, method, path string, query, form url.Values, token string) ([]byte, error) {
	start := time.Now()
	resource := resourceOf(path)

	resp, body, err := c.roundTrip(ctx, method, path, query, form, token)
	if err == nil && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		err = &TransportError{
			Method:     method,
			URL:        c.redacted(path),
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}
	if err != nil {
		c.metrics.RecordRequest(method, resource, outcomeTransport, time.Since(start))
		return nil, err
	}
	c.metrics.RecordRequest(method, resource, outcomeOK, time.Since(start))
	return body, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query, form url.Values, token string) (*http.Response, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, &TransportError{Method: method, URL: c.redacted(path), Err: err}
		}
	}

	target := c.resolve(path, query)
	var bodyReader io.Reader
	if form != nil && (method == http.MethodPost || method == http.MethodPut) {
		bodyReader = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, nil, &TransportError{Method: method, URL: c.redacted(path), Err: err}
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.New().String()
	req.Header.Set(requestIDHeader, requestID)
	if token != "" {
		req.Header.Set(hatohol.SessionHeader, token)
	}

	logrus.WithFields(logrus.Fields{
		"method":     method,
		"path":       path,
		"request_id": requestID,
	}).Debug("Backend request")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, &TransportError{Method: method, URL: c.redacted(path), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, nil, &TransportError{
			Method:     method,
			URL:        c.redacted(path),
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Err:        err,
		}
	}
	return resp, body, nil
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + strings.TrimLeft(path, "/")
	u.RawPath = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// redacted names a request without its query string, which may carry
// credentials.
func (c *Client) redacted(path string) string {
	return c.resolve(path, nil)
}

func resourceOf(path string) string {
	path = strings.TrimLeft(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	return path
}
