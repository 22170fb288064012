package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"hatoview/internal/config"
	"hatoview/internal/dashboard"
	"hatoview/internal/hatohol"
	"hatoview/internal/view"
)

const servers = `"servers":{"1":{"name":"zbx","nickname":"main","type":0,"ipAddress":"192.0.2.1",
	"hosts":{"10":{"name":"web"}},"groups":{}}}`

var replies = map[string]string{
	"event": `{"apiVersion":3,"errorCode":0,"events":[
		{"unifiedId":1,"serverId":1,"time":100,"type":1,"triggerId":7,"severity":4,"hostId":10,"brief":"cpu"}],` + servers + `}`,
	"trigger": `{"apiVersion":3,"errorCode":0,"totalNumberOfTriggers":2,"triggers":[
		{"id":7,"serverId":1,"hostId":10,"status":1,"severity":4,"lastChangeTime":100,"brief":"cpu"},
		{"id":8,"serverId":1,"hostId":10,"status":0,"severity":2,"lastChangeTime":200,"brief":"disk"}],` + servers + `}`,
	"item": `{"apiVersion":3,"errorCode":0,"totalNumberOfItems":1,"items":[
		{"id":100,"serverId":1,"hostId":10,"brief":"load","lastValueTime":100,"lastValue":"1.5"}],` + servers + `}`,
	"history": `{"apiVersion":3,"errorCode":0,"history":[{"clock":3500,"ns":0,"value":"2"}]}`,
}

type fakeBackend struct {
	mu      sync.Mutex
	failing map[string]string
	deleted []hatohol.ID
}

func (f *fakeBackend) Get(_ context.Context, path string, _ url.Values) (*hatohol.Reply, error) {
	f.mu.Lock()
	body, ok := f.failing[path]
	f.mu.Unlock()
	if !ok {
		body = replies[path]
	}
	return hatohol.ParseReply([]byte(body))
}

func (f *fakeBackend) Delete(_ context.Context, _ string, id hatohol.ID) (hatohol.ID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return id, nil
}

func (f *fakeBackend) DoJSON(context.Context, string, string, url.Values, url.Values, any) error {
	return nil
}

func (f *fakeBackend) fail(path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[path] = body
}

type idleTimer struct{}

func (idleTimer) Stop() bool { return true }

type idleScheduler struct{}

func (idleScheduler) AfterFunc(time.Duration, func()) view.Timer { return idleTimer{} }

type envelope struct {
	Data      json.RawMessage `json:"data"`
	Count     int             `json:"count"`
	Error     string          `json:"error"`
	ErrorCode *int            `json:"errorCode"`
}

type ServerSuite struct {
	suite.Suite
	backend *fakeBackend
	engine  *dashboard.Engine
	server  *Server
}

func (s *ServerSuite) SetupTest() {
	cfg := &config.Config{
		Server: config.ServerConfig{Port: ":0"},
		Views: config.ViewsConfig{
			ReloadInterval:    time.Minute,
			MaxPagesToShow:    10,
			RecordsPerPage:    50,
			DeleteConcurrency: 2,
			HistorySpan:       time.Hour,
		},
		UserConfig: config.UserConfigConfig{Store: config.StoreMemory},
	}

	s.backend = &fakeBackend{failing: map[string]string{}}
	engine, err := dashboard.NewEngine(dashboard.Options{
		Config:    cfg,
		Client:    s.backend,
		Scheduler: idleScheduler{},
		Clock:     func() time.Time { return time.Unix(4000, 0) },
	})
	s.Require().NoError(err)
	s.engine = engine
	s.server = NewServer(cfg, engine, nil)
}

func (s *ServerSuite) TearDownTest() {
	s.engine.Stop()
}

func (s *ServerSuite) do(method, target string, body interface{}) (int, envelope) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(rec, req)

	var env envelope
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (s *ServerSuite) model(env envelope) view.Model {
	var m view.Model
	s.Require().NoError(json.Unmarshal(env.Data, &m))
	return m
}

func (s *ServerSuite) TestHealth() {
	code, _ := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, code)
}

func (s *ServerSuite) TestListViews() {
	code, env := s.do(http.MethodGet, "/api/views", nil)
	s.Equal(http.StatusOK, code)
	s.Equal(3, env.Count)
}

func (s *ServerSuite) TestGetView() {
	code, env := s.do(http.MethodGet, "/api/views/triggers", nil)
	s.Require().Equal(http.StatusOK, code)

	m := s.model(env)
	s.Equal(view.KindTriggers, m.View)
	s.Len(m.Rows, 2)
	s.Equal(2, m.Page.NumTotalRecords)
	s.Empty(m.Error)

	code, _ = s.do(http.MethodGet, "/api/views/hosts", nil)
	s.Equal(http.StatusNotFound, code)
}

func (s *ServerSuite) TestSetPageSize() {
	code, env := s.do(http.MethodPost, "/api/views/triggers/page-size", body{"numRecordsPerPage": 20})
	s.Require().Equal(http.StatusOK, code)
	s.Equal(20, s.model(env).Page.NumRecordsPerPage)

	code, _ = s.do(http.MethodPost, "/api/views/triggers/page-size", body{})
	s.Equal(http.StatusBadRequest, code)

	code, _ = s.do(http.MethodPost, "/api/views/triggers/page-size", body{"numRecordsPerPage": -1})
	s.Equal(http.StatusBadRequest, code)
}

func (s *ServerSuite) TestSelectPageRequiresPage() {
	code, _ := s.do(http.MethodPost, "/api/views/triggers/page", body{})
	s.Equal(http.StatusBadRequest, code)

	code, env := s.do(http.MethodPost, "/api/views/triggers/page", body{"page": 0})
	s.Require().Equal(http.StatusOK, code)
	s.Equal(0, s.model(env).Page.CurrentPage)
}

func (s *ServerSuite) TestSetFilter() {
	code, env := s.do(http.MethodPost, "/api/views/triggers/filters", body{"name": "status", "value": "1"})
	s.Require().Equal(http.StatusOK, code)
	s.Contains(s.model(env).Query, "status=1")

	code, _ = s.do(http.MethodPost, "/api/views/triggers/filters", body{"name": "limit", "value": "5"})
	s.Equal(http.StatusBadRequest, code)
}

func (s *ServerSuite) TestSort() {
	code, env := s.do(http.MethodGet, "/api/views/triggers", nil)
	s.Require().Equal(http.StatusOK, code)

	code, env = s.do(http.MethodPost, "/api/views/triggers/sort", body{"column": "name", "descending": true})
	s.Require().Equal(http.StatusOK, code)

	m := s.model(env)
	s.Equal("name", m.Sort.Column)
	s.False(m.Sort.Server)

	code, _ = s.do(http.MethodPost, "/api/views/triggers/sort", body{"column": "nope"})
	s.Equal(http.StatusBadRequest, code)
}

func (s *ServerSuite) TestAutoRefresh() {
	code, env := s.do(http.MethodPost, "/api/views/items/auto-refresh", body{"enabled": false})
	s.Require().Equal(http.StatusOK, code)
	s.False(s.model(env).AutoRefresh)

	code, _ = s.do(http.MethodPost, "/api/views/items/auto-refresh", body{})
	s.Equal(http.StatusBadRequest, code)
}

func (s *ServerSuite) TestDeleteResources() {
	code, env := s.do(http.MethodDelete, "/api/resources/trigger", body{"ids": []string{"7", "8"}})
	s.Require().Equal(http.StatusOK, code)

	var res struct {
		Total     int `json:"total"`
		Succeeded int `json:"succeeded"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &res))
	s.Equal(2, res.Total)
	s.Equal(2, res.Succeeded)
	s.ElementsMatch([]hatohol.ID{"7", "8"}, s.backend.deleted)

	code, _ = s.do(http.MethodDelete, "/api/resources/trigger", body{"ids": []string{}})
	s.Equal(http.StatusBadRequest, code)
}

func (s *ServerSuite) TestHistory() {
	code, env := s.do(http.MethodGet, "/api/history?serverId=1&hostId=10&itemId=100", nil)
	s.Require().Equal(http.StatusOK, code)
	s.Equal(1, env.Count)

	code, _ = s.do(http.MethodGet, "/api/history?serverId=1&hostId=10", nil)
	s.Equal(http.StatusBadRequest, code)

	code, _ = s.do(http.MethodGet, "/api/history?serverId=1&hostId=10&itemId=100&beginTime=yesterday", nil)
	s.Equal(http.StatusBadRequest, code)
}

func (s *ServerSuite) TestHistoryBackendError() {
	s.backend.fail("item", `{"apiVersion":3,"errorCode":39}`)

	code, env := s.do(http.MethodGet, "/api/history?serverId=1&hostId=10&itemId=100", nil)
	s.Equal(http.StatusBadGateway, code)
	s.Require().NotNil(env.ErrorCode)
	s.Equal(int(hatohol.CodeSessionExpired), *env.ErrorCode)
}

func (s *ServerSuite) TestHistoryMissingItem() {
	s.backend.fail("item", `{"apiVersion":3,"errorCode":0,"items":[],`+servers+`}`)

	code, _ := s.do(http.MethodGet, "/api/history?serverId=1&hostId=10&itemId=100", nil)
	s.Equal(http.StatusNotFound, code)
}

func (s *ServerSuite) TestWebSocketPushesModels() {
	_, err := s.engine.Model(context.Background(), view.KindTriggers)
	s.Require().NoError(err)

	ts := httptest.NewServer(s.server.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	s.Require().NoError(err)
	defer conn.Close()

	var msg struct {
		Type string     `json:"type"`
		Data view.Model `json:"data"`
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	s.Require().NoError(conn.ReadJSON(&msg))
	s.Equal("view", msg.Type)
	s.Equal(view.KindTriggers, msg.Data.View)
	first := msg.Data.Sequence

	code, _ := s.do(http.MethodPost, "/api/views/triggers/reload", nil)
	s.Require().Equal(http.StatusOK, code)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	s.Require().NoError(conn.ReadJSON(&msg))
	s.Equal(view.KindTriggers, msg.Data.View)
	s.Greater(msg.Data.Sequence, first)
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

type body map[string]interface{}
