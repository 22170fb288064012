// internal/web/handlers.go
package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"hatoview/internal/dashboard"
	"hatoview/internal/hatohol"
	"hatoview/internal/history"
	"hatoview/internal/query"
	"hatoview/internal/transport"
	"hatoview/internal/view"
)

type PageRequest struct {
	Page *int `json:"page" binding:"required"`
}

type PageSizeRequest struct {
	NumRecordsPerPage int `json:"numRecordsPerPage" binding:"required"`
}

type FilterRequest struct {
	Name  string `json:"name" binding:"required"`
	Value string `json:"value"`
}

type SortRequest struct {
	Column     string `json:"column" binding:"required"`
	Descending bool   `json:"descending"`
}

type AutoRefreshRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type DeleteRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

// writeError maps an error to a status code and a JSON error body.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	body := gin.H{"error": err.Error()}

	var protoErr *hatohol.ProtocolError
	var transportErr *transport.TransportError
	var countErr *history.ItemCountError

	switch {
	case errors.Is(err, dashboard.ErrUnknownView):
		status = http.StatusNotFound
	case errors.As(err, &countErr):
		status = http.StatusNotFound
	case errors.Is(err, view.ErrUnknownFilter),
		errors.Is(err, view.ErrUnknownColumn),
		errors.Is(err, view.ErrInvalidPageSize),
		errors.Is(err, query.ErrOffsetWithoutLimit),
		errors.Is(err, dashboard.ErrInvalidResource):
		status = http.StatusBadRequest
	case errors.Is(err, view.ErrNotStarted):
		status = http.StatusServiceUnavailable
	case errors.As(err, &protoErr):
		status = http.StatusBadGateway
		body["errorCode"] = int(protoErr.Code)
	case errors.As(err, &transportErr):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
	}
	c.JSON(status, body)
}

func (s *Server) kindParam(c *gin.Context) (view.Kind, bool) {
	kind, ok := view.ParseKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown view: " + c.Param("kind")})
		return "", false
	}
	return kind, true
}

// withView runs fn against the view named in the path and replies with its
// model.
func (s *Server) withView(c *gin.Context, fn func(v view.View) error) {
	kind, ok := s.kindParam(c)
	if !ok {
		return
	}
	v, err := s.dashboard.View(kind)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := fn(v); err != nil {
		writeError(c, err)
		return
	}
	m, _ := v.Model()
	c.JSON(http.StatusOK, gin.H{"data": m})
}

// GET /api/views
func (s *Server) listViews(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"data":  view.Kinds,
		"count": len(view.Kinds),
	})
}

// GET /api/views/:kind
func (s *Server) getView(c *gin.Context) {
	kind, ok := s.kindParam(c)
	if !ok {
		return
	}
	m, err := s.dashboard.Model(c.Request.Context(), kind)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": m})
}

func (s *Server) reloadView(c *gin.Context) {
	s.withView(c, func(v view.View) error {
		return v.Reload(c.Request.Context())
	})
}

func (s *Server) selectPage(c *gin.Context) {
	var req PageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.withView(c, func(v view.View) error {
		return v.SelectPage(c.Request.Context(), *req.Page)
	})
}

func (s *Server) setPageSize(c *gin.Context) {
	var req PageSizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.withView(c, func(v view.View) error {
		return v.SetRecordsPerPage(c.Request.Context(), req.NumRecordsPerPage)
	})
}

func (s *Server) setFilter(c *gin.Context) {
	var req FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.withView(c, func(v view.View) error {
		return v.SetFilter(c.Request.Context(), req.Name, req.Value)
	})
}

func (s *Server) sortView(c *gin.Context) {
	var req SortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.withView(c, func(v view.View) error {
		return v.Sort(c.Request.Context(), req.Column, req.Descending)
	})
}

func (s *Server) setAutoRefresh(c *gin.Context) {
	var req AutoRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.withView(c, func(v view.View) error {
		v.SetAutoRefresh(*req.Enabled)
		return nil
	})
}

// DELETE /api/resources/:resource
func (s *Server) deleteResources(c *gin.Context) {
	var req DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ids := make([]hatohol.ID, len(req.IDs))
	for i, id := range req.IDs {
		ids[i] = hatohol.ID(id)
	}

	result, err := s.dashboard.Delete(c.Request.Context(), c.Param("resource"), ids)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GET /api/history?serverId=&hostId=&itemId=&beginTime=&endTime=
func (s *Server) getHistory(c *gin.Context) {
	q := history.Query{
		ServerID: hatohol.ID(c.Query(query.KeyServerID)),
		HostID:   hatohol.ID(c.Query(query.KeyHostID)),
		ItemID:   hatohol.ID(c.Query("itemId")),
	}
	if q.ServerID == "" || q.HostID == "" || q.ItemID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "serverId, hostId and itemId are required"})
		return
	}

	var err error
	if q.BeginTime, err = unixParam(c, query.KeyBeginTime); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.EndTime, err = unixParam(c, query.KeyEndTime); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.dashboard.History(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  result,
		"count": len(result.Points),
	})
}

func unixParam(c *gin.Context, key string) (int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, errors.New(key + " must be a unix time in seconds")
	}
	return v, nil
}
