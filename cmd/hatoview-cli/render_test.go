package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hatoview/internal/pager"
	"hatoview/internal/view"
)

func TestRenderModel(t *testing.T) {
	m := view.Model{
		View:    view.KindTriggers,
		Columns: []view.Column{{Key: "host", Label: "Host"}, {Key: "name", Label: "Name"}},
		Rows: []view.Row{
			{ID: "7", Cells: []view.Cell{{Text: "web"}, {Text: "cpu high"}}},
		},
		Pager: []pager.Link{
			{Label: "1", Kind: pager.LinkPage, Page: 0, Enabled: true, Current: true},
			{Label: "2", Kind: pager.LinkPage, Page: 1, Enabled: true},
		},
		Page:       pager.State{CurrentPage: 0, NumRecordsPerPage: 50, NumTotalRecords: 60},
		TotalPages: 2,
	}

	out := renderModel(m, 0)
	assert.Contains(t, out, "TRIGGERS")
	assert.Contains(t, out, "Host")
	assert.Contains(t, out, "cpu high")
	assert.Contains(t, out, "page 1/2")
	assert.Contains(t, out, "60 records")
}

func TestStatusLineUnknownTotal(t *testing.T) {
	m := view.Model{
		Page:        pager.State{CurrentPage: 2, NumRecordsPerPage: 20, NumTotalRecords: pager.Unknown},
		TotalPages:  pager.Unknown,
		AutoRefresh: true,
	}
	assert.Equal(t, "page 3 · 20 per page · auto-refresh on", statusLine(m))
}

func TestRenderModelShowsError(t *testing.T) {
	out := renderModel(view.Model{View: view.KindEvents, Error: "backend error 39"}, 0)
	assert.Contains(t, out, "backend error 39")
}
