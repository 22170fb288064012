// internal/view/model.go
package view

import (
	"sort"
	"strconv"
	"time"

	"hatoview/internal/pager"
)

// Column describes one table column.
type Column struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Sortable bool   `json:"sortable"`
}

// Cell is one rendered table cell. SortValue, when set, is what the column
// sorts by instead of the text.
type Cell struct {
	Text      string `json:"text"`
	SortValue string `json:"sortValue,omitempty"`
	Link      string `json:"link,omitempty"`
	Class     string `json:"class,omitempty"`
}

func (c Cell) sortKey() string {
	if c.SortValue != "" {
		return c.SortValue
	}
	return c.Text
}

type Row struct {
	ID       string `json:"id"`
	ServerID string `json:"serverId"`
	Cells    []Cell `json:"cells"`
}

// SortState is the active column sort. Server sorts are carried in the
// query; the others reorder the rendered rows.
type SortState struct {
	Column     string `json:"column,omitempty"`
	Descending bool   `json:"descending"`
	Server     bool   `json:"server"`
}

// Model is the complete rendered state of a view. A new Model is built for
// each reply and swapped in whole.
type Model struct {
	View        Kind         `json:"view"`
	Columns     []Column     `json:"columns"`
	Rows        []Row        `json:"rows"`
	Filters     []Filter     `json:"filters"`
	Pager       []pager.Link `json:"pager"`
	Page        pager.State  `json:"page"`
	TotalPages  int          `json:"totalPages"`
	NumFetched  int          `json:"numFetched"`
	AutoRefresh bool         `json:"autoRefresh"`
	Sort        SortState    `json:"sort"`
	Query       string       `json:"query"`
	Sequence    uint64       `json:"sequence"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	Error       string       `json:"error,omitempty"`
}

// sortRows orders rows by the cell in column idx. Values compare
// numerically when both parse as numbers.
func sortRows(rows []Row, idx int, descending bool) {
	if idx < 0 {
		return
	}
	less := func(a, b Row) bool {
		if idx >= len(a.Cells) || idx >= len(b.Cells) {
			return false
		}
		x, y := a.Cells[idx].sortKey(), b.Cells[idx].sortKey()
		xf, xerr := strconv.ParseFloat(x, 64)
		yf, yerr := strconv.ParseFloat(y, 64)
		if xerr == nil && yerr == nil {
			return xf < yf
		}
		return x < y
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if descending {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}

func columnIndex(columns []Column, key string) int {
	for i, c := range columns {
		if c.Key == key {
			return i
		}
	}
	return -1
}
