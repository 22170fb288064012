// internal/pager/pager.go
package pager

import (
	"fmt"
	"strconv"
)

const (
	DefaultRecordsPerPage = 50
	DefaultMaxPagesToShow = 10

	// Unknown is the total record count of a feed whose size the backend
	// does not report.
	Unknown = -1
)

// State is the pagination state of one view.
type State struct {
	CurrentPage       int `json:"currentPage"`
	NumRecordsPerPage int `json:"numRecordsPerPage"`
	NumTotalRecords   int `json:"numTotalRecords"`
	MaxPagesToShow    int `json:"maxPagesToShow"`
	// NumRecordsInPage is the record count of the last fetched page. It
	// drives the speculative links when the total is unknown.
	NumRecordsInPage int `json:"numRecordsInPage"`
}

// Params is a partial update. Nil fields are left unchanged.
type Params struct {
	CurrentPage       *int
	NumRecordsPerPage *int
	NumTotalRecords   *int
	MaxPagesToShow    *int
	NumRecordsInPage  *int
}

// Int returns a pointer to v, for building Params.
func Int(v int) *int { return &v }

// SelectFunc is called with the page the caller should fetch.
type SelectFunc func(page int)

// Pager is not safe for concurrent use. Each view owns one and guards it
// with the view's lock.
type Pager struct {
	state        State
	lastDataPage int
	onSelect     SelectFunc
}

func New(params Params, onSelect SelectFunc) *Pager {
	p := &Pager{
		state: State{
			NumRecordsPerPage: DefaultRecordsPerPage,
			NumTotalRecords:   Unknown,
			MaxPagesToShow:    DefaultMaxPagesToShow,
		},
		lastDataPage: -1,
		onSelect:     onSelect,
	}
	p.Update(params)
	return p
}

// Update applies params. Out-of-range values are ignored.
func (p *Pager) Update(params Params) {
	if params.NumRecordsPerPage != nil && *params.NumRecordsPerPage > 0 {
		p.state.NumRecordsPerPage = *params.NumRecordsPerPage
	}
	if params.CurrentPage != nil && *params.CurrentPage >= 0 {
		p.state.CurrentPage = *params.CurrentPage
	}
	if params.NumTotalRecords != nil && *params.NumTotalRecords >= Unknown {
		p.state.NumTotalRecords = *params.NumTotalRecords
	}
	if params.MaxPagesToShow != nil && *params.MaxPagesToShow > 0 {
		p.state.MaxPagesToShow = *params.MaxPagesToShow
	}
	if params.NumRecordsInPage != nil && *params.NumRecordsInPage >= 0 {
		p.state.NumRecordsInPage = *params.NumRecordsInPage
		if p.state.NumRecordsInPage > 0 {
			p.lastDataPage = p.state.CurrentPage
		}
	}
}

func (p *Pager) State() State { return p.state }

// Offset is the record offset of the current page.
func (p *Pager) Offset() int {
	return p.state.CurrentPage * p.state.NumRecordsPerPage
}

// TotalPages returns the number of pages, or Unknown.
func (p *Pager) TotalPages() int {
	if p.state.NumTotalRecords < 0 {
		return Unknown
	}
	if p.state.NumRecordsPerPage <= 0 {
		if p.state.NumTotalRecords > 0 {
			return 1
		}
		return 0
	}
	return (p.state.NumTotalRecords + p.state.NumRecordsPerPage - 1) / p.state.NumRecordsPerPage
}

// PagesRange returns the inclusive window of page numbers to show. The
// window is centered on the current page, then clamped to the known pages.
// With an unknown total the window is only clamped at 0.
func (p *Pager) PagesRange() (first, last int) {
	numPages := p.TotalPages()
	window := p.state.MaxPagesToShow

	first = p.state.CurrentPage - window/2
	if numPages >= 0 && first+window > numPages {
		first = numPages - window
	}
	if first < 0 {
		first = 0
	}

	last = first + window - 1
	if numPages >= 0 && last >= numPages {
		last = numPages - 1
	}
	return first, last
}

// lastPageFull reports whether the last fetch filled a whole page, which is
// the only hint that more records exist when the total is unknown.
func (p *Pager) lastPageFull() bool {
	return p.state.NumRecordsInPage == p.state.NumRecordsPerPage
}

// Select moves to page and asks the caller to fetch it. Pages outside the
// known range are ignored.
func (p *Pager) Select(page int) bool {
	numPages := p.TotalPages()
	if page < 0 || (numPages >= 0 && page >= numPages) {
		return false
	}
	p.state.CurrentPage = page
	if p.onSelect != nil {
		p.onSelect(page)
	}
	return true
}

// SetRecordsPerPage changes the page size, resets to the first page and
// asks the caller to fetch it. Non-positive sizes are ignored.
func (p *Pager) SetRecordsPerPage(n int) bool {
	if n <= 0 {
		return false
	}
	p.state.NumRecordsPerPage = n
	p.state.CurrentPage = 0
	if p.onSelect != nil {
		p.onSelect(0)
	}
	return true
}

// LinkKind identifies the control a Link stands for.
type LinkKind string

const (
	LinkFirst       LinkKind = "first"
	LinkJumpBack    LinkKind = "jump-back"
	LinkPrev        LinkKind = "prev"
	LinkPage        LinkKind = "page"
	LinkNext        LinkKind = "next"
	LinkJumpForward LinkKind = "jump-forward"
	LinkLast        LinkKind = "last"
	LinkReturn      LinkKind = "return"
)

// Link is one rendered pager control.
type Link struct {
	Label   string   `json:"label"`
	Kind    LinkKind `json:"kind"`
	Page    int      `json:"page"`
	Enabled bool     `json:"enabled"`
	Current bool     `json:"current"`

	pager *Pager
}

// Activate selects the link's page. Disabled links do nothing.
func (l Link) Activate() bool {
	if !l.Enabled || l.pager == nil {
		return false
	}
	return l.pager.Select(l.Page)
}

// Render returns the controls in display order: first, jump back, prev,
// page numbers, next, jump forward, last.
func (p *Pager) Render() []Link {
	if p.TotalPages() < 0 {
		return p.renderUnknownTotal()
	}
	return p.renderKnownTotal()
}

func (p *Pager) link(label string, kind LinkKind, page int, enabled bool) Link {
	return Link{Label: label, Kind: kind, Page: page, Enabled: enabled, pager: p}
}

func (p *Pager) pageLinks(first, last int, enabled func(page int) bool) []Link {
	links := make([]Link, 0, last-first+1)
	for i := first; i <= last; i++ {
		l := p.link(strconv.Itoa(i+1), LinkPage, i, enabled(i))
		l.Current = i == p.state.CurrentPage
		links = append(links, l)
	}
	return links
}

func (p *Pager) renderKnownTotal() []Link {
	numPages := p.TotalPages()
	if numPages <= 1 {
		return nil
	}
	cur := p.state.CurrentPage
	window := p.state.MaxPagesToShow
	first, last := p.PagesRange()

	links := []Link{
		p.link("|<", LinkFirst, 0, cur > 0),
		p.link("<<", LinkJumpBack, cur-window, cur >= window),
		p.link("<", LinkPrev, cur-1, cur > 0),
	}
	links = append(links, p.pageLinks(first, last, func(int) bool { return true })...)
	links = append(links,
		p.link(">", LinkNext, cur+1, cur < numPages-1),
		p.link(">>", LinkJumpForward, cur+window, cur < numPages-window),
		p.link(">|", LinkLast, numPages-1, cur != numPages-1),
	)
	return links
}

func (p *Pager) renderUnknownTotal() []Link {
	cur := p.state.CurrentPage
	if p.state.NumRecordsInPage == 0 {
		if cur == 0 || p.lastDataPage < 0 || p.lastDataPage == cur {
			return nil
		}
		label := fmt.Sprintf("No data on this page. Return to page %d", p.lastDataPage+1)
		return []Link{p.link(label, LinkReturn, p.lastDataPage, true)}
	}

	jump := p.state.MaxPagesToShow / 2
	if jump < 1 {
		jump = 1
	}
	full := p.lastPageFull()
	first, last := p.PagesRange()

	links := []Link{
		p.link("|<", LinkFirst, 0, false),
		p.link("<<", LinkJumpBack, cur-jump, cur >= jump),
		p.link("<", LinkPrev, cur-1, cur > 0),
	}
	links = append(links, p.pageLinks(first, last, func(page int) bool {
		return page <= cur || full
	})...)
	links = append(links,
		p.link(">", LinkNext, cur+1, full),
		p.link(">>", LinkJumpForward, cur+jump, full),
		p.link(">|", LinkLast, 0, false),
	)
	return links
}
