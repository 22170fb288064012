package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"hatoview/internal/pager"
	"hatoview/internal/view"
)

const pageSizeStep = 10

type renderMsg view.Model

type errMsg struct{ err error }

type ui struct {
	ctx     context.Context
	view    view.View
	page    int
	renders <-chan view.Model

	model  view.Model
	loaded bool
	err    error
	width  int
}

func newUI(ctx context.Context, v view.View, page int, renders <-chan view.Model) *ui {
	return &ui{ctx: ctx, view: v, page: page, renders: renders}
}

func (u *ui) Init() tea.Cmd {
	return tea.Batch(u.do(func() error { return openPage(u.ctx, u.view, u.page) }), u.waitRender())
}

// do runs fn off the event loop. View calls fire the render callback, which
// must never run inside Update.
func (u *ui) do(fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (u *ui) waitRender() tea.Cmd {
	return func() tea.Msg {
		m, ok := <-u.renders
		if !ok {
			return nil
		}
		return renderMsg(m)
	}
}

func (u *ui) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case renderMsg:
		u.model = view.Model(msg)
		u.loaded = true
		u.err = nil
		return u, u.waitRender()

	case errMsg:
		u.err = msg.err
		return u, nil

	case tea.WindowSizeMsg:
		u.width = msg.Width
		return u, nil

	case tea.KeyMsg:
		return u.handleKey(msg)
	}
	return u, nil
}

func (u *ui) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return u, tea.Quit
	case "right", "l", "n":
		return u, u.follow(pager.LinkNext)
	case "left", "h", "p":
		return u, u.follow(pager.LinkPrev)
	case "home", "g":
		return u, u.follow(pager.LinkFirst)
	case "end", "G":
		return u, u.follow(pager.LinkLast)
	case "+":
		return u, u.resize(pageSizeStep)
	case "-":
		return u, u.resize(-pageSizeStep)
	case "r":
		return u, u.do(func() error { return u.view.Reload(u.ctx) })
	case "a":
		enabled := !u.model.AutoRefresh
		return u, u.do(func() error {
			u.view.SetAutoRefresh(enabled)
			return nil
		})
	}
	return u, nil
}

// follow activates the first enabled pager link of kind.
func (u *ui) follow(kind pager.LinkKind) tea.Cmd {
	for _, link := range u.model.Pager {
		if link.Kind == kind && link.Enabled {
			page := link.Page
			return u.do(func() error { return u.view.SelectPage(u.ctx, page) })
		}
	}
	return nil
}

func (u *ui) resize(delta int) tea.Cmd {
	if !u.loaded {
		return nil
	}
	n := u.model.Page.NumRecordsPerPage + delta
	if n < 1 {
		n = 1
	}
	return u.do(func() error { return u.view.SetRecordsPerPage(u.ctx, n) })
}

func (u *ui) View() string {
	if !u.loaded {
		if u.err != nil {
			return errorStyle.Render("Error: "+u.err.Error()) + "\n\n" + helpStyle.Render("q quit")
		}
		return "Loading...\n"
	}
	out := renderModel(u.model, u.width)
	if u.err != nil {
		out += "\n" + errorStyle.Render("Error: "+u.err.Error())
	}
	return out + "\n" + helpStyle.Render("←/→ page  home/end first/last  +/- page size  r reload  a auto-refresh  q quit")
}
