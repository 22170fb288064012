// internal/view/capabilities.go
package view

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"hatoview/internal/query"
)

// Sequencer tags requests with increasing numbers so that a reply can be
// checked against the latest request at apply time.
type Sequencer struct {
	latest atomic.Uint64
}

func (s *Sequencer) Next() uint64 {
	return s.latest.Add(1)
}

func (s *Sequencer) IsLatest(seq uint64) bool {
	return s.latest.Load() == seq
}

func (s *Sequencer) Latest() uint64 {
	return s.latest.Load()
}

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler creates timers. Tests substitute a manual one.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemScheduler runs callbacks on real timers.
var SystemScheduler Scheduler = systemScheduler{}

// AutoRefresher owns the single timer slot of a view. Scheduling replaces
// any pending timer, so refresh cycles never overlap. Each arming gets a
// generation number; a callback that already fired when its timer was
// replaced or cancelled finds its generation outdated.
type AutoRefresher struct {
	mu        sync.Mutex
	scheduler Scheduler
	interval  time.Duration
	enabled   bool
	timer     Timer
	gen       uint64
}

func NewAutoRefresher(scheduler Scheduler, interval time.Duration, enabled bool) *AutoRefresher {
	if scheduler == nil {
		scheduler = SystemScheduler
	}
	return &AutoRefresher{scheduler: scheduler, interval: interval, enabled: enabled}
}

func (a *AutoRefresher) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled && a.interval > 0
}

// SetEnabled turns auto-refresh on or off. Turning it off cancels the
// pending timer.
func (a *AutoRefresher) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
	if !enabled {
		a.stopLocked()
	}
}

// Schedule arms the timer with fn, replacing any pending one. fn receives
// the generation it was armed with. It does nothing while disabled.
func (a *AutoRefresher) Schedule(fn func(gen uint64)) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
	if !a.enabled || a.interval <= 0 {
		return false
	}
	gen := a.gen
	a.timer = a.scheduler.AfterFunc(a.interval, func() { fn(gen) })
	return true
}

// Current reports whether gen is the live arming, i.e. nothing cancelled
// or replaced it since.
func (a *AutoRefresher) Current(gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timer != nil && a.gen == gen
}

func (a *AutoRefresher) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

// Pending reports whether a timer is armed.
func (a *AutoRefresher) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timer != nil
}

func (a *AutoRefresher) stopLocked() {
	a.gen++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// Option is one filter candidate.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Filter is a filter control as presented to the user.
type Filter struct {
	Key      string   `json:"key"`
	Selected string   `json:"selected"`
	Options  []Option `json:"options"`
}

// Filterable holds the UI filter state of a view and the candidate lists
// last offered for each filter.
type Filterable struct {
	ui         map[string]string
	candidates map[string][]Option
}

func NewFilterable(seed map[string]string) *Filterable {
	ui := make(map[string]string, len(seed))
	for k, v := range seed {
		ui[k] = v
	}
	return &Filterable{ui: ui, candidates: map[string][]Option{}}
}

func (f *Filterable) Set(key, value string) {
	f.ui[key] = value
}

func (f *Filterable) Value(key string) (string, bool) {
	v, ok := f.ui[key]
	return v, ok
}

// UI returns a copy of the UI state.
func (f *Filterable) UI() map[string]string {
	out := make(map[string]string, len(f.ui))
	for k, v := range f.ui {
		out[k] = v
	}
	return out
}

// SetCandidates replaces the candidates of key. If selected is no longer
// among them, the filter is reset to sentinel and true is returned.
func (f *Filterable) SetCandidates(key string, options []Option, selected, sentinel string) bool {
	f.candidates[key] = options
	if query.IsSentinel(selected) {
		return false
	}
	for _, o := range options {
		if o.Value == selected {
			return false
		}
	}
	f.ui[key] = sentinel
	return true
}

func (f *Filterable) Candidates(key string) []Option {
	return f.candidates[key]
}

// sortedOptions orders options by label, then value.
func sortedOptions(options []Option) []Option {
	sort.SliceStable(options, func(i, j int) bool {
		if options[i].Label != options[j].Label {
			return options[i].Label < options[j].Label
		}
		return options[i].Value < options[j].Value
	})
	return options
}
