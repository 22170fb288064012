// internal/view/list.go
package view

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"hatoview/internal/hatohol"
	"hatoview/internal/pager"
	"hatoview/internal/query"
	"hatoview/internal/userconfig"
)

// ListView is the shared engine behind every list. Each request is tagged
// by a Sequencer and a reply is applied only if it is still the latest, so
// a slow reply can never overwrite a newer one.
type ListView[R any] struct {
	adapter Adapter[R]
	schema  query.Schema
	deps    Deps

	mu        sync.Mutex
	filters   *Filterable
	pager     *pager.Pager
	refresh   *AutoRefresher
	seq       Sequencer
	saved     userconfig.Items
	cache     *Page[R]
	lastQuery string
	sort      SortState
	model     Model
	hasModel  bool
	stopped   bool

	ctx    context.Context
	cancel context.CancelFunc
}

func NewListView[R any](adapter Adapter[R], deps Deps) *ListView[R] {
	schema := adapter.Schema()
	if deps.RecordsPerPage > 0 {
		schema = schema.WithDefault(query.KeyLimit, strconv.Itoa(deps.RecordsPerPage))
	}

	v := &ListView[R]{
		adapter: adapter,
		schema:  schema,
		deps:    deps,
		filters: NewFilterable(schema.SeedFromURL(deps.URL)),
		refresh: NewAutoRefresher(deps.Scheduler, deps.ReloadInterval, deps.AutoRefresh),
		saved:   userconfig.Items{},
	}
	v.ctx, v.cancel = context.WithCancel(context.Background())
	v.pager = pager.New(pager.Params{
		NumRecordsPerPage: pager.Int(schema.Limit(v.inputsLocked(0))),
		MaxPagesToShow:    pager.Int(deps.MaxPagesToShow),
	}, nil)

	if col := adapter.ServerSortColumn(); col != "" {
		order := v.resolveLocked(query.KeySortOrder, 0)
		v.sort = SortState{
			Column:     col,
			Descending: order != strconv.Itoa(int(hatohol.SortAscending)),
			Server:     true,
		}
	}
	return v
}

func (v *ListView[R]) Kind() Kind { return v.adapter.Kind() }

func (v *ListView[R]) log() *logrus.Entry {
	return logrus.WithField("view", string(v.adapter.Kind()))
}

// Start reads the saved user config and loads the first page. A config
// read failure falls back to the defaults.
func (v *ListView[R]) Start(ctx context.Context) error {
	var saved userconfig.Items
	if names := v.schema.ConfigNames(); v.deps.Config != nil && len(names) > 0 {
		var err error
		saved, err = v.deps.Config.Get(ctx, names)
		if err != nil {
			v.log().WithError(err).Warn("Failed to read user config, using defaults")
			saved = nil
		}
	}

	v.mu.Lock()
	for k, val := range saved {
		v.saved[k] = val
	}
	limit := v.schema.Limit(v.inputsLocked(0))
	page := 0
	if offset, err := strconv.Atoi(v.resolveLocked(query.KeyOffset, 0)); err == nil && offset > 0 && limit > 0 {
		page = offset / limit
	}
	v.pager.Update(pager.Params{NumRecordsPerPage: pager.Int(limit)})
	v.mu.Unlock()

	return v.Load(ctx, page)
}

// Load fetches page and renders the reply. Stale replies are dropped
// without error.
func (v *ListView[R]) Load(ctx context.Context, page int) error {
	return v.load(ctx, page, 0)
}

// load is Load for a caller that may be outdated. A non-zero timerGen is
// the auto-refresh arming that triggered the call; once any other load has
// cancelled that arming, the call does nothing.
func (v *ListView[R]) load(ctx context.Context, page int, timerGen uint64) error {
	if page < 0 {
		page = 0
	}
	kind := string(v.adapter.Kind())

	v.mu.Lock()
	if v.stopped {
		v.mu.Unlock()
		return ErrNotStarted
	}
	if timerGen != 0 {
		if !v.refresh.Current(timerGen) {
			v.mu.Unlock()
			return nil
		}
		page = v.pager.State().CurrentPage
	}
	v.refresh.Cancel()
	in := v.inputsLocked(page)
	q, err := query.Build(v.schema, in)
	if err != nil {
		v.mu.Unlock()
		return err
	}
	seq := v.seq.Next()
	changes := query.Changes(v.schema, in)
	for k, val := range changes {
		v.saved[k] = val
	}
	v.pager.Update(pager.Params{
		CurrentPage:       pager.Int(page),
		NumRecordsPerPage: pager.Int(v.schema.Limit(in)),
	})
	v.mu.Unlock()

	v.persist(ctx, changes)

	path := q.Path(v.schema.Resource)
	v.log().WithFields(logrus.Fields{
		"sequence": seq,
		"query":    path,
	}).Debug("Loading view")

	reply, err := v.deps.Client.Get(ctx, v.schema.Resource, q.Values())
	var pg Page[R]
	if err == nil {
		pg, err = v.adapter.Decode(reply)
	}

	v.mu.Lock()
	if !v.seq.IsLatest(seq) {
		latest := v.seq.Latest()
		v.mu.Unlock()
		v.deps.Metrics.RecordStaleReply(kind)
		v.log().WithFields(logrus.Fields{
			"sequence": seq,
			"latest":   latest,
		}).Debug("Dropping stale reply")
		return nil
	}
	if err != nil {
		v.model.View = v.adapter.Kind()
		v.model.Columns = v.adapter.Columns()
		v.model.Sequence = seq
		v.model.Query = path
		v.model.Error = err.Error()
		v.hasModel = true
		model := v.model
		v.mu.Unlock()
		v.log().WithError(err).Warn("Failed to load view")
		v.notify(model)
		return err
	}

	v.cache = &pg
	v.lastQuery = path
	model := v.renderLocked(seq)
	if page == 0 && !v.stopped {
		v.refresh.Schedule(v.onTimer)
	}
	v.mu.Unlock()

	v.deps.Metrics.RecordRender(kind, len(model.Rows))
	v.notify(model)
	return nil
}

// Reload fetches the current page again.
func (v *ListView[R]) Reload(ctx context.Context) error {
	v.mu.Lock()
	page := v.pager.State().CurrentPage
	v.mu.Unlock()
	return v.Load(ctx, page)
}

func (v *ListView[R]) onTimer(gen uint64) {
	if err := v.load(v.ctx, 0, gen); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ErrNotStarted) {
		v.log().WithError(err).Debug("Auto-refresh failed")
	}
}

// SelectPage loads page. Pages outside the known range are ignored.
func (v *ListView[R]) SelectPage(ctx context.Context, page int) error {
	v.mu.Lock()
	ok := v.pager.Select(page)
	v.mu.Unlock()
	if !ok {
		return nil
	}
	return v.Load(ctx, page)
}

// SetRecordsPerPage changes the page size and returns to the first page.
func (v *ListView[R]) SetRecordsPerPage(ctx context.Context, n int) error {
	if n <= 0 {
		return ErrInvalidPageSize
	}
	v.mu.Lock()
	v.pager.SetRecordsPerPage(n)
	v.filters.Set(query.KeyLimit, strconv.Itoa(n))
	v.mu.Unlock()
	return v.Load(ctx, 0)
}

// SetFilter changes one filter. Server-side filters refetch the first
// page; client-only filters re-render the cached page.
func (v *ListView[R]) SetFilter(ctx context.Context, key, value string) error {
	f, ok := v.schema.Field(key)
	if !ok || !isFilterKey(key) {
		return ErrUnknownFilter
	}

	v.mu.Lock()
	v.filters.Set(key, value)
	switch key {
	case query.KeyServerID:
		v.resetLocked(query.KeyHostgroupID)
		v.resetLocked(query.KeyHostID)
	case query.KeyHostgroupID:
		v.resetLocked(query.KeyHostID)
	}

	if !f.ClientOnly {
		v.mu.Unlock()
		return v.Load(ctx, 0)
	}

	in := v.inputsLocked(v.pager.State().CurrentPage)
	changes := query.Changes(v.schema, in)
	for k, val := range changes {
		v.saved[k] = val
	}
	model, rendered := v.rerenderLocked()
	v.mu.Unlock()

	v.persist(ctx, changes)
	if rendered {
		v.notify(model)
	}
	return nil
}

// Sort orders the list by column. The server sort column flips the
// backend sort order and refetches; other columns reorder the rendered
// rows and keep that order across refreshes.
func (v *ListView[R]) Sort(ctx context.Context, column string, descending bool) error {
	idx := columnIndex(v.adapter.Columns(), column)
	if idx < 0 || !v.adapter.Columns()[idx].Sortable {
		return ErrUnknownColumn
	}

	if column == v.adapter.ServerSortColumn() {
		order := hatohol.SortAscending
		if descending {
			order = hatohol.SortDescending
		}
		v.mu.Lock()
		v.filters.Set(query.KeySortOrder, strconv.Itoa(int(order)))
		v.sort = SortState{Column: column, Descending: descending, Server: true}
		v.mu.Unlock()
		return v.Load(ctx, 0)
	}

	v.mu.Lock()
	v.sort = SortState{Column: column, Descending: descending}
	model, rendered := v.rerenderLocked()
	v.mu.Unlock()
	if rendered {
		v.notify(model)
	}
	return nil
}

// SetAutoRefresh turns periodic reloading on or off. Turning it on arms
// the timer right away when the first page is shown.
func (v *ListView[R]) SetAutoRefresh(enabled bool) {
	v.mu.Lock()
	v.refresh.SetEnabled(enabled)
	if enabled && v.hasModel && !v.stopped && v.model.Error == "" && v.pager.State().CurrentPage == 0 {
		v.refresh.Schedule(v.onTimer)
	}
	if !v.hasModel {
		v.mu.Unlock()
		return
	}
	v.model.AutoRefresh = v.refresh.Enabled()
	model := v.model
	v.mu.Unlock()
	v.notify(model)
}

func (v *ListView[R]) Model() (Model, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.model, v.hasModel
}

// Stop cancels the pending refresh. In-flight timer callbacks exit on the
// cancelled context.
func (v *ListView[R]) Stop() {
	v.mu.Lock()
	v.stopped = true
	v.refresh.Cancel()
	v.mu.Unlock()
	v.cancel()
}

func (v *ListView[R]) inputsLocked(page int) query.Inputs {
	return query.Inputs{UI: v.filters.UI(), Saved: v.saved, Page: page}
}

func (v *ListView[R]) resolveLocked(key string, page int) string {
	f, ok := v.schema.Field(key)
	if !ok {
		return ""
	}
	return query.Resolve(f, v.inputsLocked(page))
}

func (v *ListView[R]) resetLocked(key string) {
	if f, ok := v.schema.Field(key); ok {
		v.filters.Set(key, f.Default)
	}
}

func (v *ListView[R]) persist(ctx context.Context, changes userconfig.Items) {
	if v.deps.Config == nil || len(changes) == 0 {
		return
	}
	err := v.deps.Config.Store(ctx, changes)
	if err != nil {
		v.log().WithError(err).Warn("Failed to save user config")
	}
}

func (v *ListView[R]) notify(model Model) {
	if v.deps.OnRender != nil {
		v.deps.OnRender(model)
	}
}

// rerenderLocked rebuilds the model from the cached page.
func (v *ListView[R]) rerenderLocked() (Model, bool) {
	if v.cache == nil {
		return Model{}, false
	}
	return v.renderLocked(v.model.Sequence), true
}

// renderLocked builds and installs the model for the cached page: the
// duration map first, then filter candidates, client filters, rows and
// finally the pager.
func (v *ListView[R]) renderLocked(seq uint64) Model {
	pg := v.cache
	now := v.deps.now()

	durations := ComputeDurations(v.adapter.Samples(pg.Records), now)
	v.refreshCandidatesLocked(pg)

	in := v.inputsLocked(v.pager.State().CurrentPage)
	keep := query.ClientFilters(v.schema, in)
	rc := RowContext{Servers: pg.Servers, Durations: durations}
	rows := make([]Row, 0, len(pg.Records))
	for _, rec := range pg.Records {
		if v.adapter.Keep(rec, keep) {
			rows = append(rows, v.adapter.Row(rec, rc))
		}
	}

	columns := v.adapter.Columns()
	if !v.sort.Server && v.sort.Column != "" {
		sortRows(rows, columnIndex(columns, v.sort.Column), v.sort.Descending)
	}

	total := pager.Unknown
	if pg.Total != nil {
		total = *pg.Total
	}
	v.pager.Update(pager.Params{
		NumTotalRecords:  pager.Int(total),
		NumRecordsInPage: pager.Int(len(pg.Records)),
	})

	v.model = Model{
		View:        v.adapter.Kind(),
		Columns:     columns,
		Rows:        rows,
		Filters:     v.filterModelsLocked(in),
		Pager:       v.pager.Render(),
		Page:        v.pager.State(),
		TotalPages:  v.pager.TotalPages(),
		NumFetched:  len(pg.Records),
		AutoRefresh: v.refresh.Enabled(),
		Sort:        v.sort,
		Query:       v.lastQuery,
		Sequence:    seq,
		UpdatedAt:   now,
	}
	v.hasModel = true
	return v.model
}

// refreshCandidatesLocked rebuilds the server, host group, host and
// application candidates from the servers table of the reply. A selection
// that disappeared is reset to its sentinel.
func (v *ListView[R]) refreshCandidatesLocked(pg *Page[R]) {
	set := func(key string, options []Option) {
		f, ok := v.schema.Field(key)
		if !ok {
			return
		}
		selected := v.resolveLocked(key, 0)
		if v.filters.SetCandidates(key, sortedOptions(options), selected, f.Default) {
			v.log().WithFields(logrus.Fields{
				"filter":   key,
				"selected": selected,
			}).Info("Filter selection no longer available, reset")
		}
	}

	servers := make([]Option, 0, len(pg.Servers))
	for id := range pg.Servers {
		servers = append(servers, Option{Value: string(id), Label: pg.Servers.NickName(id)})
	}
	set(query.KeyServerID, servers)

	server, hasServer := pg.Servers[hatohol.ID(v.resolveLocked(query.KeyServerID, 0))]
	var groups, hosts []Option
	if hasServer {
		for id, g := range server.Groups {
			groups = append(groups, Option{Value: string(id), Label: g.Name})
		}
		for id, h := range server.Hosts {
			hosts = append(hosts, Option{Value: string(id), Label: h.Name})
		}
	}
	set(query.KeyHostgroupID, groups)
	set(query.KeyHostID, hosts)

	if _, ok := v.schema.Field(query.KeyAppName); ok {
		apps := make([]Option, len(pg.Applications))
		for i, name := range pg.Applications {
			apps[i] = Option{Value: name, Label: name}
		}
		set(query.KeyAppName, apps)
	}
}

func (v *ListView[R]) filterModelsLocked(in query.Inputs) []Filter {
	var filters []Filter
	for _, f := range v.schema.Fields {
		if !isFilterKey(f.Key) {
			continue
		}
		options := v.filters.Candidates(f.Key)
		switch f.Key {
		case query.KeyMinimumSeverity:
			options = severityOptions()
		case query.KeyStatus:
			options = statusOptions()
		}
		filters = append(filters, Filter{
			Key:      f.Key,
			Selected: query.Resolve(f, in),
			Options:  options,
		})
	}
	return filters
}

func isFilterKey(key string) bool {
	switch key {
	case query.KeyLimit, query.KeyOffset, query.KeySortType, query.KeySortOrder:
		return false
	}
	return true
}

func severityOptions() []Option {
	options := make([]Option, 0, 6)
	for s := hatohol.SeverityUnknown; s <= hatohol.SeverityEmergency; s++ {
		options = append(options, Option{Value: strconv.Itoa(int(s)), Label: s.Label()})
	}
	return options
}

func statusOptions() []Option {
	options := make([]Option, 0, 3)
	for s := hatohol.TriggerStatusOK; s <= hatohol.TriggerStatusUnknown; s++ {
		options = append(options, Option{Value: strconv.Itoa(int(s)), Label: s.Label()})
	}
	return options
}
