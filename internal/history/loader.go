// internal/history/loader.go
package history

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"hatoview/internal/hatohol"
	"hatoview/internal/query"
)

const (
	DefaultSpan = 6 * time.Hour

	// MaxRecordsPerRequest is the backend's batch cap. A full batch means
	// more history may follow.
	MaxRecordsPerRequest = 1000
)

// Getter is the part of the transport the loader needs.
type Getter interface {
	Get(ctx context.Context, path string, query url.Values) (*hatohol.Reply, error)
}

// Query selects one item's history. Times are unix seconds; zero means
// unset.
type Query struct {
	ServerID  hatohol.ID `json:"serverId"`
	HostID    hatohol.ID `json:"hostId"`
	ItemID    hatohol.ID `json:"itemId"`
	BeginTime int64      `json:"beginTime,omitempty"`
	EndTime   int64      `json:"endTime,omitempty"`
}

func (q Query) itemValues() url.Values {
	v := url.Values{}
	v.Set(query.KeyServerID, string(q.ServerID))
	v.Set(query.KeyHostID, string(q.HostID))
	v.Set("itemId", string(q.ItemID))
	return v
}

func (q Query) values() url.Values {
	v := q.itemValues()
	if q.BeginTime != 0 {
		v.Set(query.KeyBeginTime, strconv.FormatInt(q.BeginTime, 10))
	}
	if q.EndTime != 0 {
		v.Set(query.KeyEndTime, strconv.FormatInt(q.EndTime, 10))
	}
	return v
}

func (q Query) String() string {
	return fmt.Sprintf("server %s, host %s, item %s", q.ServerID, q.HostID, q.ItemID)
}

// Point is one plotted sample. X is unix time in milliseconds.
type Point struct {
	X int64   `json:"x"`
	Y float64 `json:"y"`
}

type ItemCountError struct {
	Query Query
	Count int
}

func (e *ItemCountError) Error() string {
	if e.Count == 0 {
		return "no such item: " + e.Query.String()
	}
	return fmt.Sprintf("too many items (%d) found for %s", e.Count, e.Query)
}

type Options struct {
	Client      Getter
	Query       Query
	DefaultSpan time.Duration
	Clock       func() time.Time
}

// Loader fetches an item's history incrementally. Each Load continues from
// the last point it holds. Loader is not safe for concurrent use.
type Loader struct {
	client      Getter
	clock       func() time.Time
	query       Query
	defaultSpan int64

	item      *hatohol.Item
	servers   hatohol.ServerMap
	points    []Point
	lastQuery Query
}

func NewLoader(opts Options) *Loader {
	span := opts.DefaultSpan
	if span <= 0 {
		span = DefaultSpan
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Loader{
		client:      opts.Client,
		clock:       clock,
		query:       opts.Query,
		defaultSpan: int64(span / time.Second),
	}
}

// Load fetches the item on first use, then history batches until a batch
// comes back short.
func (l *Loader) Load(ctx context.Context) ([]Point, error) {
	if l.item == nil {
		if err := l.loadItem(ctx); err != nil {
			return nil, err
		}
	}

	for {
		q := l.historyQuery()
		reply, err := l.client.Get(ctx, query.ResourceHistory, q.values())
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
		var r hatohol.HistoryReply
		if err := reply.Decode(&r, "history"); err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}

		l.append(r.History)
		l.trim()

		logrus.WithFields(logrus.Fields{
			"item":       l.query.ItemID,
			"batch":      len(r.History),
			"points":     len(l.points),
			"begin_time": q.BeginTime,
			"end_time":   q.EndTime,
		}).Debug("Loaded history batch")

		if len(r.History) < MaxRecordsPerRequest {
			break
		}
	}
	return l.Points(), nil
}

func (l *Loader) loadItem(ctx context.Context) error {
	reply, err := l.client.Get(ctx, query.ResourceItem, l.query.itemValues())
	if err != nil {
		return fmt.Errorf("load item: %w", err)
	}
	var r hatohol.ItemsReply
	if err := reply.Decode(&r, "items"); err != nil {
		return fmt.Errorf("load item: %w", err)
	}
	if len(r.Items) != 1 {
		return &ItemCountError{Query: l.query, Count: len(r.Items)}
	}
	l.item = &r.Items[0]
	l.servers = r.Servers
	return nil
}

// historyQuery skips what is already loaded and fills in a missing range
// from the time span.
func (l *Loader) historyQuery() Query {
	q := l.query
	if n := len(l.points); n > 0 {
		q.BeginTime = l.points[n-1].X/1000 + 1
	}
	if q.EndTime == 0 {
		q.EndTime = l.clock().Unix()
	}
	if q.BeginTime == 0 {
		q.BeginTime = q.EndTime - l.TimeSpan()
	}
	l.lastQuery = q
	return q
}

func (l *Loader) append(data []hatohol.HistoryData) {
	for _, d := range data {
		l.points = append(l.points, Point{
			X: d.Clock*1000 + d.NS/1000000,
			Y: float64(d.Value),
		})
	}
}

// trim drops points that fell out of the window, keeping the last one
// before it so the line still reaches the left edge.
func (l *Loader) trim() {
	begin := (l.lastQuery.EndTime - l.TimeSpan()) * 1000
	for len(l.points) > 1 && l.points[0].X < begin && l.points[1].X <= begin {
		l.points = l.points[1:]
	}
}

// SetTimeRange changes the window. Zero leaves that end open. When both
// ends are given, their distance becomes the default span. Unless keep is
// set the loaded points are discarded.
func (l *Loader) SetTimeRange(begin, end int64, keep bool) {
	l.query.BeginTime = begin
	l.query.EndTime = end
	if begin != 0 && end != 0 {
		l.defaultSpan = end - begin
	}
	if !keep {
		l.points = nil
	}
}

// TimeSpan is the window length in seconds.
func (l *Loader) TimeSpan() int64 {
	if l.query.BeginTime != 0 && l.query.EndTime != 0 {
		return l.query.EndTime - l.query.BeginTime
	}
	return l.defaultSpan
}

func (l *Loader) Item() (hatohol.Item, bool) {
	if l.item == nil {
		return hatohol.Item{}, false
	}
	return *l.item, true
}

func (l *Loader) Servers() hatohol.ServerMap { return l.servers }

// Points returns a copy of the loaded points.
func (l *Loader) Points() []Point {
	out := make([]Point, len(l.points))
	copy(out, l.points)
	return out
}

// LastQuery is the history query most recently sent.
func (l *Loader) LastQuery() Query { return l.lastQuery }
