// internal/view/events.go
package view

import (
	"strconv"

	"hatoview/internal/hatohol"
	"hatoview/internal/query"
)

// EventsAdapter renders the event feed. The feed has no total count, so it
// pages speculatively.
type EventsAdapter struct{}

func (EventsAdapter) Kind() Kind               { return KindEvents }
func (EventsAdapter) Schema() query.Schema     { return query.Events }
func (EventsAdapter) ServerSortColumn() string { return "time" }

func (EventsAdapter) Columns() []Column {
	return []Column{
		{Key: "server", Label: "Server", Sortable: true},
		{Key: "time", Label: "Time", Sortable: true},
		{Key: "host", Label: "Host", Sortable: true},
		{Key: "brief", Label: "Brief", Sortable: true},
		{Key: "status", Label: "Status", Sortable: true},
		{Key: "severity", Label: "Severity", Sortable: true},
		{Key: "duration", Label: "Duration", Sortable: true},
	}
}

func (EventsAdapter) Decode(reply *hatohol.Reply) (Page[hatohol.Event], error) {
	var r hatohol.EventsReply
	if err := reply.Decode(&r, "events", "servers"); err != nil {
		return Page[hatohol.Event]{}, err
	}
	return Page[hatohol.Event]{Records: r.Events, Servers: r.Servers}, nil
}

func (EventsAdapter) Samples(events []hatohol.Event) []Sample {
	samples := make([]Sample, len(events))
	for i, ev := range events {
		samples[i] = Sample{ServerID: ev.ServerID, TriggerID: ev.TriggerID, Time: ev.Time}
	}
	return samples
}

func (EventsAdapter) Keep(ev hatohol.Event, filters map[string]string) bool {
	if v, ok := filters[query.KeyMinimumSeverity]; ok {
		if min, err := strconv.Atoi(v); err == nil && int(ev.Severity) < min {
			return false
		}
	}
	if v, ok := filters[query.KeyStatus]; ok {
		if status, err := strconv.Atoi(v); err == nil && int(ev.Type) != status {
			return false
		}
	}
	return true
}

func (EventsAdapter) Row(ev hatohol.Event, rc RowContext) Row {
	duration, _ := rc.Durations.Lookup(ev.ServerID, ev.TriggerID, ev.Time)
	status := strconv.Itoa(int(ev.Type))
	severity := strconv.Itoa(int(ev.Severity))

	return Row{
		ID:       string(ev.UnifiedID),
		ServerID: string(ev.ServerID),
		Cells: []Cell{
			{Text: rc.Servers.NickName(ev.ServerID)},
			{Text: FormatDate(ev.Time), SortValue: strconv.FormatInt(ev.Time, 10)},
			{Text: rc.Servers.HostName(ev.ServerID, ev.HostID)},
			{Text: ev.Brief},
			{Text: ev.Type.Label(), SortValue: status, Class: "status" + status},
			{Text: ev.Severity.Label(), SortValue: severity, Class: "severity" + severity},
			{Text: FormatSeconds(duration), SortValue: strconv.FormatInt(duration, 10)},
		},
	}
}
