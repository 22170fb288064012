// internal/view/triggers.go
package view

import (
	"net/url"
	"strconv"

	"hatoview/internal/hatohol"
	"hatoview/internal/query"
)

type TriggersAdapter struct{}

func (TriggersAdapter) Kind() Kind               { return KindTriggers }
func (TriggersAdapter) Schema() query.Schema     { return query.Triggers }
func (TriggersAdapter) ServerSortColumn() string { return "" }

func (TriggersAdapter) Columns() []Column {
	return []Column{
		{Key: "server", Label: "Server", Sortable: true},
		{Key: "severity", Label: "Severity", Sortable: true},
		{Key: "status", Label: "Status", Sortable: true},
		{Key: "lastChange", Label: "Last change", Sortable: true},
		{Key: "host", Label: "Host", Sortable: true},
		{Key: "name", Label: "Name", Sortable: true},
	}
}

func (TriggersAdapter) Decode(reply *hatohol.Reply) (Page[hatohol.Trigger], error) {
	var r hatohol.TriggersReply
	if err := reply.Decode(&r, "triggers", "servers"); err != nil {
		return Page[hatohol.Trigger]{}, err
	}
	return Page[hatohol.Trigger]{Records: r.Triggers, Servers: r.Servers, Total: r.TotalNumberOfTriggers}, nil
}

func (TriggersAdapter) Samples([]hatohol.Trigger) []Sample { return nil }

// Keep accepts everything; the backend narrows triggers itself.
func (TriggersAdapter) Keep(hatohol.Trigger, map[string]string) bool { return true }

func (TriggersAdapter) Row(trig hatohol.Trigger, rc RowContext) Row {
	status := strconv.Itoa(int(trig.Status))
	severity := strconv.Itoa(int(trig.Severity))
	severityClass := "severity"
	if trig.Status == hatohol.TriggerStatusProblem {
		severityClass += severity
	}

	events := url.Values{}
	events.Set("serverId", string(trig.ServerID))
	events.Set("triggerId", string(trig.ID))

	return Row{
		ID:       string(trig.ID),
		ServerID: string(trig.ServerID),
		Cells: []Cell{
			{Text: rc.Servers.NickName(trig.ServerID)},
			{Text: trig.Severity.Label(), SortValue: severity, Class: severityClass},
			{Text: trig.Status.Label(), SortValue: status, Class: "status" + status},
			{Text: FormatDate(trig.LastChangeTime), SortValue: strconv.FormatInt(trig.LastChangeTime, 10)},
			{Text: rc.Servers.HostName(trig.ServerID, trig.HostID)},
			{Text: trig.Name(), Link: "events?" + events.Encode()},
		},
	}
}
