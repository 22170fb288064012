// internal/view/items.go
package view

import (
	"net/url"
	"sort"
	"strconv"

	"hatoview/internal/hatohol"
	"hatoview/internal/query"
)

// ItemsAdapter renders the latest value of each item.
type ItemsAdapter struct{}

func (ItemsAdapter) Kind() Kind               { return KindItems }
func (ItemsAdapter) Schema() query.Schema     { return query.Items }
func (ItemsAdapter) ServerSortColumn() string { return "" }

func (ItemsAdapter) Columns() []Column {
	return []Column{
		{Key: "server", Label: "Server", Sortable: true},
		{Key: "host", Label: "Host", Sortable: true},
		{Key: "application", Label: "Application", Sortable: true},
		{Key: "brief", Label: "Brief", Sortable: true},
		{Key: "lastCheck", Label: "Last check", Sortable: true},
		{Key: "lastValue", Label: "Last value", Sortable: true},
		{Key: "graph", Label: "Graph"},
	}
}

func (ItemsAdapter) Decode(reply *hatohol.Reply) (Page[hatohol.Item], error) {
	var r hatohol.ItemsReply
	if err := reply.Decode(&r, "items", "servers"); err != nil {
		return Page[hatohol.Item]{}, err
	}

	seen := map[string]bool{}
	var apps []string
	for _, app := range r.Applications {
		if app.Name == "" || seen[app.Name] {
			continue
		}
		seen[app.Name] = true
		apps = append(apps, app.Name)
	}
	sort.Strings(apps)

	return Page[hatohol.Item]{
		Records:      r.Items,
		Servers:      r.Servers,
		Total:        r.TotalNumberOfItems,
		Applications: apps,
	}, nil
}

func (ItemsAdapter) Samples([]hatohol.Item) []Sample { return nil }

func (ItemsAdapter) Keep(item hatohol.Item, filters map[string]string) bool {
	app, ok := filters[query.KeyAppName]
	return !ok || item.ItemGroupName == app
}

func (ItemsAdapter) Row(item hatohol.Item, rc RowContext) Row {
	brief := Cell{Text: item.Brief}
	if server, ok := rc.Servers[item.ServerID]; ok {
		brief.Link = server.ItemGraphLocation(item.ID)
	}

	lastValue := Cell{Text: FormatItemValue(item)}
	graph := Cell{}
	if v, ok := item.NumericValue(); ok {
		lastValue.SortValue = strconv.FormatFloat(v, 'f', -1, 64)
		q := url.Values{}
		q.Set("serverId", string(item.ServerID))
		q.Set("hostId", string(item.HostID))
		q.Set("itemId", string(item.ID))
		graph = Cell{Text: "Graph", Link: "history?" + q.Encode()}
	}

	return Row{
		ID:       string(item.ID),
		ServerID: string(item.ServerID),
		Cells: []Cell{
			{Text: rc.Servers.NickName(item.ServerID)},
			{Text: rc.Servers.HostName(item.ServerID, item.HostID)},
			{Text: item.ItemGroupName},
			brief,
			{Text: FormatDate(item.LastValueTime), SortValue: strconv.FormatInt(item.LastValueTime, 10)},
			lastValue,
			graph,
		},
	}
}

// FormatItemValue renders the last value with its unit.
func FormatItemValue(item hatohol.Item) string {
	if item.Unit == "" || item.LastValue == "" {
		return item.LastValue
	}
	return item.LastValue + " " + item.Unit
}
