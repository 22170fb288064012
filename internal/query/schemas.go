// internal/query/schemas.go
package query

import (
	"strconv"

	"hatoview/internal/hatohol"
)

// Resource names as they appear in request paths.
const (
	ResourceEvent   = "event"
	ResourceTrigger = "trigger"
	ResourceItem    = "item"
	ResourceHistory = "history"
)

// Events is the schema of the event feed. The backend does not count
// events, and it does not narrow them by severity or status, so both are
// applied over the fetched page.
var Events = Schema{
	Resource: ResourceEvent,
	Fields: []Field{
		{Key: KeyLimit, Default: "50", ConfigKey: "num-events-per-page", Integer: true, Min: 1},
		{Key: KeyOffset, Default: "0", Integer: true},
		{Key: KeySortType, Default: "time"},
		{Key: KeySortOrder, Default: strconv.Itoa(hatohol.SortDescending), Integer: true, Min: 1},
		{Key: KeyServerID, Default: "-1", ConfigKey: "events-filter-server"},
		{Key: KeyHostgroupID, Default: "*", ConfigKey: "events-filter-host-group"},
		{Key: KeyHostID, Default: "*", ConfigKey: "events-filter-host"},
		{Key: KeyMinimumSeverity, Default: "0", ConfigKey: "events-filter-minimum-severity", Integer: true, ClientOnly: true},
		{Key: KeyStatus, Default: "-1", ConfigKey: "events-filter-status", Integer: true, Min: -1, ClientOnly: true},
	},
	URLKeys: []string{
		KeyServerID, KeyHostgroupID, KeyHostID,
		KeyLimit, KeyOffset,
		KeyMinimumSeverity, KeyStatus, KeySortOrder,
	},
}

var Triggers = Schema{
	Resource: ResourceTrigger,
	Fields: []Field{
		{Key: KeyLimit, Default: "50", ConfigKey: "num-triggers-per-page", Integer: true, Min: 1},
		{Key: KeyOffset, Default: "0", ConfigKey: "triggers-filter-offset", Integer: true},
		{Key: KeyMinimumSeverity, Default: "0", ConfigKey: "triggers-filter-minimum-severity", Integer: true},
		{Key: KeyStatus, Default: "-1", ConfigKey: "triggers-filter-status", Integer: true, Min: -1},
		{Key: KeyServerID, Default: "-1", ConfigKey: "triggers-filter-server"},
		{Key: KeyHostgroupID, Default: "*", ConfigKey: "triggers-filter-host-group"},
		{Key: KeyHostID, Default: "*", ConfigKey: "triggers-filter-host"},
	},
	URLKeys: []string{
		KeyServerID, KeyHostgroupID, KeyHostID,
		KeyLimit, KeyOffset,
		KeyMinimumSeverity, KeyStatus,
	},
}

// Items is the schema of the latest-value list. The application filter is
// matched against each item's group name after the fetch.
var Items = Schema{
	Resource: ResourceItem,
	Fields: []Field{
		{Key: KeyLimit, Default: "50", ConfigKey: "num-items-per-page", Integer: true, Min: 1},
		{Key: KeyOffset, Default: "0", ConfigKey: "items-filter-offset", Integer: true},
		{Key: KeyServerID, Default: "-1", ConfigKey: "items-filter-server"},
		{Key: KeyHostgroupID, Default: "*", ConfigKey: "items-filter-host-group"},
		{Key: KeyHostID, Default: "*", ConfigKey: "items-filter-host"},
		{Key: KeyAppName, Default: "", ConfigKey: "items-filter-application", ClientOnly: true},
	},
	URLKeys: []string{
		KeyServerID, KeyHostgroupID, KeyHostID,
		KeyLimit, KeyOffset, KeyAppName,
	},
}
