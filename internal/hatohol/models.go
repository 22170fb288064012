// internal/hatohol/models.go
package hatohol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is an opaque identifier. The backend sends ids either as JSON numbers
// or strings; both decode to the same string form.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Host is an entry of a server's host table.
type Host struct {
	Name string `json:"name"`
}

// HostGroup is an entry of a server's host group table.
type HostGroup struct {
	Name string `json:"name"`
}

// Server is a monitoring server as found in the servers lookup table.
type Server struct {
	Name      string               `json:"name"`
	Nickname  string               `json:"nickname"`
	Type      MonitoringSystemType `json:"type"`
	IPAddress string               `json:"ipAddress"`
	Hosts     map[ID]Host          `json:"hosts"`
	Groups    map[ID]HostGroup     `json:"groups"`
}

// ServerMap is the servers lookup table of a reply, keyed by server id.
type ServerMap map[ID]Server

// NickName returns the display name of a server, or "Unknown:<id>".
func (m ServerMap) NickName(serverID ID) string {
	server, ok := m[serverID]
	if !ok {
		return "Unknown:" + string(serverID)
	}
	if server.Nickname != "" {
		return server.Nickname
	}
	return server.Name
}

// HostName returns the name of a host, or "Unknown:<id>".
func (m ServerMap) HostName(serverID, hostID ID) string {
	server, ok := m[serverID]
	if !ok {
		return "Unknown:" + string(hostID)
	}
	host, ok := server.Hosts[hostID]
	if !ok {
		return "Unknown:" + string(hostID)
	}
	return host.Name
}

// Location returns the web UI location of a server, or "" when the server
// type has none.
func (s Server) Location() string {
	switch s.Type {
	case MonitoringSystemZabbix:
		return "http://" + s.IPAddress + "/zabbix/"
	default:
		return ""
	}
}

// ItemGraphLocation returns the server-side graph page of an item.
func (s Server) ItemGraphLocation(itemID ID) string {
	location := s.Location()
	if location == "" {
		return ""
	}
	return location + "history.php?action=showgraph&itemid=" + string(itemID)
}

type Event struct {
	UnifiedID ID            `json:"unifiedId"`
	ServerID  ID            `json:"serverId"`
	Time      int64         `json:"time"`
	Type      EventType     `json:"type"`
	TriggerID ID            `json:"triggerId"`
	Status    TriggerStatus `json:"status"`
	Severity  Severity      `json:"severity"`
	HostID    ID            `json:"hostId"`
	Brief     string        `json:"brief"`
}

type Trigger struct {
	ID             ID            `json:"id"`
	ServerID       ID            `json:"serverId"`
	HostID         ID            `json:"hostId"`
	Status         TriggerStatus `json:"status"`
	Severity       Severity      `json:"severity"`
	LastChangeTime int64         `json:"lastChangeTime"`
	Brief          string        `json:"brief"`
	ExtendedInfo   string        `json:"extendedInfo"`
}

// Name returns the expanded description from extendedInfo when present,
// otherwise the brief.
func (t Trigger) Name() string {
	if t.ExtendedInfo != "" {
		var info struct {
			ExpandedDescription string `json:"expandedDescription"`
		}
		if err := json.Unmarshal([]byte(t.ExtendedInfo), &info); err == nil && info.ExpandedDescription != "" {
			return info.ExpandedDescription
		}
	}
	return t.Brief
}

type Item struct {
	ID            ID     `json:"id"`
	ServerID      ID     `json:"serverId"`
	HostID        ID     `json:"hostId"`
	Brief         string `json:"brief"`
	LastValueTime int64  `json:"lastValueTime"`
	LastValue     string `json:"lastValue"`
	PrevValue     string `json:"prevValue"`
	ItemGroupName string `json:"itemGroupName"`
	Unit          string `json:"unit"`
}

// NumericValue reports the last value as a number, if it is one.
func (i Item) NumericValue() (float64, bool) {
	if i.LastValue == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(i.LastValue, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

type Application struct {
	Name string `json:"name"`
}

// HistoryData is one sample of an item's history.
type HistoryData struct {
	Clock int64   `json:"clock"`
	NS    int64   `json:"ns"`
	Value Numeric `json:"value"`
}

// Numeric decodes a JSON number or a numeric string.
type Numeric float64

func (n *Numeric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid numeric value %q: %w", s, err)
		}
		*n = Numeric(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Numeric(v)
	return nil
}

type EventsReply struct {
	Events  []Event   `json:"events"`
	Servers ServerMap `json:"servers"`
}

type TriggersReply struct {
	Triggers              []Trigger `json:"triggers"`
	Servers               ServerMap `json:"servers"`
	TotalNumberOfTriggers *int      `json:"totalNumberOfTriggers"`
}

type ItemsReply struct {
	Items              []Item        `json:"items"`
	Servers            ServerMap     `json:"servers"`
	Applications       []Application `json:"applications"`
	TotalNumberOfItems *int          `json:"totalNumberOfItems"`
}

type HistoryReply struct {
	History []HistoryData `json:"history"`
}

type LoginReply struct {
	SessionID string `json:"sessionId"`
}

// MutationReply is the payload of POST, PUT and DELETE replies.
type MutationReply struct {
	ID ID `json:"id"`
}
