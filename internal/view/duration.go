// internal/view/duration.go
package view

import (
	"fmt"
	"sort"
	"time"

	"hatoview/internal/hatohol"
)

// Sample is one state change of a trigger.
type Sample struct {
	ServerID  hatohol.ID
	TriggerID hatohol.ID
	Time      int64
}

type durationKey struct {
	serverID  hatohol.ID
	triggerID hatohol.ID
}

// DurationMap maps each state change time of a trigger to how long that
// state lasted, in seconds.
type DurationMap map[durationKey]map[int64]int64

// ComputeDurations groups samples by server and trigger. Each distinct time
// maps to the gap until the next time in its group; the latest maps to the
// time elapsed until now.
func ComputeDurations(samples []Sample, now time.Time) DurationMap {
	groups := map[durationKey][]int64{}
	for _, s := range samples {
		key := durationKey{serverID: s.ServerID, triggerID: s.TriggerID}
		groups[key] = append(groups[key], s.Time)
	}

	nowSec := now.Unix()
	out := make(DurationMap, len(groups))
	for key, times := range groups {
		sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
		uniq := times[:0]
		for i, t := range times {
			if i == 0 || t != times[i-1] {
				uniq = append(uniq, t)
			}
		}

		m := make(map[int64]int64, len(uniq))
		for i, t := range uniq {
			if i+1 < len(uniq) {
				m[t] = uniq[i+1] - t
			} else {
				m[t] = nowSec - t
			}
		}
		out[key] = m
	}
	return out
}

func (m DurationMap) Lookup(serverID, triggerID hatohol.ID, t int64) (int64, bool) {
	d, ok := m[durationKey{serverID: serverID, triggerID: triggerID}][t]
	return d, ok
}

// FormatDate renders a unix time in local time.
func FormatDate(unix int64) string {
	return time.Unix(unix, 0).Local().Format("2006/01/02 15:04:05")
}

// FormatSeconds renders a duration as HH:MM:SS. Hours are not wrapped.
func FormatSeconds(sec int64) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, sec/60%60, sec%60)
}
