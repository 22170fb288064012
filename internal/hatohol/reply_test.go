package hatohol

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReplyOK(t *testing.T) {
	body := []byte(`{"apiVersion":3,"errorCode":0,"events":[{"unifiedId":1,"serverId":"2","time":1400000000,"type":1,"triggerId":7,"severity":4,"hostId":10,"brief":"down"}],"servers":{"2":{"name":"zbx","type":0,"ipAddress":"10.0.0.1","hosts":{"10":{"name":"web01"}}}}}`)

	reply, err := ParseReply(body)
	require.NoError(t, err)
	assert.Equal(t, APIVersion, reply.APIVersion)
	assert.Equal(t, CodeOK, reply.ErrorCode)
	assert.True(t, reply.Has("events"))
	assert.False(t, reply.Has("triggers"))

	var events EventsReply
	require.NoError(t, reply.Decode(&events, "events", "servers"))
	require.Len(t, events.Events, 1)

	ev := events.Events[0]
	assert.Equal(t, ID("1"), ev.UnifiedID)
	assert.Equal(t, ID("2"), ev.ServerID)
	assert.Equal(t, ID("7"), ev.TriggerID)
	assert.Equal(t, SeverityCritical, ev.Severity)
	assert.Equal(t, "Problem", ev.Type.Label())
	assert.Equal(t, "web01", events.Servers.HostName("2", "10"))
	assert.Equal(t, "Unknown:11", events.Servers.HostName("2", "11"))
	assert.Equal(t, "Unknown:9", events.Servers.NickName("9"))
	assert.Equal(t, "http://10.0.0.1/zabbix/", events.Servers["2"].Location())
}

func TestParseReplyEnvelopeFailures(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status ReplyStatus
	}{
		{"empty", ``, StatusNullOrUndefined},
		{"null", `null`, StatusNullOrUndefined},
		{"not json", `<html>`, StatusNullOrUndefined},
		{"no api version", `{"errorCode":0}`, StatusNotFoundAPIVersion},
		{"wrong api version", `{"apiVersion":2,"errorCode":0}`, StatusUnsupportedAPIVersion},
		{"no error code", `{"apiVersion":3}`, StatusNotFoundErrorCode},
		{"error code not ok", `{"apiVersion":3,"errorCode":28}`, StatusErrorCodeIsNotOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseReply([]byte(tt.body))
			require.Error(t, err)

			var perr *ProtocolError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.status, perr.Status)
		})
	}
}

func TestParseReplyKeepsEnvelopeOnErrorCode(t *testing.T) {
	reply, err := ParseReply([]byte(`{"apiVersion":3,"errorCode":42,"optionMessage":"bad limit"}`))
	require.Error(t, err)
	require.NotNil(t, reply)
	assert.Equal(t, CodeInvalidParameter, reply.ErrorCode)
	assert.Contains(t, err.Error(), "Invalid parameter.")
	assert.Contains(t, err.Error(), "bad limit")
}

func TestRequireNamesMissingField(t *testing.T) {
	reply, err := ParseReply([]byte(`{"apiVersion":3,"errorCode":0}`))
	require.NoError(t, err)

	err = reply.Require("triggers")
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, StatusNotFoundField, perr.Status)
	assert.Equal(t, "triggers", perr.Field)
	assert.Contains(t, err.Error(), `"triggers"`)
}

func TestIsSessionExpired(t *testing.T) {
	_, err := ParseReply([]byte(`{"apiVersion":3,"errorCode":39}`))
	assert.True(t, IsSessionExpired(err))
	assert.True(t, IsSessionExpired(fmt.Errorf("get event: %w", err)))

	_, err = ParseReply([]byte(`{"apiVersion":3,"errorCode":43}`))
	assert.False(t, IsSessionExpired(err))
	assert.False(t, IsSessionExpired(nil))
}

func TestTriggerName(t *testing.T) {
	trig := Trigger{Brief: "CPU load", ExtendedInfo: `{"expandedDescription":"CPU load on web01"}`}
	assert.Equal(t, "CPU load on web01", trig.Name())

	trig.ExtendedInfo = "not json"
	assert.Equal(t, "CPU load", trig.Name())
}

func TestNumericAcceptsStrings(t *testing.T) {
	reply, err := ParseReply([]byte(`{"apiVersion":3,"errorCode":0,"history":[{"clock":10,"ns":500000000,"value":"1.5"},{"clock":11,"ns":0,"value":2}]}`))
	require.NoError(t, err)

	var hist HistoryReply
	require.NoError(t, reply.Decode(&hist, "history"))
	require.Len(t, hist.History, 2)
	assert.Equal(t, Numeric(1.5), hist.History[0].Value)
	assert.Equal(t, Numeric(2), hist.History[1].Value)
}
