package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hatoview/internal/userconfig"
)

func TestBuildDefaults(t *testing.T) {
	q, err := Build(Triggers, Inputs{})
	require.NoError(t, err)

	assert.Equal(t, Query{
		KeyLimit:           "50",
		KeyOffset:          "0",
		KeyMinimumSeverity: "0",
	}, q)
	assert.Equal(t, "trigger?limit=50&minimumSeverity=0&offset=0", q.Path(ResourceTrigger))
}

func TestBuildPrecedence(t *testing.T) {
	in := Inputs{
		UI: map[string]string{KeyServerID: "3"},
		Saved: userconfig.Items{
			"triggers-filter-server": "1",
			"triggers-filter-host":   "12",
			"num-triggers-per-page":  float64(20),
		},
		Page: 2,
	}

	q, err := Build(Triggers, in)
	require.NoError(t, err)
	assert.Equal(t, "3", q[KeyServerID], "UI beats saved")
	assert.Equal(t, "12", q[KeyHostID], "saved beats default")
	assert.Equal(t, "20", q[KeyLimit])
	assert.Equal(t, "40", q[KeyOffset])
}

func TestBuildSentinelOverridesSavedAndIsOmitted(t *testing.T) {
	in := Inputs{
		UI:    map[string]string{KeyServerID: "-1", KeyHostID: "*"},
		Saved: userconfig.Items{"triggers-filter-server": "1", "triggers-filter-host": "12"},
	}

	q, err := Build(Triggers, in)
	require.NoError(t, err)
	assert.NotContains(t, q, KeyServerID)
	assert.NotContains(t, q, KeyHostID)
	assert.NotContains(t, q, KeyStatus)
}

func TestBuildNumericFallback(t *testing.T) {
	in := Inputs{
		UI:    map[string]string{KeyLimit: "abc", KeyMinimumSeverity: "NaN?"},
		Saved: userconfig.Items{"num-triggers-per-page": "30", "triggers-filter-minimum-severity": "x"},
	}

	q, err := Build(Triggers, in)
	require.NoError(t, err)
	assert.Equal(t, "30", q[KeyLimit], "falls back to the saved value")
	assert.Equal(t, "0", q[KeyMinimumSeverity], "falls back to the default")
}

func TestBuildIntegerFallback(t *testing.T) {
	for _, bad := range []string{"2.5", "-5", "0", " "} {
		in := Inputs{
			UI:    map[string]string{KeyLimit: bad},
			Saved: userconfig.Items{"num-triggers-per-page": "30"},
			Page:  1,
		}

		q, err := Build(Triggers, in)
		require.NoError(t, err, "limit %q", bad)
		assert.Equal(t, "30", q[KeyLimit], "limit %q falls back to the saved size", bad)
		assert.Equal(t, "30", q[KeyOffset], "limit %q", bad)
		assert.Equal(t, 30, Triggers.Limit(in))
	}

	q, err := Build(Triggers, Inputs{UI: map[string]string{KeyLimit: "-5"}, Page: 1})
	require.NoError(t, err)
	assert.Equal(t, "50", q[KeyLimit], "falls back to the default")
	assert.Equal(t, "50", q[KeyOffset])
}

func TestBuildIntegerFiltersRejectFractions(t *testing.T) {
	in := Inputs{
		UI: map[string]string{KeyMinimumSeverity: "2.5", KeyStatus: "-2"},
		Saved: userconfig.Items{
			"triggers-filter-minimum-severity": float64(3),
			"triggers-filter-status":           "1",
		},
	}

	q, err := Build(Triggers, in)
	require.NoError(t, err)
	assert.Equal(t, "3", q[KeyMinimumSeverity])
	assert.Equal(t, "1", q[KeyStatus])

	in.UI[KeyStatus] = "-1"
	q, err = Build(Triggers, in)
	require.NoError(t, err)
	assert.NotContains(t, q, KeyStatus, "the sentinel is still accepted and omitted")
}

func TestBuildIsIdempotent(t *testing.T) {
	in := Inputs{
		UI:    map[string]string{KeyServerID: "3", KeyHostgroupID: "7"},
		Saved: userconfig.Items{"num-events-per-page": 25},
		Page:  4,
	}

	a, err := Build(Events, in)
	require.NoError(t, err)
	b, err := Build(Events, in)
	require.NoError(t, err)
	assert.Equal(t, a.Encode(), b.Encode())
	assert.Equal(t, map[string]string{KeyServerID: "3", KeyHostgroupID: "7"}, in.UI, "inputs are not modified")
}

func TestPageSizeChangeResetsOffset(t *testing.T) {
	for _, page := range []int{0, 1, 7} {
		in := Inputs{UI: map[string]string{KeyLimit: "25"}, Page: page}
		q, err := Build(Items, in)
		require.NoError(t, err)
		assert.Equal(t, "25", q[KeyLimit])

		// A page-size change always comes with a reset to page 0.
		in.UI[KeyLimit] = "100"
		in.Page = 0
		q, err = Build(Items, in)
		require.NoError(t, err)
		assert.Equal(t, "0", q[KeyOffset])
	}
}

func TestOffsetWithoutLimit(t *testing.T) {
	_, err := Build(Triggers, Inputs{UI: map[string]string{KeyLimit: "0"}, Page: 3})
	assert.ErrorIs(t, err, ErrOffsetWithoutLimit)

	q, err := Build(Triggers, Inputs{UI: map[string]string{KeyLimit: "0"}})
	require.NoError(t, err)
	assert.NotContains(t, q, KeyLimit)
	assert.NotContains(t, q, KeyOffset)
}

func TestClientOnlyFieldsAreNotSent(t *testing.T) {
	in := Inputs{UI: map[string]string{KeyMinimumSeverity: "3", KeyStatus: "1"}}

	q, err := Build(Events, in)
	require.NoError(t, err)
	assert.NotContains(t, q, KeyMinimumSeverity)
	assert.NotContains(t, q, KeyStatus)
	assert.Equal(t, "time", q[KeySortType])
	assert.Equal(t, "2", q[KeySortOrder])

	assert.Equal(t, map[string]string{KeyMinimumSeverity: "3", KeyStatus: "1"}, ClientFilters(Events, in))
	assert.Equal(t, map[string]string{KeyMinimumSeverity: "0"}, ClientFilters(Events, Inputs{}))
}

func TestChanges(t *testing.T) {
	in := Inputs{
		UI:    map[string]string{KeyServerID: "3", KeyLimit: "20", KeyHostID: "*"},
		Saved: userconfig.Items{"triggers-filter-server": "3", "triggers-filter-host": "9"},
		Page:  2,
	}

	changes := Changes(Triggers, in)
	assert.Equal(t, userconfig.Items{
		"num-triggers-per-page":  20,
		"triggers-filter-offset": 40,
		"triggers-filter-host":   "*",
	}, changes)

	assert.Empty(t, Changes(Triggers, Inputs{}))
}

func TestSeedFromURL(t *testing.T) {
	params := url.Values{
		"serverId": {"2"},
		"hostId":   {"5"},
		"appName":  {"cpu"},
		"unknown":  {"x"},
	}

	assert.Equal(t, map[string]string{KeyServerID: "2", KeyHostID: "5", KeyAppName: "cpu"}, Items.SeedFromURL(params))
	assert.Equal(t, map[string]string{KeyServerID: "2", KeyHostID: "5"}, Triggers.SeedFromURL(params))
}

func TestConfigNames(t *testing.T) {
	assert.Equal(t, []string{
		"num-items-per-page", "items-filter-offset", "items-filter-server",
		"items-filter-host-group", "items-filter-host", "items-filter-application",
	}, Items.ConfigNames())
}

func TestIsSentinel(t *testing.T) {
	assert.True(t, IsSentinel(""))
	assert.True(t, IsSentinel("*"))
	assert.True(t, IsSentinel("-1"))
	assert.False(t, IsSentinel("0"))
	assert.False(t, IsSentinel("web"))
}
