package stats

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStatsUpdater(t *testing.T) {
	mux := http.NewServeMux()
	su := NewStatsUpdater(mux)
	assert.NotNil(t, su, "expected StatsUpdater to be non-nil")
	assert.NotNil(t, su.updateChan, "expected updateChan to be initialized")
	handler, pattern := mux.Handler(&http.Request{URL: &url.URL{Path: "/debug/vars"}, Method: http.MethodGet})
	assert.NotNil(t, handler, "expected handler for /debug/vars to be set")
	assert.Equal(t, "GET /debug/vars", pattern, "expected handler to be registered for GET method on /debug/vars")

	for _, name := range defaultMetrics {
		assert.NotNil(t, su.vars.Get(name), "expected %s to be registered", name)
	}
}

func TestStatsUpdater_Counters(t *testing.T) {
	mux := http.NewServeMux()
	su := NewStatsUpdater(mux)
	su.Run()

	su.Incr(Commands)
	su.Incr(Commands)
	su.Incr(ActiveClients)
	su.Decr(ActiveClients)
	su.Add(StrokesApplied, 5)
	su.Incr("Unregistered")
	su.Stop()

	assert.Equal(t, int64(2), su.Value(Commands))
	assert.Equal(t, int64(0), su.Value(ActiveClients))
	assert.Equal(t, int64(5), su.Value(StrokesApplied))
	assert.Equal(t, int64(1), su.Value("Unregistered"), "expected unknown counters to be created on first use")

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug/vars", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.EqualValues(t, 2, body[Commands])
	assert.Contains(t, body, "Uptime")
}

func TestCountCommand(t *testing.T) {
	m := &MockStatsUpdater{}
	defer m.AssertExpectations(t)

	m.On("Incr", Commands).Twice()
	m.On("Incr", CommandFailures).Once()

	CountCommand(m, true)
	CountCommand(m, false)
}
