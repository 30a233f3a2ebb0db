package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"gregoryjjb/grove/mixing"
)

func newTestServer(t *testing.T) (*httptest.Server, *Solver) {
	t.Helper()

	config := newTestConfig(t, Flags{}, nil, "")
	solver := NewSolver(config.HistorySize())
	srv := httptest.NewServer(NewRouter(config, solver))
	t.Cleanup(srv.Close)

	return srv, solver
}

func postMix(t *testing.T, srv *httptest.Server, contentType, query, body string) *http.Response {
	t.Helper()

	resp, err := http.Post(srv.URL+"/api/mix"+query, contentType, strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeRun(t *testing.T, resp *http.Response) Run {
	t.Helper()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var run Run
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	return run
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMixEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("JSON", func(t *testing.T) {
		resp := postMix(t, srv, "application/json", "", `{"values":[1,2,-3,3,-2,0,4]}`)
		run := decodeRun(t, resp)
		assert.Equal(t, []int64{4, -3, 2}, run.Coordinates)
		assert.Equal(t, int64(3), run.Sum)
		assert.Equal(t, 7, run.Count)
	})

	t.Run("JSONDecrypt", func(t *testing.T) {
		resp := postMix(t, srv, "application/json", "", `{"values":[1,2,-3,3,-2,0,4],"decrypt":true}`)
		run := decodeRun(t, resp)
		assert.Equal(t, int64(1623178306), run.Sum)
		assert.Equal(t, 10, run.Options.Rounds)
	})

	t.Run("JSONOverrides", func(t *testing.T) {
		resp := postMix(t, srv, "application/json", "", `{"values":[1,2,-3,3,-2,0,4],"offsets":[1],"rounds":1}`)
		run := decodeRun(t, resp)
		assert.Equal(t, []int64{3}, run.Coordinates)
	})

	t.Run("PlainText", func(t *testing.T) {
		resp := postMix(t, srv, "text/plain; charset=utf-8", "?decrypt=true", exampleInput)
		run := decodeRun(t, resp)
		assert.Equal(t, int64(1623178306), run.Sum)
	})

	t.Run("BadRequests", func(t *testing.T) {
		tests := []struct {
			name        string
			contentType string
			query       string
			body        string
		}{
			{"MalformedJSON", "application/json", "", `{"values":`},
			{"NoValues", "application/json", "", `{"values":[]}`},
			{"NoSentinel", "application/json", "", `{"values":[1,2,3]}`},
			{"BadRounds", "application/json", "", `{"values":[0,1],"rounds":0}`},
			{"TooManyRounds", "application/json", "", `{"values":[1,2,-3,3,-2,0,4],"rounds":3000000}`},
			{"TooManyRoundsPlain", "text/plain", "?rounds=3000000", exampleInput},
			{"BadLine", "text/plain", "", "1\nfoo\n"},
			{"BadQuery", "text/plain", "?rounds=many", exampleInput},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				resp := postMix(t, srv, tt.contentType, tt.query, tt.body)
				assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			})
		}
	})
}

func TestMixRoundsLimitFromConfig(t *testing.T) {
	config := newTestConfig(t, Flags{}, nil, `max_rounds = 5`)
	srv := httptest.NewServer(NewRouter(config, NewSolver(config.HistorySize())))
	t.Cleanup(srv.Close)

	resp := postMix(t, srv, "application/json", "", `{"values":[1,2,-3,3,-2,0,4],"rounds":5}`)
	assert.Equal(t, 5, decodeRun(t, resp).Options.Rounds)

	resp = postMix(t, srv, "application/json", "", `{"values":[1,2,-3,3,-2,0,4],"rounds":6}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMixStopsWhenRequestCancelled(t *testing.T) {
	config := newTestConfig(t, Flags{}, nil, "")
	solver := NewSolver(config.HistorySize())
	router := NewRouter(config, solver)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	body := `{"values":[1,2,-3,3,-2,0,4],"rounds":1000}`
	req := httptest.NewRequest(http.MethodPost, "/api/mix", strings.NewReader(body)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, solver.Runs())
}

func TestRunsEndpoints(t *testing.T) {
	srv, solver := newTestServer(t)

	run, err := solver.Solve(context.Background(), exampleValues, mixing.DefaultOptions())
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/api/runs")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var runs []Run
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, run.Sum, runs[0].Sum)

	one, err := http.Get(srv.URL + "/api/runs/1")
	require.NoError(t, err)
	defer one.Body.Close()
	assert.Equal(t, run.Coordinates, decodeRun(t, one).Coordinates)

	missing, err := http.Get(srv.URL + "/api/runs/99")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	bad, err := http.Get(srv.URL + "/api/runs/abc")
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestEventsWebsocket(t *testing.T) {
	srv, solver := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/api/events", nil)
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	// The subscription is registered by the handler after the upgrade;
	// wait for it before publishing.
	require.Eventually(t, func() bool {
		return solver.events.Subscribers() == 1
	}, time.Second, 10*time.Millisecond)

	_, err = solver.Solve(context.Background(), exampleValues, mixing.DefaultOptions())
	require.NoError(t, err)

	var ev Event
	require.NoError(t, wsjson.Read(ctx, c, &ev))
	assert.Equal(t, Event{Type: EventRound, RunID: 1, Round: 1, Rounds: 1}, ev)

	require.NoError(t, wsjson.Read(ctx, c, &ev))
	assert.Equal(t, Event{Type: EventDone, RunID: 1, Sum: 3}, ev)
}
