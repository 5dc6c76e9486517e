package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/trust-graph/pkg/csvio"
	"github.com/ritzau/trust-graph/pkg/lens"
	"github.com/ritzau/trust-graph/pkg/metrics"
	"github.com/ritzau/trust-graph/pkg/notify"
	"github.com/ritzau/trust-graph/pkg/scores"
	"github.com/ritzau/trust-graph/pkg/session"
)

type testEnv struct {
	server  *Server
	session *session.Session
	handler http.Handler
}

func newTestEnv(t *testing.T, seed bool) *testEnv {
	t.Helper()

	publisher := NewPublisher()
	t.Cleanup(func() { publisher.Close() })

	surface := lens.NewBroadcastSurface(publisher)
	collector := metrics.NewCollector()
	sess := session.New(session.Options{
		Surface:   surface,
		Publisher: publisher,
		Notifier:  notify.New(time.Hour, publisher),
		Metrics:   collector,
	})
	if seed {
		sess.Seed(context.Background(), session.DemoEdges())
	}

	server := NewServer(sess, surface, publisher, Options{Metrics: collector})
	return &testEnv{server: server, session: sess, handler: server.Handler()}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestAddEdgeEndpoint(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, "POST", "/api/edges", AddEdgeRequest{Source: "A", Target: "B", PositiveWeight: 0.9})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var state session.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Len(t, state.Edges, 1)
	assert.Equal(t, "Edge from A to B added", state.Notification.Message)

	rec = env.do(t, "POST", "/api/edges", AddEdgeRequest{Source: "A", Target: "B", PositiveWeight: 0.1})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Len(t, env.session.Snapshot().Edges, 1)
}

func TestAddEdgeValidation(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		name string
		body any
	}{
		{"missing source", AddEdgeRequest{Target: "B", PositiveWeight: 0.5}},
		{"unknown field", map[string]any{"source": "A", "target": "B", "weight": 1}},
		{"non-numeric weight", map[string]any{"source": "A", "target": "B", "positiveWeight": "high"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, "POST", "/api/edges", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
	assert.Empty(t, env.session.Snapshot().Edges)
}

func TestAddEdgeAcceptsUnboundedWeights(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, "POST", "/api/edges", AddEdgeRequest{Source: "A", Target: "B", PositiveWeight: 1.5})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, "POST", "/api/edges", AddEdgeRequest{Source: "A", Target: "C", NegativeWeight: -0.2})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	edges := env.session.Snapshot().Edges
	require.Len(t, edges, 2)
	assert.Equal(t, 1.5, edges[0].PositiveWeight)
	assert.Equal(t, -0.2, edges[1].NegativeWeight)
}

func TestReferenceAndCompute(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, "POST", "/api/compute", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, "PUT", "/api/reference", ReferenceRequest{Node: "A"})
	require.Equal(t, http.StatusOK, rec.Code)

	var table scores.Table
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &table))
	assert.Equal(t, "A", table.Reference)
	require.NotEmpty(t, table.Entries)
	for i := 1; i < len(table.Entries); i++ {
		assert.GreaterOrEqual(t, table.Entries[i-1].Net, table.Entries[i].Net)
	}

	rec = env.do(t, "POST", "/api/compute", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClickEndpoint(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, "POST", "/api/nodes/C/click", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	state := env.session.Snapshot()
	assert.Equal(t, "C", state.Reference)
	assert.Equal(t, "Reference node set to C", state.Notification.Message)
	assert.Equal(t, "update", state.Decision)
}

func TestClickEndpointEscapedID(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, "POST", "/api/edges", AddEdgeRequest{Source: "org/alice", Target: "bob", PositiveWeight: 0.8})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, "POST", "/api/nodes/org%2Falice/click", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	state := env.session.Snapshot()
	assert.Equal(t, "org/alice", state.Reference)
	assert.Equal(t, "Reference node set to org/alice", state.Notification.Message)
}

func TestExportEndpoint(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, "GET", "/api/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, csvio.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "trust_graph_edges.csv")

	lines := strings.Split(rec.Body.String(), "\n")
	assert.Equal(t, csvio.Header, lines[0])
	assert.Len(t, lines, len(session.DemoEdges())+1)
}

func TestImportMultipart(t *testing.T) {
	env := newTestEnv(t, true)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "graph.csv")
	require.NoError(t, err)
	part.Write([]byte("Source,Target,PositiveWeight,NegativeWeight\nX,Y,0.5,0\nY,Z,abc,0"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/api/import", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ImportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Accepted)
	assert.Equal(t, 1, resp.Skipped)
	assert.Equal(t, "X", resp.Reference)
}

func TestImportRejectsNonCSVFile(t *testing.T) {
	env := newTestEnv(t, true)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "graph.txt")
	require.NoError(t, err)
	part.Write([]byte("Source,Target,PositiveWeight,NegativeWeight\nX,Y,0.5,0"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/api/import", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, env.session.Snapshot().Edges, len(session.DemoEdges()))
}

func TestImportBadHeader(t *testing.T) {
	env := newTestEnv(t, true)
	before := env.session.Snapshot()

	req := httptest.NewRequest("POST", "/api/import", strings.NewReader("Source,Target,NegativeWeight\nA,B,0"))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid CSV format")
	assert.Equal(t, before.Edges, env.session.Snapshot().Edges)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, true)
	env.do(t, "GET", "/api/state", nil)

	rec := env.do(t, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "trust_graph_graph_edges")
	assert.Contains(t, rec.Body.String(), "trust_graph_http_requests_total")
}

func TestStaticIndex(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, "GET", "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vis-network")
}

func TestSubscribeViewSendsCurrentGraph(t *testing.T) {
	env := newTestEnv(t, true)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/api/subscribe/view", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 10)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			if strings.HasPrefix(scanner.Text(), "data: ") {
				lines <- strings.TrimPrefix(scanner.Text(), "data: ")
			}
		}
		close(lines)
	}()

	readEvent := func() map[string]any {
		select {
		case line := <-lines:
			var event map[string]any
			require.NoError(t, json.Unmarshal([]byte(line), &event))
			return event
		case <-time.After(2 * time.Second):
			t.Fatal("no SSE event received")
			return nil
		}
	}

	first := readEvent()
	assert.Equal(t, "rebuild", first["type"])

	// A click changes attributes only and streams an update
	env.do(t, "POST", "/api/nodes/B/click", nil)
	next := readEvent()
	assert.Equal(t, "update", next["type"])
}
