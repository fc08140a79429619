package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirehook/internal/config"
	"github.com/vovakirdan/wirehook/internal/metrics"
	"github.com/vovakirdan/wirehook/internal/service/ingest"
	"github.com/vovakirdan/wirehook/internal/service/query"
	"github.com/vovakirdan/wirehook/internal/signature"
	"github.com/vovakirdan/wirehook/internal/store"
	"github.com/vovakirdan/wirehook/internal/store/sqlite"
)

const testSecret = "testsecret"

type testServer struct {
	handler http.Handler
	store   store.Store
	logs    *bytes.Buffer
}

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", nil)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func testConfig() *config.Config {
	return &config.Config{
		Addr:              ":0",
		WebhookSecret:     testSecret,
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
		MaxBodyBytes:      1 << 16,
	}
}

// newTestServer wires the full router against st.
func newTestServer(t *testing.T, st store.Store, cfg *config.Config) *testServer {
	t.Helper()

	metrics.Init()

	logs := &bytes.Buffer{}
	logger := zerolog.New(logs)

	reporter := ingest.Reporters{ingest.LogReporter{Logger: &logger}, ingest.MetricsReporter{}}
	deps := Deps{
		Ingest:    ingest.New(st, cfg.WebhookSecret, reporter),
		Query:     query.New(st),
		Readiness: st,
	}

	server := NewServer(deps, cfg, &logger)
	return &testServer{handler: server.Handler, store: st, logs: logs}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	s.handler.ServeHTTP(resp, req)
	return resp
}

func (s *testServer) get(path string) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(http.MethodGet, path, nil))
}

// postSigned sends body with a valid signature.
func (s *testServer) postSigned(body string) *httptest.ResponseRecorder {
	return s.post(body, signature.Sign([]byte(testSecret), []byte(body)))
}

func (s *testServer) post(body, sig string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if sig != "" {
		req.Header.Set(signature.Header, sig)
	}
	return s.do(req)
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(resp.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", resp.Body.String(), err)
	}
	return v
}
