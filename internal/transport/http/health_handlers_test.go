package http

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/vovakirdan/wirehook/internal/proto"
	"github.com/vovakirdan/wirehook/internal/store/sqlite"
)

func contains(s, sub string) bool {
	return strings.Contains(s, sub)
}

func TestHealthLive(t *testing.T) {
	srv := newTestServer(t, createTestStore(t), testConfig())
	resp := srv.get("/health/live")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if got := decode[proto.Health](t, resp); got.Status != "alive" {
		t.Errorf("unexpected body %+v", got)
	}
}

func TestHealthReady(t *testing.T) {
	srv := newTestServer(t, createTestStore(t), testConfig())
	if resp := srv.get("/health/ready"); resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	cfg := testConfig()
	cfg.WebhookSecret = ""
	noSecret := newTestServer(t, createTestStore(t), cfg)
	resp := noSecret.get("/health/ready")
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503 without secret, got %d", resp.Code)
	}
	if !contains(resp.Body.String(), "secret") {
		t.Errorf("expected secret error, got %s", resp.Body.String())
	}
}

func TestHealthReadyWithoutSchema(t *testing.T) {
	st, err := sqlite.NewWithSetup(":memory:", nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer st.Close()

	srv := newTestServer(t, st, testConfig())
	resp := srv.get("/health/ready")
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503 without schema, got %d", resp.Code)
	}

	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if resp := srv.get("/health/ready"); resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 after migrate, got %d", resp.Code)
	}
}

func TestMetricsAndFavicon(t *testing.T) {
	srv := newTestServer(t, createTestStore(t), testConfig())
	srv.postSigned(helloBody)
	srv.get("/nope")

	if resp := srv.get("/favicon.ico"); resp.Code != http.StatusNoContent {
		t.Errorf("expected favicon 204, got %d", resp.Code)
	}

	resp := srv.get("/metrics")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	body := resp.Body.String()
	for _, want := range []string{
		`http_requests_total{path="/webhook",status="200"}`,
		`http_requests_total{path="unmatched",status="404"}`,
		`webhook_requests_total{result="created"}`,
		`http_request_latency_ms_bucket{path="/webhook"`,
	} {
		if !contains(body, want) {
			t.Errorf("expected %s in metrics output", want)
		}
	}
}
