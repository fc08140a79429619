package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vovakirdan/wirehook/internal/metrics"
	"github.com/vovakirdan/wirehook/internal/proto"
	"github.com/vovakirdan/wirehook/internal/store"
)

const helloBody = `{"message_id":"m1","from":"+1","to":"+2","ts":"2024-01-01T00:00:00Z","text":"Hello"}`

func storedCount(t *testing.T, st store.Store) int64 {
	t.Helper()
	_, total, err := st.Scan(context.Background(), store.Filter{}, 1, 0)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	return total
}

func TestWebhookScenario(t *testing.T) {
	srv := newTestServer(t, createTestStore(t), testConfig())

	// Test 1: first delivery is stored
	resp := srv.postSigned(helloBody)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if got := decode[proto.StatusOK](t, resp); got.Status != "ok" {
		t.Errorf("expected status ok, got %q", got.Status)
	}
	if n := storedCount(t, srv.store); n != 1 {
		t.Fatalf("expected 1 stored message, got %d", n)
	}

	// Test 2: redelivery is accepted but not stored twice
	resp = srv.postSigned(helloBody)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for duplicate, got %d: %s", resp.Code, resp.Body.String())
	}
	if n := storedCount(t, srv.store); n != 1 {
		t.Fatalf("expected 1 stored message after duplicate, got %d", n)
	}

	// Test 3: case-insensitive search finds it
	resp = srv.get("/messages?q=hello")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	list := decode[proto.MessageList](t, resp)
	if list.Total != 1 || len(list.Data) != 1 || list.Data[0].MessageID != "m1" {
		t.Fatalf("unexpected list %+v", list)
	}
	if list.Data[0].Text == nil || *list.Data[0].Text != "Hello" {
		t.Errorf("expected text Hello, got %v", list.Data[0].Text)
	}
	if list.Data[0].FromMSISDN != "+1" || list.Data[0].ToMSISDN != "+2" || list.Data[0].TS != "2024-01-01T00:00:00Z" {
		t.Errorf("unexpected message %+v", list.Data[0])
	}

	// Test 4: stats reflect the single message
	stats := decode[proto.Stats](t, srv.get("/stats"))
	if stats.TotalMessages != 1 || stats.SendersCount != 1 {
		t.Errorf("unexpected totals %+v", stats)
	}
	if stats.FirstMessageTS == nil || *stats.FirstMessageTS != "2024-01-01T00:00:00Z" {
		t.Errorf("unexpected first_message_ts %v", stats.FirstMessageTS)
	}
	if stats.LastMessageTS == nil || *stats.LastMessageTS != *stats.FirstMessageTS {
		t.Errorf("expected last_message_ts to equal first, got %v", stats.LastMessageTS)
	}
	if len(stats.MessagesPerSender) != 1 || stats.MessagesPerSender[0] != (proto.SenderCount{FromMSISDN: "+1", Count: 1}) {
		t.Errorf("unexpected messages_per_sender %+v", stats.MessagesPerSender)
	}

	// Outcomes are logged with the request id
	logs := srv.logs.String()
	if !strings.Contains(logs, `"result":"created"`) || !strings.Contains(logs, `"result":"duplicate"`) {
		t.Errorf("expected created and duplicate outcomes in logs, got %s", logs)
	}
	if strings.Contains(logs, testSecret) {
		t.Errorf("secret leaked into logs")
	}
}

func TestWebhookRejectsBadSignatureWithConstantShape(t *testing.T) {
	srv := newTestServer(t, createTestStore(t), testConfig())

	cases := []struct {
		name string
		body string
		sig  string
	}{
		{"missing signature", helloBody, ""},
		{"wrong signature", helloBody, strings.Repeat("0", 64)},
		{"garbage signature", helloBody, "not-hex"},
		{"invalid payload wrong signature", `{"message_id":""}`, "abc"},
		{"not json wrong signature", `nope`, "abc"},
	}

	var first string
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := srv.post(tc.body, tc.sig)
			if resp.Code != http.StatusUnauthorized {
				t.Fatalf("expected status 401, got %d", resp.Code)
			}
			body := resp.Body.String()
			if first == "" {
				first = body
			}
			if body != first {
				t.Errorf("401 body differs: %q vs %q", body, first)
			}
			if got := decode[proto.Error](t, resp); got.Detail != "invalid signature" || len(got.Errors) != 0 {
				t.Errorf("unexpected body %+v", got)
			}
		})
	}

	if n := storedCount(t, srv.store); n != 0 {
		t.Errorf("expected nothing stored, got %d", n)
	}
}

func TestWebhookWithoutSecretIsUnauthorized(t *testing.T) {
	cfg := testConfig()
	cfg.WebhookSecret = ""
	srv := newTestServer(t, createTestStore(t), cfg)

	resp := srv.postSigned(helloBody)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestWebhookValidationError(t *testing.T) {
	srv := newTestServer(t, createTestStore(t), testConfig())

	resp := srv.postSigned(`{"message_id":"m1","from":"12","to":"+2","ts":"2024-01-01T00:00:00+02:00"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", resp.Code, resp.Body.String())
	}
	got := decode[proto.Error](t, resp)
	if got.Detail != "validation error" {
		t.Errorf("unexpected detail %q", got.Detail)
	}
	if len(got.Errors) != 2 || got.Errors[0].Field != "from_msisdn" || got.Errors[1].Field != "ts" {
		t.Errorf("unexpected field errors %+v", got.Errors)
	}
	if n := storedCount(t, srv.store); n != 0 {
		t.Errorf("expected nothing stored, got %d", n)
	}
}

func TestWebhookBodyTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBodyBytes = 32
	srv := newTestServer(t, createTestStore(t), cfg)

	before := testutil.ToFloat64(metrics.WebhookRequests.WithLabelValues("too_large"))

	resp := srv.postSigned(helloBody)
	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", resp.Code)
	}

	if got := testutil.ToFloat64(metrics.WebhookRequests.WithLabelValues("too_large")); got != before+1 {
		t.Errorf("expected too_large counter to grow by 1, got %v -> %v", before, got)
	}
	if !strings.Contains(srv.logs.String(), `"result":"too_large"`) {
		t.Errorf("expected too_large outcome in logs, got %s", srv.logs.String())
	}
	if n := storedCount(t, srv.store); n != 0 {
		t.Errorf("expected nothing stored, got %d", n)
	}
}

func TestWebhookStorageUnavailable(t *testing.T) {
	st := createTestStore(t)
	srv := newTestServer(t, st, testConfig())
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	resp := srv.postSigned(helloBody)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(t, createTestStore(t), testConfig())

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(helloBody))
	req.Header.Set(HeaderRequestID, "caller-id")
	resp := srv.do(req)
	if got := resp.Header().Get(HeaderRequestID); got != "caller-id" {
		t.Errorf("expected echoed request id, got %q", got)
	}
	if !strings.Contains(srv.logs.String(), `"request_id":"caller-id"`) {
		t.Errorf("expected request id in logs, got %s", srv.logs.String())
	}

	resp = srv.get("/health/live")
	if resp.Header().Get(HeaderRequestID) == "" {
		t.Errorf("expected generated request id")
	}
}
