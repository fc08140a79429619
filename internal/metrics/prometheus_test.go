package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	require.NotPanics(t, func() {
		Init()
		Init()
	})
}

func TestObserveWebhookConcurrent(t *testing.T) {
	before := testutil.ToFloat64(WebhookRequests.WithLabelValues("created"))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ObserveWebhook("created")
		}()
	}
	wg.Wait()

	require.Equal(t, before+50, testutil.ToFloat64(WebhookRequests.WithLabelValues("created")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	Init()
	ObserveHTTP("/webhook", http.StatusOK, 3*time.Millisecond)
	ObserveWebhook("duplicate")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	require.True(t, strings.Contains(body, `http_requests_total{path="/webhook",status="200"}`), body)
	require.True(t, strings.Contains(body, `http_request_latency_ms_bucket{path="/webhook"`), body)
	require.True(t, strings.Contains(body, `webhook_requests_total{result="duplicate"}`), body)
}
