package ingest

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirehook/internal/metrics"
)

// Reporter receives the outcome of every delivery.
type Reporter interface {
	Report(ctx context.Context, res Result)
}

// Reporters fans a result out to several reporters in order.
type Reporters []Reporter

func (rs Reporters) Report(ctx context.Context, res Result) {
	for _, r := range rs {
		r.Report(ctx, res)
	}
}

// LogReporter writes one structured line per delivery. The request logger
// from ctx is preferred so the line carries its request_id.
type LogReporter struct {
	Logger *zerolog.Logger
}

func (r LogReporter) Report(ctx context.Context, res Result) {
	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled && r.Logger != nil {
		logger = r.Logger
	}

	var event *zerolog.Event
	switch res.Outcome {
	case OutcomeError:
		event = logger.Error().Err(res.Err)
	case OutcomeUnauthorized, OutcomeInvalid, OutcomeTooLarge, OutcomeUnreadable:
		event = logger.Warn()
		if res.Outcome != OutcomeUnauthorized {
			event = event.Err(res.Err)
		}
	default:
		event = logger.Info()
	}

	if res.MessageID != "" {
		event = event.Str("message_id", res.MessageID)
	}
	event.
		Str("result", string(res.Outcome)).
		Bool("dup", res.Outcome == OutcomeDuplicate).
		Float64("latency_ms", float64(res.Latency.Microseconds())/1000).
		Msg("webhook processed")
}

// MetricsReporter counts deliveries by outcome.
type MetricsReporter struct{}

func (MetricsReporter) Report(_ context.Context, res Result) {
	metrics.ObserveWebhook(string(res.Outcome))
}
