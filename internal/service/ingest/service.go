package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/wirehook/internal/envelope"
	"github.com/vovakirdan/wirehook/internal/signature"
	"github.com/vovakirdan/wirehook/internal/store"
)

// ErrUnauthorized is the error of every rejected signature, whatever the cause.
var ErrUnauthorized = errors.New("invalid signature")

// Outcome is the terminal state of one delivery.
type Outcome string

const (
	OutcomeCreated      Outcome = "created"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeUnauthorized Outcome = "unauthorized"
	OutcomeInvalid      Outcome = "invalid"
	OutcomeError        Outcome = "error"
	// OutcomeTooLarge and OutcomeUnreadable end a delivery before its body is fully read.
	OutcomeTooLarge   Outcome = "too_large"
	OutcomeUnreadable Outcome = "unreadable"
)

// Result describes how a delivery ended.
type Result struct {
	Outcome   Outcome
	MessageID string // empty until the envelope validated
	Err       error  // nil when Accepted
	Latency   time.Duration
}

// Accepted reports whether the sender should see success.
func (r Result) Accepted() bool {
	return r.Outcome == OutcomeCreated || r.Outcome == OutcomeDuplicate
}

// Service runs the webhook write path: signature, envelope, insert.
type Service struct {
	store    store.MessageStore
	secret   []byte
	reporter Reporter
	now      func() time.Time
}

// New creates an ingestion Service. A nil reporter discards outcomes.
func New(st store.MessageStore, secret string, reporter Reporter) *Service {
	if reporter == nil {
		reporter = Reporters{}
	}
	return &Service{
		store:    st,
		secret:   []byte(secret),
		reporter: reporter,
		now:      time.Now,
	}
}

// SecretConfigured reports whether deliveries can be authenticated at all.
func (s *Service) SecretConfigured() bool {
	return len(s.secret) > 0
}

// Ingest authenticates body against sig, validates it and stores the message.
// The signature is checked before the payload is looked at. The outcome is
// reported before Ingest returns.
func (s *Service) Ingest(ctx context.Context, body []byte, sig string) Result {
	start := s.now()
	res := s.ingest(ctx, body, sig)
	res.Latency = s.now().Sub(start)
	s.reporter.Report(ctx, res)
	return res
}

// Reject reports a delivery the transport refused before Ingest could run.
func (s *Service) Reject(ctx context.Context, outcome Outcome, err error) Result {
	res := Result{Outcome: outcome, Err: err}
	s.reporter.Report(ctx, res)
	return res
}

func (s *Service) ingest(ctx context.Context, body []byte, sig string) Result {
	if !signature.Verify(s.secret, body, sig) {
		return Result{Outcome: OutcomeUnauthorized, Err: ErrUnauthorized}
	}

	msg, err := envelope.Validate(body)
	if err != nil {
		return Result{Outcome: OutcomeInvalid, Err: err}
	}

	inserted, err := s.store.Insert(ctx, msg)
	if err != nil {
		return Result{Outcome: OutcomeError, MessageID: msg.ID, Err: fmt.Errorf("store message: %w", err)}
	}

	if inserted == store.InsertDuplicate {
		return Result{Outcome: OutcomeDuplicate, MessageID: msg.ID}
	}
	return Result{Outcome: OutcomeCreated, MessageID: msg.ID}
}
