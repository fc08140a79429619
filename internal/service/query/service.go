package query

import (
	"context"
	"fmt"

	"github.com/vovakirdan/wirehook/internal/store"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// RangeError reports a query parameter outside its accepted range.
type RangeError struct {
	Param  string
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Param, e.Reason)
}

// ListParams are the inputs of a message listing.
type ListParams struct {
	Limit  int
	Offset int
	From   string
	Since  string
	Q      string
}

// DefaultListParams returns params with the default window and no filters.
func DefaultListParams() ListParams {
	return ListParams{Limit: DefaultLimit}
}

// Validate checks the window and the since bound. Values are never clamped.
func (p ListParams) Validate() error {
	if p.Limit < 1 || p.Limit > MaxLimit {
		return &RangeError{Param: "limit", Reason: fmt.Sprintf("must be between 1 and %d", MaxLimit)}
	}
	if p.Offset < 0 {
		return &RangeError{Param: "offset", Reason: "must be >= 0"}
	}
	if p.Since != "" {
		if _, err := store.ParseTimestamp(p.Since); err != nil {
			return &RangeError{Param: "since", Reason: err.Error()}
		}
	}
	return nil
}

// Page is one window of a listing plus the size of the full matching set.
type Page struct {
	Data   []store.Message
	Total  int64
	Limit  int
	Offset int
}

// Service answers listing and statistics queries.
type Service struct {
	store store.MessageStore
}

// New creates a query Service.
func New(st store.MessageStore) *Service {
	return &Service{store: st}
}

// List validates params and returns the requested page.
func (s *Service) List(ctx context.Context, params ListParams) (Page, error) {
	if err := params.Validate(); err != nil {
		return Page{}, err
	}

	filter := store.Filter{
		FromAddress: params.From,
		Since:       params.Since,
		TextQuery:   params.Q,
	}
	messages, total, err := s.store.Scan(ctx, filter, params.Limit, params.Offset)
	if err != nil {
		return Page{}, fmt.Errorf("list messages: %w", err)
	}

	return Page{Data: messages, Total: total, Limit: params.Limit, Offset: params.Offset}, nil
}

// Stats returns aggregate statistics over all messages.
func (s *Service) Stats(ctx context.Context) (store.Stats, error) {
	stats, err := s.store.Aggregate(ctx)
	if err != nil {
		return store.Stats{}, fmt.Errorf("aggregate messages: %w", err)
	}
	return stats, nil
}
