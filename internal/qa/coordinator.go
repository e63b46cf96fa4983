package qa

import (
	"context"
	"errors"
	"net/http"
	"sync"
)

// OutcomeKind classifies how an ask settled.
type OutcomeKind int

const (
	// OutcomeSuccess carries a decoded AskResponse.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeFailure carries a user-visible message and, when known, a status.
	OutcomeFailure
	// OutcomeCancelled means the ask was superseded by a newer one or the
	// caller gave up; it is never surfaced as an error.
	OutcomeCancelled
)

// Outcome is the single effective result of one Ask invocation.
type Outcome struct {
	Kind     OutcomeKind
	Response *AskResponse
	Message  string
	Status   int
}

type asker interface {
	Ask(ctx context.Context, question, documentText string) (*AskResponse, error)
}

// Coordinator serializes asks against the backend: at most one ask is
// effective at a time, and issuing a new one cancels the pending one. Each ask
// captures an epoch; a settlement whose epoch is no longer current is
// downgraded to Cancelled so a slow, stale response can never be observed as
// Success or Failure after a newer ask was issued.
type Coordinator struct {
	client asker

	mu     sync.Mutex
	epoch  uint64
	cancel context.CancelFunc
}

// NewCoordinator wraps the given client.
func NewCoordinator(client asker) *Coordinator {
	return &Coordinator{client: client}
}

// Ask issues a request for the current question/document, cancelling any ask
// still pending. It blocks until settlement and returns exactly one Outcome.
func (c *Coordinator) Ask(ctx context.Context, question, documentText string) Outcome {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.epoch++
	mine := c.epoch
	askCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	resp, err := c.client.Ask(askCtx, question, documentText)
	outcome := classify(resp, err)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != mine {
		// A newer ask took over while this one was settling.
		return Outcome{Kind: OutcomeCancelled}
	}
	c.cancel = nil
	return outcome
}

func classify(resp *AskResponse, err error) Outcome {
	if err == nil {
		return Outcome{Kind: OutcomeSuccess, Response: resp}
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return Outcome{Kind: OutcomeFailure, Message: apiErr.Message, Status: apiErr.Status}
	}
	if errors.Is(err, context.Canceled) {
		return Outcome{Kind: OutcomeCancelled}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		// Timeout is a backend failure, not a client cancellation; the UI
		// must say so rather than dropping the ask silently.
		return Outcome{Kind: OutcomeFailure, Message: "Backend request timed out", Status: http.StatusBadGateway}
	}
	return Outcome{Kind: OutcomeFailure, Message: err.Error()}
}
