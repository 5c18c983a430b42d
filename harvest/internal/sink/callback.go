package sink

import (
	"context"

	"github.com/hazyhaar/vidharvest/harvest/outcome"
)

// RunFunc is called for each finished run.
type RunFunc func(ctx context.Context, run outcome.RunOutcome) error

// Callback delivers runs via a Go function call, for embedders that want
// the outcome in-process.
type Callback struct {
	fn RunFunc
}

// NewCallback creates a Callback sink. A nil fn drops every run.
func NewCallback(fn RunFunc) *Callback { return &Callback{fn: fn} }

func (c *Callback) Send(ctx context.Context, run outcome.RunOutcome) error {
	if c.fn != nil {
		return c.fn(ctx, run)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
