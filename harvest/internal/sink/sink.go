// Package sink defines output backends for finished harvest runs.
package sink

import (
	"context"

	"github.com/hazyhaar/vidharvest/harvest/outcome"
)

// Sink receives every finished run, successful or not. Implementations
// deliver to files, stdout, a webhook, the run store or an in-process
// callback.
type Sink interface {
	Send(ctx context.Context, run outcome.RunOutcome) error
	Close() error
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
