// Package outcome defines the result of a harvest run. It is the public
// contract between the orchestrator and every sink (files, store, webhook).
package outcome

import (
	"encoding/json"
	"time"

	"github.com/hazyhaar/vidharvest/harvest/videoref"
)

// Status is the terminal status of a run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Reason classifies why a run failed. Empty on success.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonAuthFailed         Reason = "auth_failed"         // secret field empty after input
	ReasonCanceled           Reason = "canceled"            // caller context done
	ReasonBrowserUnavailable Reason = "browser_unavailable" // session could not be opened
	ReasonInvalidInput       Reason = "invalid_input"       // no usable address
	ReasonInternal           Reason = "internal"            // recovered panic
)

// RunOutcome is produced exactly once per run. A failed run still carries
// every link collected before the failure.
type RunOutcome struct {
	ID         string         `json:"id"`
	Strategy   string         `json:"strategy"`
	Addresses  []string       `json:"addresses"`
	Status     Status         `json:"status"`
	Reason     Reason         `json:"reason,omitempty"`
	Detail     string         `json:"detail,omitempty"`
	Links      []videoref.Ref `json:"links"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// OK reports whether the run succeeded.
func (o RunOutcome) OK() bool { return o.Status == StatusSuccess }

// LinkStrings returns the links as plain strings.
func (o RunOutcome) LinkStrings() []string {
	out := make([]string, len(o.Links))
	for i, l := range o.Links {
		out[i] = string(l)
	}
	return out
}

// Duration returns the wall time of the run.
func (o RunOutcome) Duration() time.Duration {
	if o.FinishedAt.IsZero() {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}

// MarshalJSON keeps Links an array even when no link was found.
func (o RunOutcome) MarshalJSON() ([]byte, error) {
	type plain RunOutcome
	if o.Links == nil {
		o.Links = []videoref.Ref{}
	}
	return json.Marshal(plain(o))
}

// Marshal serialises an outcome to JSON.
func Marshal(o *RunOutcome) ([]byte, error) {
	return json.Marshal(o)
}

// Unmarshal deserialises an outcome from JSON.
func Unmarshal(data []byte) (*RunOutcome, error) {
	var o RunOutcome
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, err
	}
	return &o, nil
}
