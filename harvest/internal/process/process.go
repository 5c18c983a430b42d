// CLAUDE:SUMMARY Hands harvested video references to a downstream transcription/summary service, paced by a token bucket and cached in the store.
// Package process sends harvested references to a downstream
// transcription/summary service and records what comes back.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/hazyhaar/vidharvest/harvest/internal/store"
	"github.com/hazyhaar/vidharvest/harvest/videoref"
	"github.com/hazyhaar/vidharvest/horosafe"
)

// Result is what the downstream service returns for one video.
type Result struct {
	VideoID    string `json:"videoId"`
	Transcript string `json:"transcript"`
	Summary    string `json:"summary"`
}

// Processor turns one reference into a Result.
type Processor interface {
	Process(ctx context.Context, ref videoref.Ref) (Result, error)
}

// HTTPProcessor posts {"link","videoId"} to an endpoint and decodes a Result.
type HTTPProcessor struct {
	endpoint string
	client   *http.Client
	maxBody  int64
}

// HTTPOption configures an HTTPProcessor.
type HTTPOption func(*HTTPProcessor)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption { return func(p *HTTPProcessor) { p.client = c } }

// WithMaxBody caps the response size. Default: 16 MiB.
func WithMaxBody(n int64) HTTPOption { return func(p *HTTPProcessor) { p.maxBody = n } }

// NewHTTPProcessor returns a processor for endpoint. Only http and https
// endpoints are accepted.
func NewHTTPProcessor(endpoint string, timeout time.Duration, opts ...HTTPOption) (*HTTPProcessor, error) {
	if err := horosafe.ValidateAddress(endpoint); err != nil {
		return nil, fmt.Errorf("process: endpoint: %w", err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	p := &HTTPProcessor{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		maxBody:  16 << 20,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Process implements Processor.
func (p *HTTPProcessor) Process(ctx context.Context, ref videoref.Ref) (Result, error) {
	body, err := json.Marshal(map[string]string{"link": ref.String(), "videoId": ref.ID()})
	if err != nil {
		return Result{}, fmt.Errorf("process: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("process: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("process: %s: %w", ref.ID(), err)
	}
	defer resp.Body.Close()

	data, err := horosafe.LimitedReadAll(resp.Body, p.maxBody)
	if err != nil {
		return Result{}, fmt.Errorf("process: read %s: %w", ref.ID(), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("process: %s: status %d", ref.ID(), resp.StatusCode)
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return Result{}, fmt.Errorf("process: decode %s: %w", ref.ID(), err)
	}
	if res.VideoID == "" {
		res.VideoID = ref.ID()
	}
	return res, nil
}

// Recorder stores and recalls processing results.
type Recorder interface {
	SaveProcessed(ctx context.Context, p store.Processed) error
	GetProcessed(ctx context.Context, ref videoref.Ref) (*store.Processed, error)
}

// Job is the outcome for one reference.
type Job struct {
	Ref       videoref.Ref
	Processed store.Processed
	Cached    bool
	Err       error
}

// Dispatcher runs references through a Processor one at a time, paced by a
// token bucket. Results already recorded are returned without calling the
// processor.
type Dispatcher struct {
	proc    Processor
	rec     Recorder
	limiter *rate.Limiter
	logger  *slog.Logger
	now     func() time.Time
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	Rate     float64 // jobs per second; <= 0 means unlimited
	Burst    int
	Recorder Recorder // optional
	Logger   *slog.Logger
}

// NewDispatcher returns a Dispatcher around proc.
func NewDispatcher(proc Processor, cfg DispatcherConfig) *Dispatcher {
	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Dispatcher{
		proc:    proc,
		rec:     cfg.Recorder,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		logger:  cfg.Logger,
		now:     time.Now,
	}
}

// Run processes refs in order. A failed reference does not stop the others;
// cancellation does.
func (d *Dispatcher) Run(ctx context.Context, refs []videoref.Ref) ([]Job, error) {
	jobs := make([]Job, 0, len(refs))
	for _, ref := range refs {
		if d.rec != nil {
			if p, err := d.rec.GetProcessed(ctx, ref); err == nil {
				jobs = append(jobs, Job{Ref: ref, Processed: *p, Cached: true})
				continue
			} else if !errors.Is(err, store.ErrNotFound) {
				d.logger.Warn("process: cache lookup failed", "ref", ref, "error", err)
			}
		}
		if err := d.limiter.Wait(ctx); err != nil {
			return jobs, fmt.Errorf("process: wait: %w", err)
		}

		res, err := d.proc.Process(ctx, ref)
		if err != nil {
			if ctx.Err() != nil {
				return jobs, ctx.Err()
			}
			d.logger.Warn("process: job failed", "ref", ref, "error", err)
			jobs = append(jobs, Job{Ref: ref, Err: err})
			continue
		}
		p := store.Processed{
			Ref:         ref,
			VideoID:     res.VideoID,
			Transcript:  res.Transcript,
			Summary:     res.Summary,
			ProcessedAt: d.now(),
		}
		if d.rec != nil {
			if err := d.rec.SaveProcessed(context.WithoutCancel(ctx), p); err != nil {
				d.logger.Warn("process: record failed", "ref", ref, "error", err)
			}
		}
		d.logger.Info("process: job done", "video_id", p.VideoID)
		jobs = append(jobs, Job{Ref: ref, Processed: p})
	}
	return jobs, nil
}
