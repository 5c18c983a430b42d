package harvest

import (
	"context"
	"errors"

	"github.com/hazyhaar/vidharvest/harvest/internal/process"
	"github.com/hazyhaar/vidharvest/harvest/internal/store"
	"github.com/hazyhaar/vidharvest/harvest/videoref"
)

// Store is the SQLite run history. It is also a Sink.
type Store = store.Store

// RunSummary is one row of the run history listing.
type RunSummary = store.RunSummary

// Processed is a stored transcription result.
type Processed = store.Processed

// ErrNotFound is returned for unknown runs and unprocessed videos.
var ErrNotFound = store.ErrNotFound

// OpenStore opens (or creates) the run history database at path.
func OpenStore(path string) (*Store, error) {
	return store.Open(path)
}

// Processor turns one video reference into a transcript and a summary.
type Processor = process.Processor

// ProcessResult is what a Processor returns for one video.
type ProcessResult = process.Result

// Job is the processing outcome for one reference.
type Job = process.Job

// NewHTTPProcessor posts each reference to endpoint.
func NewHTTPProcessor(cfg *Config) (Processor, error) {
	return process.NewHTTPProcessor(cfg.Processing.Endpoint, cfg.Processing.Timeout)
}

// Process runs links through proc, paced by the processing rate in the
// configuration. Links that do not normalize come back as failed jobs.
// Results are recorded in the harvester's store when one is attached.
func (h *Harvester) Process(ctx context.Context, proc Processor, links []string) ([]Job, error) {
	var (
		refs    []videoref.Ref
		invalid []Job
	)
	for _, l := range links {
		ref, ok := videoref.Normalize(l)
		if !ok {
			invalid = append(invalid, Job{Ref: videoref.Ref(l), Err: errors.New("harvest: not a video link")})
			continue
		}
		refs = append(refs, ref)
	}
	cfg := process.DispatcherConfig{
		Rate:   h.cfg.Processing.Rate,
		Burst:  h.cfg.Processing.Burst,
		Logger: h.logger,
	}
	if h.store != nil {
		cfg.Recorder = h.store
	}
	jobs, err := process.NewDispatcher(proc, cfg).Run(ctx, refs)
	return append(invalid, jobs...), err
}

// Transcript returns the stored processing result for a video id.
func (h *Harvester) Transcript(ctx context.Context, videoID string) (*Processed, error) {
	if h.store == nil {
		return nil, ErrNotFound
	}
	ref, ok := videoref.FromID(videoID)
	if !ok {
		return nil, ErrNotFound
	}
	return h.store.GetProcessed(ctx, ref)
}
