// CLAUDE:SUMMARY Runs one harvest: opens the browser session, drives the navigation machine per address, finalizes the outcome and delivers it to every sink.
// Package harvest is the vidharvest orchestrator. A Harvester opens one
// browser session per run, drives the navigation state machine over every
// requested address in the same tab, and hands the finished RunOutcome to
// its sinks (output files, run history, webhook, stdout).
//
// The navigation flow, the frame traversal and the normalizer live under
// harvest/internal; this package re-exports what callers need.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	"github.com/hazyhaar/vidharvest/harvest/internal/browser"
	"github.com/hazyhaar/vidharvest/harvest/internal/navigate"
	"github.com/hazyhaar/vidharvest/harvest/internal/sink"
	"github.com/hazyhaar/vidharvest/harvest/internal/traverse"
	"github.com/hazyhaar/vidharvest/harvest/outcome"
	"github.com/hazyhaar/vidharvest/harvest/surface"
	"github.com/hazyhaar/vidharvest/harvest/videoref"
	"github.com/hazyhaar/vidharvest/idgen"
)

// deliverTimeout bounds sink delivery once the run itself is over.
const deliverTimeout = time.Minute

// Session is one browser tab owned by a run.
type Session interface {
	Surface() surface.Surface
	Close() error
}

// SessionOpener starts a browser session for one run.
type SessionOpener func(ctx context.Context) (Session, error)

// Harvester runs harvests. Runs are serialised: one Chrome per process.
type Harvester struct {
	cfg    *Config
	logger *slog.Logger
	open   SessionOpener
	sinks  *sink.Router
	store  *Store
	ids    idgen.Generator
	now    func() time.Time

	// slot holds one token while a run owns the browser.
	slot chan struct{}
}

// Option configures a Harvester.
type Option func(*Harvester)

// WithSessionOpener replaces the Chrome-backed session opener.
func WithSessionOpener(fn SessionOpener) Option {
	return func(h *Harvester) { h.open = fn }
}

// WithSinks adds output sinks.
func WithSinks(sinks ...Sink) Option {
	return func(h *Harvester) {
		for _, s := range sinks {
			h.sinks.Add(s)
		}
	}
}

// WithStore records every run in st and serves run history from it.
func WithStore(st *Store) Option {
	return func(h *Harvester) {
		h.store = st
		h.sinks.Add(st)
	}
}

// WithIDGenerator sets the run id generator. Default: idgen.Run.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(h *Harvester) { h.ids = gen }
}

// New creates a Harvester. A nil cfg uses DefaultConfig.
func New(cfg *Config, logger *slog.Logger, opts ...Option) *Harvester {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &Harvester{
		cfg:    cfg,
		logger: logger,
		sinks:  sink.NewRouter(logger),
		ids:    idgen.Run,
		now:    time.Now,
		slot:   make(chan struct{}, 1),
	}
	h.open = h.openBrowser
	for _, o := range opts {
		o(h)
	}
	return h
}

// Store returns the attached run history, or nil.
func (h *Harvester) Store() *Store { return h.store }

// Close closes every sink, the store included.
func (h *Harvester) Close() error { return h.sinks.Close() }

func (h *Harvester) openBrowser(ctx context.Context) (Session, error) {
	b := h.cfg.Browser
	s, err := browser.Open(ctx, browser.Config{
		RemoteURL:        b.Remote,
		Bin:              b.Bin,
		NoSandbox:        b.NoSandbox,
		ResourceBlocking: b.ResourceBlocking,
		Stealth:          browser.ParseStealth(b.Stealth),
		XvfbDisplay:      b.XvfbDisplay,
		ViewportWidth:    b.ViewportWidth,
		ViewportHeight:   b.ViewportHeight,
		Logger:           h.logger,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// RunModuleScrape harvests every address in one browser session, in order,
// so a sign-in on the first address carries over to the next ones.
func (h *Harvester) RunModuleScrape(ctx context.Context, creds *Credentials, addresses []string) outcome.RunOutcome {
	return h.run(ctx, creds, addresses, SelectStrategy)
}

// RunSingleContentScrape harvests one content page and the pages reached
// through its next control, without the sidebar lesson pass.
func (h *Harvester) RunSingleContentScrape(ctx context.Context, creds *Credentials, address string) outcome.RunOutcome {
	return h.run(ctx, creds, []string{address}, func(addr string) Strategy {
		if s := SelectStrategy(addr); s != StrategyModulePaging {
			return s
		}
		return StrategySingleContent
	})
}

// RunLessonChain harvests an authoring share link lesson by lesson. No
// sign-in is attempted.
func (h *Harvester) RunLessonChain(ctx context.Context, address string) outcome.RunOutcome {
	return h.run(ctx, nil, []string{address}, func(string) Strategy { return StrategyLessonChain })
}

func (h *Harvester) run(ctx context.Context, creds *Credentials, addresses []string, pick func(string) Strategy) (out outcome.RunOutcome) {
	if err := h.acquire(ctx); err != nil {
		// Never started: the previous result files and history stay as they are.
		now := h.now()
		out = outcome.RunOutcome{
			ID:         h.ids(),
			Addresses:  addresses,
			Status:     outcome.StatusFailed,
			Reason:     outcome.ReasonCanceled,
			Detail:     err.Error(),
			StartedAt:  now,
			FinishedAt: now,
		}
		if out.Addresses == nil {
			out.Addresses = []string{}
		}
		h.logger.Info("harvest: run canceled before start", "run_id", out.ID, "error", err)
		return out
	}
	defer h.release()

	out = outcome.RunOutcome{
		ID:        h.ids(),
		Addresses: addresses,
		StartedAt: h.now(),
	}
	if out.Addresses == nil {
		out.Addresses = []string{}
	}
	logger := h.logger.With("run_id", out.ID)
	set := videoref.NewSet()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("harvest: run panicked", "panic", r, "stack", string(debug.Stack()))
			out.Status = outcome.StatusFailed
			out.Reason = outcome.ReasonInternal
			out.Detail = fmt.Sprint(r)
		}
		if out.Status == "" {
			out.Status = outcome.StatusSuccess
		}
		out.Links = set.Refs()
		out.FinishedAt = h.now()
		logger.Info("harvest: run finished",
			"status", out.Status, "reason", out.Reason, "links", len(out.Links), "duration", out.Duration())
		h.deliver(ctx, out)
	}()

	fail := func(reason outcome.Reason, err error) {
		out.Status = outcome.StatusFailed
		out.Reason = reason
		out.Detail = err.Error()
	}

	usable := usableAddresses(addresses, logger)
	if len(usable) == 0 {
		fail(outcome.ReasonInvalidInput, errors.New("harvest: no usable address"))
		return out
	}
	strategies := make([]Strategy, len(usable))
	for i, addr := range usable {
		strategies[i] = pick(addr)
	}
	out.Strategy = joinStrategies(strategies)

	if h.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.RunTimeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		fail(outcome.ReasonCanceled, err)
		return out
	}

	sess, err := h.open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			fail(outcome.ReasonCanceled, err)
		} else {
			fail(outcome.ReasonBrowserUnavailable, fmt.Errorf("harvest: open browser: %w", err))
		}
		return out
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("harvest: close browser session", "error", err)
		}
	}()

	s := sess.Surface()
	walker := traverse.New(traverse.Config{
		ShadowHosts: h.cfg.Traversal.ShadowHosts,
		MaxDepth:    h.cfg.Limits.MaxDepth,
		Logger:      logger,
	})
	for i, addr := range usable {
		logger.Info("harvest: address", "address", addr, "strategy", strategies[i])
		m := navigate.New(s, set, strategies[i].plan(addr),
			navigate.WithCredentials(creds),
			navigate.WithSelectors(h.cfg.Selectors),
			navigate.WithTimings(h.cfg.Timeouts),
			navigate.WithLimits(h.cfg.Limits),
			navigate.WithWalker(walker),
			navigate.WithLogger(logger),
		)
		res := m.Run(ctx)
		if res.State == navigate.Failed {
			err := res.Err
			if err == nil {
				err = errors.New("harvest: navigation failed")
			}
			fail(res.Reason, err)
			return out
		}
	}
	return out
}

// acquire waits for the browser slot. It gives up as soon as ctx is done, so
// a caller that went away while queued never starts a run.
func (h *Harvester) acquire(ctx context.Context) error {
	select {
	case h.slot <- struct{}{}:
		if err := ctx.Err(); err != nil {
			h.release()
			return err
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Harvester) release() { <-h.slot }

// deliver sends the outcome to every sink even when the caller's context is
// already canceled.
func (h *Harvester) deliver(ctx context.Context, out outcome.RunOutcome) {
	if h.sinks.Len() == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliverTimeout)
	defer cancel()
	if err := h.sinks.Send(ctx, out); err != nil {
		h.logger.Warn("harvest: deliver outcome", "run_id", out.ID, "error", err)
	}
}

// usableAddresses trims addresses and drops those that are not absolute
// http(s) URLs.
func usableAddresses(addresses []string, logger *slog.Logger) []string {
	var out []string
	for _, a := range addresses {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		u, err := url.Parse(a)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			logger.Warn("harvest: skipping unusable address", "address", a)
			continue
		}
		out = append(out, a)
	}
	return out
}

func joinStrategies(ss []Strategy) string {
	var names []string
	seen := make(map[Strategy]bool)
	for _, s := range ss {
		if !seen[s] {
			seen[s] = true
			names = append(names, string(s))
		}
	}
	return strings.Join(names, ",")
}
