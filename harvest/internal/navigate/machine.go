// CLAUDE:SUMMARY State machine driving sign-in, course entry, content harvesting and next-page advancing for one address.
// Package navigate drives a browser surface through sign-in and course
// content, running the frame traversal at every stable content state.
//
// The machine has exactly one live State. Every optional wait goes through
// attempt.Optional; the only fatal check is the secret-field confirmation
// during sign-in.
package navigate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/hazyhaar/vidharvest/harvest/internal/attempt"
	"github.com/hazyhaar/vidharvest/harvest/internal/traverse"
	"github.com/hazyhaar/vidharvest/harvest/outcome"
	"github.com/hazyhaar/vidharvest/harvest/surface"
	"github.com/hazyhaar/vidharvest/harvest/videoref"
)

// ErrAuth marks an unrecoverable sign-in failure.
var ErrAuth = errors.New("navigate: authentication failed")

// Result is what a machine run leaves behind. Links live in the Set the
// machine was given, not here.
type Result struct {
	State  State
	Reason outcome.Reason
	Err    error
	Trail  []State
	Pages  int
	Added  int
}

// Machine navigates one address. It is single-use.
type Machine struct {
	s      surface.Surface
	set    *videoref.Set
	plan   Plan
	creds  *Credentials
	walker *traverse.Walker
	sel    Selectors
	tm     Timings
	lim    Limits
	logger *slog.Logger

	entryLabel      *regexp.Regexp
	consentLabel    *regexp.Regexp
	chainEntryLabel *regexp.Regexp

	state       State
	trail       []State
	pages       int
	stalls      int
	lessonsDone bool
	reason      outcome.Reason
	err         error
}

// Option configures a Machine.
type Option func(*Machine)

// WithCredentials supplies the sign-in pair.
func WithCredentials(c *Credentials) Option { return func(m *Machine) { m.creds = c } }

// WithSelectors overrides selectors; empty fields keep their defaults.
func WithSelectors(s Selectors) Option {
	return func(m *Machine) { m.sel = s.Merge(DefaultSelectors()) }
}

// WithTimings replaces every wait. Fields are used as given.
func WithTimings(t Timings) Option { return func(m *Machine) { m.tm = t } }

// WithLimits overrides loop bounds; zero fields keep their defaults.
func WithLimits(l Limits) Option { return func(m *Machine) { m.lim = l } }

// WithWalker sets the frame traversal engine.
func WithWalker(w *traverse.Walker) Option { return func(m *Machine) { m.walker = w } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(m *Machine) { m.logger = l } }

// New returns a Machine that will navigate plan.Address on s and add every
// reference it finds to set.
func New(s surface.Surface, set *videoref.Set, plan Plan, opts ...Option) *Machine {
	m := &Machine{
		s:      s,
		set:    set,
		plan:   plan,
		sel:    DefaultSelectors(),
		tm:     DefaultTimings(),
		lim:    DefaultLimits(),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	m.lim.defaults()
	m.logger = m.logger.With("address", plan.Address)
	if m.walker == nil {
		m.walker = traverse.New(traverse.Config{MaxDepth: m.lim.MaxDepth, Logger: m.logger})
	}
	d := DefaultSelectors()
	m.entryLabel = m.compile("entry_label", m.sel.EntryLabel, d.EntryLabel)
	m.consentLabel = m.compile("consent_label", m.sel.ConsentLabel, d.ConsentLabel)
	m.chainEntryLabel = m.compile("chain_entry_label", m.sel.ChainEntryLabel, d.ChainEntryLabel)
	return m
}

func (m *Machine) compile(name, expr, fallback string) *regexp.Regexp {
	re, err := regexp.Compile(expr)
	if err != nil {
		m.logger.Warn("navigate: invalid label pattern, using default", "field", name, "error", err)
		return regexp.MustCompile(fallback)
	}
	return re
}

// Run drives the machine until Done or Failed.
func (m *Machine) Run(ctx context.Context) Result {
	before := m.set.Len()

	if m.plan.Login {
		m.enter(LoggingIn)
	} else {
		m.navigate(ctx)
		m.enter(AwaitingCourseEntry)
	}

	for !m.state.Terminal() {
		if err := ctx.Err(); err != nil {
			m.fail(outcome.ReasonCanceled, err)
			break
		}
		var next State
		switch m.state {
		case LoggingIn:
			next = m.login(ctx)
		case AwaitingCourseEntry:
			next = m.enterCourse(ctx)
		case OnContentPage:
			next = m.harvestPage(ctx)
		case AdvancingToNext:
			next = m.advance(ctx)
		}
		if next == Failed || m.state == Failed {
			if m.state != Failed {
				m.enter(Failed)
			}
			break
		}
		if err := ctx.Err(); err != nil {
			m.fail(outcome.ReasonCanceled, err)
			break
		}
		m.enter(next)
	}

	res := Result{
		State:  m.state,
		Reason: m.reason,
		Err:    m.err,
		Trail:  append([]State(nil), m.trail...),
		Pages:  m.pages,
		Added:  m.set.Len() - before,
	}
	m.logger.Info("navigate: finished", "state", m.state, "pages", m.pages, "added", res.Added)
	return res
}

func (m *Machine) enter(s State) {
	if len(m.trail) > 0 {
		m.logger.Debug("navigate: transition", "from", m.state, "to", s)
	}
	m.state = s
	m.trail = append(m.trail, s)
}

func (m *Machine) fail(reason outcome.Reason, err error) State {
	m.reason = reason
	m.err = err
	if m.state != Failed {
		m.enter(Failed)
	}
	m.logger.Warn("navigate: run failed", "reason", reason, "error", err)
	return Failed
}

// navigate loads the plan's address. A timeout is treated as loaded.
func (m *Machine) navigate(ctx context.Context) {
	attempt.Optional(ctx, m.logger, "navigate", m.tm.Navigation, func(ctx context.Context) error {
		return m.s.Navigate(ctx, m.plan.Address)
	})
}

// click waits for selector and clicks the first match.
func (m *Machine) click(ctx context.Context, selector string, timeout, settle time.Duration) error {
	el, err := m.s.WaitSelector(ctx, selector, timeout)
	if err != nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("navigate: click %s: %w", selector, err)
	}
	if settle > 0 {
		m.settle(ctx, settle)
	}
	return nil
}

// settle waits for the surface to go quiet; a timeout is treated as settled.
func (m *Machine) settle(ctx context.Context, timeout time.Duration) {
	attempt.Optional(ctx, m.logger, "settle", timeout, func(ctx context.Context) error {
		return m.s.WaitSettle(ctx, timeout)
	})
}

// firstByText returns the first element matching selector, in document
// order, whose whitespace-collapsed text matches label.
func firstByText(ctx context.Context, s surface.Surface, selector string, label *regexp.Regexp) surface.Element {
	els, err := s.QueryAll(ctx, selector)
	if err != nil {
		return nil
	}
	for _, el := range els {
		txt, err := el.Text(ctx)
		if err != nil {
			continue
		}
		if label.MatchString(strings.Join(strings.Fields(txt), " ")) {
			return el
		}
	}
	return nil
}

func firstMatch(ctx context.Context, s surface.Surface, selector string) surface.Element {
	els, err := s.QueryAll(ctx, selector)
	if err != nil || len(els) == 0 {
		return nil
	}
	return els[0]
}
