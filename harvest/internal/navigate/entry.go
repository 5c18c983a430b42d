package navigate

import (
	"context"

	"github.com/hazyhaar/vidharvest/harvest/internal/attempt"
	"github.com/hazyhaar/vidharvest/harvest/internal/traverse"
	"github.com/hazyhaar/vidharvest/harvest/surface"
)

// enterCourse activates the course-entry control if one is present. Content
// that renders without a gating control is entered as-is.
func (m *Machine) enterCourse(ctx context.Context) State {
	switch m.plan.Entry {
	case EntryLessonChain:
		m.enterLessonChain(ctx)
	default:
		m.enterLMS(ctx)
	}
	return OnContentPage
}

// enterLMS clicks the first start/resume/review control in document order,
// falling back to the first review host. Hosts with a shadow root are
// activated through it.
func (m *Machine) enterLMS(ctx context.Context) {
	target := firstByText(ctx, m.s, m.sel.EntryCandidates, m.entryLabel)
	if target == nil {
		target = firstMatch(ctx, m.s, m.sel.ReviewHost)
	}
	if target == nil {
		m.logger.Info("navigate: no course entry control, continuing")
		return
	}
	if attempt.Optional(ctx, m.logger, "course-entry", m.tm.Settle, func(ctx context.Context) error {
		return traverse.Activate(ctx, target, m.sel.ShadowTarget)
	}) {
		m.logger.Debug("navigate: course entry activated")
		m.settle(ctx, m.tm.Settle)
		_ = attempt.Pause(ctx, m.tm.EntryPause)
	}
}

// enterLessonChain dismisses cookie consent, then clicks the cover link.
func (m *Machine) enterLessonChain(ctx context.Context) {
	_ = attempt.Pause(ctx, m.tm.ConsentDelay)
	if attempt.Optional(ctx, m.logger, "cookie-consent", m.tm.Settle, func(ctx context.Context) error {
		btn := firstByText(ctx, m.s, m.sel.ConsentButtons, m.consentLabel)
		if btn == nil {
			return surface.ErrNotFound
		}
		return btn.Click(ctx)
	}) {
		m.logger.Debug("navigate: cookie consent accepted")
		_ = attempt.Pause(ctx, m.tm.ConsentPause)
	}

	entered := attempt.Optional(ctx, m.logger, "cover-entry", m.tm.Settle, func(ctx context.Context) error {
		el := firstMatch(ctx, m.s, m.sel.ChainEnrolled)
		if el == nil {
			el = firstMatch(ctx, m.s, m.sel.ChainEntry)
		}
		if el == nil {
			el = firstByText(ctx, m.s, m.sel.EntryCandidates, m.chainEntryLabel)
		}
		if el == nil {
			return surface.ErrNotFound
		}
		return el.Click(ctx)
	})
	if !entered {
		m.logger.Info("navigate: no start/resume control, continuing")
	}
	_ = attempt.Pause(ctx, m.tm.ChainPause)
}
