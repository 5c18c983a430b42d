package navigate

import (
	"context"

	"github.com/hazyhaar/vidharvest/harvest/internal/attempt"
)

// advance follows the next control. No control, the page limit reached, or
// repeated clicks that leave the location unchanged all end the run.
func (m *Machine) advance(ctx context.Context) State {
	if m.pages >= m.lim.MaxPages {
		m.logger.Warn("navigate: page limit reached", "pages", m.pages)
		return Done
	}
	next := firstMatch(ctx, m.s, m.sel.Next)
	if next == nil {
		m.logger.Info("navigate: no next control, done", "pages", m.pages)
		return Done
	}

	before, _ := m.s.Location(ctx)
	if href, ok, _ := next.Attr(ctx, "href"); ok {
		m.logger.Debug("navigate: advancing", "href", href)
	}
	if !attempt.Optional(ctx, m.logger, "next", m.tm.NextSettle, next.Click) {
		m.logger.Info("navigate: next control unusable, done")
		return Done
	}
	m.settle(ctx, m.tm.NextSettle)
	_ = attempt.Pause(ctx, m.tm.NextPause)

	after, _ := m.s.Location(ctx)
	if after == before {
		m.stalls++
		if m.stalls >= m.lim.MaxStalls {
			m.logger.Info("navigate: next control no longer moves, done", "stalls", m.stalls)
			return Done
		}
	} else {
		m.stalls = 0
	}
	return OnContentPage
}
