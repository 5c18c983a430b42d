package navigate

import (
	"context"

	"github.com/hazyhaar/vidharvest/harvest/internal/attempt"
	"github.com/hazyhaar/vidharvest/harvest/internal/traverse"
)

const scrollScript = `() => {
	window.scrollTo(0, document.body.scrollHeight);
	return String(document.body.scrollHeight);
}`

// harvestPage expands, scrolls and walks the current surface, then the
// sidebar lessons when the plan asks for them. The sidebar pass runs once per
// address: later pages reached through next share the same lesson list.
func (m *Machine) harvestPage(ctx context.Context) State {
	m.pages++
	m.expand(ctx)
	m.scrollToEnd(ctx)
	st := m.walker.Walk(ctx, m.s, m.set)
	m.logger.Debug("navigate: page harvested", "page", m.pages, "added", st.Added, "total", m.set.Len())

	if m.plan.Lessons && !m.lessonsDone {
		m.lessonsDone = m.walkLessons(ctx)
	}
	if !m.plan.Paging {
		return Done
	}
	return AdvancingToNext
}

// expand clicks every collapsed section header once.
func (m *Machine) expand(ctx context.Context) {
	els, err := m.s.QueryAll(ctx, m.sel.Collapsed)
	if err != nil || len(els) == 0 {
		return
	}
	opened := 0
	for _, el := range els {
		if ctx.Err() != nil {
			return
		}
		if attempt.Optional(ctx, m.logger, "expand-section", m.tm.Settle, el.Click) {
			opened++
			_ = attempt.Pause(ctx, m.tm.ExpandPause)
		}
	}
	m.logger.Debug("navigate: sections expanded", "found", len(els), "opened", opened)
}

// scrollToEnd scrolls until the document height stops growing, so lazy
// content mounts.
func (m *Machine) scrollToEnd(ctx context.Context) {
	prev := "-"
	for range m.lim.MaxScrollRounds {
		h, err := m.s.Eval(ctx, scrollScript)
		if err != nil || h == prev {
			return
		}
		prev = h
		if attempt.Pause(ctx, m.tm.ScrollPause) != nil {
			return
		}
	}
}

// walkLessons activates each sidebar lesson link in turn and walks the page
// after each. The links live in a nested frame and are re-queried every
// round because activating one re-renders the list. It reports whether a
// lesson list was found and walked.
func (m *Machine) walkLessons(ctx context.Context) bool {
	if firstMatch(ctx, m.s, m.sel.SequenceViewer) == nil {
		return false
	}
	nav, ok := traverse.FindSurface(ctx, m.s, m.sel.LessonLink, m.lim.MaxDepth)
	if !ok {
		m.logger.Info("navigate: sequence viewer without lesson links")
		return false
	}
	links, err := nav.QueryAll(ctx, m.sel.LessonLink)
	if err != nil {
		return false
	}
	total := min(len(links), m.lim.MaxLessons)
	m.logger.Info("navigate: walking lessons", "count", total)

	for i := range total {
		if ctx.Err() != nil {
			return true
		}
		nav, ok = traverse.FindSurface(ctx, m.s, m.sel.LessonLink, m.lim.MaxDepth)
		if !ok {
			return true
		}
		links, err = nav.QueryAll(ctx, m.sel.LessonLink)
		if err != nil || i >= len(links) {
			return true
		}
		if !attempt.Optional(ctx, m.logger, "lesson-link", m.tm.Settle, links[i].Click) {
			continue
		}
		_ = attempt.Pause(ctx, m.tm.LessonPause)
		m.scrollToEnd(ctx)
		st := m.walker.Walk(ctx, m.s, m.set)
		m.logger.Debug("navigate: lesson harvested", "lesson", i+1, "added", st.Added)
	}
	return true
}
