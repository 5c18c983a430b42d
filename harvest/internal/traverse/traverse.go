// CLAUDE:SUMMARY Recursive descent through frames and one level of shadow roots, collecting video refs into a run-owned set.
// Package traverse walks a surface tree (page, iframes, shadow-hosted
// controls) and feeds every reachable video reference into a Set. No error
// escapes a walk: unreachable subtrees simply contribute nothing.
package traverse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/vidharvest/harvest/internal/extract"
	"github.com/hazyhaar/vidharvest/harvest/surface"
	"github.com/hazyhaar/vidharvest/harvest/videoref"
)

const (
	// FrameSelector enumerates frame-bearing elements.
	FrameSelector = "iframe, frame"

	// DefaultShadowHosts are custom elements whose content lives in a shadow
	// root that document-level queries cannot see.
	DefaultShadowHosts = "d2l-button"

	// DefaultMaxDepth bounds frame nesting. Real course content nests at most
	// about five levels.
	DefaultMaxDepth = 10
)

// Config configures a Walker.
type Config struct {
	ShadowHosts string
	MaxDepth    int
	Logger      *slog.Logger
}

func (c *Config) defaults() {
	if c.ShadowHosts == "" {
		c.ShadowHosts = DefaultShadowHosts
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Walker performs frame traversal.
type Walker struct {
	cfg Config
	x   *extract.Extractor
}

// New returns a Walker.
func New(cfg Config) *Walker {
	cfg.defaults()
	return &Walker{cfg: cfg, x: extract.New(extract.WithLogger(cfg.Logger))}
}

// Stats summarises one walk.
type Stats struct {
	Surfaces       int // surfaces extracted, including shadow roots
	Added          int // new references
	Skipped        int // frames or shadow roots that could not be acquired
	ShortCircuited int // playback frames taken as references without entering
	MaxDepth       int // deepest frame level reached
}

// Walk extracts from root and every reachable descendant surface into set.
func (w *Walker) Walk(ctx context.Context, root surface.Surface, set *videoref.Set) Stats {
	var st Stats
	w.walk(ctx, root, set, 0, &st)
	if st.Added > 0 || st.Skipped > 0 {
		w.cfg.Logger.Debug("traverse: walk done",
			"surfaces", st.Surfaces, "added", st.Added, "skipped", st.Skipped, "depth", st.MaxDepth)
	}
	return st
}

func (w *Walker) walk(ctx context.Context, s surface.Surface, set *videoref.Set, depth int, st *Stats) {
	if ctx.Err() != nil {
		return
	}
	if depth > st.MaxDepth {
		st.MaxDepth = depth
	}

	st.Surfaces++
	st.Added += w.x.Into(ctx, s, set)

	w.shadowPass(ctx, s, set, st)

	if depth >= w.cfg.MaxDepth {
		w.cfg.Logger.Warn("traverse: depth limit reached", "depth", depth)
		return
	}

	frames, err := s.QueryAll(ctx, FrameSelector)
	if err != nil {
		w.cfg.Logger.Debug("traverse: frame query failed", "error", err)
		return
	}
	for _, el := range frames {
		if ctx.Err() != nil {
			return
		}
		src := frameAddress(ctx, el)
		if src != "" && videoref.MatchesHost(src) {
			st.ShortCircuited++
			if _, ok := set.Add(src); ok {
				st.Added++
			}
			continue
		}

		child, err := el.ChildSurface(ctx)
		if err != nil {
			st.Skipped++
			w.cfg.Logger.Debug("traverse: frame unreachable", "src", src, "error", err)
			continue
		}
		w.walk(ctx, child, set, depth+1, st)
	}
}

// shadowPass extracts from the shadow root of each configured host, one
// level deep.
func (w *Walker) shadowPass(ctx context.Context, s surface.Surface, set *videoref.Set, st *Stats) {
	hosts, err := s.QueryAll(ctx, w.cfg.ShadowHosts)
	if err != nil {
		return
	}
	for _, h := range hosts {
		root, err := h.ShadowRoot(ctx)
		if err != nil {
			if !errors.Is(err, surface.ErrNotFound) {
				st.Skipped++
			}
			continue
		}
		st.Surfaces++
		st.Added += w.x.Into(ctx, root, set)
	}
}

func frameAddress(ctx context.Context, el surface.Element) string {
	for _, name := range []string{"src", "data-src"} {
		v, ok, err := el.Attr(ctx, name)
		if err != nil {
			return ""
		}
		if ok && v != "" {
			return v
		}
	}
	return ""
}

// Activate clicks the element matching inner inside host's shadow root,
// piercing exactly one level. A host without a shadow root is clicked
// directly.
func Activate(ctx context.Context, host surface.Element, inner string) error {
	root, err := host.ShadowRoot(ctx)
	if errors.Is(err, surface.ErrNotFound) {
		if err := host.ScrollIntoView(ctx); err != nil {
			return fmt.Errorf("traverse: scroll host: %w", err)
		}
		return host.Click(ctx)
	}
	if err != nil {
		return fmt.Errorf("traverse: shadow root: %w", err)
	}

	targets, err := root.QueryAll(ctx, inner)
	if err != nil {
		return fmt.Errorf("traverse: query shadow root: %w", err)
	}
	if len(targets) == 0 {
		return fmt.Errorf("traverse: %w: %s in shadow root", surface.ErrNotFound, inner)
	}
	target := targets[0]
	if err := target.ScrollIntoView(ctx); err != nil {
		return fmt.Errorf("traverse: scroll target: %w", err)
	}
	return target.Click(ctx)
}

// FindSurface returns the first surface in the frame tree of root, root
// included, that contains an element matching selector. Depth-first,
// document order.
func FindSurface(ctx context.Context, root surface.Surface, selector string, maxDepth int) (surface.Surface, bool) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return findSurface(ctx, root, selector, 0, maxDepth)
}

func findSurface(ctx context.Context, s surface.Surface, selector string, depth, maxDepth int) (surface.Surface, bool) {
	if ctx.Err() != nil {
		return nil, false
	}
	if els, err := s.QueryAll(ctx, selector); err == nil && len(els) > 0 {
		return s, true
	}
	if depth >= maxDepth {
		return nil, false
	}
	frames, err := s.QueryAll(ctx, FrameSelector)
	if err != nil {
		return nil, false
	}
	for _, el := range frames {
		child, err := el.ChildSurface(ctx)
		if err != nil {
			continue
		}
		if found, ok := findSurface(ctx, child, selector, depth+1, maxDepth); ok {
			return found, true
		}
	}
	return nil, false
}
