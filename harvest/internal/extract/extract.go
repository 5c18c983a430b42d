// CLAUDE:SUMMARY Finds raw video addresses on one surface via element queries and a markup scan; no recursion.
// Package extract finds video references visible in a single surface. It
// never descends into child frames; that is the traversal engine's job.
//
// Two strategies always run:
//   - structured: anchors and frame-like elements whose address attribute
//     points at a video host;
//   - textual: the rendered markup is parsed for address attributes and
//     scanned for raw URLs, catching references in script-generated markup.
package extract

import (
	"context"
	"iter"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/hazyhaar/vidharvest/harvest/surface"
	"github.com/hazyhaar/vidharvest/harvest/videoref"
)

const (
	// LinkSelector matches anchors that may point at a video.
	LinkSelector = `a[href*="youtube.com"], a[href*="youtu.be"], a[href*="youtube-nocookie.com"], a[href*="cdn.embedly.com"]`

	// EmbedSelector matches frame-like elements carrying an address.
	EmbedSelector = `iframe[src], iframe[data-src], frame[src], embed[src]`
)

var urlPattern = regexp.MustCompile(`(?i)(?:https?:)?//(?:[a-z0-9-]+\.)*(?:youtube(?:-nocookie)?\.com|youtu\.be|cdn\.embedly\.com)/[^\s"'<>\\)\]]+`)

// Extractor reads raw references from surfaces.
type Extractor struct {
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(x *Extractor) { x.logger = l }
}

// New returns an Extractor.
func New(opts ...Option) *Extractor {
	x := &Extractor{logger: slog.Default()}
	for _, o := range opts {
		o(x)
	}
	return x
}

// Raw returns the raw video addresses visible in s. The sequence is lazy and
// single-use: it reads the live DOM while ranged and yields nothing when
// ranged again. Call Raw again to re-read the surface.
func (x *Extractor) Raw(ctx context.Context, s surface.Surface) iter.Seq[string] {
	used := false
	return func(yield func(string) bool) {
		if used {
			return
		}
		used = true

		if !x.structured(ctx, s, yield) {
			return
		}
		x.textual(ctx, s, yield)
	}
}

// Into normalizes every raw address from s into set and returns how many
// references were new.
func (x *Extractor) Into(ctx context.Context, s surface.Surface, set *videoref.Set) int {
	added := 0
	for raw := range x.Raw(ctx, s) {
		if _, ok := set.Add(raw); ok {
			added++
		}
	}
	return added
}

func (x *Extractor) structured(ctx context.Context, s surface.Surface, yield func(string) bool) bool {
	groups := []struct {
		selector string
		attrs    []string
	}{
		{LinkSelector, []string{"href"}},
		{EmbedSelector, []string{"src", "data-src"}},
	}
	for _, g := range groups {
		els, err := s.QueryAll(ctx, g.selector)
		if err != nil {
			x.logger.Debug("extract: query failed", "selector", g.selector, "error", err)
			continue
		}
		for _, el := range els {
			for _, name := range g.attrs {
				val, ok, err := el.Attr(ctx, name)
				if err != nil {
					// Stale element: skip it, keep the rest.
					x.logger.Debug("extract: attribute read failed", "attr", name, "error", err)
					break
				}
				if ok && videoref.MatchesHost(val) {
					if !yield(val) {
						return false
					}
				}
			}
		}
	}
	return true
}

func (x *Extractor) textual(ctx context.Context, s surface.Surface, yield func(string) bool) {
	markup, err := s.Markup(ctx)
	if err != nil {
		x.logger.Debug("extract: markup unavailable", "error", err)
		return
	}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup)); err == nil {
		stop := false
		doc.Find("[href], [src], [data-src], [data-url]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			for _, name := range []string{"href", "src", "data-src", "data-url"} {
				if val, ok := sel.Attr(name); ok && videoref.MatchesHost(val) {
					if !yield(val) {
						stop = true
						return false
					}
				}
			}
			return true
		})
		if stop {
			return
		}
	}

	for _, raw := range Scan(markup) {
		if !yield(raw) {
			return
		}
	}
}

// Scan returns every raw video URL found in free text, after undoing HTML
// entity and JavaScript slash escaping.
func Scan(text string) []string {
	text = strings.ReplaceAll(text, `\/`, "/")
	text = html.UnescapeString(text)
	found := urlPattern.FindAllString(text, -1)
	for i, m := range found {
		found[i] = strings.TrimRight(m, ".,;:!?")
	}
	return found
}
