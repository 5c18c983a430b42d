// Package surfacetest provides an in-memory surface.Surface built from HTML
// fragments, so traversal and navigation can be exercised without Chrome.
//
// Frames are wired by element id: an <iframe id="player"> resolves to the
// Page registered with Frame("player", ...). Shadow roots are wired the same
// way with Shadow. Clicks run handlers registered with OnClick, which may
// replace the page content to simulate navigation.
package surfacetest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/hazyhaar/vidharvest/harvest/surface"
)

// Page is a fake top-level document, frame document or shadow root.
type Page struct {
	url     string
	doc     *html.Node
	shadow  bool
	frames  map[string]*Page
	blocked map[string]bool
	shadows map[string]*Page
	clicks  map[string]func(*Page)
	routes  map[string]string
	evals   []evalRule
	extra   string

	// Recorded activity, for assertions.
	Visited []string
	Clicked []string
	Filled  map[string]string
	Entered map[string]int
	Settles int
	Scripts []string
}

type evalRule struct {
	contains string
	fn       func(*Page) string
}

// NewPage returns a Page at url with the given body markup.
func NewPage(url, markup string) *Page {
	p := &Page{
		url:     url,
		frames:  make(map[string]*Page),
		blocked: make(map[string]bool),
		shadows: make(map[string]*Page),
		clicks:  make(map[string]func(*Page)),
		routes:  make(map[string]string),
		Filled:  make(map[string]string),
		Entered: make(map[string]int),
	}
	p.SetHTML(markup)
	return p
}

// SetHTML replaces the document content. Element handles obtained before the
// call become detached.
func (p *Page) SetHTML(markup string) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		panic(fmt.Sprintf("surfacetest: parse: %v", err))
	}
	p.doc = doc
}

// SetURL changes the reported location without touching content.
func (p *Page) SetURL(url string) { p.url = url }

// Frame registers the content document of the frame element with id.
func (p *Page) Frame(id string, child *Page) *Page {
	p.frames[id] = child
	return p
}

// Unreachable marks the frame element with id as cross-origin: acquiring its
// content fails.
func (p *Page) Unreachable(id string) *Page {
	p.blocked[id] = true
	return p
}

// Shadow attaches a shadow root with the given markup to the element with id.
func (p *Page) Shadow(id, markup string) *Page {
	root := NewPage(p.url, markup)
	root.shadow = true
	p.shadows[id] = root
	return p
}

// ShadowOf returns the shadow root attached to id, or nil.
func (p *Page) ShadowOf(id string) *Page { return p.shadows[id] }

// OnClick runs fn when the element with id is clicked.
func (p *Page) OnClick(id string, fn func(*Page)) *Page {
	p.clicks[id] = fn
	return p
}

// Route makes Navigate(addr) load markup.
func (p *Page) Route(addr, markup string) *Page {
	p.routes[addr] = markup
	return p
}

// OnEval answers every script containing substr with fn's result.
func (p *Page) OnEval(substr string, fn func(*Page) string) *Page {
	p.evals = append(p.evals, evalRule{contains: substr, fn: fn})
	return p
}

// ExtraMarkup is appended to Markup output, standing in for script-generated
// content that no element query can see.
func (p *Page) ExtraMarkup(s string) *Page {
	p.extra = s
	return p
}

// Navigate implements surface.Surface.
func (p *Page) Navigate(ctx context.Context, addr string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.shadow {
		return surface.ErrUnsupported
	}
	p.Visited = append(p.Visited, addr)
	p.url = addr
	if markup, ok := p.routes[addr]; ok {
		p.SetHTML(markup)
	}
	return nil
}

// QueryAll implements surface.Surface.
func (p *Page) QueryAll(ctx context.Context, selector string) ([]surface.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []surface.Element
	goquery.NewDocumentFromNode(p.doc).Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, &Element{page: p, node: s.Nodes[0]})
	})
	return out, nil
}

// WaitSelector implements surface.Surface. Content is static, so it never
// actually waits.
func (p *Page) WaitSelector(ctx context.Context, selector string, _ time.Duration) (surface.Element, error) {
	els, err := p.QueryAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", surface.ErrNotFound, selector)
	}
	return els[0], nil
}

// WaitSettle implements surface.Surface.
func (p *Page) WaitSettle(ctx context.Context, _ time.Duration) error {
	p.Settles++
	return ctx.Err()
}

// Eval implements surface.Surface.
func (p *Page) Eval(ctx context.Context, js string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.Scripts = append(p.Scripts, js)
	for _, r := range p.evals {
		if strings.Contains(js, r.contains) {
			return r.fn(p), nil
		}
	}
	return "", nil
}

// Markup implements surface.Surface.
func (p *Page) Markup(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var b strings.Builder
	if err := html.Render(&b, p.doc); err != nil {
		return "", err
	}
	b.WriteString(p.extra)
	return b.String(), nil
}

// Location implements surface.Surface.
func (p *Page) Location(ctx context.Context) (string, error) {
	return p.url, ctx.Err()
}

// Element is a fake element handle.
type Element struct {
	page *Page
	node *html.Node
}

func (e *Element) live() error {
	top := e.node
	for top.Parent != nil {
		top = top.Parent
	}
	if top != e.page.doc || e.attr("data-stale") != "" {
		return surface.ErrDetached
	}
	return nil
}

func (e *Element) attr(name string) string {
	for _, a := range e.node.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func (e *Element) id() string { return e.attr("id") }

// Attr implements surface.Element.
func (e *Element) Attr(ctx context.Context, name string) (string, bool, error) {
	if err := e.live(); err != nil {
		return "", false, err
	}
	for _, a := range e.node.Attr {
		if a.Key == name {
			return a.Val, true, ctx.Err()
		}
	}
	return "", false, ctx.Err()
}

// Text implements surface.Element.
func (e *Element) Text(ctx context.Context) (string, error) {
	if err := e.live(); err != nil {
		return "", err
	}
	return goquery.NewDocumentFromNode(e.node).Text(), ctx.Err()
}

// Value implements surface.Element.
func (e *Element) Value(ctx context.Context) (string, error) {
	if err := e.live(); err != nil {
		return "", err
	}
	return e.attr("value"), ctx.Err()
}

// Click implements surface.Element.
func (e *Element) Click(ctx context.Context) error {
	if err := e.live(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	id := e.id()
	e.page.Clicked = append(e.page.Clicked, id)
	if fn := e.page.clicks[id]; fn != nil {
		fn(e.page)
	}
	return nil
}

// Fill implements surface.Element. An element carrying data-reject-input
// silently drops the value, like a field that loses focus mid-typing.
func (e *Element) Fill(ctx context.Context, value string) error {
	if err := e.live(); err != nil {
		return err
	}
	e.page.Filled[e.id()] = value
	if e.attr("data-reject-input") != "" {
		return ctx.Err()
	}
	setAttr(e.node, "value", value)
	return ctx.Err()
}

// ScrollIntoView implements surface.Element.
func (e *Element) ScrollIntoView(ctx context.Context) error {
	if err := e.live(); err != nil {
		return err
	}
	return ctx.Err()
}

// ChildSurface implements surface.Element.
func (e *Element) ChildSurface(ctx context.Context) (surface.Surface, error) {
	if err := e.live(); err != nil {
		return nil, err
	}
	id := e.id()
	e.page.Entered[id]++
	if e.page.blocked[id] {
		return nil, fmt.Errorf("%w: frame %s is cross-origin", surface.ErrDetached, id)
	}
	child, ok := e.page.frames[id]
	if !ok {
		return nil, fmt.Errorf("%w: frame %s has no document", surface.ErrDetached, id)
	}
	return child, ctx.Err()
}

// ShadowRoot implements surface.Element.
func (e *Element) ShadowRoot(ctx context.Context) (surface.Surface, error) {
	if err := e.live(); err != nil {
		return nil, err
	}
	root, ok := e.page.shadows[e.id()]
	if !ok {
		return nil, surface.ErrNotFound
	}
	return root, ctx.Err()
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

var (
	_ surface.Surface = (*Page)(nil)
	_ surface.Element = (*Element)(nil)
)
