package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/vidharvest/harvest/surface"
)

const (
	locationScript = `() => String(window.location.href)`
	innerScript    = `() => this.innerHTML`
	stableWindow   = 300 * time.Millisecond
)

// pageSurface adapts a Rod page. Frame documents are Rod pages too.
type pageSurface struct {
	page *rod.Page
}

func (p *pageSurface) Navigate(ctx context.Context, addr string) error {
	pg := p.page.Context(ctx)
	if err := pg.Navigate(addr); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", addr, err)
	}
	if err := pg.WaitLoad(); err != nil {
		return fmt.Errorf("browser: wait load %s: %w", addr, err)
	}
	return nil
}

func (p *pageSurface) QueryAll(ctx context.Context, selector string) ([]surface.Element, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, classify("query "+selector, err)
	}
	return wrapAll(els), nil
}

func (p *pageSurface) WaitSelector(ctx context.Context, selector string, timeout time.Duration) (surface.Element, error) {
	pg := p.page.Context(ctx)
	if timeout > 0 {
		pg = pg.Timeout(timeout)
	}
	el, err := pg.Element(selector)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %v", surface.ErrNotFound, selector, err)
	}
	return &element{el: el}, nil
}

func (p *pageSurface) WaitSettle(ctx context.Context, timeout time.Duration) error {
	pg := p.page.Context(ctx)
	if timeout > 0 {
		pg = pg.Timeout(timeout)
	}
	return pg.WaitStable(stableWindow)
}

func (p *pageSurface) Eval(ctx context.Context, js string) (string, error) {
	res, err := p.page.Context(ctx).Eval(js)
	if err != nil {
		return "", classify("eval", err)
	}
	return res.Value.Str(), nil
}

func (p *pageSurface) Markup(ctx context.Context) (string, error) {
	h, err := p.page.Context(ctx).HTML()
	if err != nil {
		return "", classify("markup", err)
	}
	return h, nil
}

func (p *pageSurface) Location(ctx context.Context) (string, error) {
	return p.Eval(ctx, locationScript)
}

// shadowSurface scopes queries to an open shadow root. It cannot navigate.
type shadowSurface struct {
	page *rod.Page
	root *rod.Element
}

func (s *shadowSurface) Navigate(context.Context, string) error { return surface.ErrUnsupported }

func (s *shadowSurface) QueryAll(ctx context.Context, selector string) ([]surface.Element, error) {
	els, err := s.root.Context(ctx).Elements(selector)
	if err != nil {
		return nil, classify("shadow query "+selector, err)
	}
	return wrapAll(els), nil
}

// WaitSelector polls the shadow root; Rod only retries page-level lookups.
func (s *shadowSurface) WaitSelector(ctx context.Context, selector string, timeout time.Duration) (surface.Element, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		els, err := s.QueryAll(ctx, selector)
		if err == nil && len(els) > 0 {
			return els[0], nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s in shadow root", surface.ErrNotFound, selector)
		case <-tick.C:
		}
	}
}

func (s *shadowSurface) WaitSettle(ctx context.Context, timeout time.Duration) error {
	return (&pageSurface{page: s.page}).WaitSettle(ctx, timeout)
}

func (s *shadowSurface) Eval(ctx context.Context, js string) (string, error) {
	res, err := s.root.Context(ctx).Eval(js)
	if err != nil {
		return "", classify("shadow eval", err)
	}
	return res.Value.Str(), nil
}

func (s *shadowSurface) Markup(ctx context.Context) (string, error) {
	return s.Eval(ctx, innerScript)
}

func (s *shadowSurface) Location(ctx context.Context) (string, error) {
	return (&pageSurface{page: s.page}).Location(ctx)
}

type element struct {
	el *rod.Element
}

func wrapAll(els rod.Elements) []surface.Element {
	out := make([]surface.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &element{el: el})
	}
	return out
}

func (e *element) Attr(ctx context.Context, name string) (string, bool, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, classify("attribute "+name, err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	t, err := e.el.Context(ctx).Text()
	if err != nil {
		return "", classify("text", err)
	}
	return t, nil
}

func (e *element) Value(ctx context.Context) (string, error) {
	v, err := e.el.Context(ctx).Property("value")
	if err != nil {
		return "", classify("value", err)
	}
	return v.Str(), nil
}

func (e *element) Click(ctx context.Context) error {
	if err := e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return classify("click", err)
	}
	return nil
}

func (e *element) Fill(ctx context.Context, value string) error {
	el := e.el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return classify("select text", err)
	}
	if err := el.Input(value); err != nil {
		return classify("input", err)
	}
	return nil
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	if err := e.el.Context(ctx).ScrollIntoView(); err != nil {
		return classify("scroll", err)
	}
	return nil
}

func (e *element) ChildSurface(ctx context.Context) (surface.Surface, error) {
	fr, err := e.el.Context(ctx).Frame()
	if err != nil {
		return nil, fmt.Errorf("%w: frame: %v", surface.ErrDetached, err)
	}
	return &pageSurface{page: fr}, nil
}

func (e *element) ShadowRoot(ctx context.Context) (surface.Surface, error) {
	root, err := e.el.Context(ctx).ShadowRoot()
	if err != nil {
		var none *rod.NoShadowRootError
		if errors.As(err, &none) {
			return nil, surface.ErrNotFound
		}
		return nil, classify("shadow root", err)
	}
	return &shadowSurface{page: e.el.Page(), root: root}, nil
}

// classify maps Rod and CDP failures on vanished nodes to surface.ErrDetached.
func classify(op string, err error) error {
	var notFound *rod.ObjectNotFoundError
	var cdpErr *cdp.Error
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.As(err, &notFound):
		return fmt.Errorf("browser: %s: %w", op, surface.ErrDetached)
	case errors.As(err, &cdpErr) && cdpErr.Code == -32000:
		return fmt.Errorf("browser: %s: %w: %s", op, surface.ErrDetached, cdpErr.Message)
	}
	return fmt.Errorf("browser: %s: %w", op, err)
}

var (
	_ surface.Surface = (*pageSurface)(nil)
	_ surface.Surface = (*shadowSurface)(nil)
	_ surface.Element = (*element)(nil)
)
