// Package surface abstracts the browser operations the harvester needs.
// A Surface is a renderable DOM context: a top-level page, an iframe's
// document, or a shadow root scope. Handles are transient: callers must not
// keep a Surface beyond the call that obtained it.
//
// The rod-backed implementation lives in harvest/internal/browser; an
// in-memory tree for tests lives in surface/surfacetest.
package surface

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by WaitSelector when nothing matched in time.
	ErrNotFound = errors.New("surface: element not found")

	// ErrDetached is returned when an element or frame is no longer attached
	// to a live document, or its content is not reachable (cross-origin).
	ErrDetached = errors.New("surface: detached")

	// ErrUnsupported is returned by operations that make no sense on a given
	// surface kind, e.g. Navigate on a shadow root.
	ErrUnsupported = errors.New("surface: unsupported operation")
)

// Surface is a queryable DOM context.
type Surface interface {
	// Navigate loads addr in this surface and waits for the document to load.
	Navigate(ctx context.Context, addr string) error

	// QueryAll returns every element matching the CSS selector, in document
	// order, without waiting. No match is an empty slice, not an error.
	QueryAll(ctx context.Context, selector string) ([]Element, error)

	// WaitSelector waits up to timeout for the first element matching selector.
	WaitSelector(ctx context.Context, selector string, timeout time.Duration) (Element, error)

	// WaitSettle waits up to timeout for network and DOM activity to go quiet.
	WaitSettle(ctx context.Context, timeout time.Duration) error

	// Eval runs a JavaScript function expression in the surface and returns
	// its result rendered as a string.
	Eval(ctx context.Context, js string) (string, error)

	// Markup serialises the rendered markup of the surface.
	Markup(ctx context.Context) (string, error)

	// Location returns the current document address.
	Location(ctx context.Context) (string, error)
}

// Element is a handle on one node of a Surface.
type Element interface {
	// Attr returns the attribute value and whether it is present.
	Attr(ctx context.Context, name string) (string, bool, error)

	// Text returns the rendered text content.
	Text(ctx context.Context) (string, error)

	// Value returns the current value of a form control.
	Value(ctx context.Context) (string, error)

	Click(ctx context.Context) error
	Fill(ctx context.Context, value string) error
	ScrollIntoView(ctx context.Context) error

	// ChildSurface returns the content document of a frame element.
	ChildSurface(ctx context.Context) (Surface, error)

	// ShadowRoot returns the element's attached shadow root as a Surface.
	// Elements without one return ErrNotFound.
	ShadowRoot(ctx context.Context) (Surface, error)
}
