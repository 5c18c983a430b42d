package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/vidharvest/harvest/surface"
)

// Session is one browser plus the single tab a run drives.
type Session struct {
	mgr    *Manager
	page   *rod.Page
	router *rod.HijackRouter
	root   *pageSurface
}

// Open starts Chrome and opens a tab. The caller must Close the session on
// every path.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	mgr := NewManager(cfg)
	b, err := mgr.Start(ctx)
	if err != nil {
		return nil, err
	}

	var page *rod.Page
	if mgr.cfg.Stealth >= LevelHeadless {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		_ = mgr.Close()
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  mgr.cfg.ViewportWidth,
		Height: mgr.cfg.ViewportHeight,
	}); err != nil {
		mgr.cfg.Logger.Warn("browser: set viewport failed", "error", err)
	}

	s := &Session{mgr: mgr, page: page, root: &pageSurface{page: page}}
	if len(mgr.cfg.ResourceBlocking) > 0 {
		s.router = blockResources(page, mgr.cfg.ResourceBlocking)
	}
	return s, nil
}

// Surface returns the top-level document of the tab.
func (s *Session) Surface() surface.Surface { return s.root }

// Close stops request interception, closes the tab and shuts Chrome down.
func (s *Session) Close() error {
	var errs []error
	if s.router != nil {
		if err := s.router.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("browser: stop hijack: %w", err))
		}
	}
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("browser: close tab: %w", err))
		}
	}
	if err := s.mgr.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
