package capture

import (
	"context"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/recolte/dom"
	"github.com/hazyhaar/recolte/locate"
	"github.com/hazyhaar/recolte/turns"
)

// Patch copy is the only capture that must round-trip through the page's
// own menu: open the git action menu, find the Copy patch item, intercept
// the clipboard write. Poppers mount asynchronously and sometimes swallow
// the first click, so the open/check cycle is retried a bounded number of
// times with an Escape between attempts to reset popup state.
const (
	menuMaxAttempts = 6

	patchPollInterval = 150 * time.Millisecond
	patchPollAttempts = 53 // ~8s at the poll interval
	patchMinLen       = 10
)

func (s *Session) capturePatch(ctx context.Context, tc *turns.Context) (string, error) {
	for attempt := 1; attempt <= menuMaxAttempts; attempt++ {
		root, err := s.drv.Snapshot(ctx)
		if err != nil {
			return "", err
		}
		scope := s.rescope(root, tc)
		trigger := firstIn(scopeNodes(scope), locate.TriggerButton)
		if trigger == nil {
			trigger = locate.TriggerButton(root)
		}
		if trigger == nil {
			return "", ErrNoTrigger
		}

		if err := s.clickNode(ctx, trigger); err != nil {
			s.log.Warn("menu trigger click failed", "attempt", attempt, "err", err)
			s.resetMenu(ctx)
			continue
		}
		s.drv.Settle(ctx, settleShort)

		open, err := s.drv.Snapshot(ctx)
		if err != nil {
			return "", err
		}
		item := locate.PatchMenuItem(open)
		if item == nil {
			s.log.Debug("patch menu item not found", "attempt", attempt)
			s.resetMenu(ctx)
			continue
		}

		if err := s.drv.InstallPatchHook(ctx); err != nil {
			return "", err
		}
		if item.HasPoint {
			err = s.drv.TrustedClickAt(ctx, item.X, item.Y)
		} else {
			err = s.drv.Click(ctx, dom.NodeID(item.Node))
		}
		if err != nil {
			s.log.Warn("patch item click failed", "attempt", attempt, "err", err)
			s.resetMenu(ctx)
			continue
		}

		text, err := s.pollPatch(ctx)
		if err == nil {
			return text, nil
		}
		if err != ErrPatchTimeout {
			return "", err
		}
		s.log.Debug("patch poll timed out", "attempt", attempt)
		s.resetMenu(ctx)
	}
	return "", ErrMenuExhausted
}

// clickNode prefers a trusted click at the element's box center; elements
// without an annotated box get a synthetic click by id.
func (s *Session) clickNode(ctx context.Context, n *html.Node) error {
	if box, ok := dom.Box(n); ok {
		x, y := box.Center()
		return s.drv.TrustedClickAt(ctx, x, y)
	}
	return s.drv.Click(ctx, dom.NodeID(n))
}

func (s *Session) resetMenu(ctx context.Context) {
	if err := s.drv.PressEscape(ctx); err != nil {
		s.log.Debug("escape dispatch failed", "err", err)
	}
	s.drv.Settle(ctx, settleShort)
}

// pollPatch reads the clipboard-hook global until real patch text shows
// up. Anything at or under patchMinLen characters is menu chrome, not a
// patch.
func (s *Session) pollPatch(ctx context.Context) (string, error) {
	for i := 0; i < patchPollAttempts; i++ {
		text, err := s.drv.ReadPatchGlobal(ctx)
		if err != nil {
			return "", err
		}
		if len(strings.TrimSpace(text)) > patchMinLen {
			return text, nil
		}
		if err := s.drv.Settle(ctx, patchPollInterval); err != nil {
			return "", err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", ErrPatchTimeout
}
