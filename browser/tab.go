package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"golang.org/x/net/html"

	"github.com/hazyhaar/recolte/capture"
	"github.com/hazyhaar/recolte/dom"
)

// Tab wraps one Rod page and implements the capture driver contract over
// it. All DOM reads go through the annotated-snapshot script; clicks and
// keys go through CDP input events.
type Tab struct {
	page *rod.Page
	log  *slog.Logger
}

var _ capture.Driver = (*Tab)(nil)

// OpenTab creates a stealth tab and navigates it to the task page.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	return &Tab{page: page, log: mgr.cfg.Logger}, nil
}

// AttachTab adopts an already-open tab whose URL contains urlPart. This is
// the attach-to-user-Chrome path: the task page is already open and logged
// in, so no navigation happens.
func AttachTab(ctx context.Context, mgr *Manager, urlPart string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	pages, err := b.Pages()
	if err != nil {
		return nil, fmt.Errorf("browser: list pages: %w", err)
	}
	for _, p := range pages {
		info, err := p.Context(ctx).Info()
		if err != nil {
			continue
		}
		if strings.Contains(info.URL, urlPart) {
			return &Tab{page: p, log: mgr.cfg.Logger}, nil
		}
	}
	return nil, fmt.Errorf("browser: no open tab matches %q", urlPart)
}

// Close closes the tab. Safe to call on an adopted user tab only when the
// caller wants that tab gone.
func (t *Tab) Close() error {
	if t.page != nil {
		return t.page.Close()
	}
	return nil
}

// Snapshot annotates the live DOM and returns the parsed tree.
func (t *Tab) Snapshot(ctx context.Context) (*html.Node, error) {
	res, err := t.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:      snapshotScript,
		ByValue: true,
	})
	if err != nil {
		return nil, fmt.Errorf("browser: snapshot: %w", err)
	}
	return dom.Parse(res.Value.Str())
}

// Click dispatches a synthetic click on the annotated element.
func (t *Tab) Click(ctx context.Context, nodeID int) error {
	res, err := t.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:      clickScript,
		JSArgs:  []interface{}{nodeID},
		ByValue: true,
	})
	if err != nil {
		return fmt.Errorf("browser: click %d: %w", nodeID, err)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("browser: click %d: element left the DOM", nodeID)
	}
	return nil
}

// TrustedClickAt sends real mouse input at viewport coordinates. Radix
// poppers ignore synthetic click() on their items, so the patch menu needs
// this path.
func (t *Tab) TrustedClickAt(ctx context.Context, x, y float64) error {
	p := t.page.Context(ctx)
	move := &proto.InputDispatchMouseEvent{
		Type: proto.InputDispatchMouseEventTypeMouseMoved,
		X:    x,
		Y:    y,
	}
	if err := move.Call(p); err != nil {
		return fmt.Errorf("browser: mouse move: %w", err)
	}
	press := &proto.InputDispatchMouseEvent{
		Type:       proto.InputDispatchMouseEventTypeMousePressed,
		X:          x,
		Y:          y,
		Button:     proto.InputMouseButtonLeft,
		ClickCount: 1,
	}
	if err := press.Call(p); err != nil {
		return fmt.Errorf("browser: mouse press: %w", err)
	}
	release := &proto.InputDispatchMouseEvent{
		Type:       proto.InputDispatchMouseEventTypeMouseReleased,
		X:          x,
		Y:          y,
		Button:     proto.InputMouseButtonLeft,
		ClickCount: 1,
	}
	if err := release.Call(p); err != nil {
		return fmt.Errorf("browser: mouse release: %w", err)
	}
	return nil
}

// PressEscape dismisses the focused popup.
func (t *Tab) PressEscape(ctx context.Context) error {
	p := t.page.Context(ctx)
	down := &proto.InputDispatchKeyEvent{
		Type:                  proto.InputDispatchKeyEventTypeKeyDown,
		Key:                   "Escape",
		Code:                  "Escape",
		WindowsVirtualKeyCode: 27,
	}
	if err := down.Call(p); err != nil {
		return fmt.Errorf("browser: escape down: %w", err)
	}
	up := &proto.InputDispatchKeyEvent{
		Type:                  proto.InputDispatchKeyEventTypeKeyUp,
		Key:                   "Escape",
		Code:                  "Escape",
		WindowsVirtualKeyCode: 27,
	}
	if err := up.Call(p); err != nil {
		return fmt.Errorf("browser: escape up: %w", err)
	}
	return nil
}

// Settle waits a fixed interval. The page streams content continuously, so
// idle-network heuristics never fire; the capture loops poll snapshots for
// stability instead and only need a bounded pause between polls.
func (t *Tab) Settle(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// InstallPatchHook wraps the page clipboard. Idempotent.
func (t *Tab) InstallPatchHook(ctx context.Context) error {
	_, err := t.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:      patchHookScript,
		ByValue: true,
	})
	if err != nil {
		return fmt.Errorf("browser: install patch hook: %w", err)
	}
	return nil
}

// ReadPatchGlobal returns the intercepted patch text, empty until a copy
// fired.
func (t *Tab) ReadPatchGlobal(ctx context.Context) (string, error) {
	res, err := t.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:      readPatchScript,
		ByValue: true,
	})
	if err != nil {
		return "", fmt.Errorf("browser: read patch: %w", err)
	}
	return res.Value.Str(), nil
}

// PageURL returns the page's current location.
func (t *Tab) PageURL(ctx context.Context) (string, error) {
	info, err := t.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("browser: page info: %w", err)
	}
	return info.URL, nil
}
