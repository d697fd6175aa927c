package capture

import (
	"context"
	"errors"
	"time"

	"golang.org/x/net/html"
)

// Driver is the page-side contract. Snapshot returns an annotated DOM tree
// (element ids, visibility verdicts and boxes stamped as data-rec-*
// attributes) so every locator downstream stays a pure function; the
// remaining methods act on the live page.
type Driver interface {
	// Snapshot annotates the live DOM and returns the parsed tree.
	Snapshot(ctx context.Context) (*html.Node, error)

	// Click dispatches a synthetic click on the element whose annotated id
	// matches. Fails when the element left the DOM since the snapshot.
	Click(ctx context.Context, nodeID int) error

	// TrustedClickAt sends a real input event at viewport coordinates.
	// Popup menus guarded against synthetic events need this.
	TrustedClickAt(ctx context.Context, x, y float64) error

	// PressEscape dismisses whatever popup currently has focus.
	PressEscape(ctx context.Context) error

	// Settle waits for the page to go quiet, at most d.
	Settle(ctx context.Context, d time.Duration) error

	// InstallPatchHook wraps the page clipboard so the next copied patch
	// lands in a page global instead of the system clipboard.
	InstallPatchHook(ctx context.Context) error

	// ReadPatchGlobal returns the intercepted patch text, empty until the
	// hook has fired.
	ReadPatchGlobal(ctx context.Context) (string, error)

	// PageURL returns the page's current location.
	PageURL(ctx context.Context) (string, error)
}

var (
	// ErrExportInFlight is returned when a sweep is started while another
	// one on the same session has not finished.
	ErrExportInFlight = errors.New("capture: export already in flight")

	// ErrNoTrigger means the page shows no git action menu trigger, so no
	// patch can be copied.
	ErrNoTrigger = errors.New("capture: git action trigger not found")

	// ErrMenuExhausted means the menu open/check cycle hit its attempt
	// bound without ever finding a qualified Copy patch item.
	ErrMenuExhausted = errors.New("capture: patch menu attempts exhausted")

	// ErrPatchTimeout means the menu item was clicked but the clipboard
	// hook never produced patch text within the polling window.
	ErrPatchTimeout = errors.New("capture: patch text never arrived")
)
