package turns

import (
	"math"

	"github.com/hazyhaar/recolte/dom"
)

// ActiveContext picks the turn the user is looking at: among contexts whose
// bounding box intersects the viewport, the one whose vertical center is
// closest to the viewport's. When none intersects (page scrolled past the
// conversation, or boxes missing from the snapshot) the bottom-most turn
// wins, since the newest turn renders last.
func ActiveContext(ctxs []*Context, vpHeight float64) *Context {
	if len(ctxs) == 0 {
		return nil
	}

	center := vpHeight / 2
	var best *Context
	bestDist := math.Inf(1)
	for _, c := range ctxs {
		box, ok := c.BoundingBox()
		if !ok {
			continue
		}
		if box.Bottom <= 0 || box.Top >= vpHeight {
			continue
		}
		d := math.Abs(box.CenterY() - center)
		if d < bestDist {
			bestDist = d
			best = c
		}
	}
	if best != nil {
		return best
	}
	return ctxs[len(ctxs)-1]
}

// BoundingBox unions the annotated boxes of the context's nodes. ok is
// false when no node carries a box.
func (c *Context) BoundingBox() (dom.Rect, bool) {
	var out dom.Rect
	found := false
	for _, n := range c.Nodes {
		box, ok := dom.Box(n)
		if !ok {
			continue
		}
		if !found {
			out = box
			found = true
			continue
		}
		out.Top = math.Min(out.Top, box.Top)
		out.Left = math.Min(out.Left, box.Left)
		out.Bottom = math.Max(out.Bottom, box.Bottom)
		out.Right = math.Max(out.Right, box.Right)
	}
	return out, found
}

// VersionEntry is one step of a capture sweep over a turn's versions.
type VersionEntry struct {
	Label     string
	NodeID    int
	Synthetic bool
}

// VersionPlan lists the versions to visit in button order. A turn with no
// version buttons still yields one synthetic entry so the current view is
// captured exactly once.
func (c *Context) VersionPlan() []VersionEntry {
	if len(c.VersionButtons) == 0 {
		label := c.ActiveVersionLabel
		if label == "" {
			label = "Version 1"
		}
		return []VersionEntry{{Label: label, Synthetic: true}}
	}
	out := make([]VersionEntry, 0, len(c.VersionButtons))
	for _, b := range c.VersionButtons {
		out = append(out, VersionEntry{Label: b.Label, NodeID: b.NodeID})
	}
	return out
}
