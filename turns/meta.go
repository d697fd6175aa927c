package turns

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// cacheTTL bounds how often the backend turn tree is refetched per task.
// Sweeping a multi-turn task hits Resolve once per turn per version, so the
// cache turns that into one fetch per sweep.
const cacheTTL = 30 * time.Second

// Tree is the backend turn tree for one task.
type Tree struct {
	TurnMapping   map[string]TreeEntry `json:"turn_mapping"`
	CurrentTurnID string               `json:"current_turn_id"`
}

// TreeEntry is one node of the tree; children of a user turn are its
// assistant response versions, children of an assistant turn are follow-up
// user turns.
type TreeEntry struct {
	Turn     TreeTurn `json:"turn"`
	Children []string `json:"children"`
}

type TreeTurn struct {
	Role       string      `json:"role"`
	InputItems []InputItem `json:"input_items"`
}

// InputItem carries prompt text either inline or as typed content parts;
// both shapes appear in the wild depending on backend version.
type InputItem struct {
	Type    string        `json:"type"`
	Text    string        `json:"text,omitempty"`
	Content []ContentPart `json:"content,omitempty"`
}

type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Text flattens the entry's prompt text for fingerprint matching.
func (e *TreeEntry) Text() string {
	var parts []string
	for _, it := range e.Turn.InputItems {
		if it.Text != "" {
			parts = append(parts, it.Text)
		}
		for _, c := range it.Content {
			if c.Text != "" {
				parts = append(parts, c.Text)
			}
		}
	}
	return strings.Join(parts, "\n")
}

type cacheEntry struct {
	tree      *Tree
	fetchedAt time.Time
}

// Resolver fetches turn trees and enriches discovered contexts with stable
// backend identifiers. Metadata failures degrade, never abort: a context
// that cannot be matched keeps its DOM index and MetaResolved=false.
type Resolver struct {
	BaseURL string
	Token   string
	Client  *http.Client
	Log     *slog.Logger

	// now is replaceable for cache-expiry tests.
	now func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

func NewResolver(baseURL, token string, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{Timeout: 10 * time.Second},
		Log:     log,
		now:     time.Now,
		cache:   make(map[string]cacheEntry),
	}
}

// TreeForTask returns the cached tree for taskID, fetching when absent or
// older than cacheTTL. Concurrent callers within the TTL share one *Tree.
func (r *Resolver) TreeForTask(ctx context.Context, taskID string) (*Tree, error) {
	r.mu.Lock()
	if e, ok := r.cache[taskID]; ok && r.now().Sub(e.fetchedAt) < cacheTTL {
		r.mu.Unlock()
		return e.tree, nil
	}
	r.mu.Unlock()

	tree, err := r.fetch(ctx, taskID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[taskID] = cacheEntry{tree: tree, fetchedAt: r.now()}
	r.mu.Unlock()
	return tree, nil
}

func (r *Resolver) fetch(ctx context.Context, taskID string) (*Tree, error) {
	url := fmt.Sprintf("%s/tasks/%s/turns", r.BaseURL, taskID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("turns: build request: %w", err)
	}
	if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("turns: fetch turn tree: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("turns: fetch turn tree: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("turns: read turn tree: %w", err)
	}
	var tree Tree
	if err := json.Unmarshal(body, &tree); err != nil {
		return nil, fmt.Errorf("turns: decode turn tree: %w", err)
	}
	return &tree, nil
}

// Resolve matches the context's prompt fingerprint against the tree's user
// turns and fills the metadata fields. A miss leaves the context untouched
// apart from MetaResolved staying false.
func (r *Resolver) Resolve(ctx context.Context, taskID string, c *Context) {
	tree, err := r.TreeForTask(ctx, taskID)
	if err != nil {
		r.Log.Warn("turn metadata unavailable", "task", taskID, "err", err)
		return
	}
	ApplyTree(c, tree)
}

// ApplyTree enriches c from an already-fetched tree.
func ApplyTree(c *Context, tree *Tree) {
	if tree == nil || len(tree.TurnMapping) == 0 {
		return
	}
	userIDs := orderedUserTurns(tree)
	idx := matchTurn(c, tree, userIDs)
	if idx < 0 {
		return
	}

	id := userIDs[idx]
	entry := tree.TurnMapping[id]

	c.TurnID = id
	c.TurnIndex = idx
	c.TurnLabel = "Turn " + strconv.Itoa(idx+1)
	c.VersionIDs = append([]string(nil), entry.Children...)
	c.IsLatestTurn = tree.CurrentTurnID == id
	for _, v := range c.VersionIDs {
		if v == tree.CurrentTurnID {
			c.IsLatestTurn = true
			c.LatestAssistantID = v
		}
	}
	if c.LatestAssistantID == "" && len(c.VersionIDs) > 0 {
		c.LatestAssistantID = c.VersionIDs[len(c.VersionIDs)-1]
	}

	c.VersionIDByLabel = make(map[string]string)
	for i, v := range c.VersionIDs {
		c.VersionIDByLabel["Version "+strconv.Itoa(i+1)] = v
	}
	c.MetaResolved = true
}

var versionNumberPattern = regexp.MustCompile(`\d+`)

// VersionID maps a DOM version label to its backend assistant turn id.
func (c *Context) VersionID(label string) string {
	if id, ok := c.VersionIDByLabel[label]; ok {
		return id
	}
	// Labels occasionally render with extra text; fall back to the number.
	if m := versionNumberPattern.FindString(label); m != "" {
		if id, ok := c.VersionIDByLabel["Version "+m]; ok {
			return id
		}
	}
	return ""
}

// orderedUserTurns walks the tree from its root and returns user turn ids
// in conversation order. Map iteration order never leaks into indices.
func orderedUserTurns(tree *Tree) []string {
	referenced := make(map[string]bool)
	for _, e := range tree.TurnMapping {
		for _, ch := range e.Children {
			referenced[ch] = true
		}
	}
	var roots []string
	for id := range tree.TurnMapping {
		if !referenced[id] {
			roots = append(roots, id)
		}
	}
	// Tie-break degenerate trees deterministically.
	sort.Strings(roots)

	var out []string
	seen := make(map[string]bool)
	var walk func(id string)
	walk = func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		e, ok := tree.TurnMapping[id]
		if !ok {
			return
		}
		if e.Turn.Role == "user" {
			out = append(out, id)
		}
		for _, ch := range e.Children {
			walk(ch)
		}
	}
	for _, root := range roots {
		walk(root)
	}
	return out
}

// matchTurn finds the user turn whose prompt fingerprint prefix-contains
// (or is contained by) the context's. Position disambiguates duplicates:
// the candidate whose tree position is closest to the DOM index wins.
func matchTurn(c *Context, tree *Tree, userIDs []string) int {
	if c.TurnKey == "" {
		// No prompt text: align by position when plausible.
		if c.Index < len(userIDs) {
			return c.Index
		}
		return -1
	}
	best := -1
	bestDist := int(^uint(0) >> 1)
	for i, id := range userIDs {
		e := tree.TurnMapping[id]
		fp := Fingerprint(e.Text())
		if fp == "" {
			continue
		}
		if !strings.HasPrefix(fp, c.TurnKey) && !strings.HasPrefix(c.TurnKey, fp) {
			continue
		}
		d := c.Index - i
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}
