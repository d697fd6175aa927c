// Package browser owns the Chrome side of a capture session: launching or
// attaching to a browser via Rod, opening the task page, and exposing it as
// a capture.Driver. Every snapshot is annotated in-page before serialising,
// so everything above this package works on plain HTML trees.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the DevTools URL of an already-running Chrome
	// (ws://... or http://host:9222). Empty = launch a local Chrome.
	RemoteURL string

	// Headless applies to locally launched Chrome only. Attaching to the
	// user's own browser is the normal mode, since the task page sits
	// behind their login session.
	Headless bool

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager manages one Chrome connection.
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewManager creates a browser Manager. Call Start to connect.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start connects to the remote Chrome or launches a local one and returns
// the Rod browser handle.
func (m *Manager) Start(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("browser: manager is closed")
	}
	if m.browser != nil {
		return m.browser, nil
	}

	log := m.cfg.Logger
	var wsURL string

	if m.cfg.RemoteURL != "" {
		u := m.cfg.RemoteURL
		if !strings.HasPrefix(u, "ws") {
			resolved, err := launcher.ResolveURL(u)
			if err != nil {
				return nil, fmt.Errorf("browser: resolve %s: %w", u, err)
			}
			u = resolved
		}
		wsURL = u
		log.Info("browser: attaching to remote", "url", m.cfg.RemoteURL)
	} else {
		l := launcher.New().
			Headless(m.cfg.Headless).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "headless", m.cfg.Headless)
	}

	b := rod.New().ControlURL(wsURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("browser: ignore cert errors failed", "error", err)
	}

	m.browser = b
	return b, nil
}

// Browser returns the current Rod browser handle, nil before Start.
func (m *Manager) Browser() *rod.Browser {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.browser
}

// Remote reports whether the manager attached to an external Chrome. An
// attached browser is the user's own and must survive Close.
func (m *Manager) Remote() bool { return m.cfg.RemoteURL != "" }

// Close disconnects, and shuts Chrome down only when this process
// launched it.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true

	if m.browser != nil {
		m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return nil
}
