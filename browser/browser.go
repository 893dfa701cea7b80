// Package browser attaches a translation session to a live Chrome. It
// pulls the rendered DOM and the user's selection out of a tab and pushes
// the mutated document back, so the rest of the pipeline can work on
// parsed HTML without caring where it came from.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Config configures a Session.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// Stealth opens tabs through the stealth plugin.
	Stealth bool

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Session owns one Chrome connection.
type Session struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewSession creates a Session. Call Start to connect.
func NewSession(cfg Config) *Session {
	cfg.defaults()
	return &Session{cfg: cfg}
}

// Start launches Chrome or connects to a remote instance.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("browser: session is closed")
	}

	wsURL := s.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().
			Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		s.lnch = l
		s.cfg.Logger.Info("browser: launched local chrome", "url", wsURL)
	} else {
		s.cfg.Logger.Info("browser: connecting to remote", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("browser: connect: %w", err)
	}
	s.browser = b
	return nil
}

// Close shuts down Chrome.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.browser != nil {
		s.browser.Close()
		s.browser = nil
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
		s.lnch = nil
	}
	return nil
}

// Tab wraps a Rod page opened for translation.
type Tab struct {
	Page    *rod.Page
	PageURL string
	logger  *slog.Logger
}

// OpenTab creates a tab and navigates it to pageURL.
func (s *Session) OpenTab(ctx context.Context, pageURL string) (*Tab, error) {
	s.mu.Lock()
	b := s.browser
	s.mu.Unlock()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	var page *rod.Page
	var err error
	if s.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
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
		s.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	return &Tab{Page: page, PageURL: pageURL, logger: s.cfg.Logger}, nil
}

// HTML serialises the tab's complete DOM as outer HTML.
func (t *Tab) HTML(ctx context.Context) (string, error) {
	res, err := t.Page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("browser: get DOM: %w", err)
	}
	return res.Value.Str(), nil
}

// SelectedText reads the current selection's text, empty when nothing is
// selected.
func (t *Tab) SelectedText(ctx context.Context) (string, error) {
	res, err := t.Page.Context(ctx).Eval(`() => String(window.getSelection())`)
	if err != nil {
		return "", fmt.Errorf("browser: read selection: %w", err)
	}
	return res.Value.Str(), nil
}

// ClearSelection collapses the tab's selection.
func (t *Tab) ClearSelection(ctx context.Context) error {
	_, err := t.Page.Context(ctx).Eval(`() => window.getSelection().removeAllRanges()`)
	if err != nil {
		return fmt.Errorf("browser: clear selection: %w", err)
	}
	return nil
}

// Apply replaces the document with the mutated HTML. Scripts in the new
// document do not re-execute; this pushes the spliced spans back into the
// rendered page.
func (t *Tab) Apply(ctx context.Context, html string) error {
	_, err := t.Page.Context(ctx).Eval(`(src) => {
		document.open();
		document.write(src);
		document.close();
	}`, html)
	if err != nil {
		return fmt.Errorf("browser: apply: %w", err)
	}
	return nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
