// Package hotkey drives the select-to-translate interaction: it watches the
// trigger key through a tap recognizer and, on each tap, decides between
// restoring a translated span and translating the current selection.
package hotkey

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/wdanxna/LocalLLMTranslator/gesture"
	"github.com/wdanxna/LocalLLMTranslator/history"
	"github.com/wdanxna/LocalLLMTranslator/i18n"
	"github.com/wdanxna/LocalLLMTranslator/notify"
	"github.com/wdanxna/LocalLLMTranslator/selection"
	"github.com/wdanxna/LocalLLMTranslator/splice"
	"github.com/wdanxna/LocalLLMTranslator/translate"
)

// Outcome describes what a completed tap did.
type Outcome int

const (
	// OutcomeNone means the tap had nothing to act on.
	OutcomeNone Outcome = iota
	// OutcomeUndone means a translated span was restored to its original text.
	OutcomeUndone
	// OutcomeTranslated means the selection was replaced with its translation.
	OutcomeTranslated
	// OutcomeFailed means translation was attempted and failed.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUndone:
		return "undone"
	case OutcomeTranslated:
		return "translated"
	case OutcomeFailed:
		return "failed"
	default:
		return "none"
	}
}

// Config tunes the controller. Zero values pick the defaults.
type Config struct {
	TapThreshold time.Duration
	MaxTokens    int
	Model        string
	Logger       *slog.Logger
}

// Controller owns the interaction state for one document: the hovered node,
// the active selection, and the tap recognizer. Callers feed it pointer and
// keyboard events; it mutates the document through the splice package.
type Controller struct {
	client   translate.Client
	notifier *notify.Notifier
	recorder *history.Recorder // optional
	rec      *gesture.Recognizer
	logger   *slog.Logger

	maxTokens int
	model     string

	mu    sync.Mutex
	doc   *html.Node
	hover *html.Node
	sel   *selection.Range
}

// New creates a Controller. The notifier is required; the recorder may be
// nil to disable history.
func New(client translate.Client, notifier *notify.Notifier, recorder *history.Recorder, cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = selection.DefaultMaxTokens
	}
	return &Controller{
		client:    client,
		notifier:  notifier,
		recorder:  recorder,
		rec:       gesture.New(cfg.TapThreshold),
		logger:    cfg.Logger,
		maxTokens: cfg.MaxTokens,
		model:     cfg.Model,
	}
}

// SetDocument attaches the controller to a document and resets interaction
// state carried over from the previous one.
func (c *Controller) SetDocument(doc *html.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc = doc
	c.hover = nil
	c.sel = nil
}

// SetHover records the node currently under the pointer.
func (c *Controller) SetHover(n *html.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hover = n
}

// SetSelection records the active selection.
func (c *Controller) SetSelection(r *selection.Range) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sel = r
}

// Selection returns the active selection, or nil.
func (c *Controller) Selection() *selection.Range {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel
}

// ClearSelection drops the active selection.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sel = nil
}

// KeyDown feeds a trigger-key press into the recognizer.
func (c *Controller) KeyDown(at time.Time, repeat bool) {
	c.rec.KeyDown(at, repeat)
}

// KeyUp feeds a trigger-key release into the recognizer. When the release
// completes a tap, the tap is handled and its outcome returned; a hold
// returns OutcomeNone.
func (c *Controller) KeyUp(ctx context.Context, at time.Time) Outcome {
	if !c.rec.KeyUp(at) {
		return OutcomeNone
	}
	return c.Tap(ctx)
}

// Tap runs one tap decision:
//
//  1. pointer over a translated span (or inside one) — restore it
//  2. selection containing a translated span — restore that
//  3. otherwise — translate the selection
//
// A selection whose boundaries no longer sit in the document is dropped
// without touching anything.
func (c *Controller) Tap(ctx context.Context) Outcome {
	c.mu.Lock()
	hover, sel, doc := c.hover, c.sel, c.doc
	c.mu.Unlock()

	if n := splice.Nearest(hover); n != nil {
		return c.undo(ctx, n)
	}

	if sel == nil {
		return OutcomeNone
	}
	if doc != nil && !sel.Attached(doc) {
		c.logger.Debug("hotkey: stale selection dropped")
		c.ClearSelection()
		return OutcomeNone
	}

	if n := splice.FirstContained(sel); n != nil {
		c.ClearSelection()
		return c.undo(ctx, n)
	}

	return c.translate(ctx, sel)
}

func (c *Controller) undo(ctx context.Context, n *html.Node) Outcome {
	original, err := splice.Undo(n)
	if err != nil {
		c.logger.Warn("hotkey: undo failed", "error", err)
		return OutcomeNone
	}
	c.mu.Lock()
	if c.hover == n {
		c.hover = nil
	}
	c.mu.Unlock()
	c.notifier.Info(i18n.T("Original text restored"))
	c.record(ctx, history.Event{Kind: history.KindUndone, Original: original})
	return OutcomeUndone
}

func (c *Controller) translate(ctx context.Context, sel *selection.Range) Outcome {
	win, ok := sel.Context(c.maxTokens)
	if !ok {
		return OutcomeNone
	}
	original := sel.Text()

	c.notifier.Info(i18n.T("Translating…"))
	c.record(ctx, history.Event{
		Kind:          history.KindRequested,
		Original:      original,
		ContextBefore: win.Before,
		ContextAfter:  win.After,
		Model:         c.model,
	})

	start := time.Now()
	translated, err := c.client.Translate(ctx, original, &win)
	if err != nil {
		notice := i18n.T("Translation failed")
		if translate.IsTransport(err) {
			notice = i18n.T("Translation endpoint unreachable")
		}
		c.logger.Error("hotkey: translate failed", "error", err)
		c.notifier.Error(notice + ": " + err.Error())
		c.record(ctx, history.Event{
			Kind:     history.KindFailed,
			Original: original,
			Model:    c.model,
			Error:    err.Error(),
		})
		return OutcomeFailed
	}

	c.mu.Lock()
	doc := c.doc
	c.mu.Unlock()
	if doc != nil && !sel.Attached(doc) {
		c.logger.Debug("hotkey: selection detached during translation, dropped")
		c.ClearSelection()
		return OutcomeNone
	}

	if _, err := splice.Replace(sel, original, translated); err != nil {
		c.logger.Error("hotkey: splice failed", "error", err)
		c.notifier.Error(i18n.T("Translation failed") + ": " + err.Error())
		return OutcomeFailed
	}
	c.ClearSelection()
	c.record(ctx, history.Event{
		Kind:       history.KindTranslated,
		Original:   original,
		Translated: translated,
		Model:      c.model,
		DurationMs: time.Since(start).Milliseconds(),
	})
	return OutcomeTranslated
}

func (c *Controller) record(ctx context.Context, e history.Event) {
	if c.recorder == nil {
		return
	}
	c.recorder.Record(ctx, e)
}
