// Package translate fronts the locally hosted language model. The engine
// consumes it through the Client contract: text plus an optional context
// window in, translated text out, with a small typed failure taxonomy
// (transport, malformed, rejected, retries exhausted).
package translate

import (
	"context"

	"github.com/wdanxna/LocalLLMTranslator/selection"
)

// Client is the translation collaborator contract.
type Client interface {
	// Translate returns the translation of text. win may be nil when no
	// context is available.
	Translate(ctx context.Context, text string, win *selection.Window) (string, error)
}

// Func adapts a plain function to the Client interface.
type Func func(ctx context.Context, text string, win *selection.Window) (string, error)

// Translate implements Client.
func (f Func) Translate(ctx context.Context, text string, win *selection.Window) (string, error) {
	return f(ctx, text, win)
}
