// Package bridge routes messages between the page context and the
// background context. The page script knows message types, not transports:
// a handler may run in-process or POST to the host daemon, and the caller
// never sees the difference.
//
//	router := bridge.NewRouter()
//	router.RegisterLocal(bridge.TypeTranslateHotkey, handler)
//	resp, err := router.Dispatch(ctx, bridge.TypeTranslateHotkey, payload)
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wdanxna/LocalLLMTranslator/selection"
	"github.com/wdanxna/LocalLLMTranslator/translate"
)

// TypeTranslateHotkey is the message the page sends when a qualifying tap
// lands on a non-empty selection.
const TypeTranslateHotkey = "translateTextHotkey"

// Message is the inbound wire format.
type Message struct {
	Type    string            `json:"type"`
	Text    string            `json:"text"`
	Context *selection.Window `json:"context,omitempty"`
}

// Response is the outbound wire format. Errors are folded into the value;
// a handler answer is always well-formed JSON, never a panic.
type Response struct {
	Success     bool   `json:"success"`
	Translation string `json:"translation,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Handler is a transport-agnostic message function: bytes in, bytes out.
type Handler func(ctx context.Context, payload []byte) ([]byte, error)

// ErrNoHandler is returned when a message type has no registered handler.
type ErrNoHandler struct {
	Type string
}

func (e *ErrNoHandler) Error() string {
	return fmt.Sprintf("bridge: no handler for message type %q", e.Type)
}

// Router dispatches messages by type. Thread-safe.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// NewRouter creates an empty Router.
func NewRouter(opts ...Option) *Router {
	r := &Router{
		handlers: make(map[string]Handler),
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// RegisterLocal registers an in-process handler for a message type.
func (r *Router) RegisterLocal(msgType string, h Handler) {
	r.mu.Lock()
	r.handlers[msgType] = h
	r.mu.Unlock()
}

// Dispatch routes a payload to the handler for msgType.
func (r *Router) Dispatch(ctx context.Context, msgType string, payload []byte) ([]byte, error) {
	r.mu.RLock()
	h := r.handlers[msgType]
	r.mu.RUnlock()

	if h == nil {
		return nil, &ErrNoHandler{Type: msgType}
	}
	r.logger.DebugContext(ctx, "bridge: dispatching", "type", msgType, "bytes", len(payload))
	return h(ctx, payload)
}

// TranslateHandler builds the handler for TypeTranslateHotkey backed by a
// translation client. All failures come back inside the Response value so
// the host page is never crashed by an unhandled error.
func TranslateHandler(client translate.Client) Handler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			return marshalResponse(Response{Success: false, Error: "invalid message: " + err.Error()})
		}
		if msg.Text == "" {
			return marshalResponse(Response{Success: false, Error: "no text provided for translation"})
		}

		out, err := client.Translate(ctx, msg.Text, msg.Context)
		if err != nil {
			return marshalResponse(Response{Success: false, Error: err.Error()})
		}
		return marshalResponse(Response{Success: true, Translation: out})
	}
}

func marshalResponse(resp Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("bridge: marshal response: %w", err)
	}
	return data, nil
}
