package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/wdanxna/LocalLLMTranslator/safe"
	"github.com/wdanxna/LocalLLMTranslator/selection"
)

// DefaultPrompt mirrors the prompt the native host has always used.
const DefaultPrompt = "Translate the following English text to Chinese, maintaining the original meaning and tone. Only output the Chinese translation, nothing else:"

const defaultEndpoint = "http://localhost:11434"

// Config configures an Ollama client.
type Config struct {
	// Endpoint is the Ollama base URL (default: http://localhost:11434).
	// It must point at a local address.
	Endpoint string

	// Model is the model name passed to /api/generate (default: phi4:latest).
	Model string

	// Prompt is the instruction prefixed to every request (default:
	// DefaultPrompt).
	Prompt string

	// MaxRetries is the number of additional attempts after a transport
	// failure (default: 3). Malformed or rejected responses never retry.
	MaxRetries int

	// Timeout is the per-request HTTP timeout (default: 60s).
	Timeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Endpoint == "" {
		c.Endpoint = defaultEndpoint
	}
	if c.Model == "" {
		c.Model = "phi4:latest"
	}
	if c.Prompt == "" {
		c.Prompt = DefaultPrompt
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	} else if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Ollama talks to a local Ollama server via POST /api/generate.
//
// Retry behaviour: transport failures (connection refused, unreachable,
// timeout) are retried immediately up to MaxRetries additional times in an
// explicit bounded loop. The attempt counter resets to zero after any
// success and after exhausting the budget. Overlapping calls from the same
// event loop may interleave counter updates; the single-threaded page model
// makes that acceptable.
type Ollama struct {
	cfg    Config
	client *http.Client

	// retries is the current retry counter, observable via Retries().
	retries int
}

// NewOllama validates the endpoint and builds a client.
func NewOllama(cfg Config) (*Ollama, error) {
	cfg.defaults()
	if err := safe.ValidateLocalURL(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("translate: endpoint %q: %w", cfg.Endpoint, err)
	}
	return &Ollama{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Retries returns the current value of the retry counter.
func (o *Ollama) Retries() int { return o.retries }

// generateRequest is the Ollama /api/generate request body.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse is the subset of the Ollama response the client reads.
type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Translate implements Client.
func (o *Ollama) Translate(ctx context.Context, text string, win *selection.Window) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  o.cfg.Model,
		Prompt: o.buildPrompt(text, win),
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("translate: marshal request: %w", err)
	}

	// The same request bytes are reused across attempts; context is not
	// recomputed inside the retry loop.
	for attempt := 0; ; attempt++ {
		out, err := o.generate(ctx, body)
		if err == nil {
			o.retries = 0
			return out, nil
		}
		if !IsTransport(err) {
			return "", err
		}
		if attempt >= o.cfg.MaxRetries {
			o.retries = 0
			return "", &MaxRetriesError{Attempts: attempt + 1, Last: err}
		}
		o.retries = attempt + 1
		o.cfg.Logger.Warn("translate: transport failure, retrying",
			"attempt", attempt+1, "max_retries", o.cfg.MaxRetries, "error", err)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
}

func (o *Ollama) generate(ctx context.Context, body []byte) (string, error) {
	url := strings.TrimRight(o.cfg.Endpoint, "/") + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("translate: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", classifyTransport(err)
	}
	defer resp.Body.Close()

	data, err := safe.LimitedReadAll(resp.Body, safe.MaxResponseBody)
	if err != nil {
		if errors.Is(err, safe.ErrResponseTooLarge) {
			return "", &MalformedError{Cause: err}
		}
		return "", classifyTransport(err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &RejectedError{Status: resp.StatusCode, Body: truncate(string(data), 200)}
	}

	var parsed generateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", &MalformedError{Cause: err}
	}
	if parsed.Error != "" {
		return "", &RejectedError{Status: resp.StatusCode, Body: parsed.Error}
	}
	out := strings.TrimSpace(parsed.Response)
	if out == "" {
		return "", &MalformedError{Cause: errors.New("empty response field")}
	}
	return out, nil
}

// buildPrompt assembles the instruction, the optional context window, and
// the text to translate.
func (o *Ollama) buildPrompt(text string, win *selection.Window) string {
	if win == nil || (win.Before == "" && win.After == "") {
		return o.cfg.Prompt + "\n\n" + text
	}
	var sb strings.Builder
	sb.WriteString(o.cfg.Prompt)
	sb.WriteString("\n\nSurrounding context, for reference only, do not translate it:\n")
	if win.Before != "" {
		sb.WriteString("before: ")
		sb.WriteString(win.Before)
		sb.WriteString("\n")
	}
	if win.After != "" {
		sb.WriteString("after: ")
		sb.WriteString(win.After)
		sb.WriteString("\n")
	}
	sb.WriteString("\nText to translate:\n")
	sb.WriteString(text)
	return sb.String()
}

func classifyTransport(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransportError{Cause: err, Timeout: true}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Cause: err, Timeout: true}
	}
	return &TransportError{Cause: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
