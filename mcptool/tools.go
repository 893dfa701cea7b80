package mcptool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wdanxna/LocalLLMTranslator/history"
	"github.com/wdanxna/LocalLLMTranslator/page"
	"github.com/wdanxna/LocalLLMTranslator/selection"
	"github.com/wdanxna/LocalLLMTranslator/splice"
	"github.com/wdanxna/LocalLLMTranslator/translate"
)

// Service groups what the tools operate on. The recorder may be nil.
type Service struct {
	Client   translate.Client
	Recorder *history.Recorder
}

// RegisterAll registers every translator tool on an MCP server.
func (s *Service) RegisterAll(srv *mcp.Server) {
	s.registerTranslateText(srv)
	s.registerTranslatePage(srv)
	s.registerHistory(srv)
}

// --- translate_text ---

type translateTextReq struct {
	Text          string `json:"text"`
	ContextBefore string `json:"context_before"`
	ContextAfter  string `json:"context_after"`
}

func (s *Service) registerTranslateText(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "translate_text",
		Description: "Translate a text snippet to Chinese using the local model. Optional surrounding context improves accuracy but is never translated.",
		InputSchema: inputSchema(map[string]any{
			"text":           map[string]any{"type": "string", "description": "Text to translate"},
			"context_before": map[string]any{"type": "string", "description": "Text immediately preceding the snippet"},
			"context_after":  map[string]any{"type": "string", "description": "Text immediately following the snippet"},
		}, []string{"text"}),
	}

	RegisterTool(srv, tool, func(ctx context.Context, r translateTextReq) (any, error) {
		if r.Text == "" {
			return nil, fmt.Errorf("text is required")
		}
		var win *selection.Window
		if r.ContextBefore != "" || r.ContextAfter != "" {
			win = &selection.Window{Before: r.ContextBefore, After: r.ContextAfter}
		}
		translated, err := s.Client.Translate(ctx, r.Text, win)
		if err != nil {
			return nil, err
		}
		return map[string]any{"translation": translated}, nil
	})
}

// --- translate_page ---

type translatePageReq struct {
	HTML  string   `json:"html"`
	Texts []string `json:"texts"`
}

func (s *Service) registerTranslatePage(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "translate_page",
		Description: "Translate listed text occurrences inside an HTML document. Each translated span keeps the original text for undo. Returns the mutated HTML and a summary.",
		InputSchema: inputSchema(map[string]any{
			"html": map[string]any{"type": "string", "description": "HTML document"},
			"texts": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Text occurrences to translate, matched against visible text",
			},
		}, []string{"html", "texts"}),
	}

	RegisterTool(srv, tool, func(ctx context.Context, r translatePageReq) (any, error) {
		p, err := page.LoadString(r.HTML)
		if err != nil {
			return nil, err
		}
		var translated, missed []string
		for _, text := range r.Texts {
			rng := p.FindText(text)
			if rng == nil {
				missed = append(missed, text)
				continue
			}
			win, ok := rng.Context(selection.DefaultMaxTokens)
			if !ok {
				missed = append(missed, text)
				continue
			}
			out, err := s.Client.Translate(ctx, text, &win)
			if err != nil {
				return nil, fmt.Errorf("translate %q: %w", text, err)
			}
			if _, err := splice.Replace(rng, text, out); err != nil {
				return nil, fmt.Errorf("splice %q: %w", text, err)
			}
			translated = append(translated, text)
		}
		out, err := p.Render()
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"html":       out,
			"translated": translated,
			"missed":     missed,
			"report":     p.Report(),
		}, nil
	})
}

// --- translate_history ---

type historyReq struct {
	Limit int `json:"limit"`
}

func (s *Service) registerHistory(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "translate_history",
		Description: "List recent translation events (requests, results, failures, undos), newest first.",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Maximum events to return (default 20)"},
		}, nil),
	}

	RegisterTool(srv, tool, func(ctx context.Context, r historyReq) (any, error) {
		if s.Recorder == nil {
			return nil, fmt.Errorf("history is disabled")
		}
		events, err := s.Recorder.Recent(ctx, r.Limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"events": events}, nil
	})
}
