package nativemsg

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/wdanxna/LocalLLMTranslator/bridge"
	"github.com/wdanxna/LocalLLMTranslator/selection"
)

// hostRequest is the frame the extension background script sends.
type hostRequest struct {
	Type    string            `json:"type"`
	Text    string            `json:"text"`
	Context *selection.Window `json:"context,omitempty"`
}

// hostReply mirrors the reply format the extension has always consumed:
// exactly one of result or error is set, plus the startup status frame.
type hostReply struct {
	Status string `json:"status,omitempty"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Host runs the native-messaging loop: announce readiness, then serve
// translate frames until the browser closes the pipe.
type Host struct {
	router *bridge.Router
	in     *Reader
	out    *Writer
	logger *slog.Logger
}

// NewHost builds a Host reading frames from in and replying on out.
func NewHost(router *bridge.Router, in io.Reader, out io.Writer, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		router: router,
		in:     NewReader(in),
		out:    NewWriter(out),
		logger: logger,
	}
}

// Run serves until the stream ends or ctx is cancelled. Per-frame failures
// are answered on the wire and logged; they never kill the loop or reach
// the browser as a crash.
func (h *Host) Run(ctx context.Context) error {
	if err := h.out.Write(hostReply{Status: "ready"}); err != nil {
		return err
	}
	h.logger.Info("native messaging host started")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		frame, err := h.in.Read()
		if errors.Is(err, io.EOF) {
			h.logger.Info("native messaging host stopped", "reason", "stream closed")
			return nil
		}
		if err != nil {
			h.logger.Error("read frame failed", "error", err)
			return err
		}
		h.serve(ctx, frame)
	}
}

func (h *Host) serve(ctx context.Context, frame []byte) {
	var req hostRequest
	if err := json.Unmarshal(frame, &req); err != nil {
		h.reply(hostReply{Error: "invalid message: " + err.Error()})
		return
	}

	if req.Type != "translate" {
		h.logger.Warn("unknown message type", "type", req.Type)
		h.reply(hostReply{Error: "unknown message type"})
		return
	}
	if req.Text == "" {
		h.reply(hostReply{Error: "no text provided for translation"})
		return
	}

	payload, err := json.Marshal(bridge.Message{
		Type:    bridge.TypeTranslateHotkey,
		Text:    req.Text,
		Context: req.Context,
	})
	if err != nil {
		h.reply(hostReply{Error: err.Error()})
		return
	}

	data, err := h.router.Dispatch(ctx, bridge.TypeTranslateHotkey, payload)
	if err != nil {
		h.reply(hostReply{Error: err.Error()})
		return
	}

	var resp bridge.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		h.reply(hostReply{Error: "internal: bad handler response"})
		return
	}
	if !resp.Success {
		h.reply(hostReply{Error: resp.Error})
		return
	}
	h.reply(hostReply{Result: resp.Translation})
}

func (h *Host) reply(r hostReply) {
	if err := h.out.Write(r); err != nil {
		h.logger.Error("write reply failed", "error", err)
	}
}
