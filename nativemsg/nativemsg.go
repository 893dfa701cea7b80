// Package nativemsg implements the browser native-messaging wire: each
// frame is a 4-byte little-endian length followed by that many bytes of
// UTF-8 JSON, in both directions over stdio.
//
// The browser caps frames it will accept from a host at 1 MiB; frames sent
// to the host can be far larger, so the reader applies its own sanity cap.
package nativemsg

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxInbound caps frames read from the browser (64 MiB sanity limit).
const MaxInbound = 64 << 20

// MaxOutbound caps frames written to the browser (hard browser limit, 1 MiB).
const MaxOutbound = 1 << 20

// ErrFrameTooLarge is returned for frames exceeding the applicable cap.
var ErrFrameTooLarge = errors.New("nativemsg: frame exceeds size limit")

// Reader decodes length-prefixed JSON frames.
type Reader struct {
	r io.Reader
}

// NewReader wraps r (normally os.Stdin).
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Read returns the next frame's raw JSON payload. A clean end of stream
// (the browser closed the pipe) is reported as io.EOF.
func (r *Reader) Read() ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r.r, lenBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("nativemsg: read length: %w", err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > MaxInbound {
		return nil, ErrFrameTooLarge
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return nil, fmt.Errorf("nativemsg: read payload: %w", err)
	}
	return payload, nil
}

// Writer encodes values as length-prefixed JSON frames.
type Writer struct {
	w io.Writer
}

// NewWriter wraps w (normally os.Stdout).
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write marshals v and writes one frame.
func (w *Writer) Write(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("nativemsg: marshal: %w", err)
	}
	if len(payload) > MaxOutbound {
		return ErrFrameTooLarge
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("nativemsg: write length: %w", err)
	}
	if _, err := w.w.Write(payload); err != nil {
		return fmt.Errorf("nativemsg: write payload: %w", err)
	}
	return nil
}
