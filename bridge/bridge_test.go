package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wdanxna/LocalLLMTranslator/selection"
	"github.com/wdanxna/LocalLLMTranslator/translate"
)

func dispatchMessage(t *testing.T, r *Router, msg Message) Response {
	t.Helper()
	payload, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	data, err := r.Dispatch(context.Background(), msg.Type, payload)
	if err != nil {
		t.Fatal(err)
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestTranslateHotkeyRoundTrip(t *testing.T) {
	var gotText string
	var gotWin *selection.Window
	client := translate.Func(func(_ context.Context, text string, win *selection.Window) (string, error) {
		gotText, gotWin = text, win
		return "你好世界", nil
	})

	r := NewRouter()
	r.RegisterLocal(TypeTranslateHotkey, TranslateHandler(client))

	resp := dispatchMessage(t, r, Message{
		Type:    TypeTranslateHotkey,
		Text:    "hello world",
		Context: &selection.Window{Before: "say", After: "loudly"},
	})

	if !resp.Success || resp.Translation != "你好世界" {
		t.Fatalf("resp = %+v", resp)
	}
	if gotText != "hello world" || gotWin == nil || gotWin.Before != "say" {
		t.Fatalf("handler saw text=%q win=%+v", gotText, gotWin)
	}
}

func TestTranslateFailureFoldedIntoResponse(t *testing.T) {
	client := translate.Func(func(context.Context, string, *selection.Window) (string, error) {
		return "", errors.New("endpoint unreachable")
	})

	r := NewRouter()
	r.RegisterLocal(TypeTranslateHotkey, TranslateHandler(client))

	resp := dispatchMessage(t, r, Message{Type: TypeTranslateHotkey, Text: "x"})
	if resp.Success {
		t.Fatal("expected failure response")
	}
	if !strings.Contains(resp.Error, "endpoint unreachable") {
		t.Fatalf("error = %q, must carry the underlying message", resp.Error)
	}
}

func TestEmptyTextRejected(t *testing.T) {
	r := NewRouter()
	r.RegisterLocal(TypeTranslateHotkey, TranslateHandler(translate.Func(
		func(context.Context, string, *selection.Window) (string, error) {
			t.Fatal("client must not be called for empty text")
			return "", nil
		})))

	resp := dispatchMessage(t, r, Message{Type: TypeTranslateHotkey})
	if resp.Success || resp.Error == "" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestUnknownTypeErrors(t *testing.T) {
	r := NewRouter()
	_, err := r.Dispatch(context.Background(), "unknownType", nil)
	var nh *ErrNoHandler
	if !errors.As(err, &nh) || nh.Type != "unknownType" {
		t.Fatalf("err = %v", err)
	}
}

func TestHTTPHandlerPostsPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "translateTextHotkey") {
			t.Errorf("body = %s", body)
		}
		json.NewEncoder(w).Encode(Response{Success: true, Translation: "ok"})
	}))
	defer srv.Close()

	h, err := HTTPHandler(srv.URL, time.Second)
	if err != nil {
		t.Fatal(err)
	}

	data, err := h(context.Background(), []byte(`{"type":"translateTextHotkey","text":"hi"}`))
	if err != nil {
		t.Fatal(err)
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestHTTPHandlerRefusesRemoteEndpoint(t *testing.T) {
	if _, err := HTTPHandler("https://collector.example.com/translate", time.Second); err == nil {
		t.Fatal("remote endpoint must be refused")
	}
}

func TestHTTPHandlerSurfacesStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	h, err := HTTPHandler(srv.URL, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h(context.Background(), []byte(`{}`)); err == nil {
		t.Fatal("expected error for non-2xx status")
	}
}
