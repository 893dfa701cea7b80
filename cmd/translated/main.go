// translated — select-to-translate host daemon and CLI.
//
// Serves the browser extension over native messaging, HTTP, or MCP, and
// offers one-shot translation and history inspection from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/wdanxna/LocalLLMTranslator/bridge"
	"github.com/wdanxna/LocalLLMTranslator/browser"
	"github.com/wdanxna/LocalLLMTranslator/config"
	"github.com/wdanxna/LocalLLMTranslator/history"
	"github.com/wdanxna/LocalLLMTranslator/i18n"
	"github.com/wdanxna/LocalLLMTranslator/mcptool"
	"github.com/wdanxna/LocalLLMTranslator/nativemsg"
	"github.com/wdanxna/LocalLLMTranslator/page"
	"github.com/wdanxna/LocalLLMTranslator/selection"
	"github.com/wdanxna/LocalLLMTranslator/splice"
	"github.com/wdanxna/LocalLLMTranslator/translate"
)

var (
	version = "dev"
	commit  = "none"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "translated",
		Short: "Select-to-translate host: local LLM translation for web pages",
		Long: `translated — select-to-translate host daemon and CLI.

Translates selected text through a local Ollama endpoint and splices the
result back into the page, keeping the original text one tap away.

Commands:
  serve       Run the host daemon (native messaging, HTTP, or MCP)
  translate   Translate text once and print the result
  history     Show recent translation events
  version     Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: $TRANSLATED_CONFIG)")

	root.AddCommand(
		newServeCmd(),
		newTranslateCmd(),
		newHistoryCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the YAML config named by --config or TRANSLATED_CONFIG,
// falling back to defaults when neither is set.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("TRANSLATED_CONFIG")
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadFile(path)
}

func newLogger(cfg *config.Config, w *os.File) *slog.Logger {
	var lvl slog.Level
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

func newClient(cfg *config.Config, logger *slog.Logger) (*translate.Ollama, error) {
	return translate.NewOllama(translate.Config{
		Endpoint:   cfg.Translate.Endpoint,
		Model:      cfg.Translate.Model,
		Prompt:     cfg.Translate.Prompt,
		MaxRetries: cfg.Translate.MaxRetries,
		Timeout:    cfg.Translate.Timeout,
		Logger:     logger,
	})
}

func openRecorder(cfg *config.Config, logger *slog.Logger) (*history.Recorder, error) {
	if cfg.History.Path == "" {
		return nil, nil
	}
	return history.Open(cfg.History.Path, logger)
}

// ---------------------------------------------------------------------------
// serve
// ---------------------------------------------------------------------------

func newServeCmd() *cobra.Command {
	var (
		native   bool
		httpAddr string
		mcpMode  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the host daemon",
		Long: `Run the translation host.

Modes (pick one):
  --native        speak Chrome native messaging on stdin/stdout
  --http ADDR     listen for extension requests over HTTP
  --mcp           serve MCP tools on stdin/stdout`,
		RunE: func(cmd *cobra.Command, args []string) error {
			modes := 0
			for _, on := range []bool{native, httpAddr != "", mcpMode} {
				if on {
					modes++
				}
			}
			if modes != 1 {
				return fmt.Errorf("pick exactly one of --native, --http, --mcp")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// stdout is the wire in native and MCP modes.
			logOut := os.Stdout
			if native || mcpMode {
				logOut = os.Stderr
			}
			logger := newLogger(cfg, logOut)
			i18n.Init("")

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			client, err := newClient(cfg, logger)
			if err != nil {
				return err
			}
			recorder, err := openRecorder(cfg, logger)
			if err != nil {
				return err
			}
			if recorder != nil {
				defer recorder.Close()
				if err := recorder.Cleanup(ctx, cfg.History.RetentionDays); err != nil {
					logger.Warn("history cleanup failed", "error", err)
				}
			}

			router := bridge.NewRouter(bridge.WithLogger(logger))
			router.RegisterLocal(bridge.TypeTranslateHotkey,
				recordingHandler(bridge.TranslateHandler(client), recorder, cfg.Translate.Model))

			switch {
			case native:
				host := nativemsg.NewHost(router, os.Stdin, os.Stdout, logger)
				logger.Info("serving native messaging host")
				return host.Run(ctx)
			case mcpMode:
				svc := &mcptool.Service{Client: client, Recorder: recorder}
				srv := mcp.NewServer(&mcp.Implementation{Name: "translated", Version: version}, nil)
				svc.RegisterAll(srv)
				logger.Info("serving MCP on stdio")
				return srv.Run(ctx, &mcp.StdioTransport{})
			default:
				handler := bridge.NewHTTPServer(router, bridge.ServerConfig{
					TokenHash: cfg.HTTP.TokenHash,
					Logger:    logger,
				})
				srv := &http.Server{Addr: httpAddr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
					defer stop()
					srv.Shutdown(shutdownCtx)
				}()
				logger.Info("serving HTTP", "addr", httpAddr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					return err
				}
				return nil
			}
		},
	}

	cmd.Flags().BoolVar(&native, "native", false, "Serve Chrome native messaging on stdio")
	cmd.Flags().StringVar(&httpAddr, "http", "", "Serve HTTP on this address (e.g. 127.0.0.1:8787)")
	cmd.Flags().BoolVar(&mcpMode, "mcp", false, "Serve MCP tools on stdio")
	return cmd
}

// recordingHandler logs each dispatched translation into the history store.
func recordingHandler(h bridge.Handler, rec *history.Recorder, model string) bridge.Handler {
	if rec == nil {
		return h
	}
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		start := time.Now()
		out, err := h(ctx, payload)
		e := history.Event{Kind: history.KindTranslated, Model: model,
			DurationMs: time.Since(start).Milliseconds()}
		var msg bridge.Message
		if uerr := json.Unmarshal(payload, &msg); uerr == nil {
			e.Original = msg.Text
			if msg.Context != nil {
				e.ContextBefore = msg.Context.Before
				e.ContextAfter = msg.Context.After
			}
		}
		var resp bridge.Response
		if err != nil {
			e.Kind = history.KindFailed
			e.Error = err.Error()
		} else if uerr := json.Unmarshal(out, &resp); uerr == nil {
			if resp.Success {
				e.Translated = resp.Translation
			} else {
				e.Kind = history.KindFailed
				e.Error = resp.Error
			}
		}
		rec.Record(ctx, e)
		return out, err
	}
}

// ---------------------------------------------------------------------------
// translate (one-shot)
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var (
		before  string
		after   string
		pageURL string
	)

	cmd := &cobra.Command{
		Use:   "translate TEXT",
		Short: "Translate text once and print the result",
		Long: `Translate TEXT through the configured endpoint and print the result.

With --url, the text is located inside the live page, replaced in place,
and the mutated document is pushed back into the browser tab.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg, os.Stderr)
			i18n.Init("")

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			client, err := newClient(cfg, logger)
			if err != nil {
				return err
			}

			if pageURL != "" {
				return translateInPage(ctx, cfg, logger, client, pageURL, args[0])
			}

			var win *selection.Window
			if before != "" || after != "" {
				win = &selection.Window{Before: before, After: after}
			}
			out, err := client.Translate(ctx, args[0], win)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&before, "before", "", "Context preceding the text")
	cmd.Flags().StringVar(&after, "after", "", "Context following the text")
	cmd.Flags().StringVar(&pageURL, "url", "", "Translate the text inside this live page")
	return cmd
}

// translateInPage pulls the rendered document out of a Chrome tab, splices
// the translation in, and pushes the document back.
func translateInPage(ctx context.Context, cfg *config.Config, logger *slog.Logger, client translate.Client, pageURL, text string) error {
	session := browser.NewSession(browser.Config{
		RemoteURL: cfg.Browser.Remote,
		Stealth:   cfg.Browser.Stealth,
		Logger:    logger,
	})
	if err := session.Start(ctx); err != nil {
		return err
	}
	defer session.Close()

	tab, err := session.OpenTab(ctx, pageURL)
	if err != nil {
		return err
	}
	defer tab.Close()

	src, err := tab.HTML(ctx)
	if err != nil {
		return err
	}
	doc, err := page.LoadString(src)
	if err != nil {
		return err
	}
	rng := doc.FindText(text)
	if rng == nil {
		return fmt.Errorf("text %q not found on %s", text, pageURL)
	}
	win, ok := rng.Context(cfg.Context.MaxTokens)
	if !ok {
		return fmt.Errorf("selection is empty")
	}
	translated, err := client.Translate(ctx, text, &win)
	if err != nil {
		return err
	}
	if _, err := splice.Replace(rng, text, translated); err != nil {
		return err
	}
	out, err := doc.Render()
	if err != nil {
		return err
	}
	if err := tab.Apply(ctx, out); err != nil {
		return err
	}
	if err := tab.ClearSelection(ctx); err != nil {
		logger.Warn("clear selection failed", "error", err)
	}
	fmt.Println(translated)
	return nil
}

// ---------------------------------------------------------------------------
// history
// ---------------------------------------------------------------------------

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent translation events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg, os.Stderr)
			if cfg.History.Path == "" {
				return fmt.Errorf("history is disabled: set history.path in the config")
			}
			rec, err := history.Open(cfg.History.Path, logger)
			if err != nil {
				return err
			}
			defer rec.Close()

			events, err := rec.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Println("no events")
				return nil
			}
			for _, e := range events {
				ts := time.Unix(e.CreatedAt, 0).Format(time.RFC3339)
				switch e.Kind {
				case history.KindTranslated:
					fmt.Printf("%s  %-10s  %q -> %q  (%dms)\n", ts, e.Kind, e.Original, e.Translated, e.DurationMs)
				case history.KindFailed:
					fmt.Printf("%s  %-10s  %q  error: %s\n", ts, e.Kind, e.Original, e.Error)
				default:
					fmt.Printf("%s  %-10s  %q\n", ts, e.Kind, e.Original)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum events to show")
	return cmd
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("translated %s (%s)\n", version, commit)
		},
	}
}
