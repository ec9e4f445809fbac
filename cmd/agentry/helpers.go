package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/germanamz/agentry/pkg/chats/content"
	"github.com/germanamz/agentry/pkg/engine"
	"github.com/joho/godotenv"
)

// defaultConfigPath is read when -config is not given and the file exists.
const defaultConfigPath = "agentry.yaml"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")) // cyan
	toolStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))            // magenta
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))            // gray
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))            // red
)

// globalFlags are shared by every command that builds an engine.
type globalFlags struct {
	config      string
	env         string
	verbose     bool
	metricsAddr string
	raw         bool
}

func (g *globalFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&g.config, "config", "", "path to configuration file (default: agentry.yaml, else environment)")
	fs.StringVar(&g.env, "env", ".env", "path to .env file (ignored if missing)")
	fs.BoolVar(&g.verbose, "verbose", false, "log debug output and tool calls to stderr")
	fs.StringVar(&g.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address (overrides config)")
	fs.BoolVar(&g.raw, "raw", false, "print answers without markdown rendering")
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func newFlagSet(name, synopsis string, g *globalFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: agentry %s\n\nFlags:\n", synopsis)
		fs.PrintDefaults()
	}
	if g != nil {
		g.register(fs)
	}
	return fs
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig resolves the configuration: the explicit path, then
// agentry.yaml, then the environment.
func loadConfig(explicit string) (engine.Config, error) {
	if explicit != "" {
		return engine.LoadConfig(explicit)
	}

	if _, err := os.Stat(defaultConfigPath); err == nil {
		return engine.LoadConfig(defaultConfigPath)
	}

	return engine.FromEnv(), nil
}

// openEngine loads .env and the config, builds the engine and starts the
// metrics endpoint when one is configured.
func openEngine(ctx context.Context, g globalFlags) (*engine.Engine, error) {
	if err := loadDotEnv(g.env); err != nil {
		return nil, err
	}

	cfg, err := loadConfig(g.config)
	if err != nil {
		return nil, err
	}
	if g.metricsAddr != "" {
		cfg.Metrics.Addr = g.metricsAddr
	}

	logger := newLogger(os.Stderr, g.verbose)
	slog.SetDefault(logger)

	eng, err := engine.New(ctx, cfg, engine.Options{Logger: logger})
	if err != nil {
		return nil, err
	}

	if cfg.Metrics.Addr != "" {
		if err := serveMetrics(ctx, cfg.Metrics.Addr, eng.MetricsHandler(), logger); err != nil {
			_ = eng.Close()
			return nil, err
		}
	}

	return eng, nil
}

// serveMetrics listens on addr and serves /metrics until ctx ends.
func serveMetrics(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()

	logger.Info("serving metrics", "addr", ln.Addr().String())

	return nil
}

// watchEvents prints tool calls and errors to w until the subscription
// closes.
func watchEvents(eng *engine.Engine, w io.Writer) func() {
	sub := eng.Events().Subscribe(64, engine.EventToolCall, engine.EventError)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for e := range sub.C {
			if line := formatEvent(e); line != "" {
				fmt.Fprintln(w, line)
			}
		}
	}()

	return func() {
		eng.Events().Unsubscribe(sub)
		<-done
	}
}

func formatEvent(e engine.Event) string {
	switch e.Kind {
	case engine.EventToolCall:
		return toolStyle.Render("⚙ "+e.Agent) + dimStyle.Render(" "+describeData(e.Data))
	case engine.EventError:
		return errorStyle.Render(fmt.Sprintf("✗ %s: %v", e.Agent, e.Data))
	default:
		return ""
	}
}

func describeData(v any) string {
	switch d := v.(type) {
	case nil:
		return ""
	case content.ToolCall:
		return d.Name + " " + truncate(d.Arguments, 100)
	default:
		return truncate(fmt.Sprint(d), 120)
	}
}

// render formats markdown for the terminal unless raw is set. Rendering
// failures fall back to the plain text.
func render(text string, raw bool) string {
	if raw {
		return text
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return text
	}

	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// truncate returns s shortened to at most n runes, with "..." appended if
// truncated. Newlines become spaces.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// splitList parses a comma separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// inputText joins positional args, or reads stdin when there are none.
func inputText(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("no input given")
	}
	return text, nil
}
