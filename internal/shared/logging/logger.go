package logging

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	// Level is debug, info, warn, error or trace.
	Level string
	// Format is json or text.
	Format    string
	AddSource bool
	// Directory receives one <YYYY-MM-DD>.log file per day; empty means stdout only.
	Directory string
}

// ParseLevel converts textual levels into slog levels, defaulting to info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug", "dbg":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	case "trace":
		return slog.LevelDebug - 2
	default:
		return slog.LevelInfo
	}
}

func New(w io.Writer, cfg Config) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level), AddSource: cfg.AddSource}
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Setup builds the process logger writing to stdout and, when cfg.Directory is set,
// to today's log file. The standard log package is redirected to the same writer.
// The returned closer releases the file.
func Setup(cfg Config, now time.Time) (io.Closer, *slog.Logger, error) {
	var (
		writer io.Writer = os.Stdout
		closer io.Closer = io.NopCloser(nil)
	)
	if cfg.Directory != "" {
		if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		name := filepath.Join(cfg.Directory, now.UTC().Format("2006-01-02")+".log")
		file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		writer = io.MultiWriter(os.Stdout, file)
		closer = file
	}

	log.SetOutput(writer)
	log.SetFlags(0)
	log.SetPrefix("")
	return closer, New(writer, cfg), nil
}
