package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

var Log *slog.Logger

var sinkFile *os.File

// ParseLevel maps a level name to a slog level; unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init initializes the global logger. sink is "stdout", "stderr" or
// "file:/path/to/log"; an empty sink means stdout.
func Init(level string, sink string) {
	var w io.Writer = os.Stdout
	switch {
	case sink == "stderr":
		w = os.Stderr
	case strings.HasPrefix(sink, "file:"):
		path := strings.TrimPrefix(sink, "file:")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			// fallback to stdout
			fmt.Fprintf(os.Stderr, "failed to open log file %s: %v\n", path, err)
			break
		}
		sinkFile = f
		w = f
	}
	InitWithWriter(w, level)
}

// InitWithWriter installs a text logger writing to w.
func InitWithWriter(w io.Writer, level string) {
	Log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// Sync closes the file sink, if any.
func Sync() {
	if sinkFile != nil {
		_ = sinkFile.Sync()
		_ = sinkFile.Close()
		sinkFile = nil
	}
}

func Debug(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Error(msg, args...)
}

// LogConfigSummary prints a human-friendly, hyphenated block of
// configuration results to stdout.
func LogConfigSummary(title string, items []string) {
	if len(items) == 0 {
		return
	}
	human := strings.ReplaceAll(title, "_", " ")
	header := "== " + human + " "
	const width = 60
	if len(header) < width {
		header = header + strings.Repeat("=", width-len(header))
	}
	fmt.Fprintln(os.Stdout, header)
	for _, it := range items {
		fmt.Fprintln(os.Stdout, "- "+it)
	}
	fmt.Fprintln(os.Stdout)
}
