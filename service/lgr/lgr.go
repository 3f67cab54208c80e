package lgr

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mdobak/go-xerrors"
	"github.com/natefinch/lumberjack"
)

// Logger is the process-wide logger. It writes colored text to stderr
// until Init adds the rotating JSON file.
var Logger = New(os.Stderr, nil, levelFromEnv())

type stackFrame struct {
	Func   string `json:"func"`
	Source string `json:"source"`
	Line   int    `json:"line"`
}

// New builds a logger that fans out to a colored console handler and,
// when file is not nil, a JSON handler writing to file.
func New(console io.Writer, file io.Writer, level slog.Level) *slog.Logger {
	handlers := []slog.Handler{
		slog.NewTextHandler(console, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: colorize,
		}),
	}

	if file != nil {
		handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: replaceErr,
		}))
	}

	return slog.New(&fanout{handlers: handlers})
}

// WithStack attaches the current stack trace to err so it gets rendered
// by the logger.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	return xerrors.New(err.Error())
}

// Init points Logger at the console and a rotating file in folder. The
// level is read from LOG_LEVEL.
func Init(folder string) {
	Logger = New(os.Stderr, RotatingFile(folder, "vg-go.log"), levelFromEnv())
}

// RotatingFile returns a size-rotated, compressed log file in folder.
func RotatingFile(folder, name string) io.WriteCloser {
	if folder == "" {
		folder = "./logs"
	}

	return &lumberjack.Logger{
		Filename:   filepath.Join(folder, name),
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     7, // days
		Compress:   true,
	}
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
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

func colorize(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey && len(groups) == 0 {
		level, ok := a.Value.Any().(slog.Level)
		if !ok {
			return a
		}

		var c *color.Color
		switch {
		case level >= slog.LevelError:
			c = color.New(color.FgRed, color.Bold)
		case level >= slog.LevelWarn:
			c = color.New(color.FgYellow)
		case level >= slog.LevelInfo:
			c = color.New(color.FgGreen)
		default:
			c = color.New(color.FgCyan)
		}
		a.Value = slog.StringValue(c.Sprint(level.String()))
		return a
	}

	return replaceErr(groups, a)
}

func replaceErr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindAny {
		return a
	}

	err, ok := a.Value.Any().(error)
	if !ok {
		return a
	}

	frames := marshalStack(err)
	if len(frames) == 0 {
		a.Value = slog.StringValue(err.Error())
		return a
	}

	a.Value = slog.GroupValue(
		slog.String("msg", err.Error()),
		slog.Any("trace", frames),
	)
	return a
}

func marshalStack(err error) []stackFrame {
	trace := xerrors.StackTrace(err)
	if len(trace) == 0 {
		return nil
	}

	frames := trace.Frames()
	s := make([]stackFrame, len(frames))
	for i, v := range frames {
		s[i] = stackFrame{
			Source: filepath.Join(filepath.Base(filepath.Dir(v.File)), filepath.Base(v.File)),
			Func:   filepath.Base(v.Function),
			Line:   v.Line,
		}
	}

	return s
}

// fanout dispatches each record to every handler that accepts its level.
type fanout struct {
	handlers []slog.Handler
}

func (f *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &fanout{handlers: handlers}
}

func (f *fanout) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &fanout{handlers: handlers}
}
