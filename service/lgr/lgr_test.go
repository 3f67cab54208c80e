package lgr

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToBothHandlers(t *testing.T) {
	var console, file bytes.Buffer
	logger := New(&console, &file, slog.LevelInfo)

	logger.Info("frame processed", slog.Int("frames", 3))
	logger.Debug("not shown")

	if !strings.Contains(console.String(), "frame processed") {
		t.Errorf("console output missing message: %q", console.String())
	}
	if strings.Contains(console.String(), "not shown") {
		t.Errorf("debug record leaked to console: %q", console.String())
	}

	var entry map[string]any
	if err := json.Unmarshal(file.Bytes(), &entry); err != nil {
		t.Fatalf("file output is not JSON: %v (%q)", err, file.String())
	}
	if entry["msg"] != "frame processed" {
		t.Errorf("msg = %v, want %q", entry["msg"], "frame processed")
	}
	if entry["frames"] != float64(3) {
		t.Errorf("frames = %v, want 3", entry["frames"])
	}
}

func TestErrorsCarryStackTrace(t *testing.T) {
	var console, file bytes.Buffer
	logger := New(&console, &file, slog.LevelInfo)

	logger.Error("stream failed", slog.Any("error", WithStack(errors.New("boom"))))

	var entry struct {
		Error struct {
			Msg   string       `json:"msg"`
			Trace []stackFrame `json:"trace"`
		} `json:"error"`
	}
	if err := json.Unmarshal(file.Bytes(), &entry); err != nil {
		t.Fatalf("file output is not JSON: %v (%q)", err, file.String())
	}
	if entry.Error.Msg != "boom" {
		t.Errorf("error msg = %q, want %q", entry.Error.Msg, "boom")
	}
	if len(entry.Error.Trace) == 0 {
		t.Errorf("expected a stack trace in %q", file.String())
	}
}

func TestPlainErrorsRenderAsString(t *testing.T) {
	var console bytes.Buffer
	logger := New(&console, nil, slog.LevelInfo)

	logger.Warn("decode failed", slog.Any("error", errors.New("bad jpeg")))

	if !strings.Contains(console.String(), "bad jpeg") {
		t.Errorf("console output missing error: %q", console.String())
	}
}

func TestWithStackNil(t *testing.T) {
	if WithStack(nil) != nil {
		t.Error("WithStack(nil) should be nil")
	}
}

func TestInitAddsRotatingFile(t *testing.T) {
	previous := Logger
	defer func() { Logger = previous }()

	folder := t.TempDir()
	Init(folder)
	Logger.Warn("written to file", slog.String("k", "v"))

	data, err := os.ReadFile(filepath.Join(folder, "vg-go.log"))
	if err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file missing record: %s", data)
	}
}
