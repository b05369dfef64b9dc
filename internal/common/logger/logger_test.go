package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}
	return out
}

func TestKeyValueFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf)

	log.Info("decoded", "encoding", "big5", "rows", 3)

	line := decodeLine(t, &buf)
	if line["message"] != "decoded" {
		t.Errorf("Expected message decoded, got %v", line["message"])
	}
	if line["encoding"] != "big5" {
		t.Errorf("Expected encoding big5, got %v", line["encoding"])
	}
	if line["rows"] != float64(3) {
		t.Errorf("Expected rows 3, got %v", line["rows"])
	}
}

func TestErrorFieldUsesErr(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf)

	log.Error("load failed", "error", errors.New("boom"))

	line := decodeLine(t, &buf)
	if line["error"] != "boom" {
		t.Errorf("Expected error boom, got %v", line["error"])
	}
}

func TestMapFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf)

	log.Warn("dropped rows", map[string]interface{}{"dropped": 2})

	line := decodeLine(t, &buf)
	if line["dropped"] != float64(2) {
		t.Errorf("Expected dropped 2, got %v", line["dropped"])
	}
	if line["level"] != "warn" {
		t.Errorf("Expected level warn, got %v", line["level"])
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"WARN":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewWithoutWritersIsNop(t *testing.T) {
	log := New(nil)
	if log == nil {
		t.Fatal("Logger should be created successfully")
	}
	log.Info("nothing happens")
}

type alert struct {
	level   string
	message string
	fields  map[string]interface{}
}

type recordingSender struct {
	mu     sync.Mutex
	alerts []alert
	done   chan struct{}
}

func (r *recordingSender) SendLogMessage(level, message string, fields map[string]interface{}) error {
	r.mu.Lock()
	r.alerts = append(r.alerts, alert{level: level, message: message, fields: fields})
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func (r *recordingSender) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected error event to be forwarded")
	}
}

func TestAlertsForwardErrorsOnly(t *testing.T) {
	var buf bytes.Buffer
	sender := &recordingSender{done: make(chan struct{}, 4)}
	log := &loggerImpl{zl: zerolog.New(&buf), alerts: sender}

	log.Info("ignored")
	log.Warn("ignored")
	log.Error("sent")
	sender.wait(t)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.alerts) != 1 || sender.alerts[0].level != "ERROR" {
		t.Errorf("Expected one ERROR alert, got %v", sender.alerts)
	}
	if sender.alerts[0].message != "sent" {
		t.Errorf("Expected message sent, got %s", sender.alerts[0].message)
	}
}

func TestAlertsCarryFields(t *testing.T) {
	var buf bytes.Buffer
	sender := &recordingSender{done: make(chan struct{}, 1)}
	log := &loggerImpl{zl: zerolog.New(&buf), alerts: sender}

	log.Error("Render request failed", "error", errors.New("disk full"), "run_id", "abc")
	sender.wait(t)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	fields := sender.alerts[0].fields
	if fields["error"] != "disk full" {
		t.Errorf("Expected error disk full, got %v", fields["error"])
	}
	if fields["run_id"] != "abc" {
		t.Errorf("Expected run_id abc, got %v", fields["run_id"])
	}
}

func TestAlertsHonourLevel(t *testing.T) {
	var buf bytes.Buffer
	sender := &recordingSender{done: make(chan struct{}, 1)}
	log := &loggerImpl{zl: zerolog.New(&buf).Level(zerolog.FatalLevel), alerts: sender}

	log.Error("suppressed")

	select {
	case <-sender.done:
		t.Error("Expected no alert below the configured level")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAlertFieldsMap(t *testing.T) {
	got := alertFields([]interface{}{map[string]interface{}{"error": errors.New("boom"), "rows": 3}})
	if got["error"] != "boom" || got["rows"] != 3 {
		t.Errorf("Unexpected fields %v", got)
	}
	if got := alertFields([]interface{}{"odd"}); len(got) != 0 {
		t.Errorf("Expected no fields for odd list, got %v", got)
	}
}

func TestFileWriterUsesConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FilePath = filepath.Join(t.TempDir(), "app.log")
	cfg.MaxSizeMB = 3

	lj, ok := FileWriter(cfg).(*lumberjack.Logger)
	if !ok {
		t.Fatal("Expected a lumberjack writer")
	}
	if lj.Filename != cfg.FilePath || lj.MaxSize != 3 || lj.MaxBackups != cfg.MaxBackups {
		t.Errorf("Unexpected writer settings %+v", lj)
	}
}

func TestNewFromConfigWritesFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Console = false
	cfg.FilePath = filepath.Join(t.TempDir(), "app.log")

	log := NewFromConfig(cfg)
	log.Info("written")

	data, err := os.ReadFile(cfg.FilePath)
	if err != nil {
		t.Fatalf("Expected log file, got %v", err)
	}
	if !strings.Contains(string(data), "written") {
		t.Errorf("Expected message in log file, got %q", data)
	}
}
