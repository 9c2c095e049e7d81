package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestSetLevel(t *testing.T) {
	defer SetLevel("info")

	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"info", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		SetLevel(tt.name)
		if got := Level(); got != tt.want {
			t.Errorf("SetLevel(%q): want %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	Setup(Options{Level: "debug", Output: &buf})
	defer InitLogger()

	buf.Reset()
	LogCreditCalculation("12345678900", 3, 22, 5*time.Millisecond)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if entry["msg"] != "Credit calculation" {
		t.Errorf("msg: want %q, got %v", "Credit calculation", entry["msg"])
	}
	if entry["student"] != "12345678900" {
		t.Errorf("student: want 12345678900, got %v", entry["student"])
	}
	if entry["total_credits"] != float64(22) {
		t.Errorf("total_credits: want 22, got %v", entry["total_credits"])
	}
}

func TestSetup_TextAndLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	Setup(Options{Level: "warn", Format: "text", Output: &buf})
	defer InitLogger()

	buf.Reset()
	LogInfo("hidden")
	LogDebug("hidden too")
	if buf.Len() != 0 {
		t.Errorf("info and debug should be filtered at warn level, got %q", buf.String())
	}

	LogError("Export failed", errors.New("disk full"), "format", "xlsx")
	out := buf.String()
	if !strings.Contains(out, "msg=\"Export failed\"") {
		t.Errorf("text output should carry the message, got %q", out)
	}
	if !strings.Contains(out, "error=\"disk full\"") {
		t.Errorf("text output should carry the error, got %q", out)
	}
}

func TestLogFileOperation_FailureLogsError(t *testing.T) {
	var buf bytes.Buffer
	Setup(Options{Output: &buf})
	defer InitLogger()

	buf.Reset()
	LogFileOperation("csv_parse", "atividades.csv", 2048, time.Millisecond, false)

	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Errorf("failed file operation should log at error level, got %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"filename":"atividades.csv"`) {
		t.Errorf("filename missing from log line: %s", buf.String())
	}
}
