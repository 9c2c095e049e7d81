package logging

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

var (
	logger    = slog.Default()
	level     = new(slog.LevelVar)
	startTime = time.Now()
)

// Options selects the handler used by Setup.
type Options struct {
	Level  string    // debug, info, warn or error
	Format string    // json (default) or text
	Output io.Writer // defaults to os.Stdout
}

// InitLogger initializes JSON logging to stdout at info level
func InitLogger() {
	Setup(Options{})
}

// Setup replaces the process logger. Text output is meant for local development.
func Setup(o Options) {
	startTime = time.Now()
	SetLevel(o.Level)

	out := o.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	}

	format := strings.ToLower(strings.TrimSpace(o.Format))
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		format = "json"
		handler = slog.NewJSONHandler(out, opts)
	}
	logger = slog.New(handler)
	slog.SetDefault(logger)

	LogInfo("Logger initialized successfully",
		"handler", format,
		"level", level.Level().String(),
		"source_enabled", true)
}

// SetLevel changes the minimum level by name (debug, info, warn, error).
// Unknown names fall back to info.
func SetLevel(name string) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
}

// Level returns the current minimum level.
func Level() slog.Level {
	return level.Level()
}

// LogInfo logs an informational message
func LogInfo(msg string, args ...any) {
	logger.Info(msg, args...)
}

// LogError logs an error message with error details
func LogError(msg string, err error, args ...any) {
	allArgs := append([]any{"error", err}, args...)
	logger.Error(msg, allArgs...)
}

// LogWarn logs a warning message
func LogWarn(msg string, args ...any) {
	logger.Warn(msg, args...)
}

// LogDebug logs a debug message
func LogDebug(msg string, args ...any) {
	logger.Debug(msg, args...)
}

// LogCritical logs a critical error and also writes to stderr
func LogCritical(msg string, err error, args ...any) {
	allArgs := append([]any{"error", err, "severity", "critical"}, args...)
	logger.Error(msg, allArgs...)
	log.Printf("CRITICAL: %s: %v", msg, err)
}

// LogSecurityEvent logs security-related events
func LogSecurityEvent(event string, severity string, args ...any) {
	allArgs := append([]any{
		"event_type", "security",
		"security_event", event,
		"severity", severity,
	}, args...)
	logger.Warn("Security event", allArgs...)
}

// LogSystemStats logs system statistics and resource usage
func LogSystemStats() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(startTime)

	LogInfo("System statistics",
		"uptime_seconds", int(uptime.Seconds()),
		"uptime_str", uptime.String(),
		"goroutines", runtime.NumGoroutine(),
		"memory_alloc_mb", bToMb(m.Alloc),
		"memory_total_alloc_mb", bToMb(m.TotalAlloc),
		"memory_sys_mb", bToMb(m.Sys),
		"gc_runs", m.NumGC,
		"next_gc_mb", bToMb(m.NextGC))
}

// LogHTTPRequest logs HTTP request details
func LogHTTPRequest(method, path, userAgent, ip string, statusCode int, duration time.Duration) {
	LogInfo("HTTP request",
		"method", method,
		"path", path,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
		"user_agent", userAgent,
		"client_ip", ip)
}

// LogFileOperation logs CSV import and report export operations
func LogFileOperation(operation, filename string, size int64, duration time.Duration, success bool, args ...any) {
	allArgs := append([]any{
		"operation", operation,
		"filename", filename,
		"size_bytes", size,
		"size_mb", float64(size) / (1024 * 1024),
		"duration_ms", duration.Milliseconds(),
		"success", success,
	}, args...)

	if success {
		LogInfo("File operation completed", allArgs...)
	} else {
		LogError("File operation failed", fmt.Errorf("operation failed"), allArgs...)
	}
}

// LogCreditCalculation logs a credit aggregation over a student's activities
func LogCreditCalculation(student string, activityCount, totalCredits int, duration time.Duration) {
	LogDebug("Credit calculation",
		"student", student,
		"activity_count", activityCount,
		"total_credits", totalCredits,
		"duration_ms", duration.Milliseconds())
}

// Helper function to convert bytes to megabytes
func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
