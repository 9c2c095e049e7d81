// Package security holds the request hardening of the HTTP surface: per-IP rate
// limiting, client IP resolution, upload validation and field length checks.
package security

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/apperrors"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/logging"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/metrics"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/models"
)

// ipLimiter wraps a rate limiter with a last-seen timestamp for cleanup
type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter manages rate limiting per IP address with automatic cleanup
type RateLimiter struct {
	limiters  map[string]*ipLimiter
	mutex     sync.RWMutex
	perMinute int
	burst     int
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewRateLimiter creates a new rate limiter with background cleanup.
// Non-positive values fall back to the default limits.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	rl := newRateLimiter(perMinute, burst)
	rl.startCleanup()
	return rl
}

func newRateLimiter(perMinute, burst int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = models.RateLimit
	}
	if burst <= 0 {
		burst = models.RateBurst
	}
	return &RateLimiter{
		limiters:  make(map[string]*ipLimiter),
		perMinute: perMinute,
		burst:     burst,
		stop:      make(chan struct{}),
	}
}

// Close stops the cleanup routine.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// GetLimiter returns a rate limiter for the given IP address
func (rl *RateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	entry, exists := rl.limiters[ip]
	if !exists {
		limiter := rate.NewLimiter(rate.Limit(rl.perMinute)/60, rl.burst)
		rl.limiters[ip] = &ipLimiter{limiter: limiter, lastSeen: time.Now()}

		logging.LogDebug("Created new rate limiter for IP",
			"ip", ip,
			"rate_per_minute", rl.perMinute,
			"burst", rl.burst)

		return limiter
	}

	entry.lastSeen = time.Now()
	return entry.limiter
}

// startCleanup runs a background goroutine to remove stale rate limiters
func (rl *RateLimiter) startCleanup() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.cleanupStale()
			case <-rl.stop:
				return
			}
		}
	}()
}

// cleanupStale removes rate limiters not seen in the last 10 minutes
func (rl *RateLimiter) cleanupStale() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	threshold := time.Now().Add(-10 * time.Minute)
	removed := 0
	for ip, entry := range rl.limiters {
		if entry.lastSeen.Before(threshold) {
			delete(rl.limiters, ip)
			removed++
		}
	}

	if removed > 0 {
		logging.LogInfo("Cleaned up stale rate limiters",
			"removed", removed,
			"remaining", len(rl.limiters))
	}
}

// RateLimitMiddleware provides rate limiting functionality
func (rl *RateLimiter) RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := GetClientIP(r)
		limiter := rl.GetLimiter(ip)

		if !limiter.Allow() {
			logging.LogSecurityEvent("Rate limit exceeded", "high",
				"ip", ip,
				"user_agent", r.UserAgent(),
				"path", r.URL.Path,
				"method", r.Method)

			metrics.RecordRateLimited()
			http.Error(w, "Limite de requisições excedido", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetClientIP extracts the real client IP from request headers
func GetClientIP(r *http.Request) string {
	// Cloudflare sets this header with the verified client IP
	if cfIP := r.Header.Get("CF-Connecting-IP"); cfIP != "" {
		return strings.TrimSpace(cfIP)
	}

	// Fallback: Check for forwarded IP in common headers
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		// X-Forwarded-For can contain multiple IPs, get the first one
		ips := strings.Split(forwarded, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	// Fallback to remote address
	ip := r.RemoteAddr
	if colonIndex := strings.LastIndex(ip, ":"); colonIndex != -1 {
		ip = ip[:colonIndex]
	}

	// Remove brackets for IPv6
	ip = strings.Trim(ip, "[]")

	return ip
}

// ValidateUpload validates an activity import upload
func ValidateUpload(fileHeader *multipart.FileHeader) error {
	if fileHeader.Size > models.MaxFileSize {
		return uploadError(fmt.Sprintf("Arquivo muito grande: %d bytes (máximo: %d)", fileHeader.Size, models.MaxFileSize))
	}

	filename := fileHeader.Filename
	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return uploadError("Apenas arquivos CSV são permitidos")
	}

	// Additional filename validation
	if len(filename) > models.MaxNameLength {
		return uploadError(fmt.Sprintf("Nome de arquivo muito longo (máximo: %d caracteres)", models.MaxNameLength))
	}

	// Check for potentially dangerous characters
	dangerousChars := []string{"../", "..\\", "<", ">", "|", "&", ";", "$", "`"}
	for _, char := range dangerousChars {
		if strings.Contains(filename, char) {
			return uploadError("Nome de arquivo contém caracteres inválidos")
		}
	}

	return nil
}

func uploadError(message string) error {
	return apperrors.NewDomainError("upload", "Validate", apperrors.ErrInvalidFieldValue, message)
}

// CheckLength rejects a form field longer than max characters.
func CheckLength(field, value string, max int) error {
	if n := utf8.RuneCountInString(value); n > max {
		return apperrors.NewDomainError("request", "Validate", apperrors.ErrInvalidFieldValue,
			fmt.Sprintf("O campo %s excede %d caracteres", field, max))
	}
	return nil
}
