package security

import (
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/apperrors"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/logging"
)

func init() {
	logging.InitLogger()
}

// --- GetClientIP ---

func TestGetClientIP_CloudflareHeader(t *testing.T) {
	r, _ := http.NewRequest("GET", "/", nil)
	r.Header.Set("CF-Connecting-IP", "1.2.3.4")
	r.Header.Set("X-Forwarded-For", "5.6.7.8")
	r.RemoteAddr = "9.10.11.12:1234"

	ip := GetClientIP(r)
	if ip != "1.2.3.4" {
		t.Errorf("want CF-Connecting-IP 1.2.3.4, got %s", ip)
	}
}

func TestGetClientIP_XForwardedFor(t *testing.T) {
	r, _ := http.NewRequest("GET", "/", nil)
	r.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	r.RemoteAddr = "9.10.11.12:1234"

	ip := GetClientIP(r)
	if ip != "10.0.0.1" {
		t.Errorf("want first XFF IP 10.0.0.1, got %s", ip)
	}
}

func TestGetClientIP_XRealIP(t *testing.T) {
	r, _ := http.NewRequest("GET", "/", nil)
	r.Header.Set("X-Real-IP", "192.168.1.1")
	r.RemoteAddr = "9.10.11.12:1234"

	ip := GetClientIP(r)
	if ip != "192.168.1.1" {
		t.Errorf("want X-Real-IP 192.168.1.1, got %s", ip)
	}
}

func TestGetClientIP_RemoteAddr(t *testing.T) {
	r, _ := http.NewRequest("GET", "/", nil)
	r.RemoteAddr = "172.16.0.1:54321"

	ip := GetClientIP(r)
	if ip != "172.16.0.1" {
		t.Errorf("want 172.16.0.1, got %s", ip)
	}
}

func TestGetClientIP_IPv6(t *testing.T) {
	r, _ := http.NewRequest("GET", "/", nil)
	r.RemoteAddr = "[::1]:8080"

	ip := GetClientIP(r)
	if ip != "::1" {
		t.Errorf("want ::1, got %s", ip)
	}
}

// --- ValidateUpload ---

func makeFileHeader(name string, size int64) *multipart.FileHeader {
	return &multipart.FileHeader{
		Filename: name,
		Size:     size,
		Header:   textproto.MIMEHeader{},
	}
}

func TestValidateUpload_ValidCSV(t *testing.T) {
	fh := makeFileHeader("atividades.csv", 1024)
	if err := ValidateUpload(fh); err != nil {
		t.Errorf("valid CSV rejected: %v", err)
	}
}

func TestValidateUpload_TooLarge(t *testing.T) {
	fh := makeFileHeader("big.csv", 11<<20) // 11 MB
	err := ValidateUpload(fh)
	if err == nil {
		t.Fatal("expected error for oversized file")
	}
	if !apperrors.IsValidation(err) {
		t.Errorf("upload errors should be validation errors, got %v", err)
	}
}

func TestValidateUpload_WrongExtension(t *testing.T) {
	fh := makeFileHeader("data.xlsx", 100)
	if err := ValidateUpload(fh); err == nil {
		t.Error("expected error for non-CSV file")
	}
}

func TestValidateUpload_CaseInsensitiveExtension(t *testing.T) {
	fh := makeFileHeader("DATA.CSV", 100)
	if err := ValidateUpload(fh); err != nil {
		t.Errorf("uppercase .CSV rejected: %v", err)
	}
}

func TestValidateUpload_FilenameTooLong(t *testing.T) {
	name := make([]byte, 250)
	for i := range name {
		name[i] = 'a'
	}
	fh := makeFileHeader(string(name)+".csv", 100)
	if err := ValidateUpload(fh); err == nil {
		t.Error("expected error for overly long filename")
	}
}

func TestValidateUpload_DangerousChars(t *testing.T) {
	dangerous := []string{
		"../etc/passwd.csv",
		"file<script>.csv",
		"file;rm.csv",
		"file$HOME.csv",
		"file`cmd`.csv",
	}
	for _, name := range dangerous {
		fh := makeFileHeader(name, 100)
		if err := ValidateUpload(fh); err == nil {
			t.Errorf("expected error for dangerous filename %q", name)
		}
	}
}

// --- CheckLength ---

func TestCheckLength_WithinLimit(t *testing.T) {
	if err := CheckLength("descricao", "monitoria de LP2", 500); err != nil {
		t.Errorf("short value rejected: %v", err)
	}
}

func TestCheckLength_CountsRunes(t *testing.T) {
	// 10 runes, 20 bytes
	value := strings.Repeat("ç", 10)
	if err := CheckLength("nome", value, 10); err != nil {
		t.Errorf("value at the rune limit rejected: %v", err)
	}
}

func TestCheckLength_TooLong(t *testing.T) {
	err := CheckLength("link", strings.Repeat("x", 501), 500)
	if err == nil {
		t.Fatal("expected error for overly long value")
	}
	if !apperrors.IsValidation(err) {
		t.Errorf("want validation error, got %v", err)
	}
	if msg := apperrors.Message(err); msg != "O campo link excede 500 caracteres" {
		t.Errorf("unexpected message %q", msg)
	}
}

// --- RateLimiter ---

func TestRateLimiter_CreateAndGet(t *testing.T) {
	rl := newRateLimiter(60, 20)

	l1 := rl.GetLimiter("1.2.3.4")
	l2 := rl.GetLimiter("1.2.3.4")

	if l1 != l2 {
		t.Error("same IP should return same limiter instance")
	}
}

func TestRateLimiter_DifferentIPs(t *testing.T) {
	rl := newRateLimiter(60, 20)

	l1 := rl.GetLimiter("1.1.1.1")
	l2 := rl.GetLimiter("2.2.2.2")

	if l1 == l2 {
		t.Error("different IPs should have different limiter instances")
	}
}

func TestRateLimiter_RateLimitMiddleware(t *testing.T) {
	rl := newRateLimiter(60, 20)

	called := 0
	handler := rl.RateLimitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
	}))

	r, _ := http.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"

	// First request should pass
	w := &fakeResponseWriter{}
	handler.ServeHTTP(w, r)

	if called != 1 {
		t.Errorf("handler should have been called once, got %d", called)
	}
}

func TestRateLimiter_RejectsBeyondBurst(t *testing.T) {
	rl := newRateLimiter(1, 2)

	called := 0
	handler := rl.RateLimitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
	}))

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodGet, "/credits", nil)
		r.RemoteAddr = "10.0.0.9:4321"
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, r)
	}

	if called != 2 {
		t.Errorf("handler should have been called for the burst only, got %d", called)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Errorf("want 429 after burst, got %d", last.Code)
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := newRateLimiter(0, -1)
	if rl.perMinute != 60 || rl.burst != 20 {
		t.Errorf("want defaults 60/20, got %d/%d", rl.perMinute, rl.burst)
	}
}

func TestRateLimiter_CleanupStale(t *testing.T) {
	rl := newRateLimiter(60, 20)
	rl.GetLimiter("1.1.1.1")
	rl.limiters["1.1.1.1"].lastSeen = rl.limiters["1.1.1.1"].lastSeen.Add(-time.Hour)
	rl.GetLimiter("2.2.2.2")

	rl.cleanupStale()

	if len(rl.limiters) != 1 {
		t.Errorf("want 1 limiter after cleanup, got %d", len(rl.limiters))
	}
	if _, ok := rl.limiters["2.2.2.2"]; !ok {
		t.Error("recent limiter should survive cleanup")
	}
}

// fakeResponseWriter is a minimal implementation for testing
type fakeResponseWriter struct {
	code   int
	header http.Header
	body   []byte
}

func (f *fakeResponseWriter) Header() http.Header {
	if f.header == nil {
		f.header = make(http.Header)
	}
	return f.header
}
func (f *fakeResponseWriter) Write(b []byte) (int, error) {
	f.body = append(f.body, b...)
	return len(b), nil
}
func (f *fakeResponseWriter) WriteHeader(code int) {
	f.code = code
}
