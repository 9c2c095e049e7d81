package downloads

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/logging"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/manager"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/models"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/session"
)

func init() {
	logging.InitLogger()
}

// --- sanitizeCSVField ---

func TestSanitizeCSVField_Normal(t *testing.T) {
	cases := []struct {
		input, want string
	}{
		{"Alice", "Alice"},
		{"Bob Smith", "Bob Smith"},
		{"", ""},
	}
	for _, tc := range cases {
		got := sanitizeCSVField(tc.input)
		if got != tc.want {
			t.Errorf("sanitizeCSVField(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestSanitizeCSVField_FormulaInjection(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"=CMD()", "'=CMD()"},
		{"+1+1", "'+1+1"},
		{"-1-1", "'-1-1"},
		{"@SUM(A1)", "'@SUM(A1)"},
		{"\tmalicious", "'\tmalicious"},
		{"\rmalicious", "'\rmalicious"},
	}
	for _, tc := range cases {
		got := sanitizeCSVField(tc.input)
		if got != tc.want {
			t.Errorf("sanitizeCSVField(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestSanitizeCSVField_QuotesAndCommas(t *testing.T) {
	cases := []struct {
		input, want string
	}{
		{`He said "hi"`, `"He said ""hi"""`},
		{"a,b,c", `"a,b,c"`},
		{"line1\nline2", `"line1` + "\n" + `line2"`},
	}
	for _, tc := range cases {
		got := sanitizeCSVField(tc.input)
		if got != tc.want {
			t.Errorf("sanitizeCSVField(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestSanitizeCSVField_InjectionAndQuotes(t *testing.T) {
	// Formula prefix AND quotes: should get both protections
	got := sanitizeCSVField(`=CMD("evil")`)
	want := `"'=CMD(""evil"")"`
	if got != want {
		t.Errorf("sanitizeCSVField with injection+quotes: got %q, want %q", got, want)
	}
}

// --- getSessionIDFromCookie ---

func TestGetSessionIDFromCookie_Present(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "abc123"})

	got := getSessionIDFromCookie(req)
	if got != "abc123" {
		t.Errorf("want abc123, got %s", got)
	}
}

func TestGetSessionIDFromCookie_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	got := getSessionIDFromCookie(req)
	if got != "" {
		t.Errorf("want empty, got %s", got)
	}
}

// --- setDownloadHeaders ---

func TestSetDownloadHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	setDownloadHeaders(w, "text/csv", "test.csv")

	if w.Header().Get("Content-Type") != "text/csv" {
		t.Errorf("Content-Type: got %s", w.Header().Get("Content-Type"))
	}
	if w.Header().Get("Content-Disposition") != "attachment; filename=test.csv" {
		t.Errorf("Content-Disposition: got %s", w.Header().Get("Content-Disposition"))
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control: got %s", w.Header().Get("Cache-Control"))
	}
	if w.Header().Get("Pragma") != "no-cache" {
		t.Errorf("Pragma: got %s", w.Header().Get("Pragma"))
	}
}

// --- progressLevel ---

func TestProgressLevel(t *testing.T) {
	cases := []struct {
		credits, limit, want int
	}{
		{0, 18, progressNone},
		{5, 18, progressPartial},
		{18, 18, progressComplete},
		{36, 22, progressComplete},
	}
	for _, tc := range cases {
		if got := progressLevel(tc.credits, tc.limit); got != tc.want {
			t.Errorf("progressLevel(%d, %d) = %d, want %d", tc.credits, tc.limit, got, tc.want)
		}
	}
}

// --- Download Handlers ---

var testDay = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

func newWorkspace(t *testing.T) *manager.Manager {
	t.Helper()
	student, err := models.NewStudent("Fulano, o Bom", "123.456.789-00", "123456789")
	if err != nil {
		t.Fatalf("NewStudent: %v", err)
	}
	ws, err := manager.New(student, manager.WithClock(func() time.Time { return testDay }))
	if err != nil {
		t.Fatalf("manager.New: %v", err)
	}
	if _, err := ws.CreateActivity("Estagio", "estágio", "http://doc", 600, "Empresa X"); err != nil {
		t.Fatalf("CreateActivity: %v", err)
	}
	if _, err := ws.CreateActivity("Monitoria", "monitoria", "http://doc", 5, "LP2"); err != nil {
		t.Fatalf("CreateActivity: %v", err)
	}
	return ws
}

func newTestStore(t *testing.T, sessionID string, ws *manager.Manager) *session.Store {
	t.Helper()
	store := session.NewStore(time.Hour)
	t.Cleanup(store.Close)
	store.Set(sessionID, ws)
	return store
}

func newDownloadRequest(path, sessionID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: "session_id", Value: sessionID})
	}
	return req
}

func TestHandleReportCSV_NoSession(t *testing.T) {
	store := session.NewStore(time.Hour)
	defer store.Close()
	w := httptest.NewRecorder()

	HandleReportCSV(w, newDownloadRequest("/download/report.csv", ""), store)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("want 401, got %d", w.Code)
	}
}

func TestHandleReportCSV_WithData(t *testing.T) {
	sid := "sid-report-csv"
	store := newTestStore(t, sid, newWorkspace(t))
	w := httptest.NewRecorder()

	HandleReportCSV(w, newDownloadRequest("/download/report.csv", sid), store)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	if w.Header().Get("Content-Type") != "text/csv" {
		t.Errorf("Content-Type: got %s", w.Header().Get("Content-Type"))
	}

	want := "Nome,CPF,Matrícula,Data\n" +
		"\"Fulano, o Bom\",123.456.789-00,123456789,15/03/2024\n" +
		"\n" +
		"Tipo,Créditos,Máximo\n" +
		"PesquisaExtensao,0,18\n" +
		"Monitoria,16,16\n" +
		"Estagio,10,18\n" +
		"RepresentacaoEstudantil,0,2\n" +
		"Total,26,22\n"
	if got := w.Body.String(); got != want {
		t.Errorf("unexpected CSV body:\n%s\nwant:\n%s", got, want)
	}
}

func TestHandleHistoryCSV_EmptyHistory(t *testing.T) {
	sid := "sid-history-empty"
	store := newTestStore(t, sid, newWorkspace(t))
	w := httptest.NewRecorder()

	HandleHistoryCSV(w, newDownloadRequest("/download/history.csv", sid), store)

	if w.Code != http.StatusNotFound {
		t.Errorf("want 404, got %d", w.Code)
	}
}

func TestHandleHistoryCSV_WithReports(t *testing.T) {
	sid := "sid-history-csv"
	ws := newWorkspace(t)
	if _, err := ws.PartialReportForType("Estagio", true); err != nil {
		t.Fatalf("PartialReportForType: %v", err)
	}
	store := newTestStore(t, sid, ws)
	w := httptest.NewRecorder()

	HandleHistoryCSV(w, newDownloadRequest("/download/history.csv", sid), store)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("want header plus one report, got %d lines", len(lines))
	}
	if lines[0] != "Data,Relatório,PesquisaExtensao,Monitoria,Estagio,RepresentacaoEstudantil,Total" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != "15/03/2024,Estagio,0,16,10,0,26" {
		t.Errorf("unexpected row %q", lines[1])
	}
}

func TestHandleReportExcel_NoSession(t *testing.T) {
	store := session.NewStore(time.Hour)
	defer store.Close()
	w := httptest.NewRecorder()

	HandleReportExcel(w, newDownloadRequest("/download/report.xlsx", "unknown"), store)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("want 401, got %d", w.Code)
	}
}

func TestHandleReportExcel_WithData(t *testing.T) {
	sid := "sid-report-excel"
	store := newTestStore(t, sid, newWorkspace(t))
	w := httptest.NewRecorder()

	HandleReportExcel(w, newDownloadRequest("/download/report.xlsx", sid), store)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	ct := w.Header().Get("Content-Type")
	if ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("Content-Type: got %s", ct)
	}

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("response is not a valid workbook: %v", err)
	}
	defer f.Close()

	cases := map[string]string{
		"B1":  "Fulano, o Bom",
		"B4":  "15/03/2024",
		"A8":  "Monitoria",
		"B8":  "16",
		"B9":  "10",
		"A11": "Total",
		"B11": "26",
	}
	for axis, want := range cases {
		got, err := f.GetCellValue("Relatório", axis)
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", axis, err)
		}
		if got != want {
			t.Errorf("cell %s: want %q, got %q", axis, want, got)
		}
	}
}

func TestHandleHistoryExcel_WithReports(t *testing.T) {
	sid := "sid-history-excel"
	ws := newWorkspace(t)
	if _, err := ws.PartialReport(true); err != nil {
		t.Fatalf("PartialReport: %v", err)
	}
	store := newTestStore(t, sid, ws)
	w := httptest.NewRecorder()

	HandleHistoryExcel(w, newDownloadRequest("/download/history.xlsx", sid), store)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("response is not a valid workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Histórico")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("want 2 rows, got %d", len(rows))
	}
	if rows[1][0] != "15/03/2024" || rows[1][1] != "Completo" || rows[1][6] != "26" {
		t.Errorf("unexpected history row %v", rows[1])
	}
}

func TestHandleHistoryExcel_EmptyHistory(t *testing.T) {
	sid := "sid-history-excel-empty"
	store := newTestStore(t, sid, newWorkspace(t))
	w := httptest.NewRecorder()

	HandleHistoryExcel(w, newDownloadRequest("/download/history.xlsx", sid), store)

	if w.Code != http.StatusNotFound {
		t.Errorf("want 404, got %d", w.Code)
	}
}
