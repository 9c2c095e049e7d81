// Package downloads serves the current credit report and the saved report
// history of a workspace as CSV and Excel files.
package downloads

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/catalog"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/logging"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/manager"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/metrics"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/report"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/security"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/session"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// progress levels used to colour report rows
const (
	progressNone = iota
	progressPartial
	progressComplete
)

// setCellValueSafe safely sets a cell value with error handling
func setCellValueSafe(f *excelize.File, sheet, axis string, value interface{}, sessionID, ip string) error {
	if err := f.SetCellValue(sheet, axis, value); err != nil {
		logging.LogError("Failed to set cell value", err,
			"sheet", sheet,
			"axis", axis,
			"session_id", sessionID,
			"ip", ip)
		return err
	}
	return nil
}

// setRowSafe writes values into consecutive cells of row, starting at column A
func setRowSafe(f *excelize.File, sheet string, row int, values []interface{}, sessionID, ip string) error {
	for i, value := range values {
		axis, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := setCellValueSafe(f, sheet, axis, value, sessionID, ip); err != nil {
			return err
		}
	}
	return nil
}

// setCellStyleSafe safely sets a cell style with error handling
func setCellStyleSafe(f *excelize.File, sheet, hCell, vCell string, styleID int, sessionID, ip string) {
	if err := f.SetCellStyle(sheet, hCell, vCell, styleID); err != nil {
		logging.LogError("Failed to set cell style", err,
			"sheet", sheet,
			"range", fmt.Sprintf("%s:%s", hCell, vCell),
			"session_id", sessionID,
			"ip", ip)
		// Non-critical error for styles, continue execution
	}
}

// createSheetSafe safely creates a new sheet with error handling
func createSheetSafe(f *excelize.File, name, sessionID, ip string) error {
	if _, err := f.NewSheet(name); err != nil {
		logging.LogError("Failed to create sheet", err,
			"sheet_name", name,
			"session_id", sessionID,
			"ip", ip)
		return err
	}
	return nil
}

// deleteSheetSafe safely deletes a sheet with error handling
func deleteSheetSafe(f *excelize.File, name, sessionID, ip string) {
	if err := f.DeleteSheet(name); err != nil {
		logging.LogError("Failed to delete sheet", err,
			"sheet_name", name,
			"session_id", sessionID,
			"ip", ip)
		// Non-critical error, continue
	}
}

// writeResponseSafe safely writes response with error handling
func writeResponseSafe(w http.ResponseWriter, buffer *bytes.Buffer, sessionID, ip string) {
	if _, err := w.Write(buffer.Bytes()); err != nil {
		logging.LogError("Failed to write response", err,
			"session_id", sessionID,
			"ip", ip)
		// Response already started, can't send error status
	}
}

// getSessionIDFromCookie reads the session ID from an HttpOnly cookie
func getSessionIDFromCookie(r *http.Request) string {
	cookie, err := r.Cookie("session_id")
	if err != nil {
		return ""
	}
	return cookie.Value
}

// sanitizeCSVField prevents CSV injection and properly escapes fields
func sanitizeCSVField(field string) string {
	// Prevent formula injection: prefix dangerous first characters
	if len(field) > 0 {
		first := field[0]
		if first == '=' || first == '+' || first == '-' || first == '@' || first == '\t' || first == '\r' {
			field = "'" + field
		}
	}
	// Properly quote fields containing commas, quotes, or newlines
	if strings.ContainsAny(field, ",\"\n") {
		field = "\"" + strings.ReplaceAll(field, "\"", "\"\"") + "\""
	}
	return field
}

// createProgressStyles creates coloured Excel styles for credit progress against a cap
func createProgressStyles(f *excelize.File) map[int]int {
	progressStyles := make(map[int]int)
	colors := map[int]string{
		progressNone:     "#f8d7da",
		progressPartial:  "#fff3cd",
		progressComplete: "#c6f6d5",
	}
	for level, color := range colors {
		style, _ := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Border: []excelize.Border{
				{Type: "left", Color: "#000000", Style: 1},
				{Type: "top", Color: "#000000", Style: 1},
				{Type: "right", Color: "#000000", Style: 1},
				{Type: "bottom", Color: "#000000", Style: 1},
			},
		})
		progressStyles[level] = style
	}
	return progressStyles
}

func createHeaderStyle(f *excelize.File) int {
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#f2f2f2"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "#000000", Style: 1},
			{Type: "top", Color: "#000000", Style: 1},
			{Type: "right", Color: "#000000", Style: 1},
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})
	return headerStyle
}

func progressLevel(credits, limit int) int {
	switch {
	case credits >= limit:
		return progressComplete
	case credits > 0:
		return progressPartial
	default:
		return progressNone
	}
}

// setDownloadHeaders sets common security and caching headers for downloads
func setDownloadHeaders(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// workspaceForDownload resolves the workspace behind the session cookie, answering 401 when there is none
func workspaceForDownload(w http.ResponseWriter, r *http.Request, sessionStore *session.Store, what string) (*manager.Manager, string, string, bool) {
	sessionID := getSessionIDFromCookie(r)
	ip := security.GetClientIP(r)

	logging.LogInfo("Download requested",
		"content", what,
		"session_id", sessionID,
		"ip", ip)

	workspace, exists := sessionStore.Get(sessionID)
	if !exists {
		logging.LogWarn("Download requested without an open workspace",
			"content", what,
			"session_id", sessionID,
			"ip", ip)
		http.Error(w, "Sessão inexistente ou expirada", http.StatusUnauthorized)
		return nil, sessionID, ip, false
	}
	return workspace, sessionID, ip, true
}

// historyForDownload loads saved reports, answering 404 when the history is empty
func historyForDownload(w http.ResponseWriter, workspace *manager.Manager, sessionID, ip string) ([]*report.Report, bool) {
	entries := workspace.History()
	if len(entries) == 0 {
		logging.LogWarn("History download requested but no report was saved",
			"session_id", sessionID,
			"ip", ip)
		http.Error(w, "Nenhum relatório salvo no histórico", http.StatusNotFound)
		return nil, false
	}
	return entries, true
}

func reportKind(r *report.Report) string {
	if t, perType := r.Type(); perType {
		return t.String()
	}
	return "Completo"
}

// HandleReportCSV handles CSV download of the current credit report
func HandleReportCSV(w http.ResponseWriter, r *http.Request, sessionStore *session.Store) {
	start := time.Now()
	workspace, sessionID, ip, ok := workspaceForDownload(w, r, sessionStore, "report_csv")
	if !ok {
		return
	}

	current, err := workspace.CurrentReport()
	if err != nil {
		logging.LogError("Failed to build report for download", err, "session_id", sessionID, "ip", ip)
		http.Error(w, "Falha ao gerar o relatório", http.StatusInternalServerError)
		return
	}
	student := current.Student()

	// Generate CSV content
	var buffer bytes.Buffer
	buffer.WriteString("Nome,CPF,Matrícula,Data\n")
	buffer.WriteString(fmt.Sprintf("%s,%s,%s,%s\n",
		sanitizeCSVField(student.Name), sanitizeCSVField(student.CPF), sanitizeCSVField(student.Enrollment), current.Date()))
	buffer.WriteString("\n")
	buffer.WriteString("Tipo,Créditos,Máximo\n")
	for _, t := range catalog.Types() {
		buffer.WriteString(fmt.Sprintf("%s,%d,%d\n", t, current.Credits(t), catalog.CreditCap(t)))
	}
	buffer.WriteString(fmt.Sprintf("Total,%d,%d\n", current.Total(), workspace.Goal()))

	// Set headers for file download
	setDownloadHeaders(w, "text/csv", "relatorio_creditos.csv")

	// Write content to response
	writeResponseSafe(w, &buffer, sessionID, ip)
	metrics.RecordExport("report", "csv")

	duration := time.Since(start)
	logging.LogFileOperation("csv_download", "relatorio_creditos.csv", int64(buffer.Len()), duration, true,
		"session_id", sessionID,
		"ip", ip,
		"total_credits", current.Total())
}

// HandleHistoryCSV handles CSV download of every saved report
func HandleHistoryCSV(w http.ResponseWriter, r *http.Request, sessionStore *session.Store) {
	start := time.Now()
	workspace, sessionID, ip, ok := workspaceForDownload(w, r, sessionStore, "history_csv")
	if !ok {
		return
	}
	entries, ok := historyForDownload(w, workspace, sessionID, ip)
	if !ok {
		return
	}

	// Generate CSV content
	var buffer bytes.Buffer
	header := []string{"Data", "Relatório"}
	for _, t := range catalog.Types() {
		header = append(header, t.String())
	}
	header = append(header, "Total")
	buffer.WriteString(strings.Join(header, ",") + "\n")

	for _, entry := range entries {
		fields := []string{entry.Date(), reportKind(entry)}
		for _, t := range catalog.Types() {
			fields = append(fields, strconv.Itoa(entry.Credits(t)))
		}
		fields = append(fields, strconv.Itoa(entry.Total()))
		buffer.WriteString(strings.Join(fields, ",") + "\n")
	}

	// Set headers for file download
	setDownloadHeaders(w, "text/csv", "historico_relatorios.csv")

	// Write content to response
	writeResponseSafe(w, &buffer, sessionID, ip)
	metrics.RecordExport("history", "csv")

	duration := time.Since(start)
	logging.LogFileOperation("csv_download", "historico_relatorios.csv", int64(buffer.Len()), duration, true,
		"session_id", sessionID,
		"ip", ip,
		"report_count", len(entries))
}

// HandleReportExcel handles Excel download of the current credit report
func HandleReportExcel(w http.ResponseWriter, r *http.Request, sessionStore *session.Store) {
	start := time.Now()
	workspace, sessionID, ip, ok := workspaceForDownload(w, r, sessionStore, "report_excel")
	if !ok {
		return
	}

	current, err := workspace.CurrentReport()
	if err != nil {
		logging.LogError("Failed to build report for download", err, "session_id", sessionID, "ip", ip)
		http.Error(w, "Falha ao gerar o relatório", http.StatusInternalServerError)
		return
	}
	student := current.Student()

	// Create Excel file
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logging.LogError("Failed to close Excel file", err, "session_id", sessionID, "ip", ip)
		}
	}()

	sheetName := "Relatório"
	if err := createSheetSafe(f, sheetName, sessionID, ip); err != nil {
		http.Error(w, "Falha ao gerar o arquivo Excel", http.StatusInternalServerError)
		return
	}
	deleteSheetSafe(f, "Sheet1", sessionID, ip)

	headerStyle := createHeaderStyle(f)
	progressStyles := createProgressStyles(f)

	// Student block
	rows := [][]interface{}{
		{"Nome", student.Name},
		{"CPF", student.CPF},
		{"Matrícula", student.Enrollment},
		{"Data", current.Date()},
	}
	for i, values := range rows {
		if err := setRowSafe(f, sheetName, i+1, values, sessionID, ip); err != nil {
			http.Error(w, "Falha ao gerar o arquivo Excel", http.StatusInternalServerError)
			return
		}
	}
	setCellStyleSafe(f, sheetName, "A1", "A4", headerStyle, sessionID, ip)

	// Credits table
	if err := setRowSafe(f, sheetName, 6, []interface{}{"Tipo", "Créditos", "Máximo"}, sessionID, ip); err != nil {
		http.Error(w, "Falha ao gerar o arquivo Excel", http.StatusInternalServerError)
		return
	}
	setCellStyleSafe(f, sheetName, "A6", "C6", headerStyle, sessionID, ip)

	row := 7
	for _, t := range catalog.Types() {
		credits := current.Credits(t)
		if err := setRowSafe(f, sheetName, row, []interface{}{t.String(), credits, catalog.CreditCap(t)}, sessionID, ip); err != nil {
			http.Error(w, "Falha ao gerar o arquivo Excel", http.StatusInternalServerError)
			return
		}
		style := progressStyles[progressLevel(credits, catalog.CreditCap(t))]
		setCellStyleSafe(f, sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("C%d", row), style, sessionID, ip)
		row++
	}

	if err := setRowSafe(f, sheetName, row, []interface{}{"Total", current.Total(), workspace.Goal()}, sessionID, ip); err != nil {
		http.Error(w, "Falha ao gerar o arquivo Excel", http.StatusInternalServerError)
		return
	}
	style := progressStyles[progressLevel(current.Total(), workspace.Goal())]
	setCellStyleSafe(f, sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("C%d", row), style, sessionID, ip)

	// Set headers for file download
	setDownloadHeaders(w, xlsxContentType, "relatorio_creditos.xlsx")

	// Write the file to response
	if err := f.Write(w); err != nil {
		logging.LogError("Failed to write Excel file", err, "session_id", sessionID, "ip", ip)
		http.Error(w, "Falha ao gerar o arquivo Excel", http.StatusInternalServerError)
		return
	}
	metrics.RecordExport("report", "xlsx")

	duration := time.Since(start)
	logging.LogFileOperation("excel_download", "relatorio_creditos.xlsx", 0, duration, true,
		"session_id", sessionID,
		"ip", ip,
		"total_credits", current.Total())
}

// HandleHistoryExcel handles Excel download of every saved report
func HandleHistoryExcel(w http.ResponseWriter, r *http.Request, sessionStore *session.Store) {
	start := time.Now()
	workspace, sessionID, ip, ok := workspaceForDownload(w, r, sessionStore, "history_excel")
	if !ok {
		return
	}
	entries, ok := historyForDownload(w, workspace, sessionID, ip)
	if !ok {
		return
	}

	// Create Excel file
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logging.LogError("Failed to close Excel file", err, "session_id", sessionID, "ip", ip)
		}
	}()

	sheetName := "Histórico"
	if err := createSheetSafe(f, sheetName, sessionID, ip); err != nil {
		http.Error(w, "Falha ao gerar o arquivo Excel", http.StatusInternalServerError)
		return
	}
	deleteSheetSafe(f, "Sheet1", sessionID, ip)

	header := []interface{}{"Data", "Relatório"}
	for _, t := range catalog.Types() {
		header = append(header, t.String())
	}
	header = append(header, "Total")
	if err := setRowSafe(f, sheetName, 1, header, sessionID, ip); err != nil {
		http.Error(w, "Falha ao gerar o arquivo Excel", http.StatusInternalServerError)
		return
	}
	lastColumn, _ := excelize.ColumnNumberToName(len(header))
	setCellStyleSafe(f, sheetName, "A1", lastColumn+"1", createHeaderStyle(f), sessionID, ip)

	for i, entry := range entries {
		values := []interface{}{entry.Date(), reportKind(entry)}
		for _, t := range catalog.Types() {
			values = append(values, entry.Credits(t))
		}
		values = append(values, entry.Total())
		if err := setRowSafe(f, sheetName, i+2, values, sessionID, ip); err != nil {
			http.Error(w, "Falha ao gerar o arquivo Excel", http.StatusInternalServerError)
			return
		}
	}

	// Set headers for file download
	setDownloadHeaders(w, xlsxContentType, "historico_relatorios.xlsx")

	// Write the file to response
	if err := f.Write(w); err != nil {
		logging.LogError("Failed to write Excel file to response", err, "session_id", sessionID, "ip", ip)
		http.Error(w, "Falha ao gerar o arquivo Excel", http.StatusInternalServerError)
		return
	}
	metrics.RecordExport("history", "xlsx")

	duration := time.Since(start)
	logging.LogFileOperation("excel_download", "historico_relatorios.xlsx", 0, duration, true,
		"session_id", sessionID,
		"ip", ip,
		"report_count", len(entries))
}
