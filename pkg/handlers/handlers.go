// Package handlers exposes the credit engine over HTTP. Every route except student
// registration, health and metrics works on the workspace behind the session cookie.
package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"

	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/apperrors"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/calculator"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/catalog"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/downloads"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/logging"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/manager"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/metrics"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/models"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/report"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/security"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/session"
)

const sessionCookie = "session_id"

// Handler holds dependencies for HTTP handlers
type Handler struct {
	SessionStore *session.Store
	Production   bool
	// options applied to every workspace opened by POST /students
	managerOptions []manager.Option
}

// NewHandler creates a new handler with dependencies
func NewHandler(sessionStore *session.Store, production bool, opts ...manager.Option) *Handler {
	return &Handler{
		SessionStore:   sessionStore,
		Production:     production,
		managerOptions: opts,
	}
}

// Register mounts every route on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/students", h.HandleRegisterStudent).Methods(http.MethodPost)

	ws := r.NewRoute().Subrouter()
	ws.Use(h.RequireWorkspace)

	ws.HandleFunc("/students", h.HandleCloseWorkspace).Methods(http.MethodDelete)
	ws.HandleFunc("/activities", h.HandleListActivities).Methods(http.MethodGet)
	ws.HandleFunc("/activities", h.HandleCreateActivity).Methods(http.MethodPost)
	ws.HandleFunc("/activities/import", h.HandleImportActivities).Methods(http.MethodPost)
	ws.HandleFunc("/activities/{code}", h.HandleShowActivity).Methods(http.MethodGet)
	ws.HandleFunc("/activities/{code}/description", h.HandleUpdateDescription).Methods(http.MethodPut)
	ws.HandleFunc("/activities/{code}/link", h.HandleUpdateLink).Methods(http.MethodPut)

	ws.HandleFunc("/credits", h.HandleCredits).Methods(http.MethodGet)
	ws.HandleFunc("/goal", h.HandleGoal).Methods(http.MethodGet)
	ws.HandleFunc("/reports/final", h.HandleFinalReport).Methods(http.MethodGet)
	ws.HandleFunc("/reports/partial", h.HandlePartialReport).Methods(http.MethodPost)
	ws.HandleFunc("/history", h.HandleListHistory).Methods(http.MethodGet)
	ws.HandleFunc("/history", h.HandleDeleteHistory).Methods(http.MethodDelete)

	ws.HandleFunc("/download/report.csv", h.download(downloads.HandleReportCSV)).Methods(http.MethodGet)
	ws.HandleFunc("/download/report.xlsx", h.download(downloads.HandleReportExcel)).Methods(http.MethodGet)
	ws.HandleFunc("/download/history.csv", h.download(downloads.HandleHistoryCSV)).Methods(http.MethodGet)
	ws.HandleFunc("/download/history.xlsx", h.download(downloads.HandleHistoryExcel)).Methods(http.MethodGet)
}

func (h *Handler) download(fn func(http.ResponseWriter, *http.Request, *session.Store)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(w, r, h.SessionStore)
	}
}

// writeText answers with a plain-text body, exposing the CSRF token in production
func (h *Handler) writeText(w http.ResponseWriter, r *http.Request, status int, body string) {
	if h.Production {
		w.Header().Set("X-CSRF-Token", csrf.Token(r))
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		logging.LogError("Failed to write response", err, "path", r.URL.Path)
	}
}

// writeError maps domain errors to status codes: validation 400, lookup miss 404
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperrors.IsValidation(err):
		status = http.StatusBadRequest
	case apperrors.IsNotFound(err):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		logging.LogError("Request failed", err,
			"path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()))
		h.writeText(w, r, status, "Erro interno")
		return
	}

	logging.LogDebug("Request rejected",
		"path", r.URL.Path,
		"status_code", status,
		"reason", err.Error(),
		"request_id", RequestIDFromContext(r.Context()))
	h.writeText(w, r, status, apperrors.Message(err))
}

// parseForm parses urlencoded and multipart bodies up to the upload limit
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, models.MaxFileSize+(1<<20))
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(models.MaxFileSize)
	}
	return r.ParseForm()
}

// formField returns a submitted field. A field absent from the request is a
// missing field; a present but overlong one is invalid.
func formField(r *http.Request, field string, max int) (string, error) {
	values, ok := r.Form[field]
	if !ok && r.MultipartForm != nil {
		values, ok = r.MultipartForm.Value[field]
	}
	if !ok || len(values) == 0 {
		return "", apperrors.MissingField("request", field)
	}
	if err := security.CheckLength(field, values[0], max); err != nil {
		return "", err
	}
	return values[0], nil
}

// HandleHealth reports liveness
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeText(w, r, http.StatusOK, fmt.Sprintf("OK\nsessões ativas: %d", h.SessionStore.GetSessionCount()))
}

// HandleRegisterStudent opens a workspace for the submitted student and sets the session cookie
func (h *Handler) HandleRegisterStudent(w http.ResponseWriter, r *http.Request) {
	ip := security.GetClientIP(r)

	if err := parseForm(w, r); err != nil {
		logging.LogError("Form parsing failed", err,
			"content_length", r.ContentLength,
			"content_type", r.Header.Get("Content-Type"),
			"ip", ip)
		h.writeText(w, r, http.StatusBadRequest, "Falha ao ler o formulário")
		return
	}

	var fields [3]string
	for i, name := range []string{"nome", "cpf", "matricula"} {
		value, err := formField(r, name, models.MaxNameLength)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		fields[i] = strings.TrimSpace(value)
	}

	student, err := models.NewStudent(fields[0], fields[1], fields[2])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	workspace, err := manager.New(student, h.managerOptions...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	sessionID, err := session.GenerateSessionID()
	if err != nil {
		logging.LogError("Session ID generation failed", err,
			"operation", "session_management",
			"ip", ip)
		h.writeText(w, r, http.StatusInternalServerError, "Falha ao criar a sessão")
		return
	}
	h.SessionStore.Set(sessionID, workspace)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.Production,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(h.SessionStore.Timeout().Seconds()),
	})

	logging.LogInfo("Student workspace opened",
		"student", student.Identifier(),
		"session_id_length", len(sessionID),
		"ip", ip)

	h.writeText(w, r, http.StatusCreated, student.ReportHeading())
}

// HandleCloseWorkspace drops the workspace behind the session cookie and expires the cookie
func (h *Handler) HandleCloseWorkspace(w http.ResponseWriter, r *http.Request) {
	workspace := WorkspaceFromContext(r.Context())
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		h.SessionStore.Delete(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.Production,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})

	logging.LogInfo("Student workspace closed",
		"student", workspace.Student().Identifier(),
		"ip", security.GetClientIP(r))

	w.WriteHeader(http.StatusNoContent)
}

// HandleListActivities lists every activity of the workspace in creation order
func (h *Handler) HandleListActivities(w http.ResponseWriter, r *http.Request) {
	workspace := WorkspaceFromContext(r.Context())

	codes := workspace.Codes()
	if len(codes) == 0 {
		h.writeText(w, r, http.StatusOK, "Nenhuma atividade cadastrada")
		return
	}

	lines := make([]string, 0, len(codes))
	for _, code := range codes {
		line, err := workspace.ActivityOverview(code)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		lines = append(lines, line)
	}
	h.writeText(w, r, http.StatusOK, strings.Join(lines, "\n"))
}

// HandleCreateActivity registers one activity and answers with its code
func (h *Handler) HandleCreateActivity(w http.ResponseWriter, r *http.Request) {
	workspace := WorkspaceFromContext(r.Context())
	if err := parseForm(w, r); err != nil {
		h.writeText(w, r, http.StatusBadRequest, "Falha ao ler o formulário")
		return
	}

	var fields [4]string
	for i, name := range []string{"tipo", "descricao", "link", "especificacao"} {
		value, err := formField(r, name, models.MaxFieldLength)
		if err != nil {
			metrics.RecordActivityRejected()
			h.writeError(w, r, err)
			return
		}
		fields[i] = value
	}

	unitsStr, err := formField(r, "unidades", models.MaxFieldLength)
	if err != nil {
		metrics.RecordActivityRejected()
		h.writeError(w, r, err)
		return
	}
	units, err := strconv.Atoi(strings.TrimSpace(unitsStr))
	if err != nil {
		metrics.RecordActivityRejected()
		h.writeError(w, r, apperrors.WrapError("request", "Validate", apperrors.ErrInvalidFieldValue,
			"O campo unidades deve ser um número inteiro", err))
		return
	}

	code, err := workspace.CreateActivity(fields[0], fields[1], fields[2], units, fields[3])
	if err != nil {
		metrics.RecordActivityRejected()
		h.writeError(w, r, err)
		return
	}

	t, _ := catalog.Resolve(fields[0])
	metrics.RecordActivityCreated(t.String())
	h.writeText(w, r, http.StatusCreated, code)
}

// HandleImportActivities registers every valid row of an uploaded CSV file
func (h *Handler) HandleImportActivities(w http.ResponseWriter, r *http.Request) {
	workspace := WorkspaceFromContext(r.Context())
	ip := security.GetClientIP(r)

	if err := parseForm(w, r); err != nil {
		logging.LogError("Form parsing failed", err,
			"content_length", r.ContentLength,
			"ip", ip)
		h.writeText(w, r, http.StatusBadRequest, "Falha ao ler o formulário")
		return
	}

	file, fileHeader, err := r.FormFile("csvFile")
	if err != nil {
		h.writeError(w, r, apperrors.MissingField("request", "csvFile"))
		return
	}
	file.Close()

	rows, err := calculator.ParseActivitiesCSV(fileHeader)
	if err != nil {
		if apperrors.IsValidation(err) {
			h.writeError(w, r, err)
			return
		}
		h.writeText(w, r, http.StatusBadRequest, "Falha ao processar o arquivo CSV: "+err.Error())
		return
	}

	codes, failures := workspace.ImportActivities(rows)
	rejected := make(map[int]bool, len(failures))
	for _, f := range failures {
		rejected[f.Row] = true
		metrics.RecordActivityRejected()
	}
	for _, row := range rows {
		if !rejected[row.Row] {
			t, _ := catalog.Resolve(row.Type)
			metrics.RecordActivityCreated(t.String())
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Atividades criadas: %d", len(codes))
	for _, code := range codes {
		sb.WriteString("\n" + code)
	}
	if len(failures) > 0 {
		fmt.Fprintf(&sb, "\nLinhas rejeitadas: %d", len(failures))
		for _, f := range failures {
			fmt.Fprintf(&sb, "\nLinha %d: %s", f.Row, apperrors.Message(f.Err))
		}
	}

	status := http.StatusCreated
	if len(codes) == 0 {
		status = http.StatusBadRequest
	}
	h.writeText(w, r, status, sb.String())
}

// HandleShowActivity renders the activity stored under the code path variable
func (h *Handler) HandleShowActivity(w http.ResponseWriter, r *http.Request) {
	workspace := WorkspaceFromContext(r.Context())
	text, err := workspace.Activity(mux.Vars(r)["code"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeText(w, r, http.StatusOK, text)
}

// HandleUpdateDescription changes an activity description
func (h *Handler) HandleUpdateDescription(w http.ResponseWriter, r *http.Request) {
	h.updateActivity(w, r, "descricao", func(m *manager.Manager, code, value string) error {
		return m.SetDescription(code, value)
	})
}

// HandleUpdateLink changes an activity documentation link
func (h *Handler) HandleUpdateLink(w http.ResponseWriter, r *http.Request) {
	h.updateActivity(w, r, "link", func(m *manager.Manager, code, value string) error {
		return m.SetDocumentationLink(code, value)
	})
}

func (h *Handler) updateActivity(w http.ResponseWriter, r *http.Request, field string, update func(*manager.Manager, string, string) error) {
	workspace := WorkspaceFromContext(r.Context())
	if err := parseForm(w, r); err != nil {
		h.writeText(w, r, http.StatusBadRequest, "Falha ao ler o formulário")
		return
	}

	value, err := formField(r, field, models.MaxFieldLength)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	code := mux.Vars(r)["code"]
	if err := update(workspace, code, value); err != nil {
		h.writeError(w, r, err)
		return
	}

	text, err := workspace.Activity(code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeText(w, r, http.StatusOK, text)
}

// typeParam returns the optional tipo query parameter
func typeParam(r *http.Request) (string, bool) {
	values, ok := r.URL.Query()["tipo"]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// HandleCredits answers with the credit map and total, or the credits of one type
func (h *Handler) HandleCredits(w http.ResponseWriter, r *http.Request) {
	workspace := WorkspaceFromContext(r.Context())

	if typeName, ok := typeParam(r); ok {
		credits, err := workspace.CreditsForType(typeName)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeText(w, r, http.StatusOK, strconv.Itoa(credits))
		return
	}

	body := fmt.Sprintf("%s\nTotal: %d/%d", workspace.CreditMap(), workspace.TotalCredits(), workspace.Goal())
	h.writeText(w, r, http.StatusOK, body)
}

// HandleGoal answers true or false for the overall goal or one type's cap
func (h *Handler) HandleGoal(w http.ResponseWriter, r *http.Request) {
	workspace := WorkspaceFromContext(r.Context())

	reached := workspace.GoalReached()
	if typeName, ok := typeParam(r); ok {
		var err error
		reached, err = workspace.GoalReachedForType(typeName)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	h.writeText(w, r, http.StatusOK, strconv.FormatBool(reached))
}

// HandleFinalReport renders the final report, or the fixed message while the goal is unmet
func (h *Handler) HandleFinalReport(w http.ResponseWriter, r *http.Request) {
	workspace := WorkspaceFromContext(r.Context())

	var (
		text string
		err  error
	)
	if typeName, ok := typeParam(r); ok {
		text, err = workspace.FinalReportForType(typeName)
	} else {
		text, err = workspace.FinalReport()
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	metrics.RecordReport("final", false)
	h.writeText(w, r, http.StatusOK, text)
}

// HandlePartialReport renders a partial report, saving it to the history when salvar=true
func (h *Handler) HandlePartialReport(w http.ResponseWriter, r *http.Request) {
	workspace := WorkspaceFromContext(r.Context())

	save := false
	if raw := r.URL.Query().Get("salvar"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, r, apperrors.WrapError("request", "Validate", apperrors.ErrInvalidFieldValue,
				"O parâmetro salvar deve ser true ou false", err))
			return
		}
		save = parsed
	}

	var (
		text string
		err  error
	)
	if typeName, ok := typeParam(r); ok {
		text, err = workspace.PartialReportForType(typeName, save)
	} else {
		text, err = workspace.PartialReport(save)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	metrics.RecordReport("partial", save)
	status := http.StatusOK
	if save {
		status = http.StatusCreated
	}
	h.writeText(w, r, status, text)
}

// HandleListHistory renders every saved report, oldest first
func (h *Handler) HandleListHistory(w http.ResponseWriter, r *http.Request) {
	workspace := WorkspaceFromContext(r.Context())
	h.writeText(w, r, http.StatusOK, workspace.ListHistory())
}

// HandleDeleteHistory removes the report saved under the data query parameter (dd/mm/yyyy)
func (h *Handler) HandleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	workspace := WorkspaceFromContext(r.Context())

	values, ok := r.URL.Query()["data"]
	if !ok || len(values) == 0 {
		h.writeError(w, r, apperrors.MissingField("request", "data"))
		return
	}
	date := strings.TrimSpace(values[0])
	if _, err := report.ParseDateKey(date); err != nil {
		h.writeError(w, r, err)
		return
	}

	if !workspace.DeleteHistoryEntry(date) {
		h.writeError(w, r, apperrors.ErrEntryNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
