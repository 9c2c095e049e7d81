// Package manager owns one student's complementary activities and saved reports:
// it generates activity codes, aggregates credits per type, checks goals and
// renders reports.
package manager

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/activity"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/apperrors"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/catalog"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/logging"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/models"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/report"
)

// Fixed messages returned by the final reports while a goal is unmet.
const (
	GoalNotReachedMessage        = "Ainda não atingiu a meta de créditos"
	GoalNotReachedForTypeMessage = "Ainda não atingiu a meta de créditos para a atividade do tipo "
)

// Manager is safe for concurrent use.
type Manager struct {
	mu         sync.Mutex
	student    *models.Student
	goal       int
	now        func() time.Time
	seq        *Sequence
	activities map[string]*activity.Activity
	order      []string
	history    *report.History
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used to date reports.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithSequence shares a code sequence between managers.
func WithSequence(seq *Sequence) Option {
	return func(m *Manager) {
		m.seq = seq
	}
}

// WithGoal overrides the overall credit goal.
func WithGoal(goal int) Option {
	return func(m *Manager) {
		if goal > 0 {
			m.goal = goal
		}
	}
}

// New creates the manager of student.
func New(student *models.Student, opts ...Option) (*Manager, error) {
	if student == nil {
		return nil, apperrors.ErrNilStudent
	}

	m := &Manager{
		student:    student,
		goal:       models.CreditGoal,
		now:        time.Now,
		activities: make(map[string]*activity.Activity),
		history:    report.NewHistory(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.seq == nil {
		m.seq = NewSequence()
	}
	return m, nil
}

// Student returns the owning student.
func (m *Manager) Student() *models.Student {
	return m.student
}

// Goal returns the overall credit goal.
func (m *Manager) Goal() int {
	return m.goal
}

// CreateActivity validates and stores a new activity, returning its code.
func (m *Manager) CreateActivity(typeName, description, link string, units int, specification string) (string, error) {
	t, err := catalog.Resolve(typeName)
	if err != nil {
		return "", err
	}
	a, err := activity.New(t, description, link, units, specification)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	code := m.student.Identifier() + "_" + strconv.FormatUint(m.seq.Next(), 10)
	m.activities[code] = a
	m.order = append(m.order, code)

	logging.LogDebug("Activity created",
		"code", code,
		"type", t.String(),
		"units", units,
		"credits", a.Credits())

	return code, nil
}

// ImportFailure describes an imported row that was rejected.
type ImportFailure struct {
	Row int
	Err error
}

// ImportActivities creates every valid row and reports the rejected ones.
func (m *Manager) ImportActivities(rows []models.ActivityInput) ([]string, []ImportFailure) {
	codes := make([]string, 0, len(rows))
	var failures []ImportFailure

	for _, row := range rows {
		code, err := m.CreateActivity(row.Type, row.Description, row.Link, row.Units, row.Specification)
		if err != nil {
			failures = append(failures, ImportFailure{Row: row.Row, Err: err})
			continue
		}
		codes = append(codes, code)
	}

	logging.LogInfo("Activities imported",
		"student", m.student.Identifier(),
		"created", len(codes),
		"rejected", len(failures))

	return codes, failures
}

func (m *Manager) lookup(code string) (*activity.Activity, error) {
	a, ok := m.activities[code]
	if !ok {
		return nil, apperrors.ErrActivityNotFound
	}
	return a, nil
}

// SetDescription changes the description of the activity stored under code.
func (m *Manager) SetDescription(code, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, err := m.lookup(code)
	if err != nil {
		return err
	}
	return a.SetDescription(description)
}

// SetDocumentationLink changes the documentation link of the activity stored under code.
func (m *Manager) SetDocumentationLink(code, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, err := m.lookup(code)
	if err != nil {
		return err
	}
	return a.SetDocumentationLink(link)
}

// Activity renders the activity stored under code.
func (m *Manager) Activity(code string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, err := m.lookup(code)
	if err != nil {
		return "", err
	}
	return a.String(), nil
}

// ActivityOverview renders the listing line of the activity stored under code:
// type, units, rate per unit and credits against the type's cap.
func (m *Manager) ActivityOverview(code string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, err := m.lookup(code)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s: %s, %d %s, %s créditos por unidade, %d/%d créditos",
		code, a.Type(), a.Units(), catalog.Lookup(a.Type()).UnitLabel,
		strconv.FormatFloat(a.CreditsPerUnit(), 'f', 2, 64), a.Credits(), a.MaxCredits()), nil
}

// Codes lists activity codes in creation order.
func (m *Manager) Codes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

func (m *Manager) creditsFor(t catalog.Type) int {
	credits := 0
	for _, a := range m.activities {
		if a.Type() == t {
			credits += a.Credits()
		}
	}
	return credits
}

func (m *Manager) summary() map[catalog.Type]int {
	summary := make(map[catalog.Type]int, len(catalog.Types()))
	for _, t := range catalog.Types() {
		summary[t] = m.creditsFor(t)
	}
	return summary
}

func (m *Manager) total() int {
	total := 0
	for _, a := range m.activities {
		total += a.Credits()
	}
	return total
}

// CreditsForType sums the credits of every activity of the named type.
func (m *Manager) CreditsForType(typeName string) (int, error) {
	t, err := catalog.Resolve(typeName)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creditsFor(t), nil
}

// TotalCredits sums the credits of every stored activity. Caps apply per activity only.
func (m *Manager) TotalCredits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total()
}

// CreditSummary returns the credits of every catalog type, zero included.
func (m *Manager) CreditSummary() map[catalog.Type]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	summary := m.summary()
	logging.LogCreditCalculation(m.student.Identifier(), len(m.activities), m.total(), time.Since(start))
	return summary
}

// CreditMap renders one "<type>: credits/cap" line per catalog type.
func (m *Manager) CreditMap() string {
	summary := m.CreditSummary()

	lines := make([]string, 0, len(summary))
	for _, t := range catalog.Types() {
		lines = append(lines, fmt.Sprintf("%s: %d/%d", t, summary[t], catalog.CreditCap(t)))
	}
	return strings.Join(lines, "\n")
}

// GoalReached reports whether the total credits reached the overall goal.
func (m *Manager) GoalReached() bool {
	return m.TotalCredits() >= m.goal
}

// GoalReachedForType reports whether the named type reached its cap.
func (m *Manager) GoalReachedForType(typeName string) (bool, error) {
	t, err := catalog.Resolve(typeName)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creditsFor(t) >= catalog.CreditCap(t), nil
}

// FinalReport renders the full report once the overall goal is reached.
func (m *Manager) FinalReport() (string, error) {
	if !m.GoalReached() {
		return GoalNotReachedMessage, nil
	}
	r, err := m.build(nil)
	if err != nil {
		return "", err
	}
	return r.String(), nil
}

// FinalReportForType renders the per-type report once the type reached its cap.
// The unmet message echoes typeName as given.
func (m *Manager) FinalReportForType(typeName string) (string, error) {
	t, err := catalog.Resolve(typeName)
	if err != nil {
		return "", err
	}
	reached, err := m.GoalReachedForType(typeName)
	if err != nil {
		return "", err
	}
	if !reached {
		return GoalNotReachedForTypeMessage + typeName, nil
	}

	r, err := m.build(&t)
	if err != nil {
		return "", err
	}
	return r.String(), nil
}

// PartialReport renders the full report regardless of the goal, optionally saving it.
func (m *Manager) PartialReport(save bool) (string, error) {
	r, err := m.build(nil)
	if err != nil {
		return "", err
	}
	if save {
		m.save(r)
	}
	return r.String(), nil
}

// PartialReportForType renders the per-type report regardless of the cap, optionally saving it.
func (m *Manager) PartialReportForType(typeName string, save bool) (string, error) {
	t, err := catalog.Resolve(typeName)
	if err != nil {
		return "", err
	}
	r, err := m.build(&t)
	if err != nil {
		return "", err
	}
	if save {
		m.save(r)
	}
	return r.String(), nil
}

// CurrentReport builds an unsaved full report of the current summary.
func (m *Manager) CurrentReport() (*report.Report, error) {
	return m.build(nil)
}

func (m *Manager) build(t *catalog.Type) (*report.Report, error) {
	m.mu.Lock()
	summary := m.summary()
	now := m.now()
	m.mu.Unlock()

	if t == nil {
		return report.New(m.student, summary, now)
	}
	return report.NewForType(m.student, summary, *t, now)
}

func (m *Manager) save(r *report.Report) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history.Save(r)
	logging.LogInfo("Report saved to history",
		"student", m.student.Identifier(),
		"date", r.Date(),
		"history_size", m.history.Len())
}

// ListHistory renders every saved report, oldest first, newline separated.
func (m *Manager) ListHistory() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.String()
}

// History returns saved reports oldest first.
func (m *Manager) History() []*report.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.Entries()
}

// DeleteHistoryEntry removes the report saved under the dd/mm/yyyy key.
func (m *Manager) DeleteHistoryEntry(date string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := m.history.Delete(date)
	logging.LogDebug("History entry deletion",
		"student", m.student.Identifier(),
		"date", date,
		"deleted", deleted)
	return deleted
}
