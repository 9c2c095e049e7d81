// Package report holds dated credit snapshots and the per-student history they are saved to.
package report

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/apperrors"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/calculator"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/catalog"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/models"
)

// Report is an immutable snapshot of a student's credit summary on a calendar date.
// A per-type report carries one distinguished type and renders only that entry.
type Report struct {
	student   *models.Student
	createdAt time.Time
	summary   map[catalog.Type]int
	focus     catalog.Type
	perType   bool
}

// New builds a full report. The summary must hold an entry for every catalog type.
func New(student *models.Student, summary map[catalog.Type]int, createdAt time.Time) (*Report, error) {
	if student == nil {
		return nil, apperrors.ErrNilStudent
	}
	for _, t := range catalog.Types() {
		if _, ok := summary[t]; !ok {
			return nil, apperrors.ErrSummaryIncomplete
		}
	}

	y, m, d := createdAt.Date()
	return &Report{
		student:   student,
		createdAt: time.Date(y, m, d, 0, 0, 0, 0, createdAt.Location()),
		summary:   maps.Clone(summary),
	}, nil
}

// NewForType builds a report that renders only the entry for t.
func NewForType(student *models.Student, summary map[catalog.Type]int, t catalog.Type, createdAt time.Time) (*Report, error) {
	if !t.Valid() {
		return nil, apperrors.ErrInvalidActivityType
	}
	r, err := New(student, summary, createdAt)
	if err != nil {
		return nil, err
	}
	r.focus = t
	r.perType = true
	return r, nil
}

// Date returns the creation date formatted as dd/mm/yyyy.
func (r *Report) Date() string {
	return r.createdAt.Format(models.DateLayout)
}

// CreatedAt returns the creation date at midnight.
func (r *Report) CreatedAt() time.Time {
	return r.createdAt
}

// Student returns the reported student.
func (r *Report) Student() *models.Student {
	return r.student
}

// Type returns the distinguished type of a per-type report.
func (r *Report) Type() (catalog.Type, bool) {
	return r.focus, r.perType
}

// Credits returns the summarised credits for t.
func (r *Report) Credits(t catalog.Type) int {
	return r.summary[t]
}

// Total sums every summary entry.
func (r *Report) Total() int {
	return calculator.Total(r.summary)
}

// Summary returns a copy of the credit summary.
func (r *Report) Summary() map[catalog.Type]int {
	return maps.Clone(r.summary)
}

func (r *Report) heading() string {
	return r.student.ReportHeading() + ", data " + r.Date()
}

// String renders the report text.
func (r *Report) String() string {
	var sb strings.Builder
	sb.WriteString(r.heading())

	if r.perType {
		sb.WriteString("\nCréditos por atividade:")
		fmt.Fprintf(&sb, "\n%s: %d", r.focus, r.summary[r.focus])
		return sb.String()
	}

	sb.WriteString("\nCréditos por atividades:")
	for _, t := range catalog.Types() {
		fmt.Fprintf(&sb, "\n%s: %d", t, r.summary[t])
	}
	fmt.Fprintf(&sb, "\nCréditos totais: %d", r.Total())
	return sb.String()
}
