package models

import (
	"fmt"
	"strings"

	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/apperrors"
)

// Student is the resolved student reference handed over by the session collaborator.
// Identity is the CPF; the engine does not re-check credentials.
type Student struct {
	Name       string
	CPF        string
	Enrollment string
}

// NewStudent validates presence of the identifying fields.
func NewStudent(name, cpf, enrollment string) (*Student, error) {
	if strings.TrimSpace(cpf) == "" {
		return nil, apperrors.ErrStudentIdentity
	}
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.NewDomainError("student", "Validate", apperrors.ErrInvalidFieldValue, "O nome do estudante não pode ser vazio")
	}
	if strings.TrimSpace(enrollment) == "" {
		return nil, apperrors.NewDomainError("student", "Validate", apperrors.ErrInvalidFieldValue, "A matrícula do estudante não pode ser vazia")
	}
	return &Student{Name: name, CPF: cpf, Enrollment: enrollment}, nil
}

// Identifier returns the stable identity used in activity codes.
func (s *Student) Identifier() string {
	return s.CPF
}

// ReportHeading renders the student line used at the top of reports.
func (s *Student) ReportHeading() string {
	return fmt.Sprintf("Nome: %s, CPF: %s - matrícula %s", s.Name, s.CPF, s.Enrollment)
}

// ActivityInput is one activity row as supplied by a form or an imported CSV file.
type ActivityInput struct {
	Row           int
	Type          string
	Description   string
	Link          string
	Units         int
	Specification string
}

// DateLayout is the dd/mm/yyyy layout used for report dates and history keys.
const DateLayout = "02/01/2006"

// CreditGoal is the overall credit threshold a student must reach.
const CreditGoal = 22

// Constants for security limits
const (
	MaxFileSize    = 10 << 20 // 10MB
	MaxImportRows  = 500
	MaxFieldLength = 500
	MaxNameLength  = 200
	SessionTimeout = 24 * 60 * 60 // 24 hours in seconds
	RateLimit      = 60           // requests per minute
	RateBurst      = 20           // burst capacity
)
