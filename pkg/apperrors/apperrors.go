// Package apperrors defines the error taxonomy shared by the credit engine packages.
// Every failure is a rejected operation on otherwise intact state.
package apperrors

import (
	"errors"
	"fmt"
)

// Base kinds, checked with errors.Is().
var (
	// A required text field or reference is absent.
	ErrNullOrMissingField = errors.New("null or missing field")
	// A field is present but breaks a business rule.
	ErrInvalidFieldValue = errors.New("invalid field value")
	// A report was built from a partial credit summary.
	ErrIncompleteSummary = errors.New("incomplete credit summary")
	// A lookup by activity code or history date missed.
	ErrNotFound = errors.New("entry not found")
)

// DomainError carries the domain, the failed operation and a user-facing message.
type DomainError struct {
	Domain  string // e.g. "activity", "report", "catalog"
	Op      string
	Kind    error
	Message string
	Err     error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error, or the kind when there is none.
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching against the kind chain and the wrapped error.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Catalog errors
var (
	ErrInvalidActivityType = NewDomainError("catalog", "Resolve", ErrInvalidFieldValue, "Tipo inválido para Atividades Complementares")
	ErrInvalidSubtype      = NewDomainError("catalog", "ResolveSubtype", ErrInvalidFieldValue, "Subtipo inválido")

	ErrInvalidResearchSubtype       = NewDomainError("catalog", "ResolveSubtype", ErrInvalidSubtype, "Subtipo inválido para Pesquisa e Extensão")
	ErrInvalidRepresentationSubtype = NewDomainError("catalog", "ResolveSubtype", ErrInvalidSubtype, "Subtipo inválido para Representação Estudantil")
)

// Activity errors
var (
	ErrBlankDescription             = NewDomainError("activity", "Validate", ErrInvalidFieldValue, "A descrição da atividade não pode ser vazia")
	ErrBlankLink                    = NewDomainError("activity", "Validate", ErrInvalidFieldValue, "O link da atividade não pode ser vazio")
	ErrInsufficientAccumulatedUnits = NewDomainError("activity", "Validate", ErrInvalidFieldValue, "A unidade de tempo acumulada não é suficiente")
	ErrInvalidSpecification         = NewDomainError("activity", "Validate", ErrInvalidFieldValue, "A especificação da atividade não pode ser vazia")
	ErrActivityNotFound             = NewDomainError("activity", "Find", ErrNotFound, "Atividade não encontrada")
)

// Report errors
var (
	ErrNilStudent        = NewDomainError("report", "Validate", ErrNullOrMissingField, "O usuário não pode ser nulo")
	ErrSummaryIncomplete = NewDomainError("report", "Validate", ErrIncompleteSummary, "A sumarização precisa ter todos os tipos de Atividade Complementar")
	ErrEntryNotFound     = NewDomainError("report", "FindEntry", ErrNotFound, "Relatório não encontrado no histórico")
	ErrInvalidDateKey    = NewDomainError("report", "ParseDate", ErrInvalidFieldValue, "Data inválida, use o formato dd/mm/aaaa")
	ErrStudentIdentity   = NewDomainError("student", "Validate", ErrNullOrMissingField, "O CPF do estudante não pode ser vazio")
)

// MissingField reports a required field that was not supplied at all.
func MissingField(domain, field string) *DomainError {
	return NewDomainError(domain, "Validate", ErrNullOrMissingField, fmt.Sprintf("O campo %s não pode ser nulo", field))
}

// IsNotFound checks if the error is a lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error rejects caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNullOrMissingField) ||
		errors.Is(err, ErrInvalidFieldValue) ||
		errors.Is(err, ErrIncompleteSummary)
}

// Message returns the user-facing text of a domain error, or err.Error() otherwise.
func Message(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
