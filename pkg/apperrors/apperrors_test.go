package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifiers(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		validation bool
		notFound   bool
	}{
		{"invalid type", ErrInvalidActivityType, true, false},
		{"research subtype", ErrInvalidResearchSubtype, true, false},
		{"blank description", ErrBlankDescription, true, false},
		{"missing field", MissingField("request", "cpf"), true, false},
		{"nil student", ErrNilStudent, true, false},
		{"incomplete summary", ErrSummaryIncomplete, true, false},
		{"activity miss", ErrActivityNotFound, false, true},
		{"history miss", ErrEntryNotFound, false, true},
		{"plain error", errors.New("boom"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.validation, IsValidation(tt.err))
			assert.Equal(t, tt.notFound, IsNotFound(tt.err))
		})
	}
}

func TestSubtypeErrorsMatchTheirFamily(t *testing.T) {
	assert.ErrorIs(t, ErrInvalidResearchSubtype, ErrInvalidSubtype)
	assert.ErrorIs(t, ErrInvalidRepresentationSubtype, ErrInvalidSubtype)
	assert.NotErrorIs(t, ErrInvalidResearchSubtype, ErrInvalidRepresentationSubtype)
}

func TestWrapError(t *testing.T) {
	cause := errors.New("parsing time")
	err := WrapError("report", "ParseDate", ErrInvalidDateKey, "Data inválida", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrInvalidDateKey)
	assert.ErrorIs(t, err, ErrInvalidFieldValue)
	assert.Equal(t, "report.ParseDate: Data inválida: parsing time", err.Error())
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "O campo cpf não pode ser nulo", Message(MissingField("student", "cpf")))
	assert.Equal(t, "Atividade não encontrada", Message(fmt.Errorf("lookup: %w", ErrActivityNotFound)))
	assert.Equal(t, "boom", Message(errors.New("boom")))
}
