// Package activity models a single complementary activity as a variant tagged by its
// catalog type. Credits are derived from the accumulated units on every call.
package activity

import (
	"fmt"
	"strings"

	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/apperrors"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/calculator"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/catalog"
)

// Activity is one of Internship, Monitorship, ResearchExtension or StudentRepresentation.
// Only the description and documentation link change after construction.
type Activity struct {
	kind        catalog.Type
	description string
	link        string
	units       int
	// company, course or upper-case subtype tag, depending on kind
	specification string
}

// New builds the variant matching t. Fields are validated in order: description,
// documentation link, accumulated units, specification.
func New(t catalog.Type, description, link string, units int, specification string) (*Activity, error) {
	if !t.Valid() {
		return nil, apperrors.ErrInvalidActivityType
	}
	if err := validateDescription(description); err != nil {
		return nil, err
	}
	if err := validateLink(link); err != nil {
		return nil, err
	}

	spec := catalog.Lookup(t)
	if units < spec.MinUnits {
		return nil, apperrors.ErrInsufficientAccumulatedUnits
	}

	if strings.TrimSpace(specification) == "" {
		return nil, apperrors.ErrInvalidSpecification
	}
	if catalog.HasSubtypes(t) {
		tag, err := catalog.ResolveSubtype(t, specification)
		if err != nil {
			return nil, err
		}
		specification = tag
	}

	return &Activity{
		kind:          t,
		description:   description,
		link:          link,
		units:         units,
		specification: specification,
	}, nil
}

// NewInternship creates an internship counted in hours at a company.
func NewInternship(description, link string, hours int, company string) (*Activity, error) {
	return New(catalog.Internship, description, link, hours, company)
}

// NewMonitorship creates a monitorship counted in semesters for a course.
func NewMonitorship(description, link string, semesters int, course string) (*Activity, error) {
	return New(catalog.Monitorship, description, link, semesters, course)
}

// NewResearchExtension creates a research or extension project counted in months.
func NewResearchExtension(description, link string, months int, subtype string) (*Activity, error) {
	return New(catalog.ResearchExtension, description, link, months, subtype)
}

// NewStudentRepresentation creates a representation role counted in years.
func NewStudentRepresentation(description, link string, years int, subtype string) (*Activity, error) {
	return New(catalog.StudentRepresentation, description, link, years, subtype)
}

func validateDescription(description string) error {
	if strings.TrimSpace(description) == "" {
		return apperrors.ErrBlankDescription
	}
	return nil
}

func validateLink(link string) error {
	if strings.TrimSpace(link) == "" {
		return apperrors.ErrBlankLink
	}
	return nil
}

// SetDescription replaces the description after validating it.
func (a *Activity) SetDescription(description string) error {
	if err := validateDescription(description); err != nil {
		return err
	}
	a.description = description
	return nil
}

// SetDocumentationLink replaces the documentation link after validating it.
func (a *Activity) SetDocumentationLink(link string) error {
	if err := validateLink(link); err != nil {
		return err
	}
	a.link = link
	return nil
}

// Type returns the catalog type of the activity.
func (a *Activity) Type() catalog.Type { return a.kind }

// Description returns the free-text description.
func (a *Activity) Description() string { return a.description }

// DocumentationLink returns the link to the supporting document.
func (a *Activity) DocumentationLink() string { return a.link }

// Units returns the accumulated units (months, semesters, hours or years).
func (a *Activity) Units() int { return a.units }

// Specification returns the company, course or upper-case subtype tag.
func (a *Activity) Specification() string { return a.specification }

// MaxCredits returns the cap of the activity's type.
func (a *Activity) MaxCredits() int { return catalog.CreditCap(a.kind) }

// CreditsPerUnit returns the type's rate as a float, for display only.
func (a *Activity) CreditsPerUnit() float64 { return catalog.Lookup(a.kind).Rate.Float() }

// Credits returns the capped credits earned by the activity.
func (a *Activity) Credits() int { return calculator.Credits(a.kind, a.units) }

// String renders the activity as shown to the student.
func (a *Activity) String() string {
	spec := catalog.Lookup(a.kind)
	base := fmt.Sprintf("Descricao: %s, link da documentação: %s\nUnidade de tempo: %d %s.",
		a.description, a.link, a.units, spec.UnitLabel)

	var detail string
	switch a.kind {
	case catalog.Internship:
		// internships break the line before the type, the other kinds do not
		detail = fmt.Sprintf("\nTipo: %s, instituição: %s", spec.Label, a.specification)
	case catalog.Monitorship:
		detail = fmt.Sprintf(" Tipo: %s, disciplina: %s", spec.Label, a.specification)
	case catalog.ResearchExtension, catalog.StudentRepresentation:
		detail = fmt.Sprintf(" Tipo: %s, subtipo: %s", spec.Label, a.specification)
	}

	return base + detail + fmt.Sprintf("\nCréditos: %d", a.Credits())
}
