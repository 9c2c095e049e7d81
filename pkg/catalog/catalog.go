// Package catalog is the static registry of complementary activity types: canonical
// names, credit rates, minimum unit counts and per-type credit caps.
package catalog

import (
	"strings"

	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/apperrors"
)

// Type enumerates the complementary activity kinds in report order.
type Type int

const (
	ResearchExtension Type = iota
	Monitorship
	Internship
	StudentRepresentation
)

// Rate is an exact credits-per-unit ratio.
type Rate struct {
	Numerator   int
	Denominator int
}

// Float returns the rate as a float64, for display only.
func (r Rate) Float() float64 {
	return float64(r.Numerator) / float64(r.Denominator)
}

// Spec holds the formula parameters of one activity type.
type Spec struct {
	Type       Type
	Name       string // canonical name, used for lookup and in reports
	Label      string // human readable name used in activity descriptions
	UnitLabel  string
	MinUnits   int
	Rate       Rate
	MaxCredits int
	// Subtypes is the closed list accepted as specification, nil when any text is allowed.
	Subtypes   []string
	subtypeErr error
}

var specs = [...]Spec{
	ResearchExtension: {
		Type:       ResearchExtension,
		Name:       "PesquisaExtensao",
		Label:      "Pesquisa e Extensão",
		UnitLabel:  "meses",
		MinUnits:   1,
		Rate:       Rate{Numerator: 10, Denominator: 12},
		MaxCredits: 18,
		Subtypes:   []string{"pet", "pibic", "pivic", "pibiti", "piviti", "probex", "pdi"},
		subtypeErr: apperrors.ErrInvalidResearchSubtype,
	},
	Monitorship: {
		Type:       Monitorship,
		Name:       "Monitoria",
		Label:      "Monitoria",
		UnitLabel:  "semestres",
		MinUnits:   1,
		Rate:       Rate{Numerator: 4, Denominator: 1},
		MaxCredits: 16,
	},
	Internship: {
		Type:       Internship,
		Name:       "Estagio",
		Label:      "Estágio Não-Obrigatório",
		UnitLabel:  "horas",
		MinUnits:   300,
		Rate:       Rate{Numerator: 1, Denominator: 60},
		MaxCredits: 18,
	},
	StudentRepresentation: {
		Type:       StudentRepresentation,
		Name:       "RepresentacaoEstudantil",
		Label:      "Representação Estudantil",
		UnitLabel:  "anos",
		MinUnits:   1,
		Rate:       Rate{Numerator: 2, Denominator: 1},
		MaxCredits: 2,
		Subtypes:   []string{"diretoria", "comissao"},
		subtypeErr: apperrors.ErrInvalidRepresentationSubtype,
	},
}

// Types returns every catalog type in declaration order.
func Types() []Type {
	return []Type{ResearchExtension, Monitorship, Internship, StudentRepresentation}
}

// Valid reports whether t is one of the catalog types.
func (t Type) Valid() bool {
	return t >= ResearchExtension && t <= StudentRepresentation
}

// String returns the canonical name.
func (t Type) String() string {
	if !t.Valid() {
		return "Desconhecido"
	}
	return specs[t].Name
}

// Lookup returns the parameters of t. It panics on a value outside the enumeration.
func Lookup(t Type) Spec {
	return specs[t]
}

// Resolve maps a type name to its Type, ignoring case.
func Resolve(name string) (Type, error) {
	for _, t := range Types() {
		if strings.EqualFold(specs[t].Name, name) {
			return t, nil
		}
	}
	return 0, apperrors.ErrInvalidActivityType
}

// CreditCap returns the maximum credits the type can contribute.
func CreditCap(t Type) int {
	return specs[t].MaxCredits
}

// HasSubtypes reports whether the specification field of t is a closed subtype tag.
func HasSubtypes(t Type) bool {
	return len(specs[t].Subtypes) > 0
}

// ResolveSubtype matches name against the subtypes of t and returns the upper-case tag.
func ResolveSubtype(t Type, name string) (string, error) {
	spec := specs[t]
	for _, s := range spec.Subtypes {
		if strings.EqualFold(s, name) {
			return strings.ToUpper(s), nil
		}
	}
	if spec.subtypeErr != nil {
		return "", spec.subtypeErr
	}
	return "", apperrors.ErrInvalidSubtype
}
