package validation

import (
	"fmt"
	"math"
	"strings"
)

// LocalNumber is a validated union-local number
type LocalNumber struct {
	n int
}

// Int returns the local number as an int
func (l LocalNumber) Int() int { return l.n }

// String returns the local number in decimal
func (l LocalNumber) String() string { return fmt.Sprintf("%d", l.n) }

// Classification is a job classification from a closed set
type Classification int

// Supported classifications
const (
	ClassificationUnknown Classification = iota
	JourneymanLineman
	JourneymanWireman
	InsideWireman
	LineEquipmentOperator
	TeledataLineman
	WiremanForeman
	TreeTrimmer
	CableSplicer
	Groundman
)

var classificationNames = map[Classification]string{
	JourneymanLineman:     "journeyman lineman",
	JourneymanWireman:     "journeyman wireman",
	InsideWireman:         "inside wireman",
	LineEquipmentOperator: "line equipment operator",
	TeledataLineman:       "teledata lineman",
	WiremanForeman:        "wireman foreman",
	TreeTrimmer:           "tree trimmer",
	CableSplicer:          "cable splicer",
	Groundman:             "groundman",
}

var classificationsByName = func() map[string]Classification {
	m := make(map[string]Classification, len(classificationNames))
	for cl, name := range classificationNames {
		m[name] = cl
	}
	return m
}()

// String returns the canonical lowercase name
func (c Classification) String() string {
	if name, ok := classificationNames[c]; ok {
		return name
	}
	return "unknown"
}

func (c Classification) valid() bool {
	_, ok := classificationNames[c]
	return ok
}

// AllClassifications returns every supported classification in declaration order
func AllClassifications() []Classification {
	out := make([]Classification, 0, len(classificationNames))
	for c := JourneymanLineman; c <= Groundman; c++ {
		out = append(out, c)
	}
	return out
}

// normalizeClassification lowercases s, treats '-' and '_' as spaces and
// collapses runs of whitespace.
func normalizeClassification(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Wage is a validated hourly wage stored in whole cents
type Wage struct {
	cents int64
}

// Cents returns the wage in cents
func (w Wage) Cents() int64 { return w.cents }

// Dollars returns the wage in dollars
func (w Wage) Dollars() float64 { return float64(w.cents) / 100 }

// String formats the wage as dollars with two decimals
func (w Wage) String() string { return fmt.Sprintf("%d.%02d", w.cents/100, w.cents%100) }

// ValidateLocalNumber checks a union-local number against the configured range
func (v *Validator) ValidateLocalNumber(n int) (LocalNumber, error) {
	if _, err := ValidateInt("localNumber", n, v.cfg.MinLocalNumber, v.cfg.MaxLocalNumber); err != nil {
		return LocalNumber{}, err
	}
	return LocalNumber{n: n}, nil
}

// ParseClassification matches s case-insensitively against the allowed
// classifications.
func (v *Validator) ParseClassification(s string) (Classification, error) {
	const field = "classification"

	name := normalizeClassification(s)
	if name == "" {
		return ClassificationUnknown, NewError(field, "is required")
	}
	cl, ok := classificationsByName[name]
	if !ok || !v.classifications[cl] {
		return ClassificationUnknown, NewError(field, "%q is not a recognized classification",
			SanitizeForDisplay(strings.TrimSpace(s)))
	}
	return cl, nil
}

// ValidateWage checks an hourly wage in dollars and rounds it to whole cents
func (v *Validator) ValidateWage(dollars float64) (Wage, error) {
	if _, err := ValidateFloat("wage", dollars, v.cfg.MinWage, v.cfg.MaxWage); err != nil {
		return Wage{}, err
	}
	return Wage{cents: int64(math.Round(dollars * 100))}, nil
}

// ValidateLocalNumber validates a local number with the default validator
func ValidateLocalNumber(n int) (LocalNumber, error) {
	return defaultValidator.ValidateLocalNumber(n)
}

// ParseClassification parses a classification with the default validator
func ParseClassification(s string) (Classification, error) {
	return defaultValidator.ParseClassification(s)
}

// ValidateWage validates a wage with the default validator
func ValidateWage(dollars float64) (Wage, error) {
	return defaultValidator.ValidateWage(dollars)
}
