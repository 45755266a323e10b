package validation

import "strings"

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func PositiveFloat(field string, val float64, v Violations) {
	if val <= 0 {
		v[field] = "must_be_positive"
	}
}

func NonNegativeFloat(field string, val float64, v Violations) {
	if val < 0 {
		v[field] = "must_be_positive"
	}
}

func RangeFloat(field string, val, minVal, maxVal float64, v Violations) {
	if val < minVal || val > maxVal {
		v[field] = "out_of_range"
	}
}

// Percent checks a 0-100 percentage (decimals allowed).
func Percent(field string, val float64, v Violations) {
	if val < 0 || val > 100 {
		v[field] = "invalid_percentage"
	}
}

// OneOf checks membership in a closed value set.
func OneOf(field, value string, allowed []string, v Violations) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v[field] = "out_of_range"
}

// SIRET checks the 14-digit French company identifier.
func SIRET(field, value string, v Violations) {
	if value == "" {
		return
	}
	if len(value) != 14 {
		v[field] = "siret_length"
		return
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			v[field] = "siret_digits"
			return
		}
	}
}
