package validation

import "math"

// ValidateInt checks that value lies in [min, max]
func ValidateInt(field string, value, min, max int) (int, error) {
	if value < min || value > max {
		return 0, NewError(field, "must be between %d and %d, got %d", min, max, value)
	}
	return value, nil
}

// ValidateFloat checks that value is finite and lies in [min, max]
func ValidateFloat(field string, value, min, max float64) (float64, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, NewError(field, "must be a finite number")
	}
	if value < min || value > max {
		return 0, NewError(field, "must be between %g and %g, got %g", min, max, value)
	}
	return value, nil
}
