package validation

import (
	"math"
	"testing"
)

func TestValidateInt(t *testing.T) {
	tests := []struct {
		value   int
		wantErr bool
	}{
		{value: 1},
		{value: 5},
		{value: 10},
		{value: 0, wantErr: true},
		{value: 11, wantErr: true},
		{value: -1, wantErr: true},
	}

	for _, tt := range tests {
		got, err := ValidateInt("numberOfJobs", tt.value, 1, 10)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateInt(%d) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.value {
			t.Errorf("ValidateInt(%d) = %d", tt.value, got)
		}
	}
}

func TestValidateFloat(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		wantErr bool
	}{
		{name: "in range", value: 2.5},
		{name: "lower bound", value: 0},
		{name: "upper bound", value: 10},
		{name: "below", value: -0.01, wantErr: true},
		{name: "above", value: 10.01, wantErr: true},
		{name: "nan", value: math.NaN(), wantErr: true},
		{name: "positive inf", value: math.Inf(1), wantErr: true},
		{name: "negative inf", value: math.Inf(-1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateFloat("hours", tt.value, 0, 10)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateFloat(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFloat_NaNMessage(t *testing.T) {
	// NaN must be reported as non-finite, not as out of range.
	_, err := ValidateFloat("wage", math.NaN(), math.Inf(-1), math.Inf(1))
	if err == nil {
		t.Fatal("ValidateFloat(NaN) expected error")
	}
	if got := err.Error(); got != "wage: must be a finite number" {
		t.Errorf("error = %q", got)
	}
}
