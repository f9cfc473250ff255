package units

import (
	"math"
	"testing"
)

func TestConvertLength(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		from, to string
		expected float64
	}{
		{"1 m to cm", 1.0, M, CM, 100.0},
		{"zToGem 0.0100347 m to cm", 0.0100347, M, CM, 1.00347},
		{"55 cm to mm", 55.0, CM, MM, 550.0},
		{"0.1 um to cm", 0.1, UM, CM, 1e-5},
		{"cm to cm", 5.0, CM, CM, 5.0},
		{"150 mm to m", 150.0, MM, M, 0.15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ConvertLength(tt.value, tt.from, tt.to)
			if err != nil {
				t.Fatalf("ConvertLength(%f, %s, %s) error: %v", tt.value, tt.from, tt.to, err)
			}
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("ConvertLength(%f, %s, %s) = %g, want %g", tt.value, tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestConvertLengthUnknownUnit(t *testing.T) {
	if _, err := ConvertLength(1, "furlong", CM); err == nil {
		t.Error("expected error for unknown source unit")
	}
	if _, err := ConvertLength(1, M, "inch"); err == nil {
		t.Error("expected error for unknown target unit")
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid m", M, true},
		{"valid cm", CM, true},
		{"valid mm", MM, true},
		{"valid um", UM, true},
		{"invalid unit", "inch", false},
		{"empty string", "", false},
		{"case sensitive", "CM", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValid(tt.unit)
			if result != tt.expected {
				t.Errorf("IsValid(%s) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}
