package validation

import (
	"testing"
)

func TestIsValidPhone(t *testing.T) {
	tests := []struct {
		number string
		valid  bool
	}{
		{"+27821234567", true},
		{"0821234567", true},
		{"+1 (555) 123-4567", true},
		{"011 234 5678", true},
		{"555.123.4567", true},

		// Invalid cases
		{"", false},
		{"+", false},
		{"call-me-maybe", false},
		{"+2782123456789012345678901234567890123", false}, // Too long
		{"abc123", false},
		{"++27821234567", false},
	}

	for _, tc := range tests {
		result := IsValidPhone(tc.number)
		if result != tc.valid {
			t.Errorf("IsValidPhone(%q) = %v, want %v", tc.number, result, tc.valid)
		}
	}
}

func TestIsValidRiskLevel(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"low", true},
		{"medium", true},
		{"high", true},
		{"HIGH", true},
		{"", false},
		{"critical", false},
	}

	for _, tc := range tests {
		if got := IsValidRiskLevel(tc.level); got != tc.valid {
			t.Errorf("IsValidRiskLevel(%q) = %v, want %v", tc.level, got, tc.valid)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"hello", 10, "hello"},
		{"  hello  ", 10, "hello"},
		{"hello world", 5, "hello"},
		{"hello\x00world", 20, "helloworld"},
	}

	for _, tc := range tests {
		result := SanitizeString(tc.input, tc.maxLen)
		if result != tc.expected {
			t.Errorf("SanitizeString(%q, %d) = %q, want %q", tc.input, tc.maxLen, result, tc.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	// Test valid input
	errors := Validate(
		Required("reason", "telemarketing"),
		ValidPhone("number", "+27821234567"),
	)
	if len(errors) != 0 {
		t.Errorf("Expected no errors, got %v", errors)
	}

	// Test invalid input
	errors = Validate(
		Required("reason", ""),
		ValidPhone("number", "invalid"),
	)
	if len(errors) != 2 {
		t.Errorf("Expected 2 errors, got %d", len(errors))
	}
}

func TestValidConfidence(t *testing.T) {
	tests := []struct {
		value float64
		valid bool
	}{
		{0, true},
		{0.5, true},
		{1, true},

		// Invalid
		{-0.1, false},
		{1.1, false},
	}

	for _, tc := range tests {
		err := ValidConfidence("confidence", tc.value)()
		valid := err == nil
		if valid != tc.valid {
			t.Errorf("ValidConfidence(%v) valid=%v, want %v", tc.value, valid, tc.valid)
		}
	}
}

func TestMaxLength(t *testing.T) {
	// Under limit
	err := MaxLength("field", "hello", 10)()
	if err != nil {
		t.Error("Expected no error for string under limit")
	}

	// At limit
	err = MaxLength("field", "hello", 5)()
	if err != nil {
		t.Error("Expected no error for string at limit")
	}

	// Over limit
	err = MaxLength("field", "hello world", 5)()
	if err == nil {
		t.Error("Expected error for string over limit")
	}
}
