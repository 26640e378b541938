package common

import (
	"errors"
	"testing"
	"time"
)

func TestParseImporto(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"123.45", "123.45"},
		{"1234", "1234"},
		{"1.234,56", "1234.56"},
		{"1.234.567,89", "1234567.89"},
		{"-12,5", "-12.5"},
		{"€ 2.000,00", "2000"},
		{"  99,90 ", "99.9"},
		{"-300.10", "-300.1"},
		{"1,234.56", "1234.56"},
		{"1.234.567", "1234567"},
	}

	for _, test := range tests {
		result, err := ParseImporto(test.input)
		if err != nil {
			t.Fatalf("Unexpected error for %q: %v", test.input, err)
		}
		if result.String() != test.expected {
			t.Errorf("ParseImporto(%q): expected '%s', got '%s'", test.input, test.expected, result.String())
		}
	}
}

func TestParseImporto_Empty(t *testing.T) {
	for _, input := range []string{"", "ABC", "€", " - "} {
		_, err := ParseImporto(input)
		if !errors.Is(err, ErrEmptyAmount) {
			t.Errorf("Expected ErrEmptyAmount for %q, got %v", input, err)
		}
	}
}

func TestParseImporto_Invalid(t *testing.T) {
	_, err := ParseImporto("1-2")
	if err == nil {
		t.Error("Expected error for malformed amount, got nil")
	}
}

func TestParseData(t *testing.T) {
	for _, input := range []string{"15/11/2024", "2024-11-15", "15-11-2024", "15.11.2024"} {
		result, err := ParseData(input)
		if err != nil {
			t.Fatalf("Unexpected error for %q: %v", input, err)
		}
		if result.Day() != 15 || result.Month() != time.November || result.Year() != 2024 {
			t.Errorf("ParseData(%q): got %v", input, result)
		}
	}

	if _, err := ParseData("invalid"); err == nil {
		t.Error("Expected error for invalid date, got nil")
	}
}

func TestGiorniTra(t *testing.T) {
	from := time.Date(2024, 3, 1, 18, 30, 0, 0, time.Local)
	to := time.Date(2024, 3, 11, 8, 0, 0, 0, time.Local)

	if got := GiorniTra(from, to); got != 10 {
		t.Errorf("Expected 10 days, got %d", got)
	}
	if got := GiorniTra(to, from); got != -10 {
		t.Errorf("Expected -10 days, got %d", got)
	}
	if got := GiorniTra(from, from); got != 0 {
		t.Errorf("Expected 0 days, got %d", got)
	}
}
