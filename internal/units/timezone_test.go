package units

import (
	"testing"
	"time"
)

func TestIsTimezoneValid(t *testing.T) {
	tests := []struct {
		timezone string
		expected bool
	}{
		{"UTC", true},
		{"America/Los_Angeles", true},
		{"Invalid/Timezone", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsTimezoneValid(tt.timezone); got != tt.expected {
			t.Errorf("IsTimezoneValid(%q) = %v, want %v", tt.timezone, got, tt.expected)
		}
	}
}

func TestConvertTime(t *testing.T) {
	utcTime := time.Date(2025, 9, 13, 12, 0, 0, 0, time.UTC)

	out, err := ConvertTime(utcTime, "UTC")
	if err != nil {
		t.Fatalf("ConvertTime error: %v", err)
	}
	if !out.Equal(utcTime) {
		t.Fatalf("ConvertTime returned %v, want %v", out, utcTime)
	}

	if _, err := ConvertTime(utcTime, "Nowhere/Land"); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}
