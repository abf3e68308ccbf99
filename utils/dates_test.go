package utils

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		in      string
		wantErr bool
	}{
		{in: "2024-03-05"},
		{in: "03/05/2024"},
		{in: "05-03-2024"},
		{in: " 2024-03-05 "},
		{in: "2024/03/05", wantErr: true},
		{in: "2024-02-30", wantErr: true},
		{in: "yesterday", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseDate(%q) = %v, want error", tt.in, got)
			}
			continue
		}
		if err != nil || !got.Equal(want) {
			t.Fatalf("ParseDate(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestLooksLikeDate(t *testing.T) {
	tests := map[string]bool{
		"2024-03-05":  true,
		"03/05/2024":  true,
		"05-03-2024":  true,
		"2024-13-45":  true,
		"Amy":         false,
		"2024-3-5":    false,
		"20240305AB":  false,
		"12345678901": false,
	}
	for in, want := range tests {
		if got := LooksLikeDate(in); got != want {
			t.Fatalf("LooksLikeDate(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDateOnlyAndDaysBetween(t *testing.T) {
	hk := time.FixedZone("HKT", 8*3600)
	late := time.Date(2024, 3, 5, 23, 30, 0, 0, hk)
	if got := DateOnly(late); !got.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("DateOnly = %v", got)
	}

	start := time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 29, 2, 0, 0, 0, time.UTC)
	if got := DaysBetween(start, end); got != 180 {
		t.Fatalf("DaysBetween = %d, want 180", got)
	}
}

func TestParseMonth(t *testing.T) {
	if m, err := ParseMonth("2024-03"); err != nil || m.Month() != time.March {
		t.Fatalf("ParseMonth = %v, %v", m, err)
	}
	for _, bad := range []string{"2024-13", "03-2024", ""} {
		if _, err := ParseMonth(bad); err == nil {
			t.Fatalf("ParseMonth(%q) accepted", bad)
		}
	}
}
