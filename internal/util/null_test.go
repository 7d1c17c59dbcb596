package util

import (
	"database/sql"
	"testing"
)

func TestNullStringPtr(t *testing.T) {
	if got := NullStringPtr(nil); got.Valid {
		t.Errorf("NullStringPtr(nil) = %v, want invalid", got)
	}
	s := "hello"
	if got := NullStringPtr(&s); !got.Valid || got.String != "hello" {
		t.Errorf("NullStringPtr(&hello) = %v, want valid hello", got)
	}
}

func TestNullStringToPtr(t *testing.T) {
	if got := NullStringToPtr(sql.NullString{}); got != nil {
		t.Errorf("NullStringToPtr(invalid) = %v, want nil", got)
	}
	got := NullStringToPtr(sql.NullString{String: "x", Valid: true})
	if got == nil || *got != "x" {
		t.Errorf("NullStringToPtr(x) = %v, want x", got)
	}
}

func TestBoolToInt64(t *testing.T) {
	if BoolToInt64(true) != 1 || BoolToInt64(false) != 0 {
		t.Error("BoolToInt64 mapping is wrong")
	}
}

func TestFormatCount(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1500, "1.5K"},
		{2500000, "2.5M"},
	}
	for _, tt := range tests {
		if got := FormatCount(tt.in); got != tt.want {
			t.Errorf("FormatCount(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(0.1234); got != "12.3%" {
		t.Errorf("FormatPercent(0.1234) = %q, want 12.3%%", got)
	}
}
