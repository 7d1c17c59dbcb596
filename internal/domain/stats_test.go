package domain

import "testing"

func TestConversionRate(t *testing.T) {
	tests := []struct {
		name  string
		stats VariantStats
		want  float64
	}{
		{"no impressions", VariantStats{}, 0},
		{"no conversions", VariantStats{Impressions: 100}, 0},
		{"half convert", VariantStats{Impressions: 200, Conversions: 100}, 0.5},
		{"all convert", VariantStats{Impressions: 50, Conversions: 50}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stats.ConversionRate(); got != tt.want {
				t.Errorf("ConversionRate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEventKindValid(t *testing.T) {
	if !EventImpression.Valid() || !EventConversion.Valid() {
		t.Error("known kinds should be valid")
	}
	if EventKind("pageview").Valid() {
		t.Error("unknown kind should be invalid")
	}
}

func TestEventName(t *testing.T) {
	e := TrackingEvent{Kind: EventConversion}
	if got := e.EventName(); got != "ab_conversion" {
		t.Errorf("EventName() = %q, want ab_conversion", got)
	}
}
