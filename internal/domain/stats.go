package domain

// VariantStats aggregates tracking events for one variant of a test.
type VariantStats struct {
	TestID         string
	VariantID      string
	Impressions    int64
	Conversions    int64
	UniqueVisitors int64
}

// ConversionRate returns conversions per impression.
// Zero-safe: returns 0 when the variant has no impressions yet.
func (s *VariantStats) ConversionRate() float64 {
	if s.Impressions == 0 {
		return 0
	}
	return float64(s.Conversions) / float64(s.Impressions)
}

// TestReport is the comparison view over all variants of a test.
// Winner is nil until one variant leads with enough data to call it.
type TestReport struct {
	TestID         string
	TestName       string
	Variants       []VariantStats
	Winner         *VariantStats
	Confidence     float64
	Recommendation string
}
