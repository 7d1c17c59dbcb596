package analytics

import (
	"fmt"
	"math"

	"github.com/pm33/abtest/internal/domain"
)

const (
	// minSampleSize is the per-variant impression floor below which no
	// winner is called.
	minSampleSize = 100

	// zCritical95 is the two-tailed z value for 95% confidence.
	zCritical95 = 1.96
)

// determineWinner compares the leading variant's conversion rate against
// the runner-up with a two-proportion z-test and fills in Winner,
// Confidence, and Recommendation when the lead is significant.
func (s *Service) determineWinner(report *domain.TestReport) {
	if len(report.Variants) < 2 {
		report.Recommendation = "Add at least two variants to compare."
		return
	}

	best, second := -1, -1
	for i := range report.Variants {
		if best == -1 || report.Variants[i].ConversionRate() > report.Variants[best].ConversionRate() {
			second = best
			best = i
		} else if second == -1 || report.Variants[i].ConversionRate() > report.Variants[second].ConversionRate() {
			second = i
		}
	}

	a, b := &report.Variants[best], &report.Variants[second]
	if a.Impressions < minSampleSize || b.Impressions < minSampleSize {
		report.Recommendation = fmt.Sprintf(
			"Keep collecting data: each variant needs at least %d impressions before a winner can be called.",
			minSampleSize)
		return
	}

	z := twoProportionZ(a.Conversions, a.Impressions, b.Conversions, b.Impressions)
	confidence := zToConfidence(z)
	if math.Abs(z) < zCritical95 {
		report.Confidence = confidence
		report.Recommendation = fmt.Sprintf(
			"No significant difference between %q and %q yet (%.0f%% confidence, need 95%%).",
			a.VariantID, b.VariantID, confidence*100)
		return
	}

	report.Winner = a
	report.Confidence = confidence
	report.Recommendation = fmt.Sprintf(
		"Variant %q leads with %.1f%% conversion vs %.1f%% (%.0f%% confidence). Consider rolling it out.",
		a.VariantID, a.ConversionRate()*100, b.ConversionRate()*100, confidence*100)
}

// twoProportionZ computes the z statistic for the difference between two
// conversion proportions using the pooled standard error.
func twoProportionZ(conv1, imp1, conv2, imp2 int64) float64 {
	if imp1 == 0 || imp2 == 0 {
		return 0
	}
	p1 := float64(conv1) / float64(imp1)
	p2 := float64(conv2) / float64(imp2)
	pooled := float64(conv1+conv2) / float64(imp1+imp2)
	se := math.Sqrt(pooled * (1 - pooled) * (1/float64(imp1) + 1/float64(imp2)))
	if se == 0 {
		return 0
	}
	return (p1 - p2) / se
}

// zToConfidence converts a z statistic to two-tailed confidence using
// the error function form of the normal CDF.
func zToConfidence(z float64) float64 {
	return math.Erf(math.Abs(z) / math.Sqrt2)
}
