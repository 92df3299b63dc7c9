package progress

import (
	"fmt"
	"math"
	"strings"
)

// Status says whether a report could be computed
type Status string

const (
	StatusOK               Status = "ok"
	StatusNoData           Status = "no_data"
	StatusInsufficientData Status = "insufficient_data"
)

// Verdict is the overall trend
type Verdict string

const (
	Improving      Verdict = "IMPROVING"
	Stable         Verdict = "STABLE"
	NeedsAttention Verdict = "NEEDS ATTENTION"
)

// User facing messages for reports without a trend.
const (
	MessageNoData           = "No data available for this user."
	MessageInsufficientData = "Need at least 2 analyses to track progress."
)

// Thresholds are the trend and recommendation boundaries.
type Thresholds struct {
	// StableHeight is the absolute height change below which the trend is stable
	StableHeight float64 `toml:"stable_height"`
	// StrongRecession is the height increase above which recession is significant
	StrongRecession float64 `toml:"strong_recession"`
	// StrongDensityGain is the density increase above which improvement is excellent
	StrongDensityGain float64 `toml:"strong_density_gain"`
	// DensityLoss is the density decrease beyond which a warning is given
	DensityLoss float64 `toml:"density_loss"`
}

// DefaultThresholds returns the reference boundaries
func DefaultThresholds() Thresholds {
	return Thresholds{
		StableHeight:      0.01,
		StrongRecession:   0.02,
		StrongDensityGain: 0.1,
		DensityLoss:       0.05,
	}
}

// Validate rejects negative thresholds.
func (t Thresholds) Validate() error {
	for name, v := range map[string]float64{
		"stable_height":       t.StableHeight,
		"strong_recession":    t.StrongRecession,
		"strong_density_gain": t.StrongDensityGain,
		"density_loss":        t.DensityLoss,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative, got %v", name, v)
		}
	}
	return nil
}

// Verdict judges the trend from the first-to-last deltas.
func (t Thresholds) Verdict(heightDelta, densityDelta float64) Verdict {
	switch {
	case densityDelta > 0 && heightDelta < 0:
		return Improving
	case math.Abs(heightDelta) < t.StableHeight:
		return Stable
	default:
		return NeedsAttention
	}
}

// Recommendations returns the advice lines triggered by the deltas. The
// height and density ladders are independent; when neither triggers a single
// no-change message is returned.
func (t Thresholds) Recommendations(heightDelta, densityDelta float64) []string {
	var recs []string

	switch {
	case heightDelta > t.StrongRecession:
		recs = append(recs,
			"- Significant hairline recession detected",
			"- Consider consulting a dermatologist")
	case heightDelta > 0:
		recs = append(recs,
			"- Minor hairline changes observed",
			"- Monitor closely and maintain current routine")
	}

	switch {
	case densityDelta > t.StrongDensityGain:
		recs = append(recs,
			"- Excellent density improvement!",
			"- Continue with current treatment plan")
	case densityDelta > 0:
		recs = append(recs,
			"- Positive density changes observed",
			"- Treatment appears effective")
	case densityDelta < -t.DensityLoss:
		recs = append(recs,
			"- Density decrease detected",
			"- Review treatment approach")
	}

	if len(recs) == 0 {
		recs = append(recs,
			"- No significant changes detected",
			"- Maintain consistent monitoring")
	}
	return recs
}

// SeriesPoint is one snapshot as plotted on the progress chart.
type SeriesPoint struct {
	Timestamp      string  `json:"timestamp"`
	Date           string  `json:"date"`
	HairlineHeight float64 `json:"hairline_height"`
	ForeheadRatio  float64 `json:"forehead_ratio"`
	DensityScore   float64 `json:"density_score"`
	ProgressScore  float64 `json:"progress_score"`
}

// ProgressScore combines a lower hairline and higher density into one number
func ProgressScore(hairlineHeight, densityScore float64) float64 {
	return (1 - hairlineHeight) + densityScore
}

// Report is the trend over a subject's snapshot series.
type Report struct {
	SubjectID       string        `json:"subject_id"`
	Status          Status        `json:"status"`
	Message         string        `json:"message,omitempty"`
	From            string        `json:"from,omitempty"`
	To              string        `json:"to,omitempty"`
	Samples         int           `json:"samples"`
	HeightDelta     float64       `json:"height_delta"`
	DensityDelta    float64       `json:"density_delta"`
	RatioDelta      float64       `json:"ratio_delta"`
	Verdict         Verdict       `json:"verdict,omitempty"`
	Recommendations []string      `json:"recommendations,omitempty"`
	Series          []SeriesPoint `json:"series,omitempty"`
}

// OK reports whether the trend was computed
func (r *Report) OK() bool {
	return r.Status == StatusOK
}

// Text renders the report for terminals and report files.
func (r *Report) Text() string {
	if !r.OK() {
		return r.Message
	}

	var b strings.Builder
	b.WriteString("HAIRLINE PROGRESS REPORT\n")
	b.WriteString("========================\n")
	fmt.Fprintf(&b, "Analysis Period: %s to %s\n\n", r.From, r.To)
	b.WriteString("METRICS:\n")
	fmt.Fprintf(&b, "- Hairline Height Change: %+.3f\n", r.HeightDelta)
	b.WriteString("  (Negative = improvement, Positive = recession)\n\n")
	fmt.Fprintf(&b, "- Density Score Change: %+.3f\n", r.DensityDelta)
	b.WriteString("  (Positive = improvement, Negative = deterioration)\n\n")
	fmt.Fprintf(&b, "- Overall Progress: %s\n\n", r.Verdict)
	b.WriteString("RECOMMENDATIONS:\n")
	b.WriteString(strings.Join(r.Recommendations, "\n"))
	b.WriteString("\n")
	return b.String()
}
