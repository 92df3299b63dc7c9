// Package classify maps a metric bundle to a hairline type.
package classify

import "github.com/dudu/hairline/internal/metrics"

// Type is a hairline category
type Type string

const (
	Receding   Type = "Receding"
	Mature     Type = "Mature"
	Low        Type = "Low"
	High       Type = "High"
	Asymmetric Type = "Asymmetric"
	Normal     Type = "Normal"
)

// Types lists every category in cascade order
var Types = []Type{Receding, Mature, Low, High, Asymmetric, Normal}

// Rules holds the cascade thresholds.
type Rules struct {
	RecedingAbove   float64 `toml:"receding_above"`
	MatureAbove     float64 `toml:"mature_above"`
	LowBelow        float64 `toml:"low_below"`
	HighAbove       float64 `toml:"high_above"`
	AsymmetricBelow float64 `toml:"asymmetric_below"`
}

// DefaultRules returns the reference thresholds
func DefaultRules() Rules {
	return Rules{
		RecedingAbove:   0.7,
		MatureAbove:     0.5,
		LowBelow:        0.15,
		HighAbove:       0.25,
		AsymmetricBelow: 0.6,
	}
}

// Classify runs the rule cascade; the first matching rule wins.
//
// Recession score is a constant placeholder below both recession
// thresholds, so Receding and Mature are never produced for bundles coming
// from metrics.Engine.
func (r Rules) Classify(b metrics.Bundle) Type {
	switch {
	case b.RecessionScore > r.RecedingAbove:
		return Receding
	case b.RecessionScore > r.MatureAbove:
		return Mature
	case b.HairlineHeight < r.LowBelow:
		return Low
	case b.HairlineHeight > r.HighAbove:
		return High
	case b.SymmetryScore < r.AsymmetricBelow:
		return Asymmetric
	default:
		return Normal
	}
}

// Classify uses the default rules
func Classify(b metrics.Bundle) Type {
	return DefaultRules().Classify(b)
}
