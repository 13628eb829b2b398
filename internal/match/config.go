package match

import (
	dErrors "kindred/pkg/domain-errors"
)

// weightEpsilon is the tolerance when checking that weights sum to 100.
const weightEpsilon = 0.001

// RerunPolicy controls what happens when a re-run scores a pair whose prior
// candidate already carries a human disposition.
type RerunPolicy string

const (
	// RerunSkip leaves the disposed candidate untouched and records nothing.
	RerunSkip RerunPolicy = "skip"
	// RerunSupersede inserts a fresh pending candidate linked to the prior
	// one; the prior disposition is never overwritten.
	RerunSupersede RerunPolicy = "supersede"
)

// BlockingStrategy selects which blocking passes generate candidate pairs.
type BlockingStrategy string

const (
	// BlockingAll runs every pass and unions the resulting pairs.
	BlockingAll BlockingStrategy = "all"
	// BlockingNameBirthYear runs only the name-prefix plus birth-year pass.
	BlockingNameBirthYear BlockingStrategy = "name-birthyear"
	// BlockingPhoneSuffix runs only the phone-suffix pass.
	BlockingPhoneSuffix BlockingStrategy = "phone-suffix"
)

// Config carries every tunable of the engine. Weights and thresholds are
// validated once at startup, not per comparison.
type Config struct {
	// Channel weights, summing to 100.
	NameWeight  float64
	DOBWeight   float64
	PhoneWeight float64
	EmailWeight float64

	// Classification cutoffs on the 0-100 composite score.
	HighThreshold   float64
	MediumThreshold float64
	LowThreshold    float64

	// MinReportScore is the floor below which no candidate is materialized.
	MinReportScore float64

	// LocaleFolding switches name normalization to full Unicode case folding.
	LocaleFolding bool

	// Blocking parameters.
	BlockingStrategy BlockingStrategy
	NamePrefixLength int
	CatchAllLimit    int

	// Workers bounds the number of buckets scored concurrently.
	Workers int

	RerunPolicy RerunPolicy
}

// DefaultConfig returns the tuned defaults. The weights are calibrated so a
// strong name plus all three corroborating attributes lands high, a missing
// email alone drops a pair to medium, and a name-only agreement can never
// classify above low.
func DefaultConfig() Config {
	return Config{
		NameWeight:       40,
		DOBWeight:        25,
		PhoneWeight:      20,
		EmailWeight:      15,
		HighThreshold:    90,
		MediumThreshold:  70,
		LowThreshold:     40,
		MinReportScore:   40,
		BlockingStrategy: BlockingAll,
		NamePrefixLength: 4,
		CatchAllLimit:    1000,
		Workers:          4,
		RerunPolicy:      RerunSkip,
	}
}

// Validate fails fast on configuration errors so a bad deployment never
// produces a single score.
func (c Config) Validate() error {
	for _, w := range []struct {
		name  string
		value float64
	}{
		{"name", c.NameWeight},
		{"dob", c.DOBWeight},
		{"phone", c.PhoneWeight},
		{"email", c.EmailWeight},
	} {
		if w.value < 0 {
			return dErrors.Newf(dErrors.CodeInvalidInput, "%s weight must not be negative, got %v", w.name, w.value)
		}
	}
	sum := c.NameWeight + c.DOBWeight + c.PhoneWeight + c.EmailWeight
	if sum < 100-weightEpsilon || sum > 100+weightEpsilon {
		return dErrors.Newf(dErrors.CodeInvalidInput, "field weights must sum to 100, got %v", sum)
	}
	if c.LowThreshold <= 0 || c.MediumThreshold <= 0 || c.HighThreshold <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "classification thresholds must be positive")
	}
	if !(c.LowThreshold < c.MediumThreshold && c.MediumThreshold < c.HighThreshold) {
		return dErrors.New(dErrors.CodeInvalidInput, "classification thresholds must be strictly increasing low < medium < high")
	}
	if c.MinReportScore < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "minimum reporting threshold must not be negative")
	}
	switch c.BlockingStrategy {
	case BlockingAll, BlockingNameBirthYear, BlockingPhoneSuffix:
	default:
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown blocking strategy %q", c.BlockingStrategy)
	}
	if c.NamePrefixLength < 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "name prefix length must be at least 1")
	}
	if c.CatchAllLimit < 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "catch-all bucket limit must be at least 1")
	}
	if c.Workers < 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "worker count must be at least 1")
	}
	switch c.RerunPolicy {
	case RerunSkip, RerunSupersede:
	default:
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown rerun policy %q", c.RerunPolicy)
	}
	return nil
}
