package match

// ConfidenceLevel is the discrete classification derived from the composite
// score. ConfidenceNone means the pair is not reported as a candidate.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceNone   ConfidenceLevel = "none"
)

// Scorer combines per-field results into one composite score and a
// classification. Given the same results and config, scoring is deterministic.
type Scorer struct {
	cfg Config
}

// NewScorer validates the config and constructs a scorer. Validation failures
// here are startup errors; nothing may be scored against a bad config.
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

// Score produces the weighted composite of the field results. Absent fields
// contribute zero for their channel rather than being renormalized away, so
// records with fewer corroborating attributes naturally score lower.
func (s *Scorer) Score(results []FieldResult) (float64, ConfidenceLevel) {
	var composite float64
	for _, r := range results {
		composite += s.weightFor(r.Attribute) * float64(r.Score) / 100
	}
	return composite, s.Classify(composite)
}

// Classify maps a composite score onto a confidence level using the
// configured cutoffs.
func (s *Scorer) Classify(score float64) ConfidenceLevel {
	switch {
	case score >= s.cfg.HighThreshold:
		return ConfidenceHigh
	case score >= s.cfg.MediumThreshold:
		return ConfidenceMedium
	case score >= s.cfg.LowThreshold:
		return ConfidenceLow
	default:
		return ConfidenceNone
	}
}

// Reportable reports whether a score clears the minimum reporting threshold
// and classifies above none.
func (s *Scorer) Reportable(score float64) bool {
	return score >= s.cfg.MinReportScore && s.Classify(score) != ConfidenceNone
}

func (s *Scorer) weightFor(attr Attribute) float64 {
	switch attr {
	case AttributeName:
		return s.cfg.NameWeight
	case AttributeDOB:
		return s.cfg.DOBWeight
	case AttributePhone:
		return s.cfg.PhoneWeight
	case AttributeEmail:
		return s.cfg.EmailWeight
	default:
		return 0
	}
}
