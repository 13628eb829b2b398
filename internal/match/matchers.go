package match

import (
	"strings"

	"kindred/internal/identity"
)

// Attribute names the comparison channel a FieldResult belongs to.
type Attribute string

const (
	AttributeName  Attribute = "name"
	AttributeDOB   Attribute = "dob"
	AttributePhone Attribute = "phone"
	AttributeEmail Attribute = "email"
)

// Reason explains why a field comparison produced its score. It travels with
// the candidate so reviewers and regression tests can see how a pair scored.
type Reason string

const (
	ReasonExact    Reason = "exact"
	ReasonFuzzy    Reason = "fuzzy"
	ReasonMissing  Reason = "missing"
	ReasonMismatch Reason = "mismatch"
)

// FieldResult is the outcome of comparing one attribute across a pair.
// Score is 0-100; boolean matchers only ever produce 0 or 100.
type FieldResult struct {
	Attribute Attribute `json:"attribute"`
	Score     int       `json:"score"`
	Matched   bool      `json:"matched"`
	Reason    Reason    `json:"reason"`
}

// phoneSuffixLen is how many trailing digits must agree for two phones with
// different dialing-code lengths to be considered the same line.
const phoneSuffixLen = 10

// MatchName grades normalized names by edit-distance similarity.
func MatchName(a, b identity.Field) FieldResult {
	if !a.Present || !b.Present {
		return FieldResult{Attribute: AttributeName, Reason: ReasonMissing}
	}
	if a.Value == b.Value {
		return FieldResult{Attribute: AttributeName, Score: 100, Matched: true, Reason: ReasonExact}
	}
	score := Similarity(a.Value, b.Value)
	if score == 0 {
		return FieldResult{Attribute: AttributeName, Reason: ReasonMismatch}
	}
	return FieldResult{Attribute: AttributeName, Score: score, Reason: ReasonFuzzy}
}

// MatchPhone compares digit-only phone values. Two phones match when either
// contains the other (international dialing-code prefixes) or their last ten
// digits are identical (differing trunk prefixes). Absent on either side is
// never a wildcard.
func MatchPhone(a, b identity.Field) FieldResult {
	if !a.Present || !b.Present {
		return FieldResult{Attribute: AttributePhone, Reason: ReasonMissing}
	}
	if a.Value == b.Value {
		return FieldResult{Attribute: AttributePhone, Score: 100, Matched: true, Reason: ReasonExact}
	}
	if strings.Contains(a.Value, b.Value) || strings.Contains(b.Value, a.Value) {
		return FieldResult{Attribute: AttributePhone, Score: 100, Matched: true, Reason: ReasonFuzzy}
	}
	if lastDigits(a.Value, phoneSuffixLen) == lastDigits(b.Value, phoneSuffixLen) {
		return FieldResult{Attribute: AttributePhone, Score: 100, Matched: true, Reason: ReasonFuzzy}
	}
	return FieldResult{Attribute: AttributePhone, Reason: ReasonMismatch}
}

// MatchEmail is an exact comparison of the normalized (trimmed, lower-cased)
// addresses.
func MatchEmail(a, b identity.Field) FieldResult {
	if !a.Present || !b.Present {
		return FieldResult{Attribute: AttributeEmail, Reason: ReasonMissing}
	}
	if a.Value == b.Value {
		return FieldResult{Attribute: AttributeEmail, Score: 100, Matched: true, Reason: ReasonExact}
	}
	return FieldResult{Attribute: AttributeEmail, Reason: ReasonMismatch}
}

// MatchBirthDate compares calendar day only; the normalizer has already
// stripped time-of-day.
func MatchBirthDate(a, b identity.DateField) FieldResult {
	if !a.Present || !b.Present {
		return FieldResult{Attribute: AttributeDOB, Reason: ReasonMissing}
	}
	if a.Value.Equal(b.Value) {
		return FieldResult{Attribute: AttributeDOB, Score: 100, Matched: true, Reason: ReasonExact}
	}
	return FieldResult{Attribute: AttributeDOB, Reason: ReasonMismatch}
}

// CompareAll runs every field matcher over a normalized pair. Results are
// produced fresh per comparison and never shared across pairs.
func CompareAll(a, b identity.NormalizedIdentity) []FieldResult {
	return []FieldResult{
		MatchName(a.Name, b.Name),
		MatchBirthDate(a.BirthDate, b.BirthDate),
		MatchPhone(a.Phone, b.Phone),
		MatchEmail(a.Email, b.Email),
	}
}

func lastDigits(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
