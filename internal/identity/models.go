// Package identity holds the attribute view of a patient record used for
// comparison, plus the normalization step every comparison depends on. The
// registry owns the records; this package never mutates them.
package identity

import (
	"time"

	"kindred/pkg/domain"
)

// PatientIdentity is the comparable slice of a registry record. Empty strings
// and zero times mean the upstream registry has no value for the attribute.
type PatientIdentity struct {
	ID          domain.PatientID
	DisplayName string
	DateOfBirth time.Time
	Phone       string
	Email       string
}

// Field is a normalized string attribute with explicit presence. Matchers
// branch on Present rather than testing for empty strings, so the behavior for
// missing data is always an explicit path.
type Field struct {
	Value   string
	Present bool
}

// Present wraps a value that exists.
func Present(v string) Field { return Field{Value: v, Present: true} }

// Absent is the sentinel for a missing attribute.
func Absent() Field { return Field{} }

// DateField is a normalized calendar date with explicit presence. Only
// year/month/day are meaningful; time-of-day is stripped by the normalizer.
type DateField struct {
	Value   time.Time
	Present bool
}

// NormalizedIdentity is the engine-internal view of a record after
// canonicalization. It is derived on demand and never persisted.
type NormalizedIdentity struct {
	ID        domain.PatientID
	Name      Field
	Phone     Field
	Email     Field
	BirthDate DateField
}
