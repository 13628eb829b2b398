// Package domain holds identifier types shared across the engine. Typed IDs
// keep patient identifiers from being confused with candidate or run IDs at
// compile time.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "kindred/pkg/domain-errors"
)

// PatientID identifies a patient record in the upstream registry.
type PatientID uuid.UUID

// ParsePatientID validates and parses a patient identifier. IDs must be
// valid, non-empty, non-nil UUIDs.
func ParsePatientID(s string) (PatientID, error) {
	if s == "" {
		return PatientID{}, dErrors.New(dErrors.CodeInvalidInput, "patient id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return PatientID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "patient id is not a valid UUID")
	}
	if u == uuid.Nil {
		return PatientID{}, dErrors.New(dErrors.CodeInvalidInput, "patient id must not be the nil UUID")
	}
	return PatientID(u), nil
}

func (id PatientID) String() string { return uuid.UUID(id).String() }

func (id PatientID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText serializes the ID as its canonical UUID string.
func (id PatientID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses the ID with the same validation as ParsePatientID.
func (id *PatientID) UnmarshalText(b []byte) error {
	parsed, err := ParsePatientID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// PairKey is the canonical representation of an unordered pair of patient
// records. Low always sorts lexicographically before High, so the same two
// records produce the same key regardless of comparison order.
type PairKey struct {
	Low  PatientID
	High PatientID
}

// NewPairKey builds the canonical key for two record identifiers.
func NewPairKey(a, b PatientID) (PairKey, error) {
	if a.IsNil() || b.IsNil() {
		return PairKey{}, dErrors.New(dErrors.CodeInvalidInput, "pair requires two non-nil patient ids")
	}
	if a == b {
		return PairKey{}, dErrors.New(dErrors.CodeInvalidInput, "pair requires two distinct patient ids")
	}
	if strings.Compare(a.String(), b.String()) > 0 {
		a, b = b, a
	}
	return PairKey{Low: a, High: b}, nil
}

// ParsePairKey parses the "low:high" wire form produced by String.
func ParsePairKey(s string) (PairKey, error) {
	low, high, ok := strings.Cut(s, ":")
	if !ok {
		return PairKey{}, dErrors.New(dErrors.CodeInvalidInput, "pair key must be of the form low:high")
	}
	a, err := ParsePatientID(low)
	if err != nil {
		return PairKey{}, err
	}
	b, err := ParsePatientID(high)
	if err != nil {
		return PairKey{}, err
	}
	return NewPairKey(a, b)
}

func (k PairKey) String() string { return k.Low.String() + ":" + k.High.String() }

func (k PairKey) IsZero() bool { return k.Low.IsNil() && k.High.IsNil() }
