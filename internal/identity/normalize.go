package identity

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
)

// minPhoneDigits is the shortest digit string still worth matching on.
// Anything shorter is treated as absent.
const minPhoneDigits = 4

// Normalizer canonicalizes raw attribute values before comparison. It is a
// pure transformation: no I/O, no errors, missing inputs become Absent fields.
type Normalizer struct {
	foldCase bool
	caser    cases.Caser
}

// NewNormalizer builds a normalizer. With foldCase enabled, names are folded
// with full Unicode case folding instead of plain ASCII lowering, which
// matters for locales where ToLower is not enough (e.g. dotless i).
func NewNormalizer(foldCase bool) *Normalizer {
	n := &Normalizer{foldCase: foldCase}
	if foldCase {
		n.caser = cases.Fold()
	}
	return n
}

// Normalize derives the engine-internal view of a record.
func (n *Normalizer) Normalize(p PatientIdentity) NormalizedIdentity {
	return NormalizedIdentity{
		ID:        p.ID,
		Name:      n.normalizeName(p.DisplayName),
		Phone:     normalizePhone(p.Phone),
		Email:     normalizeEmail(p.Email),
		BirthDate: normalizeBirthDate(p.DateOfBirth),
	}
}

func (n *Normalizer) normalizeName(raw string) Field {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Absent()
	}
	if n.foldCase {
		return Present(n.caser.String(trimmed))
	}
	return Present(strings.ToLower(trimmed))
}

func normalizePhone(raw string) Field {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < minPhoneDigits {
		return Absent()
	}
	return Present(digits)
}

func normalizeEmail(raw string) Field {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Absent()
	}
	return Present(strings.ToLower(trimmed))
}

func normalizeBirthDate(raw time.Time) DateField {
	if raw.IsZero() {
		return DateField{}
	}
	y, m, d := raw.Date()
	return DateField{Value: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Present: true}
}
