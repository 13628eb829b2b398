package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"kindred/internal/identity"
)

func TestMatchName(t *testing.T) {
	norm := identity.NewNormalizer(false)
	normalize := func(raw string) identity.Field {
		return norm.Normalize(identity.PatientIdentity{DisplayName: raw}).Name
	}

	t.Run("case and whitespace insensitive through normalization", func(t *testing.T) {
		got := MatchName(normalize("  JOHN DOE "), normalize("john doe"))
		assert.Equal(t, 100, got.Score)
		assert.Equal(t, ReasonExact, got.Reason)
		assert.True(t, got.Matched)
	})

	t.Run("near miss is fuzzy", func(t *testing.T) {
		got := MatchName(normalize("John Doe"), normalize("Jon Doe"))
		assert.Equal(t, ReasonFuzzy, got.Reason)
		assert.Greater(t, got.Score, 85)
		assert.False(t, got.Matched)
	})

	t.Run("absent side is missing with zero score", func(t *testing.T) {
		got := MatchName(identity.Absent(), normalize("john doe"))
		assert.Equal(t, ReasonMissing, got.Reason)
		assert.Zero(t, got.Score)
	})
}

func TestMatchPhone(t *testing.T) {
	tests := []struct {
		name    string
		a, b    string
		matched bool
	}{
		{"identical", "9876543210", "9876543210", true},
		{"international prefix on one side", "9876543210", "919876543210", true},
		{"same last ten digits", "09876543210", "919876543210", true},
		{"different numbers", "9876543210", "1234567890", false},
		{"short numbers no accidental suffix match", "4321", "54321", true}, // substring rule
		{"short distinct numbers", "4321", "8765", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchPhone(identity.Present(tt.a), identity.Present(tt.b))
			assert.Equal(t, tt.matched, got.Matched)
			if tt.matched {
				assert.Equal(t, 100, got.Score)
			} else {
				assert.Equal(t, ReasonMismatch, got.Reason)
			}
		})
	}

	t.Run("absent phone never matches", func(t *testing.T) {
		got := MatchPhone(identity.Absent(), identity.Present("9876543210"))
		assert.False(t, got.Matched)
		assert.Equal(t, ReasonMissing, got.Reason)
	})

	t.Run("symmetric", func(t *testing.T) {
		a, b := identity.Present("9876543210"), identity.Present("919876543210")
		assert.Equal(t, MatchPhone(a, b).Matched, MatchPhone(b, a).Matched)
	})
}

func TestMatchEmail(t *testing.T) {
	t.Run("exact on normalized value", func(t *testing.T) {
		got := MatchEmail(identity.Present("john@example.com"), identity.Present("john@example.com"))
		assert.True(t, got.Matched)
		assert.Equal(t, ReasonExact, got.Reason)
	})

	t.Run("different addresses mismatch", func(t *testing.T) {
		got := MatchEmail(identity.Present("john@example.com"), identity.Present("jane@example.com"))
		assert.False(t, got.Matched)
		assert.Equal(t, ReasonMismatch, got.Reason)
	})

	t.Run("absent email never matches", func(t *testing.T) {
		got := MatchEmail(identity.Present("john@example.com"), identity.Absent())
		assert.False(t, got.Matched)
		assert.Equal(t, ReasonMissing, got.Reason)
	})
}

func TestMatchBirthDate(t *testing.T) {
	day := func(y int, m time.Month, d int) identity.DateField {
		return identity.DateField{Value: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Present: true}
	}

	t.Run("same calendar day matches", func(t *testing.T) {
		got := MatchBirthDate(day(1990, 5, 15), day(1990, 5, 15))
		assert.True(t, got.Matched)
	})

	t.Run("adjacent days do not match", func(t *testing.T) {
		got := MatchBirthDate(day(1990, 5, 15), day(1990, 5, 16))
		assert.False(t, got.Matched)
		assert.Equal(t, ReasonMismatch, got.Reason)
	})

	t.Run("absent date never matches", func(t *testing.T) {
		got := MatchBirthDate(identity.DateField{}, day(1990, 5, 15))
		assert.False(t, got.Matched)
		assert.Equal(t, ReasonMissing, got.Reason)
	})
}

func TestCompareAllProducesEveryChannel(t *testing.T) {
	norm := identity.NewNormalizer(false)
	a := norm.Normalize(identity.PatientIdentity{
		DisplayName: "John Doe",
		DateOfBirth: time.Date(1990, 5, 15, 0, 0, 0, 0, time.UTC),
		Phone:       "987-654-3210",
		Email:       "john@example.com",
	})
	b := norm.Normalize(identity.PatientIdentity{
		DisplayName: "Jon Doe",
		DateOfBirth: time.Date(1990, 5, 15, 10, 30, 0, 0, time.UTC),
		Phone:       "+91 9876543210",
	})

	results := CompareAll(a, b)
	assert.Len(t, results, 4)

	byAttr := map[Attribute]FieldResult{}
	for _, r := range results {
		byAttr[r.Attribute] = r
	}
	assert.Equal(t, ReasonFuzzy, byAttr[AttributeName].Reason)
	assert.True(t, byAttr[AttributeDOB].Matched)
	assert.True(t, byAttr[AttributePhone].Matched)
	assert.Equal(t, ReasonMissing, byAttr[AttributeEmail].Reason)
}
