package match

import (
	"fmt"
	"strings"

	"kindred/internal/identity"
	"kindred/pkg/domain"
)

// BlockingKey is the cheap signature grouping records so only same-group
// records are ever compared.
type BlockingKey string

// catchAllKey collects records that produce no usable signature. It is capped
// so a population full of sparse records cannot reintroduce quadratic cost.
const catchAllKey BlockingKey = "catch-all"

// Bucket is an ephemeral grouping of records sharing a blocking key. Buckets
// are rebuilt per run and never persisted.
type Bucket struct {
	Key     BlockingKey
	Records []identity.NormalizedIdentity
}

// Pass is one partition of the population under a single key derivation. Runs
// execute every pass and union the resulting candidate pairs, since two true
// duplicates can disagree enough on one attribute to land in different
// buckets under a single key.
type Pass struct {
	Name    string
	Buckets []Bucket
}

// Partition is the output of the blocking step: the passes to score, plus the
// records that overflowed the capped catch-all bucket and must go to manual
// review instead of being compared.
type Partition struct {
	Passes   []Pass
	Overflow []domain.PatientID
}

// Blocker derives blocking keys and groups records into buckets.
type Blocker struct {
	strategy      BlockingStrategy
	prefixLen     int
	catchAllLimit int
}

// NewBlocker constructs a blocker from validated config.
func NewBlocker(cfg Config) *Blocker {
	return &Blocker{
		strategy:      cfg.BlockingStrategy,
		prefixLen:     cfg.NamePrefixLength,
		catchAllLimit: cfg.CatchAllLimit,
	}
}

// Partition groups records into buckets, one pass per enabled key derivation:
// a name-prefix plus birth-year key, and a phone-suffix key for records the
// first cannot cover on its own. Records no enabled pass can key land in the
// capped catch-all bucket of the first pass.
func (b *Blocker) Partition(records []identity.NormalizedIdentity) Partition {
	useName := b.strategy != BlockingPhoneSuffix
	usePhone := b.strategy != BlockingNameBirthYear

	nameBuckets := make(map[BlockingKey][]identity.NormalizedIdentity)
	phoneBuckets := make(map[BlockingKey][]identity.NormalizedIdentity)
	var catchAll []identity.NormalizedIdentity
	var overflow []domain.PatientID

	for _, rec := range records {
		keyed := false
		if useName {
			if key, ok := b.nameYearKey(rec); ok {
				nameBuckets[key] = append(nameBuckets[key], rec)
				keyed = true
			}
		}
		if usePhone {
			if key, ok := phoneSuffixKey(rec); ok {
				phoneBuckets[key] = append(phoneBuckets[key], rec)
				keyed = true
			}
		}
		if !keyed {
			if len(catchAll) >= b.catchAllLimit {
				overflow = append(overflow, rec.ID)
				continue
			}
			catchAll = append(catchAll, rec)
		}
	}

	passes := make([]Pass, 0, 2)
	if useName {
		passes = append(passes, Pass{Name: string(BlockingNameBirthYear), Buckets: toBuckets(nameBuckets)})
	}
	if usePhone {
		passes = append(passes, Pass{Name: string(BlockingPhoneSuffix), Buckets: toBuckets(phoneBuckets)})
	}
	if len(catchAll) > 1 {
		passes[0].Buckets = append(passes[0].Buckets, Bucket{Key: catchAllKey, Records: catchAll})
	}

	return Partition{Passes: passes, Overflow: overflow}
}

// nameYearKey folds the name down to its leading consonants and appends the
// birth year. A record with no name gets no key under this pass; a record
// with a name but no birth date still gets one, with a fixed year marker, so
// clusters of undated records remain comparable.
func (b *Blocker) nameYearKey(rec identity.NormalizedIdentity) (BlockingKey, bool) {
	if !rec.Name.Present {
		return "", false
	}
	folded := consonantFold(rec.Name.Value, b.prefixLen)
	if folded == "" {
		return "", false
	}
	year := "----"
	if rec.BirthDate.Present {
		year = fmt.Sprintf("%04d", rec.BirthDate.Value.Year())
	}
	return BlockingKey("n:" + folded + ":" + year), true
}

// phoneSuffixKey keys on the last four digits of the normalized phone, which
// survive dialing-code and trunk-prefix differences.
func phoneSuffixKey(rec identity.NormalizedIdentity) (BlockingKey, bool) {
	if !rec.Phone.Present {
		return "", false
	}
	return BlockingKey("p:" + lastDigits(rec.Phone.Value, 4)), true
}

// consonantFold keeps the first n consonants of s, skipping vowels and
// anything that is not a letter. Folding absorbs the most common transcription
// noise (dropped or swapped vowels) so near-identical names share a key.
func consonantFold(s string, n int) string {
	var b strings.Builder
	for _, r := range s {
		if r < 'a' || r > 'z' {
			continue
		}
		switch r {
		case 'a', 'e', 'i', 'o', 'u':
			continue
		}
		b.WriteRune(r)
		if b.Len() == n {
			break
		}
	}
	return b.String()
}

func toBuckets(m map[BlockingKey][]identity.NormalizedIdentity) []Bucket {
	buckets := make([]Bucket, 0, len(m))
	for key, recs := range m {
		if len(recs) < 2 {
			continue // nothing to compare
		}
		buckets = append(buckets, Bucket{Key: key, Records: recs})
	}
	return buckets
}
