package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{
			name:  "removes duplicates and blanks",
			input: []string{"  broker-a:9092 ", "broker-b:9092", "broker-a:9092", "", "  "},
			want:  []string{"broker-a:9092", "broker-b:9092"},
		},
		{
			name:  "preserves order",
			input: []string{"c", "a", "b", "a"},
			want:  []string{"c", "a", "b"},
		},
		{
			name:  "nil input",
			input: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeAndTrim(tt.input))
		})
	}
}
