package roomid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Shape(t *testing.T) {
	id := Generate(nil)

	parts := strings.Split(id, "-")
	require.Len(t, parts, 3)
	assert.Contains(t, moods, parts[0])
	assert.Contains(t, places, parts[1])
	assert.Contains(t, things, parts[2])
	assert.Equal(t, id, Normalize(id))
}

func TestGenerate_SkipsNamesInUse(t *testing.T) {
	seen := map[string]bool{}
	rejected := 0

	id := Generate(func(candidate string) bool {
		if rejected < 3 {
			rejected++
			seen[candidate] = true
			return true
		}
		return seen[candidate]
	})

	assert.Equal(t, 3, rejected)
	assert.False(t, seen[id])
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"breezy-harbor-teapot", "breezy-harbor-teapot"},
		{"  Team Standup ", "team-standup"},
		{"weekly_sync__2", "weekly-sync-2"},
		{"--design--review--", "design-review"},
		{"café!", "caf"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Truncates(t *testing.T) {
	id := Normalize(strings.Repeat("ab-", 40))

	assert.LessOrEqual(t, len(id), maxLength)
	assert.False(t, strings.HasSuffix(id, "-"))
}
