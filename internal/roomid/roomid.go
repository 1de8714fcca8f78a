// Package roomid generates and normalizes memorable room names such as
// "breezy-harbor-teapot".
package roomid

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

const maxLength = 64

var (
	separators = regexp.MustCompile(`[\s_]+`)
	invalid    = regexp.MustCompile(`[^a-z0-9-]`)
	dashes     = regexp.MustCompile(`-{2,}`)
)

// Generate returns a random name for which inUse reports false. A nil inUse
// accepts the first candidate.
func Generate(inUse func(string) bool) string {
	for {
		words := make([]string, len(lists))
		for i, list := range lists {
			words[i] = list[randomIndex(len(list))]
		}
		id := strings.Join(words, "-")

		if inUse == nil || !inUse(id) {
			return id
		}
	}
}

// Normalize turns user input into a room name: lower case, words joined by
// single dashes, other characters dropped. It returns "" when nothing usable
// remains.
func Normalize(input string) string {
	id := strings.ToLower(strings.TrimSpace(input))
	id = separators.ReplaceAllString(id, "-")
	id = invalid.ReplaceAllString(id, "")
	id = dashes.ReplaceAllString(id, "-")
	id = strings.Trim(id, "-")
	if len(id) > maxLength {
		id = strings.TrimRight(id[:maxLength], "-")
	}
	return id
}

// randomIndex returns a cryptographically secure random index for a slice of given length.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		log.Panic().Err(err).Msg("failed to generate random index")
	}
	return int(n.Int64())
}
