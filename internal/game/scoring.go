package game

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// PassGuess is the sentinel a player submits to skip a turn. It is recorded
// like a guess and counts toward the guess limit, but can never win.
const PassGuess = "----"

// DefaultGuessLimit is the total number of recorded guesses (across all
// players of a room) after which a round is lost.
const DefaultGuessLimit = 8

// RandomSecret returns a random 4-digit secret with pairwise distinct digits.
// Results with a leading zero (value below 1000) are rejected and resampled.
func RandomSecret() string {
	digits := []byte("0123456789")
	for {
		rand.Shuffle(len(digits), func(i, j int) {
			digits[i], digits[j] = digits[j], digits[i]
		})
		if digits[0] != '0' {
			return string(digits[:4])
		}
	}
}

// ScoreGuess scores guess against secret: a digit at the same index is
// correct, a digit present elsewhere in the secret is displaced. Both inputs
// must already pass ValidGuess; secret digits are unique, so each guess digit
// contributes to at most one of the two counts.
func ScoreGuess(secret, guess string) (correct, displaced int) {
	for i := 0; i < len(guess); i++ {
		switch {
		case guess[i] == secret[i]:
			correct++
		case strings.IndexByte(secret, guess[i]) >= 0:
			displaced++
		}
	}
	return correct, displaced
}

// ValidGuess reports whether s is a well-formed guess: exactly 4 digits,
// pairwise unique, leading digit non-zero.
func ValidGuess(s string) bool {
	if len(s) != 4 || s[0] == '0' {
		return false
	}
	var seen [10]bool
	for i := 0; i < 4; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
		d := s[i] - '0'
		if seen[d] {
			return false
		}
		seen[d] = true
	}
	return true
}

// FormatScore renders a score the way clients display it, e.g. "2A2B".
func FormatScore(correct, displaced int) string {
	return fmt.Sprintf("%dA%dB", correct, displaced)
}
