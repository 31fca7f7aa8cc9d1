package brackets

import (
	"time"

	"github.com/hokushin/kendo-tournament/models"
)

// NextPowerOfTwo returns the smallest power of two >= n.
func NextPowerOfTwo(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}

// SingleElimination generates the opening round of a knockout bracket.
// The bracket is padded to a power of two with byes: the first
// byesNeeded players in the given order each receive a pre-won bye
// match, so registration order decides bye priority. The remaining
// players are paired sequentially; an odd leftover is dropped, the
// caller must ensure parity after byes.
func SingleElimination(t *models.Tournament, matchType models.MatchType, round int, players []string, now time.Time) []*models.Match {
	if len(players) < 2 {
		return nil
	}
	bracketSize := NextPowerOfTwo(len(players))
	byesNeeded := bracketSize - len(players)

	matches := make([]*models.Match, 0, byesNeeded+(len(players)-byesNeeded)/2)
	for i := 0; i < byesNeeded; i++ {
		matches = append(matches, NewByeMatch(t, matchType, round, players[i], now))
	}
	for i := byesNeeded; i+1 < len(players); i += 2 {
		matches = append(matches, NewMatch(t, matchType, round, players[i], players[i+1], now))
	}
	return matches
}

// PairWinners pairs advancing players sequentially into the given
// round. An odd leftover is left unpaired and waits for a later
// advancement call.
func PairWinners(t *models.Tournament, matchType models.MatchType, round int, winners []string, now time.Time) []*models.Match {
	matches := make([]*models.Match, 0, len(winners)/2)
	for i := 0; i+1 < len(winners); i += 2 {
		matches = append(matches, NewMatch(t, matchType, round, winners[i], winners[i+1], now))
	}
	return matches
}
