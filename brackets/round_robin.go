package brackets

import (
	"time"

	"github.com/hokushin/kendo-tournament/models"
)

// MatchesForNewPlayer generates one match between the new player and
// every already registered player in the set, in registration order.
// Round robin schedules grow incrementally this way on each signup
// rather than being recomputed from scratch.
func MatchesForNewPlayer(t *models.Tournament, matchType models.MatchType, round int, newPlayer string, existing []string, now time.Time) []*models.Match {
	matches := make([]*models.Match, 0, len(existing))
	for _, opponent := range existing {
		if opponent == newPlayer {
			continue
		}
		matches = append(matches, NewMatch(t, matchType, round, opponent, newPlayer, now))
	}
	return matches
}

// RoundRobin accumulates a full round robin over the player set by
// adding one player at a time, producing every unordered pairing
// exactly once at the given round.
func RoundRobin(t *models.Tournament, matchType models.MatchType, round int, players []string, now time.Time) []*models.Match {
	matches := make([]*models.Match, 0, len(players)*(len(players)-1)/2)
	for i := 1; i < len(players); i++ {
		matches = append(matches, MatchesForNewPlayer(t, matchType, round, players[i], players[:i], now)...)
	}
	return matches
}
