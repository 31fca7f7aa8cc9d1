package brackets

import (
	"time"

	"github.com/dominikbraun/graph"

	"github.com/hokushin/kendo-tournament/models"
	"github.com/hokushin/kendo-tournament/standings"
)

// SwissPairer tracks which opponents every player has already faced.
// Played pairings form edges of an undirected graph over the player
// ids; a legal pairing is one with no existing edge. A bye is recorded
// as a self-pairing marker so a player gets at most one.
type SwissPairer struct {
	opponents graph.Graph[string, string]
	hadBye    map[string]bool
}

// NewSwissPairer builds the opponent graph from the rounds already
// played.
func NewSwissPairer(players []string, played []*models.Match) *SwissPairer {
	p := &SwissPairer{
		opponents: graph.New(graph.StringHash),
		hadBye:    make(map[string]bool),
	}
	for _, id := range players {
		_ = p.opponents.AddVertex(id)
	}
	for _, m := range played {
		if m.IsBye() {
			p.hadBye[m.Players[0].PlayerID] = true
			continue
		}
		if len(m.Players) == 2 {
			_ = p.opponents.AddEdge(m.Players[0].PlayerID, m.Players[1].PlayerID)
		}
	}
	return p
}

// HavePlayed reports whether the two players met in an earlier round.
func (p *SwissPairer) HavePlayed(a, b string) bool {
	_, err := p.opponents.Edge(a, b)
	return err == nil
}

// HadBye reports whether the player already received a bye.
func (p *SwissPairer) HadBye(playerID string) bool {
	return p.hadBye[playerID]
}

// NextRound pairs a new round from the given ranking (best first).
// With an odd player count the highest-ranked player without a bye
// receives one. Pairing then starts from the lowest-ranked unpaired
// player, trying the next-lowest opponent that is free and not yet
// faced; a player with no legal opponent is requeued and waits for a
// later round if the pool runs out.
func (p *SwissPairer) NextRound(t *models.Tournament, ranking []standings.Entry, round int, now time.Time) []*models.Match {
	pool := make([]string, 0, len(ranking))
	for _, e := range ranking {
		pool = append(pool, e.PlayerID)
	}

	matches := make([]*models.Match, 0, len(pool)/2+1)

	if len(pool)%2 == 1 {
		for i, id := range pool {
			if p.hadBye[id] {
				continue
			}
			matches = append(matches, NewByeMatch(t, models.MatchTypeSwiss, round, id, now))
			p.hadBye[id] = true
			pool = append(pool[:i], pool[i+1:]...)
			break
		}
	}

	paired := make(map[string]bool, len(pool))
	// Walk the ranking bottom-up.
	for i := len(pool) - 1; i >= 0; i-- {
		current := pool[i]
		if paired[current] {
			continue
		}
		for j := i - 1; j >= 0; j-- {
			candidate := pool[j]
			if paired[candidate] || p.HavePlayed(current, candidate) {
				continue
			}
			matches = append(matches, NewMatch(t, models.MatchTypeSwiss, round, current, candidate, now))
			_ = p.opponents.AddEdge(current, candidate)
			paired[current] = true
			paired[candidate] = true
			break
		}
		// No legal opponent: the player stays unpaired this round.
	}
	return matches
}
