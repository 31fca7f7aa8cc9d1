package brackets

import "github.com/hokushin/kendo-tournament/models"

// AssignCourts distributes a freshly generated round's matches over the
// tournament's courts. A tournament with a single court is a no-op
// since every match defaults there anyway.
//
// Round robin rounds batch the matches so that no two matches sharing a
// player land in the same simultaneous batch; a colliding match is
// deferred to the next batch. Group-bound matches of a preliminary
// playoff tournament stay on their group's court, rotating whole groups
// over the courts. Every other stage cycles court numbers in schedule
// order with no collision check, knockout rounds never share players.
func AssignCourts(t *models.Tournament, matches []*models.Match) {
	if t.NumberOfCourts <= 1 || len(matches) == 0 {
		return
	}

	switch t.Format {
	case models.FormatRoundRobin:
		courts := t.NumberOfCourts
		if cap := len(t.Players) / 2; cap > 0 && cap < courts {
			courts = cap
		}
		assignBatched(matches, courts)
	case models.FormatPreliminaryPlayoff:
		assignGroupedStage(t, matches)
	default:
		for i, m := range matches {
			m.CourtNumber = i%t.NumberOfCourts + 1
		}
	}
}

// assignGroupedStage routes each match by its own type: preliminary and
// pre playoff matches run on their group's court, so a mixed round of
// tie-breaks for several groups keeps the rotation. Anything else, the
// final playoff bracket included, cycles courts in schedule order.
func assignGroupedStage(t *models.Tournament, matches []*models.Match) {
	cycled := 0
	for _, m := range matches {
		if m.Type == models.MatchTypePreliminary || m.Type == models.MatchTypePrePlayoff {
			if len(m.Players) > 0 {
				if group := t.GroupOf(m.Players[0].PlayerID); group >= 0 {
					m.CourtNumber = group%t.NumberOfCourts + 1
					continue
				}
			}
		}
		m.CourtNumber = cycled%t.NumberOfCourts + 1
		cycled++
	}
}

// assignBatched walks the matches in order, cycling court numbers and
// starting a new batch whenever a match shares a player with one
// already placed in the current batch.
func assignBatched(matches []*models.Match, courts int) {
	pending := make([]*models.Match, len(matches))
	copy(pending, matches)

	court := 0
	for len(pending) > 0 {
		busy := make(map[string]bool)
		deferred := pending[:0:0]
		for _, m := range pending {
			if sharesPlayer(m, busy) {
				deferred = append(deferred, m)
				continue
			}
			m.CourtNumber = court%courts + 1
			court++
			for _, mp := range m.Players {
				busy[mp.PlayerID] = true
			}
		}
		if len(deferred) == len(pending) {
			// Every remaining match collides; place them anyway.
			for _, m := range deferred {
				m.CourtNumber = court%courts + 1
				court++
			}
			return
		}
		pending = deferred
	}
}

func sharesPlayer(m *models.Match, busy map[string]bool) bool {
	for _, mp := range m.Players {
		if busy[mp.PlayerID] {
			return true
		}
	}
	return false
}
