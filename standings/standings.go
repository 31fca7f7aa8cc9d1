// Package standings derives player rankings from a set of matches.
// All computation is pure: standings are never persisted and can be
// re-derived from the match set at any time.
package standings

import (
	"sort"

	"github.com/hokushin/kendo-tournament/models"
)

// Entry is one player's line in a ranking. A win is worth three points,
// a tie one; ScoredPoints carries the ippon-equivalent totals as stored
// on the matches and breaks win-point ties.
type Entry struct {
	PlayerID     string `json:"player_id"`
	WinPoints    int    `json:"win_points"`
	ScoredPoints int    `json:"scored_points"`
}

// Calculate ranks the given players over the match set, descending by
// win points then scored points. The sort is stable, so players tied on
// both keys keep discovery order.
func Calculate(players []string, matches []*models.Match) []Entry {
	totals := make(map[string]*Entry, len(players))
	entries := make([]Entry, len(players))
	for i, p := range players {
		entries[i] = Entry{PlayerID: p}
		totals[p] = &entries[i]
	}

	for _, m := range matches {
		if m.Winner != nil {
			if e, ok := totals[*m.Winner]; ok {
				e.WinPoints += 3
			}
		} else if m.EndTimestamp != nil {
			for _, mp := range m.Players {
				if e, ok := totals[mp.PlayerID]; ok {
					e.WinPoints++
				}
			}
		}
		for i, mp := range m.Players {
			e, ok := totals[mp.PlayerID]
			if !ok {
				continue
			}
			if i == 0 {
				e.ScoredPoints += m.Player1Score
			} else {
				e.ScoredPoints += m.Player2Score
			}
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].WinPoints != entries[j].WinPoints {
			return entries[i].WinPoints > entries[j].WinPoints
		}
		return entries[i].ScoredPoints > entries[j].ScoredPoints
	})
	return entries
}

// CalculateByGroup ranks each group independently over the match set.
func CalculateByGroup(groups [][]string, matches []*models.Match) [][]Entry {
	rankings := make([][]Entry, len(groups))
	for i, group := range groups {
		groupMatches := make([]*models.Match, 0, len(matches))
		members := make(map[string]bool, len(group))
		for _, p := range group {
			members[p] = true
		}
		for _, m := range matches {
			if len(m.Players) > 0 && members[m.Players[0].PlayerID] {
				groupMatches = append(groupMatches, m)
			}
		}
		rankings[i] = Calculate(group, groupMatches)
	}
	return rankings
}
