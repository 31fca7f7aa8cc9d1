// Package brackets generates the unplayed match sets for every
// tournament format and assigns generated rounds onto courts.
package brackets

import (
	"time"

	"github.com/google/uuid"

	"github.com/hokushin/kendo-tournament/models"
)

// NewMatch builds a match between two players at the given round. The
// first player takes white, the second red.
func NewMatch(t *models.Tournament, matchType models.MatchType, round int, player1, player2 string, now time.Time) *models.Match {
	return &models.Match{
		ID:              uuid.NewString(),
		TournamentID:    t.ID,
		Type:            matchType,
		TournamentRound: round,
		Players: []models.MatchPlayer{
			{PlayerID: player1, Color: models.ColorWhite, Points: []models.Point{}},
			{PlayerID: player2, Color: models.ColorRed, Points: []models.Point{}},
		},
		MatchTime:   t.MatchTime,
		Timekeepers: []string{},
		PointMakers: []string{},
		CreatedAt:   now,
	}
}

// NewByeMatch builds a single-player placeholder match that is created
// already won by that player.
func NewByeMatch(t *models.Tournament, matchType models.MatchType, round int, player string, now time.Time) *models.Match {
	end := now
	winner := player
	return &models.Match{
		ID:              uuid.NewString(),
		TournamentID:    t.ID,
		Type:            matchType,
		TournamentRound: round,
		Players: []models.MatchPlayer{
			{PlayerID: player, Color: models.ColorWhite, Points: []models.Point{}},
		},
		MatchTime:   t.MatchTime,
		Winner:      &winner,
		EndTimestamp: &end,
		Timekeepers: []string{},
		PointMakers: []string{},
		CreatedAt:   now,
	}
}
