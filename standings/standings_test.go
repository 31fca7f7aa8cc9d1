package standings

import (
	"testing"
	"time"

	"github.com/hokushin/kendo-tournament/models"
)

func playedMatch(p1, p2, winner string, score1, score2 int) *models.Match {
	end := time.Now()
	m := &models.Match{
		Players: []models.MatchPlayer{
			{PlayerID: p1, Color: models.ColorWhite},
			{PlayerID: p2, Color: models.ColorRed},
		},
		Player1Score: score1,
		Player2Score: score2,
		EndTimestamp: &end,
	}
	if winner != "" {
		w := winner
		m.Winner = &w
	}
	return m
}

func TestCalculateRanksByWinThenScore(t *testing.T) {
	players := []string{"a", "b", "c"}
	matches := []*models.Match{
		playedMatch("a", "b", "a", 2, 0),
		playedMatch("b", "c", "b", 2, 1),
		playedMatch("a", "c", "c", 0, 2),
	}

	ranking := Calculate(players, matches)
	// Everyone has one win (3 points); scored points break the tie:
	// c has 3 while a and b have 2 each, so c leads and a keeps
	// discovery order ahead of b.
	if ranking[0].PlayerID != "c" {
		t.Errorf("rank 1 = %s, want c on scored points", ranking[0].PlayerID)
	}
	if ranking[1].PlayerID != "a" || ranking[2].PlayerID != "b" {
		t.Errorf("tied players reordered: got %s, %s", ranking[1].PlayerID, ranking[2].PlayerID)
	}
	for _, e := range ranking {
		if e.WinPoints != 3 {
			t.Errorf("%s has %d win points, want 3", e.PlayerID, e.WinPoints)
		}
	}
}

func TestCalculateCountsTiesForBothPlayers(t *testing.T) {
	players := []string{"a", "b", "c"}
	matches := []*models.Match{
		playedMatch("a", "b", "", 1, 1), // tie
		playedMatch("a", "c", "a", 2, 0),
	}

	ranking := Calculate(players, matches)
	if ranking[0].PlayerID != "a" || ranking[0].WinPoints != 4 {
		t.Errorf("rank 1 = %s with %d points, want a with 4", ranking[0].PlayerID, ranking[0].WinPoints)
	}
	if ranking[1].PlayerID != "b" || ranking[1].WinPoints != 1 {
		t.Errorf("rank 2 = %s with %d points, want b with 1", ranking[1].PlayerID, ranking[1].WinPoints)
	}
}

func TestCalculateIgnoresOpenMatches(t *testing.T) {
	open := &models.Match{
		Players: []models.MatchPlayer{
			{PlayerID: "a", Color: models.ColorWhite},
			{PlayerID: "b", Color: models.ColorRed},
		},
		Player1Score: 1,
	}
	ranking := Calculate([]string{"a", "b"}, []*models.Match{open})
	if ranking[0].WinPoints != 0 || ranking[1].WinPoints != 0 {
		t.Errorf("open match awarded win points")
	}
	// Scored points still accumulate from the live score.
	if ranking[0].PlayerID != "a" || ranking[0].ScoredPoints != 1 {
		t.Errorf("live scored points not counted, got %+v", ranking[0])
	}
}

func TestCalculateByGroupKeepsGroupsSeparate(t *testing.T) {
	groups := [][]string{{"a", "b"}, {"c", "d"}}
	matches := []*models.Match{
		playedMatch("a", "b", "b", 0, 2),
		playedMatch("c", "d", "c", 2, 0),
	}

	rankings := CalculateByGroup(groups, matches)
	if len(rankings) != 2 {
		t.Fatalf("expected 2 group rankings, got %d", len(rankings))
	}
	if rankings[0][0].PlayerID != "b" {
		t.Errorf("group 0 leader = %s, want b", rankings[0][0].PlayerID)
	}
	if rankings[1][0].PlayerID != "c" {
		t.Errorf("group 1 leader = %s, want c", rankings[1][0].PlayerID)
	}
	// A group ranking never leaks the other group's players.
	for _, e := range rankings[0] {
		if e.PlayerID == "c" || e.PlayerID == "d" {
			t.Errorf("group 0 ranking contains %s", e.PlayerID)
		}
	}
}
