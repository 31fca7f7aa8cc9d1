package brackets

import (
	"testing"
	"time"

	"github.com/hokushin/kendo-tournament/models"
)

func TestNextPowerOfTwo(t *testing.T) {
	cases := map[int]int{1: 1, 2: 2, 3: 4, 5: 8, 8: 8, 9: 16}
	for n, want := range cases {
		if got := NextPowerOfTwo(n); got != want {
			t.Errorf("NextPowerOfTwo(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestSingleEliminationPadsWithByes(t *testing.T) {
	players := []string{"a", "b", "c", "d", "e"}
	trn := testTournament(models.FormatPlayoff, players)

	matches := SingleElimination(trn, models.MatchTypePlayoff, 1, players, time.Now())

	// Five players pad to eight: the first three in registration order
	// receive byes, the last two meet.
	if len(matches) != 4 {
		t.Fatalf("got %d matches, want 3 byes + 1 pairing", len(matches))
	}
	for i, want := range []string{"a", "b", "c"} {
		m := matches[i]
		if !m.IsBye() {
			t.Fatalf("match %d should be a bye", i)
		}
		if m.Players[0].PlayerID != want {
			t.Errorf("bye %d goes to %s, want %s", i, m.Players[0].PlayerID, want)
		}
		if m.Winner == nil || *m.Winner != want {
			t.Errorf("bye %d not pre-won by %s", i, want)
		}
		if m.EndTimestamp == nil {
			t.Errorf("bye %d left open", i)
		}
	}
	last := matches[3]
	if last.Players[0].PlayerID != "d" || last.Players[1].PlayerID != "e" {
		t.Errorf("pairing %s vs %s, want d vs e", last.Players[0].PlayerID, last.Players[1].PlayerID)
	}

	if got := SingleElimination(trn, models.MatchTypePlayoff, 1, []string{"a"}, time.Now()); got != nil {
		t.Errorf("bracket generated for a single player")
	}
}

func TestPairWinnersLeavesOddLeftover(t *testing.T) {
	trn := testTournament(models.FormatPlayoff, []string{"a", "b", "c"})

	matches := PairWinners(trn, models.MatchTypePlayoff, 2, []string{"a", "b", "c"}, time.Now())
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1 with the odd winner waiting", len(matches))
	}
	m := matches[0]
	if m.Players[0].PlayerID != "a" || m.Players[1].PlayerID != "b" {
		t.Errorf("paired %s vs %s, want a vs b", m.Players[0].PlayerID, m.Players[1].PlayerID)
	}
	if m.TournamentRound != 2 {
		t.Errorf("round %d, want 2", m.TournamentRound)
	}
}
