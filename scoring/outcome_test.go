package scoring

import (
	"testing"
	"time"

	"github.com/hokushin/kendo-tournament/models"
)

func twoPlayerMatch(matchType models.MatchType) *models.Match {
	return &models.Match{
		ID:   "m1",
		Type: matchType,
		Players: []models.MatchPlayer{
			{PlayerID: "p1", Color: models.ColorWhite, Points: []models.Point{}},
			{PlayerID: "p2", Color: models.ColorRed, Points: []models.Point{}},
		},
	}
}

func TestCalculateScoreHansokuCreditsOpponent(t *testing.T) {
	now := time.Now()
	p1 := []models.Point{
		{Type: models.PointMen, Timestamp: now},
		{Type: models.PointHansoku, Timestamp: now.Add(time.Second)},
	}
	p2 := []models.Point{
		{Type: models.PointHansoku, Timestamp: now.Add(2 * time.Second)},
	}

	score1, score2 := CalculateScore(p1, p2)
	if score1 != 1.5 {
		t.Errorf("score1 = %v, want 1.5 (one men, half from opponent hansoku)", score1)
	}
	if score2 != 0.5 {
		t.Errorf("score2 = %v, want 0.5 (half from opponent hansoku)", score2)
	}
}

func TestCheckOutcomeThresholdAndFlooring(t *testing.T) {
	m := twoPlayerMatch(models.MatchTypeGroup)
	now := time.Now()

	// 1.5 raw stores as 1 and does not decide the match.
	AssignPoint(m, models.PointMen, models.ColorWhite, now)
	AssignPoint(m, models.PointHansoku, models.ColorRed, now)
	if decided := CheckOutcome(m, now); decided {
		t.Fatalf("match decided below the winning threshold")
	}
	if m.Player1Score != 1 || m.Player2Score != 0 {
		t.Errorf("stored scores %d-%d, want floored 1-0", m.Player1Score, m.Player2Score)
	}

	// Another half point reaches 2.0 and decides.
	AssignPoint(m, models.PointHansoku, models.ColorRed, now)
	if decided := CheckOutcome(m, now); !decided {
		t.Fatalf("match not decided at the winning threshold")
	}
	if m.Winner == nil || *m.Winner != "p1" {
		t.Errorf("winner = %v, want p1", m.Winner)
	}
	if m.EndTimestamp == nil {
		t.Errorf("deciding the match must set the end timestamp")
	}
	if m.Player1Score != 2 {
		t.Errorf("stored winner score %d, want 2", m.Player1Score)
	}
}

func TestCheckForTie(t *testing.T) {
	now := time.Now()

	group := twoPlayerMatch(models.MatchTypeGroup)
	if err := CheckForTie(group, now); err != nil {
		t.Fatalf("CheckForTie: %v", err)
	}
	if !group.IsClosed() || group.Winner != nil {
		t.Errorf("tied group match should close without winner, closed=%v winner=%v", group.IsClosed(), group.Winner)
	}

	ahead := twoPlayerMatch(models.MatchTypeGroup)
	AssignPoint(ahead, models.PointKote, models.ColorRed, now)
	if err := CheckForTie(ahead, now); err != nil {
		t.Fatalf("CheckForTie: %v", err)
	}
	if ahead.Winner == nil || *ahead.Winner != "p2" {
		t.Errorf("time expiry with unequal score should decide, winner=%v", ahead.Winner)
	}

	playoff := twoPlayerMatch(models.MatchTypePlayoff)
	if err := CheckForTie(playoff, now); err != nil {
		t.Fatalf("CheckForTie: %v", err)
	}
	if playoff.IsClosed() || !playoff.IsOvertime {
		t.Errorf("tied playoff match should stay open in overtime")
	}

	// The next point ends overtime even below the threshold.
	AssignPoint(playoff, models.PointDo, models.ColorWhite, now)
	if decided := CheckOutcome(playoff, now); !decided {
		t.Fatalf("overtime point did not decide the match")
	}
	if playoff.Winner == nil || *playoff.Winner != "p1" {
		t.Errorf("winner = %v, want p1", playoff.Winner)
	}
	if playoff.IsOvertime {
		t.Errorf("overtime flag survived the decision")
	}
}

func TestRemoveRecentPointRestoresState(t *testing.T) {
	m := twoPlayerMatch(models.MatchTypeGroup)
	now := time.Now()
	AssignPoint(m, models.PointMen, models.ColorWhite, now)
	CheckOutcome(m, now)

	before := *m
	beforePoints := len(m.Players[0].Points)

	AssignPoint(m, models.PointKote, models.ColorWhite, now.Add(time.Second))
	CheckOutcome(m, now.Add(time.Second))
	if !m.IsClosed() {
		t.Fatalf("second ippon should close the match")
	}

	reopened, err := RemoveRecentPoint(m)
	if err != nil {
		t.Fatalf("RemoveRecentPoint: %v", err)
	}
	if !reopened {
		t.Errorf("removing the deciding point should report reopening")
	}
	if m.Winner != nil || m.EndTimestamp != nil {
		t.Errorf("winner/end timestamp survived retraction")
	}
	if len(m.Players[0].Points) != beforePoints {
		t.Errorf("point count %d, want %d", len(m.Players[0].Points), beforePoints)
	}
	if m.Player1Score != before.Player1Score || m.Player2Score != before.Player2Score {
		t.Errorf("scores %d-%d after retraction, want %d-%d",
			m.Player1Score, m.Player2Score, before.Player1Score, before.Player2Score)
	}

	// Removing a non-deciding point does not report reopening.
	reopened, err = RemoveRecentPoint(m)
	if err != nil {
		t.Fatalf("RemoveRecentPoint: %v", err)
	}
	if reopened {
		t.Errorf("retracting from an open match reported reopening")
	}

	if _, err := RemoveRecentPoint(m); err != ErrNoPoints {
		t.Errorf("expected ErrNoPoints on empty match, got %v", err)
	}
}

func TestModifyRecentPointHansokuFlip(t *testing.T) {
	m := twoPlayerMatch(models.MatchTypeGroup)
	now := time.Now()

	AssignPoint(m, models.PointMen, models.ColorWhite, now)
	AssignPoint(m, models.PointMen, models.ColorWhite, now.Add(time.Second))
	CheckOutcome(m, now)
	if !m.IsClosed() {
		t.Fatalf("two ippon should close the match")
	}

	// Rescoring the deciding men as a hansoku drops p1 to 1.5 and
	// credits p2; the match must reopen.
	if err := ModifyRecentPoint(m, models.PointHansoku, now); err != nil {
		t.Fatalf("ModifyRecentPoint: %v", err)
	}
	if m.IsClosed() {
		t.Errorf("match stayed closed after the deciding point became a hansoku")
	}
	if m.Player1Score != 1 || m.Player2Score != 0 {
		t.Errorf("scores %d-%d, want 1-0 after flip", m.Player1Score, m.Player2Score)
	}

	// Editing between non-hansoku types keeps the outcome.
	m2 := twoPlayerMatch(models.MatchTypeGroup)
	AssignPoint(m2, models.PointMen, models.ColorWhite, now)
	AssignPoint(m2, models.PointKote, models.ColorWhite, now.Add(time.Second))
	CheckOutcome(m2, now)
	if err := ModifyRecentPoint(m2, models.PointTsuki, now); err != nil {
		t.Fatalf("ModifyRecentPoint: %v", err)
	}
	if !m2.IsClosed() || m2.Winner == nil || *m2.Winner != "p1" {
		t.Errorf("like-for-like edit should not reopen the match")
	}
}

func TestAssignPointTimestampsAreMonotonic(t *testing.T) {
	m := twoPlayerMatch(models.MatchTypeGroup)
	now := time.Now()

	// Same wall clock instant for both points: the second must still
	// order strictly after the first.
	AssignPoint(m, models.PointMen, models.ColorWhite, now)
	AssignPoint(m, models.PointKote, models.ColorRed, now)

	first := m.Players[0].Points[0].Timestamp
	second := m.Players[1].Points[0].Timestamp
	if !second.After(first) {
		t.Errorf("second point timestamp %v not after first %v", second, first)
	}

	idx, pos := recentPoint(m)
	if idx != 1 || pos != 0 {
		t.Errorf("recent point at (%d,%d), want the red point (1,0)", idx, pos)
	}
}

func TestElapsedProjectsRunningTimer(t *testing.T) {
	started := time.Now()
	m := twoPlayerMatch(models.MatchTypeGroup)
	m.ElapsedTime = time.Minute
	m.IsTimerOn = true
	m.TimerStartedTimestamp = &started

	got := Elapsed(m, started.Add(30*time.Second))
	if got != 90*time.Second {
		t.Errorf("Elapsed = %v, want 1m30s", got)
	}

	m.IsTimerOn = false
	if got := Elapsed(m, started.Add(time.Hour)); got != time.Minute {
		t.Errorf("stopped timer Elapsed = %v, want 1m", got)
	}
}
