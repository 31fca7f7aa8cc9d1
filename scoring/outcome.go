// Package scoring resolves a match's live state from its stream of
// point events: score derivation, win/tie/overtime decisions, and
// retraction or edit of the most recent point with full re-derivation.
package scoring

import (
	"errors"
	"math"
	"time"

	"github.com/hokushin/kendo-tournament/models"
)

// WinningScore is the ippon threshold that decides a match outright.
const WinningScore = 2.0

var (
	ErrNoPlayers       = errors.New("match has no players")
	ErrNoPoints        = errors.New("match has no points to remove")
	ErrColorNotInMatch = errors.New("no match player holds the given color")
)

// AssignPoint appends a point of the given type to whichever match
// player holds the color. The timestamp is assigned here and is kept
// strictly greater than every point already on the match, so the most
// recent point is always well defined.
func AssignPoint(m *models.Match, pointType models.PointType, color models.PlayerColor, now time.Time) error {
	if len(m.Players) == 0 {
		return ErrNoPlayers
	}
	mp := m.PlayerByColor(color)
	if mp == nil {
		return ErrColorNotInMatch
	}
	ts := now
	if last := latestTimestamp(m); !last.IsZero() && !ts.After(last) {
		ts = last.Add(time.Millisecond)
	}
	mp.Points = append(mp.Points, models.Point{Type: pointType, Timestamp: ts})
	return nil
}

// CalculateScore derives both score totals from raw point lists.
// A hansoku awards half a point to the opponent, not the scorer; every
// other point type awards one point to the scorer.
func CalculateScore(points1, points2 []models.Point) (float64, float64) {
	var score1, score2 float64
	for _, p := range points1 {
		if p.Type == models.PointHansoku {
			score2 += 0.5
		} else {
			score1++
		}
	}
	for _, p := range points2 {
		if p.Type == models.PointHansoku {
			score1 += 0.5
		} else {
			score2++
		}
	}
	return score1, score2
}

// CheckOutcome recomputes the stored scores and closes the match when
// either computed score has reached the winning threshold, or, in
// overtime, as soon as the floored scores differ. It reports whether a
// winner was decided by this call.
func CheckOutcome(m *models.Match, now time.Time) bool {
	if len(m.Players) == 0 {
		return false
	}
	if m.IsBye() {
		return false
	}
	score1, score2 := CalculateScore(m.Players[0].Points, m.Players[1].Points)
	m.Player1Score = int(math.Floor(score1))
	m.Player2Score = int(math.Floor(score2))

	decided := score1 >= WinningScore || score2 >= WinningScore
	if m.IsOvertime && m.Player1Score != m.Player2Score {
		decided = true
	}
	if !decided {
		return false
	}
	if m.Winner != nil {
		return false
	}
	winner := m.Players[0].PlayerID
	if score2 > score1 {
		winner = m.Players[1].PlayerID
	}
	end := now
	m.Winner = &winner
	m.EndTimestamp = &end
	m.IsOvertime = false
	return true
}

// CheckForTie settles a match whose time has run out. Unequal floored
// scores decide a winner. Equal scores close group, preliminary and
// swiss matches as a tie; playoff and pre playoff matches cannot tie,
// so they enter overtime and stay open until a point breaks the tie.
func CheckForTie(m *models.Match, now time.Time) error {
	if len(m.Players) == 0 {
		return ErrNoPlayers
	}
	if m.IsClosed() || m.IsBye() {
		return nil
	}
	score1, score2 := CalculateScore(m.Players[0].Points, m.Players[1].Points)
	m.Player1Score = int(math.Floor(score1))
	m.Player2Score = int(math.Floor(score2))

	end := now
	switch {
	case m.Player1Score != m.Player2Score:
		winner := m.Players[0].PlayerID
		if m.Player2Score > m.Player1Score {
			winner = m.Players[1].PlayerID
		}
		m.Winner = &winner
		m.EndTimestamp = &end
		m.IsOvertime = false
	case m.Type == models.MatchTypePlayoff || m.Type == models.MatchTypePrePlayoff:
		m.IsOvertime = true
	default:
		m.EndTimestamp = &end
	}
	return nil
}

// RemoveRecentPoint deletes the most recently recorded point across
// both players and re-derives the match state. It reports whether the
// removal reopened a previously settled match, which the caller must
// cascade into round invalidation for non-group matches.
func RemoveRecentPoint(m *models.Match) (reopened bool, err error) {
	if len(m.Players) == 0 {
		return false, ErrNoPlayers
	}
	idx, pos := recentPoint(m)
	if idx < 0 {
		return false, ErrNoPoints
	}
	wasClosed := m.IsClosed()

	mp := &m.Players[idx]
	mp.Points = append(mp.Points[:pos], mp.Points[pos+1:]...)

	if wasClosed {
		m.Winner = nil
		m.EndTimestamp = nil
	}
	m.IsOvertime = false
	score1, score2 := CalculateScore(m.Players[0].Points, m.Players[1].Points)
	m.Player1Score = int(math.Floor(score1))
	m.Player2Score = int(math.Floor(score2))
	return wasClosed, nil
}

// ModifyRecentPoint changes the type of the most recent point in place.
// When a hansoku is involved on either side of the edit the outcome can
// flip, so a settled match is reopened and fully re-derived.
func ModifyRecentPoint(m *models.Match, newType models.PointType, now time.Time) error {
	if len(m.Players) == 0 {
		return ErrNoPlayers
	}
	idx, pos := recentPoint(m)
	if idx < 0 {
		return ErrNoPoints
	}
	oldType := m.Players[idx].Points[pos].Type
	m.Players[idx].Points[pos].Type = newType

	hansokuInvolved := oldType == models.PointHansoku || newType == models.PointHansoku
	if hansokuInvolved && m.IsClosed() {
		m.Winner = nil
		m.EndTimestamp = nil
	}
	CheckOutcome(m, now)
	return nil
}

// Elapsed projects the live elapsed time of the match at the given
// instant, including the currently running timer segment.
func Elapsed(m *models.Match, now time.Time) time.Duration {
	elapsed := m.ElapsedTime
	if m.IsTimerOn && m.TimerStartedTimestamp != nil {
		elapsed += now.Sub(*m.TimerStartedTimestamp)
	}
	return elapsed
}

// recentPoint locates the point with the maximum timestamp across both
// players, returning the player index and point position, or (-1, -1)
// when the match holds no points.
func recentPoint(m *models.Match) (playerIdx, pointPos int) {
	playerIdx, pointPos = -1, -1
	var latest time.Time
	for i := range m.Players {
		for j, p := range m.Players[i].Points {
			if playerIdx < 0 || p.Timestamp.After(latest) {
				playerIdx, pointPos = i, j
				latest = p.Timestamp
			}
		}
	}
	return playerIdx, pointPos
}

func latestTimestamp(m *models.Match) time.Time {
	var latest time.Time
	for i := range m.Players {
		for _, p := range m.Players[i].Points {
			if p.Timestamp.After(latest) {
				latest = p.Timestamp
			}
		}
	}
	return latest
}
