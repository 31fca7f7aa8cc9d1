package models

import "time"

type MatchType string

const (
	MatchTypeGroup       MatchType = "group"
	MatchTypePreliminary MatchType = "preliminary"
	MatchTypePrePlayoff  MatchType = "pre playoff"
	MatchTypePlayoff     MatchType = "playoff"
	MatchTypeSwiss       MatchType = "swiss"
)

type PointType string

const (
	PointMen     PointType = "men"
	PointKote    PointType = "kote"
	PointDo      PointType = "do"
	PointTsuki   PointType = "tsuki"
	PointHansoku PointType = "hansoku"
)

type PlayerColor string

const (
	ColorWhite PlayerColor = "white"
	ColorRed   PlayerColor = "red"
)

// MatchRole names the officiating duties that can be assigned on a
// match before it starts.
type MatchRole string

const (
	MatchRoleTimekeeper MatchRole = "timekeeper"
	MatchRolePointMaker MatchRole = "point maker"
)

// Point is a single scoring event. Timestamps are assigned monotonically
// at creation time, so slice order is chronological order.
type Point struct {
	Type      PointType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

type MatchPlayer struct {
	PlayerID string      `json:"player_id"`
	Color    PlayerColor `json:"color"`
	Points   []Point     `json:"points"`
}

// Match is a single bout between one or two players. A match with a
// single player is a bye and is created already won by that player.
// Winner and EndTimestamp are set together or both unset, except during
// playoff overtime where neither is set.
type Match struct {
	ID                    string        `json:"id" db:"id"`
	TournamentID          string        `json:"tournament_id" db:"tournament_id"`
	Type                  MatchType     `json:"type" db:"type"`
	TournamentRound       int           `json:"tournament_round" db:"tournament_round"`
	Players               []MatchPlayer `json:"players" db:"players"`
	MatchTime             time.Duration `json:"match_time" db:"match_time"`
	ElapsedTime           time.Duration `json:"elapsed_time" db:"elapsed_time"`
	StartTimestamp        *time.Time    `json:"start_timestamp,omitempty" db:"start_timestamp"`
	TimerStartedTimestamp *time.Time    `json:"timer_started_timestamp,omitempty" db:"timer_started_timestamp"`
	IsTimerOn             bool          `json:"is_timer_on" db:"is_timer_on"`
	IsOvertime            bool          `json:"is_overtime" db:"is_overtime"`
	Winner                *string       `json:"winner,omitempty" db:"winner"`
	EndTimestamp          *time.Time    `json:"end_timestamp,omitempty" db:"end_timestamp"`
	Player1Score          int           `json:"player1_score" db:"player1_score"`
	Player2Score          int           `json:"player2_score" db:"player2_score"`
	CourtNumber           int           `json:"court_number" db:"court_number"`
	Timekeepers           []string      `json:"timekeepers" db:"timekeepers"`
	PointMakers           []string      `json:"point_makers" db:"point_makers"`
	CreatedAt             time.Time     `json:"created_at" db:"created_at"`
}

// IsClosed reports whether the match outcome is settled: either a winner
// was decided or the match ended in a tie.
func (m *Match) IsClosed() bool {
	return m.Winner != nil || m.EndTimestamp != nil
}

// IsBye reports whether the match is a single-player placeholder.
func (m *Match) IsBye() bool {
	return len(m.Players) == 1
}

// PlayerByColor returns the match player holding the given color,
// or nil if no player has it.
func (m *Match) PlayerByColor(color PlayerColor) *MatchPlayer {
	for i := range m.Players {
		if m.Players[i].Color == color {
			return &m.Players[i]
		}
	}
	return nil
}

// HasPlayer reports whether the player id takes part in the match.
func (m *Match) HasPlayer(playerID string) bool {
	for _, p := range m.Players {
		if p.PlayerID == playerID {
			return true
		}
	}
	return false
}
