package models

import "time"

// TournamentFormat enumerates the supported competition formats,
// matching the ENUM in the database.
type TournamentFormat string

const (
	FormatRoundRobin         TournamentFormat = "round robin"
	FormatPlayoff            TournamentFormat = "playoff"
	FormatPreliminaryPlayoff TournamentFormat = "preliminary playoff"
	FormatSwiss              TournamentFormat = "swiss"
)

type TournamentStatus string

const (
	StatusRegistration TournamentStatus = "registration"
	StatusActive       TournamentStatus = "active"
	StatusCompleted    TournamentStatus = "completed"
	StatusCanceled     TournamentStatus = "canceled"
)

// Tournament is the aggregate that owns a schedule of matches.
// Players holds player ids in registration order; the order decides
// bye priority in playoff brackets. Groups partition Players when the
// format is preliminary playoff and is empty otherwise.
type Tournament struct {
	ID                        string           `json:"id" db:"id"`
	Name                      string           `json:"name" db:"name"`
	Format                    TournamentFormat `json:"format" db:"format"`
	Players                   []string         `json:"players" db:"players"`
	Groups                    [][]string       `json:"groups,omitempty" db:"groups"`
	GroupSizePreference       int              `json:"group_size_preference,omitempty" db:"group_size_preference"`
	PlayersToPlayoffsPerGroup *int             `json:"players_to_playoffs_per_group,omitempty" db:"players_to_playoffs_per_group"`
	SwissRounds               int              `json:"swiss_rounds,omitempty" db:"swiss_rounds"`
	MatchTime                 time.Duration    `json:"match_time" db:"match_time"`
	NumberOfCourts            int              `json:"number_of_courts" db:"number_of_courts"`
	MatchSchedule             []string         `json:"match_schedule" db:"match_schedule"`
	Status                    TournamentStatus `json:"status" db:"status"`
	StartDate                 time.Time        `json:"start_date" db:"start_date"`
	MaxParticipants           int              `json:"max_participants" db:"max_participants"`
	CreatedAt                 time.Time        `json:"created_at" db:"created_at"`

	// Populated from the match repository, not mapped directly.
	Matches []*Match `json:"matches,omitempty" db:"-"`
}

// HasStarted reports whether the tournament is past registration.
func (t *Tournament) HasStarted() bool {
	return t.Status == StatusActive || t.Status == StatusCompleted
}

// HasPlayer reports whether the player id is registered.
func (t *Tournament) HasPlayer(playerID string) bool {
	for _, p := range t.Players {
		if p == playerID {
			return true
		}
	}
	return false
}

// GroupOf returns the index of the group containing the player,
// or -1 if the player is not grouped.
func (t *Tournament) GroupOf(playerID string) int {
	for i, group := range t.Groups {
		for _, p := range group {
			if p == playerID {
				return i
			}
		}
	}
	return -1
}
