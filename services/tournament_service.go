package services

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hokushin/kendo-tournament/brackets"
	"github.com/hokushin/kendo-tournament/models"
	"github.com/hokushin/kendo-tournament/repositories"
	"github.com/hokushin/kendo-tournament/standings"
)

type CreateTournamentInput struct {
	Name                      string                  `json:"name"`
	Format                    models.TournamentFormat `json:"format"`
	MatchTimeSeconds          int                     `json:"match_time_seconds"`
	NumberOfCourts            int                     `json:"number_of_courts"`
	GroupSizePreference       int                     `json:"group_size_preference"`
	PlayersToPlayoffsPerGroup *int                    `json:"players_to_playoffs_per_group"`
	SwissRounds               int                     `json:"swiss_rounds"`
	StartDate                 time.Time               `json:"start_date"`
	MaxParticipants           int                     `json:"max_participants"`
}

type UpdateTournamentInput struct {
	Name             *string    `json:"name"`
	MatchTimeSeconds *int       `json:"match_time_seconds"`
	NumberOfCourts   *int       `json:"number_of_courts"`
	StartDate        *time.Time `json:"start_date"`
	MaxParticipants  *int       `json:"max_participants"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetTournament(ctx context.Context, id string) (*models.Tournament, error)
	ListTournaments(ctx context.Context, limit, offset int) ([]*models.Tournament, error)
	UpdateTournament(ctx context.Context, id string, input UpdateTournamentInput) (*models.Tournament, error)
	DeleteTournament(ctx context.Context, id string) error
	AddPlayer(ctx context.Context, tournamentID, playerID string) (*models.Tournament, error)
	WithdrawPlayer(ctx context.Context, tournamentID, playerID string) error
	GetOrCreateSchedule(ctx context.Context, tournamentID string) ([]*models.Match, error)
}

type tournamentService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	userRepo       repositories.UserRepository
	advancement    *AdvancementService
	hub            Notifier
	locks          *AggregateLocks
	logger         *slog.Logger
	now            func() time.Time
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	userRepo repositories.UserRepository,
	advancement *AdvancementService,
	hub Notifier,
	locks *AggregateLocks,
	logger *slog.Logger,
) TournamentService {
	if hub == nil {
		hub = noopNotifier{}
	}
	return &tournamentService{
		db:             db,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		userRepo:       userRepo,
		advancement:    advancement,
		hub:            hub,
		locks:          locks,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	switch input.Format {
	case models.FormatRoundRobin, models.FormatPlayoff, models.FormatSwiss:
	case models.FormatPreliminaryPlayoff:
		if input.PlayersToPlayoffsPerGroup == nil {
			return nil, ErrMissingPlayoffQuota
		}
		if *input.PlayersToPlayoffsPerGroup < 1 {
			return nil, ErrInvalidPlayoffQuota
		}
		if input.GroupSizePreference < 2 {
			return nil, ErrMissingGroupSizePreference
		}
	default:
		return nil, ErrInvalidFormat
	}

	courts := input.NumberOfCourts
	if courts < 1 {
		courts = 1
	}

	t := &models.Tournament{
		ID:                        uuid.NewString(),
		Name:                      input.Name,
		Format:                    input.Format,
		Players:                   []string{},
		Groups:                    [][]string{},
		GroupSizePreference:       input.GroupSizePreference,
		PlayersToPlayoffsPerGroup: input.PlayersToPlayoffsPerGroup,
		SwissRounds:               input.SwissRounds,
		MatchTime:                 time.Duration(input.MatchTimeSeconds) * time.Second,
		NumberOfCourts:            courts,
		MatchSchedule:             []string{},
		Status:                    models.StatusRegistration,
		StartDate:                 input.StartDate,
		MaxParticipants:           input.MaxParticipants,
	}

	if err := s.tournamentRepo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *tournamentService) GetTournament(ctx context.Context, id string) (*models.Tournament, error) {
	return loadTournamentWithMatches(ctx, s.tournamentRepo, s.matchRepo, id)
}

func (s *tournamentService) ListTournaments(ctx context.Context, limit, offset int) ([]*models.Tournament, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.tournamentRepo.List(ctx, limit, offset)
}

func (s *tournamentService) UpdateTournament(ctx context.Context, id string, input UpdateTournamentInput) (*models.Tournament, error) {
	unlock := s.locks.Lock(tournamentKey(id))
	defer unlock()

	t, err := s.getTournament(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.HasStarted() {
		return nil, ErrTournamentStarted
	}

	if input.Name != nil {
		t.Name = *input.Name
	}
	if input.MatchTimeSeconds != nil {
		t.MatchTime = time.Duration(*input.MatchTimeSeconds) * time.Second
	}
	if input.NumberOfCourts != nil && *input.NumberOfCourts >= 1 {
		t.NumberOfCourts = *input.NumberOfCourts
	}
	if input.StartDate != nil {
		t.StartDate = *input.StartDate
	}
	if input.MaxParticipants != nil {
		t.MaxParticipants = *input.MaxParticipants
	}

	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	broadcastTournamentUpdated(s.hub, t)
	return t, nil
}

func (s *tournamentService) DeleteTournament(ctx context.Context, id string) error {
	unlock := s.locks.Lock(tournamentKey(id))
	defer unlock()

	if _, err := s.getTournament(ctx, id); err != nil {
		return err
	}
	if _, err := s.matchRepo.DeleteFromRound(ctx, s.db, id, 0); err != nil {
		return err
	}
	return s.tournamentRepo.Delete(ctx, id)
}

// AddPlayer signs a player up and grows the schedule incrementally:
// round robin tournaments get one match against every already
// registered player, preliminary playoff tournaments the same within
// the player's assigned group. Playoff and swiss schedules are
// computed at start instead.
func (s *tournamentService) AddPlayer(ctx context.Context, tournamentID, playerID string) (*models.Tournament, error) {
	if _, err := s.userRepo.GetByID(ctx, playerID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	unlock := s.locks.Lock(tournamentKey(tournamentID))
	defer unlock()

	t, err := s.getTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.HasStarted() {
		return nil, ErrTournamentStarted
	}
	if t.MaxParticipants > 0 && len(t.Players) >= t.MaxParticipants {
		return nil, ErrTournamentFull
	}
	if t.HasPlayer(playerID) {
		return nil, ErrAlreadySignedUp
	}

	var newMatches []*models.Match
	now := s.now()

	switch t.Format {
	case models.FormatRoundRobin:
		newMatches = brackets.MatchesForNewPlayer(t, models.MatchTypeGroup, 1, playerID, t.Players, now)
	case models.FormatPreliminaryPlayoff:
		if t.GroupSizePreference < 2 {
			return nil, ErrMissingGroupSizePreference
		}
		gi := s.assignGroup(t, playerID)
		group := t.Groups[gi]
		newMatches = brackets.MatchesForNewPlayer(t, models.MatchTypePreliminary, 1, playerID, group[:len(group)-1], now)
	case models.FormatPlayoff, models.FormatSwiss:
		// Bracket and pairings are generated when the schedule is
		// created, after registration closes.
	}

	t.Players = append(t.Players, playerID)

	for _, m := range newMatches {
		if err := s.matchRepo.Create(ctx, s.db, m); err != nil {
			return nil, err
		}
		t.MatchSchedule = append(t.MatchSchedule, m.ID)
	}

	if len(newMatches) > 0 {
		if err := s.reassignOpeningCourts(ctx, t); err != nil {
			return nil, err
		}
	}

	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	broadcastTournamentUpdated(s.hub, t)
	return t, nil
}

// WithdrawPlayer marks every unfinished match of a leaving player as a
// loss: two-player matches close in the opponent's favor, the player's
// own byes are deleted. The player is removed from future scheduling.
func (s *tournamentService) WithdrawPlayer(ctx context.Context, tournamentID, playerID string) error {
	unlock := s.locks.Lock(tournamentKey(tournamentID))
	defer unlock()

	t, err := loadTournamentWithMatches(ctx, s.tournamentRepo, s.matchRepo, tournamentID)
	if err != nil {
		return err
	}
	if !t.HasPlayer(playerID) {
		return ErrPlayerNotRegistered
	}

	now := s.now()
	closed := make([]*models.Match, 0)
	deleted := make([]string, 0)

	for _, m := range t.Matches {
		if !m.HasPlayer(playerID) {
			continue
		}
		if m.IsBye() {
			// Byes are created pre-won; a leaving player does not keep
			// the free win.
			if err := s.matchRepo.Delete(ctx, m.ID); err != nil {
				return err
			}
			deleted = append(deleted, m.ID)
			continue
		}
		if m.IsClosed() {
			continue
		}
		opponent := m.Players[0].PlayerID
		if opponent == playerID {
			opponent = m.Players[1].PlayerID
		}
		end := now
		m.Winner = &opponent
		m.EndTimestamp = &end
		m.IsOvertime = false
		if err := s.matchRepo.Update(ctx, m); err != nil {
			return err
		}
		closed = append(closed, m)
	}

	kept := t.Players[:0:0]
	for _, p := range t.Players {
		if p != playerID {
			kept = append(kept, p)
		}
	}
	t.Players = kept
	for gi, group := range t.Groups {
		g := group[:0:0]
		for _, p := range group {
			if p != playerID {
				g = append(g, p)
			}
		}
		t.Groups[gi] = g
	}
	if len(deleted) > 0 {
		t.MatchSchedule = removeFromSchedule(t.MatchSchedule, deleted)
	}

	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		return err
	}
	broadcastTournamentUpdated(s.hub, t)

	// Walkover losses can complete a stage; the check runs once per
	// affected match and is idempotent.
	unlock()
	for _, m := range closed {
		if err := s.advancement.OnMatchUpdated(ctx, m); err != nil {
			s.logger.Error("stage advancement failed after withdrawal",
				slog.String("tournament_id", tournamentID), slog.Any("error", err))
		}
	}
	return nil
}

// GetOrCreateSchedule returns the tournament's schedule, generating it
// first for the formats that are computed all at once after the
// tournament starts: the playoff bracket and the opening swiss round.
func (s *tournamentService) GetOrCreateSchedule(ctx context.Context, tournamentID string) ([]*models.Match, error) {
	unlock := s.locks.Lock(tournamentKey(tournamentID))
	defer unlock()

	t, err := loadTournamentWithMatches(ctx, s.tournamentRepo, s.matchRepo, tournamentID)
	if err != nil {
		return nil, err
	}
	if len(t.Matches) > 0 {
		if !t.HasStarted() {
			t.Status = models.StatusActive
			if err := s.tournamentRepo.Update(ctx, t); err != nil {
				return nil, err
			}
		}
		return t.Matches, nil
	}

	now := s.now()
	var matches []*models.Match

	switch t.Format {
	case models.FormatPlayoff:
		if len(t.Players) < 2 {
			return nil, ErrNotEnoughPlayers
		}
		matches = brackets.SingleElimination(t, models.MatchTypePlayoff, 1, t.Players, now)
	case models.FormatSwiss:
		if len(t.Players) < 2 {
			return nil, ErrNotEnoughPlayers
		}
		ranking := standings.Calculate(t.Players, nil)
		pairer := brackets.NewSwissPairer(t.Players, nil)
		matches = pairer.NextRound(t, ranking, 1, now)
	case models.FormatRoundRobin, models.FormatPreliminaryPlayoff:
		if len(t.Players) < 2 {
			return nil, ErrNotEnoughPlayers
		}
		// These schedules grow on signup; an empty one means nobody
		// has signed up yet.
		return t.Matches, nil
	}

	brackets.AssignCourts(t, matches)
	for _, m := range matches {
		if err := s.matchRepo.Create(ctx, s.db, m); err != nil {
			return nil, err
		}
		t.MatchSchedule = append(t.MatchSchedule, m.ID)
		t.Matches = append(t.Matches, m)
	}
	t.Status = models.StatusActive

	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	broadcastTournamentUpdated(s.hub, t)
	return t.Matches, nil
}

// assignGroup places a new player into the first group below the size
// preference, opening a new group when all are full, and returns the
// group index.
func (s *tournamentService) assignGroup(t *models.Tournament, playerID string) int {
	for gi := range t.Groups {
		if len(t.Groups[gi]) < t.GroupSizePreference {
			t.Groups[gi] = append(t.Groups[gi], playerID)
			return gi
		}
	}
	t.Groups = append(t.Groups, []string{playerID})
	return len(t.Groups) - 1
}

// reassignOpeningCourts re-runs court assignment over the whole first
// round after the schedule grew, persisting matches whose court moved.
func (s *tournamentService) reassignOpeningCourts(ctx context.Context, t *models.Tournament) error {
	if t.NumberOfCourts <= 1 {
		return nil
	}
	round := 1
	matches, err := s.matchRepo.ListByTournament(ctx, t.ID, &round, nil)
	if err != nil {
		return err
	}
	matches = orderBySchedule(t.MatchSchedule, matches)

	before := make(map[string]int, len(matches))
	for _, m := range matches {
		before[m.ID] = m.CourtNumber
	}
	brackets.AssignCourts(t, matches)
	for _, m := range matches {
		if before[m.ID] == m.CourtNumber {
			continue
		}
		if err := s.matchRepo.Update(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *tournamentService) getTournament(ctx context.Context, id string) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}
