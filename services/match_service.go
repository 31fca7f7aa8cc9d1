package services

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/hokushin/kendo-tournament/brackets"
	"github.com/hokushin/kendo-tournament/models"
	"github.com/hokushin/kendo-tournament/repositories"
	"github.com/hokushin/kendo-tournament/scoring"
)

type MatchService interface {
	CreateMatch(ctx context.Context, tournamentID string, playerIDs []string, matchType models.MatchType, round int) (*models.Match, error)
	GetMatch(ctx context.Context, id string) (*models.Match, error)
	DeleteMatch(ctx context.Context, id string) error
	StartTimer(ctx context.Context, id string) (*models.Match, error)
	StopTimer(ctx context.Context, id string) (*models.Match, error)
	AddPoint(ctx context.Context, id string, pointType models.PointType, color models.PlayerColor) (*models.Match, error)
	CheckForTie(ctx context.Context, id string) (*models.Match, error)
	DeleteRecentPoint(ctx context.Context, id string) (*models.Match, error)
	ModifyRecentPoint(ctx context.Context, id string, newType models.PointType) (*models.Match, error)
	AddRole(ctx context.Context, id string, role models.MatchRole, userID string) (*models.Match, error)
	RemoveRole(ctx context.Context, id string, role models.MatchRole, userID string) (*models.Match, error)
	ResetMatch(ctx context.Context, id string) (*models.Match, error)
	ResetRoles(ctx context.Context, id string) (*models.Match, error)
}

type matchService struct {
	db             *sql.DB
	matchRepo      repositories.MatchRepository
	tournamentRepo repositories.TournamentRepository
	advancement    *AdvancementService
	hub            Notifier
	locks          *AggregateLocks
	logger         *slog.Logger
	now            func() time.Time
}

func NewMatchService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	advancement *AdvancementService,
	hub Notifier,
	locks *AggregateLocks,
	logger *slog.Logger,
) MatchService {
	if hub == nil {
		hub = noopNotifier{}
	}
	return &matchService{
		db:             db,
		matchRepo:      matchRepo,
		tournamentRepo: tournamentRepo,
		advancement:    advancement,
		hub:            hub,
		locks:          locks,
		logger:         logger,
		now:            time.Now,
	}
}

// CreateMatch adds a manual match outside the generated schedule. All
// players must be registered for the tournament; a single player makes
// a pre-won bye.
func (s *matchService) CreateMatch(ctx context.Context, tournamentID string, playerIDs []string, matchType models.MatchType, round int) (*models.Match, error) {
	if len(playerIDs) < 1 || len(playerIDs) > 2 {
		return nil, ErrNoPlayersInMatch
	}
	if !validMatchType(matchType) {
		return nil, ErrInvalidFormat
	}
	if round < 1 {
		round = 1
	}

	unlock := s.locks.Lock(tournamentKey(tournamentID))
	defer unlock()

	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	for _, p := range playerIDs {
		if !t.HasPlayer(p) {
			return nil, ErrPlayerNotRegistered
		}
	}

	var m *models.Match
	if len(playerIDs) == 1 {
		m = brackets.NewByeMatch(t, matchType, round, playerIDs[0], s.now())
	} else {
		m = brackets.NewMatch(t, matchType, round, playerIDs[0], playerIDs[1], s.now())
	}

	if err := s.matchRepo.Create(ctx, s.db, m); err != nil {
		return nil, err
	}
	t.MatchSchedule = append(t.MatchSchedule, m.ID)
	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	broadcastTournamentUpdated(s.hub, t)
	return m, nil
}

// GetMatch returns the match with a live elapsed-time projection: the
// running timer segment is added to the stored elapsed time without
// being persisted.
func (s *matchService) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	m, err := s.getMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	m.ElapsedTime = scoring.Elapsed(m, s.now())
	return m, nil
}

func (s *matchService) DeleteMatch(ctx context.Context, id string) error {
	unlock := s.locks.Lock(matchKey(id))
	defer unlock()

	m, err := s.getMatch(ctx, id)
	if err != nil {
		return err
	}
	if err := s.matchRepo.Delete(ctx, id); err != nil {
		return err
	}

	tUnlock := s.locks.Lock(tournamentKey(m.TournamentID))
	defer tUnlock()
	t, err := s.tournamentRepo.GetByID(ctx, m.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil
		}
		return err
	}
	t.MatchSchedule = removeFromSchedule(t.MatchSchedule, []string{id})
	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		return err
	}
	broadcastTournamentUpdated(s.hub, t)
	return nil
}

func (s *matchService) StartTimer(ctx context.Context, id string) (*models.Match, error) {
	unlock := s.locks.Lock(matchKey(id))
	defer unlock()

	m, err := s.getMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.IsClosed() {
		return nil, ErrMatchFinished
	}
	if m.IsTimerOn {
		return nil, ErrTimerAlreadyStarted
	}

	now := s.now()
	if m.StartTimestamp == nil {
		m.StartTimestamp = &now
	}
	started := now
	m.TimerStartedTimestamp = &started
	m.IsTimerOn = true

	if err := s.matchRepo.Update(ctx, m); err != nil {
		return nil, err
	}
	broadcastMatchUpdated(s.hub, m)
	return m, nil
}

func (s *matchService) StopTimer(ctx context.Context, id string) (*models.Match, error) {
	unlock := s.locks.Lock(matchKey(id))
	defer unlock()

	m, err := s.getMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.IsTimerOn {
		return nil, ErrTimerNotStarted
	}

	if m.TimerStartedTimestamp != nil {
		m.ElapsedTime += s.now().Sub(*m.TimerStartedTimestamp)
	}
	m.IsTimerOn = false
	m.TimerStartedTimestamp = nil

	if err := s.matchRepo.Update(ctx, m); err != nil {
		return nil, err
	}
	broadcastMatchUpdated(s.hub, m)
	return m, nil
}

func (s *matchService) AddPoint(ctx context.Context, id string, pointType models.PointType, color models.PlayerColor) (*models.Match, error) {
	if !validPointType(pointType) {
		return nil, ErrInvalidPointType
	}

	unlock := s.locks.Lock(matchKey(id))
	defer unlock()

	m, err := s.getMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.IsClosed() {
		return nil, ErrMatchFinished
	}

	if err := scoring.AssignPoint(m, pointType, color, s.now()); err != nil {
		return nil, mapScoringErr(err)
	}
	scoring.CheckOutcome(m, s.now())

	if err := s.matchRepo.Update(ctx, m); err != nil {
		return nil, err
	}
	broadcastMatchUpdated(s.hub, m)
	s.runAdvancement(ctx, m)
	return m, nil
}

// CheckForTie settles the match once its time has run out. The caller
// polls elapsed time and invokes this when the match duration is
// reached.
func (s *matchService) CheckForTie(ctx context.Context, id string) (*models.Match, error) {
	unlock := s.locks.Lock(matchKey(id))
	defer unlock()

	m, err := s.getMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := scoring.CheckForTie(m, s.now()); err != nil {
		return nil, mapScoringErr(err)
	}

	if err := s.matchRepo.Update(ctx, m); err != nil {
		return nil, err
	}
	broadcastMatchUpdated(s.hub, m)
	s.runAdvancement(ctx, m)
	return m, nil
}

func (s *matchService) DeleteRecentPoint(ctx context.Context, id string) (*models.Match, error) {
	unlock := s.locks.Lock(matchKey(id))
	defer unlock()

	m, err := s.getMatch(ctx, id)
	if err != nil {
		return nil, err
	}

	reopened, err := scoring.RemoveRecentPoint(m)
	if err != nil {
		return nil, mapScoringErr(err)
	}

	if err := s.matchRepo.Update(ctx, m); err != nil {
		return nil, err
	}
	broadcastMatchUpdated(s.hub, m)

	if reopened && m.Type != models.MatchTypeGroup {
		if err := s.advancement.OnMatchReopened(ctx, m); err != nil {
			s.logger.Error("failed to reverse advancement after retraction",
				slog.String("match_id", m.ID), slog.Any("error", err))
		}
	}
	return m, nil
}

func (s *matchService) ModifyRecentPoint(ctx context.Context, id string, newType models.PointType) (*models.Match, error) {
	if !validPointType(newType) {
		return nil, ErrInvalidPointType
	}

	unlock := s.locks.Lock(matchKey(id))
	defer unlock()

	m, err := s.getMatch(ctx, id)
	if err != nil {
		return nil, err
	}

	wasClosed := m.IsClosed()
	if err := scoring.ModifyRecentPoint(m, newType, s.now()); err != nil {
		return nil, mapScoringErr(err)
	}

	if err := s.matchRepo.Update(ctx, m); err != nil {
		return nil, err
	}
	broadcastMatchUpdated(s.hub, m)

	if wasClosed && !m.IsClosed() && m.Type != models.MatchTypeGroup {
		// A hansoku edit reopened the match; later rounds are stale.
		if err := s.advancement.OnMatchReopened(ctx, m); err != nil {
			s.logger.Error("failed to reverse advancement after point edit",
				slog.String("match_id", m.ID), slog.Any("error", err))
		}
	} else {
		s.runAdvancement(ctx, m)
	}
	return m, nil
}

func (s *matchService) AddRole(ctx context.Context, id string, role models.MatchRole, userID string) (*models.Match, error) {
	if !validRole(role) {
		return nil, ErrInvalidRole
	}

	unlock := s.locks.Lock(matchKey(id))
	defer unlock()

	m, err := s.getMatch(ctx, id)
	if err != nil {
		return nil, err
	}

	list := roleList(m, role)
	for _, existing := range *list {
		if existing == userID {
			return m, nil
		}
	}
	*list = append(*list, userID)

	if err := s.matchRepo.Update(ctx, m); err != nil {
		return nil, err
	}
	broadcastMatchUpdated(s.hub, m)
	return m, nil
}

func (s *matchService) RemoveRole(ctx context.Context, id string, role models.MatchRole, userID string) (*models.Match, error) {
	if !validRole(role) {
		return nil, ErrInvalidRole
	}

	unlock := s.locks.Lock(matchKey(id))
	defer unlock()

	m, err := s.getMatch(ctx, id)
	if err != nil {
		return nil, err
	}

	list := roleList(m, role)
	kept := (*list)[:0:0]
	for _, existing := range *list {
		if existing != userID {
			kept = append(kept, existing)
		}
	}
	*list = kept

	if err := s.matchRepo.Update(ctx, m); err != nil {
		return nil, err
	}
	broadcastMatchUpdated(s.hub, m)
	return m, nil
}

// ResetMatch zeroes score, points and timer state but keeps assigned
// roles. Resetting a settled non-group match invalidates any rounds
// generated from its outcome.
func (s *matchService) ResetMatch(ctx context.Context, id string) (*models.Match, error) {
	unlock := s.locks.Lock(matchKey(id))
	defer unlock()

	m, err := s.getMatch(ctx, id)
	if err != nil {
		return nil, err
	}

	wasClosed := m.IsClosed()
	for i := range m.Players {
		m.Players[i].Points = []models.Point{}
	}
	m.Player1Score = 0
	m.Player2Score = 0
	m.Winner = nil
	m.EndTimestamp = nil
	m.IsOvertime = false
	m.IsTimerOn = false
	m.StartTimestamp = nil
	m.TimerStartedTimestamp = nil
	m.ElapsedTime = 0

	if err := s.matchRepo.Update(ctx, m); err != nil {
		return nil, err
	}
	broadcastMatchUpdated(s.hub, m)

	if wasClosed && m.Type != models.MatchTypeGroup {
		if err := s.advancement.OnMatchReopened(ctx, m); err != nil {
			s.logger.Error("failed to reverse advancement after match reset",
				slog.String("match_id", m.ID), slog.Any("error", err))
		}
	}
	return m, nil
}

func (s *matchService) ResetRoles(ctx context.Context, id string) (*models.Match, error) {
	unlock := s.locks.Lock(matchKey(id))
	defer unlock()

	m, err := s.getMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.StartTimestamp != nil {
		return nil, ErrMatchAlreadyStarted
	}

	m.Timekeepers = []string{}
	m.PointMakers = []string{}

	if err := s.matchRepo.Update(ctx, m); err != nil {
		return nil, err
	}
	broadcastMatchUpdated(s.hub, m)
	return m, nil
}

func (s *matchService) getMatch(ctx context.Context, id string) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

// runAdvancement triggers the stage check as a best-effort side
// effect: a recorded point is never lost because round generation
// failed downstream.
func (s *matchService) runAdvancement(ctx context.Context, m *models.Match) {
	if s.advancement == nil {
		return
	}
	if err := s.advancement.OnMatchUpdated(ctx, m); err != nil {
		s.logger.Error("stage advancement failed",
			slog.String("match_id", m.ID),
			slog.String("tournament_id", m.TournamentID),
			slog.Any("error", err))
	}
}

func roleList(m *models.Match, role models.MatchRole) *[]string {
	if role == models.MatchRoleTimekeeper {
		return &m.Timekeepers
	}
	return &m.PointMakers
}

func validRole(role models.MatchRole) bool {
	return role == models.MatchRoleTimekeeper || role == models.MatchRolePointMaker
}

func validPointType(pt models.PointType) bool {
	switch pt {
	case models.PointMen, models.PointKote, models.PointDo, models.PointTsuki, models.PointHansoku:
		return true
	}
	return false
}

func validMatchType(mt models.MatchType) bool {
	switch mt {
	case models.MatchTypeGroup, models.MatchTypePreliminary, models.MatchTypePrePlayoff, models.MatchTypePlayoff, models.MatchTypeSwiss:
		return true
	}
	return false
}

func mapScoringErr(err error) error {
	switch {
	case errors.Is(err, scoring.ErrNoPlayers):
		return ErrNoPlayersInMatch
	case errors.Is(err, scoring.ErrNoPoints):
		return ErrNoPointsToRemove
	case errors.Is(err, scoring.ErrColorNotInMatch):
		return ErrColorNotInMatch
	}
	return err
}
