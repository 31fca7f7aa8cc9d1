package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/hokushin/kendo-tournament/models"
	"github.com/hokushin/kendo-tournament/repositories"
)

type fakeMatchRepo struct {
	mu      sync.Mutex
	matches map[string]*models.Match
	order   []string
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[string]*models.Match)}
}

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches[match.ID] = match
	r.order = append(r.order, match.ID)
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, id string) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return m, nil
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, tournamentID string, round *int, matchType *models.MatchType) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, id := range r.order {
		m, ok := r.matches[id]
		if !ok || m.TournamentID != tournamentID {
			continue
		}
		if round != nil && m.TournamentRound != *round {
			continue
		}
		if matchType != nil && m.Type != *matchType {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *fakeMatchRepo) Update(ctx context.Context, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.matches[match.ID]; !ok {
		return repositories.ErrMatchNotFound
	}
	r.matches[match.ID] = match
	return nil
}

func (r *fakeMatchRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.matches[id]; !ok {
		return repositories.ErrMatchNotFound
	}
	delete(r.matches, id)
	return nil
}

func (r *fakeMatchRepo) DeleteFromRound(ctx context.Context, exec repositories.SQLExecutor, tournamentID string, round int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := make([]string, 0)
	for id, m := range r.matches {
		if m.TournamentID == tournamentID && m.TournamentRound >= round {
			delete(r.matches, id)
			deleted = append(deleted, id)
		}
	}
	return deleted, nil
}

type fakeTournamentRepo struct {
	mu          sync.Mutex
	tournaments map[string]*models.Tournament
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{tournaments: make(map[string]*models.Tournament)}
}

func (r *fakeTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tournaments[t.ID] = t
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, id string) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return t, nil
}

func (r *fakeTournamentRepo) List(ctx context.Context, limit, offset int) ([]*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Tournament, 0, len(r.tournaments))
	for _, t := range r.tournaments {
		out = append(out, t)
	}
	return out, nil
}

func (r *fakeTournamentRepo) Update(ctx context.Context, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tournaments[t.ID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	r.tournaments[t.ID] = t
	return nil
}

func (r *fakeTournamentRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.tournaments, id)
	return nil
}

type fakeUserRepo struct {
	users map[string]*models.User
}

func newFakeUserRepo(ids ...string) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*models.User)}
	for _, id := range ids {
		r.users[id] = &models.User{ID: id, DisplayName: id, Role: models.RolePlayer}
	}
	return r
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return u, nil
}

type testEnv struct {
	matchRepo      *fakeMatchRepo
	tournamentRepo *fakeTournamentRepo
	userRepo       *fakeUserRepo
	advancement    *AdvancementService
	matches        MatchService
	tournaments    TournamentService
}

func newTestEnv(users ...string) *testEnv {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	locks := NewAggregateLocks()
	matchRepo := newFakeMatchRepo()
	tournamentRepo := newFakeTournamentRepo()
	userRepo := newFakeUserRepo(users...)

	advancement := NewAdvancementService(nil, tournamentRepo, matchRepo, nil, locks, logger)
	return &testEnv{
		matchRepo:      matchRepo,
		tournamentRepo: tournamentRepo,
		userRepo:       userRepo,
		advancement:    advancement,
		matches:        NewMatchService(nil, matchRepo, tournamentRepo, advancement, nil, locks, logger),
		tournaments:    NewTournamentService(nil, tournamentRepo, matchRepo, userRepo, advancement, nil, locks, logger),
	}
}

func closeMatch(m *models.Match, winner string, now time.Time) {
	w := winner
	end := now
	m.Winner = &w
	m.EndTimestamp = &end
	m.IsOvertime = false
}
