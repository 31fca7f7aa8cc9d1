package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hokushin/kendo-tournament/models"
	"github.com/hokushin/kendo-tournament/notifications"
	"github.com/hokushin/kendo-tournament/repositories"
)

// Notifier is the fire-and-forget notification channel. The websocket
// hub satisfies it; tests pass a no-op.
type Notifier interface {
	BroadcastToRoom(roomID string, message interface{})
}

type noopNotifier struct{}

func (noopNotifier) BroadcastToRoom(string, interface{}) {}

// loadTournamentWithMatches fetches the tournament and its matches in
// parallel and attaches the matches in schedule order.
func loadTournamentWithMatches(ctx context.Context, tournamentRepo repositories.TournamentRepository, matchRepo repositories.MatchRepository, tournamentID string) (*models.Tournament, error) {
	var (
		tournament *models.Tournament
		matches    []*models.Match
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := tournamentRepo.GetByID(gCtx, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return fmt.Errorf("failed to load tournament %s: %w", tournamentID, err)
		}
		tournament = t
		return nil
	})
	g.Go(func() error {
		m, err := matchRepo.ListByTournament(gCtx, tournamentID, nil, nil)
		if err != nil {
			return fmt.Errorf("failed to load matches for tournament %s: %w", tournamentID, err)
		}
		matches = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tournament.Matches = orderBySchedule(tournament.MatchSchedule, matches)
	return tournament, nil
}

// orderBySchedule arranges matches in the tournament's insertion order.
// Matches missing from the schedule list keep their storage order at
// the end.
func orderBySchedule(schedule []string, matches []*models.Match) []*models.Match {
	byID := make(map[string]*models.Match, len(matches))
	for _, m := range matches {
		byID[m.ID] = m
	}
	ordered := make([]*models.Match, 0, len(matches))
	for _, id := range schedule {
		if m, ok := byID[id]; ok {
			ordered = append(ordered, m)
			delete(byID, id)
		}
	}
	for _, m := range matches {
		if _, ok := byID[m.ID]; ok {
			ordered = append(ordered, m)
		}
	}
	return ordered
}

func removeFromSchedule(schedule []string, ids []string) []string {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := schedule[:0:0]
	for _, id := range schedule {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	return kept
}

func allClosed(matches []*models.Match) bool {
	for _, m := range matches {
		if !m.IsClosed() {
			return false
		}
	}
	return true
}

func matchesOfType(matches []*models.Match, matchType models.MatchType) []*models.Match {
	filtered := make([]*models.Match, 0, len(matches))
	for _, m := range matches {
		if m.Type == matchType {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

func maxRoundOf(matches []*models.Match) int {
	maxRound := 0
	for _, m := range matches {
		if m.TournamentRound > maxRound {
			maxRound = m.TournamentRound
		}
	}
	return maxRound
}

func broadcastMatchUpdated(hub Notifier, m *models.Match) {
	msg := notifications.Message{Type: notifications.EventMatchUpdated, Payload: m, RoomID: notifications.MatchRoom(m.ID)}
	hub.BroadcastToRoom(notifications.MatchRoom(m.ID), msg)
	hub.BroadcastToRoom(notifications.TournamentRoom(m.TournamentID), msg)
}

func broadcastTournamentUpdated(hub Notifier, t *models.Tournament) {
	msg := notifications.Message{Type: notifications.EventTournamentUpdated, Payload: t, RoomID: notifications.TournamentRoom(t.ID)}
	hub.BroadcastToRoom(notifications.TournamentRoom(t.ID), msg)
}
