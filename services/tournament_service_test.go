package services

import (
	"context"
	"errors"
	"testing"

	"github.com/hokushin/kendo-tournament/models"
)

func TestSignupGrowsRoundRobinSchedule(t *testing.T) {
	env := newTestEnv("p1", "p2", "p3")
	ctx := context.Background()

	trn, err := env.tournaments.CreateTournament(ctx, CreateTournamentInput{
		Name:             "kyu taikai",
		Format:           models.FormatRoundRobin,
		MatchTimeSeconds: 180,
		NumberOfCourts:   1,
		MaxParticipants:  8,
	})
	if err != nil {
		t.Fatalf("CreateTournament: %v", err)
	}
	if trn.Status != models.StatusRegistration {
		t.Fatalf("new tournament status %q, want registration", trn.Status)
	}

	for i, p := range []string{"p1", "p2", "p3"} {
		got, err := env.tournaments.AddPlayer(ctx, trn.ID, p)
		if err != nil {
			t.Fatalf("AddPlayer(%s): %v", p, err)
		}
		n := len(got.MatchSchedule)
		want := i * (i + 1) / 2
		if n != want {
			t.Errorf("after %d signups schedule holds %d matches, want %d", i+1, n, want)
		}
	}

	if _, err := env.tournaments.AddPlayer(ctx, trn.ID, "p1"); !errors.Is(err, ErrAlreadySignedUp) {
		t.Errorf("expected ErrAlreadySignedUp, got %v", err)
	}
	if _, err := env.tournaments.AddPlayer(ctx, trn.ID, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound for unknown player, got %v", err)
	}

	// Every pairing appears exactly once.
	got, err := env.tournaments.GetTournament(ctx, trn.ID)
	if err != nil {
		t.Fatalf("GetTournament: %v", err)
	}
	seen := make(map[[2]string]bool)
	for _, m := range got.Matches {
		a, b := m.Players[0].PlayerID, m.Players[1].PlayerID
		if a > b {
			a, b = b, a
		}
		if seen[[2]string{a, b}] {
			t.Errorf("duplicate pairing %s vs %s", a, b)
		}
		seen[[2]string{a, b}] = true
	}
	if len(seen) != 3 {
		t.Errorf("expected 3 unique pairings, got %d", len(seen))
	}
}

func TestSignupCapacityAndStartGuards(t *testing.T) {
	env := newTestEnv("p1", "p2", "p3")
	ctx := context.Background()

	trn, _ := env.tournaments.CreateTournament(ctx, CreateTournamentInput{
		Name:            "shiai",
		Format:          models.FormatPlayoff,
		NumberOfCourts:  1,
		MaxParticipants: 2,
	})
	env.tournaments.AddPlayer(ctx, trn.ID, "p1")
	env.tournaments.AddPlayer(ctx, trn.ID, "p2")
	if _, err := env.tournaments.AddPlayer(ctx, trn.ID, "p3"); !errors.Is(err, ErrTournamentFull) {
		t.Errorf("expected ErrTournamentFull, got %v", err)
	}

	if _, err := env.tournaments.GetOrCreateSchedule(ctx, trn.ID); err != nil {
		t.Fatalf("GetOrCreateSchedule: %v", err)
	}
	if _, err := env.tournaments.AddPlayer(ctx, trn.ID, "p3"); !errors.Is(err, ErrTournamentStarted) {
		t.Errorf("expected ErrTournamentStarted after start, got %v", err)
	}
	if _, err := env.tournaments.UpdateTournament(ctx, trn.ID, UpdateTournamentInput{}); !errors.Is(err, ErrTournamentStarted) {
		t.Errorf("expected ErrTournamentStarted on edit after start, got %v", err)
	}
}

func TestPreliminaryConfigIsValidated(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.tournaments.CreateTournament(ctx, CreateTournamentInput{
		Name:                "dan taikai",
		Format:              models.FormatPreliminaryPlayoff,
		GroupSizePreference: 4,
	})
	if !errors.Is(err, ErrMissingPlayoffQuota) {
		t.Errorf("expected ErrMissingPlayoffQuota, got %v", err)
	}

	for _, bad := range []int{0, -1} {
		q := bad
		_, err = env.tournaments.CreateTournament(ctx, CreateTournamentInput{
			Name:                      "dan taikai",
			Format:                    models.FormatPreliminaryPlayoff,
			GroupSizePreference:       4,
			PlayersToPlayoffsPerGroup: &q,
		})
		if !errors.Is(err, ErrInvalidPlayoffQuota) {
			t.Errorf("quota %d: expected ErrInvalidPlayoffQuota, got %v", bad, err)
		}
	}

	quota := 2
	_, err = env.tournaments.CreateTournament(ctx, CreateTournamentInput{
		Name:                      "dan taikai",
		Format:                    models.FormatPreliminaryPlayoff,
		PlayersToPlayoffsPerGroup: &quota,
	})
	if !errors.Is(err, ErrMissingGroupSizePreference) {
		t.Errorf("expected ErrMissingGroupSizePreference, got %v", err)
	}

	_, err = env.tournaments.CreateTournament(ctx, CreateTournamentInput{Name: "x", Format: "ladder"})
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestPreliminarySignupFillsGroups(t *testing.T) {
	env := newTestEnv("p1", "p2", "p3", "p4", "p5")
	ctx := context.Background()

	quota := 1
	trn, err := env.tournaments.CreateTournament(ctx, CreateTournamentInput{
		Name:                      "grouped",
		Format:                    models.FormatPreliminaryPlayoff,
		GroupSizePreference:       2,
		PlayersToPlayoffsPerGroup: &quota,
		MaxParticipants:           8,
	})
	if err != nil {
		t.Fatalf("CreateTournament: %v", err)
	}

	for _, p := range []string{"p1", "p2", "p3", "p4", "p5"} {
		if _, err := env.tournaments.AddPlayer(ctx, trn.ID, p); err != nil {
			t.Fatalf("AddPlayer(%s): %v", p, err)
		}
	}

	got, _ := env.tournaments.GetTournament(ctx, trn.ID)
	if len(got.Groups) != 3 {
		t.Fatalf("expected 3 groups for 5 players at size 2, got %d", len(got.Groups))
	}
	for i, g := range got.Groups[:2] {
		if len(g) != 2 {
			t.Errorf("group %d holds %d players, want 2", i, len(g))
		}
	}
	// Matches stay within groups: one per full pair group.
	if len(got.Matches) != 2 {
		t.Errorf("expected 2 preliminary matches, got %d", len(got.Matches))
	}
	for _, m := range got.Matches {
		if m.Type != models.MatchTypePreliminary {
			t.Errorf("match type %q, want preliminary", m.Type)
		}
		if got.GroupOf(m.Players[0].PlayerID) != got.GroupOf(m.Players[1].PlayerID) {
			t.Errorf("match crosses groups: %s vs %s", m.Players[0].PlayerID, m.Players[1].PlayerID)
		}
	}
}

func TestPlayoffScheduleGeneratedOnStart(t *testing.T) {
	env := newTestEnv("p1", "p2", "p3", "p4", "p5")
	ctx := context.Background()

	trn, _ := env.tournaments.CreateTournament(ctx, CreateTournamentInput{
		Name:            "knockout",
		Format:          models.FormatPlayoff,
		NumberOfCourts:  1,
		MaxParticipants: 8,
	})
	for _, p := range []string{"p1", "p2", "p3", "p4", "p5"} {
		env.tournaments.AddPlayer(ctx, trn.ID, p)
	}

	matches, err := env.tournaments.GetOrCreateSchedule(ctx, trn.ID)
	if err != nil {
		t.Fatalf("GetOrCreateSchedule: %v", err)
	}
	// Five players pad to a bracket of eight: three byes plus one
	// opening match.
	byes, real := 0, 0
	for _, m := range matches {
		if m.IsBye() {
			byes++
		} else {
			real++
		}
	}
	if byes != 3 || real != 1 {
		t.Fatalf("expected 3 byes and 1 match, got %d byes %d matches", byes, real)
	}

	got, _ := env.tournaments.GetTournament(ctx, trn.ID)
	if got.Status != models.StatusActive {
		t.Errorf("tournament should be active after schedule creation, got %q", got.Status)
	}

	// A second call returns the same schedule.
	again, err := env.tournaments.GetOrCreateSchedule(ctx, trn.ID)
	if err != nil {
		t.Fatalf("GetOrCreateSchedule: %v", err)
	}
	if len(again) != len(matches) {
		t.Errorf("repeated schedule call regenerated matches: %d vs %d", len(again), len(matches))
	}
}

func TestWithdrawalForfeitsOpenMatches(t *testing.T) {
	env := newTestEnv("p1", "p2", "p3")
	ctx := context.Background()

	trn, _ := env.tournaments.CreateTournament(ctx, CreateTournamentInput{
		Name:            "forfeit",
		Format:          models.FormatRoundRobin,
		NumberOfCourts:  1,
		MaxParticipants: 8,
	})
	for _, p := range []string{"p1", "p2", "p3"} {
		env.tournaments.AddPlayer(ctx, trn.ID, p)
	}

	if err := env.tournaments.WithdrawPlayer(ctx, trn.ID, "p2"); err != nil {
		t.Fatalf("WithdrawPlayer: %v", err)
	}

	got, _ := env.tournaments.GetTournament(ctx, trn.ID)
	if got.HasPlayer("p2") {
		t.Errorf("withdrawn player still registered")
	}
	for _, m := range got.Matches {
		if !m.HasPlayer("p2") {
			continue
		}
		if !m.IsClosed() || m.Winner == nil {
			t.Errorf("match against withdrawn player left open")
			continue
		}
		if *m.Winner == "p2" {
			t.Errorf("withdrawn player recorded as winner")
		}
	}

	if err := env.tournaments.WithdrawPlayer(ctx, trn.ID, "p2"); !errors.Is(err, ErrPlayerNotRegistered) {
		t.Errorf("expected ErrPlayerNotRegistered for repeated withdrawal, got %v", err)
	}
}
