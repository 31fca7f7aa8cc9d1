package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/hokushin/kendo-tournament/brackets"
	"github.com/hokushin/kendo-tournament/models"
	"github.com/hokushin/kendo-tournament/repositories"
	"github.com/hokushin/kendo-tournament/standings"
)

// tieBreakAttemptLimit caps how many round robin tie-break rounds a
// group runs before the remaining promotion slots are drawn at random.
const tieBreakAttemptLimit = 3

// AdvancementService orchestrates cross-match effects: it detects
// completed stages, generates the next round for each format, promotes
// preliminary groups into the playoff bracket, and reverses
// advancement when a retracted point reopens a settled match.
//
// Every entry point runs under the owning tournament's lock, so a full
// schedule scan never races another and a round is never generated
// twice.
type AdvancementService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	hub            Notifier
	locks          *AggregateLocks
	logger         *slog.Logger
	rng            *rand.Rand
	now            func() time.Time
}

func NewAdvancementService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	hub Notifier,
	locks *AggregateLocks,
	logger *slog.Logger,
) *AdvancementService {
	if hub == nil {
		hub = noopNotifier{}
	}
	return &AdvancementService{
		db:             db,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		hub:            hub,
		locks:          locks,
		logger:         logger,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
		now:            time.Now,
	}
}

// OnMatchUpdated re-runs stage logic after a point-affecting change on
// the match. It is cheap and idempotent; callers invoke it after every
// mutation and treat failures as best-effort (logged, never aborting
// the recorded point).
func (s *AdvancementService) OnMatchUpdated(ctx context.Context, match *models.Match) error {
	unlock := s.locks.Lock(tournamentKey(match.TournamentID))
	defer unlock()

	t, err := loadTournamentWithMatches(ctx, s.tournamentRepo, s.matchRepo, match.TournamentID)
	if err != nil {
		return err
	}

	generated := 0

	// Knockout matches advance eagerly on each win, without waiting
	// for the whole round.
	if (match.Type == models.MatchTypePlayoff || match.Type == models.MatchTypePrePlayoff) && match.Winner != nil {
		n, err := s.advanceKnockout(ctx, t, match)
		if err != nil {
			return err
		}
		generated += n
	}

	// Everything else is gated on the full stage being closed.
	if allClosed(t.Matches) {
		switch t.Format {
		case models.FormatPreliminaryPlayoff:
			if len(matchesOfType(t.Matches, models.MatchTypePlayoff)) == 0 {
				n, err := s.promote(ctx, t)
				if err != nil {
					return err
				}
				generated += n
			}
		case models.FormatSwiss:
			n, err := s.nextSwissRound(ctx, t)
			if err != nil {
				return err
			}
			generated += n
		}
	}

	if generated == 0 && len(t.Matches) > 0 && allClosed(t.Matches) && t.Status == models.StatusActive {
		t.Status = models.StatusCompleted
		if err := s.tournamentRepo.Update(ctx, t); err != nil {
			return fmt.Errorf("failed to mark tournament %s completed: %w", t.ID, err)
		}
		broadcastTournamentUpdated(s.hub, t)
	}
	return nil
}

// OnMatchReopened reverses advancement after a retraction un-finished
// the match: every match of a later round is deleted from storage and
// pruned from the tournament's schedule list.
func (s *AdvancementService) OnMatchReopened(ctx context.Context, match *models.Match) error {
	unlock := s.locks.Lock(tournamentKey(match.TournamentID))
	defer unlock()

	t, err := s.tournamentRepo.GetByID(ctx, match.TournamentID)
	if err != nil {
		return fmt.Errorf("failed to load tournament %s: %w", match.TournamentID, err)
	}

	deleted, err := s.matchRepo.DeleteFromRound(ctx, s.db, t.ID, match.TournamentRound+1)
	if err != nil {
		return err
	}

	changed := false
	if len(deleted) > 0 {
		t.MatchSchedule = removeFromSchedule(t.MatchSchedule, deleted)
		changed = true
	}
	if t.Status == models.StatusCompleted {
		t.Status = models.StatusActive
		changed = true
	}
	if changed {
		if err := s.tournamentRepo.Update(ctx, t); err != nil {
			return fmt.Errorf("failed to prune schedule of tournament %s: %w", t.ID, err)
		}
		broadcastTournamentUpdated(s.hub, t)
	}
	return nil
}

// advanceKnockout collects the winners of the finished match's round
// that have no next-round match yet and pairs them sequentially. An
// odd leftover waits for a future advancement call. Round robin
// tournaments never advance this way.
func (s *AdvancementService) advanceKnockout(ctx context.Context, t *models.Tournament, match *models.Match) (int, error) {
	if t.Format == models.FormatRoundRobin {
		return 0, nil
	}

	typed := matchesOfType(t.Matches, match.Type)
	if match.Type == models.MatchTypePrePlayoff && len(match.Players) > 0 {
		// Tie-break brackets run per group; never pair across groups.
		group := t.GroupOf(match.Players[0].PlayerID)
		sameGroup := typed[:0:0]
		for _, m := range typed {
			if len(m.Players) > 0 && t.GroupOf(m.Players[0].PlayerID) == group {
				sameGroup = append(sameGroup, m)
			}
		}
		typed = sameGroup
	}

	round := match.TournamentRound
	nextRoundPlayers := make(map[string]bool)
	for _, m := range typed {
		if m.TournamentRound != round+1 {
			continue
		}
		for _, mp := range m.Players {
			nextRoundPlayers[mp.PlayerID] = true
		}
	}

	winners := make([]string, 0)
	for _, m := range typed {
		if m.TournamentRound != round || m.Winner == nil {
			continue
		}
		if !nextRoundPlayers[*m.Winner] {
			winners = append(winners, *m.Winner)
		}
	}
	if len(winners) < 2 {
		return 0, nil
	}

	next := brackets.PairWinners(t, match.Type, round+1, winners, s.now())
	return s.saveRound(ctx, t, next)
}

// promote ranks each preliminary group and fills the playoff quota.
// Players strictly ahead of the boundary are promoted directly. A tied
// boundary cohort is resolved by up to three round robin tie-break
// rounds (odd cohorts get a pre playoff knockout instead); after three
// unresolved attempts the remaining slots are drawn at random. Once
// every group holds exactly its quota the round-1 playoff bracket is
// generated across all promoted players.
func (s *AdvancementService) promote(ctx context.Context, t *models.Tournament) (int, error) {
	// Pre-existing rows can still hold a bad quota; fail typed rather
	// than index below the ranking boundary.
	if t.PlayersToPlayoffsPerGroup == nil || *t.PlayersToPlayoffsPerGroup < 1 {
		return 0, ErrMissingPlayoffQuota
	}
	quota := *t.PlayersToPlayoffsPerGroup

	prelims := matchesOfType(t.Matches, models.MatchTypePreliminary)
	prePlayoffs := matchesOfType(t.Matches, models.MatchTypePrePlayoff)
	rankings := standings.CalculateByGroup(t.Groups, prelims)
	maxRound := maxRoundOf(t.Matches)

	promoted := make([]string, 0, quota*len(t.Groups))
	newMatches := make([]*models.Match, 0)
	resolved := true

	for gi, ranking := range rankings {
		if quota >= len(ranking) {
			for _, e := range ranking {
				promoted = append(promoted, e.PlayerID)
			}
			continue
		}

		boundary := ranking[quota-1]
		if next := ranking[quota]; next.WinPoints != boundary.WinPoints || next.ScoredPoints != boundary.ScoredPoints {
			for _, e := range ranking[:quota] {
				promoted = append(promoted, e.PlayerID)
			}
			continue
		}

		// The boundary slot is tied: find the whole cohort sharing the
		// boundary's win and scored points.
		cohortStart := quota - 1
		for cohortStart > 0 && sameRank(ranking[cohortStart-1], boundary) {
			cohortStart--
		}
		cohortEnd := quota
		for cohortEnd+1 < len(ranking) && sameRank(ranking[cohortEnd+1], boundary) {
			cohortEnd++
		}
		cohort := make([]string, 0, cohortEnd-cohortStart+1)
		for _, e := range ranking[cohortStart : cohortEnd+1] {
			cohort = append(cohort, e.PlayerID)
		}
		for _, e := range ranking[:cohortStart] {
			promoted = append(promoted, e.PlayerID)
		}
		slots := quota - cohortStart

		cohortPre := matchesAmong(prePlayoffs, cohort)
		if len(cohort)%2 == 1 || len(cohortPre) > 0 {
			// Odd cohorts cannot round robin evenly; they fight out the
			// remaining slots in a pre playoff knockout.
			if len(cohortPre) == 0 {
				newMatches = append(newMatches, brackets.SingleElimination(t, models.MatchTypePrePlayoff, maxRound+1, cohort, s.now())...)
				resolved = false
				continue
			}
			if !allClosed(cohortPre) || len(pendingWinners(cohortPre)) > 1 {
				resolved = false
				continue
			}
			preRanking := standings.Calculate(cohort, cohortPre)
			for _, e := range preRanking[:slots] {
				promoted = append(promoted, e.PlayerID)
			}
			continue
		}

		attempts := groupTieBreakAttempts(t, gi, prelims)
		if attempts < tieBreakAttemptLimit {
			newMatches = append(newMatches, brackets.RoundRobin(t, models.MatchTypePreliminary, maxRound+1, cohort, s.now())...)
			resolved = false
			continue
		}

		// Three tie-break rounds failed to separate the cohort; draw the
		// remaining slots at random.
		perm := s.rng.Perm(len(cohort))
		for _, idx := range perm[:slots] {
			promoted = append(promoted, cohort[idx])
		}
	}

	if len(newMatches) > 0 {
		return s.saveRound(ctx, t, newMatches)
	}
	if !resolved {
		return 0, nil
	}

	playoff := brackets.SingleElimination(t, models.MatchTypePlayoff, maxRound+1, promoted, s.now())
	return s.saveRound(ctx, t, playoff)
}

// nextSwissRound pairs one more swiss round, stopping once the
// configured round count has been played.
func (s *AdvancementService) nextSwissRound(ctx context.Context, t *models.Tournament) (int, error) {
	swiss := matchesOfType(t.Matches, models.MatchTypeSwiss)
	if len(swiss) == 0 {
		return 0, nil
	}
	maxRound := maxRoundOf(swiss)
	if t.SwissRounds > 0 && maxRound >= t.SwissRounds {
		return 0, nil
	}

	ranking := standings.Calculate(t.Players, swiss)
	pairer := brackets.NewSwissPairer(t.Players, swiss)
	next := pairer.NextRound(t, ranking, maxRound+1, s.now())
	if len(next) == 0 {
		return 0, nil
	}
	return s.saveRound(ctx, t, next)
}

// saveRound assigns courts to the generated round, persists the
// matches, appends them to the schedule list and notifies subscribers.
func (s *AdvancementService) saveRound(ctx context.Context, t *models.Tournament, matches []*models.Match) (int, error) {
	brackets.AssignCourts(t, matches)
	for _, m := range matches {
		if err := s.matchRepo.Create(ctx, s.db, m); err != nil {
			return 0, fmt.Errorf("failed to save generated match for tournament %s: %w", t.ID, err)
		}
		t.MatchSchedule = append(t.MatchSchedule, m.ID)
		t.Matches = append(t.Matches, m)
	}
	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		return 0, fmt.Errorf("failed to append generated round to tournament %s: %w", t.ID, err)
	}
	s.logger.Info("generated next round",
		slog.String("tournament_id", t.ID),
		slog.Int("matches", len(matches)),
	)
	broadcastTournamentUpdated(s.hub, t)
	return len(matches), nil
}

func sameRank(a, b standings.Entry) bool {
	return a.WinPoints == b.WinPoints && a.ScoredPoints == b.ScoredPoints
}

// matchesAmong filters matches whose participants all belong to the
// player set.
func matchesAmong(matches []*models.Match, players []string) []*models.Match {
	members := make(map[string]bool, len(players))
	for _, p := range players {
		members[p] = true
	}
	filtered := make([]*models.Match, 0, len(matches))
	for _, m := range matches {
		all := len(m.Players) > 0
		for _, mp := range m.Players {
			if !members[mp.PlayerID] {
				all = false
				break
			}
		}
		if all {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// pendingWinners returns winners that have no match in the following
// round. A single pending winner means the bracket has fully played
// out.
func pendingWinners(matches []*models.Match) []string {
	playersAt := make(map[int]map[string]bool)
	for _, m := range matches {
		if playersAt[m.TournamentRound] == nil {
			playersAt[m.TournamentRound] = make(map[string]bool)
		}
		for _, mp := range m.Players {
			playersAt[m.TournamentRound][mp.PlayerID] = true
		}
	}
	winners := make([]string, 0)
	for _, m := range matches {
		if m.Winner == nil {
			continue
		}
		if !playersAt[m.TournamentRound+1][*m.Winner] {
			winners = append(winners, *m.Winner)
		}
	}
	return winners
}

// groupTieBreakAttempts counts the tie-break rounds already run for the
// group: every round beyond the first among its preliminary matches.
func groupTieBreakAttempts(t *models.Tournament, groupIdx int, prelims []*models.Match) int {
	rounds := make(map[int]bool)
	for _, m := range prelims {
		if len(m.Players) == 0 || t.GroupOf(m.Players[0].PlayerID) != groupIdx {
			continue
		}
		rounds[m.TournamentRound] = true
	}
	if len(rounds) == 0 {
		return 0
	}
	return len(rounds) - 1
}
