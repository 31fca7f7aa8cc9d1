package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/hokushin/kendo-tournament/models"
)

var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchTournamentInvalid = errors.New("match tournament conflict or invalid")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id string) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID string, round *int, matchType *models.MatchType) ([]*models.Match, error)
	Update(ctx context.Context, match *models.Match) error
	Delete(ctx context.Context, id string) error
	DeleteFromRound(ctx context.Context, exec SQLExecutor, tournamentID string, round int) ([]string, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `
	id, tournament_id, type, tournament_round, players, match_time, elapsed_time,
	start_timestamp, timer_started_timestamp, is_timer_on, is_overtime, winner,
	end_timestamp, player1_score, player2_score, court_number, timekeepers,
	point_makers, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	playersJSON, err := json.Marshal(match.Players)
	if err != nil {
		return fmt.Errorf("failed to marshal match players: %w", err)
	}

	query := `
		INSERT INTO matches
			(id, tournament_id, type, tournament_round, players, match_time, elapsed_time,
			 start_timestamp, timer_started_timestamp, is_timer_on, is_overtime, winner,
			 end_timestamp, player1_score, player2_score, court_number, timekeepers, point_makers)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING created_at`

	err = exec.QueryRowContext(ctx, query,
		match.ID,
		match.TournamentID,
		match.Type,
		match.TournamentRound,
		playersJSON,
		int64(match.MatchTime),
		int64(match.ElapsedTime),
		match.StartTimestamp,
		match.TimerStartedTimestamp,
		match.IsTimerOn,
		match.IsOvertime,
		match.Winner,
		match.EndTimestamp,
		match.Player1Score,
		match.Player2Score,
		match.CourtNumber,
		pq.Array(match.Timekeepers),
		pq.Array(match.PointMakers),
	).Scan(&match.CreatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id string) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	match, err := r.scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match by id %s: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID string, round *int, matchType *models.MatchType) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	placeholderIndex := 2

	if round != nil {
		queryBuilder.WriteString(" AND tournament_round = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *round)
		placeholderIndex++
	}
	if matchType != nil {
		queryBuilder.WriteString(" AND type = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *matchType)
	}

	queryBuilder.WriteString(" ORDER BY tournament_round ASC, created_at ASC, id ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %s: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, scanErr := r.scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, match)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) Update(ctx context.Context, match *models.Match) error {
	playersJSON, err := json.Marshal(match.Players)
	if err != nil {
		return fmt.Errorf("failed to marshal match players: %w", err)
	}

	query := `
		UPDATE matches SET
			players = $1, match_time = $2, elapsed_time = $3, start_timestamp = $4,
			timer_started_timestamp = $5, is_timer_on = $6, is_overtime = $7,
			winner = $8, end_timestamp = $9, player1_score = $10, player2_score = $11,
			court_number = $12, timekeepers = $13, point_makers = $14
		WHERE id = $15`

	result, err := r.db.ExecContext(ctx, query,
		playersJSON,
		int64(match.MatchTime),
		int64(match.ElapsedTime),
		match.StartTimestamp,
		match.TimerStartedTimestamp,
		match.IsTimerOn,
		match.IsOvertime,
		match.Winner,
		match.EndTimestamp,
		match.Player1Score,
		match.Player2Score,
		match.CourtNumber,
		pq.Array(match.Timekeepers),
		pq.Array(match.PointMakers),
		match.ID,
	)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

// DeleteFromRound removes every match of the tournament at the given
// round or later and returns the deleted ids so the caller can prune
// the tournament's schedule list.
func (r *postgresMatchRepository) DeleteFromRound(ctx context.Context, exec SQLExecutor, tournamentID string, round int) ([]string, error) {
	query := `DELETE FROM matches WHERE tournament_id = $1 AND tournament_round >= $2 RETURNING id`

	rows, err := exec.QueryContext(ctx, query, tournamentID, round)
	if err != nil {
		return nil, fmt.Errorf("failed to delete matches from round %d for tournament %s: %w", round, tournamentID, err)
	}
	defer rows.Close()

	deleted := make([]string, 0)
	for rows.Next() {
		var id string
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, fmt.Errorf("failed to scan deleted match id: %w", scanErr)
		}
		deleted = append(deleted, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during deleted match rows iteration: %w", err)
	}
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *postgresMatchRepository) scanMatch(row rowScanner) (*models.Match, error) {
	match := &models.Match{}
	var playersJSON []byte
	var matchTime, elapsedTime int64

	err := row.Scan(
		&match.ID,
		&match.TournamentID,
		&match.Type,
		&match.TournamentRound,
		&playersJSON,
		&matchTime,
		&elapsedTime,
		&match.StartTimestamp,
		&match.TimerStartedTimestamp,
		&match.IsTimerOn,
		&match.IsOvertime,
		&match.Winner,
		&match.EndTimestamp,
		&match.Player1Score,
		&match.Player2Score,
		&match.CourtNumber,
		pq.Array(&match.Timekeepers),
		pq.Array(&match.PointMakers),
		&match.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	match.MatchTime = time.Duration(matchTime)
	match.ElapsedTime = time.Duration(elapsedTime)
	if err := json.Unmarshal(playersJSON, &match.Players); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match players: %w", err)
	}
	return match, nil
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "matches_tournament_id_fkey":
			return ErrMatchTournamentInvalid
		case "matches_pkey":
			return fmt.Errorf("match id conflict: %w", err)
		}
	}
	return err
}
