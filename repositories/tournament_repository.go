package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hokushin/kendo-tournament/models"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name already exists")
)

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id string) (*models.Tournament, error)
	List(ctx context.Context, limit, offset int) ([]*models.Tournament, error)
	Update(ctx context.Context, tournament *models.Tournament) error
	Delete(ctx context.Context, id string) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

const tournamentColumns = `
	id, name, format, players, groups, group_size_preference,
	players_to_playoffs_per_group, swiss_rounds, match_time, number_of_courts,
	match_schedule, status, start_date, max_participants, created_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	groupsJSON, err := json.Marshal(t.Groups)
	if err != nil {
		return fmt.Errorf("failed to marshal tournament groups: %w", err)
	}

	query := `
		INSERT INTO tournaments
			(id, name, format, players, groups, group_size_preference,
			 players_to_playoffs_per_group, swiss_rounds, match_time, number_of_courts,
			 match_schedule, status, start_date, max_participants)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at`

	err = r.db.QueryRowContext(ctx, query,
		t.ID,
		t.Name,
		t.Format,
		pq.Array(t.Players),
		groupsJSON,
		t.GroupSizePreference,
		t.PlayersToPlayoffsPerGroup,
		t.SwissRounds,
		int64(t.MatchTime),
		t.NumberOfCourts,
		pq.Array(t.MatchSchedule),
		t.Status,
		t.StartDate,
		t.MaxParticipants,
	).Scan(&t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id string) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t, err := r.scanTournament(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament by id %s: %w", id, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, limit, offset int) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t, scanErr := r.scanTournament(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", scanErr)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	groupsJSON, err := json.Marshal(t.Groups)
	if err != nil {
		return fmt.Errorf("failed to marshal tournament groups: %w", err)
	}

	query := `
		UPDATE tournaments SET
			name = $1, format = $2, players = $3, groups = $4,
			group_size_preference = $5, players_to_playoffs_per_group = $6,
			swiss_rounds = $7, match_time = $8, number_of_courts = $9,
			match_schedule = $10, status = $11, start_date = $12, max_participants = $13
		WHERE id = $14`

	result, err := r.db.ExecContext(ctx, query,
		t.Name,
		t.Format,
		pq.Array(t.Players),
		groupsJSON,
		t.GroupSizePreference,
		t.PlayersToPlayoffsPerGroup,
		t.SwissRounds,
		int64(t.MatchTime),
		t.NumberOfCourts,
		pq.Array(t.MatchSchedule),
		t.Status,
		t.StartDate,
		t.MaxParticipants,
		t.ID,
	)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) scanTournament(row rowScanner) (*models.Tournament, error) {
	t := &models.Tournament{}
	var groupsJSON []byte
	var matchTime int64

	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Format,
		pq.Array(&t.Players),
		&groupsJSON,
		&t.GroupSizePreference,
		&t.PlayersToPlayoffsPerGroup,
		&t.SwissRounds,
		&matchTime,
		&t.NumberOfCourts,
		pq.Array(&t.MatchSchedule),
		&t.Status,
		&t.StartDate,
		&t.MaxParticipants,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.MatchTime = time.Duration(matchTime)
	if len(groupsJSON) > 0 {
		if err := json.Unmarshal(groupsJSON, &t.Groups); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tournament groups: %w", err)
		}
	}
	return t, nil
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "tournaments_name_key":
			return ErrTournamentNameConflict
		case "tournaments_pkey":
			return fmt.Errorf("tournament id conflict: %w", err)
		}
	}
	return err
}
