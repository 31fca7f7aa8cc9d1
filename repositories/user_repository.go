package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hokushin/kendo-tournament/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository is the player directory. Only lookups are exposed;
// account management happens outside this system.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, display_name, role, created_at FROM users WHERE id = $1`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.DisplayName,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user by id %s: %w", id, err)
	}
	return user, nil
}
