package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/dailybrief/internal/apperrors"
	"github.com/nkiryanov/dailybrief/internal/models"
)

type StateRepo struct {
	DB DBTX
}

const saveState = `-- name: SaveState
INSERT INTO oauth_states (user_id, state, scopes, redirect_url, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id) DO UPDATE
SET state = EXCLUDED.state,
    scopes = EXCLUDED.scopes,
    redirect_url = EXCLUDED.redirect_url,
    created_at = EXCLUDED.created_at
`

func (r *StateRepo) SaveState(ctx context.Context, userID uuid.UUID, state models.AuthState) error {
	scopes := state.Scopes
	if scopes == nil {
		scopes = []string{}
	}

	_, err := r.DB.Exec(ctx, saveState, userID, state.State, scopes, state.RedirectURL, state.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const popState = `-- name: PopState
DELETE FROM oauth_states
WHERE user_id = $1
RETURNING state, scopes, redirect_url, created_at
`

// Pop state: returned row is deleted in the same statement
func (r *StateRepo) PopState(ctx context.Context, userID uuid.UUID) (models.AuthState, error) {
	rows, _ := r.DB.Query(ctx, popState, userID)
	return collectState(rows)
}

const peekState = `-- name: PeekState
SELECT state, scopes, redirect_url, created_at
FROM oauth_states
WHERE user_id = $1
`

func (r *StateRepo) PeekState(ctx context.Context, userID uuid.UUID) (models.AuthState, error) {
	rows, _ := r.DB.Query(ctx, peekState, userID)
	return collectState(rows)
}

func collectState(rows pgx.Rows) (models.AuthState, error) {
	state, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.AuthState, error) {
		var s models.AuthState
		err := row.Scan(&s.State, &s.Scopes, &s.RedirectURL, &s.CreatedAt)
		return s, err
	})

	switch {
	case err == nil:
		return state, nil
	case errors.Is(err, pgx.ErrNoRows):
		return state, fmt.Errorf("repo error: %w", apperrors.ErrStateNotFound)
	default:
		return state, fmt.Errorf("db error: %w", err)
	}
}
