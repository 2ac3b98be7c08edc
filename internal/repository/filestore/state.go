package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/nkiryanov/dailybrief/internal/apperrors"
	"github.com/nkiryanov/dailybrief/internal/models"
)

type StateRepo struct {
	dir string
}

func (r *StateRepo) SaveState(_ context.Context, userID uuid.UUID, state models.AuthState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := writeFile(userFile(r.dir, userID, ".json"), data); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}

	return nil
}

// Pop state: file is claimed by rename first, so of concurrent pops only one gets the state
// Claimed file is removed whatever it contains
func (r *StateRepo) PopState(_ context.Context, userID uuid.UUID) (models.AuthState, error) {
	path := userFile(r.dir, userID, ".json")
	claimed := fmt.Sprintf("%s.%s.pop", path, uuid.NewString())

	err := os.Rename(path, claimed)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return models.AuthState{}, fmt.Errorf("repo error: %w", apperrors.ErrStateNotFound)
	case err != nil:
		return models.AuthState{}, fmt.Errorf("failed to claim state: %w", err)
	}
	defer removeFile(claimed) // nolint:errcheck

	data, err := os.ReadFile(claimed)
	if err != nil {
		return models.AuthState{}, fmt.Errorf("failed to read state: %w", err)
	}

	return decodeState(data)
}

func (r *StateRepo) PeekState(_ context.Context, userID uuid.UUID) (models.AuthState, error) {
	data, err := os.ReadFile(userFile(r.dir, userID, ".json"))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return models.AuthState{}, fmt.Errorf("repo error: %w", apperrors.ErrStateNotFound)
	case err != nil:
		return models.AuthState{}, fmt.Errorf("failed to read state: %w", err)
	}

	return decodeState(data)
}

func decodeState(data []byte) (models.AuthState, error) {
	var state models.AuthState
	if err := json.Unmarshal(data, &state); err != nil || state.State == "" {
		return models.AuthState{}, fmt.Errorf("repo error: state unreadable: %w", apperrors.ErrStateNotFound)
	}
	return state, nil
}
