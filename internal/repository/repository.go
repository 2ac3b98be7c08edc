package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/nkiryanov/dailybrief/internal/models"
)

// Credential repository interface
type CredentialRepo interface {
	// Save credential, overwriting the previous one of the user
	Save(ctx context.Context, userID uuid.UUID, cred models.Credential) error

	// Load user credential
	// If there is no credential or it can't be read must return apperrors.ErrCredentialNotFound
	// Unreadable credential has to be deleted, so next Load does not hit it again
	Load(ctx context.Context, userID uuid.UUID) (models.Credential, error)

	// Delete user credential
	// Clearing absent credential is not an error
	Clear(ctx context.Context, userID uuid.UUID) error
}

// Pending authorization state (CSRF nonce) repository
type StateRepo interface {
	// Save pending state, overwriting the previous one of the user
	SaveState(ctx context.Context, userID uuid.UUID, state models.AuthState) error

	// Return pending state and delete it in one step
	// If there is no pending state must return apperrors.ErrStateNotFound
	PopState(ctx context.Context, userID uuid.UUID) (models.AuthState, error)

	// Return pending state without consuming it
	// If there is no pending state must return apperrors.ErrStateNotFound
	PeekState(ctx context.Context, userID uuid.UUID) (models.AuthState, error)
}

type Storage interface {
	Credential() CredentialRepo
	State() StateRepo
}
