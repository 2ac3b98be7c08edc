package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/nkiryanov/dailybrief/internal/apperrors"
	"github.com/nkiryanov/dailybrief/internal/models"
	"github.com/nkiryanov/dailybrief/internal/repository"
)

// Storage keeps credentials and states in process memory
// Useful for tests and for running without durable storage
type Storage struct {
	mu          sync.Mutex
	credentials map[uuid.UUID]models.Credential
	states      map[uuid.UUID]models.AuthState
}

func NewStorage() *Storage {
	return &Storage{
		credentials: make(map[uuid.UUID]models.Credential),
		states:      make(map[uuid.UUID]models.AuthState),
	}
}

func (s *Storage) Credential() repository.CredentialRepo {
	return (*credentialRepo)(s)
}

func (s *Storage) State() repository.StateRepo {
	return (*stateRepo)(s)
}

type credentialRepo Storage

func (r *credentialRepo) Save(_ context.Context, userID uuid.UUID, cred models.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cred.Scopes = slices.Clone(cred.Scopes)
	r.credentials[userID] = cred
	return nil
}

func (r *credentialRepo) Load(_ context.Context, userID uuid.UUID) (models.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cred, ok := r.credentials[userID]
	if !ok {
		return cred, apperrors.ErrCredentialNotFound
	}

	cred.Scopes = slices.Clone(cred.Scopes)
	return cred, nil
}

func (r *credentialRepo) Clear(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.credentials, userID)
	return nil
}

type stateRepo Storage

func (r *stateRepo) SaveState(_ context.Context, userID uuid.UUID, state models.AuthState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states[userID] = state
	return nil
}

func (r *stateRepo) PopState(_ context.Context, userID uuid.UUID) (models.AuthState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[userID]
	if !ok {
		return state, apperrors.ErrStateNotFound
	}

	delete(r.states, userID)
	return state, nil
}

func (r *stateRepo) PeekState(_ context.Context, userID uuid.UUID) (models.AuthState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[userID]
	if !ok {
		return state, apperrors.ErrStateNotFound
	}

	return state, nil
}
