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

type CredentialRepo struct {
	dir    string
	cipher cipher
}

func (r *CredentialRepo) Save(_ context.Context, userID uuid.UUID, cred models.Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	encrypted, err := r.cipher.Encrypt(data)
	if err != nil {
		return fmt.Errorf("failed to encrypt credential: %w", err)
	}

	if err := writeFile(userFile(r.dir, userID, ".enc"), []byte(encrypted)); err != nil {
		return fmt.Errorf("failed to write credential: %w", err)
	}

	return nil
}

// Load credential
// Corrupted file is removed and reported as not found
func (r *CredentialRepo) Load(_ context.Context, userID uuid.UUID) (models.Credential, error) {
	var cred models.Credential
	path := userFile(r.dir, userID, ".enc")

	encrypted, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return cred, fmt.Errorf("repo error: %w", apperrors.ErrCredentialNotFound)
	case err != nil:
		return cred, fmt.Errorf("failed to read credential: %w", err)
	}

	data, err := r.cipher.Decrypt(string(encrypted))
	if err == nil {
		err = json.Unmarshal(data, &cred)
	}
	if err == nil && cred.AccessToken == "" {
		err = errors.New("access token is empty")
	}

	if err != nil {
		if rmErr := removeFile(path); rmErr != nil {
			return models.Credential{}, fmt.Errorf("failed to discard unreadable credential: %w", rmErr)
		}
		return models.Credential{}, fmt.Errorf("repo error: credential discarded (%v): %w", err, apperrors.ErrCredentialNotFound)
	}

	return cred, nil
}

func (r *CredentialRepo) Clear(_ context.Context, userID uuid.UUID) error {
	if err := removeFile(userFile(r.dir, userID, ".enc")); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}
