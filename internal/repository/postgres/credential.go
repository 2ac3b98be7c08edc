package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/dailybrief/internal/apperrors"
	"github.com/nkiryanov/dailybrief/internal/models"
)

// CredentialRepo stores access and refresh tokens encrypted
type CredentialRepo struct {
	DB     DBTX
	Cipher cipher
}

const saveCredential = `-- name: SaveCredential
INSERT INTO credentials (user_id, access_token, refresh_token, token_type, expiry, scopes, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now())
ON CONFLICT (user_id) DO UPDATE
SET access_token = EXCLUDED.access_token,
    refresh_token = EXCLUDED.refresh_token,
    token_type = EXCLUDED.token_type,
    expiry = EXCLUDED.expiry,
    scopes = EXCLUDED.scopes,
    updated_at = EXCLUDED.updated_at
`

func (r *CredentialRepo) Save(ctx context.Context, userID uuid.UUID, cred models.Credential) error {
	access, err := r.Cipher.Encrypt([]byte(cred.AccessToken))
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	var refresh string
	if cred.RefreshToken != "" {
		refresh, err = r.Cipher.Encrypt([]byte(cred.RefreshToken))
		if err != nil {
			return fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
	}

	var expiry *time.Time
	if !cred.Expiry.IsZero() {
		expiry = &cred.Expiry
	}

	scopes := cred.Scopes
	if scopes == nil {
		scopes = []string{}
	}

	_, err = r.DB.Exec(ctx, saveCredential, userID, access, refresh, cred.TokenType, expiry, scopes)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const loadCredential = `-- name: LoadCredential
SELECT access_token, refresh_token, token_type, expiry, scopes
FROM credentials
WHERE user_id = $1
`

type credentialRow struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       *time.Time
	Scopes       []string
}

// Load returns stored credential
// Row that cannot be decrypted is deleted and reported as not found
func (r *CredentialRepo) Load(ctx context.Context, userID uuid.UUID) (models.Credential, error) {
	rows, _ := r.DB.Query(ctx, loadCredential, userID)
	row, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (credentialRow, error) {
		var c credentialRow
		err := row.Scan(&c.AccessToken, &c.RefreshToken, &c.TokenType, &c.Expiry, &c.Scopes)
		return c, err
	})

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return models.Credential{}, fmt.Errorf("repo error: %w", apperrors.ErrCredentialNotFound)
	case err != nil:
		return models.Credential{}, fmt.Errorf("db error: %w", err)
	}

	cred, err := r.decode(row)
	if err != nil {
		if clearErr := r.Clear(ctx, userID); clearErr != nil {
			return models.Credential{}, clearErr
		}
		return models.Credential{}, fmt.Errorf("%w: %w", apperrors.ErrCredentialNotFound, err)
	}

	return cred, nil
}

func (r *CredentialRepo) decode(row credentialRow) (models.Credential, error) {
	access, err := r.Cipher.Decrypt(row.AccessToken)
	if err != nil {
		return models.Credential{}, fmt.Errorf("access token: %w", err)
	}
	if len(access) == 0 {
		return models.Credential{}, fmt.Errorf("access token is empty: %w", apperrors.ErrMalformedRecord)
	}

	cred := models.Credential{
		AccessToken: string(access),
		TokenType:   row.TokenType,
		Scopes:      row.Scopes,
	}

	if row.RefreshToken != "" {
		refresh, err := r.Cipher.Decrypt(row.RefreshToken)
		if err != nil {
			return models.Credential{}, fmt.Errorf("refresh token: %w", err)
		}
		cred.RefreshToken = string(refresh)
	}

	if row.Expiry != nil {
		cred.Expiry = *row.Expiry
	}

	return cred, nil
}

const clearCredential = `-- name: ClearCredential
DELETE FROM credentials
WHERE user_id = $1
`

func (r *CredentialRepo) Clear(ctx context.Context, userID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, clearCredential, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
