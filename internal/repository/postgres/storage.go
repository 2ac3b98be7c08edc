package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/dailybrief/internal/repository"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
}

type cipher interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
}

type Storage struct {
	db     DBTX
	cipher cipher
}

func NewStorage(db DBTX, c cipher) (*Storage, error) {
	if db == nil || c == nil {
		return nil, errors.New("db and cipher must not be nil")
	}
	return &Storage{db: db, cipher: c}, nil
}

func (s *Storage) Credential() repository.CredentialRepo {
	return &CredentialRepo{DB: s.db, Cipher: s.cipher}
}

func (s *Storage) State() repository.StateRepo {
	return &StateRepo{DB: s.db}
}
