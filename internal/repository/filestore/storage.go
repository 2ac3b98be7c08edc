package filestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/nkiryanov/dailybrief/internal/repository"
)

const (
	credentialsDir = "credentials"
	statesDir      = "states"
)

type cipher interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
}

// Storage keeps one file per user under the data directory:
//
//	<dir>/credentials/<user-id>.enc
//	<dir>/states/<user-id>.json
type Storage struct {
	dir    string
	cipher cipher
}

func NewStorage(dir string, c cipher) (*Storage, error) {
	if c == nil {
		return nil, errors.New("cipher must not be nil")
	}

	for _, sub := range []string{credentialsDir, statesDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	return &Storage{dir: dir, cipher: c}, nil
}

func (s *Storage) Credential() repository.CredentialRepo {
	return &CredentialRepo{dir: filepath.Join(s.dir, credentialsDir), cipher: s.cipher}
}

func (s *Storage) State() repository.StateRepo {
	return &StateRepo{dir: filepath.Join(s.dir, statesDir)}
}

// writeFile writes data to temporary file and renames it, so readers never see half written file
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) // nolint:errcheck

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

func removeFile(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func userFile(dir string, userID uuid.UUID, ext string) string {
	return filepath.Join(dir, userID.String()+ext)
}
