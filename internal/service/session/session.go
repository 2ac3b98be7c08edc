package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultSigningMethod = "HS256"
	defaultTTL           = 30 * 24 * time.Hour
)

// Claims of the session cookie
// Session only identifies the browser, credentials are kept server side
type Claims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"uid"`
}

// Session manager with sensible default
type Config struct {
	// Secret key to sign session token
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Session lifetime
	// If not set than default is used
	TTL time.Duration
}

type Manager struct {
	key string
	alg jwt.SigningMethod
	ttl time.Duration
}

func New(cfg Config) (*Manager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	alg := jwt.GetSigningMethod(cfg.Alg)
	if alg == nil {
		return nil, fmt.Errorf("unknown signing method %q", cfg.Alg)
	}

	if cfg.TTL == 0 {
		cfg.TTL = defaultTTL
	}

	return &Manager{
		key: cfg.SecretKey,
		alg: alg,
		ttl: cfg.TTL,
	}, nil
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signed session token for the user
func (m *Manager) Issue(userID uuid.UUID) (token string, expiresAt time.Time, err error) {
	now := time.Now().Truncate(time.Second)
	expiresAt = now.Add(m.ttl)

	t := jwt.NewWithClaims(m.alg, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
	})

	token, err = t.SignedString([]byte(m.key))
	if err != nil {
		return "", expiresAt, fmt.Errorf("error while signing session token. Err: %w", err)
	}

	return token, expiresAt, nil
}

// Parse and validate session token
func (m *Manager) Parse(token string) (uuid.UUID, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (any, error) {
			return []byte(m.key), nil
		},
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("error while parsing or validating session token. Err: %w", err)
	}

	if claims.UserID == uuid.Nil {
		return uuid.Nil, errors.New("session token has no user id")
	}

	return claims.UserID, nil
}
