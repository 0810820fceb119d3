// Package auth implements account signup, login, and bearer-token
// issuance. Passwords are stored as bcrypt hashes; sessions are stateless
// JWTs signed with the configured secret.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"design-assistant/internal/common/logger"
	"design-assistant/internal/models"
	"design-assistant/internal/store"
)

var (
	ErrEmailExists        = errors.New("EMAIL_ALREADY_EXISTS")
	ErrInvalidCredentials = errors.New("INVALID_CREDENTIALS")
	ErrInvalidToken       = errors.New("INVALID_TOKEN")
)

// Claims is the JWT payload. Subject carries the numeric user id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Service struct {
	users  *store.UserStore
	secret []byte
	expiry time.Duration
	logger logger.Logger
}

func NewService(users *store.UserStore, secret string, expiry time.Duration, log logger.Logger) *Service {
	return &Service{
		users:  users,
		secret: []byte(secret),
		expiry: expiry,
		logger: log.WithFields(map[string]interface{}{"component": "auth-service"}),
	}
}

// Signup registers a new account with a bcrypt-hashed password.
func (s *Service) Signup(ctx context.Context, email, name, password string) (*models.User, error) {
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrEmailExists, email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	record, err := s.users.Save(ctx, email, name, string(hash))
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", map[string]interface{}{"userId": record.ID})
	return &models.User{ID: record.ID, Email: record.Email, Name: record.Name}, nil
}

// Login verifies the credentials and issues a signed token. Missing user
// and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	record, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(record)
	if err != nil {
		return "", nil, err
	}
	return token, &models.User{ID: record.ID, Email: record.Email, Name: record.Name}, nil
}

func (s *Service) issueToken(record *store.UserRecord) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: record.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(record.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a bearer token and returns its claims.
func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
