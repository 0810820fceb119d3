// Package store implements persistence for users and designs over PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("NOT_FOUND")

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

type UserRecord struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	var u UserRecord
	query := `SELECT id, email, name, password_hash FROM users WHERE email = $1`
	err := s.db.QueryRowContext(ctx, query, email).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &u, nil
}

func (s *UserStore) FindByID(ctx context.Context, id int64) (*UserRecord, error) {
	var u UserRecord
	query := `SELECT id, email, name, password_hash FROM users WHERE id = $1`
	err := s.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &u, nil
}

func (s *UserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`
	if err := s.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists by email: %w", err)
	}
	return exists, nil
}

func (s *UserStore) Save(ctx context.Context, email, name, passwordHash string) (*UserRecord, error) {
	var id int64
	query := `INSERT INTO users (email, name, password_hash) VALUES ($1, $2, $3) RETURNING id`
	if err := s.db.QueryRowContext(ctx, query, email, name, passwordHash).Scan(&id); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	return &UserRecord{ID: id, Email: email, Name: name, PasswordHash: passwordHash}, nil
}
