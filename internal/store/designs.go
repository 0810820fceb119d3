package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"design-assistant/internal/models"
)

type DesignStore struct {
	db *sql.DB
}

func NewDesignStore(db *sql.DB) *DesignStore {
	return &DesignStore{db: db}
}

// Save inserts one design row and returns it with the generated id.
func (s *DesignStore) Save(ctx context.Context, d *models.Design) (*models.Design, error) {
	query := `INSERT INTO designs (prompt, raw_output, mermaid_code, created_at, user_id)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	err := s.db.QueryRowContext(ctx, query,
		d.Prompt, d.RawOutput, d.MermaidCode, d.CreatedAt, d.UserID,
	).Scan(&d.ID)
	if err != nil {
		return nil, fmt.Errorf("save design: %w", err)
	}
	return d, nil
}

func (s *DesignStore) FindByID(ctx context.Context, id int64) (*models.Design, error) {
	var d models.Design
	query := `SELECT id, prompt, raw_output, mermaid_code, created_at, user_id FROM designs WHERE id = $1`
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.Prompt, &d.RawOutput, &d.MermaidCode, &d.CreatedAt, &d.UserID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find design by id: %w", err)
	}
	return &d, nil
}

func (s *DesignStore) FindByUser(ctx context.Context, userID int64) ([]*models.Design, error) {
	query := `SELECT id, prompt, raw_output, mermaid_code, created_at, user_id
		FROM designs WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("find designs by user: %w", err)
	}
	defer rows.Close()

	var designs []*models.Design
	for rows.Next() {
		var d models.Design
		if err := rows.Scan(&d.ID, &d.Prompt, &d.RawOutput, &d.MermaidCode, &d.CreatedAt, &d.UserID); err != nil {
			return nil, fmt.Errorf("scan design row: %w", err)
		}
		designs = append(designs, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate design rows: %w", err)
	}
	return designs, nil
}
