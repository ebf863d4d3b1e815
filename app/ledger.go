// Package app persists the append-only record of successful invocations.
package app

import (
	"context"
	"database/sql"
	"errors"

	"github.com/SarAA2003/QuickAi/app/models"
)

// CreationStore appends and lists creation records. Appends are single
// atomic inserts; records are never updated or deleted.
type CreationStore interface {
	Append(ctx context.Context, rec models.Creation) error
	ListByUser(ctx context.Context, userID string) ([]models.Creation, error)
	ListPublished(ctx context.Context) ([]models.Creation, error)
}

var creations CreationStore

type pgCreationStore struct{}

func (pgCreationStore) Append(ctx context.Context, rec models.Creation) error {
	if db == nil {
		return errors.New("db not initialized")
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO creations (user_id, prompt, content, type, publish)
		VALUES ($1, $2, $3, $4, $5);
	`, rec.UserID, rec.Prompt, rec.Content, rec.Type, rec.Publish)
	return err
}

func (pgCreationStore) ListByUser(ctx context.Context, userID string) ([]models.Creation, error) {
	if db == nil {
		return nil, errors.New("db not initialized")
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, prompt, content, type, publish, created_at
		FROM creations
		WHERE user_id = $1
		ORDER BY created_at DESC;
	`, userID)
	if err != nil {
		return nil, err
	}
	return scanCreations(rows)
}

func (pgCreationStore) ListPublished(ctx context.Context) ([]models.Creation, error) {
	if db == nil {
		return nil, errors.New("db not initialized")
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, prompt, content, type, publish, created_at
		FROM creations
		WHERE publish = TRUE AND type = $1
		ORDER BY created_at DESC;
	`, models.CreationImage)
	if err != nil {
		return nil, err
	}
	return scanCreations(rows)
}

func scanCreations(rows *sql.Rows) ([]models.Creation, error) {
	defer rows.Close()

	var out []models.Creation
	for rows.Next() {
		var rec models.Creation
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.Prompt,
			&rec.Content,
			&rec.Type,
			&rec.Publish,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
