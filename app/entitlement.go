// Package app resolves subscription entitlements for authenticated users.
package app

import (
	"context"
	"database/sql"
	"errors"

	"github.com/SarAA2003/QuickAi/app/models"
)

// EntitlementStore reads and mutates the per-user plan flag and free-usage
// counter. The Postgres implementation owns the users table; tests swap in
// fakes.
type EntitlementStore interface {
	// Resolve returns the current entitlement. Resolving a premium user
	// rewrites the stored free-usage counter to 0 as a side effect.
	Resolve(ctx context.Context, userID string) (models.Entitlement, error)
	// IncrementFreeUsage adds exactly 1 to the stored counter.
	IncrementFreeUsage(ctx context.Context, userID string) error
}

var entitlements EntitlementStore

type pgEntitlementStore struct{}

func (pgEntitlementStore) Resolve(ctx context.Context, userID string) (models.Entitlement, error) {
	if db == nil {
		return models.Entitlement{}, errors.New("db not initialized")
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return models.Entitlement{}, err
	}
	defer tx.Rollback()

	ent, err := getEntitlementForUpdate(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if err := insertDefaultUser(ctx, tx, userID); err != nil {
				return models.Entitlement{}, err
			}
			ent, err = getEntitlementForUpdate(ctx, tx, userID)
		}
		if err != nil {
			return models.Entitlement{}, err
		}
	}

	if ent.Plan == models.PlanPremium && ent.FreeUsage != 0 {
		if _, err := tx.ExecContext(ctx, `
			UPDATE users
			SET free_usage = 0
			WHERE user_id = $1;
		`, userID); err != nil {
			return models.Entitlement{}, err
		}
		ent.FreeUsage = 0
	}

	if err := tx.Commit(); err != nil {
		return models.Entitlement{}, err
	}

	return ent, nil
}

// IncrementFreeUsage is a single atomic statement so concurrent metered
// requests never lose an increment. Two requests can still both pass the
// gate before either increment lands; that window is accepted.
func (pgEntitlementStore) IncrementFreeUsage(ctx context.Context, userID string) error {
	if db == nil {
		return errors.New("db not initialized")
	}
	_, err := db.ExecContext(ctx, `
		UPDATE users
		SET free_usage = free_usage + 1
		WHERE user_id = $1;
	`, userID)
	return err
}

func getEntitlementForUpdate(ctx context.Context, tx *sql.Tx, userID string) (models.Entitlement, error) {
	var ent models.Entitlement
	err := tx.QueryRowContext(ctx, `
		SELECT plan, free_usage
		FROM users
		WHERE user_id = $1
		FOR UPDATE;
	`, userID).Scan(&ent.Plan, &ent.FreeUsage)
	if err != nil {
		return models.Entitlement{}, err
	}
	return ent, nil
}
