package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/SarAA2003/QuickAi/app/config"
	"github.com/SarAA2003/QuickAi/app/models"
	"github.com/SarAA2003/QuickAi/auth"

	_ "github.com/lib/pq"
)

var db *sql.DB

// MustInitDB initializes the global db and the Postgres-backed stores, and
// logs fatally on error.
func MustInitDB() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		cfg.DB.Username,
		cfg.DB.Password,
		cfg.DB.URL,
		cfg.DB.Port,
		cfg.DB.Name,
	)

	d, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("sql.Open: %v", err)
	}

	if err := d.Ping(); err != nil {
		log.Fatalf("db.Ping: %v", err)
	}

	log.Println("Connected to Postgres")
	db = d

	if err := ensureSchema(context.Background()); err != nil {
		log.Fatalf("schema init: %v", err)
	}

	entitlements = pgEntitlementStore{}
	creations = pgCreationStore{}
}

func ensureSchema(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			user_id            TEXT PRIMARY KEY,
			email              TEXT,
			name               TEXT,
			plan               TEXT NOT NULL DEFAULT 'free',
			free_usage         INT NOT NULL DEFAULT 0,
			stripe_customer_id TEXT,
			last_login         TIMESTAMPTZ,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS creations (
			id         BIGSERIAL PRIMARY KEY,
			user_id    TEXT NOT NULL,
			prompt     TEXT NOT NULL,
			content    TEXT NOT NULL,
			type       TEXT NOT NULL,
			publish    BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE INDEX IF NOT EXISTS idx_creations_user
			ON creations (user_id, created_at DESC);
	`)
	return err
}

// UpsertUserFromClaims creates a user row if it does not already exist.
func UpsertUserFromClaims(ctx context.Context, claims *auth.Claims) error {
	if db == nil {
		return nil
	}
	if claims == nil || claims.Subject == "" {
		return nil
	}

	email := readStringClaim(claims.Raw, "email")
	name := readStringClaim(claims.Raw, "name")

	const q = `
		INSERT INTO users (user_id, email, name, last_login, plan, free_usage)
		VALUES ($1, $2, $3, now(), $4, 0)
		ON CONFLICT (user_id) DO NOTHING;
	`

	_, err := db.ExecContext(
		ctx,
		q,
		claims.Subject,
		nullIfEmpty(email),
		nullIfEmpty(name),
		models.PlanFree,
	)
	return err
}

func readStringClaim(raw map[string]any, key string) string {
	if raw == nil {
		return ""
	}
	val, ok := raw[key]
	if !ok {
		return ""
	}
	if s, ok := val.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func insertDefaultUser(ctx context.Context, tx *sql.Tx, userID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO users (user_id, plan, free_usage, last_login)
		VALUES ($1, $2, 0, now())
		ON CONFLICT (user_id) DO NOTHING;
	`, userID, models.PlanFree)
	return err
}
