package store

import (
	"context"
	"errors"
	"fmt"

	"backend-ridermate/internal/db"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
)

// Postgres stores each (user, kind) pair as one JSONB row in kv_store.
type Postgres struct {
	db db.Querier
}

func NewPostgres(q db.Querier) *Postgres {
	return &Postgres{db: q}
}

func (p *Postgres) Get(ctx context.Context, key Key, dest any) error {
	var raw []byte
	err := p.db.QueryRow(ctx, `
		SELECT value FROM kv_store WHERE user_id=$1 AND kind=$2
	`, key.UserID, string(key.Kind)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("select %s: %w", key, err)
	}
	return json.Unmarshal(raw, dest)
}

func (p *Postgres) Set(ctx context.Context, key Key, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(ctx, `
		INSERT INTO kv_store (user_id, kind, value, updated_at)
		VALUES ($1,$2,$3,now())
		ON CONFLICT (user_id, kind) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key.UserID, string(key.Kind), raw)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}
