package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/exsplit/internal/domain/auth"
)

// CredentialRepo stores credentials in the credentials table, one row per (profile, key).
type CredentialRepo struct {
	db      *DB
	profile string
}

func NewCredentialRepo(db *DB, profile string) *CredentialRepo {
	if profile == "" {
		profile = "default"
	}
	return &CredentialRepo{db: db, profile: profile}
}

const (
	qCredGet = `
SELECT value FROM credentials WHERE profile = $1 AND key = $2;
`
	qCredUpsert = `
INSERT INTO credentials(profile, key, value, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (profile, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW();
`
	qCredDelete = `
DELETE FROM credentials WHERE profile = $1 AND key = $2;
`
)

func (r *CredentialRepo) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var v string
	if err := r.db.Pool.QueryRow(ctx, qCredGet, r.profile, key).Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", auth.ErrNotFound
		}
		return "", fmt.Errorf("get credential: %w", err)
	}
	return v, nil
}

func (r *CredentialRepo) Set(ctx context.Context, key, value string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Pool.Exec(ctx, qCredUpsert, r.profile, key, value); err != nil {
		return fmt.Errorf("set credential: %w", err)
	}
	return nil
}

func (r *CredentialRepo) Remove(ctx context.Context, key string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Pool.Exec(ctx, qCredDelete, r.profile, key); err != nil {
		return fmt.Errorf("remove credential: %w", err)
	}
	return nil
}
