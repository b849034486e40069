package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresCacheRepo はPostgreSQLのcache_entriesテーブルを使用したキャッシュリポジトリ。
type PostgresCacheRepo struct {
	db *sql.DB
}

// NewPostgresCacheRepo はPostgresCacheRepoを生成する。
func NewPostgresCacheRepo(db *sql.DB) *PostgresCacheRepo {
	return &PostgresCacheRepo{db: db}
}

// Get は指定キーの値を取得する。
func (r *PostgresCacheRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM cache_entries WHERE key = $1`,
		key,
	).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return value, true, nil
}

// Set は指定キーの値をUPSERTする。
func (r *PostgresCacheRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, value, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CacheRepository = (*PostgresCacheRepo)(nil)
