package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists voice preferences in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmt := `CREATE TABLE IF NOT EXISTS voice_prefs (
		user_id TEXT PRIMARY KEY,
		voice_mode_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		preferred_voice TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("init schema failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (VoicePrefs, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT user_id, voice_mode_enabled, preferred_voice, updated_at
		 FROM voice_prefs WHERE user_id=$1`,
		userID,
	)

	var p VoicePrefs
	if err := row.Scan(&p.UserID, &p.VoiceModeEnabled, &p.PreferredVoice, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DefaultPrefs(userID), nil
		}
		return VoicePrefs{}, fmt.Errorf("query voice prefs: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Save(ctx context.Context, prefs VoicePrefs) error {
	if prefs.UpdatedAt.IsZero() {
		prefs.UpdatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO voice_prefs (user_id, voice_mode_enabled, preferred_voice, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE SET
			voice_mode_enabled = EXCLUDED.voice_mode_enabled,
			preferred_voice = EXCLUDED.preferred_voice,
			updated_at = EXCLUDED.updated_at`,
		prefs.UserID,
		prefs.VoiceModeEnabled,
		prefs.PreferredVoice,
		prefs.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save voice prefs: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
