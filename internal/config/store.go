// Package config persists the panel configuration and service settings in
// SQLite. Panel config writes are wholesale: every user-driven change
// rewrites the single row, there are no partial updates.
package config

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"

	"github.com/jasmine-z2a/studio/internal/model"
)

//go:embed schema.sql
var schema string

const ingestTokenKey = "ingest_token_hash"

type Store struct {
	conn *sql.DB
}

func New(dbPath string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, err
	}
	return &Store{conn: conn}, nil
}

// LoadPanelConfig reads the persisted panel config. found=false with a
// zero config when nothing has been saved yet.
func (s *Store) LoadPanelConfig(ctx context.Context) (cfg model.PanelConfig, found bool, err error) {
	var termsJSON string
	row := s.conn.QueryRowContext(ctx,
		"SELECT search_terms, min_level, topic FROM panel_config WHERE id = 1")
	err = row.Scan(&termsJSON, &cfg.MinLogLevel, &cfg.TopicToRender)
	if err == sql.ErrNoRows {
		return model.PanelConfig{}, false, nil
	}
	if err != nil {
		return model.PanelConfig{}, false, err
	}
	if err := json.Unmarshal([]byte(termsJSON), &cfg.SearchTerms); err != nil {
		return model.PanelConfig{}, false, fmt.Errorf("corrupt search_terms: %w", err)
	}
	return cfg, true, nil
}

// SavePanelConfig writes the config wholesale.
func (s *Store) SavePanelConfig(ctx context.Context, cfg model.PanelConfig) error {
	terms := cfg.SearchTerms
	if terms == nil {
		terms = []string{}
	}
	termsJSON, err := json.Marshal(terms)
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO panel_config (id, search_terms, min_level, topic, updated_at)
		VALUES (1, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			search_terms = excluded.search_terms,
			min_level = excluded.min_level,
			topic = excluded.topic,
			updated_at = CURRENT_TIMESTAMP`,
		string(termsJSON), cfg.MinLogLevel, cfg.TopicToRender,
	)
	return err
}

// SetIngestToken stores the bcrypt hash of the ingest token. An empty
// token clears it, disabling ingest auth.
func (s *Store) SetIngestToken(ctx context.Context, token string) error {
	if token == "" {
		_, err := s.conn.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", ingestTokenKey)
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		ingestTokenKey, string(hash),
	)
	return err
}

// IngestTokenHash returns the stored bcrypt hash, or "" when auth is
// disabled.
func (s *Store) IngestTokenHash(ctx context.Context) (string, error) {
	var hash string
	row := s.conn.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", ingestTokenKey)
	err := row.Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return hash, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}
