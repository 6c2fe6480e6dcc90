// Package store is the durable cache tier: a versioned SQLite database with
// one table per asset family. It only holds state that can be re-fetched.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sjc5/tessera/internal/common"
	"github.com/sjc5/tessera/internal/store/migrations"
	_ "modernc.org/sqlite"
)

const (
	tableFontSources   = "font_sources"
	tableFontPayloads  = "font_payloads"
	tableImagePayloads = "image_payloads"
)

// FontSource is a persisted font mapping. Mapping is opaque to the store.
type FontSource struct {
	SourceID  string
	Mapping   []byte
	SourceCSS string
	BaseURL   string
}

type Store struct {
	sqlDB *sql.DB
}

// Open opens and migrates the store at path, creating parent directories.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func payloadTable(kind common.AssetKind) (string, error) {
	switch kind {
	case common.KindFont:
		return tableFontPayloads, nil
	case common.KindImage:
		return tableImagePayloads, nil
	}
	return "", fmt.Errorf("unknown asset kind %q", kind)
}

// GetAsset loads an inlined payload by source URL.
func (s *Store) GetAsset(ctx context.Context, kind common.AssetKind, url string) (string, bool, error) {
	table, err := payloadTable(kind)
	if err != nil {
		return "", false, err
	}
	if url == "" {
		return "", false, fmt.Errorf("asset url is required")
	}

	var payload string
	row := s.sqlDB.QueryRowContext(ctx, `SELECT payload FROM `+table+` WHERE url = ?`, url)
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get %s payload: %w", kind, err)
	}
	return payload, true, nil
}

// PutAsset upserts an inlined payload by source URL.
func (s *Store) PutAsset(ctx context.Context, kind common.AssetKind, url, payload string) error {
	table, err := payloadTable(kind)
	if err != nil {
		return err
	}
	if url == "" {
		return fmt.Errorf("asset url is required")
	}
	if payload == "" {
		return fmt.Errorf("asset payload is required")
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO `+table+` (url, payload, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET payload = excluded.payload`,
		url,
		payload,
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put %s payload: %w", kind, err)
	}
	return nil
}

func (s *Store) GetFontSource(ctx context.Context, sourceID string) (FontSource, bool, error) {
	if sourceID == "" {
		return FontSource{}, false, fmt.Errorf("source id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT source_id, mapping, source_css, base_url FROM `+tableFontSources+` WHERE source_id = ?`,
		sourceID,
	)

	var src FontSource
	if err := row.Scan(&src.SourceID, &src.Mapping, &src.SourceCSS, &src.BaseURL); err != nil {
		if err == sql.ErrNoRows {
			return FontSource{}, false, nil
		}
		return FontSource{}, false, fmt.Errorf("get font source: %w", err)
	}
	return src, true, nil
}

func (s *Store) PutFontSource(ctx context.Context, src FontSource) error {
	if src.SourceID == "" {
		return fmt.Errorf("source id is required")
	}
	if len(src.Mapping) == 0 {
		return fmt.Errorf("font mapping is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO `+tableFontSources+` (source_id, mapping, source_css, base_url, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(source_id) DO UPDATE SET
		    mapping = excluded.mapping,
		    source_css = excluded.source_css,
		    base_url = excluded.base_url`,
		src.SourceID,
		src.Mapping,
		src.SourceCSS,
		src.BaseURL,
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put font source: %w", err)
	}
	return nil
}

// Clear deletes every row of every table, keeping the schema.
func (s *Store) Clear(ctx context.Context) error {
	for _, table := range []string{tableFontSources, tableFontPayloads, tableImagePayloads} {
		if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}
