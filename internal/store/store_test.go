package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sjc5/tessera/internal/common"
	"github.com/sjc5/tessera/internal/store/migrations"
	"github.com/sjc5/tessera/internal/util"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "tessera.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func tableExists(t *testing.T, sqlDB *sql.DB, name string) bool {
	t.Helper()
	var found string
	err := sqlDB.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	return true
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), "  "); err == nil {
		t.Fatal("Open() with blank path: expected error")
	}
}

func TestOpenCreatesTables(t *testing.T) {
	s := openTestStore(t)
	for _, table := range []string{tableFontSources, tableFontPayloads, tableImagePayloads, migrationTable} {
		if !tableExists(t, s.sqlDB, table) {
			t.Errorf("table %s missing after Open()", table)
		}
	}
}

func TestAssetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tests := []struct {
		kind    common.AssetKind
		url     string
		payload string
	}{
		{common.KindFont, "https://fonts.example/a.woff2", "data:font/woff2;base64,AAAA"},
		{common.KindImage, "https://img.example/bg.png", "data:image/png;base64,BBBB"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if _, ok, err := s.GetAsset(ctx, tt.kind, tt.url); err != nil || ok {
				t.Fatalf("GetAsset() before put = (%v, %v), want miss", ok, err)
			}
			if err := s.PutAsset(ctx, tt.kind, tt.url, tt.payload); err != nil {
				t.Fatalf("PutAsset() error = %v", err)
			}
			got, ok, err := s.GetAsset(ctx, tt.kind, tt.url)
			if err != nil || !ok {
				t.Fatalf("GetAsset() = (%v, %v), want hit", ok, err)
			}
			if got != tt.payload {
				t.Errorf("GetAsset() = %q, want %q", got, tt.payload)
			}
		})
	}

	// Kinds do not share a table.
	if _, ok, _ := s.GetAsset(ctx, common.KindImage, tests[0].url); ok {
		t.Error("font payload visible through image table")
	}

	if err := s.PutAsset(ctx, common.KindFont, tests[0].url, "data:font/woff2;base64,CCCC"); err != nil {
		t.Fatalf("PutAsset() overwrite error = %v", err)
	}
	got, _, _ := s.GetAsset(ctx, common.KindFont, tests[0].url)
	if got != "data:font/woff2;base64,CCCC" {
		t.Errorf("GetAsset() after overwrite = %q", got)
	}
}

func TestAssetValidation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.PutAsset(ctx, common.AssetKind("video"), "u", "p"); err == nil {
		t.Error("PutAsset() with unknown kind: expected error")
	}
	if err := s.PutAsset(ctx, common.KindFont, "", "p"); err == nil {
		t.Error("PutAsset() with empty url: expected error")
	}
	if err := s.PutAsset(ctx, common.KindFont, "u", ""); err == nil {
		t.Error("PutAsset() with empty payload: expected error")
	}
}

func TestFontSourceRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	src := FontSource{
		SourceID:  "https://fonts.example/theme.css",
		Mapping:   []byte{1, 2, 3},
		SourceCSS: "@font-face{src:url(a.woff2)}",
		BaseURL:   "https://fonts.example/theme.css",
	}
	if err := s.PutFontSource(ctx, src); err != nil {
		t.Fatalf("PutFontSource() error = %v", err)
	}
	got, ok, err := s.GetFontSource(ctx, src.SourceID)
	if err != nil || !ok {
		t.Fatalf("GetFontSource() = (%v, %v), want hit", ok, err)
	}
	if got.SourceCSS != src.SourceCSS || got.BaseURL != src.BaseURL || string(got.Mapping) != string(src.Mapping) {
		t.Errorf("GetFontSource() = %+v, want %+v", got, src)
	}

	if _, ok, err := s.GetFontSource(ctx, "inline_000000000000"); err != nil || ok {
		t.Errorf("GetFontSource() unknown id = (%v, %v), want miss", ok, err)
	}
	if err := s.PutFontSource(ctx, FontSource{SourceID: "x"}); err == nil {
		t.Error("PutFontSource() without mapping: expected error")
	}
}

func TestClear(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_ = s.PutAsset(ctx, common.KindFont, "f", "data:font/woff2;base64,AA")
	_ = s.PutAsset(ctx, common.KindImage, "i", "data:image/png;base64,AA")
	_ = s.PutFontSource(ctx, FontSource{SourceID: "s", Mapping: []byte{1}})

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, ok, _ := s.GetAsset(ctx, common.KindFont, "f"); ok {
		t.Error("font payload survived Clear()")
	}
	if _, ok, _ := s.GetAsset(ctx, common.KindImage, "i"); ok {
		t.Error("image payload survived Clear()")
	}
	if _, ok, _ := s.GetFontSource(ctx, "s"); ok {
		t.Error("font source survived Clear()")
	}
}

// An older database that only has the first table gains the others on open,
// and its rows are untouched.
func TestOpenUpgradesOlderSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	ctx := context.Background()

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	first, err := migrations.FS.ReadFile("0001_font_sources.sql")
	if err != nil {
		t.Fatalf("read first migration: %v", err)
	}
	if _, err := sqlDB.Exec(extractUpMigration(string(first))); err != nil {
		t.Fatalf("exec first migration: %v", err)
	}
	if _, err := sqlDB.Exec(
		`INSERT INTO font_sources (source_id, mapping, source_css, base_url, created_at) VALUES (?, ?, ?, ?, ?)`,
		"kept", []byte{9}, "css", "", time.Now().UnixMilli(),
	); err != nil {
		t.Fatalf("insert row: %v", err)
	}
	_ = sqlDB.Close()

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	for _, table := range []string{tableFontPayloads, tableImagePayloads} {
		if !tableExists(t, s.sqlDB, table) {
			t.Errorf("table %s not added by upgrade", table)
		}
	}
	got, ok, err := s.GetFontSource(ctx, "kept")
	if err != nil || !ok {
		t.Fatalf("GetFontSource() after upgrade = (%v, %v), want hit", ok, err)
	}
	if got.SourceCSS != "css" {
		t.Errorf("SourceCSS = %q, want %q", got.SourceCSS, "css")
	}
}

func TestHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("ready", func(t *testing.T) {
		h := OpenAsync(filepath.Join(t.TempDir(), "tessera.db"), util.NopLogger{})
		defer h.Close()
		if err := h.PutAsset(ctx, common.KindImage, "u", "data:image/png;base64,AA"); err != nil {
			t.Fatalf("PutAsset() error = %v", err)
		}
		if _, ok, err := h.GetAsset(ctx, common.KindImage, "u"); err != nil || !ok {
			t.Errorf("GetAsset() = (%v, %v), want hit", ok, err)
		}
	})

	t.Run("unavailable", func(t *testing.T) {
		h := OpenAsync("", util.NopLogger{})
		defer h.Close()
		_, _, err := h.GetAsset(ctx, common.KindFont, "u")
		if !errors.Is(err, common.ErrStoreUnavailable) {
			t.Errorf("GetAsset() error = %v, want ErrStoreUnavailable", err)
		}
	})
}
