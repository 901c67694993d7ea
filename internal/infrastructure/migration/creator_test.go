package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add commitments index", "add_commitments_index"},
		{"Add-Deal-Sector", "add_deal_sector"},
		{"ADD_PERSON_PHONE", "add_person_phone"},
		{"add__person__phone", "add_person_phone"},
		{"Backfill 2024", "backfill_2024"},
		{"   spaces   ", "spaces"},
		{"ticket$size!", "ticketsize"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func fixClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func TestCreateMigration(t *testing.T) {
	fixClock(t, time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC))
	dir := filepath.Join(t.TempDir(), "nested", "migrations")

	mf, err := CreateMigration(dir, "add deal sector", "sector column on item")
	require.NoError(t, err)

	assert.Equal(t, "20250304050607", mf.Version)
	assert.Equal(t, filepath.Join(dir, "20250304050607_add_deal_sector.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "20250304050607_add_deal_sector.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Migration: add deal sector")
	assert.Contains(t, string(up), "sector column on item")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(Rollback)")

	stems, err := ListSource(Source{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, []string{"20250304050607_add_deal_sector"}, stems)
}

func TestCreateMigration_Rejects(t *testing.T) {
	fixClock(t, time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC))
	dir := t.TempDir()

	_, err := CreateMigration(dir, "!!!", "")
	assert.Error(t, err)

	_, err = CreateMigration(dir, "twice", "")
	require.NoError(t, err)
	_, err = CreateMigration(dir, "twice", "")
	assert.Error(t, err, "existing files are never overwritten")
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"2_item.up.sql":     {Data: []byte("--")},
		"2_item.down.sql":   {Data: []byte("--")},
		"1_person.up.sql":   {Data: []byte("--")},
		"1_person.down.sql": {Data: []byte("--")},
		"README.md":         {Data: []byte("docs")},
		"embed.go":          {Data: []byte("package migrations")},
		"dir.up.sql/x":      {Data: []byte("--")},
	}

	stems, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"1_person", "2_item"}, stems)
}

func TestListMigrations_MissingDown(t *testing.T) {
	fsys := fstest.MapFS{"1_person.up.sql": {Data: []byte("--")}}

	_, err := ListMigrations(fsys)
	assert.ErrorContains(t, err, "1_person has no down file")
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	stems, err := ListSource(Source{Dir: "/nonexistent/migrations"})
	require.NoError(t, err)
	assert.Empty(t, stems)
}

func TestEmbeddedMigrations(t *testing.T) {
	stems, err := ListSource(Source{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"20250301090000_create_collections",
		"20250301090100_row_change_notify",
		"20250301090200_create_app_user",
	}, stems)
}
