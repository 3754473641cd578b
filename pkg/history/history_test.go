package history

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podcastgo/pkg/db"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	d, err := db.Init(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	return map[string]Store{
		"file":   NewFileStore(filepath.Join(t.TempDir(), "data", "history.json")),
		"sqlite": NewSQLiteStore(d),
	}
}

func TestStore_NewestFirst(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			entries, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, entries)
			assert.NotNil(t, entries)

			require.NoError(t, s.Add(ctx, NewEntry("podcast_1.mp3", "Bees", "5", "Host: a", now)))
			require.NoError(t, s.Add(ctx, NewEntry("podcast_2.mp3", "Ants", "3", "Host: b", now.Add(time.Hour))))

			entries, err = s.Load(ctx)
			require.NoError(t, err)
			require.Len(t, entries, 2)
			assert.Equal(t, "podcast_2.mp3", entries[0].Filename)
			assert.Equal(t, "podcast_1.mp3", entries[1].Filename)
			assert.Equal(t, "2026-03-01T11:00:00Z", entries[0].CreationDate)
		})
	}
}

func TestFileStore_Document(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.json")
	s := NewFileStore(path)

	require.NoError(t, s.Add(ctx, NewEntry("podcast_9.mp3", "Tides", "2", "Host: x", time.Now())))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	for _, key := range []string{`"filename"`, `"topic"`, `"duration"`, `"creation_date"`, `"script"`} {
		assert.Contains(t, content, key)
	}
	assert.True(t, strings.HasPrefix(content, "[\n    {"), "document is indented with four spaces")
}

func TestFileStore_Unparsable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	s := NewFileStore(path)

	entries, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// A write replaces the broken document.
	require.NoError(t, s.Add(ctx, NewEntry("podcast_1.mp3", "T", "1", "", time.Now())))
	entries, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSummarize(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		st := Summarize(nil)
		assert.Equal(t, 0, st.TotalPodcasts)
		assert.Equal(t, "0m", st.FormattedDuration)
		assert.Equal(t, "Never", st.LastCreationDate)
		assert.Empty(t, st.Recent)
	})

	t.Run("Mixed", func(t *testing.T) {
		entries := []Entry{
			{Filename: "d", Duration: "45", CreationDate: "2026-05-04T09:30:00.123456"},
			{Filename: "c", Duration: "N/A"},
			{Filename: "b", Duration: "20.5"},
			{Filename: "a", Duration: "-3"},
		}
		st := Summarize(entries)
		assert.Equal(t, 4, st.TotalPodcasts)
		assert.InDelta(t, 65.5, st.TotalMinutes, 1e-9)
		assert.Equal(t, "1h 6m", st.FormattedDuration)
		assert.Equal(t, "May 04, 2026", st.LastCreationDate)
		require.Len(t, st.Recent, 3)
		assert.Equal(t, "d", st.Recent[0].Filename)
	})
}

func TestFormatMinutes(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0m"},
		{12, "12m"},
		{60, "1h 0m"},
		{125, "2h 5m"},
		{2.5, "2m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatMinutes(tt.in), "FormatMinutes(%v)", tt.in)
	}
}
