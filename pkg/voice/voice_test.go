package voice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644))
	}
}

func TestCatalog_Voices(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "zeta.onnx", "alpha.onnx", "alpha.onnx.json", "notes.txt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.onnx"), 0o755))

	voices, err := NewCatalog(dir, "onnx").Voices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha.onnx", "zeta.onnx"}, voices)
}

func TestCatalog_MissingDir(t *testing.T) {
	voices, err := NewCatalog(filepath.Join(t.TempDir(), "nope"), ".onnx").Voices(context.Background())
	require.NoError(t, err)
	assert.Empty(t, voices)
}

func TestValidate(t *testing.T) {
	t.Run("NoVoices", func(t *testing.T) {
		_, err := Validate([]string{"Host"}, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNoVoices))
		assert.True(t, IsConfigError(err))
	})

	t.Run("NoSpeakersWarns", func(t *testing.T) {
		r, err := Validate(nil, []string{"a.onnx"})
		require.NoError(t, err)
		assert.Equal(t, WarnNoSpeakers, r.Warning)
	})

	t.Run("Sorted", func(t *testing.T) {
		r, err := Validate([]string{"Host", "Expert"}, []string{"b.onnx", "a.onnx"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Expert", "Host"}, r.Speakers)
		assert.Equal(t, []string{"a.onnx", "b.onnx"}, r.Voices)
		assert.Empty(t, r.Warning)
	})
}

func TestResolve_CatalogDirInError(t *testing.T) {
	dir := t.TempDir()
	_, err := Resolve(context.Background(), NewCatalog(dir, ".onnx"), []string{"Host"})
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, dir, ce.Dir)
	assert.ErrorIs(t, err, ErrNoVoices)
}

func TestMapping(t *testing.T) {
	m := Mapping{"Host": "a.onnx", "Expert": "", "Guest": "gone.onnx"}

	v, ok := m.Voice("Host")
	assert.True(t, ok)
	assert.Equal(t, "a.onnx", v)

	_, ok = m.Voice("Expert")
	assert.False(t, ok, "empty assignment is missing")

	assert.Equal(t, []string{"Guest"}, m.Check([]string{"a.onnx"}))
	assert.Equal(t, []string{"Expert", "Narrator"}, m.Unassigned([]string{"Host", "Narrator", "Expert"}))
}

func TestStatic(t *testing.T) {
	voices, err := Static{"en-US-B", "en-US-A"}.Voices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"en-US-A", "en-US-B"}, voices)
}
