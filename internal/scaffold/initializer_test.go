package scaffold

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dyluth/pitch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	t.Run("writes a loadable config", func(t *testing.T) {
		dir := t.TempDir()

		path, err := Initialize(dir, false)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "pitch.yml"), path)

		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, config.Default(), cfg)
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		dir := t.TempDir()
		existing := filepath.Join(dir, "pitch.yml")
		require.NoError(t, os.WriteFile(existing, []byte("version: \"1.0\"\n"), 0644))

		_, err := Initialize(dir, false)
		var exists *ErrExists
		require.True(t, errors.As(err, &exists))
		assert.Contains(t, err.Error(), "pitch init --force")

		content, err := os.ReadFile(existing)
		require.NoError(t, err)
		assert.Equal(t, "version: \"1.0\"\n", string(content))
	})

	t.Run("force overwrites", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "pitch.yml"), []byte("broken: ["), 0644))

		path, err := Initialize(dir, true)
		require.NoError(t, err)

		_, err = config.Load(path)
		assert.NoError(t, err)
	})

	t.Run("creates missing directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "deploy")
		_, err := Initialize(dir, false)
		require.NoError(t, err)
		assert.NoError(t, CheckExisting(t.TempDir()))
		assert.Error(t, CheckExisting(dir))
	})
}
