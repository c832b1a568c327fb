package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 20, cfg.Gallery.PageSize)
	assert.Equal(t, "shared", cfg.Gallery.OffsetPolicy)
}

func TestValidate_RejectsNonPositivePageSize(t *testing.T) {
	for _, size := range []int{0, -5} {
		cfg := DefaultConfig()
		cfg.Gallery.PageSize = size

		err := cfg.Validate()
		require.Error(t, err)

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "gallery.page_size", vErr.Field)
	}
}

func TestValidate_PostgresNeedsDSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.Type = "postgres"
	assert.Error(t, cfg.Validate())

	cfg.Database.DSN = "host=localhost user=gallery dbname=gallery"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gallery.yaml")
	data := []byte(`
gallery:
  page_size: 50
  offset_policy: store_relative
database:
  type: sqlite
  path: /tmp/index.db
library:
  roots: [/photos, /videos]
server:
  read_timeout: 5s
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	t.Setenv("GALLERY_PAGE_SIZE", "30")
	t.Setenv("GALLERY_IGNORE_PATTERNS", "*.tmp, .trash")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Gallery.PageSize, "env overrides file")
	assert.Equal(t, "store_relative", cfg.Gallery.OffsetPolicy)
	assert.Equal(t, "/tmp/index.db", cfg.Database.Path)
	assert.Equal(t, []string{"/photos", "/videos"}, cfg.Library.Roots)
	assert.Equal(t, []string{"*.tmp", ".trash"}, cfg.Library.IgnorePatterns)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "full", cfg.Gallery.Access, "unset values keep defaults")
}

func TestLoad_InvalidEnvPageSize(t *testing.T) {
	t.Setenv("GALLERY_PAGE_SIZE", "0")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gallery.page_size")
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gallery.toml")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestManager_GetReturnsCopy(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Load(""))

	cfg := m.Get()
	cfg.Gallery.PageSize = 999

	assert.Equal(t, 20, m.Get().Gallery.PageSize)
	assert.Equal(t, "127.0.0.1:8080", m.Get().Addr())
}
