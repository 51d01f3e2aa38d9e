package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsOverTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "gallery.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
managed_root = "/srv/media"
gallery_page_size = 40
`), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "/srv/media", cfg.ManagedRoot)
	assert.Equal(t, 40, cfg.GalleryPageSize)
	// Untouched fields keep their Default() values.
	assert.Equal(t, 21, cfg.ArchivePageSize)
	assert.True(t, cfg.IgnoreDotfiles)
	assert.Equal(t, 2, cfg.ThumbnailConcurrencyLimit)
}

func TestLoadEnvOverridesTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "gallery.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
managed_root = "/srv/media"
`), 0644))

	os.Setenv("GALLERY__MANAGED_ROOT", "/env/media")
	defer os.Unsetenv("GALLERY__MANAGED_ROOT")

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "/env/media", cfg.ManagedRoot)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	// managed_root has no default and Validate requires it, so supply it
	// from the environment.
	os.Setenv("GALLERY__MANAGED_ROOT", "/env/media")
	defer os.Unsetenv("GALLERY__MANAGED_ROOT")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().ThumbnailBatchSize, cfg.ThumbnailBatchSize)
}

func TestValidateRejectsEmptyManagedRoot(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositivePageSizes(t *testing.T) {
	cfg := Default()
	cfg.ManagedRoot = "/srv/media"
	cfg.GalleryPageSize = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsIncompleteThumbnailSizes(t *testing.T) {
	cfg := Default()
	cfg.ManagedRoot = "/srv/media"
	delete(cfg.ThumbnailSizes, "medium")
	assert.Error(t, cfg.Validate())
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := Default()
	cfg.ManagedRoot = "/srv/media"
	assert.NoError(t, cfg.Validate())
}

func TestIgnoredSetsAreLowercased(t *testing.T) {
	cfg := Default()
	cfg.FilesToIgnore = []string{"Thumbs.db", "DESKTOP.INI"}
	cfg.ExtensionsToIgnore = []string{".TMP"}

	files := cfg.IgnoredFileSet()
	_, ok := files["thumbs.db"]
	assert.True(t, ok)

	exts := cfg.IgnoredExtensionSet()
	_, ok = exts[".tmp"]
	assert.True(t, ok)
}
