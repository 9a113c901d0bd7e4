package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Wazzaps/ampm/internal/bytesize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("AMPM_SERVER", "")
	t.Setenv("AMPM_CHUNK_SIZE", "")
	t.Setenv("AMPM_LOCAL_ROOT", "")

	cfg, _, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultChunkSize, cfg.ChunkSize)
	assert.Equal(t, DefaultLocalRoot, cfg.LocalRoot)
}

func TestLoadFromEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("AMPM_SERVER", "nfs://builder/mnt/share#repo")
	t.Setenv("AMPM_CHUNK_SIZE", "64KiB")
	t.Setenv("AMPM_LOCAL_ROOT", "/tmp/ampm-cache")

	cfg, _, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "nfs://builder/mnt/share#repo", cfg.Server)
	assert.Equal(t, 64*bytesize.KiB, cfg.ChunkSize)
	assert.Equal(t, "/tmp/ampm-cache", cfg.LocalRoot)
}

func TestLoadClampsChunkSize(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("AMPM_CHUNK_SIZE", "8TiB")

	cfg, _, err := Load()
	require.NoError(t, err)
	assert.Equal(t, MaxChunkSize, cfg.ChunkSize)
}

func TestLoadFromRcFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("AMPM_SERVER", "")
	t.Setenv("AMPM_CHUNK_SIZE", "")

	rc := "server: nfs://rcserver/mnt#repo\nchunk_size: 128KiB\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, ".ampmrc"), []byte(rc), 0o644))

	cfg, _, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "nfs://rcserver/mnt#repo", cfg.Server)
	assert.Equal(t, 128*bytesize.KiB, cfg.ChunkSize)
}
