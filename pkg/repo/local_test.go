package repo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Wazzaps/ampm/pkg/artifact"
	"github.com/Wazzaps/ampm/pkg/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMetadata(t *testing.T, local *LocalRepo, m *artifact.Metadata) string {
	t.Helper()
	hash, err := m.Hash()
	require.NoError(t, err)

	path := local.MetadataPath(m.Type, hash, "")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	data, err := m.MarshalTOML()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	return hash
}

func sampleMetadata(typ, version string) *artifact.Metadata {
	return &artifact.Metadata{
		Name:        "payload.bin",
		Description: "test artifact",
		PubDate:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Type:        typ,
		Attributes:  map[string]string{"version": version},
		Env:         map[string]string{"PAYLOAD": "${BASE_DIR}/payload.bin"},
		PathType:    artifact.PathTypeFile,
	}
}

func TestLocalRepoLookupExact(t *testing.T) {
	local := NewLocalRepo(t.TempDir())
	m := sampleMetadata("build", "1.0.0")
	hash := writeMetadata(t, local, m)

	results, err := local.Lookup(query.Query{Type: "build", Hash: hash})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, hash, results[0].Hash)
}

func TestLocalRepoLookupByType(t *testing.T) {
	local := NewLocalRepo(t.TempDir())
	writeMetadata(t, local, sampleMetadata("build", "1.0.0"))
	writeMetadata(t, local, sampleMetadata("build", "2.0.0"))
	writeMetadata(t, local, sampleMetadata("other", "1.0.0"))

	candidates, err := local.LookupByType("build")
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
}

func TestLocalRepoDownloadMissing(t *testing.T) {
	local := NewLocalRepo(t.TempDir())
	m := sampleMetadata("build", "1.0.0")

	_, err := local.Download(m, "somehash")
	assert.Error(t, err)
}

func TestLocalRepoGenerateCaches(t *testing.T) {
	local := NewLocalRepo(t.TempDir())
	m := sampleMetadata("build", "1.0.0")
	hash := writeMetadata(t, local, m)

	require.NoError(t, local.GenerateCaches(m, hash))

	envData, err := os.ReadFile(local.MetadataPath(m.Type, hash, ".env"))
	require.NoError(t, err)
	assert.Contains(t, string(envData), "export PAYLOAD=")
	assert.Contains(t, string(envData), local.ArtifactPath(m, hash, ""))

	targetPath := local.MetadataPath(m.Type, hash, ".target")
	linkDest, err := os.Readlink(targetPath)
	require.NoError(t, err)
	assert.Equal(t, local.ArtifactPath(m, hash, ""), linkDest)
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "hello", shellQuote("hello"))
	assert.Equal(t, "''", shellQuote(""))
	assert.Equal(t, `'it'"'"'s'`, shellQuote("it's"))
}
