package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Wazzaps/ampm/internal/nfsclient"
	"github.com/Wazzaps/ampm/internal/nfsclient/nfstest"
	"github.com/Wazzaps/ampm/pkg/artifact"
	"github.com/Wazzaps/ampm/pkg/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRemote starts a fake NFSv3 server (internal/nfsclient/nfstest)
// and returns a RemoteRepo pointed at it, mirroring the export layout
// ampm's NfsRepo expects: a mount path and a repo sub-path beneath it.
func newTestRemote(t *testing.T) (*nfstest.Server, *RemoteRepo) {
	t.Helper()
	server := nfstest.Start(t, "/export")
	remote := &RemoteRepo{
		Host:      server.Host,
		MountPath: "/export",
		RepoPath:  "myrepo",
		Client:    nfsclient.New(server.Host, "/export", 0),
	}
	return server, remote
}

func TestRemoteRepoUploadLookupDownload(t *testing.T) {
	server, remote := newTestRemote(t)
	local := NewLocalRepo(t.TempDir())
	ctx := context.Background()

	m := sampleMetadata("build", "1.0.0")
	hash, err := m.Hash()
	require.NoError(t, err)

	payloadPath := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(payloadPath, []byte("hello world"), 0o644))

	require.NoError(t, remote.Upload(ctx, m, hash, payloadPath))

	metaData, ok := server.ReadFile(remote.MetadataPath(m.Type, hash, ""))
	require.True(t, ok, "metadata should have been published")
	published, err := artifact.UnmarshalTOML(metaData)
	require.NoError(t, err)
	assert.Equal(t, m.Name, published.Name)

	payloadData, ok := server.ReadFile(remote.ArtifactPath(m, hash, ""))
	require.True(t, ok, "payload should have been published")
	assert.Equal(t, "hello world", string(payloadData))

	candidate, err := remote.LookupExact(ctx, local, query.Query{Type: m.Type, Hash: hash})
	require.NoError(t, err)
	require.NotNil(t, candidate)
	assert.Equal(t, hash, candidate.Hash)
	assert.Equal(t, m.Name, candidate.Metadata.Name)

	downloadedPath, err := remote.Download(ctx, local, candidate.Metadata, hash)
	require.NoError(t, err)
	contents, err := os.ReadFile(downloadedPath)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(contents))

	// A second Download call hits the already-cached local copy and
	// must not re-touch the (now-disconnected) remote.
	downloadedAgain, err := remote.Download(ctx, local, candidate.Metadata, hash)
	require.NoError(t, err)
	assert.Equal(t, downloadedPath, downloadedAgain)
}

func TestRemoteRepoLookupExactNonExactReturnsNil(t *testing.T) {
	_, remote := newTestRemote(t)
	local := NewLocalRepo(t.TempDir())

	candidate, err := remote.LookupExact(context.Background(), local, query.Query{Type: "build"})
	require.NoError(t, err)
	assert.Nil(t, candidate)
}

func TestRemoteRepoLookupExactMissing(t *testing.T) {
	_, remote := newTestRemote(t)
	local := NewLocalRepo(t.TempDir())

	_, err := remote.LookupExact(context.Background(), local, query.Query{
		Type: "build",
		Hash: "00000000000000000000000000000000", // correct length, never published
	})
	assert.Error(t, err)
}

func TestRemoteRepoRemoveArtifact(t *testing.T) {
	server, remote := newTestRemote(t)
	ctx := context.Background()

	m := sampleMetadata("build", "1.0.0")
	hash, err := m.Hash()
	require.NoError(t, err)

	payloadPath := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(payloadPath, []byte("hello world"), 0o644))
	require.NoError(t, remote.Upload(ctx, m, hash, payloadPath))

	_, ok := server.ReadFile(remote.MetadataPath(m.Type, hash, ""))
	require.True(t, ok, "metadata should exist before removal")
	_, ok = server.ReadFile(remote.ArtifactPath(m, hash, ""))
	require.True(t, ok, "payload should exist before removal")

	require.NoError(t, remote.RemoveArtifact(ctx, m, hash))

	_, ok = server.ReadFile(remote.MetadataPath(m.Type, hash, ""))
	assert.False(t, ok, "metadata should be gone after RemoveArtifact")
	_, ok = server.ReadFile(remote.ArtifactPath(m, hash, ""))
	assert.False(t, ok, "payload should be gone after RemoveArtifact")
}

func TestRemoteRepoRemoveArtifactWithPathLocationKeepsPayload(t *testing.T) {
	server, remote := newTestRemote(t)
	ctx := context.Background()

	m := sampleMetadata("build", "1.0.0")
	m.PathLocation = "myrepo/external/payload.bin"
	hash, err := m.Hash()
	require.NoError(t, err)

	// Metadata publication only; PathLocation artifacts live outside
	// the content-addressed tree and are seeded directly.
	data, err := m.MarshalTOML()
	require.NoError(t, err)
	server.WriteFile(remote.MetadataPath(m.Type, hash, ""), data)
	server.WriteFile(m.PathLocation, []byte("externally managed"))

	require.NoError(t, remote.RemoveArtifact(ctx, m, hash))

	_, ok := server.ReadFile(remote.MetadataPath(m.Type, hash, ""))
	assert.False(t, ok, "metadata should be gone after RemoveArtifact")
	payload, ok := server.ReadFile(m.PathLocation)
	require.True(t, ok, "PathLocation payload must survive RemoveArtifact")
	assert.Equal(t, "externally managed", string(payload))
}

func TestRemoteRepoEditArtifact(t *testing.T) {
	server, remote := newTestRemote(t)
	ctx := context.Background()

	m := sampleMetadata("build", "1.0.0")
	hash, err := m.Hash()
	require.NoError(t, err)

	payloadPath := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(payloadPath, []byte("hello world"), 0o644))
	require.NoError(t, remote.Upload(ctx, m, hash, payloadPath))

	originalData, ok := server.ReadFile(remote.MetadataPath(m.Type, hash, ""))
	require.True(t, ok)

	require.NoError(t, remote.EditArtifact(ctx, m, hash,
		map[string]string{"channel": "stable"},
		map[string]string{"EXTRA": "1"},
	))

	finalData, ok := server.ReadFile(remote.MetadataPath(m.Type, hash, ""))
	require.True(t, ok, "final metadata should exist after EditArtifact")
	updated, err := artifact.UnmarshalTOML(finalData)
	require.NoError(t, err)
	assert.Equal(t, "stable", updated.Mutable.Attributes["channel"])
	assert.Equal(t, "1", updated.Mutable.Env["EXTRA"])

	bakData, ok := server.ReadFile(remote.MetadataPath(m.Type, hash, ".toml.bak"))
	require.True(t, ok, "previous metadata should be preserved as a .bak")
	assert.Equal(t, originalData, bakData)

	_, ok = server.ReadFile(remote.MetadataPath(m.Type, hash, ".toml.tmp"))
	assert.False(t, ok, "the staging .tmp file must be renamed away, not left behind")

	// A second edit rotates the .bak again rather than erroring on its
	// prior existence.
	require.NoError(t, remote.EditArtifact(ctx, m, hash,
		map[string]string{"channel": "beta"},
		nil,
	))
	secondBak, ok := server.ReadFile(remote.MetadataPath(m.Type, hash, ".toml.bak"))
	require.True(t, ok)
	assert.Equal(t, finalData, secondBak)
}
