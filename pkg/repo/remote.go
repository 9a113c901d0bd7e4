package repo

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Wazzaps/ampm/internal/bytesize"
	"github.com/Wazzaps/ampm/internal/logger"
	"github.com/Wazzaps/ampm/internal/nfsclient"
	"github.com/Wazzaps/ampm/internal/nfsclient/compress"
	"github.com/Wazzaps/ampm/pkg/apperr"
	"github.com/Wazzaps/ampm/pkg/artifact"
	"github.com/Wazzaps/ampm/pkg/query"
)

// RemoteRepo is an NFS-backed artifact store, grounded on
// ampm/repo/nfs.py's NfsRepo: a (host, NFS export mount path,
// repository sub-path) triple plus the Client used to reach it.
type RemoteRepo struct {
	Host      string
	MountPath string
	RepoPath  string
	Client    *nfsclient.Client
}

// NewRemoteRepoFromURIPart parses "host/mount_path#repo_path",
// mirroring NfsRepo.from_uri_part.
func NewRemoteRepoFromURIPart(uriPart string, chunkSize bytesize.ByteSize) (*RemoteRepo, error) {
	uriBody, repoPath, ok := strings.Cut(uriPart, "#")
	if !ok {
		return nil, &apperr.ValidationError{Field: "uri", Reason: fmt.Sprintf("missing '#<repo_path>' in %q", uriPart)}
	}
	host, mountPath, ok := strings.Cut(uriBody, "/")
	if !ok {
		return nil, &apperr.ValidationError{Field: "uri", Reason: fmt.Sprintf("missing '/<mount_path>' in %q", uriPart)}
	}

	return &RemoteRepo{
		Host:      host,
		MountPath: "/" + strings.Trim(mountPath, "/"),
		RepoPath:  strings.Trim(repoPath, "/"),
		Client:    nfsclient.New(host, "/"+strings.Trim(mountPath, "/"), chunkSize),
	}, nil
}

// IntoURI renders the repo back to "nfs://host/mount_path#repo_path",
// mirroring NfsRepo.into_uri.
func (r *RemoteRepo) IntoURI() string {
	return fmt.Sprintf("nfs://%s/%s#%s", r.Host, strings.TrimPrefix(r.MountPath, "/"), r.RepoPath)
}

// MetadataPath mirrors NfsRepo.metadata_path_of.
func (r *RemoteRepo) MetadataPath(artifactType, hash, suffix string) string {
	if suffix == "" {
		suffix = ".toml"
	}
	return fmt.Sprintf("%s/metadata/%s/%s%s", r.RepoPath, artifactType, hash, suffix)
}

// ArtifactBasePath mirrors NfsRepo.artifact_base_path_of: when m has
// a path_location, the override (relativized against the export
// mount) stands in for the whole path and suffix is ignored.
func (r *RemoteRepo) ArtifactBasePath(m *artifact.Metadata, hash, suffix string) string {
	if m.PathLocation != "" {
		return strings.TrimPrefix(strings.TrimPrefix(m.PathLocation, r.MountPath), "/")
	}
	return fmt.Sprintf("%s/artifacts/%s/%s%s", r.RepoPath, strings.ToLower(m.Type), strings.ToLower(hash), suffix)
}

// ArtifactPath mirrors NfsRepo.artifact_path_of.
func (r *RemoteRepo) ArtifactPath(m *artifact.Metadata, hash, suffix string) string {
	if m.PathLocation != "" {
		return r.ArtifactBasePath(m, hash, suffix)
	}
	return fmt.Sprintf("%s/%s%s", r.ArtifactBasePath(m, hash, suffix), m.Name, m.PathType.Suffix())
}

// Upload publishes metadata (and, if localPath is non-empty, its
// payload) to the remote store via the standard
// stage-in-.tmp-then-rename sequence, mirroring NfsRepo.upload.
func (r *RemoteRepo) Upload(ctx context.Context, m *artifact.Metadata, hash, localPath string) error {
	if err := artifact.ValidateType(m.Type); err != nil {
		return err
	}
	if err := r.Client.Connect(ctx); err != nil {
		return &apperr.ConnectionError{Endpoint: r.Host, Err: err}
	}
	defer r.Client.Close()

	if localPath != "" {
		logger.Info("uploading artifact payload")
		tmpBase := r.ArtifactBasePath(m, hash, ".tmp")
		finalBase := r.ArtifactBasePath(m, hash, "")
		tmpPath := r.ArtifactPath(m, hash, ".tmp")

		if m.PathType == artifact.PathTypeDir {
			if err := r.Client.Upload(ctx, localPath, tmpPath, true); err != nil {
				return err
			}
		} else {
			if err := r.Client.Upload(ctx, localPath, tmpPath, false); err != nil {
				return err
			}
		}
		if err := r.Client.Rename(tmpBase, finalBase); err != nil {
			return err
		}
	}

	logger.Info("uploading artifact metadata")
	data, err := m.MarshalTOML()
	if err != nil {
		return err
	}
	tmpMetaPath := r.MetadataPath(m.Type, hash, ".toml.tmp")
	finalMetaPath := r.MetadataPath(m.Type, hash, "")
	if err := r.Client.WriteStream(ctx, tmpMetaPath, bytes.NewReader(data)); err != nil {
		return err
	}
	return r.Client.Rename(tmpMetaPath, finalMetaPath)
}

// LookupExact downloads the metadata TOML for an exact query into
// local's cache under the metadata lock, mirroring NfsRepo.lookup
// (which, like the original, only supports exact queries — non-exact
// lookups go through DownloadMetadataForType followed by a local
// LookupByType scan, per spec.md §4.6's entry point).
func (r *RemoteRepo) LookupExact(ctx context.Context, local *LocalRepo, q query.Query) (*query.Candidate, error) {
	if !q.IsExact() {
		return nil, nil
	}
	if err := r.Client.Connect(ctx); err != nil {
		return nil, &apperr.ConnectionError{Endpoint: r.Host, Err: err}
	}
	defer r.Client.Close()

	var candidate *query.Candidate
	err := local.WithMetadataLock(func() error {
		metadataPath := local.MetadataPath(q.Type, q.Hash, "")
		tmpPath := metadataPath + ".tmp"
		if err := os.MkdirAll(filepath.Dir(tmpPath), 0o755); err != nil {
			return err
		}
		_ = os.Remove(tmpPath)

		f, err := os.Create(tmpPath)
		if err != nil {
			return err
		}
		downloadErr := r.Client.ReadStream(ctx, r.MetadataPath(q.Type, q.Hash, ""), func(chunk []byte) error {
			_, err := f.Write(chunk)
			return err
		})
		f.Close()
		if downloadErr != nil {
			_ = os.Remove(tmpPath)
			return &apperr.QueryNotFoundError{Query: q.AsAppErr()}
		}

		data, err := os.ReadFile(tmpPath)
		if err != nil {
			return err
		}
		m, err := artifact.UnmarshalTOML(data)
		if err != nil {
			return err
		}
		if err := os.Rename(tmpPath, metadataPath); err != nil {
			return err
		}
		candidate = &query.Candidate{Hash: q.Hash, Metadata: m}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return candidate, nil
}

// Download fetches metadata's payload into local's content-addressed
// cache, branching on PathType per spec.md §4.4, verifying PathHash
// when present, and generating the .env/.target caches before the
// final atomic rename, mirroring NfsRepo.download.
func (r *RemoteRepo) Download(ctx context.Context, local *LocalRepo, m *artifact.Metadata, hash string) (string, error) {
	tmpBase := local.ArtifactBasePath(m, hash, ".tmp")
	localBase := local.ArtifactBasePath(m, hash, "")
	remoteBase := r.ArtifactBasePath(m, hash, "")
	remotePath := r.ArtifactPath(m, hash, "")

	if err := os.MkdirAll(filepath.Dir(tmpBase), 0o755); err != nil {
		return "", err
	}
	if _, err := os.Stat(localBase); err == nil {
		return local.ArtifactPath(m, hash, ""), nil
	}
	_ = os.RemoveAll(tmpBase)
	_ = os.RemoveAll(localBase)

	if err := r.Client.Connect(ctx); err != nil {
		return "", &apperr.ConnectionError{Endpoint: r.Host, Err: err}
	}
	defer r.Client.Close()

	if err := os.MkdirAll(tmpBase, 0o755); err != nil {
		return "", err
	}

	var actualHash string
	var err error
	switch m.PathType {
	case artifact.PathTypeFile, artifact.PathTypeDir:
		dest := tmpBase
		if m.PathLocation != "" {
			dest = filepath.Join(tmpBase, m.Name)
		}
		actualHash, err = r.Client.Download(ctx, remoteBase, dest)
	case artifact.PathTypeGz:
		actualHash, err = r.downloadGz(ctx, remotePath, filepath.Join(tmpBase, m.Name))
	case artifact.PathTypeTarGz:
		actualHash, err = r.downloadTarGz(ctx, remotePath, filepath.Join(tmpBase, m.Name))
	default:
		err = fmt.Errorf("repo: unknown artifact path type: %s", m.PathType)
	}
	if err != nil {
		return "", err
	}

	if m.PathHash != "" && actualHash != "" && m.PathHash != actualHash {
		return "", &apperr.ArtifactCorruptedError{
			Identity: fmt.Sprintf("%s:%s", m.Type, hash),
			Expected: m.PathHash,
			Actual:   actualHash,
		}
	}

	if err := local.GenerateCaches(m, hash); err != nil {
		return "", err
	}
	if err := os.Rename(tmpBase, localBase); err != nil {
		return "", err
	}
	return local.ArtifactPath(m, hash, ""), nil
}

// downloadGz streams remotePath, gunzips it in-process, writes the
// decompressed bytes to destPath, and hashes the COMPRESSED stream
// (matching spec.md §4.5's "hashing the COMPRESSED stream" rule since
// PathHash for a `gz` artifact is computed over the .gz payload).
func (r *RemoteRepo) downloadGz(ctx context.Context, remotePath, destPath string) (string, error) {
	pr, pw := newPipe()
	h := sha256.New()

	var readErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer pw.Close()
		readErr = r.Client.ReadStream(ctx, remotePath, func(chunk []byte) error {
			h.Write(chunk)
			_, err := pw.Write(chunk)
			return err
		})
	}()

	gz, err := compress.GzipReader(pr)
	if err != nil {
		<-done
		return "", err
	}
	defer gz.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(destPath)
	if err != nil {
		return "", err
	}
	_, copyErr := copyAll(out, gz)
	out.Close()
	<-done
	if readErr != nil {
		return "", readErr
	}
	if copyErr != nil {
		return "", copyErr
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// downloadTarGz streams remotePath, hashing the compressed bytes
// while extracting the tar.gz container into destDir, mirroring
// NfsRepo.download's `tar.gz` branch.
func (r *RemoteRepo) downloadTarGz(ctx context.Context, remotePath, destDir string) (string, error) {
	pr, pw := newPipe()
	h := sha256.New()

	var readErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer pw.Close()
		readErr = r.Client.ReadStream(ctx, remotePath, func(chunk []byte) error {
			h.Write(chunk)
			_, err := pw.Write(chunk)
			return err
		})
	}()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	extractErr := compress.ExtractTarGz(pr, destDir)
	<-done
	if readErr != nil {
		return "", readErr
	}
	if extractErr != nil {
		return "", extractErr
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// metadataNamePattern matches ampm/repo/nfs.py's
// `(.*)/([a-z0-9]{32})\.toml$` used to recognize metadata files while
// walking the remote tree.
var metadataNamePattern = regexp.MustCompile(`^(.*)/([a-z0-9]{32})\.toml$`)

// DownloadMetadataForType mirrors all remote metadata TOML files for
// artifactType (and any nested type segments) into local's cache,
// skipping files already present, mirroring
// NfsRepo.download_metadata_for_type.
func (r *RemoteRepo) DownloadMetadataForType(ctx context.Context, local *LocalRepo, artifactType string) error {
	if err := r.Client.Connect(ctx); err != nil {
		return &apperr.ConnectionError{Endpoint: r.Host, Err: err}
	}
	defer r.Client.Close()

	basePath := path.Join(r.RepoPath, "metadata", artifactType)
	return local.WithMetadataLock(func() error {
		entries, err := r.Client.WalkFiles(basePath, false)
		if err != nil {
			return nil // mirrors the original's bare `except IOError: pass`
		}
		for _, e := range entries {
			rel := "/" + e.Path
			matches := metadataNamePattern.FindStringSubmatch(rel)
			if matches == nil {
				continue
			}
			typeExtra := matches[1]
			hash := matches[2]
			fullType := artifactType + typeExtra

			localPath := local.MetadataPath(fullType, hash, "")
			if _, err := os.Stat(localPath); err == nil {
				continue
			}
			tmpLocalPath := local.MetadataPath(fullType, hash, ".toml.tmp")
			if err := os.MkdirAll(filepath.Dir(tmpLocalPath), 0o755); err != nil {
				return err
			}

			f, err := os.Create(tmpLocalPath)
			if err != nil {
				return err
			}
			remotePath := path.Join(basePath, typeExtra, hash+".toml")
			downloadErr := r.Client.ReadStream(ctx, remotePath, func(chunk []byte) error {
				_, err := f.Write(chunk)
				return err
			})
			f.Close()
			if downloadErr != nil {
				_ = os.Remove(tmpLocalPath)
				continue
			}
			if err := os.Rename(tmpLocalPath, localPath); err != nil {
				return err
			}
		}
		return nil
	})
}

// HashRemoteFile streams remotePath and returns its SHA-256 hex
// digest without materializing it locally, mirroring
// NfsRepo.hash_remote_file.
func (r *RemoteRepo) HashRemoteFile(ctx context.Context, remotePath string) (string, error) {
	if err := r.Client.Connect(ctx); err != nil {
		return "", &apperr.ConnectionError{Endpoint: r.Host, Err: err}
	}
	defer r.Client.Close()

	h := sha256.New()
	err := r.Client.ReadStream(ctx, remotePath, func(chunk []byte) error {
		h.Write(chunk)
		return nil
	})
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// RemoveArtifact deletes m's metadata and (unless m.PathLocation is
// set) its base artifact directory, mirroring NfsRepo.remove_artifact.
func (r *RemoteRepo) RemoveArtifact(ctx context.Context, m *artifact.Metadata, hash string) error {
	if err := r.Client.Connect(ctx); err != nil {
		return &apperr.ConnectionError{Endpoint: r.Host, Err: err}
	}
	defer r.Client.Close()

	if err := r.Client.Rmtree(r.MetadataPath(m.Type, hash, "")); err != nil {
		return err
	}
	if m.PathLocation != "" {
		logger.Infof("artifact has custom path, not removing %s", m.PathLocation)
		return nil
	}
	return r.Client.Rmtree(r.ArtifactBasePath(m, hash, ""))
}

// EditArtifact applies attrUpdates/envUpdates to m's mutable section
// and republishes its metadata via the stale-.bak-cleanup ->
// write-.tmp -> rename-current-to-.bak -> rename-.tmp-to-current
// sequence, mirroring NfsRepo.edit_artifact.
func (r *RemoteRepo) EditArtifact(ctx context.Context, m *artifact.Metadata, hash string, attrUpdates, envUpdates map[string]string) error {
	if err := m.EditMutable(attrUpdates, envUpdates); err != nil {
		return err
	}

	if err := r.Client.Connect(ctx); err != nil {
		return &apperr.ConnectionError{Endpoint: r.Host, Err: err}
	}
	defer r.Client.Close()

	logger.Info("uploading artifact metadata")
	tmpPath := r.MetadataPath(m.Type, hash, ".toml.tmp")
	bakPath := r.MetadataPath(m.Type, hash, ".toml.bak")
	finalPath := r.MetadataPath(m.Type, hash, "")

	_ = r.Client.Remove(bakPath)
	_ = r.Client.Remove(tmpPath)

	data, err := m.MarshalTOML()
	if err != nil {
		return err
	}
	if err := r.Client.WriteStream(ctx, tmpPath, bytes.NewReader(data)); err != nil {
		return err
	}
	if err := r.Client.Rename(finalPath, bakPath); err != nil {
		return err
	}
	return r.Client.Rename(tmpPath, finalPath)
}
