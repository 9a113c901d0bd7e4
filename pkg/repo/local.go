// Package repo implements the two artifact repository backends
// (spec.md §3 "Repository"): LocalRepo (a filesystem cache rooted at
// a path, default /var/ampm) and RemoteRepo (an NFS-backed
// content-addressed store), plus Group which layers them the way
// a lookup actually happens — check local first, pull from remote on
// a miss. Grounded on ampm/repo/local.py, ampm/repo/nfs.py, and
// ampm/repo/base.py's RepoGroup.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Wazzaps/ampm/pkg/apperr"
	"github.com/Wazzaps/ampm/pkg/artifact"
	"github.com/Wazzaps/ampm/pkg/lock"
	"github.com/Wazzaps/ampm/pkg/query"
)

// DefaultLocalRoot matches ampm/repo/local.py's LOCAL_REPO default.
const DefaultLocalRoot = "/var/ampm"

// LocalRepo is a filesystem-rooted artifact cache, grounded on
// ampm/repo/local.py's LocalRepo.
type LocalRepo struct {
	Root string
}

// NewLocalRepo returns a LocalRepo rooted at root.
func NewLocalRepo(root string) *LocalRepo {
	return &LocalRepo{Root: root}
}

// MetadataLockPath returns the path to the cross-process lock
// guarding metadata-tree mutations, mirroring
// ampm/repo/local.py's metadata_lockfile.
func (r *LocalRepo) MetadataLockPath() string {
	return filepath.Join(r.Root, "metadata", ".lock")
}

// WithMetadataLock runs fn while holding the shared metadata
// lockfile.
func (r *LocalRepo) WithMetadataLock(fn func() error) error {
	return lock.WithLock(r.MetadataLockPath(), "metadata tree", fn)
}

// MetadataPath returns "<root>/metadata/<type>/<hash><suffix>",
// mirroring LocalRepo.metadata_path_of. suffix defaults to ".toml".
func (r *LocalRepo) MetadataPath(artifactType, hash, suffix string) string {
	if suffix == "" {
		suffix = ".toml"
	}
	return filepath.Join(r.Root, "metadata", artifactType, hash+suffix)
}

// ArtifactBasePath returns the directory holding m's payload,
// mirroring LocalRepo.artifact_base_path_of.
func (r *LocalRepo) ArtifactBasePath(m *artifact.Metadata, hash, suffix string) string {
	return filepath.Join(r.Root, "artifacts", strings.ToLower(m.Type), strings.ToLower(hash)+suffix)
}

// ArtifactPath returns the full payload path, mirroring
// LocalRepo.artifact_path_of.
func (r *LocalRepo) ArtifactPath(m *artifact.Metadata, hash, suffix string) string {
	return filepath.Join(r.ArtifactBasePath(m, hash, suffix), m.Name)
}

// MetadataOf reads and parses the metadata TOML for (artifactType,
// hash), mirroring LocalRepo.metadata_of.
func (r *LocalRepo) MetadataOf(artifactType, hash string) (*artifact.Metadata, error) {
	data, err := os.ReadFile(r.MetadataPath(artifactType, hash, ""))
	if err != nil {
		return nil, err
	}
	return artifact.UnmarshalTOML(data)
}

// LookupByType walks metadata/<type>/**/*.toml, mirroring
// LocalRepo._lookup_by_type.
func (r *LocalRepo) LookupByType(artifactType string) ([]query.Candidate, error) {
	base := filepath.Join(r.Root, "metadata", artifactType)
	var out []query.Candidate

	err := filepath.WalkDir(base, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".toml") {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		m, parseErr := artifact.UnmarshalTOML(data)
		if parseErr != nil {
			return nil // skip malformed metadata rather than aborting the whole walk
		}
		hash := strings.TrimSuffix(filepath.Base(path), ".toml")
		out = append(out, query.Candidate{Hash: hash, Metadata: m})
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return out, nil
}

// Lookup implements Repository-style lookup over the local cache:
// exact queries read metadata_path directly, otherwise it delegates
// to pkg/query over LookupByType, mirroring LocalRepo.lookup.
func (r *LocalRepo) Lookup(q query.Query) ([]query.Candidate, error) {
	if q.IsExact() {
		m, err := r.MetadataOf(q.Type, q.Hash)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, err
		}
		return []query.Candidate{{Hash: q.Hash, Metadata: m}}, nil
	}

	candidates, err := r.LookupByType(q.Type)
	if err != nil {
		return nil, err
	}
	return query.Lookup(q, candidates)
}

// Download returns the local artifact path for m if that path
// already exists, or a QueryNotFoundError otherwise,
// mirroring LocalRepo.download.
func (r *LocalRepo) Download(m *artifact.Metadata, hash string) (string, error) {
	path := r.ArtifactPath(m, hash, "")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	return "", &apperr.QueryNotFoundError{}
}

// GenerateCaches writes the .env and .target caches next to the
// metadata file, mirroring LocalRepo.generate_caches_for_artifact.
func (r *LocalRepo) GenerateCaches(m *artifact.Metadata, hash string) error {
	envPath := r.MetadataPath(m.Type, hash, ".env")
	if err := os.WriteFile(envPath, []byte(r.FormatEnvFile(m, hash)), 0o644); err != nil {
		return fmt.Errorf("repo: write env cache: %w", err)
	}

	targetPath := r.MetadataPath(m.Type, hash, ".target")
	_ = os.Remove(targetPath)
	if err := os.Symlink(r.ArtifactPath(m, hash, ""), targetPath); err != nil {
		return fmt.Errorf("repo: write target cache: %w", err)
	}
	return nil
}

// FormatEnvFile renders one `export KEY=VALUE` line per entry in
// m.CombinedEnv(), with ${BASE_DIR} replaced by the artifact's final
// local path, mirroring LocalRepo.format_env_file.
func (r *LocalRepo) FormatEnvFile(m *artifact.Metadata, hash string) string {
	baseDir := r.ArtifactPath(m, hash, "")

	keys := make([]string, 0, len(m.CombinedEnv()))
	env := m.CombinedEnv()
	for k := range env {
		keys = append(keys, k)
	}
	// deterministic order for reproducible cache files
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		v := strings.ReplaceAll(env[k], "${BASE_DIR}", baseDir)
		lines = append(lines, fmt.Sprintf("export %s=%s", shellQuote(k), shellQuote(v)))
	}
	return strings.Join(lines, "\n")
}
