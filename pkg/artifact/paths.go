package artifact

import "path"

// MetadataPath returns "<type>/<hash><suffix>" relative to a
// repository's metadata/ root, per SPEC_FULL.md §4.10
// ("metadata_path(type, hash[, suffix='.toml']) -> <repo>/metadata/<type>/<hash><suffix>").
// suffix defaults to ".toml" when empty.
func MetadataPath(artifactType, hash, suffix string) string {
	if suffix == "" {
		suffix = ".toml"
	}
	return path.Join(artifactType, hash+suffix)
}

// ArtifactBasePath returns the directory (relative to a repository's
// artifacts/ root) holding m's payload: "<type>/<hash><suffix>" when
// PathLocation is unset, or PathLocation itself otherwise, per
// SPEC_FULL.md §4.10 ("artifact_base_path(meta[, suffix]) ->
// <repo>/artifacts/<type>/<hash><suffix> if no path_location, else
// path_location relativized against the export mount").
func (m *Metadata) ArtifactBasePath(hash, suffix string) string {
	if m.PathLocation != "" {
		return m.PathLocation
	}
	return path.Join(m.Type, hash+suffix)
}

// ArtifactPath returns the full relative path to m's payload file
// within its base directory: base/<name><pathType suffix>, per
// spec.md §3 Invariant 3. When m.PathType is dir it returns the base
// directory itself, since directory artifacts have no single payload
// file.
func (m *Metadata) ArtifactPath(hash string) string {
	if m.PathType == PathTypeDir {
		return m.ArtifactBasePath(hash, "")
	}
	return path.Join(m.ArtifactBasePath(hash, ""), m.Name+m.PathType.Suffix())
}
