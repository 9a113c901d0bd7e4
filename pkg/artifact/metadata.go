// Package artifact implements the content-addressed artifact record
// (spec.md §3 "ArtifactMetadata"): its canonical TOML serialization,
// its identity hash, and the path-type taxonomy that maps a record to
// on-disk/on-export locations. It is grounded on
// ampm/repo/base.py's ArtifactMetadata dataclass and
// ampm/artifact_store.py's hash_buffer helper, using
// github.com/pelletier/go-toml/v2 in place of the original's `toml`
// package — the teacher's own dependency stack already carries
// go-toml/v2 for config loading, so the identity encoding reuses it
// rather than reaching for a second TOML library.
package artifact

import (
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// PathType enumerates how an artifact's payload is stored, mirroring
// ampm/repo/base.py's ARTIFACT_TYPES.
type PathType string

const (
	PathTypeFile  PathType = "file"
	PathTypeDir   PathType = "dir"
	PathTypeGz    PathType = "gz"
	PathTypeTarGz PathType = "tar.gz"
)

// Valid reports whether p is one of the four recognized path types.
func (p PathType) Valid() bool {
	switch p {
	case PathTypeFile, PathTypeDir, PathTypeGz, PathTypeTarGz:
		return true
	}
	return false
}

// Suffix returns the filename suffix appended to an artifact's stored
// name, per spec.md §3 Invariant 3 and SPEC_FULL.md §3
// ("artifacts/<type>/<hash>/<name>{.gz|.tar.gz|\"\"}").
func (p PathType) Suffix() string {
	switch p {
	case PathTypeGz:
		return ".gz"
	case PathTypeTarGz:
		return ".tar.gz"
	default:
		return ""
	}
}

// Mutable holds the post-publication editable overrides that shadow
// (but, per Invariant 6, never overwrite) the immutable Attributes and
// Env maps. It never participates in the identity hash.
type Mutable struct {
	Attributes map[string]string `toml:"attributes,omitempty"`
	Env        map[string]string `toml:"env,omitempty"`
}

// Metadata is the immutable record describing one published artifact,
// grounded on ampm/repo/base.py's ArtifactMetadata dataclass.
type Metadata struct {
	Name        string            `toml:"-"`
	Description string            `toml:"-"`
	PubDate     time.Time         `toml:"-"`
	Type        string            `toml:"-"`
	Attributes  map[string]string `toml:"-"`
	Env         map[string]string `toml:"-"`
	PathType    PathType          `toml:"-"`
	PathHash    string            `toml:"-"` // empty for PathTypeDir
	PathLocation string           `toml:"-"` // empty unless stored outside the content-addressed tree

	// Mutable is populated from the `[mutable.*]` tables when present.
	// It is excluded from ToDict/Hash.
	Mutable Mutable `toml:"-"`
}

// docArtifact/docPath/doc mirror the four top-level TOML tables named
// by SPEC_FULL.md §4.10 ("Canonical TOML layout has four top-level
// tables: artifact, attributes, env, path").
type docArtifact struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	PubDate     string `toml:"pubdate"`
	Type        string `toml:"type"`
}

type docPath struct {
	Type     string `toml:"type"`
	Location string `toml:"location,omitempty"`
	Hash     string `toml:"hash,omitempty"`
}

type doc struct {
	Artifact   docArtifact       `toml:"artifact"`
	Attributes map[string]string `toml:"attributes"`
	Env        map[string]string `toml:"env"`
	Path       docPath           `toml:"path"`
	Mutable    *Mutable          `toml:"mutable,omitempty"`
}

func (m *Metadata) toDoc(withMutable bool) doc {
	d := doc{
		Artifact: docArtifact{
			Name:        m.Name,
			Description: m.Description,
			PubDate:     m.PubDate.Format(time.RFC3339),
			Type:        m.Type,
		},
		Attributes: m.Attributes,
		Env:        m.Env,
		Path: docPath{
			Type:     string(m.PathType),
			Location: m.PathLocation,
			Hash:     m.PathHash,
		},
	}
	if withMutable && (len(m.Mutable.Attributes) > 0 || len(m.Mutable.Env) > 0) {
		d.Mutable = &m.Mutable
	}
	return d
}

// MarshalCanonicalTOML serializes the immutable portion of m (the
// mutable section is always excluded — identity must never depend on
// it) to canonical TOML, matching the encoding used to derive Hash.
func (m *Metadata) MarshalCanonicalTOML() ([]byte, error) {
	return toml.Marshal(m.toDoc(false))
}

// MarshalTOML serializes the full record, including the mutable
// section when non-empty, for on-disk persistence.
func (m *Metadata) MarshalTOML() ([]byte, error) {
	return toml.Marshal(m.toDoc(true))
}

// UnmarshalTOML parses a metadata TOML document (as written by
// MarshalTOML) into m.
func UnmarshalTOML(data []byte) (*Metadata, error) {
	var d doc
	if err := toml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("artifact: parse metadata toml: %w", err)
	}
	if !PathType(d.Path.Type).Valid() {
		return nil, fmt.Errorf("artifact: unknown path type %q", d.Path.Type)
	}
	pubdate, err := time.Parse(time.RFC3339, d.Artifact.PubDate)
	if err != nil {
		return nil, fmt.Errorf("artifact: parse pubdate: %w", err)
	}
	m := &Metadata{
		Name:         d.Artifact.Name,
		Description:  d.Artifact.Description,
		PubDate:      pubdate,
		Type:         d.Artifact.Type,
		Attributes:   d.Attributes,
		Env:          d.Env,
		PathType:     PathType(d.Path.Type),
		PathHash:     d.Path.Hash,
		PathLocation: d.Path.Location,
	}
	if d.Mutable != nil {
		m.Mutable = *d.Mutable
	}
	return m, nil
}

// hashBuffer implements ampm/artifact_store.py's hash_buffer:
// base32(sha256(buffer)), lowercased, truncated to 32 characters.
func hashBuffer(buf []byte) string {
	sum := sha256.Sum256(buf)
	encoded := base32.StdEncoding.EncodeToString(sum[:])
	return strings.ToLower(encoded)[:32]
}

// Hash computes the artifact's identity hash per spec.md §3
// Invariant 1: base32(SHA-256(canonical-TOML(immutable portion))),
// lowercased, truncated to 32 characters. It depends only on fields
// serialized by MarshalCanonicalTOML — editing Mutable never changes
// it.
func (m *Metadata) Hash() (string, error) {
	canon, err := m.MarshalCanonicalTOML()
	if err != nil {
		return "", err
	}
	return hashBuffer(canon), nil
}

// CombinedAttrs returns the attribute set used by the query engine's
// comparators and display formatting: name, description, and pubdate
// (plus location, when set) folded in alongside the immutable
// Attributes, mirroring ampm/repo/base.py's combined_attrs property.
// Mutable overrides, if any, are applied on top.
func (m *Metadata) CombinedAttrs() map[string]string {
	out := map[string]string{
		"name":        m.Name,
		"description": m.Description,
		"pubdate":     m.PubDate.Format("2006-01-02 15:04:05-07:00"),
	}
	if m.PathLocation != "" {
		out["location"] = m.PathLocation
	}
	for k, v := range m.Attributes {
		out[k] = v
	}
	for k, v := range m.Mutable.Attributes {
		out[k] = v
	}
	return out
}

// CombinedEnv merges Env with any Mutable.Env overrides, per spec.md
// §3's "mutable shadows immutable" rule.
func (m *Metadata) CombinedEnv() map[string]string {
	out := make(map[string]string, len(m.Env)+len(m.Mutable.Env))
	for k, v := range m.Env {
		out[k] = v
	}
	for k, v := range m.Mutable.Env {
		out[k] = v
	}
	return out
}

// ValidateType rejects type strings containing ':' or starting with
// '.', per spec.md §3's ArtifactMetadata.type constraint.
func ValidateType(t string) error {
	if t == "" {
		return fmt.Errorf("artifact: type must not be empty")
	}
	if strings.Contains(t, ":") {
		return fmt.Errorf("artifact: type %q must not contain ':'", t)
	}
	if strings.HasPrefix(t, ".") {
		return fmt.Errorf("artifact: type %q must not start with '.'", t)
	}
	return nil
}

// EditMutable applies attrUpdates/envUpdates to m.Mutable, rejecting
// any key that already exists in the immutable Attributes/Env
// (Invariant 6). Keys prefixed with "-" in either update map are
// deletions from the mutable section rather than additions.
func (m *Metadata) EditMutable(attrUpdates, envUpdates map[string]string) error {
	if m.Mutable.Attributes == nil {
		m.Mutable.Attributes = map[string]string{}
	}
	if m.Mutable.Env == nil {
		m.Mutable.Env = map[string]string{}
	}
	if err := applyMutableUpdates(m.Mutable.Attributes, m.Attributes, attrUpdates, "attributes"); err != nil {
		return err
	}
	if err := applyMutableUpdates(m.Mutable.Env, m.Env, envUpdates, "env"); err != nil {
		return err
	}
	return nil
}

func applyMutableUpdates(mutable, immutable, updates map[string]string, section string) error {
	for k, v := range updates {
		if strings.HasPrefix(k, "-") {
			delete(mutable, strings.TrimPrefix(k, "-"))
			continue
		}
		if _, exists := immutable[k]; exists {
			return fmt.Errorf("artifact: cannot edit %s: key %q is immutable", section, k)
		}
		mutable[k] = v
	}
	return nil
}
