package artifact

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMetadata() *Metadata {
	return &Metadata{
		Name:        "build.bin",
		Description: "sample build",
		PubDate:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Type:        "build",
		Attributes:  map[string]string{"version": "1.2.3"},
		Env:         map[string]string{"BUILD_PATH": "${BASE_DIR}/build.bin"},
		PathType:    PathTypeFile,
		PathHash:    "deadbeef",
	}
}

func TestHash(t *testing.T) {
	t.Run("Deterministic", func(t *testing.T) {
		m1 := sampleMetadata()
		m2 := sampleMetadata()

		h1, err := m1.Hash()
		require.NoError(t, err)
		h2, err := m2.Hash()
		require.NoError(t, err)
		assert.Equal(t, h1, h2)
		assert.Len(t, h1, 32)
	})

	t.Run("UnaffectedByMutable", func(t *testing.T) {
		m := sampleMetadata()
		before, err := m.Hash()
		require.NoError(t, err)

		require.NoError(t, m.EditMutable(map[string]string{"extra": "value"}, nil))

		after, err := m.Hash()
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("ChangesWithAttributes", func(t *testing.T) {
		m1 := sampleMetadata()
		m2 := sampleMetadata()
		m2.Attributes["version"] = "9.9.9"

		h1, _ := m1.Hash()
		h2, _ := m2.Hash()
		assert.NotEqual(t, h1, h2)
	})

	t.Run("IsLowercase", func(t *testing.T) {
		m := sampleMetadata()
		h, err := m.Hash()
		require.NoError(t, err)
		assert.Equal(t, h, toLowerASCII(h))
	})
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	m := sampleMetadata()
	require.NoError(t, m.EditMutable(map[string]string{"note": "staging"}, map[string]string{"EXTRA": "1"}))

	data, err := m.MarshalTOML()
	require.NoError(t, err)

	got, err := UnmarshalTOML(data)
	require.NoError(t, err)

	assert.Equal(t, m.Name, got.Name)
	assert.Equal(t, m.Type, got.Type)
	assert.Equal(t, m.PathType, got.PathType)
	assert.Equal(t, m.Attributes, got.Attributes)
	assert.Equal(t, m.Mutable.Attributes["note"], got.Mutable.Attributes["note"])
	assert.Equal(t, m.Mutable.Env["EXTRA"], got.Mutable.Env["EXTRA"])
}

func TestEditMutable(t *testing.T) {
	t.Run("RejectsImmutableShadow", func(t *testing.T) {
		m := sampleMetadata()
		err := m.EditMutable(map[string]string{"version": "9.9.9"}, nil)
		assert.Error(t, err)
	})

	t.Run("AppliesDeletionPrefix", func(t *testing.T) {
		m := sampleMetadata()
		require.NoError(t, m.EditMutable(map[string]string{"note": "x"}, nil))
		require.NoError(t, m.EditMutable(map[string]string{"-note": ""}, nil))
		_, exists := m.Mutable.Attributes["note"]
		assert.False(t, exists)
	})
}

func TestCombinedAttrs(t *testing.T) {
	m := sampleMetadata()
	m.PathLocation = "/opt/external/build.bin"
	combined := m.CombinedAttrs()

	assert.Equal(t, "build.bin", combined["name"])
	assert.Equal(t, "1.2.3", combined["version"])
	assert.Equal(t, "/opt/external/build.bin", combined["location"])
}

func TestValidateType(t *testing.T) {
	cases := []struct {
		name    string
		typ     string
		wantErr bool
	}{
		{"Valid", "build", false},
		{"RejectsColon", "bu:ild", true},
		{"RejectsLeadingDot", ".hidden", true},
		{"RejectsEmpty", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateType(tc.typ)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestArtifactPaths(t *testing.T) {
	t.Run("ContentAddressed", func(t *testing.T) {
		m := sampleMetadata()
		hash := "abc123"
		assert.Equal(t, "build/abc123.toml", MetadataPath(m.Type, hash, ""))
		assert.Equal(t, "build/abc123/build.bin", m.ArtifactPath(hash))
	})

	t.Run("RespectsPathLocation", func(t *testing.T) {
		m := sampleMetadata()
		m.PathLocation = "/srv/external/payload"
		hash := "abc123"
		assert.Equal(t, "/srv/external/payload", m.ArtifactBasePath(hash, ""))
	})

	t.Run("DirHasNoNameSuffix", func(t *testing.T) {
		m := sampleMetadata()
		m.PathType = PathTypeDir
		hash := "abc123"
		assert.Equal(t, "build/abc123", m.ArtifactPath(hash))
	})
}
