package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPageSimpleMarker(t *testing.T) {
	out, err := FormatPage("hello {{name}}!", Context{"name": "world"})
	require.NoError(t, err)
	assert.Equal(t, "hello world!", out)
}

func TestFormatPageForeach(t *testing.T) {
	tmpl := "<ul>{{foreach items}}<li>{{name}}</li>{{end foreach items}}</ul>"
	out, err := FormatPage(tmpl, Context{
		"items": []Context{
			{"name": "a"},
			{"name": "b"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "<ul><li>a</li><li>b</li></ul>", out)
}

func TestFormatPageNestedForeachSeesOuterContext(t *testing.T) {
	tmpl := "{{foreach items}}{{title}}: {{name}} {{end foreach items}}"
	out, err := FormatPage(tmpl, Context{
		"title": "Artifact",
		"items": []Context{{"name": "a"}, {"name": "b"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Artifact: a Artifact: b ", out)
}

func TestFormatPageInvalidMarker(t *testing.T) {
	_, err := FormatPage("{{two words}}", Context{})
	assert.Error(t, err)
}

func TestFormatPageUndefinedMarker(t *testing.T) {
	_, err := FormatPage("{{missing}}", Context{})
	assert.Error(t, err)
}

func TestValidateRemotePath(t *testing.T) {
	cases := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"Clean", "build/1.0.0/payload.bin", false},
		{"RejectsDotDot", "build/../etc/passwd", true},
		{"RejectsHiddenSegment", "build/.git/config", true},
		{"RejectsLeadingDot", ".hidden/file", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRemotePath("/export", tc.path)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseRepoURI(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		u, err := ParseRepoURI("nfs://localhost/mnt/share#repo")
		require.NoError(t, err)
		assert.Equal(t, "nfs", u.Protocol)
		assert.Equal(t, "localhost/mnt/share#repo", u.Rest)
	})

	t.Run("MissingScheme", func(t *testing.T) {
		_, err := ParseRepoURI("not-a-uri")
		assert.Error(t, err)
	})
}
