package query

import (
	"testing"
	"time"

	"github.com/Wazzaps/ampm/pkg/apperr"
	"github.com/Wazzaps/ampm/pkg/artifact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(hash, version, arch string, pubdate time.Time) Candidate {
	return Candidate{
		Hash: hash,
		Metadata: &artifact.Metadata{
			Name: "build.bin",
			Type: "build",
			Attributes: map[string]string{
				"version": version,
				"arch":    arch,
			},
			PubDate: pubdate,
		},
	}
}

func TestIsExact(t *testing.T) {
	q := Query{Hash: "abcdefabcdefabcdefabcdefabcdef12"}
	assert.True(t, q.IsExact())

	q2 := Query{Hash: "tooShort"}
	assert.False(t, q2.IsExact())
}

func TestLookupExact(t *testing.T) {
	c1 := candidate("abcdefabcdefabcdefabcdefabcdef12", "1.0.0", "x86", time.Now())
	c2 := candidate("zzzzzzzzzzzzzzzzzzzzzzzzzzzzzz99", "2.0.0", "x86", time.Now())

	results, err := Lookup(Query{Hash: c1.Hash}, []Candidate{c1, c2})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, c1.Hash, results[0].Hash)
}

func TestLookupPlainFilter(t *testing.T) {
	c1 := candidate("h1", "1.0.0", "x86", time.Now())
	c2 := candidate("h2", "2.0.0", "arm", time.Now())

	results, err := Lookup(Query{Attr: map[string]string{"arch": "arm"}}, []Candidate{c1, c2})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "h2", results[0].Hash)
}

func TestLookupComparatorSemverNewestGroupedByArch(t *testing.T) {
	x86Old := candidate("x86-old", "1.0.0", "x86", time.Now())
	x86New := candidate("x86-new", "2.0.0", "x86", time.Now())
	armOnly := candidate("arm-only", "2.0.0", "arm", time.Now())

	results, err := Lookup(Query{Attr: map[string]string{"version": "@semver:newest"}},
		[]Candidate{x86Old, x86New, armOnly})
	require.NoError(t, err)

	hashes := map[string]bool{}
	for _, r := range results {
		hashes[r.Hash] = true
	}
	assert.True(t, hashes["x86-new"])
	assert.True(t, hashes["arm-only"])
	assert.False(t, hashes["x86-old"])
}

func TestLookupComparatorAnyIgnoresGrouping(t *testing.T) {
	x86Old := candidate("x86-old", "1.0.0", "x86", time.Now())
	x86New := candidate("x86-new", "2.0.0", "x86", time.Now())
	armOnly := candidate("arm-only", "1.5.0", "arm", time.Now())

	results, err := Lookup(Query{Attr: map[string]string{
		"version": "@semver:newest",
		"@any":    "@ignore",
	}}, []Candidate{x86Old, x86New, armOnly})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "x86-new", results[0].Hash)
}

func TestLookupComparatorAmbiguousAcrossGroups(t *testing.T) {
	x86 := candidate("x86", "1", "x86", time.Now())
	arm := candidate("arm", "2", "arm", time.Now())

	_, err := Lookup(Query{Attr: map[string]string{"version": "@num:biggest"}}, []Candidate{x86, arm})
	require.Error(t, err)

	var ambigErr *apperr.AmbiguousComparisonError
	assert.ErrorAs(t, err, &ambigErr)
}

func TestLookupSingle(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		_, err := LookupSingle(Query{Hash: "nonexistent00000000000000000000"}, nil)
		var notFound *apperr.QueryNotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("Ambiguous", func(t *testing.T) {
		c1 := candidate("h1", "1.0.0", "x86", time.Now())
		c2 := candidate("h2", "2.0.0", "arm", time.Now())
		_, err := LookupSingle(Query{Attr: map[string]string{}}, []Candidate{c1, c2})
		var ambig *apperr.AmbiguousQueryError
		assert.ErrorAs(t, err, &ambig)
	})

	t.Run("Unique", func(t *testing.T) {
		c1 := candidate("h1", "1.0.0", "x86", time.Now())
		result, err := LookupSingle(Query{Attr: map[string]string{"arch": "x86"}}, []Candidate{c1})
		require.NoError(t, err)
		assert.Equal(t, "h1", result.Hash)
	})
}

func TestNumberComparator(t *testing.T) {
	cmp := NumberComparator{}
	assert.True(t, cmp.Filter("", "3.14"))
	assert.False(t, cmp.Filter("", "not-a-number"))

	c, err := cmp.Compare("biggest", "1", "2")
	require.NoError(t, err)
	assert.Positive(t, c)

	c, err = cmp.Compare("smallest", "1", "2")
	require.NoError(t, err)
	assert.Negative(t, c)
}

func TestGlobComparator(t *testing.T) {
	cmp := GlobComparator{}
	assert.True(t, cmp.Filter("x86*", "x86_64"))
	assert.False(t, cmp.Filter("x86*", "arm64"))
	c, _ := cmp.Compare("", "a", "b")
	assert.Equal(t, 0, c)
}

func TestRegexComparator(t *testing.T) {
	cmp := RegexComparator{}
	assert.True(t, cmp.Filter("i386|x86_64", "x86_64"))
	assert.False(t, cmp.Filter("^v1$", "v2"))
}

func TestSemverComparatorRange(t *testing.T) {
	cmp := SemverComparator{}
	assert.True(t, cmp.Filter("^1.0.0", "1.4.0"))
	assert.False(t, cmp.Filter("^1.0.0", "2.0.0"))
	assert.True(t, cmp.Filter("~1.1.0", "1.1.9"))
	assert.False(t, cmp.Filter("~1.1.0", "1.2.0"))
}

func TestSemverComparatorPrereleaseExclusion(t *testing.T) {
	cmp := SemverComparator{}
	assert.False(t, cmp.Filter("newest", "1.0.0-alpha"))
	assert.True(t, cmp.Filter("newest,prerelease", "1.0.0-alpha"))
}
