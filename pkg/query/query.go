package query

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Wazzaps/ampm/pkg/apperr"
	"github.com/Wazzaps/ampm/pkg/artifact"
)

// exactHashPattern matches ArtifactQuery.IsExact's "32 lowercase
// alphanumerics" rule (spec.md §3).
var exactHashPattern = regexp.MustCompile(`^[a-z0-9]{32}$`)

// Query is a parsed artifact identifier, mirroring
// ampm/repo/base.py's ArtifactQuery: (type, hash?, attributes).
type Query struct {
	Type string
	Hash string
	Attr map[string]string
}

// Parse splits a "type:hash" or "type" identifier and pairs it with
// attr, mirroring ArtifactQuery.__init__'s `identifier.partition(':')`.
func Parse(identifier string, attr map[string]string) (Query, error) {
	typ, hash, _ := strings.Cut(identifier, ":")
	if strings.Contains(hash, ":") {
		return Query{}, &apperr.ValidationError{Field: "identifier", Reason: fmt.Sprintf("invalid artifact identifier: %s", identifier)}
	}
	if hash != "" && len(hash) != 32 {
		return Query{}, &apperr.ValidationError{Field: "identifier", Reason: fmt.Sprintf("invalid hash length: %s", identifier)}
	}
	return Query{Type: typ, Hash: hash, Attr: attr}, nil
}

// IsExact reports whether q names a specific artifact by hash.
func (q Query) IsExact() bool {
	return q.Hash != "" && exactHashPattern.MatchString(q.Hash)
}

func (q Query) String() string {
	return apperr.ArtifactQuery{Type: q.Type, Hash: q.Hash, Attr: q.Attr}.String()
}

func (q Query) AsAppErr() apperr.ArtifactQuery {
	return apperr.ArtifactQuery{Type: q.Type, Hash: q.Hash, Attr: q.Attr}
}

// Candidate pairs a Metadata record with its identity hash, since
// callers (pkg/repo) already compute it while walking metadata/<type>/**.
type Candidate struct {
	Hash     string
	Metadata *artifact.Metadata
}

const comparatorPrefix = "@"

// classified holds the three buckets spec.md §4.6 step 1 splits a
// query's attributes into.
type classified struct {
	filters        map[string]string
	comparedKey    string
	comparedName   string // e.g. "@num", "@semver"
	comparedParam  string
	ignored        map[string]bool
	ignoreAllGroup bool
}

func classify(q Query) (classified, error) {
	c := classified{filters: map[string]string{}, ignored: map[string]bool{}}

	for k, v := range q.Attr {
		if v == "@ignore" {
			c.ignored[k] = true
			if k == "@any" {
				c.ignoreAllGroup = true
			}
			continue
		}
		if strings.HasPrefix(v, comparatorPrefix) {
			name, _, param, err := splitComparatorExpr(v)
			if err != nil {
				return classified{}, err
			}
			if c.comparedKey != "" {
				return classified{}, fmt.Errorf("query: only one comparator attribute is allowed, found %q and %q", c.comparedKey, k)
			}
			c.comparedKey = k
			c.comparedName = name
			c.comparedParam = param
			continue
		}
		c.filters[k] = v
	}
	return c, nil
}

// splitComparatorExpr parses "@name:param" into ("@name", the
// comparator, param).
func splitComparatorExpr(v string) (name string, cmp Comparator, param string, err error) {
	rest := v
	colon := strings.Index(rest, ":")
	if colon < 0 {
		name = rest
		param = ""
	} else {
		name = rest[:colon]
		param = rest[colon+1:]
	}
	cmp, ok := Comparators[name]
	if !ok {
		return "", nil, "", fmt.Errorf("query: unknown comparator %q", name)
	}
	return name, cmp, param, nil
}

// Lookup runs spec.md §4.6's classify/filter/group/tie-break pipeline
// over candidates (already restricted to q.Type by the caller), and
// returns the winning artifact(s): Case A/B return every exact match;
// Case C returns the best-ranked artifact(s) of every grouping context
// (all members tied with each group's best), or an
// AmbiguousComparisonError when the groups' best values differ.
func Lookup(q Query, candidates []Candidate) ([]Candidate, error) {
	if q.IsExact() {
		var out []Candidate
		for _, c := range candidates {
			if c.Hash == q.Hash {
				out = append(out, c)
			}
		}
		return out, nil
	}

	hasComparator := false
	for _, v := range q.Attr {
		if strings.HasPrefix(v, comparatorPrefix) {
			hasComparator = true
			break
		}
	}
	if !hasComparator {
		return lookupPlainFilter(q, candidates), nil
	}

	return lookupComparator(q, candidates)
}

// lookupPlainFilter implements Case B: exact-match filtering over the
// union of intrinsic fields and user attributes.
func lookupPlainFilter(q Query, candidates []Candidate) []Candidate {
	var out []Candidate
	for _, c := range candidates {
		combined := c.Metadata.CombinedAttrs()
		match := true
		for k, v := range q.Attr {
			if combined[k] != v {
				match = false
				break
			}
		}
		if match {
			out = append(out, c)
		}
	}
	return out
}

// lookupComparator implements Case C.
func lookupComparator(q Query, candidates []Candidate) ([]Candidate, error) {
	cls, err := classify(q)
	if err != nil {
		return nil, err
	}

	var cmp Comparator
	if cls.comparedKey != "" {
		_, c, _, err := splitComparatorExpr(q.Attr[cls.comparedKey])
		if err != nil {
			return nil, err
		}
		cmp = c
	}

	// Step 2: filter.
	var filtered []Candidate
	for _, c := range candidates {
		combined := c.Metadata.CombinedAttrs()

		match := true
		for k, v := range cls.filters {
			if combined[k] != v {
				match = false
				break
			}
		}
		if !match {
			continue
		}

		if cls.comparedKey != "" {
			value, ok := combined[cls.comparedKey]
			if !ok || !cmp.Filter(cls.comparedParam, value) {
				continue
			}
		}

		filtered = append(filtered, c)
	}

	if len(filtered) == 0 {
		return nil, nil
	}
	if cls.comparedKey == "" {
		// No comparator found despite hasComparator — a malformed
		// "@ignore"-only query with no actual comparator attribute.
		// Treat as a plain filter result.
		return filtered, nil
	}

	// Step 3: derive grouping attributes.
	groupKeys := map[string]bool{}
	if !cls.ignoreAllGroup {
		for _, c := range filtered {
			for k := range c.Metadata.CombinedAttrs() {
				if k == "name" || k == "description" || k == "pubdate" {
					continue
				}
				if _, isFilter := cls.filters[k]; isFilter {
					continue
				}
				if cls.ignored[k] {
					continue
				}
				if k == cls.comparedKey {
					continue
				}
				groupKeys[k] = true
			}
		}
	}

	// Step 4: group.
	groups := map[string][]Candidate{}
	var groupOrder []string
	for _, c := range filtered {
		key := groupingKey(c, groupKeys)
		if _, seen := groups[key]; !seen {
			groupOrder = append(groupOrder, key)
		}
		groups[key] = append(groups[key], c)
	}

	// Step 5: sort each group; step 7 needs each group's winner(s).
	type groupResult struct {
		winners []Candidate
		winner  Candidate
	}
	results := make(map[string]groupResult, len(groups))
	for _, key := range groupOrder {
		members := groups[key]
		sorted, err := sortByComparator(members, cmp, cls.comparedKey, cls.comparedParam)
		if err != nil {
			return nil, err
		}
		best := sorted[0]
		var tied []Candidate
		for _, m := range sorted {
			c, err := cmp.Compare(cls.comparedParam, m.Metadata.CombinedAttrs()[cls.comparedKey], best.Metadata.CombinedAttrs()[cls.comparedKey])
			if err != nil {
				return nil, err
			}
			if c == 0 {
				tied = append(tied, m)
			}
		}
		results[key] = groupResult{winners: tied, winner: best}
	}

	// Step 6: consistency check across groups.
	if len(groupOrder) > 1 {
		first := results[groupOrder[0]].winner
		firstVal := first.Metadata.CombinedAttrs()[cls.comparedKey]
		for _, key := range groupOrder[1:] {
			other := results[key].winner
			otherVal := other.Metadata.CombinedAttrs()[cls.comparedKey]
			c, err := cmp.Compare(cls.comparedParam, firstVal, otherVal)
			if err != nil {
				return nil, err
			}
			if c != 0 {
				return nil, &apperr.AmbiguousComparisonError{
					Attribute: cls.comparedKey,
					Values:    []string{firstVal, otherVal},
				}
			}
		}
	}

	// Step 7: emit.
	var out []Candidate
	for _, key := range groupOrder {
		out = append(out, results[key].winners...)
	}
	return out, nil
}

func groupingKey(c Candidate, groupKeys map[string]bool) string {
	keys := make([]string, 0, len(groupKeys))
	for k := range groupKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	combined := c.Metadata.CombinedAttrs()
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(combined[k])
		b.WriteByte('\x00')
	}
	return b.String()
}

func sortByComparator(members []Candidate, cmp Comparator, key, param string) ([]Candidate, error) {
	sorted := make([]Candidate, len(members))
	copy(sorted, members)

	var sortErr error
	sort.SliceStable(sorted, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		vi := sorted[i].Metadata.CombinedAttrs()[key]
		vj := sorted[j].Metadata.CombinedAttrs()[key]
		c, err := cmp.Compare(param, vi, vj)
		if err != nil {
			sortErr = err
			return false
		}
		return c < 0
	})
	return sorted, sortErr
}

// LookupSingle runs Lookup and collapses the result to exactly one
// candidate, mirroring ampm/repo/base.py's RepoGroup.lookup_single:
// zero matches is QueryNotFoundError, more than one is
// AmbiguousQueryError.
func LookupSingle(q Query, candidates []Candidate) (Candidate, error) {
	results, err := Lookup(q, candidates)
	if err != nil {
		return Candidate{}, err
	}
	if len(results) == 0 {
		return Candidate{}, &apperr.QueryNotFoundError{Query: q.AsAppErr()}
	}
	if len(results) > 1 {
		opts := make([]string, len(results))
		for i, r := range results {
			opts[i] = fmt.Sprintf("%s:%s", r.Metadata.Type, r.Hash)
		}
		return Candidate{}, &apperr.AmbiguousQueryError{Query: q.AsAppErr(), Options: opts}
	}
	return results[0], nil
}
