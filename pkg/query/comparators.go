// Package query implements attribute-filter and comparator-based
// artifact selection (spec.md §4.6), grounded on
// ampm/attribute_comparators.py: five comparator strategies (num,
// date, semver, glob, regex) plus the classify/filter/group/tie-break
// engine that turns a non-exact ArtifactQuery into a unique winner per
// grouping context.
package query

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-semver/semver"
)

// Comparator is the strategy interface every "@name:param" expression
// dispatches to, mirroring ampm/attribute_comparators.py's Comparator
// base class.
type Comparator interface {
	// Filter reports whether value is accepted under the comparator
	// given the parsed parameter string.
	Filter(param, value string) bool
	// Compare orders a relative to b; negative means a sorts earlier
	// (spec.md §4.6 step 5: "returns negative when a should sort
	// earlier").
	Compare(param, a, b string) (int, error)
	// Help describes the comparator's param syntax for error/help text.
	Help() string
}

// Comparators maps the "@name" prefix to its strategy, mirroring
// ampm/attribute_comparators.py's COMPARATORS dict.
var Comparators = map[string]Comparator{
	"@num":    NumberComparator{},
	"@date":   DateComparator{},
	"@semver": SemverComparator{},
	"@glob":   GlobComparator{},
	"@regex":  RegexComparator{},
}

// NumberComparator compares decimal numbers.
type NumberComparator struct{}

func (NumberComparator) Filter(_, value string) bool {
	_, err := strconv.ParseFloat(value, 64)
	return err == nil
}

func (NumberComparator) Compare(param, a, b string) (int, error) {
	af, err := strconv.ParseFloat(a, 64)
	if err != nil {
		return 0, err
	}
	bf, err := strconv.ParseFloat(b, 64)
	if err != nil {
		return 0, err
	}
	switch param {
	case "biggest":
		return floatSign(bf - af), nil
	case "smallest":
		return floatSign(af - bf), nil
	default:
		return 0, fmt.Errorf("invalid comparator parameter: %s", NumberComparator{}.Help())
	}
}

func (NumberComparator) Help() string {
	return "Compares numbers, e.g. @num:biggest or @num:smallest"
}

func floatSign(f float64) int {
	switch {
	case f > 0:
		return 1
	case f < 0:
		return -1
	default:
		return 0
	}
}

// DateComparator compares RFC-3339 timestamps.
type DateComparator struct{}

func (DateComparator) Filter(_, value string) bool {
	_, err := parseISODate(value)
	return err == nil
}

func (DateComparator) Compare(param, a, b string) (int, error) {
	at, err := parseISODate(a)
	if err != nil {
		return 0, err
	}
	bt, err := parseISODate(b)
	if err != nil {
		return 0, err
	}

	var result int
	switch {
	case at.After(bt):
		result = -1
	case at.Before(bt):
		result = 1
	}

	switch param {
	case "latest":
		return result, nil
	case "earliest":
		return -result, nil
	default:
		return 0, fmt.Errorf("invalid comparator parameter: %s", DateComparator{}.Help())
	}
}

func (DateComparator) Help() string {
	return "Compares dates, e.g. @date:latest or @date:earliest"
}

// parseISODate accepts both a bare RFC-3339 timestamp and the
// "YYYY-MM-DD HH:MM:SS+ZZ:ZZ" form produced by
// Metadata.CombinedAttrs's pubdate field.
func parseISODate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05-07:00", s)
}

// SemverComparator compares semantic versions, with optional range
// filtering (^X.Y.Z, ~X.Y.Z, >X.Y.Z, <X.Y.Z) and prerelease exclusion.
type SemverComparator struct{}

func (SemverComparator) parseParam(param string) (sortOrder, prereleaseFlag string) {
	parts := strings.SplitN(param, ",", 2)
	sortOrder = parts[0]
	if len(parts) > 1 {
		prereleaseFlag = parts[1]
	}
	return
}

func parseSemver(v string) (*semver.Version, error) {
	return semver.NewVersion(strings.TrimPrefix(v, "v"))
}

func (c SemverComparator) Filter(param, value string) bool {
	sortOrder, prereleaseFlag := c.parseParam(param)

	ver, err := parseSemver(value)
	if err != nil {
		return false
	}
	if prereleaseFlag != "prerelease" && ver.PreRelease != "" {
		return false
	}

	switch {
	case strings.HasPrefix(sortOrder, "^"):
		low, err := parseSemver(sortOrder[1:])
		if err != nil {
			return false
		}
		high := &semver.Version{Major: low.Major + 1}
		return !ver.LessThan(*low) && ver.LessThan(*high)
	case strings.HasPrefix(sortOrder, "~"):
		low, err := parseSemver(sortOrder[1:])
		if err != nil {
			return false
		}
		high := &semver.Version{Major: low.Major, Minor: low.Minor + 1}
		return !ver.LessThan(*low) && ver.LessThan(*high)
	case strings.HasPrefix(sortOrder, ">"):
		low, err := parseSemver(sortOrder[1:])
		if err != nil {
			return false
		}
		return low.LessThan(*ver)
	case strings.HasPrefix(sortOrder, "<"):
		high, err := parseSemver(sortOrder[1:])
		if err != nil {
			return false
		}
		return ver.LessThan(*high)
	default:
		return true
	}
}

func (c SemverComparator) Compare(param, a, b string) (int, error) {
	sortOrder, _ := c.parseParam(param)

	va, err := parseSemver(a)
	if err != nil {
		return 0, err
	}
	vb, err := parseSemver(b)
	if err != nil {
		return 0, err
	}
	result := va.Compare(*vb)

	if sortOrder == "newest" || (sortOrder != "" && strings.ContainsAny(sortOrder[:1], "^~><")) {
		return -result, nil
	}
	if sortOrder == "oldest" {
		return result, nil
	}
	return 0, fmt.Errorf("invalid comparator parameter: %s", SemverComparator{}.Help())
}

func (SemverComparator) Help() string {
	return "Compares semver versions, e.g. @semver:newest or @semver:oldest or @semver:'^1.1.0' or " +
		"@semver:'~1.1.0' or @semver:'>1.1.0' or @semver:'<1.1.0'. " +
		"Add `,prerelease` (e.g. `@semver:newest,prerelease`) to allow prerelease versions. " +
		"Only accepts semver versions, e.g. v1.2.3 or 1.2.3 or 1.2.3-alpha"
}

// GlobComparator filters by shell-style glob; it never orders (always
// returns 0 from Compare), matching the original's "always equal".
type GlobComparator struct{}

func (GlobComparator) Filter(param, value string) bool {
	ok, err := filepath.Match(param, value)
	return err == nil && ok
}

func (GlobComparator) Compare(_, _, _ string) (int, error) { return 0, nil }

func (GlobComparator) Help() string {
	return "Filters by glob, e.g. @glob:x86* or @glob:mips??32 or @glob:armv[67]*"
}

// RegexComparator filters by a regex anchored at the start of value
// (Go's regexp.MatchString has no direct re.match equivalent, so a
// value is accepted only when the leftmost match starts at index 0,
// matching Python's re.match semantics of "match at the start of the
// string").
type RegexComparator struct{}

func (RegexComparator) Filter(param, value string) bool {
	re, err := regexp.Compile(param)
	if err != nil {
		return false
	}
	loc := re.FindStringIndex(value)
	return loc != nil && loc[0] == 0
}

func (RegexComparator) Compare(_, _, _ string) (int, error) { return 0, nil }

func (RegexComparator) Help() string {
	return "Filters by regex, e.g. @regex:i386|x86_64 or @regex:^v1.[01234]$"
}
