// Package apperr defines the typed error taxonomy shared across
// pkg/artifact, pkg/repo, and pkg/query, mirroring the exception
// hierarchy of ampm/repo/base.py (AmbiguousQueryError,
// QueryNotFoundError) and ampm/attribute_comparators.py
// (AmbiguousComparisonError), plus the filesystem-facing errors
// surfaced by ampm/cli.py's top-level handler (PermissionError) and
// the NFS adapter's path-traversal guard.
package apperr

import (
	"errors"
	"fmt"
)

// ArtifactQuery is the minimal query shape apperr needs to report on;
// pkg/query defines the full type and satisfies this via identity.
type ArtifactQuery struct {
	Type string
	Hash string
	Attr map[string]string
}

func (q ArtifactQuery) String() string {
	if q.Hash != "" {
		return fmt.Sprintf("%s:%s", q.Type, q.Hash)
	}
	pairs := ""
	for k, v := range q.Attr {
		if pairs != "" {
			pairs += ", "
		}
		pairs += fmt.Sprintf("%s=%q", k, v)
	}
	return fmt.Sprintf("%s(%s)", q.Type, pairs)
}

// QueryNotFoundError reports that a query matched no artifacts in any
// searched repo, mirroring ampm/repo/base.py's QueryNotFoundError.
type QueryNotFoundError struct {
	Query ArtifactQuery
}

func (e *QueryNotFoundError) Error() string {
	return fmt.Sprintf("no artifact found matching %s", e.Query)
}

// AmbiguousQueryError reports that a non-exact query matched more than
// one artifact and no tie-break rule resolved it, mirroring
// ampm/repo/base.py's AmbiguousQueryError. Options holds a short
// description of each candidate for display, not the full metadata.
type AmbiguousQueryError struct {
	Query   ArtifactQuery
	Options []string
}

func (e *AmbiguousQueryError) Error() string {
	return fmt.Sprintf("query %s is ambiguous: %d candidates", e.Query, len(e.Options))
}

// AmbiguousComparisonError reports that an attribute comparator found
// two or more candidates it could not order relative to each other
// (e.g. semver build-metadata ties), mirroring
// ampm/attribute_comparators.py's AmbiguousComparisonError.
type AmbiguousComparisonError struct {
	Attribute string
	Values    []string
}

func (e *AmbiguousComparisonError) Error() string {
	return fmt.Sprintf("ambiguous comparison on attribute %q: values %v cannot be totally ordered", e.Attribute, e.Values)
}

// ArtifactCorruptedError reports that a downloaded artifact's content
// hash did not match its metadata's path_hash, mirroring the
// integrity check in ampm/artifact_store.py.
type ArtifactCorruptedError struct {
	Identity string
	Expected string
	Actual   string
}

func (e *ArtifactCorruptedError) Error() string {
	return fmt.Sprintf("artifact %s corrupted: expected hash %s, got %s", e.Identity, e.Expected, e.Actual)
}

// ConnectionError wraps a transport-layer failure (NFS mount/RPC) with
// the remote endpoint it was trying to reach, mirroring
// ampm/nfs.py's bare `raise ConnectionError(...)` calls.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// PermissionError reports that a filesystem or NFS operation failed
// due to insufficient privileges, paired with remediation text the
// CLI prints to the user, mirroring ampm/cli.py's top-level
// `except PermissionError` handler that prints a chmod/chown hint.
type PermissionError struct {
	Path   string
	Remedy string
	Err    error
}

func (e *PermissionError) Error() string {
	if e.Remedy != "" {
		return fmt.Sprintf("permission denied: %s (%s)", e.Path, e.Remedy)
	}
	return fmt.Sprintf("permission denied: %s", e.Path)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// PathTraversalError reports that a requested path escaped its
// intended base directory, raised by pkg/adapter's path guard before
// any filesystem or NFS call is issued on the offending path.
type PathTraversalError struct {
	Base      string
	Requested string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("path %q escapes base directory %q", e.Requested, e.Base)
}

// ValidationError reports malformed user input (query identifiers,
// attribute filters, URIs) rejected before any network or filesystem
// operation, mirroring the assert statements throughout
// ampm/repo/base.py and ampm/cli.py (e.g. artifact hash length,
// `protocol://host/path` URI shape).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ErrLockHeld reports a lockfile held by another live process. No code
// path in this module returns it: pkg/lock's Take waits for the holder
// to release the lock or go stale instead.
var ErrLockHeld = errors.New("apperr: lockfile held by another process")

// ErrOffline reports a remote operation attempted under --offline. No
// code path in this module returns it: with --offline, repo.Group runs
// without a RemoteRepo and remote steps are skipped.
var ErrOffline = errors.New("apperr: remote repository access disabled by --offline")
