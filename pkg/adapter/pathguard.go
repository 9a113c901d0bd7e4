package adapter

import (
	"strings"

	"github.com/Wazzaps/ampm/pkg/apperr"
)

// ValidateRemotePath rejects path segments beginning with '.' and
// components equal to '..', per spec.md §3 Invariant 5 ("path
// segments beginning with `.` and components equal to `..` are
// rejected at every boundary that accepts a remote path"), grounded
// on ampm/repo/nfs.py's _validate_path (which only checked for a
// leading '.' or '/.'; the spec's Invariant 5 is the generalized
// per-segment form this implements).
func ValidateRemotePath(base, remotePath string) error {
	for _, segment := range strings.Split(remotePath, "/") {
		if segment == "" {
			continue
		}
		if segment == ".." || strings.HasPrefix(segment, ".") {
			return &apperr.PathTraversalError{Base: base, Requested: remotePath}
		}
	}
	return nil
}
