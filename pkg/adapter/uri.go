package adapter

import (
	"strings"

	"github.com/Wazzaps/ampm/pkg/apperr"
)

// RepoURI is a parsed repository identifier, mirroring
// ampm/repo/base.py's ArtifactRepo.by_uri: `protocol://rest`.
type RepoURI struct {
	Protocol string
	Rest     string
}

// ParseRepoURI splits uri into protocol and rest, rejecting anything
// that doesn't contain "://", mirroring ArtifactRepo.by_uri's assert.
func ParseRepoURI(uri string) (RepoURI, error) {
	protocol, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return RepoURI{}, &apperr.ValidationError{
			Field:  "uri",
			Reason: "must be in the format `protocol://host/path`, e.g. `nfs://localhost/`, but got: " + uri,
		}
	}
	return RepoURI{Protocol: protocol, Rest: rest}, nil
}
