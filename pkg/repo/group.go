package repo

import (
	"context"

	"github.com/Wazzaps/ampm/pkg/apperr"
	"github.com/Wazzaps/ampm/pkg/query"
)

// Group layers a LocalRepo cache in front of an optional RemoteRepo,
// mirroring ampm/repo/base.py's RepoGroup: exact queries are checked
// against every repo in order; non-exact queries first refresh the
// local metadata cache from each remote, then resolve entirely
// against the local cache (spec.md §4.6's lookup entry point).
type Group struct {
	Local  *LocalRepo
	Remote *RemoteRepo // nil when running --offline
}

// NewGroup returns a Group over local, optionally backed by remote.
func NewGroup(local *LocalRepo, remote *RemoteRepo) *Group {
	return &Group{Local: local, Remote: remote}
}

// Lookup resolves q across the group, mirroring RepoGroup.lookup.
func (g *Group) Lookup(ctx context.Context, q query.Query) ([]query.Candidate, error) {
	if q.IsExact() {
		local, err := g.Local.Lookup(q)
		if err != nil {
			return nil, err
		}
		if len(local) > 0 {
			return local, nil
		}
		if g.Remote == nil {
			return nil, nil
		}
		candidate, err := g.Remote.LookupExact(ctx, g.Local, q)
		if err != nil {
			return nil, err
		}
		if candidate == nil {
			return nil, nil
		}
		return []query.Candidate{*candidate}, nil
	}

	if g.Remote != nil {
		if err := g.Remote.DownloadMetadataForType(ctx, g.Local, q.Type); err != nil {
			return nil, err
		}
	}
	return g.Local.Lookup(q)
}

// LookupSingle resolves q to exactly one candidate, mirroring
// RepoGroup.lookup_single.
func (g *Group) LookupSingle(ctx context.Context, q query.Query) (query.Candidate, error) {
	results, err := g.Lookup(ctx, q)
	if err != nil {
		return query.Candidate{}, err
	}
	if len(results) == 0 {
		return query.Candidate{}, &apperr.QueryNotFoundError{Query: q.AsAppErr()}
	}
	if len(results) > 1 {
		opts := make([]string, len(results))
		for i, r := range results {
			opts[i] = r.Metadata.Type + ":" + r.Hash
		}
		return query.Candidate{}, &apperr.AmbiguousQueryError{Query: q.AsAppErr(), Options: opts}
	}
	return results[0], nil
}

// GetSingle resolves q and ensures the artifact is materialized
// locally, downloading it from Remote on a local cache miss,
// mirroring RepoGroup.get_single.
func (g *Group) GetSingle(ctx context.Context, q query.Query) (string, query.Candidate, error) {
	candidate, err := g.LookupSingle(ctx, q)
	if err != nil {
		return "", query.Candidate{}, err
	}

	if path, err := g.Local.Download(candidate.Metadata, candidate.Hash); err == nil {
		return path, candidate, nil
	}

	if g.Remote == nil {
		return "", query.Candidate{}, &apperr.QueryNotFoundError{Query: q.AsAppErr()}
	}
	path, err := g.Remote.Download(ctx, g.Local, candidate.Metadata, candidate.Hash)
	if err != nil {
		return "", query.Candidate{}, err
	}
	return path, candidate, nil
}
