// Package resolver turns extracted movie links into canonical movie records.
package resolver

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"movienight/internal/core"
	"movienight/internal/tmdb"
	"movienight/pkg/movielink"
)

// Lookup is the external movie database consulted during resolution.
type Lookup interface {
	FindByIMDbID(ctx context.Context, imdbID string) (*core.Movie, error)
	SearchMovie(ctx context.Context, title string, year int) (*core.Movie, error)
}

// Resolver dispatches link descriptors to the matching lookup strategy.
// It holds no cross-call state; every Resolve call is independent.
type Resolver struct {
	lookup Lookup
	logger *zap.Logger
}

// New creates a resolver backed by the given lookup service.
func New(lookup Lookup, logger *zap.Logger) *Resolver {
	return &Resolver{
		lookup: lookup,
		logger: logger,
	}
}

// Resolve produces the canonical movie record for one link. The boolean is
// false for every kind of non-result: Netflix links (no resolution path
// exists), empty lookups, and transport failures, which are logged and
// downgraded here so they never reach callers or abort sibling links.
func (r *Resolver) Resolve(ctx context.Context, link movielink.Link) (*core.Movie, bool) {
	switch link.Source {
	case movielink.SourceIMDb:
		movie, err := r.lookup.FindByIMDbID(ctx, link.IMDbID)
		return r.result(link, movie, err)

	case movielink.SourceRottenTomatoes:
		title, year := movielink.SlugQuery(link.RTSlug)
		movie, err := r.lookup.SearchMovie(ctx, title, year)
		return r.result(link, movie, err)

	case movielink.SourceNetflix:
		// Netflix numeric IDs are not convertible to titles; skip without
		// even attempting a lookup.
		return nil, false

	default:
		return nil, false
	}
}

func (r *Resolver) result(link movielink.Link, movie *core.Movie, err error) (*core.Movie, bool) {
	if err != nil {
		if errors.Is(err, tmdb.ErrNotFound) {
			r.logger.Debug("No match for movie link",
				zap.String("source", string(link.Source)),
				zap.String("url", link.OriginalURL))
		} else {
			r.logger.Warn("Movie lookup failed",
				zap.String("source", string(link.Source)),
				zap.String("url", link.OriginalURL),
				zap.Error(err))
		}
		return nil, false
	}
	return movie, true
}
