package core

import (
	"context"
	"time"

	"movienight/pkg/movielink"
)

// Movie is the uniform record shape produced by metadata resolution,
// regardless of which TMDB endpoint it came from. TMDBID is the sole
// deduplication key for the collection.
type Movie struct {
	ID        int64     `json:"id"`
	TMDBID    int64     `json:"tmdb_id"`
	Title     string    `json:"title"`
	Year      int       `json:"year,omitempty"` // 0 when the release date is missing or malformed.
	PosterURL string    `json:"poster_url,omitempty"`
	Genres    []string  `json:"genres"`
	Overview  string    `json:"overview"`
	AddedBy   string    `json:"added_by,omitempty"`
	AvatarURL string    `json:"added_by_avatar,omitempty"`
	SourceURL string    `json:"source_url,omitempty"`
	AddedAt   time.Time `json:"added_at"`
	Seen      bool      `json:"seen"`
}

// Resolver turns a link descriptor into a canonical movie record.
// The second return is false for every kind of non-result: unsupported
// sources, empty lookups and downgraded transport failures alike.
type Resolver interface {
	Resolve(ctx context.Context, link movielink.Link) (*Movie, bool)
}

// MovieStore is the persistent movie collection.
type MovieStore interface {
	Add(ctx context.Context, movie *Movie) error
	Exists(ctx context.Context, tmdbID int64) (bool, error)
	GetByTMDBID(ctx context.Context, tmdbID int64) (*Movie, error)
	All(ctx context.Context) ([]Movie, error)
	Recent(ctx context.Context, limit int) ([]Movie, error)
	Count(ctx context.Context) (int, error)
	Genres(ctx context.Context) ([]string, error)
	Search(ctx context.Context, query string) ([]Movie, error)
	Delete(ctx context.Context, tmdbID int64) error
	ToggleSeen(ctx context.Context, id int64) (*Movie, error)
	SetSeen(ctx context.Context, id int64, seen bool) (*Movie, error)
	AllTMDBIDs(ctx context.Context) ([]int64, error)
}

// DedupCache is the in-memory fast path in front of the store's
// existence check.
type DedupCache interface {
	Has(tmdbID int64) bool
	Add(tmdbID int64)
	Remove(tmdbID int64)
	Load(tmdbIDs []int64)
	Size() int
}
