// Package store provides SQLite persistence for the movie collection and an
// in-memory deduplication cache in front of it.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"movienight/internal/core"
)

// ErrMovieNotFound is returned when an operation targets a movie that is
// not in the collection.
var ErrMovieNotFound = errors.New("movie not found in collection")

const schema = `
CREATE TABLE IF NOT EXISTS movies (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    tmdb_id         INTEGER NOT NULL UNIQUE,
    title           TEXT    NOT NULL,
    year            INTEGER NOT NULL DEFAULT 0,
    poster_url      TEXT    NOT NULL DEFAULT '',
    genres          TEXT    NOT NULL DEFAULT '[]',
    overview        TEXT    NOT NULL DEFAULT '',
    added_by        TEXT    NOT NULL DEFAULT '',
    added_by_avatar TEXT    NOT NULL DEFAULT '',
    source_url      TEXT    NOT NULL DEFAULT '',
    added_at        TIMESTAMP NOT NULL,
    seen            INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_movies_added_at ON movies(added_at);
`

// SQLiteStore is the persistent movie collection backed by SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (and if needed creates) the collection database at
// the given path and applies the schema.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_timeout=5000&_fk=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Add inserts a movie into the collection. A zero AddedAt is filled with
// the current time; callers backfilling from chat history pass the original
// message timestamp instead.
func (s *SQLiteStore) Add(ctx context.Context, movie *core.Movie) error {
	if movie.AddedAt.IsZero() {
		movie.AddedAt = time.Now().UTC()
	}

	genres, err := json.Marshal(movie.Genres)
	if err != nil {
		return fmt.Errorf("failed to encode genres: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO movies
		    (tmdb_id, title, year, poster_url, genres, overview,
		     added_by, added_by_avatar, source_url, added_at, seen)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		movie.TMDBID, movie.Title, movie.Year, movie.PosterURL, string(genres),
		movie.Overview, movie.AddedBy, movie.AvatarURL, movie.SourceURL,
		movie.AddedAt, movie.Seen)
	if err != nil {
		return fmt.Errorf("failed to insert movie: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		movie.ID = id
	}

	return nil
}

// Exists reports whether a movie with the given TMDB ID is already in the
// collection.
func (s *SQLiteStore) Exists(ctx context.Context, tmdbID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM movies WHERE tmdb_id = ?`, tmdbID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check movie existence: %w", err)
	}
	return true, nil
}

// GetByTMDBID returns the movie with the given TMDB ID.
func (s *SQLiteStore) GetByTMDBID(ctx context.Context, tmdbID int64) (*core.Movie, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` FROM movies WHERE tmdb_id = ?`, tmdbID)
	return s.scanMovie(row)
}

// All returns every movie in the collection, newest first.
func (s *SQLiteStore) All(ctx context.Context) ([]core.Movie, error) {
	return s.queryMovies(ctx, selectColumns+` FROM movies ORDER BY added_at DESC, id DESC`)
}

// Recent returns the most recently added movies.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]core.Movie, error) {
	return s.queryMovies(ctx,
		selectColumns+` FROM movies ORDER BY added_at DESC, id DESC LIMIT ?`, limit)
}

// Count returns the total number of movies in the collection.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count movies: %w", err)
	}
	return count, nil
}

// Genres returns the sorted set of distinct genre names across the
// collection.
func (s *SQLiteStore) Genres(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT genres FROM movies`)
	if err != nil {
		return nil, fmt.Errorf("failed to query genres: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	set := make(map[string]struct{})
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan genres: %w", err)
		}

		var genres []string
		if err := json.Unmarshal([]byte(raw), &genres); err != nil {
			s.logger.Warn("Skipping undecodable genres column", zap.Error(err))
			continue
		}
		for _, g := range genres {
			set[g] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate genres: %w", err)
	}

	all := make([]string, 0, len(set))
	for g := range set {
		all = append(all, g)
	}
	sort.Strings(all)
	return all, nil
}

// Search returns movies whose title contains the query, case-insensitively,
// newest first.
func (s *SQLiteStore) Search(ctx context.Context, query string) ([]core.Movie, error) {
	return s.queryMovies(ctx,
		selectColumns+` FROM movies
		 WHERE title LIKE '%' || ? || '%' COLLATE NOCASE
		 ORDER BY added_at DESC, id DESC`, query)
}

// Delete removes the movie with the given TMDB ID.
func (s *SQLiteStore) Delete(ctx context.Context, tmdbID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM movies WHERE tmdb_id = ?`, tmdbID)
	if err != nil {
		return fmt.Errorf("failed to delete movie: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrMovieNotFound
	}
	return nil
}

// ToggleSeen flips the seen flag of the movie with the given collection ID
// and returns the updated record.
func (s *SQLiteStore) ToggleSeen(ctx context.Context, id int64) (*core.Movie, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE movies SET seen = NOT seen WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle seen: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrMovieNotFound
	}

	row := s.db.QueryRowContext(ctx, selectColumns+` FROM movies WHERE id = ?`, id)
	return s.scanMovie(row)
}

// SetSeen sets the seen flag of the movie with the given collection ID and
// returns the updated record.
func (s *SQLiteStore) SetSeen(ctx context.Context, id int64, seen bool) (*core.Movie, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE movies SET seen = ? WHERE id = ?`, seen, id)
	if err != nil {
		return nil, fmt.Errorf("failed to set seen: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrMovieNotFound
	}

	row := s.db.QueryRowContext(ctx, selectColumns+` FROM movies WHERE id = ?`, id)
	return s.scanMovie(row)
}

// AllTMDBIDs returns every TMDB ID in the collection, used to preload the
// deduplication cache at startup.
func (s *SQLiteStore) AllTMDBIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tmdb_id FROM movies`)
	if err != nil {
		return nil, fmt.Errorf("failed to query TMDB IDs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan TMDB ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate TMDB IDs: %w", err)
	}
	return ids, nil
}

const selectColumns = `SELECT id, tmdb_id, title, year, poster_url, genres,
    overview, added_by, added_by_avatar, source_url, added_at, seen`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanMovie(row rowScanner) (*core.Movie, error) {
	var m core.Movie
	var genres string

	err := row.Scan(&m.ID, &m.TMDBID, &m.Title, &m.Year, &m.PosterURL, &genres,
		&m.Overview, &m.AddedBy, &m.AvatarURL, &m.SourceURL, &m.AddedAt, &m.Seen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMovieNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan movie: %w", err)
	}

	if err := json.Unmarshal([]byte(genres), &m.Genres); err != nil {
		s.logger.Warn("Undecodable genres column, leaving empty",
			zap.Int64("tmdb_id", m.TMDBID), zap.Error(err))
		m.Genres = nil
	}

	return &m, nil
}

func (s *SQLiteStore) queryMovies(ctx context.Context, query string, args ...any) ([]core.Movie, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query movies: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var movies []core.Movie
	for rows.Next() {
		m, err := s.scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate movies: %w", err)
	}
	return movies, nil
}
