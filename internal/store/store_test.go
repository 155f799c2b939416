package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"movienight/internal/core"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "movies.db")
	s, err := NewSQLiteStore(path, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func testMovie(tmdbID int64, title string) *core.Movie {
	return &core.Movie{
		TMDBID:    tmdbID,
		Title:     title,
		Year:      1999,
		PosterURL: "https://image.tmdb.org/t/p/w500/poster.jpg",
		Genres:    []string{"Action", "Science Fiction"},
		Overview:  "Test overview",
		AddedBy:   "@tester",
		SourceURL: "https://www.imdb.com/title/tt0133093/",
	}
}

func TestAddAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	movie := testMovie(603, "The Matrix")
	if err := s.Add(ctx, movie); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if movie.ID == 0 {
		t.Error("Add must fill the row ID")
	}
	if movie.AddedAt.IsZero() {
		t.Error("Add must fill a zero AddedAt")
	}

	got, err := s.GetByTMDBID(ctx, 603)
	if err != nil {
		t.Fatalf("GetByTMDBID failed: %v", err)
	}
	if got.Title != "The Matrix" || got.Year != 1999 {
		t.Errorf("got %+v", got)
	}
	if len(got.Genres) != 2 || got.Genres[0] != "Action" {
		t.Errorf("Genres = %v", got.Genres)
	}
	if got.AddedBy != "@tester" {
		t.Errorf("AddedBy = %q", got.AddedBy)
	}
}

func TestAddDuplicateTMDBID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Add(ctx, testMovie(603, "The Matrix")); err != nil {
		t.Fatalf("first Add failed: %v", err)
	}
	if err := s.Add(ctx, testMovie(603, "The Matrix Again")); err == nil {
		t.Error("second Add with the same TMDB ID must fail")
	}
}

func TestExists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	exists, err := s.Exists(ctx, 603)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("empty store must not report a movie as existing")
	}

	if err := s.Add(ctx, testMovie(603, "The Matrix")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	exists, err = s.Exists(ctx, 603)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("added movie must be reported as existing")
	}
}

func TestGetByTMDBIDNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetByTMDBID(context.Background(), 42)
	if !errors.Is(err, ErrMovieNotFound) {
		t.Errorf("err = %v, want ErrMovieNotFound", err)
	}
}

func TestRecentOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, title := range []string{"Oldest", "Middle", "Newest"} {
		movie := testMovie(int64(100+i), title)
		movie.AddedAt = base.Add(time.Duration(i) * time.Hour)
		if err := s.Add(ctx, movie); err != nil {
			t.Fatalf("Add %s failed: %v", title, err)
		}
	}

	recent, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len(recent) = %d, want 2", len(recent))
	}
	if recent[0].Title != "Newest" || recent[1].Title != "Middle" {
		t.Errorf("recent order = [%s %s], want [Newest Middle]", recent[0].Title, recent[1].Title)
	}
}

func TestCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := int64(0); i < 3; i++ {
		if err := s.Add(ctx, testMovie(200+i, "Movie")); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Count = %d, want 3", count)
	}
}

func TestGenresDistinctSorted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := testMovie(1, "First")
	first.Genres = []string{"Drama", "Action"}
	second := testMovie(2, "Second")
	second.Genres = []string{"Action", "Comedy"}

	for _, m := range []*core.Movie{first, second} {
		if err := s.Add(ctx, m); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	genres, err := s.Genres(ctx)
	if err != nil {
		t.Fatalf("Genres failed: %v", err)
	}

	want := []string{"Action", "Comedy", "Drama"}
	if len(genres) != len(want) {
		t.Fatalf("Genres = %v, want %v", genres, want)
	}
	for i := range want {
		if genres[i] != want[i] {
			t.Errorf("Genres[%d] = %q, want %q", i, genres[i], want[i])
		}
	}
}

func TestSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Add(ctx, testMovie(603, "The Matrix")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := s.Add(ctx, testMovie(27205, "Inception")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	results, err := s.Search(ctx, "matrix")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].Title != "The Matrix" {
		t.Errorf("Search(matrix) = %v", results)
	}

	results, err = s.Search(ctx, "no such title")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search(no such title) = %v, want empty", results)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Add(ctx, testMovie(603, "The Matrix")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := s.Delete(ctx, 603); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	exists, err := s.Exists(ctx, 603)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("deleted movie must not exist")
	}

	if err := s.Delete(ctx, 603); !errors.Is(err, ErrMovieNotFound) {
		t.Errorf("Delete of missing movie = %v, want ErrMovieNotFound", err)
	}
}

func TestToggleSeen(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	movie := testMovie(603, "The Matrix")
	if err := s.Add(ctx, movie); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	toggled, err := s.ToggleSeen(ctx, movie.ID)
	if err != nil {
		t.Fatalf("ToggleSeen failed: %v", err)
	}
	if !toggled.Seen {
		t.Error("first toggle must mark the movie seen")
	}

	toggled, err = s.ToggleSeen(ctx, movie.ID)
	if err != nil {
		t.Fatalf("ToggleSeen failed: %v", err)
	}
	if toggled.Seen {
		t.Error("second toggle must mark the movie unseen")
	}

	if _, err := s.ToggleSeen(ctx, 9999); !errors.Is(err, ErrMovieNotFound) {
		t.Errorf("ToggleSeen of missing id = %v, want ErrMovieNotFound", err)
	}
}

func TestSetSeen(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	movie := testMovie(603, "The Matrix")
	if err := s.Add(ctx, movie); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	updated, err := s.SetSeen(ctx, movie.ID, true)
	if err != nil {
		t.Fatalf("SetSeen failed: %v", err)
	}
	if !updated.Seen {
		t.Error("SetSeen(true) must mark the movie seen")
	}

	updated, err = s.SetSeen(ctx, movie.ID, true)
	if err != nil {
		t.Fatalf("SetSeen failed: %v", err)
	}
	if !updated.Seen {
		t.Error("SetSeen must be idempotent")
	}
}

func TestAllTMDBIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := map[int64]bool{603: true, 27205: true}
	for id := range want {
		if err := s.Add(ctx, testMovie(id, "Movie")); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	ids, err := s.AllTMDBIDs(ctx)
	if err != nil {
		t.Fatalf("AllTMDBIDs failed: %v", err)
	}
	if len(ids) != len(want) {
		t.Fatalf("AllTMDBIDs = %v, want %d ids", ids, len(want))
	}
	for _, id := range ids {
		if !want[id] {
			t.Errorf("unexpected TMDB ID %d", id)
		}
	}
}
