// Package tmdb provides a client for The Movie Database (TMDB) v3 API.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"movienight/internal/core"
)

const (
	// RequestTimeout bounds every TMDB API call.
	RequestTimeout = 10 * time.Second
	// releaseDateYearLength is the number of leading release_date bytes
	// holding the year.
	releaseDateYearLength = 4
)

// ErrNotFound is returned when a lookup succeeds but matches no movie.
var ErrNotFound = errors.New("movie not found on TMDB")

// Client talks to the TMDB v3 API.
type Client struct {
	config *core.TMDBConfig
	logger *zap.Logger
	client *http.Client
}

// NewClient creates a TMDB API client.
func NewClient(config *core.TMDBConfig, logger *zap.Logger) *Client {
	return &Client{
		config: config,
		logger: logger,
		client: &http.Client{
			Timeout: RequestTimeout,
		},
	}
}

// moviePayload is the movie shape shared by all TMDB endpoints. Search and
// find responses populate GenreIDs; the detail endpoint populates Genres
// with named objects instead. Which list is present decides the
// normalization path.
type moviePayload struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
	PosterPath  string `json:"poster_path"`
	Overview    string `json:"overview"`
	GenreIDs    []int  `json:"genre_ids"`
	Genres      []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
}

// FindByIMDbID looks a movie up by its IMDb ID via the /find cross-reference
// endpoint. Only the movie_results category is considered; TV and person
// matches are ignored. An empty category means ErrNotFound.
func (c *Client) FindByIMDbID(ctx context.Context, imdbID string) (*core.Movie, error) {
	params := url.Values{}
	params.Set("external_source", "imdb_id")

	var resp struct {
		MovieResults []moviePayload `json:"movie_results"`
	}
	if err := c.get(ctx, "/find/"+url.PathEscape(imdbID), params, &resp); err != nil {
		return nil, err
	}

	if len(resp.MovieResults) == 0 {
		return nil, ErrNotFound
	}

	return c.normalize(&resp.MovieResults[0]), nil
}

// SearchMovie searches by free-text title, optionally constrained by a
// release year (year 0 means no constraint). TMDB's own relevance ranking
// is trusted: the first result wins.
func (c *Client) SearchMovie(ctx context.Context, title string, year int) (*core.Movie, error) {
	params := url.Values{}
	params.Set("query", title)
	if year > 0 {
		params.Set("year", strconv.Itoa(year))
	}

	var resp struct {
		Results []moviePayload `json:"results"`
	}
	if err := c.get(ctx, "/search/movie", params, &resp); err != nil {
		return nil, err
	}

	if len(resp.Results) == 0 {
		return nil, ErrNotFound
	}

	return c.normalize(&resp.Results[0]), nil
}

// MovieDetails fetches a movie directly by TMDB ID. The detail endpoint
// returns genres as named objects, so no ID table lookup happens.
func (c *Client) MovieDetails(ctx context.Context, tmdbID int64) (*core.Movie, error) {
	var payload moviePayload
	err := c.get(ctx, "/movie/"+strconv.FormatInt(tmdbID, 10), nil, &payload)
	if err != nil {
		return nil, err
	}

	if payload.ID == 0 {
		return nil, ErrNotFound
	}

	return c.normalize(&payload), nil
}

// get performs an authenticated GET against the TMDB API and decodes the
// JSON response into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.config.APIKey)

	reqURL := c.config.BaseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to build TMDB request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("TMDB request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("TMDB returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode TMDB response: %w", err)
	}

	return nil
}

// normalize converts either TMDB payload shape into the uniform movie
// record. Individual malformed fields degrade to absent values instead of
// failing the record.
func (c *Client) normalize(p *moviePayload) *core.Movie {
	year := 0
	if len(p.ReleaseDate) >= releaseDateYearLength {
		if y, err := strconv.Atoi(p.ReleaseDate[:releaseDateYearLength]); err == nil {
			year = y
		}
	}

	posterURL := ""
	if p.PosterPath != "" {
		posterURL = c.config.ImageBaseURL + p.PosterPath
	}

	var genres []string
	if len(p.Genres) > 0 {
		// Detail shape: names come straight from the response.
		genres = make([]string, 0, len(p.Genres))
		for _, g := range p.Genres {
			genres = append(genres, g.Name)
		}
	} else {
		genres = genreNames(p.GenreIDs)
	}

	return &core.Movie{
		TMDBID:    p.ID,
		Title:     p.Title,
		Year:      year,
		PosterURL: posterURL,
		Genres:    genres,
		Overview:  p.Overview,
	}
}
