// Package movielink extracts movie page links (IMDb, Netflix, Rotten Tomatoes)
// from free-form chat text.
package movielink

import (
	"regexp"
	"strconv"
	"strings"
)

// Source identifies the site a link was recognized from.
type Source string

// Recognized link sources.
const (
	SourceIMDb           Source = "imdb"
	SourceNetflix        Source = "netflix"
	SourceRottenTomatoes Source = "rottentomatoes"
)

// Link is the structured result of parsing one movie URL occurrence.
// Exactly one of IMDbID and RTSlug is set, consistent with Source;
// Netflix links carry neither because numeric Netflix IDs cannot be
// resolved to a title without an extra lookup this system does not do.
type Link struct {
	Source      Source
	IMDbID      string // tt-prefixed id, only when Source == SourceIMDb.
	RTSlug      string // raw path slug, only when Source == SourceRottenTomatoes.
	OriginalURL string // exact matched substring, for user-facing echoes.
}

var (
	// Matches imdb.com/title/tt1234567 with optional www. or m. prefix.
	imdbRegex = regexp.MustCompile(`(?i)https?://(?:www\.|m\.)?imdb\.com/title/(tt\d+)`)

	// Matches netflix.com/title/123 and /watch/123, with an optional
	// locale prefix like /ro/, /en-gb/.
	netflixRegex = regexp.MustCompile(`(?i)https?://(?:www\.)?netflix\.com/(?:[a-z]{2}(?:-[a-z]{2})?/)?(?:title|watch)/(\d+)`)

	// Matches rottentomatoes.com/m/movie_slug.
	rottenTomatoesRegex = regexp.MustCompile(`(?i)https?://(?:www\.)?rottentomatoes\.com/m/([a-zA-Z0-9_]+)`)

	// Trailing year suffix on a Rotten Tomatoes slug, e.g. the_matrix_1999.
	slugYearRegex = regexp.MustCompile(`_(\d{4})$`)
)

// Extract returns every movie link found in text. Matches are grouped by
// source: all IMDb links in text order, then all Netflix links, then all
// Rotten Tomatoes links. Downstream processing relies on this order.
// Text with no links yields a nil slice.
func Extract(text string) []Link {
	var links []Link

	for _, m := range imdbRegex.FindAllStringSubmatch(text, -1) {
		links = append(links, Link{
			Source:      SourceIMDb,
			IMDbID:      m[1],
			OriginalURL: m[0],
		})
	}

	for _, m := range netflixRegex.FindAllStringSubmatch(text, -1) {
		links = append(links, Link{
			Source:      SourceNetflix,
			OriginalURL: m[0],
		})
	}

	for _, m := range rottenTomatoesRegex.FindAllStringSubmatch(text, -1) {
		links = append(links, Link{
			Source:      SourceRottenTomatoes,
			RTSlug:      m[1],
			OriginalURL: m[0],
		})
	}

	return links
}

// Contains reports whether text holds at least one recognizable movie link.
// It is the cheap gate used before Extract and agrees exactly with
// len(Extract(text)) > 0.
func Contains(text string) bool {
	return imdbRegex.MatchString(text) ||
		netflixRegex.MatchString(text) ||
		rottenTomatoesRegex.MatchString(text)
}

// SlugQuery derives a search title and an optional year hint from a Rotten
// Tomatoes slug. A trailing underscore followed by exactly four digits is
// taken as a year hint and stripped; remaining underscores become spaces.
// year is 0 when the slug carries no hint.
func SlugQuery(slug string) (title string, year int) {
	if m := slugYearRegex.FindStringSubmatchIndex(slug); m != nil {
		year, _ = strconv.Atoi(slug[m[2]:m[3]])
		slug = slug[:m[0]]
	}
	return strings.ReplaceAll(slug, "_", " "), year
}
