package tmdb

// UnknownGenre is the name substituted for genre IDs missing from the
// static table.
const UnknownGenre = "Unknown"

// movieGenres is TMDB's movie genre catalog. It is constant data that
// changes rarely enough to hardcode; search and find responses only carry
// bare IDs, so this table turns them into display names.
var movieGenres = map[int]string{
	28:    "Action",
	12:    "Adventure",
	16:    "Animation",
	35:    "Comedy",
	80:    "Crime",
	99:    "Documentary",
	18:    "Drama",
	10751: "Family",
	14:    "Fantasy",
	36:    "History",
	27:    "Horror",
	10402: "Music",
	9648:  "Mystery",
	10749: "Romance",
	878:   "Science Fiction",
	10770: "TV Movie",
	53:    "Thriller",
	10752: "War",
	37:    "Western",
}

// genreNames maps genre IDs to names, preserving order and length.
// Unmapped IDs become UnknownGenre rather than being dropped.
func genreNames(ids []int) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		name, ok := movieGenres[id]
		if !ok {
			name = UnknownGenre
		}
		names = append(names, name)
	}
	return names
}
