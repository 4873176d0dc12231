package models

import "time"

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Movie is a TMDB movie record. Attributes the API may omit are pointers or
// empty values; Genres is nil for list results, which carry only genre ids.
type Movie struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Overview    string   `json:"overview"`
	PosterPath  string   `json:"poster_path"`
	VoteAverage *float64 `json:"vote_average"`
	Runtime     *int     `json:"runtime"`
	ReleaseDate string   `json:"release_date"`
	Genres      []Genre  `json:"genres"`
}

type MovieList struct {
	Page         int     `json:"page"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
	Results      []Movie `json:"results"`
}

type Favorite struct {
	Visitor   string
	MovieID   string
	CreatedAt time.Time
}
