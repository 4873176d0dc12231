package view

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/mark-c-hall/whatmovies/internal/models"
	"github.com/mark-c-hall/whatmovies/internal/tmdb"
)

const (
	MaxTopRatedCards = 8

	LoadingMessage  = "Cargando película..."
	NotFoundMessage = "No movie found."

	AddFavoriteLabel    = "Agregar a Favoritos"
	RemoveFavoriteLabel = "Quitar de Favoritos"

	favoriteBaseClass     = "px-4 py-2 rounded font-semibold transition-transform duration-200 ease-out transform"
	favoriteActiveClass   = "bg-red-500 text-white hover:bg-red-600 active:scale-95"
	favoriteInactiveClass = "bg-gray-200 text-gray-800 hover:bg-gray-300 active:scale-95 dark:bg-gray-700 dark:text-gray-200 dark:hover:bg-gray-600"
)

type Card struct {
	ID       int
	Title    string
	Href     string
	ImageURL string
	Rating   string
}

type FavoriteButton struct {
	Active   bool
	Disabled bool
	Label    string
	Class    string
}

type DetailPage struct {
	ID       string
	Loading  bool
	Error    string
	NotFound bool
	Notice   string

	Title     string
	Year      string
	Rating    string
	Runtime   string
	Overview  string
	PosterURL string
	Genres    []models.Genre
	From      string
	Favorite  FavoriteButton

	TopRated []Card
}

// ShowPanel reports whether the movie panel has content to render.
func (p DetailPage) ShowPanel() bool {
	return !p.Loading && p.Error == "" && !p.NotFound
}

// NewDetailPage builds the detail page from a settled (or pending) State.
// A failed movie fetch replaces the panel with its message; a failed
// top-rated fetch only drops the carousel.
func NewDetailPage(state State, isFavorite bool, from, imageBase string) DetailPage {
	page := DetailPage{
		ID:       state.ID,
		From:     from,
		Favorite: NewFavoriteButton(isFavorite, state.ID == ""),
	}

	switch state.Movie.Status {
	case StatusPending:
		page.Loading = true
		page.Notice = LoadingMessage
	case StatusError:
		page.Error = state.Movie.Err
	case StatusSuccess:
		movie := state.Movie.Data
		if movie == nil {
			page.NotFound = true
			page.Notice = NotFoundMessage
			break
		}
		page.Title = movie.Title
		page.Year = Year(movie.ReleaseDate)
		page.Rating = Rating(movie.VoteAverage)
		page.Runtime = Runtime(movie.Runtime)
		page.Overview = movie.Overview
		page.PosterURL = tmdb.ImageURL(imageBase, tmdb.PosterSize, movie.PosterPath)
		if len(movie.Genres) > 0 {
			page.Genres = movie.Genres
		}
	}

	if state.TopRated.OK() {
		page.TopRated = TopRatedCards(state.TopRated.Data, imageBase)
	}

	return page
}

func NewFavoriteButton(active, disabled bool) FavoriteButton {
	b := FavoriteButton{Active: active, Disabled: disabled}
	if active {
		b.Label = RemoveFavoriteLabel
		b.Class = favoriteBaseClass + " " + favoriteActiveClass
	} else {
		b.Label = AddFavoriteLabel
		b.Class = favoriteBaseClass + " " + favoriteInactiveClass
	}
	return b
}

// TopRatedCards keeps at most MaxTopRatedCards entries in source order.
func TopRatedCards(movies []models.Movie, imageBase string) []Card {
	if len(movies) > MaxTopRatedCards {
		movies = movies[:MaxTopRatedCards]
	}
	cards := make([]Card, 0, len(movies))
	for _, m := range movies {
		cards = append(cards, newCard(m, MovieHref(m.ID, ""), imageBase))
	}
	return cards
}

func newCard(m models.Movie, href, imageBase string) Card {
	return Card{
		ID:       m.ID,
		Title:    m.Title,
		Href:     href,
		ImageURL: tmdb.ImageURL(imageBase, tmdb.CardSize, m.PosterPath),
		Rating:   Rating(m.VoteAverage),
	}
}

// MovieHref links to a detail page, tagging it with the referrer when set.
func MovieHref(id int, from string) string {
	href := "/movie/" + strconv.Itoa(id)
	if from != "" {
		href += "?" + url.Values{"from": {from}}.Encode()
	}
	return href
}

// Year is the first four characters of a release date.
func Year(releaseDate string) string {
	if len(releaseDate) > 4 {
		return releaseDate[:4]
	}
	return releaseDate
}

func Rating(voteAverage *float64) string {
	if voteAverage == nil {
		return ""
	}
	return strconv.FormatFloat(*voteAverage, 'f', 1, 64)
}

func Runtime(minutes *int) string {
	if minutes == nil {
		return ""
	}
	return fmt.Sprintf("%d min", *minutes)
}
