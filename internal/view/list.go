package view

import (
	"strconv"

	"github.com/mark-c-hall/whatmovies/internal/models"
)

// ListPage is one of the header's movie list pages, or the favorites page.
type ListPage struct {
	Title      string
	From       string
	Cards      []Card
	Error      string
	Empty      string
	Page       int
	TotalPages int
	PrevHref   string
	NextHref   string
}

func NewListPage(title, from, path string, list *models.MovieList, imageBase string) ListPage {
	page := ListPage{Title: title, From: from}
	if list == nil {
		return page
	}

	page.Page = list.Page
	page.TotalPages = list.TotalPages
	if list.Page > 1 {
		page.PrevHref = PageHref(path, list.Page-1)
	}
	if list.Page < list.TotalPages {
		page.NextHref = PageHref(path, list.Page+1)
	}

	page.Cards = make([]Card, 0, len(list.Results))
	for _, m := range list.Results {
		page.Cards = append(page.Cards, newCard(m, MovieHref(m.ID, from), imageBase))
	}
	return page
}

// NewFavoritesPage lists favorite movies in the order given.
func NewFavoritesPage(movies []models.Movie, imageBase string) ListPage {
	page := ListPage{Title: "My Favorites", From: "my-favorites", Empty: "No tienes películas favoritas."}
	page.Cards = make([]Card, 0, len(movies))
	for _, m := range movies {
		page.Cards = append(page.Cards, newCard(m, MovieHref(m.ID, page.From), imageBase))
	}
	return page
}

func PageHref(path string, page int) string {
	if page <= 1 {
		return path
	}
	return path + "?page=" + strconv.Itoa(page)
}
