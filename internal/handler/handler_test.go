package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mark-c-hall/whatmovies/internal/config"
	"github.com/mark-c-hall/whatmovies/internal/favorites"
	mw "github.com/mark-c-hall/whatmovies/internal/middleware"
	"github.com/mark-c-hall/whatmovies/internal/models"
	"github.com/mark-c-hall/whatmovies/internal/tmdb"
	"github.com/mark-c-hall/whatmovies/web"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("github.com/mark-c-hall/whatmovies/internal/middleware.(*clientLimiter).sweep"))
}

const testVisitor = "0f8fad5b-d9cb-469f-a165-70867728950e"

type fakeCatalog struct {
	mu       sync.Mutex
	movies   map[string]*models.Movie
	movieErr map[string]error
	topRated *models.MovieList
	topErr   error
	popular  *models.MovieList
	listErr  error
}

func (f *fakeCatalog) GetMovieByID(_ context.Context, id string) (*models.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.movieErr[id]; err != nil {
		return nil, err
	}
	m, ok := f.movies[id]
	if !ok {
		return nil, tmdb.ErrNotFound
	}
	return m, nil
}

func (f *fakeCatalog) GetTopRatedMovies(context.Context, int) (*models.MovieList, error) {
	return f.topRated, f.topErr
}

func (f *fakeCatalog) GetPopularMovies(context.Context, int) (*models.MovieList, error) {
	return f.popular, f.listErr
}

func (f *fakeCatalog) GetNowPlayingMovies(context.Context, int) (*models.MovieList, error) {
	return f.popular, f.listErr
}

type fakePinger struct{ err error }

func (p fakePinger) VerifyConnectivity(context.Context) error { return p.err }

func ptr[T any](v T) *T { return &v }

func newCatalog() *fakeCatalog {
	top := &models.MovieList{Page: 1, TotalPages: 1}
	for i := 1; i <= 10; i++ {
		top.Results = append(top.Results, models.Movie{
			ID:          1000 + i,
			Title:       fmt.Sprintf("Top %d", i),
			PosterPath:  fmt.Sprintf("/top%d.jpg", i),
			VoteAverage: ptr(8.0),
		})
	}
	return &fakeCatalog{
		movies: map[string]*models.Movie{
			"550": {
				ID:          550,
				Title:       "Fight Club",
				Overview:    "Un empleado de oficina insomne forma un club de pelea.",
				PosterPath:  "/fc.jpg",
				VoteAverage: ptr(8.433),
				Runtime:     ptr(139),
				ReleaseDate: "1999-10-15",
				Genres:      []models.Genre{{ID: 18, Name: "Drama"}, {ID: 53, Name: "Thriller"}},
			},
			"13": {ID: 13, Title: "Forrest Gump", VoteAverage: ptr(8.5)},
		},
		movieErr: map[string]error{},
		topRated: top,
		popular: &models.MovieList{Page: 1, TotalPages: 2, Results: []models.Movie{
			{ID: 550, Title: "Fight Club"},
		}},
	}
}

func testConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{
			RequestTimeout:  2 * time.Second,
			CORSOrigin:      "*",
			RateLimitPerSec: 1000,
			RateBurst:       1000,
		},
		Favorites: config.FavoritesConfig{FetchParallel: 2},
	}
}

func newTestHandler(t *testing.T, catalog *fakeCatalog, store favorites.Store, health Pinger) *Handler {
	t.Helper()
	h, err := NewHandler(Deps{
		Catalog:   catalog,
		Favorites: store,
		FS:        web.FS,
		Health:    health,
		Metrics:   http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, "metrics") }),
	}, testConfig())
	require.NoError(t, err)
	return h
}

func do(h http.Handler, method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.AddCookie(&http.Cookie{Name: mw.VisitorCookie, Value: testVisitor})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMovieDetail_Success(t *testing.T) {
	h := newTestHandler(t, newCatalog(), favorites.NewMemory(), nil)

	rec := do(h, http.MethodGet, "/movie/550", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, "Fight Club")
	assert.Contains(t, body, `<span class="font-semibold">1999</span>`)
	assert.Contains(t, body, "⭐ 8.4")
	assert.Contains(t, body, "139 min")
	assert.Contains(t, body, "Un empleado de oficina insomne forma un club de pelea.")
	assert.Contains(t, body, "Drama")
	assert.Contains(t, body, "Thriller")
	assert.Contains(t, body, "https://image.tmdb.org/t/p/w500/fc.jpg")
	assert.Contains(t, body, "Agregar a Favoritos")
	assert.NotContains(t, body, "Navegaste desde")
}

func TestMovieDetail_TopRatedCapsAtEight(t *testing.T) {
	h := newTestHandler(t, newCatalog(), favorites.NewMemory(), nil)

	body := do(h, http.MethodGet, "/movie/550", nil).Body.String()

	assert.Equal(t, 8, strings.Count(body, `class="min-w-[150px]`))
	assert.Contains(t, body, `href="/movie/1001"`)
	assert.Contains(t, body, `href="/movie/1008"`)
	assert.NotContains(t, body, `href="/movie/1009"`)
	assert.Contains(t, body, "https://image.tmdb.org/t/p/w300/top1.jpg")
	assert.Less(t, strings.Index(body, "Top 1<"), strings.Index(body, "Top 2<"), "cards must keep source order")
}

func TestMovieDetail_From(t *testing.T) {
	h := newTestHandler(t, newCatalog(), favorites.NewMemory(), nil)

	body := do(h, http.MethodGet, "/movie/550?from=popular", nil).Body.String()
	assert.Contains(t, body, "Navegaste desde: <b>popular</b>")
	assert.Contains(t, body, `<input type="hidden" name="from" value="popular">`)
}

func TestMovieDetail_MovieError(t *testing.T) {
	catalog := newCatalog()
	catalog.movieErr["550"] = errors.New("connection reset")
	h := newTestHandler(t, catalog, favorites.NewMemory(), nil)

	rec := do(h, http.MethodGet, "/movie/550", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Could not load movie.")
	assert.NotContains(t, body, "Agregar a Favoritos")
	assert.NotContains(t, body, "Cargando")
}

func TestMovieDetail_ErrorRegardlessOfTopRated(t *testing.T) {
	catalog := newCatalog()
	catalog.movieErr["550"] = errors.New("connection reset")
	catalog.topErr = errors.New("also down")
	h := newTestHandler(t, catalog, favorites.NewMemory(), nil)

	body := do(h, http.MethodGet, "/movie/550", nil).Body.String()
	assert.Contains(t, body, "Could not load movie.")
	assert.NotContains(t, body, "Top Rated</h2>")
}

func TestMovieDetail_TopRatedErrorKeepsPanel(t *testing.T) {
	catalog := newCatalog()
	catalog.topErr = errors.New("down")
	h := newTestHandler(t, catalog, favorites.NewMemory(), nil)

	rec := do(h, http.MethodGet, "/movie/550", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Fight Club")
	assert.NotContains(t, body, "Top Rated</h2>")
	assert.NotContains(t, body, "Could not load")
}

func TestMovieDetail_NotFound(t *testing.T) {
	h := newTestHandler(t, newCatalog(), favorites.NewMemory(), nil)

	rec := do(h, http.MethodGet, "/movie/424242", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Could not load movie.")
}

func TestToggleFavorite(t *testing.T) {
	store := favorites.NewMemory()
	h := newTestHandler(t, newCatalog(), store, nil)

	rec := do(h, http.MethodPost, "/movie/550/favorite", url.Values{"from": {"top-rated"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/movie/550?from=top-rated", rec.Header().Get("Location"))

	fav, err := store.IsFavorite(context.Background(), testVisitor, "550")
	require.NoError(t, err)
	assert.True(t, fav)

	body := do(h, http.MethodGet, "/movie/550", nil).Body.String()
	assert.Contains(t, body, "Quitar de Favoritos")
	assert.Contains(t, body, "bg-red-500")

	rec = do(h, http.MethodPost, "/movie/550/favorite", url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/movie/550", rec.Header().Get("Location"))

	body = do(h, http.MethodGet, "/movie/550", nil).Body.String()
	assert.Contains(t, body, "Agregar a Favoritos")
	assert.NotContains(t, body, "bg-red-500")
}

func TestToggleFavorite_InvalidID(t *testing.T) {
	store := favorites.NewMemory()
	h := newTestHandler(t, newCatalog(), store, nil)

	rec := do(h, http.MethodPost, "/movie/abc/favorite", url.Values{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	favs, _ := store.List(context.Background(), testVisitor)
	assert.Empty(t, favs)
}

func TestHeader_ActiveLink(t *testing.T) {
	h := newTestHandler(t, newCatalog(), favorites.NewMemory(), nil)

	body := do(h, http.MethodGet, "/top-rated", nil).Body.String()
	assert.Contains(t, body, `href="/top-rated" class="text-sm font-medium hover:text-red-600 transition-colors text-red-600 underline"`)
	assert.Contains(t, body, `href="/popular" class="text-sm font-medium hover:text-red-600 transition-colors text-white"`)
	assert.Contains(t, body, `href="/now-playing" class="text-sm font-medium hover:text-red-600 transition-colors text-white"`)
	assert.Contains(t, body, `href="/my-favorites" class="text-sm font-medium hover:text-red-600 transition-colors text-white"`)
	assert.Contains(t, body, "WhatMovies +")
}

func TestListPage(t *testing.T) {
	h := newTestHandler(t, newCatalog(), favorites.NewMemory(), nil)

	rec := do(h, http.MethodGet, "/popular", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `href="/movie/550?from=popular"`)
	assert.Contains(t, body, `href="/popular?page=2"`)

	rec = do(h, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListPage_Error(t *testing.T) {
	catalog := newCatalog()
	catalog.listErr = errors.New("down")
	h := newTestHandler(t, catalog, favorites.NewMemory(), nil)

	rec := do(h, http.MethodGet, "/now-playing", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Could not load Now Playing movies.")
}

func TestFavoritesPage(t *testing.T) {
	store := favorites.NewMemory()
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, testVisitor, "550"))
	require.NoError(t, store.Add(ctx, testVisitor, "13"))
	require.NoError(t, store.Add(ctx, testVisitor, "999"))

	h := newTestHandler(t, newCatalog(), store, nil)

	rec := do(h, http.MethodGet, "/my-favorites", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Fight Club")
	assert.Contains(t, body, "Forrest Gump")
	assert.Contains(t, body, `href="/movie/550?from=my-favorites"`)
	// 999 does not resolve and is skipped
	assert.NotContains(t, body, `href="/movie/999`)
}

func TestFavoritesPage_Empty(t *testing.T) {
	h := newTestHandler(t, newCatalog(), favorites.NewMemory(), nil)

	body := do(h, http.MethodGet, "/my-favorites", nil).Body.String()
	assert.Contains(t, body, "No tienes películas favoritas.")
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t, newCatalog(), favorites.NewMemory(), nil)
	rec := do(h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	h = newTestHandler(t, newCatalog(), favorites.NewMemory(), fakePinger{err: errors.New("down")})
	rec = do(h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","neo4j":"unreachable"}`, rec.Body.String())
}

func TestMetricsAndStatic(t *testing.T) {
	h := newTestHandler(t, newCatalog(), favorites.NewMemory(), nil)

	rec := do(h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "metrics", rec.Body.String())

	rec = do(h, http.MethodGet, "/static/app.css", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "--card")
}

func TestVisitorCookieIssued(t *testing.T) {
	h := newTestHandler(t, newCatalog(), favorites.NewMemory(), nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/popular", nil))

	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == mw.VisitorCookie {
			found = true
		}
	}
	assert.True(t, found, "expected a visitor cookie on first visit")
}
