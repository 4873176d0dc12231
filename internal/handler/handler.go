package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mark-c-hall/whatmovies/internal/config"
	"github.com/mark-c-hall/whatmovies/internal/favorites"
	mw "github.com/mark-c-hall/whatmovies/internal/middleware"
	"github.com/mark-c-hall/whatmovies/internal/models"
	"github.com/mark-c-hall/whatmovies/internal/tmdb"
	"github.com/mark-c-hall/whatmovies/internal/view"
)

const instrumentationName = "github.com/mark-c-hall/whatmovies/internal/handler"

// Catalog is the movie data the pages are built from.
type Catalog interface {
	view.MovieSource
	GetPopularMovies(ctx context.Context, page int) (*models.MovieList, error)
	GetNowPlayingMovies(ctx context.Context, page int) (*models.MovieList, error)
}

type Pinger interface {
	VerifyConnectivity(ctx context.Context) error
}

type Deps struct {
	Catalog   Catalog
	Favorites favorites.Store
	FS        fs.FS
	Metrics   http.Handler
	Health    Pinger
	Logger    *slog.Logger
}

type Handler struct {
	catalog   Catalog
	favs      favorites.Store
	health    Pinger
	logger    *slog.Logger
	templates map[string]*template.Template
	imageBase string
	parallel  int
	tracer    trace.Tracer
	toggles   metric.Int64Counter
	handler   http.Handler
}

type listSpec struct {
	title string
	from  string
	fetch func(ctx context.Context, page int) (*models.MovieList, error)
}

func NewHandler(deps Deps, cfg config.Config) (*Handler, error) {
	templates, err := parseTemplates(deps.FS)
	if err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	h := &Handler{
		catalog:   deps.Catalog,
		favs:      deps.Favorites,
		health:    deps.Health,
		logger:    logger,
		templates: templates,
		imageBase: cfg.Client.ImageURL,
		parallel:  cfg.Favorites.FetchParallel,
		tracer:    otel.Tracer(instrumentationName),
	}
	if h.parallel <= 0 {
		h.parallel = 1
	}
	h.toggles, _ = otel.Meter(instrumentationName).Int64Counter("favorites.toggles",
		metric.WithDescription("Favorite toggles by resulting state"))

	static, err := fs.Sub(deps.FS, "static")
	if err != nil {
		return nil, fmt.Errorf("error opening static assets: %w", err)
	}

	mux := http.NewServeMux()
	h.addRoutes(mux, static, deps.Metrics)

	srv := cfg.Server
	var handler http.Handler = mux
	handler = mw.Timeout(srv.RequestTimeout)(handler)
	handler = mw.RateLimit(rate.Limit(srv.RateLimitPerSec), srv.RateBurst, logger)(handler)
	handler = mw.Recovery(logger)(handler)
	handler = mw.Logging(logger)(handler)
	handler = mw.Visitor(srv.SecureCookies)(handler)
	handler = mw.CORS(srv.CORSOrigin)(handler)
	handler = otelhttp.NewHandler(handler, "whatmovies")
	h.handler = handler

	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

func (h *Handler) addRoutes(mux *http.ServeMux, static fs.FS, metrics http.Handler) {
	popular := listSpec{"Popular", "popular", h.catalog.GetPopularMovies}
	mux.HandleFunc("GET /{$}", h.listHandler(popular))
	mux.HandleFunc("GET /popular", h.listHandler(popular))
	mux.HandleFunc("GET /top-rated", h.listHandler(listSpec{"Top Rated", "top-rated", h.catalog.GetTopRatedMovies}))
	mux.HandleFunc("GET /now-playing", h.listHandler(listSpec{"Now Playing", "now-playing", h.catalog.GetNowPlayingMovies}))
	mux.HandleFunc("GET /my-favorites", h.favoritesHandler)
	mux.HandleFunc("GET /movie/{id}", h.movieHandler)
	mux.HandleFunc("POST /movie/{id}/favorite", h.toggleFavoriteHandler)
	mux.HandleFunc("GET /healthz", h.healthHandler)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
}

func (h *Handler) movieHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	from := r.URL.Query().Get("from")

	detail := view.NewDetail(h.catalog, h.logger)
	defer detail.Close()

	select {
	case <-detail.Navigate(ctx, id):
	case <-ctx.Done():
	}
	state := detail.Snapshot()

	visitor := mw.VisitorFromContext(ctx)
	fav, err := h.favs.IsFavorite(ctx, visitor, id)
	if err != nil {
		h.logger.WarnContext(ctx, "favorite lookup failed", "id", id, "visitor", visitor, "error", err)
		fav = false
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("movie.id", id),
		attribute.String("movie.status", state.Movie.Status.String()),
		attribute.String("top_rated.status", state.TopRated.Status.String()),
	)

	page := view.NewDetailPage(state, fav, from, h.imageBase)
	title := page.Title
	if title == "" {
		title = "Película"
	}
	h.render(w, r, "movie", detailStatus(state), title, page)
}

// detailStatus maps the movie slot to an HTTP status. The page is rendered
// either way; only the code differs.
func detailStatus(state view.State) int {
	switch state.Movie.Status {
	case view.StatusSuccess:
		return http.StatusOK
	case view.StatusError:
		cause := state.Movie.Cause
		if errors.Is(cause, tmdb.ErrNotFound) || errors.Is(cause, tmdb.ErrInvalidID) {
			return http.StatusNotFound
		}
		if errors.Is(cause, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusGatewayTimeout
	}
}

func (h *Handler) toggleFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	if err := tmdb.ValidateID(id); err != nil {
		http.Error(w, "invalid movie id", http.StatusBadRequest)
		return
	}

	visitor := mw.VisitorFromContext(ctx)
	fav, err := favorites.Toggle(ctx, h.favs, visitor, id)
	if errors.Is(err, favorites.ErrNoIdentifier) {
		http.Error(w, "missing visitor", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "favorite toggle failed", "id", id, "visitor", visitor, "error", err)
		http.Error(w, "could not update favorites", http.StatusInternalServerError)
		return
	}

	if h.toggles != nil {
		h.toggles.Add(ctx, 1, metric.WithAttributes(attribute.Bool("favorite", fav)))
	}
	h.logger.InfoContext(ctx, "favorite toggled", "id", id, "visitor", visitor, "favorite", fav)

	movieID, _ := strconv.Atoi(id)
	http.Redirect(w, r, view.MovieHref(movieID, r.PostFormValue("from")), http.StatusSeeOther)
}

func (h *Handler) listHandler(spec listSpec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		pageNum, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || pageNum < 1 {
			pageNum = 1
		}

		list, err := spec.fetch(ctx, pageNum)
		page := view.NewListPage(spec.title, spec.from, r.URL.Path, list, h.imageBase)
		status := http.StatusOK
		if err != nil {
			h.logger.WarnContext(ctx, "movie list fetch failed", "list", spec.from, "page", pageNum, "error", err)
			page.Error = fmt.Sprintf("Could not load %s movies.", spec.title)
			status = http.StatusBadGateway
		}

		h.render(w, r, "list", status, spec.title, page)
	}
}

func (h *Handler) favoritesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	visitor := mw.VisitorFromContext(ctx)

	favs, err := h.favs.List(ctx, visitor)
	if err != nil {
		h.logger.ErrorContext(ctx, "favorites list failed", "visitor", visitor, "error", err)
		page := view.NewFavoritesPage(nil, h.imageBase)
		page.Error = "Could not load favorites."
		h.render(w, r, "list", http.StatusInternalServerError, page.Title, page)
		return
	}

	movies := h.fetchMovies(ctx, favs)
	page := view.NewFavoritesPage(movies, h.imageBase)
	h.render(w, r, "list", http.StatusOK, page.Title, page)
}

// fetchMovies loads favorites concurrently, keeping list order. Movies that
// fail to load are skipped.
func (h *Handler) fetchMovies(ctx context.Context, favs []models.Favorite) []models.Movie {
	ctx, span := h.tracer.Start(ctx, "favorites.fetch_movies",
		trace.WithAttributes(attribute.Int("favorites.count", len(favs))))
	defer span.End()

	results := make([]*models.Movie, len(favs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.parallel)
	for i, fav := range favs {
		g.Go(func() error {
			movie, err := h.catalog.GetMovieByID(gctx, fav.MovieID)
			if err != nil {
				h.logger.WarnContext(ctx, "favorite movie fetch failed", "id", fav.MovieID, "error", err)
				return nil
			}
			results[i] = movie
			return nil
		})
	}
	g.Wait()

	movies := make([]models.Movie, 0, len(favs))
	for _, m := range results {
		if m != nil {
			movies = append(movies, *m)
		}
	}
	return movies
}

func (h *Handler) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	code := http.StatusOK

	if h.health != nil {
		if err := h.health.VerifyConnectivity(r.Context()); err != nil {
			h.logger.ErrorContext(r.Context(), "health check failed", "error", err)
			status["status"] = "degraded"
			status["neo4j"] = "unreachable"
			code = http.StatusServiceUnavailable
		} else {
			status["neo4j"] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}
