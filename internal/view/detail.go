// Package view holds the state and presentation logic for the pages the
// handler renders: the movie detail view, the list pages and the header.
package view

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mark-c-hall/whatmovies/internal/models"
)

const (
	MovieErrorMessage    = "Could not load movie."
	TopRatedErrorMessage = "Could not load top rated movies."
)

type Status int

const (
	StatusPending Status = iota
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the outcome of one fetch. A single status field means a slot can
// never be loading and failed at once.
type Result[T any] struct {
	Status Status
	Data   T
	Err    string
	Cause  error
}

func (r Result[T]) Pending() bool { return r.Status == StatusPending }
func (r Result[T]) Failed() bool  { return r.Status == StatusError }
func (r Result[T]) OK() bool      { return r.Status == StatusSuccess }

type MovieSource interface {
	GetMovieByID(ctx context.Context, id string) (*models.Movie, error)
	GetTopRatedMovies(ctx context.Context, page int) (*models.MovieList, error)
}

type State struct {
	ID         string
	Generation uint64
	Movie      Result[*models.Movie]
	TopRated   Result[[]models.Movie]
}

// Detail tracks the two fetches behind a movie detail page. Each call to
// Navigate starts a new generation; results from older generations are
// dropped when they arrive.
type Detail struct {
	source MovieSource
	logger *slog.Logger

	mu         sync.Mutex
	id         string
	generation uint64
	cancel     context.CancelFunc
	movie      Result[*models.Movie]
	topRated   Result[[]models.Movie]
}

func NewDetail(source MovieSource, logger *slog.Logger) *Detail {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Detail{source: source, logger: logger}
}

// Navigate resets the view to pending for id and starts the movie and
// top-rated fetches concurrently. The returned channel closes once both
// fetches for this generation have settled. An empty id fetches nothing and
// leaves the view pending.
func (d *Detail) Navigate(ctx context.Context, id string) <-chan struct{} {
	done := make(chan struct{})

	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.generation++
	gen := d.generation
	d.id = id
	d.movie = Result[*models.Movie]{}
	d.topRated = Result[[]models.Movie]{}

	if id == "" {
		d.mu.Unlock()
		close(done)
		return done
	}

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.mu.Unlock()

	var g errgroup.Group
	g.Go(func() error {
		movie, err := d.source.GetMovieByID(ctx, id)
		d.settleMovie(ctx, gen, id, movie, err)
		return nil
	})
	g.Go(func() error {
		list, err := d.source.GetTopRatedMovies(ctx, 1)
		d.settleTopRated(ctx, gen, id, list, err)
		return nil
	})

	go func() {
		g.Wait()
		cancel()
		close(done)
	}()

	return done
}

func (d *Detail) settleMovie(ctx context.Context, gen uint64, id string, movie *models.Movie, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if gen != d.generation {
		d.logger.DebugContext(ctx, "discarding stale movie result", "id", id, "current_id", d.id)
		return
	}
	if err != nil {
		d.logger.WarnContext(ctx, "movie fetch failed", "id", id, "error", err)
		d.movie = Result[*models.Movie]{Status: StatusError, Err: MovieErrorMessage, Cause: err}
		return
	}
	d.movie = Result[*models.Movie]{Status: StatusSuccess, Data: movie}
}

func (d *Detail) settleTopRated(ctx context.Context, gen uint64, id string, list *models.MovieList, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if gen != d.generation {
		d.logger.DebugContext(ctx, "discarding stale top rated result", "id", id, "current_id", d.id)
		return
	}
	if err != nil {
		d.logger.WarnContext(ctx, "top rated fetch failed", "id", id, "error", err)
		d.topRated = Result[[]models.Movie]{Status: StatusError, Err: TopRatedErrorMessage, Cause: err}
		return
	}
	var results []models.Movie
	if list != nil {
		results = list.Results
	}
	d.topRated = Result[[]models.Movie]{Status: StatusSuccess, Data: results}
}

func (d *Detail) Snapshot() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return State{
		ID:         d.id,
		Generation: d.generation,
		Movie:      d.movie,
		TopRated:   d.topRated,
	}
}

// Close cancels any in-flight fetches.
func (d *Detail) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
