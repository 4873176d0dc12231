package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/mark-c-hall/whatmovies/internal/config"
	"github.com/mark-c-hall/whatmovies/internal/models"
)

const (
	DEFAULT_URL       = "https://api.themoviedb.org"
	DEFAULT_IMAGE_URL = "https://image.tmdb.org/t/p"
	API_VERSION       = "3"

	PosterSize = "w500"
	CardSize   = "w300"

	meterName = "github.com/mark-c-hall/whatmovies/internal/tmdb"
)

type Client struct {
	HTTPClient  http.Client
	APIURL      string
	APIToken    string
	Language    string
	Limiter     *rate.Limiter
	MaxRetries  int
	BaseBackoff time.Duration

	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

func NewClient(cfg config.Config) *Client {
	client := Client{
		HTTPClient: http.Client{
			Timeout:   cfg.Client.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		APIURL:      cfg.Client.APIURL,
		APIToken:    cfg.Client.APIToken,
		Language:    cfg.Client.Language,
		Limiter:     rate.NewLimiter(rate.Every(time.Second/time.Duration(cfg.Client.Limit)), cfg.Client.Burst),
		MaxRetries:  cfg.Client.MaxRetries,
		BaseBackoff: cfg.Client.BaseBackoff,
	}
	if client.APIURL == "" {
		client.APIURL = DEFAULT_URL
	}

	meter := otel.Meter(meterName)
	client.requests, _ = meter.Int64Counter("tmdb.requests",
		metric.WithDescription("TMDB API calls by endpoint and outcome"))
	client.latency, _ = meter.Float64Histogram("tmdb.request.duration",
		metric.WithDescription("TMDB API call latency"),
		metric.WithUnit("s"))

	return &client
}

// GetMovieByID fetches the full movie record, genres included.
func (c *Client) GetMovieByID(ctx context.Context, id string) (*models.Movie, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	var movie models.Movie
	if err := c.getJSON(ctx, "movie_detail", "/movie/"+id, nil, &movie); err != nil {
		return nil, fmt.Errorf("error getting movie %s: %w", id, err)
	}
	return &movie, nil
}

func (c *Client) GetTopRatedMovies(ctx context.Context, page int) (*models.MovieList, error) {
	return c.getList(ctx, "top_rated", page)
}

func (c *Client) GetPopularMovies(ctx context.Context, page int) (*models.MovieList, error) {
	return c.getList(ctx, "popular", page)
}

func (c *Client) GetNowPlayingMovies(ctx context.Context, page int) (*models.MovieList, error) {
	return c.getList(ctx, "now_playing", page)
}

func (c *Client) getList(ctx context.Context, list string, page int) (*models.MovieList, error) {
	if page < 1 {
		page = 1
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))

	var APIResponse models.MovieList
	if err := c.getJSON(ctx, list, "/movie/"+list, query, &APIResponse); err != nil {
		return nil, fmt.Errorf("error getting %s movies: %w", list, err)
	}
	return &APIResponse, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, v any) error {
	if query == nil {
		query = url.Values{}
	}
	if c.Language != "" {
		query.Set("language", c.Language)
	}
	u := fmt.Sprintf("%s/%s%s?%s", c.APIURL, API_VERSION, path, query.Encode())

	start := time.Now()
	status := "error"
	defer func() {
		c.record(ctx, endpoint, status, time.Since(start))
	}()

	resp, err := c.getHTTP(ctx, u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			status = "not_found"
		}
		return err
	}

	if err = json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	status = "ok"
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode/100 == 2 {
		return nil
	}
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	var payload struct {
		StatusMessage string `json:"status_message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		apiErr.Message = payload.StatusMessage
	}
	return apiErr
}

func (c *Client) record(ctx context.Context, endpoint, status string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("status", status),
	)
	if c.requests != nil {
		c.requests.Add(ctx, 1, attrs)
	}
	if c.latency != nil {
		c.latency.Record(ctx, elapsed.Seconds(), attrs)
	}
}

func (c *Client) getHTTP(ctx context.Context, url string) (*http.Response, error) {
	for attempt := range c.MaxRetries {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("error creating http request: %w", err)
		}

		req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.APIToken))
		req.Header.Add("Accept", "application/json")
		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("error making http request: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}
		resp.Body.Close()

		backoff := c.BaseBackoff << attempt
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("exceeded %d retries due to rate limiting", c.MaxRetries)
}

// ValidateID accepts only positive decimal TMDB ids.
func ValidateID(id string) error {
	if id == "" {
		return ErrInvalidID
	}
	n, err := strconv.Atoi(id)
	if err != nil || n <= 0 || strconv.Itoa(n) != id {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// ImageURL composes a CDN url for a poster path. An empty path still produces
// a url; callers render it as-is.
func ImageURL(base, size, path string) string {
	if base == "" {
		base = DEFAULT_IMAGE_URL
	}
	return base + "/" + size + path
}
