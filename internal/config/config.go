package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory = "memory"
	BackendNeo4j  = "neo4j"
)

type ClientConfig struct {
	APIToken    string
	APIURL      string
	ImageURL    string
	Language    string
	Timeout     time.Duration
	Limit       int
	Burst       int
	MaxRetries  int
	BaseBackoff time.Duration
}

type DBConfig struct {
	URI  string
	User string
	Pass string
}

type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	CORSOrigin      string
	RateLimitPerSec float64
	RateBurst       int
	SecureCookies   bool
}

type FavoritesConfig struct {
	Backend       string
	FetchParallel int
}

type TelemetryConfig struct {
	ServiceName  string
	Exporter     string
	OTLPEndpoint string
}

type Config struct {
	Client    ClientConfig
	DB        DBConfig
	Server    ServerConfig
	Favorites FavoritesConfig
	Telemetry TelemetryConfig
}

func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := Config{}

	token, err := getEnvString("TMDB_API_TOKEN")
	if err != nil {
		return nil, fmt.Errorf("missing env: %w", err)
	}
	cfg.Client.APIToken = token

	cfg.Client.APIURL, _ = getEnvStringDefault("TMDB_API_URL", "https://api.themoviedb.org")
	cfg.Client.ImageURL, _ = getEnvStringDefault("TMDB_IMAGE_URL", "https://image.tmdb.org/t/p")
	cfg.Client.Language, _ = getEnvStringDefault("TMDB_LANGUAGE", "es-ES")

	duration, err := getEnvTimeDefault("HTTP_CLIENT_TIMEOUT", "30s")
	if err != nil {
		return nil, fmt.Errorf("invalid timeout: %w", err)
	}
	cfg.Client.Timeout = duration

	limit, err := getEnvIntDefault("TMDB_RATE_LIMIT", "20")
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit: %w", err)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("invalid rate limit: must be positive, got %d", limit)
	}
	cfg.Client.Limit = limit

	burst, err := getEnvIntDefault("TMDB_BURST_AMOUNT", "10")
	if err != nil {
		return nil, fmt.Errorf("invalid burst amount: %w", err)
	}
	if burst <= 0 {
		return nil, fmt.Errorf("invalid burst amount: must be positive, got %d", burst)
	}
	cfg.Client.Burst = burst

	maxRetries, err := getEnvIntDefault("TMDB_MAX_RETRIES", "3")
	if err != nil {
		return nil, fmt.Errorf("invalid max retries: %w", err)
	}
	if maxRetries <= 0 {
		return nil, fmt.Errorf("invalid max retries: must be positive, got %d", maxRetries)
	}
	cfg.Client.MaxRetries = maxRetries

	baseBackoff, err := getEnvTimeDefault("TMDB_BASE_BACKOFF", "1s")
	if err != nil {
		return nil, fmt.Errorf("invalid base backoff: %w", err)
	}
	cfg.Client.BaseBackoff = baseBackoff

	backend, _ := getEnvStringDefault("FAVORITES_BACKEND", BackendMemory)
	switch backend {
	case BackendMemory, BackendNeo4j:
	default:
		return nil, fmt.Errorf("invalid favorites backend %q", backend)
	}
	cfg.Favorites.Backend = backend

	parallel, err := getEnvIntDefault("FAVORITES_FETCH_PARALLEL", "4")
	if err != nil {
		return nil, fmt.Errorf("invalid favorites fetch parallelism: %w", err)
	}
	cfg.Favorites.FetchParallel = parallel

	if backend == BackendNeo4j {
		db, err := LoadDB()
		if err != nil {
			return nil, err
		}
		cfg.DB = *db
	}

	port, err := getEnvStringDefault("PORT", "8080")
	if err != nil {
		return nil, fmt.Errorf("invalid port: %w", err)
	}
	cfg.Server.Addr = ":" + port

	readTimeout, err := getEnvTimeDefault("SERVER_READ_TIMEOUT", "5s")
	if err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}
	cfg.Server.ReadTimeout = readTimeout

	writeTimeout, err := getEnvTimeDefault("SERVER_WRITE_TIMEOUT", "15s")
	if err != nil {
		return nil, fmt.Errorf("invalid write timeout: %w", err)
	}
	cfg.Server.WriteTimeout = writeTimeout

	idleTimeout, err := getEnvTimeDefault("SERVER_IDLE_TIMEOUT", "120s")
	if err != nil {
		return nil, fmt.Errorf("invalid idle timeout: %w", err)
	}
	cfg.Server.IdleTimeout = idleTimeout

	shutdownTimeout, err := getEnvTimeDefault("SERVER_SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	cfg.Server.ShutdownTimeout = shutdownTimeout

	requestTimeout, err := getEnvTimeDefault("REQUEST_TIMEOUT", "10s")
	if err != nil {
		return nil, fmt.Errorf("invalid request timeout: %w", err)
	}
	cfg.Server.RequestTimeout = requestTimeout

	corsOrigin, err := getEnvStringDefault("CORS_ALLOWED_ORIGIN", "*")
	if err != nil {
		return nil, fmt.Errorf("invalid cors origin: %w", err)
	}
	cfg.Server.CORSOrigin = corsOrigin

	rateLimitPerSec, err := getEnvFloatDefault("RATE_LIMIT_PER_SEC", "5")
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit: %w", err)
	}
	if rateLimitPerSec <= 0 {
		return nil, fmt.Errorf("invalid rate limit: must be positive, got %g", rateLimitPerSec)
	}
	cfg.Server.RateLimitPerSec = rateLimitPerSec

	rateBurst, err := getEnvIntDefault("RATE_BURST", "20")
	if err != nil {
		return nil, fmt.Errorf("invalid rate burst: %w", err)
	}
	if rateBurst <= 0 {
		return nil, fmt.Errorf("invalid rate burst: must be positive, got %d", rateBurst)
	}
	cfg.Server.RateBurst = rateBurst

	secure, err := getEnvBoolDefault("SECURE_COOKIES", "false")
	if err != nil {
		return nil, fmt.Errorf("invalid secure cookies flag: %w", err)
	}
	cfg.Server.SecureCookies = secure

	cfg.Telemetry.ServiceName, _ = getEnvStringDefault("OTEL_SERVICE_NAME", "whatmovies")
	cfg.Telemetry.Exporter, _ = getEnvStringDefault("OTEL_EXPORTER", "none")
	switch cfg.Telemetry.Exporter {
	case "none", "stdout", "otlp":
	default:
		return nil, fmt.Errorf("invalid otel exporter %q", cfg.Telemetry.Exporter)
	}
	cfg.Telemetry.OTLPEndpoint, _ = getEnvStringDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")

	return &cfg, nil
}

// LoadDB reads only the neo4j connection settings. The favorites CLI uses it
// so it can run without a TMDB token.
func LoadDB() (*DBConfig, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("warning: could not load .env: %v", err)
	}

	var db DBConfig

	uri, err := getEnvString("NEO4J_URI")
	if err != nil {
		return nil, fmt.Errorf("missing env: %w", err)
	}
	db.URI = uri

	user, err := getEnvString("NEO4J_USER")
	if err != nil {
		return nil, fmt.Errorf("missing env: %w", err)
	}
	db.User = user

	pass, err := getEnvString("NEO4J_PASSWORD")
	if err != nil {
		return nil, fmt.Errorf("missing env: %w", err)
	}
	db.Pass = pass

	return &db, nil
}

func getEnvString(key string) (string, error) {
	result := os.Getenv(key)
	if result == "" {
		return "", fmt.Errorf("%s not defined", key)
	}
	return result, nil
}

func getEnvStringDefault(key, defaultValue string) (string, error) {
	result := os.Getenv(key)
	if result == "" {
		result = defaultValue
	}
	return result, nil
}

func getEnvTimeDefault(key, defaultValue string) (time.Duration, error) {
	result := os.Getenv(key)
	if result == "" {
		result = defaultValue
	}

	duration, err := time.ParseDuration(result)
	if err != nil {
		return 0, fmt.Errorf("error parsing duration: %w", err)
	}
	return duration, nil
}

func getEnvIntDefault(key, defaultValue string) (int, error) {
	result := os.Getenv(key)
	if result == "" {
		result = defaultValue
	}
	value, err := strconv.Atoi(result)
	if err != nil {
		return 0, fmt.Errorf("error parsing env: %w", err)
	}
	return value, nil
}

func getEnvFloatDefault(key, defaultValue string) (float64, error) {
	result := os.Getenv(key)
	if result == "" {
		result = defaultValue
	}
	value, err := strconv.ParseFloat(result, 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing env: %w", err)
	}
	return value, nil
}

func getEnvBoolDefault(key, defaultValue string) (bool, error) {
	result := os.Getenv(key)
	if result == "" {
		result = defaultValue
	}
	value, err := strconv.ParseBool(result)
	if err != nil {
		return false, fmt.Errorf("error parsing env: %w", err)
	}
	return value, nil
}
