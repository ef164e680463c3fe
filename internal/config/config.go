package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort              = "5000"
	defaultDatabaseURL       = "catalog.db"
	defaultDBConnectAttempts = "5"
	defaultDBConnectBackoff  = "2s"
	defaultUploadDir         = "./uploads"
	defaultMaxUploadBytes    = "5242880" // 5 MiB
	defaultJWTSecret         = "change-me-jwt-secret"
	defaultLookupCacheSize   = "1024"
	defaultLookupCacheTTL    = "10m"
	defaultShutdownTimeout   = "10s"
)

// Config is the runtime configuration of the catalog service.
type Config struct {
	AppEnv string
	Port   string

	DatabaseURL       string
	DBConnectAttempts int
	DBConnectBackoff  time.Duration

	UploadDir      string
	MaxUploadBytes int64
	PublicBaseURL  string

	JWTSecret    string
	APIKeyHash   string
	AccessPolicy map[string]bool

	CORSAllowedOrigins []string

	LookupCacheSize int
	LookupCacheTTL  time.Duration

	ShutdownTimeout time.Duration
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.Port = strings.TrimSpace(getEnv("PORT", defaultPort))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.UploadDir = strings.TrimSpace(getEnv("UPLOAD_DIR", defaultUploadDir))
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL")), "/")
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.APIKeyHash = strings.TrimSpace(os.Getenv("API_KEY_HASH"))
	cfg.CORSAllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))

	var err error
	if cfg.DBConnectAttempts, err = parseIntEnv("DB_CONNECT_ATTEMPTS", defaultDBConnectAttempts); err != nil {
		return nil, err
	}
	if cfg.DBConnectBackoff, err = parseDurationEnv("DB_CONNECT_BACKOFF", defaultDBConnectBackoff); err != nil {
		return nil, err
	}
	maxBytes, err := parseIntEnv("MAX_UPLOAD_BYTES", defaultMaxUploadBytes)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(maxBytes)
	if cfg.LookupCacheSize, err = parseIntEnv("LOOKUP_CACHE_SIZE", defaultLookupCacheSize); err != nil {
		return nil, err
	}
	if cfg.LookupCacheTTL, err = parseDurationEnv("LOOKUP_CACHE_TTL", defaultLookupCacheTTL); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = parseDurationEnv("SHUTDOWN_TIMEOUT", defaultShutdownTimeout); err != nil {
		return nil, err
	}
	if cfg.AccessPolicy, err = ParsePolicyOverrides(os.Getenv("ACCESS_POLICY")); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	log.Printf("config loaded: env=%s port=%s upload_dir=%s max_upload_bytes=%d", cfg.AppEnv, cfg.Port, cfg.UploadDir, cfg.MaxUploadBytes)

	return cfg, nil
}

// ParsePolicyOverrides parses "op=true,op2=false" into a map.
func ParsePolicyOverrides(raw string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, item := range splitList(raw) {
		op, value, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("invalid ACCESS_POLICY entry %q: expected op=bool", item)
		}
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid ACCESS_POLICY value for %q: %w", op, err)
		}
		out[strings.ToLower(strings.TrimSpace(op))] = b
	}
	return out, nil
}

// IsProduction reports whether the service runs with production safeguards.
func (c *Config) IsProduction() bool {
	return isProdLike(c.AppEnv)
}

func validateConfig(cfg *Config) error {
	if cfg.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.UploadDir == "" {
		return fmt.Errorf("UPLOAD_DIR must not be empty")
	}
	if cfg.DBConnectAttempts <= 0 {
		return fmt.Errorf("DB_CONNECT_ATTEMPTS must be > 0")
	}
	if cfg.DBConnectBackoff < 0 {
		return fmt.Errorf("DB_CONNECT_BACKOFF must be >= 0")
	}
	if cfg.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be > 0")
	}
	if cfg.LookupCacheSize <= 0 {
		return fmt.Errorf("LOOKUP_CACHE_SIZE must be > 0")
	}
	if cfg.LookupCacheTTL <= 0 {
		return fmt.Errorf("LOOKUP_CACHE_TTL must be > 0")
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be > 0")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
