package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	TTS       TTSConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Telemetry TelemetryConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type TTSConfig struct {
	Backend          string // "piper" or "openai"
	Model            string // piper voice name or .onnx path; openai model id
	ModelDir         string
	PiperBinPath     string
	OpenAIKey        string
	OpenAIBaseURL    string
	DefaultLanguage  string
	MaxTextLength    int
	SynthesisTimeout time.Duration
}

type RedisConfig struct {
	Addr     string // empty disables redis-backed features
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool { return c.Addr != "" }

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string // empty uses the migrations built into the binary
}

func (c DatabaseConfig) Enabled() bool { return c.URL != "" }

type AuthConfig struct {
	JWTSecret string
}

func (c AuthConfig) Enabled() bool { return c.JWTSecret != "" }

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
	// TrustProxy keys the limiter on X-Forwarded-For/X-Real-IP instead of
	// the connection address. Enable only behind a proxy that sets them.
	TrustProxy bool
}

type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int
}

type TelemetryConfig struct {
	OTLPEndpoint string
	ServiceName  string
}

const (
	BackendPiper  = "piper"
	BackendOpenAI = "openai"

	DefaultModel = "en_US-lessac-medium"
	DefaultPort  = 5002
)

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", DefaultPort)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxText, err := getEnvInt("TTS_MAX_TEXT_LENGTH", 5000)
	if err != nil {
		return nil, fmt.Errorf("invalid TTS_MAX_TEXT_LENGTH: %w", err)
	}

	timeout, err := getEnvDuration("TTS_SYNTHESIS_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid TTS_SYNTHESIS_TIMEOUT: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	rps, err := getEnvFloat("RATE_LIMIT_RPS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	burst, err := getEnvInt("RATE_LIMIT_BURST", 40)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	trustProxy, err := getEnvBool("RATE_LIMIT_TRUST_PROXY", false)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_TRUST_PROXY: %w", err)
	}

	cacheTTL, err := getEnvDuration("CACHE_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}

	cacheEntries, err := getEnvInt("CACHE_MAX_ENTRIES", 256)
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_MAX_ENTRIES: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		TTS: TTSConfig{
			Backend:          strings.ToLower(getEnv("TTS_BACKEND", BackendPiper)),
			Model:            getEnv("TTS_MODEL", DefaultModel),
			ModelDir:         getEnv("TTS_MODEL_DIR", "models"),
			PiperBinPath:     getEnv("TTS_PIPER_BIN", "piper"),
			OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:    getEnv("TTS_OPENAI_BASE_URL", ""),
			DefaultLanguage:  getEnv("TTS_DEFAULT_LANGUAGE", "en"),
			MaxTextLength:    maxText,
			SynthesisTimeout: timeout,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		RateLimit: RateLimitConfig{
			RPS:        rps,
			Burst:      burst,
			TrustProxy: trustProxy,
		},
		Cache: CacheConfig{
			TTL:        cacheTTL,
			MaxEntries: cacheEntries,
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "ttsserver"),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var problems []string

	switch c.TTS.Backend {
	case BackendPiper:
		if c.TTS.Model == "" {
			problems = append(problems, "TTS_MODEL (or --model) is required for the piper backend")
		}
	case BackendOpenAI:
		if c.TTS.OpenAIKey == "" {
			problems = append(problems, "OPENAI_API_KEY is required for the openai backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown TTS_BACKEND %q", c.TTS.Backend))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d out of range", c.Server.Port))
	}
	if c.TTS.MaxTextLength <= 0 {
		problems = append(problems, "TTS_MAX_TEXT_LENGTH must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
