package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type StateDriver string

const (
	StateSQLite StateDriver = "sqlite"
	StateRedis  StateDriver = "redis"
	StateMemory StateDriver = "memory"
)

type Config struct {
	HTTPAddr   string
	QuizAPIURL string

	HTTPTimeout time.Duration
	SyncTimeout time.Duration

	StateDriver StateDriver
	StateDSN    string
	RedisAddr   string
	StateTTL    time.Duration
	SessionIdle time.Duration

	CookieSecure bool
	CORSOrigins  []string

	LogMode          string
	FeedbackDebounce time.Duration
}

// LoadDotEnv reads path (".env" when empty) into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func FromEnv() Config {
	return Config{
		HTTPAddr:         envOr("ADDR", ":3000"),
		QuizAPIURL:       envOr("QUIZ_API_URL", "http://localhost:8000"),
		HTTPTimeout:      envDuration("HTTP_TIMEOUT", 30*time.Second),
		SyncTimeout:      envDuration("SYNC_TIMEOUT", 5*time.Second),
		StateDriver:      StateDriver(strings.ToLower(envOr("STATE_DRIVER", string(StateSQLite)))),
		StateDSN:         envOr("STATE_DSN", "quiz-state.db"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		StateTTL:         envDuration("STATE_TTL", 7*24*time.Hour),
		SessionIdle:      envDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		CookieSecure:     envBool("COOKIE_SECURE", false),
		CORSOrigins:      csvOr("CORS_ORIGINS", "http://localhost:3000"),
		LogMode:          envOr("LOG_MODE", "dev"),
		FeedbackDebounce: envDuration("FEEDBACK_DEBOUNCE", 50*time.Millisecond),
	}
}

func envOr(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

// envDuration accepts Go duration strings ("5s", "168h"). Bad or non-positive
// values fall back to def.
func envDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
