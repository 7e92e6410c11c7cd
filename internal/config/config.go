// Package config loads runtime settings from an optional .env file and the
// environment. Command-line flags override the loaded values in cmd/.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/erazemk/menza/internal/store"
)

// Config holds the settings of the server and the menu board.
type Config struct {
	Addr string

	Backend       string
	SQLitePath    string
	PostgresURL   string
	MongoURI      string
	MongoDatabase string
	LocalPath     string
	SeedDefaults  bool

	AdminUser     string
	AdminPassword string
	JWTSecret     string

	AMQPURL        string
	AMQPExchange   string
	TelegramToken  string
	TelegramChatID int64

	LogPath   string
	LogFormat string

	APIBaseURL   string
	PollInterval time.Duration
}

// Defaults.
const (
	DefaultPort          = "3001"
	DefaultAdminUser     = "Admin"
	DefaultAdminPassword = "Admin123"
	DefaultPollInterval  = 30 * time.Second
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func boolenv(key string, def bool) bool {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func int64env(key string, def int64) int64 {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

// durenv accepts a Go duration ("30s") or a plain number of seconds.
func durenv(key string, def time.Duration) time.Duration {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if sec, err := strconv.Atoi(v); err == nil {
		return time.Duration(sec) * time.Second
	}
	return def
}

// Load reads envFile (if it exists) into the environment and collects the
// configuration. Variables already set in the environment take precedence
// over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	port := getenv("PORT", DefaultPort)
	addr := port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return Config{
		Addr: addr,

		Backend:       strings.ToLower(getenv("MENU_BACKEND", store.BackendSQLite)),
		SQLitePath:    getenv("SQLITE_PATH", "menza.sqlite3"),
		PostgresURL:   getenv("DATABASE_URL", ""),
		MongoURI:      getenv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getenv("MONGODB_DATABASE", "canteen"),
		LocalPath:     getenv("LOCAL_STORE_PATH", "menu.json"),
		SeedDefaults:  boolenv("SEED_DEFAULTS", true),

		AdminUser:     getenv("ADMIN_USER", DefaultAdminUser),
		AdminPassword: getenv("ADMIN_PASSWORD", DefaultAdminPassword),
		JWTSecret:     getenv("JWT_SECRET", ""),

		AMQPURL:        getenv("AMQP_URL", ""),
		AMQPExchange:   getenv("AMQP_EXCHANGE", "menu.changes"),
		TelegramToken:  getenv("TELEGRAM_TOKEN", ""),
		TelegramChatID: int64env("TELEGRAM_CHAT_ID", 0),

		LogPath:   getenv("LOG_PATH", ""),
		LogFormat: strings.ToLower(getenv("LOG_FORMAT", "text")),

		APIBaseURL:   strings.TrimRight(getenv("API_BASE_URL", "http://localhost:"+DefaultPort+"/api"), "/"),
		PollInterval: durenv("POLL_INTERVAL", DefaultPollInterval),
	}, nil
}

// Validate checks the server settings for inconsistencies.
func (c Config) Validate() error {
	switch c.Backend {
	case store.BackendSQLite, store.BackendPostgres, store.BackendMongo, store.BackendLocal:
	default:
		return fmt.Errorf("unknown MENU_BACKEND %q (want sqlite, postgres, mongo or local)", c.Backend)
	}
	if c.Backend == store.BackendPostgres && c.PostgresURL == "" {
		return errors.New("MENU_BACKEND=postgres requires DATABASE_URL")
	}
	if c.AdminUser == "" {
		return errors.New("ADMIN_USER must not be empty")
	}
	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		return errors.New("TELEGRAM_TOKEN requires TELEGRAM_CHAT_ID")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q (want text or json)", c.LogFormat)
	}
	if c.PollInterval <= 0 {
		return errors.New("POLL_INTERVAL must be positive")
	}
	return nil
}

// StoreOptions returns the backend selection for store.Open.
func (c Config) StoreOptions() store.Options {
	return store.Options{
		Backend:       c.Backend,
		SQLitePath:    c.SQLitePath,
		PostgresURL:   c.PostgresURL,
		MongoURI:      c.MongoURI,
		MongoDatabase: c.MongoDatabase,
		LocalPath:     c.LocalPath,
	}
}
