// Package tokens keeps the API key list, loaded from Postgres, in memory.
package tokens

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"md2docx/internal/config"
	"md2docx/internal/infra/logging"
)

const defaultPort = 5432

// tokensDDL bootstraps the table on first use.
const tokensDDL = `
CREATE TABLE IF NOT EXISTS tokens (
	token      TEXT PRIMARY KEY,
	rate_limit INTEGER NOT NULL DEFAULT 60,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	comment    TEXT
);
CREATE INDEX IF NOT EXISTS idx_tokens_created_at ON tokens (created_at);`

// Store is an in-memory snapshot of the tokens table.
type Store struct {
	cfg config.PostgresConfig

	mu    sync.RWMutex
	cache map[string]int

	dbMu sync.Mutex
	db   *sql.DB
}

// NewStore returns an empty store for the given database.
func NewStore(cfg config.PostgresConfig) *Store {
	return &Store{cfg: cfg}
}

// postgresDSN turns the config into a pgx URL. Host is either a bare host
// name (port comes from Port) or a complete postgres:// URL used verbatim.
func postgresDSN(cfg config.PostgresConfig) (string, error) {
	if strings.HasPrefix(cfg.Host, "postgres://") || strings.HasPrefix(cfg.Host, "postgresql://") {
		return cfg.Host, nil
	}
	for _, f := range []struct{ name, value string }{
		{"host", cfg.Host},
		{"database", cfg.Database},
		{"user", cfg.User},
	} {
		if f.value == "" {
			return "", fmt.Errorf("postgres %s is empty", f.name)
		}
	}

	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(strings.Trim(cfg.Host, "[]"), strconv.Itoa(port)),
		Path:   "/" + cfg.Database,
		User:   url.UserPassword(cfg.User, cfg.Password),
	}
	if cfg.Password == "" {
		u.User = url.User(cfg.User)
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String(), nil
}

// conn opens the pool on first use and bootstraps the schema. A failed
// attempt is retried on the next call.
func (s *Store) conn(ctx context.Context) (*sql.DB, error) {
	s.dbMu.Lock()
	defer s.dbMu.Unlock()
	if s.db != nil {
		return s.db, nil
	}

	dsn, err := postgresDSN(s.cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect token database: %w", err)
	}
	if _, err := db.ExecContext(ctx, tokensDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap tokens table: %w", err)
	}
	s.db = db
	return db, nil
}

// Load reads all API tokens and their rate limits from Postgres and replaces
// the in-memory snapshot.
func (s *Store) Load(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `SELECT token, rate_limit FROM tokens;`)
	if err != nil {
		return err
	}
	defer rows.Close()

	cache := make(map[string]int)
	for rows.Next() {
		var token string
		var limit int
		if err := rows.Scan(&token, &limit); err != nil {
			return err
		}
		cache[token] = limit
	}
	if err := rows.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.cache = cache
	s.mu.Unlock()
	return nil
}

// LoadFromMap replaces the snapshot with m. Intended for tests and local debugging.
func (s *Store) LoadFromMap(m map[string]int) {
	cache := make(map[string]int, len(m))
	for k, v := range m {
		cache[k] = v
	}
	s.mu.Lock()
	s.cache = cache
	s.mu.Unlock()
}

// Ready returns true once the snapshot has been loaded at least once.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache != nil
}

// Validate checks whether the given token exists in the snapshot.
func (s *Store) Validate(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cache[token]
	return ok
}

// RateLimit returns the configured rate limit for token. Unknown tokens get
// 0, which disables token rate limiting for them.
func (s *Store) RateLimit(token string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache[token]
}

// RefreshPeriodically reloads the snapshot every interval until stop is closed.
func (s *Store) RefreshPeriodically(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.Load(context.Background()); err != nil {
				logging.Error("Failed to reload API tokens", "error", err)
			}
		case <-stop:
			return
		}
	}
}

// Close releases the database handle.
func (s *Store) Close() error {
	s.dbMu.Lock()
	defer s.dbMu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
