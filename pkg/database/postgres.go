package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/ecolehub/vie-scolaire-api/pkg/config"
)

// NewPostgres returns a configured PostgreSQL client. The initial dial is
// retried with bounded exponential backoff; once connected, no query or
// write is ever auto-retried.
func NewPostgres(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	attempts := cfg.ConnectAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := cfg.ConnectBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	var pingErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if pingErr = db.Ping(); pingErr == nil {
			return db, nil
		}
		if attempt < attempts-1 {
			time.Sleep(backoff)
			backoff *= 2
		}
	}

	_ = db.Close()
	return nil, fmt.Errorf("connect postgres after %d attempts: %w", attempts, pingErr)
}
