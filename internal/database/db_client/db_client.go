package db_client

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"liveauction/internal/config"
	"liveauction/internal/database/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// DSN builds the pgx connection URL, escaping the credentials.
func DSN(cfg *config.Config) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.PostgresUser, cfg.PostgresPassword),
		Host:   fmt.Sprintf("%s:%s", cfg.PostgresHost, cfg.PostgresPort),
		Path:   "/" + cfg.PostgresDb,
	}
	return u.String()
}

// Open connects to Postgres and, when enabled, applies the schema.
func Open(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", DSN(cfg))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetConnMaxIdleTime(time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	if cfg.PostgresMigrate {
		if err := migrations.Apply(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
		zap.L().Info("postgres.migrated")
	}
	return db, nil
}
