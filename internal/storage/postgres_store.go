package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/example/carpool-matching/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an existing handle.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies the embedded schema. Statements are idempotent.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}
	for _, e := range entries {
		b, err := migrations.ReadFile("migrations/" + e.Name())
		if err != nil {
			return err
		}
		if _, err := p.db.ExecContext(ctx, string(b)); err != nil {
			return fmt.Errorf("migration %s: %w", e.Name(), err)
		}
	}
	return nil
}

func (p *PostgresStore) SaveMatches(ctx context.Context, recs []models.MatchRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, r := range recs {
		_, err := tx.ExecContext(ctx, `INSERT INTO match_log(request_id, offer_id, rank, score, detour_minutes, created_at) VALUES($1,$2,$3,$4,$5,$6)
ON CONFLICT (request_id, offer_id) DO UPDATE SET rank=EXCLUDED.rank, score=EXCLUDED.score, detour_minutes=EXCLUDED.detour_minutes, created_at=EXCLUDED.created_at`,
			r.RequestID, r.OfferID, r.Rank, r.Score, r.DetourMinutes, r.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert match %s/%s: %w", r.RequestID, r.OfferID, err)
		}
	}
	return tx.Commit()
}

func (p *PostgresStore) ListByRequest(ctx context.Context, requestID string) ([]models.MatchRecord, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT request_id, offer_id, rank, score, detour_minutes, created_at FROM match_log WHERE request_id=$1 ORDER BY rank`, requestID)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()
	var out []models.MatchRecord
	for rows.Next() {
		var r models.MatchRecord
		if err := rows.Scan(&r.RequestID, &r.OfferID, &r.Rank, &r.Score, &r.DetourMinutes, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PostgresStore) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *PostgresStore) Close() error { return p.db.Close() }
