package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Store persists discovered records somewhere more durable than the output
// file. Implementations must tolerate concurrent SaveBatch calls.
type Store interface {
	SaveBatch(ctx context.Context, batch []Record) error
	Close()
}

var _ Store = (*PostgresStore)(nil)

// PostgresStore writes findings to a postgres table, one row per record.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// NewPostgresStore connects to dsn and makes sure the findings table exists.
func NewPostgresStore(ctx context.Context, dsn string, log *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	s := &PostgresStore{pool: pool, log: log}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS findings (
    id       BIGSERIAL PRIMARY KEY,
    target   TEXT NOT NULL,
    value    TEXT NOT NULL,
    found_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveBatch inserts every record in one round trip.
func (s *PostgresStore) SaveBatch(ctx context.Context, batch []Record) error {
	if len(batch) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, r := range batch {
		b.Queue(`INSERT INTO findings (target, value) VALUES ($1, $2)`, r.Target, r.Value)
	}
	br := s.pool.SendBatch(ctx, b)
	defer br.Close()
	for range batch {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert finding: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
