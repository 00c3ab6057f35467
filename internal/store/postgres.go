package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/reoring/revstream"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore; pgxmock
// implements it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool. Documents are stored as JSONB.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 1
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS revenue_streams (
	seq         BIGSERIAL PRIMARY KEY,
	id          TEXT NOT NULL UNIQUE,
	stream_type TEXT NOT NULL,
	name        TEXT NOT NULL,
	document    JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_revenue_streams_type ON revenue_streams(stream_type);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, stream revstream.RevenueStream) (*Record, error) {
	rec, err := newRecord(stream)
	if err != nil {
		return nil, err
	}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO revenue_streams (id, stream_type, name, document, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING seq`,
		rec.ID, string(rec.StreamType), rec.Name, []byte(rec.Document), rec.CreatedAt,
	).Scan(&rec.Seq)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert revenue stream")
	}
	return rec, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	rec, err := scanPgRecord(s.pool.QueryRow(ctx,
		`SELECT seq, id, stream_type, name, document, created_at FROM revenue_streams WHERE id = $1`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get %s", id)
	}
	return rec, nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	query := `SELECT seq, id, stream_type, name, document, created_at FROM revenue_streams`
	args := []any{limitOrDefault(filter.Limit), max(filter.Offset, 0)}
	if filter.StreamType != "" {
		query += ` WHERE stream_type = $3`
		args = append(args, string(filter.StreamType))
	}
	query += ` ORDER BY seq DESC LIMIT $1 OFFSET $2`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list revenue streams")
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanPgRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan revenue stream")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate revenue streams")
}

func (s *PostgresStore) StreamExists(ctx context.Context, seq int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM revenue_streams WHERE seq = $1)`, seq).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: lookup stream %d", seq)
	}
	return exists, nil
}

func scanPgRecord(row pgx.Row) (*Record, error) {
	var (
		rec        Record
		streamType string
		doc        []byte
	)
	if err := row.Scan(&rec.Seq, &rec.ID, &streamType, &rec.Name, &doc, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.StreamType = revstream.StreamType(streamType)
	rec.Document = doc
	return &rec, nil
}
