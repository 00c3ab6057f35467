package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/reoring/revstream"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS revenue_streams (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	stream_type TEXT NOT NULL,
	name        TEXT NOT NULL,
	document    TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_revenue_streams_type ON revenue_streams(stream_type);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, stream revstream.RevenueStream) (*Record, error) {
	rec, err := newRecord(stream)
	if err != nil {
		return nil, err
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO revenue_streams (id, stream_type, name, document, created_at) VALUES (?, ?, ?, ?, ?) RETURNING seq`,
		rec.ID, string(rec.StreamType), rec.Name, string(rec.Document), rec.CreatedAt,
	).Scan(&rec.Seq)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert revenue stream")
	}
	return rec, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT seq, id, stream_type, name, document, created_at FROM revenue_streams WHERE id = ?`,
		id,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get %s", id)
	}
	return rec, nil
}

func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	query := `SELECT seq, id, stream_type, name, document, created_at FROM revenue_streams WHERE 1=1`
	var args []any

	if filter.StreamType != "" {
		query += ` AND stream_type = ?`
		args = append(args, string(filter.StreamType))
	}
	query += ` ORDER BY seq DESC LIMIT ? OFFSET ?`
	args = append(args, limitOrDefault(filter.Limit), max(filter.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list revenue streams")
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan revenue stream")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate revenue streams")
}

func (s *SQLiteStore) StreamExists(ctx context.Context, seq int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM revenue_streams WHERE seq = ?`, seq).Scan(&n)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: lookup stream %d", seq)
	}
	return n > 0, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*Record, error) {
	var (
		rec        Record
		streamType string
		doc        string
		createdAt  time.Time
	)
	if err := row.Scan(&rec.Seq, &rec.ID, &streamType, &rec.Name, &doc, &createdAt); err != nil {
		return nil, err
	}
	rec.StreamType = revstream.StreamType(streamType)
	rec.Document = []byte(doc)
	rec.CreatedAt = createdAt.UTC()
	return &rec, nil
}
