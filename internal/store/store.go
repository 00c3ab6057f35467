package store

import (
	"context"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/reoring/revstream"
	"github.com/reoring/revstream/internal/config"
)

// ErrNotFound is returned by Get when no record has the requested id.
var ErrNotFound = eris.New("store: not found")

// Record is a persisted revenue stream. Document holds the canonical
// encoding produced by revstream.Marshal. Seq is the numeric id that other
// streams reference through revenue.data.stream_id.
type Record struct {
	ID         string               `json:"id"`
	Seq        int64                `json:"seq"`
	StreamType revstream.StreamType `json:"stream_type"`
	Name       string               `json:"name"`
	Document   json.RawMessage      `json:"document"`
	CreatedAt  time.Time            `json:"created_at"`
}

// Stream re-validates the stored document.
func (r *Record) Stream(ctx context.Context) (revstream.RevenueStream, error) {
	s, err := revstream.ParseJSON(ctx, r.Document)
	if err != nil {
		return nil, eris.Wrapf(err, "store: decode record %s", r.ID)
	}
	return s, nil
}

// ListFilter specifies criteria for listing records.
type ListFilter struct {
	StreamType revstream.StreamType `json:"stream_type,omitempty"`
	Limit      int                  `json:"limit,omitempty"`
	Offset     int                  `json:"offset,omitempty"`
}

// Store defines the persistence interface for validated revenue streams.
type Store interface {
	Create(ctx context.Context, s revstream.RevenueStream) (*Record, error)
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, filter ListFilter) ([]Record, error)
	// StreamExists reports whether a record with the given Seq exists.
	StreamExists(ctx context.Context, seq int64) (bool, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// newRecord prepares the fields shared by every backend. Seq is assigned by
// the backend.
func newRecord(s revstream.RevenueStream) (*Record, error) {
	if s == nil {
		return nil, eris.New("store: nil stream")
	}
	doc, err := revstream.Marshal(s)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal stream")
	}
	return &Record{
		ID:         uuid.New().String(),
		StreamType: s.StreamType(),
		Name:       s.Name(),
		Document:   doc,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

func limitOrDefault(n int) int {
	if n <= 0 || n > 500 {
		return 100
	}
	return n
}
