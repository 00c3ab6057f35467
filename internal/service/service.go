package service

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/reoring/revstream"
	"github.com/reoring/revstream/internal/store"
)

// Options configures a Service.
type Options struct {
	ParseOpt revstream.ParseOpt
	// CheckStreamRefs verifies that revenue.data.stream_id points at an
	// existing record before anything is stored.
	CheckStreamRefs bool
}

// Service validates submissions and hands valid streams to the store.
type Service struct {
	store store.Store
	opts  Options
}

// New creates a Service over st.
func New(st store.Store, opts Options) *Service {
	return &Service{store: st, opts: opts}
}

// Validate checks raw JSON without storing it.
func (s *Service) Validate(ctx context.Context, body []byte) (revstream.RevenueStream, error) {
	stream, err := revstream.ParseJSON(ctx, body, s.opts.ParseOpt)
	if err != nil {
		return nil, err
	}
	if err := s.Check(ctx, stream); err != nil {
		return nil, err
	}
	return stream, nil
}

// Check runs the checks that need the store, currently the optional
// stream_id reference check.
func (s *Service) Check(ctx context.Context, stream revstream.RevenueStream) error {
	if !s.opts.CheckStreamRefs {
		return nil
	}
	return revstream.CheckReferences(ctx, stream, s.store)
}

// Submit validates raw JSON and stores the stream. Invalid input is returned
// as revstream.Issues and never reaches the store.
func (s *Service) Submit(ctx context.Context, body []byte) (*store.Record, error) {
	stream, err := revstream.ParseJSON(ctx, body, s.opts.ParseOpt)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, stream)
}

// Create checks and persists an already validated stream.
func (s *Service) Create(ctx context.Context, stream revstream.RevenueStream) (*store.Record, error) {
	if err := s.Check(ctx, stream); err != nil {
		return nil, err
	}
	rec, err := s.store.Create(ctx, stream)
	if err != nil {
		return nil, eris.Wrap(err, "service: create revenue stream")
	}
	zap.L().Info("revenue stream stored",
		zap.String("id", rec.ID),
		zap.Int64("seq", rec.Seq),
		zap.String("stream_type", string(rec.StreamType)),
	)
	return rec, nil
}

// Get returns one stored record.
func (s *Service) Get(ctx context.Context, id string) (*store.Record, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "service: get revenue stream")
	}
	return rec, nil
}

// List returns stored records, newest first.
func (s *Service) List(ctx context.Context, filter store.ListFilter) ([]store.Record, error) {
	recs, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "service: list revenue streams")
	}
	return recs, nil
}

// ParseOpt returns the options submissions are parsed with.
func (s *Service) ParseOpt() revstream.ParseOpt { return s.opts.ParseOpt }
