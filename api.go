package revstream

import "context"

// Validate checks an untyped tree (map[string]any, []any, string, number,
// bool, nil) against the revenue-stream definition and returns the typed
// stream. On failure the stream is nil and the error is Issues holding every
// problem found, sorted by path. No partially validated value is returned.
func Validate(ctx context.Context, v any, opts ...ParseOpt) (RevenueStream, error) {
	opt := lastOpt(opts)
	c := &collector{
		failFast: opt.FailFast || IsFailFast(ctx),
		unknown:  opt.Unknown,
	}
	s := decodeStream(c, v)
	if len(c.issues) == 0 {
		return s, nil
	}
	if c.failFast {
		c.issues = c.issues[:1]
	}
	sortIssues(c.issues)
	return nil, c.issues
}

// SafeValidate returns (nil, false) when v is not a valid stream.
func SafeValidate(ctx context.Context, v any, opts ...ParseOpt) (RevenueStream, bool) {
	s, err := Validate(ctx, v, opts...)
	if err != nil {
		return nil, false
	}
	return s, true
}

// Is reports whether v is a valid stream.
func Is(ctx context.Context, v any) bool {
	_, err := Validate(ctx, v)
	return err == nil
}

type contextKey int

const (
	_ctxKeyFailFast contextKey = iota
	_ctxKeyStreamLookup
)

// WithFailFast returns a child context that marks fail-fast validation.
func WithFailFast(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, _ctxKeyFailFast, enabled)
}

// IsFailFast reports whether validation should stop on the first issue.
func IsFailFast(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	b, _ := ctx.Value(_ctxKeyFailFast).(bool)
	return b
}
