package revstream

import (
	"bytes"
	"context"
	"errors"
	"io"

	eng "github.com/reoring/revstream/internal/engine"
)

// ParseFrom consumes one JSON document from src, builds the generic value
// tree and validates it as a revenue stream. Token-level failures (syntax,
// duplicate keys, depth) are reported as Issues just like validation ones.
func ParseFrom(ctx context.Context, src Source, opts ...ParseOpt) (RevenueStream, error) {
	if src.tokens == nil {
		return nil, singleIssue(CodeParseError, "empty source")
	}
	opt := lastOpt(opts)
	v, err := eng.DecodeAny(src.enforce(opt))
	if err != nil {
		return nil, toIssues(err)
	}
	return Validate(ctx, v, opts...)
}

// ParseJSON is ParseFrom over a byte slice.
func ParseJSON(ctx context.Context, data []byte, opts ...ParseOpt) (RevenueStream, error) {
	return ParseFrom(ctx, JSONBytes(data), opts...)
}

// ParseReader validates input read from r. When MaxBytes is set the input is
// capped up front and a larger body fails with truncated.
func ParseReader(ctx context.Context, r io.Reader, opts ...ParseOpt) (RevenueStream, error) {
	opt := lastOpt(opts)
	if opt.MaxBytes <= 0 {
		return ParseFrom(ctx, JSONReader(r), opts...)
	}
	data, err := io.ReadAll(io.LimitReader(r, opt.MaxBytes+1))
	if err != nil {
		return nil, singleIssue(CodeParseError, err.Error())
	}
	if int64(len(data)) > opt.MaxBytes {
		return nil, singleIssue(CodeTruncated, "max bytes exceeded")
	}
	return ParseFrom(ctx, JSONReader(bytes.NewReader(data)), opts...)
}

func toIssues(err error) Issues {
	if err == nil {
		return nil
	}
	if iss, ok := AsIssues(err); ok {
		return iss
	}
	var ie eng.IssueError
	if errors.As(err, &ie) {
		return Issues{engineIssue(ie.SimpleIssue)}
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return singleIssue(CodeParseError, "unexpected end of input")
	}
	it := singleIssue(CodeParseError, err.Error())
	it[0].Cause = err
	return it
}

func singleIssue(code, hint string) Issues {
	return Issues{Root().Issue(code, hint)}
}
