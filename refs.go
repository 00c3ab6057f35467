package revstream

import (
	"context"
	"fmt"
)

// StreamLookup answers whether a stream id exists. Stores implement it so the
// stream_id of a percent-of-revenue share can be checked.
type StreamLookup interface {
	StreamExists(ctx context.Context, id int64) (bool, error)
}

// WithStreamLookup stores a lookup in the context for CheckReferences.
func WithStreamLookup(ctx context.Context, l StreamLookup) context.Context {
	return context.WithValue(ctx, _ctxKeyStreamLookup, l)
}

// StreamLookupFrom retrieves the lookup stored by WithStreamLookup.
func StreamLookupFrom(ctx context.Context) (StreamLookup, bool) {
	l, ok := ctx.Value(_ctxKeyStreamLookup).(StreamLookup)
	return l, ok && l != nil
}

// streamIDPath is where the only cross-stream reference lives.
var streamIDPath = Root().Field("revenue").Field("data").Field("stream_id")

// References returns the stream ids s points at.
func References(s RevenueStream) []int64 {
	ro, ok := s.(*RevenueOnly)
	if !ok {
		return nil
	}
	share, ok := ro.revenue.Percent()
	if !ok || !share.IsConstant() {
		return nil
	}
	return []int64{share.Terms().StreamID}
}

// CheckReferences verifies that every stream id referenced by s exists. It
// runs after Validate and may perform I/O through lookup; when lookup is nil
// the one stored in ctx is used. Failures are Issues of KindReference.
func CheckReferences(ctx context.Context, s RevenueStream, lookup StreamLookup) error {
	ids := References(s)
	if len(ids) == 0 {
		return nil
	}
	if lookup == nil {
		lookup, _ = StreamLookupFrom(ctx)
	}
	if lookup == nil {
		return Issues{streamIDPath.Issue(CodeDependencyUnavailable, "stream lookup not provided")}
	}
	var iss Issues
	for _, id := range ids {
		ok, err := lookup.StreamExists(ctx, id)
		if err != nil {
			it := streamIDPath.Issue(CodeDependencyUnavailable, err.Error())
			it.Cause = err
			iss = AppendIssues(iss, it)
			continue
		}
		if !ok {
			iss = AppendIssues(iss, streamIDPath.Issue(CodeUnknownReference, fmt.Sprintf("stream %d does not exist", id), "got", id))
		}
	}
	if len(iss) > 0 {
		return iss
	}
	return nil
}
