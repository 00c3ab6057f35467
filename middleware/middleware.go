package middleware

import (
	"context"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/reoring/revstream"
	"github.com/reoring/revstream/i18n"
)

type ctxKeyStream struct{}

// ContextWithStream attaches a validated stream to the context.
func ContextWithStream(ctx context.Context, s revstream.RevenueStream) context.Context {
	return context.WithValue(ctx, ctxKeyStream{}, s)
}

// StreamFromContext retrieves the stream stored by Validate.
func StreamFromContext(ctx context.Context) (revstream.RevenueStream, bool) {
	s, ok := ctx.Value(ctxKeyStream{}).(revstream.RevenueStream)
	return s, ok
}

// DefaultParseOpt returns a recommended default for HTTP JSON boundaries.
// Duplicate keys are errors and bodies over 1 MiB are rejected.
func DefaultParseOpt() revstream.ParseOpt {
	return revstream.ParseOpt{
		Strictness: revstream.Strictness{OnDuplicateKey: revstream.Error},
		MaxDepth:   32,
		MaxBytes:   1 << 20,
	}
}

// Validate parses the request body as a revenue stream using opt, stores it
// in the request context and calls next. On failure it answers 422 with the
// issues localized for the request's Accept-Language.
func Validate(opt revstream.ParseOpt) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := revstream.ParseReader(r.Context(), r.Body, opt)
			if err != nil {
				WriteIssues(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithStream(r.Context(), s)))
		})
	}
}

// ErrorPayload shapes Issues for JSON responses.
func ErrorPayload(issues revstream.Issues) map[string]any {
	kinds := make([]string, 0, 1)
	seen := map[revstream.Kind]bool{}
	for _, it := range issues {
		if k := it.Kind(); !seen[k] {
			seen[k] = true
			kinds = append(kinds, k.String())
		}
	}
	return map[string]any{"issues": issues, "kinds": kinds}
}

// WriteIssues renders err as a 422 issue payload. Errors that are not Issues
// become a 500 with a generic message.
func WriteIssues(w http.ResponseWriter, r *http.Request, err error) {
	iss, ok := revstream.AsIssues(err)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return
	}
	tr := i18n.For(r.Header.Get("Accept-Language"))
	writeJSON(w, http.StatusUnprocessableEntity, ErrorPayload(iss.Localize(tr)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
