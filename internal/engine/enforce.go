package engine

import (
	"strconv"
	"strings"
)

// DuplicateStrictness selects what happens on a repeated object key.
type DuplicateStrictness int

const (
	DupIgnore DuplicateStrictness = iota
	DupWarn
	DupError
)

// EnforceOptions controls runtime enforcement behavior.
type EnforceOptions struct {
	OnDuplicate DuplicateStrictness
	MaxDepth    int
	// IssueSink receives non-fatal issues (duplicate keys in warn mode).
	IssueSink func(SimpleIssue)
}

type scope struct {
	kind      containerKind
	path      string
	keys      map[string]struct{}
	pending   string
	nextIndex int
}

// WrapWithEnforcement returns a TokenSource that enforces duplicate key
// policy and maximum nesting depth while tracking JSON Pointer paths.
func WrapWithEnforcement(inner TokenSource, opt EnforceOptions) TokenSource {
	if opt.OnDuplicate == DupIgnore && opt.MaxDepth <= 0 {
		return inner
	}
	return &enforcingTokenSource{inner: inner, opt: opt}
}

type enforcingTokenSource struct {
	inner TokenSource
	opt   EnforceOptions
	stack []scope
}

func (e *enforcingTokenSource) NextToken() (Token, error) {
	tok, err := e.inner.NextToken()
	if err != nil {
		return Token{}, err
	}
	switch tok.Kind {
	case KindBeginObject, KindBeginArray:
		sc := scope{kind: kindArray, path: e.valuePath()}
		if tok.Kind == KindBeginObject {
			sc.kind, sc.keys = kindObject, make(map[string]struct{})
		}
		e.stack = append(e.stack, sc)
		if e.opt.MaxDepth > 0 && len(e.stack) > e.opt.MaxDepth {
			return Token{}, IssueError{SimpleIssue{Code: "parse_error", Path: pointer(sc.path), Message: "max depth exceeded"}}
		}
	case KindEndObject, KindEndArray:
		if n := len(e.stack); n > 0 {
			e.stack = e.stack[:n-1]
		}
	case KindKey:
		top := &e.stack[len(e.stack)-1]
		top.pending = tok.String
		if _, dup := top.keys[tok.String]; dup && e.opt.OnDuplicate != DupIgnore {
			si := SimpleIssue{Code: "duplicate_key", Path: pointer(join(top.path, tok.String)), Message: "key '" + tok.String + "' duplicated"}
			if e.opt.OnDuplicate == DupError {
				return Token{}, IssueError{si}
			}
			if e.opt.IssueSink != nil {
				e.opt.IssueSink(si)
			}
		}
		top.keys[tok.String] = struct{}{}
	default:
		e.valuePath()
	}
	return tok, nil
}

// valuePath returns the path of the value that starts with the current token
// and advances array positions.
func (e *enforcingTokenSource) valuePath() string {
	if len(e.stack) == 0 {
		return ""
	}
	top := &e.stack[len(e.stack)-1]
	if top.kind == kindArray {
		p := join(top.path, strconv.Itoa(top.nextIndex))
		top.nextIndex++
		return p
	}
	return join(top.path, top.pending)
}

var jsonPointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func join(base, token string) string { return base + "/" + jsonPointerEscaper.Replace(token) }

func pointer(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
