package engine

import (
	"io"

	json "github.com/goccy/go-json"
)

// Kind represents token kinds from a generic source.
type Kind int

const (
	KindBeginObject Kind = iota
	KindEndObject
	KindBeginArray
	KindEndArray
	KindKey
	KindString
	KindNumber
	KindBool
	KindNull
)

// Token is one lexical JSON token. Numbers stay textual until a validator
// coerces them.
type Token struct {
	Kind   Kind
	String string
	Number string
	Bool   bool
}

// TokenSource is a minimal interface required by the engine.
type TokenSource interface {
	NextToken() (Token, error)
}

// SimpleIssue is a lightweight issue raised while reading tokens.
type SimpleIssue struct {
	Code    string
	Path    string
	Message string
}

// IssueError is a lightweight error carrying a SimpleIssue.
type IssueError struct{ SimpleIssue }

func (e IssueError) Error() string { return e.SimpleIssue.Message }

// DecodeAny builds the generic value tree (map[string]any, []any, string,
// json.Number, bool, nil) of exactly one JSON document. Trailing tokens after
// the document are an error.
func DecodeAny(src TokenSource) (any, error) {
	tok, err := src.NextToken()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	v, err := decodeValue(src, tok)
	if err != nil {
		return nil, err
	}
	if _, err := src.NextToken(); err != io.EOF {
		if err == nil {
			return nil, IssueError{SimpleIssue{Code: "parse_error", Path: "/", Message: "unexpected data after top-level value"}}
		}
		return nil, err
	}
	return v, nil
}

func decodeValue(src TokenSource, tok Token) (any, error) {
	switch tok.Kind {
	case KindBeginObject:
		return decodeObject(src)
	case KindBeginArray:
		return decodeArray(src)
	case KindString:
		return tok.String, nil
	case KindNumber:
		return json.Number(tok.Number), nil
	case KindBool:
		return tok.Bool, nil
	case KindNull:
		return nil, nil
	default:
		return nil, io.ErrUnexpectedEOF
	}
}

func decodeObject(src TokenSource) (any, error) {
	m := make(map[string]any)
	for {
		tok, err := next(src)
		if err != nil {
			return nil, err
		}
		if tok.Kind == KindEndObject {
			return m, nil
		}
		if tok.Kind != KindKey {
			return nil, io.ErrUnexpectedEOF
		}
		vt, err := next(src)
		if err != nil {
			return nil, err
		}
		v, err := decodeValue(src, vt)
		if err != nil {
			return nil, err
		}
		m[tok.String] = v
	}
}

func decodeArray(src TokenSource) (any, error) {
	arr := []any{}
	for {
		tok, err := next(src)
		if err != nil {
			return nil, err
		}
		if tok.Kind == KindEndArray {
			return arr, nil
		}
		v, err := decodeValue(src, tok)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
}

// next reads a token inside a container, where EOF means truncated input.
func next(src TokenSource) (Token, error) {
	tok, err := src.NextToken()
	if err == io.EOF {
		return Token{}, io.ErrUnexpectedEOF
	}
	return tok, err
}
