package engine

import (
	"bytes"
	"io"
	"strconv"

	json "github.com/goccy/go-json"
)

type containerKind int

const (
	kindObject containerKind = iota
	kindArray
)

type frame struct {
	kind         containerKind
	expectingKey bool
}

// jsonSource adapts the go-json streaming decoder to TokenSource, telling
// object keys apart from string values.
type jsonSource struct {
	dec   *json.Decoder
	stack []frame
}

// NewReader wraps an io.Reader into a TokenSource.
func NewReader(r io.Reader) TokenSource {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &jsonSource{dec: dec}
}

// NewBytes wraps a byte slice into a TokenSource.
func NewBytes(b []byte) TokenSource { return NewReader(bytes.NewReader(b)) }

func (s *jsonSource) NextToken() (Token, error) {
	tok, err := s.dec.Token()
	if err != nil {
		return Token{}, err
	}
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			s.stack = append(s.stack, frame{kind: kindObject, expectingKey: true})
			return Token{Kind: KindBeginObject}, nil
		case '[':
			s.stack = append(s.stack, frame{kind: kindArray})
			return Token{Kind: KindBeginArray}, nil
		case '}':
			s.pop()
			return Token{Kind: KindEndObject}, nil
		default:
			s.pop()
			return Token{Kind: KindEndArray}, nil
		}
	case string:
		if top := s.top(); top != nil && top.kind == kindObject && top.expectingKey {
			top.expectingKey = false
			return Token{Kind: KindKey, String: v}, nil
		}
		s.valueDone()
		return Token{Kind: KindString, String: v}, nil
	case bool:
		s.valueDone()
		return Token{Kind: KindBool, Bool: v}, nil
	case json.Number:
		s.valueDone()
		return Token{Kind: KindNumber, Number: string(v)}, nil
	case float64:
		s.valueDone()
		return Token{Kind: KindNumber, Number: strconv.FormatFloat(v, 'g', -1, 64)}, nil
	default:
		s.valueDone()
		return Token{Kind: KindNull}, nil
	}
}

func (s *jsonSource) top() *frame {
	if len(s.stack) == 0 {
		return nil
	}
	return &s.stack[len(s.stack)-1]
}

// pop closes a container, which completes a value in the parent.
func (s *jsonSource) pop() {
	if n := len(s.stack); n > 0 {
		s.stack = s.stack[:n-1]
	}
	s.valueDone()
}

// valueDone marks that the parent object expects a key next.
func (s *jsonSource) valueDone() {
	if top := s.top(); top != nil && top.kind == kindObject {
		top.expectingKey = true
	}
}
