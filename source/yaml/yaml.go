package yaml

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/reoring/revstream"
)

// DuplicateKeyError reports a repeated key in a YAML mapping with both
// positions and the JSON Pointer of the duplicate.
type DuplicateKeyError struct {
	Path      string
	Key       string
	FirstLine int
	Line      int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate YAML key %q at line %d (first at line %d)", e.Key, e.Line, e.FirstLine)
}

// Reader decodes a multi-document YAML stream into JSON-like values
// (map[string]any, []any, string, json.Number, bool, nil). Numbers keep their
// decimal text so amounts coerce exactly.
type Reader struct {
	dec  *yamlv3.Decoder
	dup  revstream.Severity
	warn func(*DuplicateKeyError)
}

// NewReader constructs a Reader over r. Duplicate keys fail by default.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: yamlv3.NewDecoder(r), dup: revstream.Error}
}

// DuplicateKeys sets how repeated mapping keys are handled: Ignore keeps the
// last value, Warn keeps the last value and passes the duplicate to warn,
// Error fails the document.
func (r *Reader) DuplicateKeys(s revstream.Severity, warn func(*DuplicateKeyError)) *Reader {
	r.dup = s
	r.warn = warn
	return r
}

// Next returns the next document. It returns (nil, io.EOF) when the stream
// is exhausted. In Error mode duplicate keys fail with *DuplicateKeyError.
func (r *Reader) Next() (any, error) {
	var root yamlv3.Node
	if err := r.dec.Decode(&root); err != nil {
		return nil, err
	}
	return r.convert(&root, "")
}

// ReadAll reads every document of the stream.
func (r *Reader) ReadAll() ([]any, error) {
	var out []any
	for {
		v, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

// Result is the outcome of one document of a stream file.
type Result struct {
	Index  int
	Stream revstream.RevenueStream
	Err    error
}

// ParseAll validates every document of a YAML stream as a revenue stream.
// Each document succeeds or fails on its own; a YAML syntax error ends the
// stream with a parse_error result. MaxBytes caps the whole stream and
// Strictness.OnDuplicateKey applies to every mapping, as on the JSON path.
func ParseAll(ctx context.Context, r io.Reader, opts ...revstream.ParseOpt) []Result {
	var opt revstream.ParseOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	if opt.MaxBytes > 0 {
		data, err := io.ReadAll(io.LimitReader(r, opt.MaxBytes+1))
		if err != nil {
			return []Result{{Err: toIssues(err)}}
		}
		if int64(len(data)) > opt.MaxBytes {
			return []Result{{Err: revstream.Issues{{Path: "/", Code: revstream.CodeTruncated, Message: "input truncated", Hint: "max bytes exceeded"}}}}
		}
		r = bytes.NewReader(data)
	}

	rd := NewReader(r).DuplicateKeys(opt.Strictness.OnDuplicateKey, func(de *DuplicateKeyError) {
		if opt.OnWarning != nil {
			opt.OnWarning(toIssues(de)[0])
		}
	})
	var out []Result
	for i := 0; ; i++ {
		v, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			out = append(out, Result{Index: i, Err: toIssues(err)})
			var de *DuplicateKeyError
			if errors.As(err, &de) {
				continue
			}
			return out
		}
		s, err := revstream.Validate(ctx, v, opts...)
		out = append(out, Result{Index: i, Stream: s, Err: err})
	}
}

func toIssues(err error) revstream.Issues {
	var de *DuplicateKeyError
	if errors.As(err, &de) {
		return revstream.Issues{{Path: de.Path, Code: revstream.CodeDuplicateKey, Message: "duplicate key", Hint: de.Error(), Cause: err}}
	}
	return revstream.Issues{{Path: "/", Code: revstream.CodeParseError, Message: "parse error", Hint: err.Error(), Cause: err}}
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func (r *Reader) convert(n *yamlv3.Node, path string) (any, error) {
	switch n.Kind {
	case yamlv3.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return r.convert(n.Content[0], path)
	case yamlv3.AliasNode:
		return r.convert(n.Alias, path)
	case yamlv3.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		first := make(map[string]int, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			key := k.Value
			p := path + "/" + pointerEscaper.Replace(key)
			if line, dup := first[key]; dup {
				de := &DuplicateKeyError{Path: p, Key: key, FirstLine: line, Line: k.Line}
				switch r.dup {
				case revstream.Error:
					return nil, de
				case revstream.Warn:
					if r.warn != nil {
						r.warn(de)
					}
				}
			} else {
				first[key] = k.Line
			}
			val, err := r.convert(v, p)
			if err != nil {
				return nil, err
			}
			m[key] = val
		}
		return m, nil
	case yamlv3.SequenceNode:
		arr := make([]any, 0, len(n.Content))
		for i, c := range n.Content {
			v, err := r.convert(c, path+"/"+strconv.Itoa(i))
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case yamlv3.ScalarNode:
		return scalar(n), nil
	default:
		return nil, nil
	}
}

func scalar(n *yamlv3.Node) any {
	switch n.ShortTag() {
	case "!!null":
		return nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err == nil {
			return b
		}
	case "!!int":
		if i, err := strconv.ParseInt(strings.ReplaceAll(n.Value, "_", ""), 0, 64); err == nil {
			return json.Number(strconv.FormatInt(i, 10))
		}
	case "!!float":
		if _, err := decimal.NewFromString(n.Value); err == nil {
			return json.Number(n.Value)
		}
		// .inf and .nan have no JSON counterpart and stay textual.
	}
	return n.Value
}
