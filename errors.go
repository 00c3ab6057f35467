package revstream

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/reoring/revstream/i18n"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeInvalidType          = "invalid_type"
	CodeRequired             = "required"
	CodeUnknownKey           = "unknown_key"
	CodeDuplicateKey         = "duplicate_key"
	CodeInvalidEnum          = "invalid_enum"
	CodeInvalidKey           = "invalid_key"
	CodeInvalidLength        = "invalid_length"
	CodeParseError           = "parse_error"
	CodeTruncated            = "truncated"
	CodeDiscriminatorMissing = "discriminator_missing"
	CodeDiscriminatorUnknown = "discriminator_unknown"
	CodeTooSmall             = "too_small"
	CodeTooBig               = "too_big"
	CodeTooShort             = "too_short"
	CodeNotInteger           = "not_integer"
	// Context passes (may consult a collaborator)
	CodeUnknownReference      = "unknown_reference"
	CodeDependencyUnavailable = "dependency_unavailable"
)

// Kind groups issue codes into the failure taxonomy surfaced to callers.
type Kind uint8

const (
	KindShape Kind = iota
	KindDiscriminator
	KindRange
	KindReference
)

func (k Kind) String() string {
	switch k {
	case KindDiscriminator:
		return "DiscriminatorError"
	case KindRange:
		return "RangeError"
	case KindReference:
		return "ReferenceError"
	default:
		return "ShapeError"
	}
}

// Sentinels matched by errors.Is against an Issues value: errors.Is(err,
// ErrRange) reports whether at least one issue is a range violation.
var (
	ErrShape         = errors.New("revstream: shape error")
	ErrDiscriminator = errors.New("revstream: discriminator error")
	ErrRange         = errors.New("revstream: range error")
	ErrReference     = errors.New("revstream: reference error")
)

// Err returns the sentinel for k.
func (k Kind) Err() error {
	switch k {
	case KindDiscriminator:
		return ErrDiscriminator
	case KindRange:
		return ErrRange
	case KindReference:
		return ErrReference
	default:
		return ErrShape
	}
}

// KindOf classifies an issue code. Unknown codes are shape errors.
func KindOf(code string) Kind {
	switch code {
	case CodeDiscriminatorMissing, CodeDiscriminatorUnknown:
		return KindDiscriminator
	case CodeTooSmall, CodeTooBig, CodeTooShort, CodeNotInteger:
		return KindRange
	case CodeUnknownReference, CodeDependencyUnavailable:
		return KindReference
	default:
		return KindShape
	}
}

// Issue represents a single validation entry.
type Issue struct {
	Path    string         `json:"path"` // JSON Pointer (for example: /unit_price/data/1/3/value).
	Code    string         `json:"code"` // One of the codes listed above.
	Message string         `json:"message"`
	Hint    string         `json:"hint,omitempty"`
	Params  map[string]any `json:"params,omitempty"` // expected/got/min/max for i18n and clients.
	Cause   error          `json:"-"`
}

// Kind reports the taxonomy bucket of the issue.
func (it Issue) Kind() Kind { return KindOf(it.Code) }

// Issues is a collection of validation errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	lim := min(len(iss), maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(b, "%s at %s", iss[i].Code, iss[i].Path)
	}
	if len(iss) > lim {
		fmt.Fprintf(b, "; ... (total %d)", len(iss))
	}
	return b.String()
}

// Is matches the Kind sentinels.
func (iss Issues) Is(target error) bool {
	for _, it := range iss {
		if it.Kind().Err() == target {
			return true
		}
	}
	return false
}

// HasKind reports whether any issue belongs to k.
func (iss Issues) HasKind(k Kind) bool {
	for _, it := range iss {
		if it.Kind() == k {
			return true
		}
	}
	return false
}

// At returns the issues reported exactly at path.
func (iss Issues) At(path string) Issues {
	var out Issues
	for _, it := range iss {
		if it.Path == path {
			out = append(out, it)
		}
	}
	return out
}

// Under returns the issues reported at prefix or below it.
func (iss Issues) Under(prefix string) Issues {
	var out Issues
	for _, it := range iss {
		if it.Path == prefix || strings.HasPrefix(it.Path, strings.TrimSuffix(prefix, "/")+"/") {
			out = append(out, it)
		}
	}
	return out
}

// Localize re-renders every message with tr. Codes, paths and params are kept.
func (iss Issues) Localize(tr i18n.Translator) Issues {
	if tr == nil {
		return iss
	}
	out := make(Issues, len(iss))
	for i, it := range iss {
		it.Message = tr.Message(it.Code, messageData(it.Params))
		out[i] = it
	}
	return out
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	return append(dst, more...)
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// sortIssues orders issues by path and keeps the discovery order for equal paths.
func sortIssues(iss Issues) {
	sort.SliceStable(iss, func(i, j int) bool { return iss[i].Path < iss[j].Path })
}

func messageData(params map[string]any) map[string]string {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]string, len(params))
	for k, v := range params {
		switch t := v.(type) {
		case []string:
			out[k] = strings.Join(t, ", ")
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out
}
