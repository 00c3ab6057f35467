package revstream

import (
	"strconv"
	"strings"
)

// PathRef builds JSON Pointer paths in a chain-safe way and creates Issues.
// The zero value is the document root.
type PathRef struct {
	parts []string
}

// Root returns the document root path.
func Root() PathRef { return PathRef{} }

// Field appends an object member, escaping '~' and '/' per RFC6901.
func (p PathRef) Field(name string) PathRef {
	if name == "" {
		return p
	}
	esc := strings.ReplaceAll(strings.ReplaceAll(name, "~", "~0"), "/", "~1")
	return PathRef{parts: append(append(make([]string, 0, len(p.parts)+1), p.parts...), esc)}
}

// Index appends an array position.
func (p PathRef) Index(i int) PathRef {
	return PathRef{parts: append(append(make([]string, 0, len(p.parts)+1), p.parts...), strconv.Itoa(i))}
}

// Pointer renders the path; the root renders as "/".
func (p PathRef) Pointer() string {
	if len(p.parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(p.parts, "/")
}

func (p PathRef) String() string { return p.Pointer() }

// Issue creates an issue at p. kv is a flat list of param key/value pairs.
// The message is rendered by the default translator.
func (p PathRef) Issue(code, hint string, kv ...any) Issue {
	var params map[string]any
	if len(kv) > 1 {
		params = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			k, _ := kv[i].(string)
			params[k] = kv[i+1]
		}
	}
	return Issue{
		Path:    p.Pointer(),
		Code:    code,
		Message: messageFor(code, params),
		Hint:    hint,
		Params:  params,
	}
}
