package revstream

import (
	"io"

	eng "github.com/reoring/revstream/internal/engine"
)

// Source is a stream of JSON tokens consumed by ParseFrom. The zero value is
// an empty source and fails with parse_error.
type Source struct {
	tokens eng.TokenSource
}

// JSONReader wraps an io.Reader as a JSON Source. Numbers are kept textual
// until a validator coerces them.
func JSONReader(r io.Reader) Source { return Source{tokens: eng.NewReader(r)} }

// JSONBytes wraps a byte slice as a JSON Source.
func JSONBytes(b []byte) Source { return Source{tokens: eng.NewBytes(b)} }

// enforce projects the public options onto the engine enforcement layer.
func (s Source) enforce(opt ParseOpt) eng.TokenSource {
	var sink func(eng.SimpleIssue)
	if opt.OnWarning != nil {
		sink = func(si eng.SimpleIssue) { opt.OnWarning(engineIssue(si)) }
	}
	return eng.WrapWithEnforcement(s.tokens, eng.EnforceOptions{
		OnDuplicate: toEngineDup(opt.Strictness.OnDuplicateKey),
		MaxDepth:    opt.MaxDepth,
		IssueSink:   sink,
	})
}

func toEngineDup(s Severity) eng.DuplicateStrictness {
	switch s {
	case Warn:
		return eng.DupWarn
	case Error:
		return eng.DupError
	default:
		return eng.DupIgnore
	}
}

func engineIssue(si eng.SimpleIssue) Issue {
	it := Issue{Path: si.Path, Code: si.Code, Hint: si.Message}
	it.Message = messageFor(si.Code, nil)
	return it
}
