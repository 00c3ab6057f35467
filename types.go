package revstream

// UnknownPolicy controls how keys no branch declares are handled.
type UnknownPolicy int

const (
	UnknownStrip  UnknownPolicy = iota // Ignore undeclared keys (form input often carries leftovers).
	UnknownStrict                      // Reject undeclared keys with unknown_key.
)

// Severity expresses the severity level for issues.
type Severity int

const (
	Ignore Severity = iota
	Warn
	Error
)

// Strictness configures enforcement for duplicate keys.
type Strictness struct {
	OnDuplicateKey Severity // Ignore (last wins), Warn (reported through the sink) or Error.
}

// ParseOpt bundles parsing options.
type ParseOpt struct {
	Strictness Strictness
	MaxDepth   int   // 0 disables the nesting check.
	MaxBytes   int64 // 0 disables the size check (ParseReader only).
	FailFast   bool
	Unknown    UnknownPolicy
	// OnWarning receives non-fatal token issues such as duplicate keys in Warn mode.
	OnWarning func(Issue)
}

func lastOpt(opts []ParseOpt) ParseOpt {
	if len(opts) == 0 {
		return ParseOpt{}
	}
	return opts[len(opts)-1]
}
