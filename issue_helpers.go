package revstream

import "github.com/reoring/revstream/i18n"

// collector accumulates issues for one validation run.
type collector struct {
	issues   Issues
	failFast bool
	unknown  UnknownPolicy
}

func (c *collector) add(it Issue) { c.issues = append(c.issues, it) }

// stop reports whether the run should not look further.
func (c *collector) stop() bool { return c.failFast && len(c.issues) > 0 }

// messageFor renders the default-language message of code.
func messageFor(code string, params map[string]any) string {
	return i18n.T(code, messageData(params))
}
