package revstream

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// PeriodsPerSeries is the fixed number of entries in every time-series row.
const PeriodsPerSeries = 12

// Stamp is a value that the wire format allows to be either a number or a
// string (period dates and note creation times).
type Stamp struct {
	text    string
	num     float64
	numeric bool
}

// NumberStamp returns a numeric stamp.
func NumberStamp(f float64) Stamp { return Stamp{num: f, numeric: true} }

// TextStamp returns a textual stamp.
func TextStamp(s string) Stamp { return Stamp{text: s} }

func (s Stamp) IsNumber() bool  { return s.numeric }
func (s Stamp) Number() float64 { return s.num }

func (s Stamp) String() string {
	if s.numeric {
		return strconv.FormatFloat(s.num, 'f', -1, 64)
	}
	return s.text
}

func (s Stamp) wire() any {
	if s.numeric {
		return json.Number(s.String())
	}
	return s.text
}

// NoteUser identifies the author of a note.
type NoteUser struct {
	ID       string
	FullName string
}

// Note is an annotation attached to one period of a series.
type Note struct {
	ID        string
	User      NoteUser
	Body      string
	CreatedAt Stamp
}

// PeriodEntry is one point of a series row.
type PeriodEntry struct {
	value    float64
	hasValue bool
	date     Stamp
	notes    []Note
	hasNotes bool
}

// Value returns the entry value; ok is false when the value was absent.
func (e PeriodEntry) Value() (v float64, ok bool) { return e.value, e.hasValue }

func (e PeriodEntry) Date() Stamp { return e.date }

// Notes returns a copy of the notes; nil when the notes field was absent.
func (e PeriodEntry) Notes() []Note {
	if !e.hasNotes {
		return nil
	}
	return append(make([]Note, 0, len(e.notes)), e.notes...)
}

// TimeSeries maps a month index to exactly PeriodsPerSeries entries.
type TimeSeries struct {
	rows map[int][]PeriodEntry
}

// Keys returns the month keys in ascending order.
func (ts TimeSeries) Keys() []int { return slices.Sorted(maps.Keys(ts.rows)) }

// Row returns a copy of the entries stored under key.
func (ts TimeSeries) Row(key int) ([]PeriodEntry, bool) {
	row, ok := ts.rows[key]
	if !ok {
		return nil, false
	}
	out := make([]PeriodEntry, len(row))
	for i, e := range row {
		e.notes = e.Notes()
		out[i] = e
	}
	return out, true
}

func (ts TimeSeries) Len() int { return len(ts.rows) }

// monthKey coerces a mapping key to an integer. The month range is not checked.
func monthKey(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func (c *collector) timeSeries(v any, at PathRef) TimeSeries {
	obj, ok := c.object(v, at)
	if !ok {
		return TimeSeries{}
	}
	rows := make(map[int][]PeriodEntry, len(obj))
	seen := make(map[int]string, len(obj))
	for _, raw := range slices.Sorted(maps.Keys(obj)) {
		if c.stop() {
			break
		}
		p := at.Field(raw)
		key, ok := monthKey(raw)
		if !ok {
			c.add(p.Issue(CodeInvalidKey, "key not numeric", "got", raw))
			continue
		}
		if prev, dup := seen[key]; dup {
			c.add(p.Issue(CodeDuplicateKey, fmt.Sprintf("key collides with %q after numeric coercion", prev), "got", raw, "first", prev))
			continue
		}
		seen[key] = raw
		rows[key] = c.periods(obj[raw], p)
	}
	return TimeSeries{rows: rows}
}

func (c *collector) periods(v any, at PathRef) []PeriodEntry {
	arr, ok := v.([]any)
	if !ok {
		c.add(at.Issue(CodeInvalidType, "expected array", "expected", "array", "got", describe(v)))
		return nil
	}
	if len(arr) != PeriodsPerSeries {
		c.add(at.Issue(CodeInvalidLength, fmt.Sprintf("expected %d entries, got %d", PeriodsPerSeries, len(arr)),
			"expected", PeriodsPerSeries, "got", len(arr)))
	}
	out := make([]PeriodEntry, 0, len(arr))
	for i, raw := range arr {
		if c.stop() {
			break
		}
		out = append(out, c.period(raw, at.Index(i)))
	}
	return out
}

func (c *collector) period(v any, at PathRef) PeriodEntry {
	var e PeriodEntry
	obj, ok := c.object(v, at)
	if !ok {
		return e
	}
	if raw, present := obj["value"]; present {
		f, ok := strictFloat(raw)
		if !ok {
			c.add(at.Field("value").Issue(CodeInvalidType, "expected number", "expected", "number", "got", describe(raw)))
		}
		e.value, e.hasValue = f, ok
	}
	e.date = c.requireStamp(obj, "date", at)
	if raw, present := obj["notes"]; present {
		e.notes, e.hasNotes = c.notes(raw, at.Field("notes")), true
	}
	c.checkUnknown(obj, at, "value", "date", "notes")
	return e
}

func (c *collector) notes(v any, at PathRef) []Note {
	arr, ok := v.([]any)
	if !ok {
		c.add(at.Issue(CodeInvalidType, "expected array", "expected", "array", "got", describe(v)))
		return nil
	}
	out := make([]Note, 0, len(arr))
	for i, raw := range arr {
		p := at.Index(i)
		obj, ok := c.object(raw, p)
		if !ok {
			continue
		}
		n := Note{
			ID:   c.requireString(obj, "id", p, 1),
			Body: c.requireString(obj, "body", p, 1),
		}
		if user, ok := c.requireObject(obj, "user", p); ok {
			up := p.Field("user")
			n.User = NoteUser{ID: c.requireString(user, "id", up, 1), FullName: c.requireString(user, "full_name", up, 1)}
			c.checkUnknown(user, up, "id", "full_name")
		}
		n.CreatedAt = c.requireStamp(obj, "createdAt", p)
		c.checkUnknown(obj, p, "id", "user", "body", "createdAt")
		out = append(out, n)
	}
	return out
}

func (c *collector) requireStamp(obj map[string]any, key string, at PathRef) Stamp {
	p := at.Field(key)
	raw, ok := obj[key]
	if !ok {
		c.add(p.Issue(CodeRequired, key+" is required"))
		return Stamp{}
	}
	if s, ok := raw.(string); ok {
		return TextStamp(s)
	}
	if f, ok := strictFloat(raw); ok {
		return NumberStamp(f)
	}
	c.add(p.Issue(CodeInvalidType, "expected number or string", "expected", "number|string", "got", describe(raw)))
	return Stamp{}
}

func (ts TimeSeries) wire() map[string]any {
	out := make(map[string]any, len(ts.rows))
	for key, row := range ts.rows {
		entries := make([]any, len(row))
		for i, e := range row {
			m := map[string]any{"date": e.date.wire()}
			if e.hasValue {
				m["value"] = json.Number(strconv.FormatFloat(e.value, 'f', -1, 64))
			}
			if e.hasNotes {
				notes := make([]any, len(e.notes))
				for j, n := range e.notes {
					notes[j] = map[string]any{
						"id":        n.ID,
						"user":      map[string]any{"id": n.User.ID, "full_name": n.User.FullName},
						"body":      n.Body,
						"createdAt": n.CreatedAt.wire(),
					}
				}
				m["notes"] = notes
			}
			entries[i] = m
		}
		out[strconv.Itoa(key)] = entries
	}
	return out
}
