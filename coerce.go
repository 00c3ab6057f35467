package revstream

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// coerceDecimal accepts JSON numbers and numeric strings. Form input submits
// amounts as text, so the string form is converted here explicitly before any
// range check runs. Blank strings, NaN and infinities are rejected.
func coerceDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(string(t))
		return d, err == nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		return d, err == nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(t), true
	case float32:
		if math.IsNaN(float64(t)) || math.IsInf(float64(t), 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat32(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int32:
		return decimal.NewFromInt32(t), true
	case int64:
		return decimal.NewFromInt(t), true
	case uint:
		return decimal.RequireFromString(strconv.FormatUint(uint64(t), 10)), true
	case uint32:
		return decimal.NewFromInt(int64(t)), true
	case uint64:
		return decimal.RequireFromString(strconv.FormatUint(t, 10)), true
	default:
		return decimal.Zero, false
	}
}

// Coerced numbers must fit these bounds before any comparison or formatting
// rescales them; a ten-byte "1e20000000" would otherwise expand to twenty
// million digits.
const (
	maxExponent        = 64
	maxCoefficientBits = 256
	minExponent        = -maxExponent
)

// magnitude classifies d as in range, too large, or too precise.
func magnitude(d decimal.Decimal) (tooBig, tooPrecise bool) {
	e := d.Exponent()
	switch {
	case e > maxExponent || d.Coefficient().BitLen() > maxCoefficientBits:
		return true, false
	case e < minExponent:
		return false, true
	}
	return false, false
}

// strictFloat accepts JSON numbers only; strings are not coerced.
func strictFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case json.Number:
		x, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint:
		f = float64(t)
	case uint32:
		f = float64(t)
	case uint64:
		f = float64(t)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// describe renders a rejected input value for the "got" param.
func describe(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(t)
	case json.Number:
		return string(t)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprint(t)
	}
}

func (c *collector) object(v any, at PathRef) (map[string]any, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		c.add(at.Issue(CodeInvalidType, "expected object", "expected", "object", "got", describe(v)))
	}
	return obj, ok
}

// requireObject reads obj[key] as a nested object.
func (c *collector) requireObject(obj map[string]any, key string, at PathRef) (map[string]any, bool) {
	p := at.Field(key)
	v, ok := obj[key]
	if !ok {
		c.add(p.Issue(CodeRequired, key+" is required"))
		return nil, false
	}
	return c.object(v, p)
}

// discriminator resolves obj[key] against a closed set.
func (c *collector) discriminator(obj map[string]any, key string, at PathRef, set []string) (string, bool) {
	p := at.Field(key)
	v, present := obj[key]
	if !present || v == nil {
		c.add(p.Issue(CodeDiscriminatorMissing, "discriminator missing", "expected", slices.Clone(set)))
		return "", false
	}
	tag, _ := v.(string)
	if tag == "" || !slices.Contains(set, tag) {
		c.add(p.Issue(CodeDiscriminatorUnknown, "unknown variant: "+describe(v), "expected", slices.Clone(set), "got", describe(v)))
		return "", false
	}
	return tag, true
}

// boundedDecimal coerces v and rejects values outside the magnitude bounds.
func (c *collector) boundedDecimal(v any, p PathRef, expected string) (decimal.Decimal, bool) {
	d, ok := coerceDecimal(v)
	if !ok {
		c.add(p.Issue(CodeInvalidType, "expected a number or numeric string", "expected", expected, "got", describe(v)))
		return decimal.Zero, false
	}
	if d.IsZero() {
		return decimal.Zero, true
	}
	switch tooBig, tooPrecise := magnitude(d); {
	case tooBig:
		c.add(p.Issue(CodeTooBig, "number out of range", "max", fmt.Sprintf("1e%d", maxExponent)))
		return decimal.Zero, false
	case tooPrecise:
		c.add(p.Issue(CodeInvalidType, "too many decimal places", "expected", expected, "got", "number"))
		return decimal.Zero, false
	}
	return d, true
}

// requireAmount reads a non-negative amount, coercing numeric strings.
func (c *collector) requireAmount(obj map[string]any, key string, at PathRef) decimal.Decimal {
	p := at.Field(key)
	v, ok := obj[key]
	if !ok {
		c.add(p.Issue(CodeRequired, key+" is required"))
		return decimal.Zero
	}
	d, ok := c.boundedDecimal(v, p, "number")
	if !ok {
		return decimal.Zero
	}
	if d.IsNegative() {
		c.add(p.Issue(CodeTooSmall, "must not be negative", "min", 0, "got", d.String()))
	}
	return d
}

// requireInt reads an integer within [lo, hi]; hi < lo caps the upper bound
// at math.MaxInt64 so the result never wraps.
func (c *collector) requireInt(obj map[string]any, key string, at PathRef, lo, hi int64) int64 {
	p := at.Field(key)
	v, ok := obj[key]
	if !ok {
		c.add(p.Issue(CodeRequired, key+" is required"))
		return 0
	}
	d, ok := c.boundedDecimal(v, p, "integer")
	if !ok {
		return 0
	}
	if hi < lo {
		hi = math.MaxInt64
	}
	switch {
	case d.LessThan(decimal.NewFromInt(lo)):
		c.add(p.Issue(CodeTooSmall, "below the minimum", "min", lo, "got", d.String()))
		return 0
	case d.GreaterThan(decimal.NewFromInt(hi)):
		c.add(p.Issue(CodeTooBig, "above the maximum", "max", hi, "got", d.String()))
		return 0
	case !d.IsInteger():
		c.add(p.Issue(CodeNotInteger, "expected a whole number", "got", d.String()))
	}
	return d.IntPart()
}

// requireString reads a string of at least minLen characters.
func (c *collector) requireString(obj map[string]any, key string, at PathRef, minLen int) string {
	p := at.Field(key)
	v, ok := obj[key]
	if !ok {
		c.add(p.Issue(CodeRequired, key+" is required"))
		return ""
	}
	s, ok := v.(string)
	if !ok {
		c.add(p.Issue(CodeInvalidType, "expected string", "expected", "string", "got", describe(v)))
		return ""
	}
	if n := utf8.RuneCountInString(s); n < minLen {
		c.add(p.Issue(CodeTooShort, fmt.Sprintf("must be at least %d characters long", minLen), "min", minLen, "got", n))
	}
	return s
}

// requireEnum reads a string member of set.
func (c *collector) requireEnum(obj map[string]any, key string, at PathRef, set []string) string {
	p := at.Field(key)
	v, ok := obj[key]
	if !ok {
		c.add(p.Issue(CodeRequired, key+" is required", "expected", slices.Clone(set)))
		return ""
	}
	s, _ := v.(string)
	if !slices.Contains(set, s) {
		c.add(p.Issue(CodeInvalidEnum, "not an allowed value", "expected", slices.Clone(set), "got", describe(v)))
		return ""
	}
	return s
}

// checkUnknown reports undeclared keys when the unknown policy is strict.
func (c *collector) checkUnknown(obj map[string]any, at PathRef, allowed ...string) {
	if c.unknown != UnknownStrict {
		return
	}
	var extra []string
	for k := range obj {
		if !slices.Contains(allowed, k) {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)
	for _, k := range extra {
		c.add(at.Field(k).Issue(CodeUnknownKey, "key not allowed here", "expected", slices.Clone(allowed)))
	}
}
