package revstream

import (
	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	js "github.com/reoring/revstream/jsonschema"
)

// Measure is a constant-or-varying field. X carries the extra fields that the
// constant branch declares at a given call site (rate, started, stream_id).
type Measure[X any] struct {
	format string
	amount decimal.Decimal
	extra  X
	series TimeSeries
}

// Type returns the branch discriminator (CONSTANT, VARYING or NO_FEE).
func (m Measure[X]) Type() string { return m.format }

func (m Measure[X]) IsConstant() bool { return m.format == FormatConstant }
func (m Measure[X]) IsVarying() bool  { return m.format == FormatVarying }
func (m Measure[X]) IsNoFee() bool    { return m.format == FormatNoFee }

// Amount is set on the constant branch.
func (m Measure[X]) Amount() decimal.Decimal { return m.amount }

// Terms returns the call-site extras of the constant branch.
func (m Measure[X]) Terms() X { return m.extra }

// Series is set on the varying branch.
func (m Measure[X]) Series() TimeSeries { return m.series }

// Constant-branch extras per call site.
type (
	// NoTerms: the constant branch carries only an amount.
	NoTerms struct{}
	// SaleTerms: recurrence rate and start marker of a sold quantity.
	SaleTerms struct {
		Rate    SaleRate
		Started string
	}
	// StartTerms: start marker only.
	StartTerms struct {
		Started string
	}
	// FrequencyTerms: the charge recurs every Rate months.
	FrequencyTerms struct {
		Rate int
	}
	// ShareTerms: a percentage of another stream, referenced by id.
	ShareTerms struct {
		StreamID int64
		Started  string
	}
)

// Field shapes.
type (
	Quantity     = Measure[SaleTerms]
	Price        = Measure[NoTerms]
	Signups      = Measure[StartTerms]
	Frequency    = Measure[FrequencyTerms]
	UpFrontFee   = Measure[NoTerms]
	AmountShare  = Measure[SaleTerms]
	PercentShare = Measure[ShareTerms]
)

// Constant builds a constant-branch measure.
func Constant[X any](amount decimal.Decimal, terms X) Measure[X] {
	return Measure[X]{format: FormatConstant, amount: amount, extra: terms}
}

// Varying builds a varying-branch measure.
func Varying[X any](series TimeSeries) Measure[X] {
	return Measure[X]{format: FormatVarying, series: series}
}

// NoFee builds the payload-free fee branch.
func NoFee() UpFrontFee { return UpFrontFee{format: FormatNoFee} }

// measureSpec configures one constant/varying call site.
type measureSpec[X any] struct {
	formats   []string
	extraKeys []string
	// terms reads the constant-branch extras; nil when there are none.
	terms func(c *collector, obj map[string]any, at PathRef) X
	// wire writes the extras back into the canonical object.
	wire func(x X, out map[string]any)
	// extraSchema describes the extras for JSONSchema.
	extraSchema map[string]*js.Schema
}

var startedSchema = &js.Schema{Type: "string"}

var (
	quantitySpec = measureSpec[SaleTerms]{
		formats:   unitFormats,
		extraKeys: []string{"rate", "started"},
		terms: func(c *collector, obj map[string]any, at PathRef) SaleTerms {
			return SaleTerms{
				Rate:    SaleRate(c.requireEnum(obj, "rate", at, saleRates)),
				Started: c.requireString(obj, "started", at, 0),
			}
		},
		wire: func(x SaleTerms, out map[string]any) {
			out["rate"] = string(x.Rate)
			out["started"] = x.Started
		},
		extraSchema: map[string]*js.Schema{"rate": js.Enum(saleRates...), "started": startedSchema},
	}
	priceSpec  = measureSpec[NoTerms]{formats: unitFormats}
	signupSpec = measureSpec[StartTerms]{
		formats:   unitFormats,
		extraKeys: []string{"started"},
		terms: func(c *collector, obj map[string]any, at PathRef) StartTerms {
			return StartTerms{Started: c.requireString(obj, "started", at, 0)}
		},
		wire:        func(x StartTerms, out map[string]any) { out["started"] = x.Started },
		extraSchema: map[string]*js.Schema{"started": startedSchema},
	}
	frequencySpec = measureSpec[FrequencyTerms]{
		formats:   unitFormats,
		extraKeys: []string{"rate"},
		terms: func(c *collector, obj map[string]any, at PathRef) FrequencyTerms {
			return FrequencyTerms{Rate: int(c.requireInt(obj, "rate", at, 1, 12))}
		},
		wire: func(x FrequencyTerms, out map[string]any) { out["rate"] = x.Rate },
		extraSchema: map[string]*js.Schema{
			"rate": {Type: "integer", Minimum: js.Ptr(1.0), Maximum: js.Ptr(12.0)},
		},
	}
	feeSpec   = measureSpec[NoTerms]{formats: unitPriceFormatsWithFee}
	shareSpec = measureSpec[ShareTerms]{
		formats:   unitFormats,
		extraKeys: []string{"stream_id", "started"},
		terms: func(c *collector, obj map[string]any, at PathRef) ShareTerms {
			return ShareTerms{
				StreamID: c.requireInt(obj, "stream_id", at, 0, -1),
				Started:  c.requireString(obj, "started", at, 0),
			}
		},
		wire: func(x ShareTerms, out map[string]any) {
			out["stream_id"] = x.StreamID
			out["started"] = x.Started
		},
		extraSchema: map[string]*js.Schema{
			"stream_id": {Type: "integer", Minimum: js.Ptr(0.0)},
			"started":   startedSchema,
		},
	}
)

// parse resolves the branch of v and validates only the fields that branch
// declares. Fields of the other branches are never read.
func (s measureSpec[X]) parse(c *collector, v any, at PathRef) Measure[X] {
	var m Measure[X]
	obj, ok := c.object(v, at)
	if !ok {
		return m
	}
	tag, ok := c.discriminator(obj, "type", at, s.formats)
	if !ok {
		return m
	}
	m.format = tag
	switch tag {
	case FormatNoFee:
		c.checkUnknown(obj, at, "type")
	case FormatConstant:
		m.amount = c.requireAmount(obj, "amount", at)
		if s.terms != nil {
			m.extra = s.terms(c, obj, at)
		}
		c.checkUnknown(obj, at, append([]string{"type", "amount"}, s.extraKeys...)...)
	case FormatVarying:
		raw, present := obj["data"]
		if !present {
			c.add(at.Field("data").Issue(CodeRequired, "data is required"))
		} else {
			m.series = c.timeSeries(raw, at.Field("data"))
		}
		c.checkUnknown(obj, at, "type", "data")
	}
	return m
}

func (s measureSpec[X]) encode(m Measure[X]) map[string]any {
	out := map[string]any{"type": m.format}
	switch m.format {
	case FormatConstant:
		out["amount"] = json.Number(m.amount.String())
		if s.wire != nil {
			s.wire(m.extra, out)
		}
	case FormatVarying:
		out["data"] = m.series.wire()
	}
	return out
}
