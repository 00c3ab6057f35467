package revstream

import (
	"maps"

	js "github.com/reoring/revstream/jsonschema"
)

// JSONSchema projects the revenue-stream definition into a JSON Schema
// (oneOf over the four stream shapes) for form builders and API clients.
// Numeric-string coercion has no JSON Schema counterpart; the projection
// describes the canonical form produced by Encode.
func JSONSchema() *js.Schema {
	name := &js.Schema{Type: "string", MinLength: js.Ptr(MinNameLength)}
	stream := func(t StreamType, props map[string]*js.Schema, required ...string) *js.Schema {
		all := map[string]*js.Schema{"stream_type": js.Const(string(t)), "name": name}
		maps.Copy(all, props)
		return js.Object(all, append([]string{"stream_type", "name"}, required...)...)
	}
	charges := js.Object(map[string]*js.Schema{
		"up_front":                   feeSpec.schema(),
		"update_recurrent_frequency": frequencySpec.schema(),
	}, "up_front", "update_recurrent_frequency")
	revenue := &js.Schema{OneOf: []*js.Schema{
		js.Object(map[string]*js.Schema{"type": js.Const(string(RevenueAmount)), "data": quantitySpec.schema()}, "type", "data"),
		js.Object(map[string]*js.Schema{"type": js.Const(string(RevenuePercentOfRevenue)), "data": shareSpec.schema()}, "type", "data"),
	}}

	return &js.Schema{
		Schema: js.Draft,
		Title:  "RevenueStream",
		OneOf: []*js.Schema{
			stream(StreamUnitSales, map[string]*js.Schema{"unit_sales": quantitySpec.schema(), "unit_price": priceSpec.schema()}, "unit_sales", "unit_price"),
			stream(StreamBillableHours, map[string]*js.Schema{"billable_hours": quantitySpec.schema(), "hourly_rate": priceSpec.schema()}, "billable_hours", "hourly_rate"),
			stream(StreamRecurringCharges, map[string]*js.Schema{"signups": signupSpec.schema(), "charges": charges, "churn": priceSpec.schema()}, "signups", "charges", "churn"),
			stream(StreamRevenueOnly, map[string]*js.Schema{"revenue": revenue}, "revenue"),
		},
	}
}

// schema renders one constant/varying call site.
func (s measureSpec[X]) schema() *js.Schema {
	var branches []*js.Schema
	for _, f := range s.formats {
		switch f {
		case FormatNoFee:
			branches = append(branches, js.Object(map[string]*js.Schema{"type": js.Const(f)}, "type"))
		case FormatConstant:
			props := map[string]*js.Schema{
				"type":   js.Const(f),
				"amount": {Type: "number", Minimum: js.Ptr(0.0)},
			}
			maps.Copy(props, s.extraSchema)
			branches = append(branches, js.Object(props, append([]string{"type", "amount"}, s.extraKeys...)...))
		case FormatVarying:
			branches = append(branches, js.Object(map[string]*js.Schema{"type": js.Const(f), "data": seriesSchema()}, "type", "data"))
		}
	}
	return &js.Schema{OneOf: branches}
}

func seriesSchema() *js.Schema {
	stamp := &js.Schema{Type: []string{"number", "string"}}
	nonEmpty := &js.Schema{Type: "string", MinLength: js.Ptr(1)}
	note := js.Object(map[string]*js.Schema{
		"id":        nonEmpty,
		"user":      js.Object(map[string]*js.Schema{"id": nonEmpty, "full_name": nonEmpty}, "id", "full_name"),
		"body":      nonEmpty,
		"createdAt": stamp,
	}, "id", "user", "body", "createdAt")
	entry := js.Object(map[string]*js.Schema{
		"value": {Type: "number"},
		"date":  stamp,
		"notes": {Type: "array", Items: note},
	}, "date")
	row := &js.Schema{Type: "array", Items: entry, MinItems: js.Ptr(PeriodsPerSeries), MaxItems: js.Ptr(PeriodsPerSeries)}
	return &js.Schema{
		Type:                 "object",
		PatternProperties:    map[string]*js.Schema{`^-?[0-9]+$`: row},
		AdditionalProperties: false,
	}
}
