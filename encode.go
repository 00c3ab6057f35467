package revstream

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Encode returns the canonical wire form of s: only the fields of the taken
// branches, amounts as exact decimal numbers and month keys as integers.
// Validating the result yields a value equal to s.
func Encode(s RevenueStream) map[string]any {
	out := map[string]any{"stream_type": string(s.StreamType()), "name": s.Name()}
	switch t := s.(type) {
	case *UnitSales:
		out["unit_sales"] = quantitySpec.encode(t.unitSales)
		out["unit_price"] = priceSpec.encode(t.unitPrice)
	case *BillableHours:
		out["billable_hours"] = quantitySpec.encode(t.billableHours)
		out["hourly_rate"] = priceSpec.encode(t.hourlyRate)
	case *RecurringCharges:
		out["signups"] = signupSpec.encode(t.signups)
		out["charges"] = map[string]any{
			"up_front":                   feeSpec.encode(t.charges.UpFront),
			"update_recurrent_frequency": frequencySpec.encode(t.charges.Frequency),
		}
		out["churn"] = priceSpec.encode(t.churn)
	case *RevenueOnly:
		rev := map[string]any{"type": string(t.revenue.kind)}
		switch t.revenue.kind {
		case RevenueAmount:
			rev["data"] = quantitySpec.encode(t.revenue.amount)
		case RevenuePercentOfRevenue:
			rev["data"] = shareSpec.encode(t.revenue.percent)
		}
		out["revenue"] = rev
	}
	return out
}

// Marshal encodes s as canonical JSON.
func Marshal(s RevenueStream) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("revstream: marshal nil stream")
	}
	return json.Marshal(Encode(s))
}
