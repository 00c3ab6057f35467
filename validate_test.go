package revstream_test

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/reoring/revstream"
)

func series(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = map[string]any{"value": float64(i * 10), "date": "2024-01"}
	}
	return out
}

func scenarioA() map[string]any {
	return map[string]any{
		"stream_type": "UNIT_SALES",
		"name":        "Widgets",
		"unit_sales":  map[string]any{"type": "CONSTANT", "amount": 10, "rate": "MONTH", "started": "2024-01"},
		"unit_price":  map[string]any{"type": "CONSTANT", "amount": 5},
	}
}

func scenarioD() map[string]any {
	return map[string]any{
		"stream_type": "RECURRING_CHARGES",
		"name":        "Subs",
		"signups":     map[string]any{"type": "CONSTANT", "amount": 100, "started": "2024-03"},
		"charges": map[string]any{
			"up_front":                   map[string]any{"type": "NO_FEE"},
			"update_recurrent_frequency": map[string]any{"type": "CONSTANT", "amount": 9.99, "rate": 1},
		},
		"churn": map[string]any{"type": "CONSTANT", "amount": 0.02},
	}
}

func mustIssues(t *testing.T, err error) revstream.Issues {
	t.Helper()
	iss, ok := revstream.AsIssues(err)
	if !ok || len(iss) == 0 {
		t.Fatalf("expected issues, got %v", err)
	}
	return iss
}

func hasCodeAt(iss revstream.Issues, path, code string) bool {
	for _, it := range iss.At(path) {
		if it.Code == code {
			return true
		}
	}
	return false
}

func TestScenarioA_UnitSalesConstant(t *testing.T) {
	s, err := revstream.Validate(context.Background(), scenarioA())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	us, ok := s.(*revstream.UnitSales)
	if !ok {
		t.Fatalf("expected *UnitSales, got %T", s)
	}
	if us.Name() != "Widgets" || !us.UnitSales().IsConstant() {
		t.Fatalf("unexpected value: %+v", us)
	}
	if got := us.UnitSales().Terms(); got.Rate != revstream.RateMonth || got.Started != "2024-01" {
		t.Fatalf("unexpected terms: %+v", got)
	}
	if us.UnitPrice().Amount().String() != "5" {
		t.Fatalf("unit price amount: %s", us.UnitPrice().Amount())
	}
}

func TestScenarioB_VaryingPrice(t *testing.T) {
	in := scenarioA()
	in["unit_price"] = map[string]any{"type": "VARYING", "data": map[string]any{"2024": series(12)}}
	s, err := revstream.Validate(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	price := s.(*revstream.UnitSales).UnitPrice()
	if !price.IsVarying() {
		t.Fatalf("expected varying branch, got %s", price.Type())
	}
	row, ok := price.Series().Row(2024)
	if !ok || len(row) != revstream.PeriodsPerSeries {
		t.Fatalf("row 2024: ok=%v len=%d", ok, len(row))
	}
	if v, ok := row[3].Value(); !ok || v != 30 {
		t.Fatalf("row[3].Value() = %v, %v", v, ok)
	}
}

func TestScenarioC_ElevenEntriesRejected(t *testing.T) {
	in := scenarioA()
	in["unit_price"] = map[string]any{"type": "VARYING", "data": map[string]any{"2024": series(11)}}
	_, err := revstream.Validate(context.Background(), in)
	iss := mustIssues(t, err)
	if !hasCodeAt(iss, "/unit_price/data/2024", revstream.CodeInvalidLength) {
		t.Fatalf("expected invalid_length at /unit_price/data/2024, got %v", iss)
	}
	if !errors.Is(err, revstream.ErrShape) {
		t.Fatalf("expected ShapeError, got %v", err)
	}
	if got := iss.At("/unit_price/data/2024")[0].Params["expected"]; got != revstream.PeriodsPerSeries {
		t.Fatalf("expected param = %v", got)
	}
}

func TestScenarioD_RecurringCharges(t *testing.T) {
	s, err := revstream.Validate(context.Background(), scenarioD())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rc := s.(*revstream.RecurringCharges)
	if !rc.Charges().UpFront.IsNoFee() {
		t.Fatalf("up_front should be NO_FEE")
	}
	if rc.Charges().Frequency.Terms().Rate != 1 {
		t.Fatalf("frequency rate = %d", rc.Charges().Frequency.Terms().Rate)
	}
	if rc.Churn().Amount().String() != "0.02" {
		t.Fatalf("churn = %s", rc.Churn().Amount())
	}
}

func TestScenarioE_FrequencyRateOutOfRange(t *testing.T) {
	in := scenarioD()
	in["charges"].(map[string]any)["update_recurrent_frequency"] = map[string]any{"type": "CONSTANT", "amount": 9.99, "rate": 13}
	_, err := revstream.Validate(context.Background(), in)
	iss := mustIssues(t, err)
	if !hasCodeAt(iss, "/charges/update_recurrent_frequency/rate", revstream.CodeTooBig) {
		t.Fatalf("expected too_big at rate, got %v", iss)
	}
	if !errors.Is(err, revstream.ErrRange) || !iss.HasKind(revstream.KindRange) {
		t.Fatalf("expected RangeError")
	}
	if iss.HasKind(revstream.KindDiscriminator) {
		t.Fatalf("unexpected discriminator issue: %v", iss)
	}
}

func TestFrequencyRate_Bounds(t *testing.T) {
	cases := []struct {
		rate any
		code string
	}{
		{0, revstream.CodeTooSmall},
		{1, ""},
		{12, ""},
		{"6", ""},
		{2.5, revstream.CodeNotInteger},
		{"x", revstream.CodeInvalidType},
	}
	for _, tc := range cases {
		in := scenarioD()
		in["charges"].(map[string]any)["update_recurrent_frequency"] = map[string]any{"type": "CONSTANT", "amount": 1, "rate": tc.rate}
		_, err := revstream.Validate(context.Background(), in)
		if tc.code == "" {
			if err != nil {
				t.Errorf("rate %v: unexpected error %v", tc.rate, err)
			}
			continue
		}
		if iss := mustIssues(t, err); !hasCodeAt(iss, "/charges/update_recurrent_frequency/rate", tc.code) {
			t.Errorf("rate %v: expected %s, got %v", tc.rate, tc.code, iss)
		}
	}
}

func TestStreamType_MissingOrUnknown(t *testing.T) {
	for _, in := range []map[string]any{
		{"name": "Widgets"},
		{"stream_type": nil, "name": "Widgets"},
		{"stream_type": "SUBSCRIPTION", "name": "Widgets"},
		{"stream_type": 3, "name": "Widgets"},
	} {
		_, err := revstream.Validate(context.Background(), in)
		iss := mustIssues(t, err)
		if len(iss.At("/stream_type")) == 0 || iss[0].Kind() != revstream.KindDiscriminator {
			t.Errorf("input %v: expected discriminator issue at /stream_type, got %v", in, iss)
		}
		if !errors.Is(err, revstream.ErrDiscriminator) {
			t.Errorf("input %v: expected DiscriminatorError", in)
		}
	}
}

func TestStreamType_UnknownCarriesExpectedSet(t *testing.T) {
	_, err := revstream.Validate(context.Background(), map[string]any{"stream_type": "SUBSCRIPTION"})
	it := mustIssues(t, err)[0]
	if it.Code != revstream.CodeDiscriminatorUnknown {
		t.Fatalf("code = %s", it.Code)
	}
	expected, _ := it.Params["expected"].([]string)
	if len(expected) != len(revstream.StreamTypes()) {
		t.Fatalf("expected param = %v", it.Params["expected"])
	}
	if it.Params["got"] != `"SUBSCRIPTION"` {
		t.Fatalf("got param = %v", it.Params["got"])
	}
}

func TestNotAnObject(t *testing.T) {
	for _, in := range []any{nil, "UNIT_SALES", []any{}, 1} {
		_, err := revstream.Validate(context.Background(), in)
		if iss := mustIssues(t, err); iss[0].Code != revstream.CodeInvalidType || iss[0].Path != "/" {
			t.Errorf("input %v: got %v", in, iss)
		}
	}
}

func TestSeriesLength(t *testing.T) {
	for _, n := range []int{0, 11, 12, 13} {
		in := scenarioA()
		in["unit_sales"] = map[string]any{"type": "VARYING", "data": map[string]any{"1": series(n), "2": series(12)}}
		_, err := revstream.Validate(context.Background(), in)
		if n == 12 {
			if err != nil {
				t.Errorf("n=12: unexpected error %v", err)
			}
			continue
		}
		if iss := mustIssues(t, err); !hasCodeAt(iss, "/unit_sales/data/1", revstream.CodeInvalidLength) {
			t.Errorf("n=%d: expected invalid_length, got %v", n, iss)
		}
	}
}

func TestSeriesEntries(t *testing.T) {
	row := series(12)
	row[0] = map[string]any{"value": "10", "date": "2024-01"}
	row[1] = map[string]any{"value": 1}
	row[2] = map[string]any{"date": true}
	row[3] = map[string]any{"date": 1704067200000.0, "notes": []any{
		map[string]any{"id": "n1", "user": map[string]any{"id": "u1", "full_name": "Ada"}, "body": "peak", "createdAt": "2024-01-02"},
	}}
	row[4] = map[string]any{"date": "2024-05", "notes": []any{map[string]any{"id": "n2"}}}
	in := scenarioA()
	in["unit_price"] = map[string]any{"type": "VARYING", "data": map[string]any{"7": row}}

	_, err := revstream.Validate(context.Background(), in)
	iss := mustIssues(t, err)
	want := map[string]string{
		"/unit_price/data/7/0/value":             revstream.CodeInvalidType,
		"/unit_price/data/7/1/date":              revstream.CodeRequired,
		"/unit_price/data/7/2/date":              revstream.CodeInvalidType,
		"/unit_price/data/7/4/notes/0/body":      revstream.CodeRequired,
		"/unit_price/data/7/4/notes/0/user":      revstream.CodeRequired,
		"/unit_price/data/7/4/notes/0/createdAt": revstream.CodeRequired,
	}
	for path, code := range want {
		if !hasCodeAt(iss, path, code) {
			t.Errorf("expected %s at %s, got %v", code, path, iss)
		}
	}
	if len(iss.Under("/unit_price/data/7/3")) != 0 {
		t.Errorf("entry 3 should be valid, got %v", iss.Under("/unit_price/data/7/3"))
	}
}

func TestSeriesKeys(t *testing.T) {
	in := scenarioA()
	in["unit_price"] = map[string]any{"type": "VARYING", "data": map[string]any{" 3 ": series(12), "-1": series(12)}}
	s, err := revstream.Validate(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	keys := s.(*revstream.UnitSales).UnitPrice().Series().Keys()
	if len(keys) != 2 || keys[0] != -1 || keys[1] != 3 {
		t.Fatalf("keys = %v", keys)
	}

	in["unit_price"] = map[string]any{"type": "VARYING", "data": map[string]any{"jan": series(12), "1.5": series(12)}}
	_, err = revstream.Validate(context.Background(), in)
	iss := mustIssues(t, err)
	if !hasCodeAt(iss, "/unit_price/data/jan", revstream.CodeInvalidKey) || !hasCodeAt(iss, "/unit_price/data/1.5", revstream.CodeInvalidKey) {
		t.Fatalf("expected invalid_key issues, got %v", iss)
	}

	in["unit_price"] = map[string]any{"type": "VARYING", "data": map[string]any{"1": series(12), "01": series(12)}}
	_, err = revstream.Validate(context.Background(), in)
	iss = mustIssues(t, err)
	if len(iss) != 1 || !hasCodeAt(iss, "/unit_price/data/1", revstream.CodeDuplicateKey) {
		t.Fatalf("expected duplicate_key for colliding key, got %v", iss)
	}
}

func TestConstantAmount(t *testing.T) {
	cases := []struct {
		amount any
		code   string
	}{
		{0, ""},
		{-1, revstream.CodeTooSmall},
		{"12.50", ""},
		{" 7 ", ""},
		{"-0.01", revstream.CodeTooSmall},
		{"", revstream.CodeInvalidType},
		{"ten", revstream.CodeInvalidType},
		{true, revstream.CodeInvalidType},
		{nil, revstream.CodeInvalidType},
	}
	for _, tc := range cases {
		in := scenarioA()
		in["unit_price"] = map[string]any{"type": "CONSTANT", "amount": tc.amount}
		_, err := revstream.Validate(context.Background(), in)
		if tc.code == "" {
			if err != nil {
				t.Errorf("amount %#v: unexpected error %v", tc.amount, err)
			}
			continue
		}
		if iss := mustIssues(t, err); !hasCodeAt(iss, "/unit_price/amount", tc.code) {
			t.Errorf("amount %#v: expected %s, got %v", tc.amount, tc.code, iss)
		}
	}
}

func TestAmountCoercionIsExact(t *testing.T) {
	in := scenarioA()
	in["unit_price"] = map[string]any{"type": "CONSTANT", "amount": "0.10"}
	s, err := revstream.Validate(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.(*revstream.UnitSales).UnitPrice().Amount().String(); got != "0.1" {
		t.Fatalf("amount = %s", got)
	}
}

func TestHugeExponentsRejectedQuickly(t *testing.T) {
	withRate := func(v any) map[string]any {
		in := scenarioD()
		in["charges"].(map[string]any)["update_recurrent_frequency"] = map[string]any{"type": "CONSTANT", "amount": 1, "rate": v}
		return in
	}
	withStreamID := func(v any) map[string]any {
		return map[string]any{
			"stream_type": "REVENUE_ONLY",
			"name":        "Commission",
			"revenue": map[string]any{"type": "PERCENT_OF_REVENUE", "data": map[string]any{
				"type": "CONSTANT", "amount": 5, "stream_id": v, "started": "",
			}},
		}
	}
	withAmount := func(v any) map[string]any {
		in := scenarioA()
		in["unit_price"] = map[string]any{"type": "CONSTANT", "amount": v}
		return in
	}
	cases := []struct {
		name string
		in   map[string]any
		path string
		code string
	}{
		{"rate", withRate("1e20000000"), "/charges/update_recurrent_frequency/rate", revstream.CodeTooBig},
		{"stream_id", withStreamID("1e2000000"), "/revenue/data/stream_id", revstream.CodeTooBig},
		{"amount", withAmount("1e20000000"), "/unit_price/amount", revstream.CodeTooBig},
		{"negative amount", withAmount("-1e5000000"), "/unit_price/amount", revstream.CodeTooBig},
		{"tiny amount", withAmount("1e-20000000"), "/unit_price/amount", revstream.CodeInvalidType},
		{"long coefficient", withAmount(strings.Repeat("9", 200)), "/unit_price/amount", revstream.CodeTooBig},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start := time.Now()
			_, err := revstream.Validate(context.Background(), tc.in)
			if elapsed := time.Since(start); elapsed > time.Second {
				t.Fatalf("validation took %s", elapsed)
			}
			if iss := mustIssues(t, err); !hasCodeAt(iss, tc.path, tc.code) {
				t.Fatalf("expected %s at %s, got %v", tc.code, tc.path, iss)
			}
		})
	}

	// Zero carries no magnitude whatever its exponent.
	if _, err := revstream.Validate(context.Background(), withAmount("0e20000000")); err != nil {
		t.Fatalf("zero amount: %v", err)
	}
}

func TestStreamID_Bounds(t *testing.T) {
	build := func(v any) map[string]any {
		return map[string]any{
			"stream_type": "REVENUE_ONLY",
			"name":        "Commission",
			"revenue": map[string]any{"type": "PERCENT_OF_REVENUE", "data": map[string]any{
				"type": "CONSTANT", "amount": 5, "stream_id": v, "started": "",
			}},
		}
	}
	maxID := strconv.FormatInt(math.MaxInt64, 10)

	s, err := revstream.Validate(context.Background(), build(maxID))
	if err != nil {
		t.Fatalf("max id: %v", err)
	}
	if share, _ := s.(*revstream.RevenueOnly).Revenue().Percent(); share.Terms().StreamID != math.MaxInt64 {
		t.Fatalf("stream_id = %d", share.Terms().StreamID)
	}

	cases := []struct {
		id   any
		code string
	}{
		{"18446744073709551617", revstream.CodeTooBig},
		{"9223372036854775808", revstream.CodeTooBig},
		{uint64(math.MaxUint64), revstream.CodeTooBig},
		{1.5, revstream.CodeNotInteger},
		{"-1", revstream.CodeTooSmall},
	}
	for _, tc := range cases {
		_, err := revstream.Validate(context.Background(), build(tc.id))
		iss := mustIssues(t, err)
		if !hasCodeAt(iss, "/revenue/data/stream_id", tc.code) {
			t.Errorf("stream_id %v: expected %s, got %v", tc.id, tc.code, iss)
		}
		if tc.code == revstream.CodeTooBig {
			if got := iss.At("/revenue/data/stream_id")[0].Params["max"]; got != int64(math.MaxInt64) {
				t.Errorf("stream_id %v: max param = %v", tc.id, got)
			}
		}
	}
}

func TestNameLength(t *testing.T) {
	for name, ok := range map[string]bool{"abc": false, "abcd": true, "日本語": false, "日本語版": true} {
		in := scenarioA()
		in["name"] = name
		_, err := revstream.Validate(context.Background(), in)
		if ok && err != nil {
			t.Errorf("name %q: unexpected error %v", name, err)
		}
		if !ok {
			if iss := mustIssues(t, err); !hasCodeAt(iss, "/name", revstream.CodeTooShort) {
				t.Errorf("name %q: expected too_short, got %v", name, iss)
			}
		}
	}
}

func TestBranchFieldsAreIndependent(t *testing.T) {
	in := scenarioD()
	in["charges"] = map[string]any{
		"up_front":                   map[string]any{"type": "FREE"},
		"update_recurrent_frequency": map[string]any{"type": "CONSTANT", "amount": -1, "rate": 3},
	}
	_, err := revstream.Validate(context.Background(), in)
	iss := mustIssues(t, err)
	if !hasCodeAt(iss, "/charges/up_front/type", revstream.CodeDiscriminatorUnknown) {
		t.Errorf("missing up_front issue: %v", iss)
	}
	if !hasCodeAt(iss, "/charges/update_recurrent_frequency/amount", revstream.CodeTooSmall) {
		t.Errorf("missing frequency issue: %v", iss)
	}
}

func TestCollectsAllIssuesSortedByPath(t *testing.T) {
	in := map[string]any{
		"stream_type":    "BILLABLE_HOURS",
		"name":           "ab",
		"billable_hours": map[string]any{"type": "CONSTANT", "amount": -5},
	}
	_, err := revstream.Validate(context.Background(), in)
	iss := mustIssues(t, err)
	if len(iss) < 4 {
		t.Fatalf("expected amount, rate, started, hourly_rate and name issues, got %v", iss)
	}
	for i := 1; i < len(iss); i++ {
		if iss[i-1].Path > iss[i].Path {
			t.Fatalf("issues not sorted: %v", iss)
		}
	}
	if !hasCodeAt(iss, "/hourly_rate", revstream.CodeRequired) {
		t.Errorf("missing hourly_rate: %v", iss)
	}
}

func TestFailFast(t *testing.T) {
	in := map[string]any{"stream_type": "BILLABLE_HOURS", "name": "ab"}
	_, err := revstream.Validate(context.Background(), in, revstream.ParseOpt{FailFast: true})
	if iss := mustIssues(t, err); len(iss) != 1 {
		t.Fatalf("expected one issue, got %v", iss)
	}
	ctx := revstream.WithFailFast(context.Background(), true)
	_, err = revstream.Validate(ctx, in)
	if iss := mustIssues(t, err); len(iss) != 1 {
		t.Fatalf("expected one issue via context, got %v", iss)
	}
}

func TestUnknownKeys(t *testing.T) {
	in := scenarioA()
	in["extra"] = 1
	in["unit_price"] = map[string]any{"type": "CONSTANT", "amount": 5, "data": map[string]any{}}
	if _, err := revstream.Validate(context.Background(), in); err != nil {
		t.Fatalf("unknown keys are stripped by default: %v", err)
	}
	_, err := revstream.Validate(context.Background(), in, revstream.ParseOpt{Unknown: revstream.UnknownStrict})
	iss := mustIssues(t, err)
	if !hasCodeAt(iss, "/extra", revstream.CodeUnknownKey) || !hasCodeAt(iss, "/unit_price/data", revstream.CodeUnknownKey) {
		t.Fatalf("expected unknown_key issues, got %v", iss)
	}
}

func TestRevenueOnly_ThreeLevels(t *testing.T) {
	ctx := context.Background()
	in := map[string]any{
		"stream_type": "REVENUE_ONLY",
		"name":        "Commission",
		"revenue": map[string]any{"type": "PERCENT_OF_REVENUE", "data": map[string]any{
			"type": "CONSTANT", "amount": "5", "stream_id": "3", "started": "",
		}},
	}
	s, err := revstream.Validate(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	share, ok := s.(*revstream.RevenueOnly).Revenue().Percent()
	if !ok || share.Terms().StreamID != 3 {
		t.Fatalf("unexpected share %+v", share)
	}
	if refs := revstream.References(s); len(refs) != 1 || refs[0] != 3 {
		t.Fatalf("References = %v", refs)
	}

	in["revenue"] = map[string]any{"type": "AMOUNT", "data": map[string]any{"type": "CONSTANT", "amount": 5, "rate": "WEEK", "started": ""}}
	_, err = revstream.Validate(ctx, in)
	if iss := mustIssues(t, err); !hasCodeAt(iss, "/revenue/data/rate", revstream.CodeInvalidEnum) {
		t.Fatalf("expected invalid_enum at rate, got %v", iss)
	}

	in["revenue"] = map[string]any{"type": "PERCENT_OF_REVENUE", "data": map[string]any{"type": "CONSTANT", "amount": 5, "stream_id": -1, "started": ""}}
	_, err = revstream.Validate(ctx, in)
	if iss := mustIssues(t, err); !hasCodeAt(iss, "/revenue/data/stream_id", revstream.CodeTooSmall) {
		t.Fatalf("expected too_small at stream_id, got %v", iss)
	}

	in["revenue"] = map[string]any{"type": "GROSS"}
	_, err = revstream.Validate(ctx, in)
	if iss := mustIssues(t, err); !hasCodeAt(iss, "/revenue/type", revstream.CodeDiscriminatorUnknown) {
		t.Fatalf("expected discriminator issue at /revenue/type, got %v", iss)
	}
}

func TestSafeValidateAndIs(t *testing.T) {
	ctx := context.Background()
	if _, ok := revstream.SafeValidate(ctx, scenarioA()); !ok {
		t.Fatal("scenario A should be valid")
	}
	if revstream.Is(ctx, map[string]any{"stream_type": "UNIT_SALES"}) {
		t.Fatal("incomplete input reported valid")
	}
}

func TestValidatedValueDoesNotAliasInput(t *testing.T) {
	in := scenarioA()
	in["unit_price"] = map[string]any{"type": "VARYING", "data": map[string]any{"1": series(12)}}
	s, err := revstream.Validate(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	in["unit_price"].(map[string]any)["data"].(map[string]any)["1"].([]any)[0].(map[string]any)["value"] = 999.0
	row, _ := s.(*revstream.UnitSales).UnitPrice().Series().Row(1)
	if v, _ := row[0].Value(); v != 0 {
		t.Fatalf("validated value changed with input: %v", v)
	}
	row[0] = revstream.PeriodEntry{}
	again, _ := s.(*revstream.UnitSales).UnitPrice().Series().Row(1)
	if again[0].Date().IsNumber() || again[0].Date().String() != "2024-01" {
		t.Fatalf("Row returned an aliased slice")
	}
}
