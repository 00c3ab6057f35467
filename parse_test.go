package revstream_test

import (
	"context"
	"strings"
	"testing"

	"github.com/reoring/revstream"
)

const scenarioAJSON = `{
	"stream_type": "UNIT_SALES",
	"name": "Widgets",
	"unit_sales": {"type": "CONSTANT", "amount": 10, "rate": "MONTH", "started": "2024-01"},
	"unit_price": {"type": "CONSTANT", "amount": 5}
}`

func TestParseJSON(t *testing.T) {
	s, err := revstream.ParseJSON(context.Background(), []byte(scenarioAJSON))
	if err != nil {
		t.Fatal(err)
	}
	if s.StreamType() != revstream.StreamUnitSales {
		t.Fatalf("stream type = %s", s.StreamType())
	}
}

func TestParseJSON_KeepsNumbersExact(t *testing.T) {
	doc := strings.Replace(scenarioAJSON, `"amount": 5`, `"amount": 0.30000000000000004441`, 1)
	s, err := revstream.ParseJSON(context.Background(), []byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if got := s.(*revstream.UnitSales).UnitPrice().Amount().String(); got != "0.30000000000000004441" {
		t.Fatalf("amount = %s", got)
	}
}

func TestParseJSON_Malformed(t *testing.T) {
	for _, doc := range []string{`{"stream_type":`, `{"name" 1}`, ``} {
		_, err := revstream.ParseJSON(context.Background(), []byte(doc))
		iss := mustIssues(t, err)
		if iss[0].Code != revstream.CodeParseError {
			t.Errorf("%q: expected parse_error, got %v", doc, iss)
		}
	}
}

func TestParseFrom_EmptySource(t *testing.T) {
	_, err := revstream.ParseFrom(context.Background(), revstream.Source{})
	if iss := mustIssues(t, err); iss[0].Code != revstream.CodeParseError {
		t.Fatalf("got %v", iss)
	}
}

func TestDuplicateKeys(t *testing.T) {
	ctx := context.Background()
	doc := []byte(`{"stream_type":"UNIT_SALES","name":"abc","name":"Widgets",
		"unit_sales":{"type":"CONSTANT","amount":10,"rate":"MONTH","started":""},
		"unit_price":{"type":"CONSTANT","amount":5,"amount":6}}`)

	// Ignore: last wins.
	s, err := revstream.ParseJSON(ctx, doc)
	if err != nil {
		t.Fatalf("ignore mode: %v", err)
	}
	if s.Name() != "Widgets" || s.(*revstream.UnitSales).UnitPrice().Amount().String() != "6" {
		t.Fatalf("last value should win")
	}

	// Warn: reported through OnWarning, parse succeeds.
	var warned []revstream.Issue
	_, err = revstream.ParseJSON(ctx, doc, revstream.ParseOpt{
		Strictness: revstream.Strictness{OnDuplicateKey: revstream.Warn},
		OnWarning:  func(it revstream.Issue) { warned = append(warned, it) },
	})
	if err != nil {
		t.Fatalf("warn mode: %v", err)
	}
	if len(warned) != 2 || warned[0].Path != "/name" || warned[1].Path != "/unit_price/amount" {
		t.Fatalf("warnings = %v", warned)
	}

	// Error: first duplicate fails.
	_, err = revstream.ParseJSON(ctx, doc, revstream.ParseOpt{Strictness: revstream.Strictness{OnDuplicateKey: revstream.Error}})
	iss := mustIssues(t, err)
	if iss[0].Code != revstream.CodeDuplicateKey || iss[0].Path != "/name" {
		t.Fatalf("got %v", iss)
	}
}

func TestMaxDepth(t *testing.T) {
	ctx := context.Background()
	if _, err := revstream.ParseJSON(ctx, []byte(scenarioAJSON), revstream.ParseOpt{MaxDepth: 32}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := revstream.ParseJSON(ctx, []byte(scenarioAJSON), revstream.ParseOpt{MaxDepth: 1})
	if iss := mustIssues(t, err); iss[0].Code != revstream.CodeParseError {
		t.Fatalf("got %v", iss)
	}
}

func TestParseReader_MaxBytes(t *testing.T) {
	ctx := context.Background()
	if _, err := revstream.ParseReader(ctx, strings.NewReader(scenarioAJSON), revstream.ParseOpt{MaxBytes: 1 << 10}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := revstream.ParseReader(ctx, strings.NewReader(scenarioAJSON), revstream.ParseOpt{MaxBytes: 16})
	if iss := mustIssues(t, err); iss[0].Code != revstream.CodeTruncated {
		t.Fatalf("got %v", iss)
	}
	if _, err := revstream.ParseReader(ctx, strings.NewReader(scenarioAJSON)); err != nil {
		t.Fatalf("no limit: %v", err)
	}
}
