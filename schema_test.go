package revstream_test

import (
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/reoring/revstream"
)

func TestJSONSchema(t *testing.T) {
	s := revstream.JSONSchema()
	if len(s.OneOf) != len(revstream.StreamTypes()) {
		t.Fatalf("oneOf = %d branches", len(s.OneOf))
	}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if !json.Valid(b) {
		t.Fatalf("schema is not valid JSON: %s", b)
	}
	for _, want := range []string{`"UNIT_SALES"`, `"PERCENT_OF_REVENUE"`, `"NO_FEE"`, `"^-?[0-9]+$"`, `"minItems":12`} {
		if !strings.Contains(string(b), want) {
			t.Errorf("schema missing %s", want)
		}
	}
}
