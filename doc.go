// Package revstream validates user-submitted revenue stream definitions.
//
// A revenue stream is one of four record shapes selected by stream_type
// (UNIT_SALES, BILLABLE_HOURS, RECURRING_CHARGES, REVENUE_ONLY). Each field
// of a stream is itself a discriminated choice between a CONSTANT amount and
// a VARYING monthly series of exactly 12 entries per key, and the validator
// enforces which fields each branch may carry.
//
// Entry points:
//
//   - Validate checks an untyped tree (as produced by encoding/json or
//     yaml.v3) and returns a typed RevenueStream.
//   - ParseFrom, ParseJSON and ParseReader read JSON tokens directly, with
//     duplicate-key, nesting-depth and size enforcement.
//   - Encode and Marshal give the canonical wire form of a validated stream.
//   - JSONSchema describes the accepted documents for form builders.
//   - CheckReferences verifies stream_id references against a StreamLookup.
//
// Failures are always Issues: JSON Pointer paths, stable codes and params.
// errors.Is(err, ErrRange) and friends test the failure kind.
//
// Typical usage:
//
//	s, err := revstream.ParseJSON(ctx, body, revstream.ParseOpt{
//		Strictness: revstream.Strictness{OnDuplicateKey: revstream.Error},
//	})
//	if iss, ok := revstream.AsIssues(err); ok {
//		for _, it := range iss {
//			log.Printf("%s: %s", it.Path, it.Message)
//		}
//	}
//
//	switch v := s.(type) {
//	case *revstream.UnitSales:
//		price := v.UnitPrice()
//		if price.IsConstant() {
//			fmt.Println(price.Amount())
//		}
//	}
package revstream
