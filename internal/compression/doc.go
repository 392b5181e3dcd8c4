// Package compression turns Flutter/Dart widget source into COON form and
// back.
//
// The Engine owns the rewrite tables and applies a strategy's rules in a
// fixed order: comment handling, whitespace collapse, annotation removal,
// class headers (c:Name<Base>;), field extraction (f:name=Type,...;), the
// build signature (m:b), keyword and widget and property abbreviations,
// padding helpers (@N), empty constructor calls (~Name), delimiter
// normalization and boolean digits. Registry strategies additionally replace
// constructor calls that match a registered component with #C_ID references.
//
// Decompression only inverts the table-driven forms. Tildes, the brace
// normalization, boolean digits and removed return keywords stay as they
// are, so a round trip is not expected to reproduce its input.
//
// # Service
//
// Service wraps the engine with the request pipeline:
//
//	SIZE_CHECK -> ANALYZE (optional) -> SELECT -> TRANSFORM
//	           -> VALIDATE (optional) -> RECORD_METRICS (optional)
//
// The auto strategy is resolved either by the scored strategy.Selector or by
// analyzer.RecommendStrategy, chosen per call or per service. Analyses are
// cached by content hash. Every call emits an OpenTelemetry span and the
// coon.compression.* metrics.
//
// # Usage
//
//	svc, err := compression.NewService(compression.DefaultConfig(),
//	    compression.WithRegistry(registry.Default()))
//	if err != nil {
//	    return err
//	}
//	res, err := svc.Compress(ctx, src, compression.Options{Strategy: "aggressive"})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Compressed, res.Ratio)
package compression
