// Package auction implements the aggregation core of TeaPulse: it turns a
// flat set of auction lots into per-broker, per-grade and per-elevation
// performance summaries, and classifies metrics into display bands.
//
// The package is pure computation. Lot sets are treated as immutable and
// every summary is freshly allocated, so calls are safe to run concurrently
// for different brokers over the same data.
//
// Two aggregation rules are load-bearing and must not be changed:
//
//   - Average price is quantity-weighted over sold lots:
//     sum(price*quantity) / sum(quantity). An unweighted mean of row prices
//     would bias toward low-volume high-price lots.
//   - Sell-through counts outsold quantity on the sold side:
//     (sold + outsold) / offered.
//
// Metrics with a zero denominator are reported as the N/A sentinel, never
// as zero.
package auction
