// Package capture turns a raw stream of intercepted network events into an
// ordered buffer of normalized track records.
//
// The browser-automation layer that provokes and intercepts traffic lives
// behind the Source and Scroller interfaces; this package only consumes what
// they yield. Events are filtered to the configured endpoint, deduplicated by
// fingerprint (the polling transport re-delivers pages), decoded, classified,
// and fed through the item normalizer. Pagination counters are recorded for
// observability only: overlapping or out-of-order pages are tolerated because
// downstream identity resolution is idempotent per item.
package capture
