// Package cycle orchestrates the full governance run: fingerprint scan,
// index aggregation, dependency evaluation, and repair planning, in that
// order, with can't-fail semantics for everything except a missing hub
// configuration.
package cycle
