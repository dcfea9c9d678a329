// Package index aggregates per-repository fingerprint records into one flat,
// read-only collection keyed by (repo, path). Rebuilds replace the persisted
// index outright so stale entries can never linger.
package index
