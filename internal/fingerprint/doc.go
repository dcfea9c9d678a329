// Package fingerprint produces content fingerprints for governed repository
// files. It walks a configured allow-list of subtrees, hashes each regular
// file with streaming SHA-256 on a bounded worker pool, and serializes the
// sorted records as newline-delimited JSON for aggregation.
package fingerprint
