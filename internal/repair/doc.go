// Package repair computes content-addressed repair plans: ordered,
// idempotent corrective actions that converge a governed repository toward
// the hub's canonical file set without ever deleting repo-local files.
package repair
