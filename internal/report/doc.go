// Package report assembles the governance report: per-repository self
// status, stamp summary, and transitive promotion readiness, together with
// graph-level anomalies (cycles, missing and unused repositories). The
// report is derived data, recomputed fully on every run.
package report
