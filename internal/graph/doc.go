// Package graph evaluates the repository dependency graph: three-color cycle
// detection and the iterative fixed-point readiness computation that gates
// promotion on every transitive dependency being at prod.
package graph
