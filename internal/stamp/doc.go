// Package stamp persists the strongest validation mode a repository's
// current commit has reached. Modes form the two-element lattice
// build < prod; merges are monotonic within a commit and reset across
// commits.
package stamp
