// Package hubconfig loads and validates the hub's repository configuration:
// which repositories are governed, where their clones and canonical file sets
// live, and which repositories they depend on. Validation fails fast at load
// time so graph evaluation never encounters a structurally invalid entry.
package hubconfig
