// Package githubcli implements the external collaborator boundary: a
// repository-discovery provider returning repository identifiers with default
// branch names, and a pull-request-opening provider accepting a branch and
// contents. Both shell out to the GitHub CLI through execshell.
package githubcli
