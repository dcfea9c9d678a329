// Package execshell executes the external GitHub CLI with structured logging
// and typed failure reporting. It exists solely for the collaborator boundary;
// the governance core itself never blocks on external processes.
package execshell
