package stamp

import (
	"errors"
	"fmt"
)

const (
	unknownModeTemplateConstant = "unknown validation mode: %q"
)

// ValidationMode is a two-element total order: build < prod.
type ValidationMode string

// Supported validation modes.
const (
	ModeBuild ValidationMode = "build"
	ModeProd  ValidationMode = "prod"
)

var modeRanking = map[ValidationMode]int{
	ModeBuild: 1,
	ModeProd:  2,
}

// Known reports whether the mode is a member of the lattice.
func (mode ValidationMode) Known() bool {
	_, known := modeRanking[mode]
	return known
}

// UnknownModeError marks a stamp carrying a mode outside the lattice. It is a
// fatal input error for Merge and never silently coerced to a default.
type UnknownModeError struct {
	Mode ValidationMode
}

// Error describes the unknown mode.
func (modeError UnknownModeError) Error() string {
	return fmt.Sprintf(unknownModeTemplateConstant, string(modeError.Mode))
}

// ValidationStamp records the strongest validation mode a repository's
// current commit has ever reached, together with the content-index hash
// observed during that validation pass.
type ValidationStamp struct {
	Repo        string         `json:"repo"`
	Commit      string         `json:"commit"`
	HighestMode ValidationMode `json:"highest_mode"`
	MetaSHA256  string         `json:"meta_sha256"`
	ValidatedAt string         `json:"validated_at"`
}

// Merge combines an existing stamp with an incoming validation pass.
//
// A differing commit replaces the stamp outright: the lattice holds within a
// commit, not across commits. Within a commit the highest mode can only
// strengthen; all other fields reflect the incoming pass.
func Merge(existing ValidationStamp, incoming ValidationStamp) (ValidationStamp, error) {
	if !existing.HighestMode.Known() {
		return ValidationStamp{}, UnknownModeError{Mode: existing.HighestMode}
	}
	if !incoming.HighestMode.Known() {
		return ValidationStamp{}, UnknownModeError{Mode: incoming.HighestMode}
	}

	if existing.Commit != incoming.Commit {
		return incoming, nil
	}

	merged := incoming
	if modeRanking[existing.HighestMode] > modeRanking[incoming.HighestMode] {
		merged.HighestMode = existing.HighestMode
	}
	return merged, nil
}

// ParseMode validates a user-supplied mode string against the lattice.
func ParseMode(rawMode string) (ValidationMode, error) {
	mode := ValidationMode(rawMode)
	if !mode.Known() {
		return "", UnknownModeError{Mode: mode}
	}
	return mode, nil
}

// ErrStampMissing indicates no stamp document exists for the repository.
var ErrStampMissing = errors.New("validation stamp missing")
