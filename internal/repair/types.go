package repair

// ActionType discriminates the repair action variants.
type ActionType string

// Supported repair action types.
const (
	ActionTypeWriteFile ActionType = "write_file"
	ActionTypeMoveFile  ActionType = "move_file"
)

// ActionReason explains why a write_file action was planned.
type ActionReason string

// Supported write_file reasons.
const (
	ReasonMissingInRepo ActionReason = "missing_in_repo"
	ReasonHashMismatch  ActionReason = "hash_mismatch"
)

// RepairAction is one corrective step of a repair plan.
//
// write_file carries TargetPath, CanonicalPath, and Reason; move_file carries
// FromPath and ToPath. Applying an action is idempotent: re-applying a plan
// and re-planning yields an empty plan.
type RepairAction struct {
	Type          ActionType   `json:"type"`
	TargetPath    string       `json:"target_path,omitempty"`
	CanonicalPath string       `json:"canonical_path,omitempty"`
	Reason        ActionReason `json:"reason,omitempty"`
	FromPath      string       `json:"from_path,omitempty"`
	ToPath        string       `json:"to_path,omitempty"`
}

// RepairPlan is an ordered, idempotent list of corrective actions that
// converge a repository toward the hub's canonical file set. An empty plan
// is a valid, meaningful result: no drift.
type RepairPlan struct {
	Repo          string         `json:"repo"`
	GeneratedAt   string         `json:"generated_at"`
	CanonicalRoot string         `json:"canonical_root"`
	Actions       []RepairAction `json:"actions"`
}

// CanonicalFile is one entry of the hub's authoritative file set for a repository.
type CanonicalFile struct {
	Path   string
	SHA256 string
}
