package repair

import (
	"sort"
	"time"

	"github.com/diamondops/stegdb/internal/index"
	"github.com/diamondops/stegdb/internal/utils"
)

// Planner computes content-addressed repair plans from a canonical file set
// and a repository's aggregated index entry.
type Planner struct{}

// NewPlanner constructs a repair planner.
func NewPlanner() *Planner {
	return &Planner{}
}

// Plan diffs the canonical file set against the repository's index entry.
//
// Every canonical file absent from the index yields a corrective action:
// move_file when the repository already holds identical content at another
// non-canonical path (lexicographically smallest unused candidate),
// write_file with reason missing_in_repo otherwise. A canonical file present
// with a different hash yields write_file with reason hash_mismatch. Files
// present in the repository but absent from the canonical set are never
// flagged: the planner pulls a repository toward the canonical superset and
// never deletes. Actions are ordered by target path so unchanged inputs
// produce byte-identical plans.
func (planner *Planner) Plan(repositoryName string, canonicalRoot string, canonicalFiles []CanonicalFile, aggregated *index.AggregatedIndex, generatedAt time.Time) RepairPlan {
	plan := RepairPlan{
		Repo:          repositoryName,
		GeneratedAt:   utils.FormatTimestamp(generatedAt),
		CanonicalRoot: canonicalRoot,
		Actions:       []RepairAction{},
	}

	sortedCanonical := append([]CanonicalFile{}, canonicalFiles...)
	sort.Slice(sortedCanonical, func(firstIndex int, secondIndex int) bool {
		return sortedCanonical[firstIndex].Path < sortedCanonical[secondIndex].Path
	})

	canonicalPaths := make(map[string]struct{}, len(sortedCanonical))
	for _, canonicalFile := range sortedCanonical {
		canonicalPaths[canonicalFile.Path] = struct{}{}
	}

	// Content-addressed view of the repository: hash -> sorted misplaced candidate paths.
	candidatesByHash := make(map[string][]string)
	if aggregated != nil {
		for _, record := range aggregated.Records(repositoryName) {
			if _, expectedHere := canonicalPaths[record.Path]; expectedHere {
				continue
			}
			candidatesByHash[record.SHA256] = append(candidatesByHash[record.SHA256], record.Path)
		}
		for contentHash := range candidatesByHash {
			sort.Strings(candidatesByHash[contentHash])
		}
	}

	usedSources := make(map[string]struct{})

	for _, canonicalFile := range sortedCanonical {
		if aggregated != nil {
			if record, present := aggregated.Lookup(repositoryName, canonicalFile.Path); present {
				if record.SHA256 != canonicalFile.SHA256 {
					plan.Actions = append(plan.Actions, RepairAction{
						Type:          ActionTypeWriteFile,
						TargetPath:    canonicalFile.Path,
						CanonicalPath: canonicalFile.Path,
						Reason:        ReasonHashMismatch,
					})
				}
				continue
			}
		}

		if sourcePath, found := claimMoveSource(candidatesByHash[canonicalFile.SHA256], usedSources); found {
			plan.Actions = append(plan.Actions, RepairAction{
				Type:     ActionTypeMoveFile,
				FromPath: sourcePath,
				ToPath:   canonicalFile.Path,
			})
			continue
		}

		plan.Actions = append(plan.Actions, RepairAction{
			Type:          ActionTypeWriteFile,
			TargetPath:    canonicalFile.Path,
			CanonicalPath: canonicalFile.Path,
			Reason:        ReasonMissingInRepo,
		})
	}

	return plan
}

// claimMoveSource picks the smallest candidate path not yet claimed by an earlier move.
func claimMoveSource(candidatePaths []string, usedSources map[string]struct{}) (string, bool) {
	for _, candidatePath := range candidatePaths {
		if _, used := usedSources[candidatePath]; used {
			continue
		}
		usedSources[candidatePath] = struct{}{}
		return candidatePath, true
	}
	return "", false
}
