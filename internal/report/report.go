package report

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/diamondops/stegdb/internal/graph"
	"github.com/diamondops/stegdb/internal/hubconfig"
	"github.com/diamondops/stegdb/internal/stamp"
	"github.com/diamondops/stegdb/internal/utils"
)

const (
	overallStatusOKConstant             = "ok"
	overallStatusDegradedConstant       = "degraded"
	problemCloneMissingTemplateConstant = "clone missing at %s"
	problemStampMissingMessageConstant  = "no validation stamp recorded"
	problemStampUnreadableTemplate      = "validation stamp unreadable: %v"
	problemUnknownModeTemplateConstant  = "validation stamp carries unknown mode %q"
	problemUnconfiguredTemplateConstant = "referenced as a dependency of %s but never configured"
	problemCycleMemberMessageConstant   = "member of a dependency cycle"
	problemNoRecordsMessageConstant     = "no fingerprint records aggregated"
	stampReadFailedLogMessageConstant   = "validation stamp read failed"
	logFieldRepositoryConstant          = "repo"
)

// RepositoryStatus is the per-repository slice of the governance report.
type RepositoryStatus struct {
	SelfStatus        graph.SelfStatus `json:"self_status"`
	HighestMode       string           `json:"highest_mode,omitempty"`
	HasStamp          bool             `json:"has_stamp"`
	FileCount         int              `json:"file_count"`
	Dependencies      []string         `json:"dependencies"`
	DependenciesReady bool             `json:"deps_ok"`
	Problems          []string         `json:"problems"`
}

// GovernanceReport is the status document consumed by the external promotion
// gate. It is derived data, recomputed fully on every run.
type GovernanceReport struct {
	GeneratedAt         string                      `json:"generated_at"`
	Repositories        map[string]RepositoryStatus `json:"repos"`
	Cycles              [][]string                  `json:"cycles"`
	MissingRepositories []string                    `json:"missing_repos"`
	UnusedRepositories  []string                    `json:"unused_repos"`
	OverallStatus       string                      `json:"overall_status"`
}

// StampReader abstracts the validation stamp store for evaluation.
type StampReader interface {
	Read(repositoryRoot string) (stamp.ValidationStamp, error)
}

// Service assembles the governance report from configuration, stamps, and the
// aggregated index's count-by-repo view.
type Service struct {
	stampReader StampReader
	logger      *zap.Logger
	clock       utils.Clock
}

// NewService constructs a report service using the provided collaborators.
func NewService(stampReader StampReader, logger *zap.Logger, clock utils.Clock) *Service {
	if stampReader == nil {
		stampReader = stamp.NewStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		stampReader: stampReader,
		logger:      logger,
		clock:       utils.ResolveClock(clock),
	}
}

// Evaluate computes the full governance report for the configured fleet.
//
// Per-repo problems degrade the verdict but never abort the evaluation; the
// report always covers the union of configured repositories and repositories
// referenced as dependencies.
func (service *Service) Evaluate(configuration hubconfig.Configuration, recordCounts map[string]int) GovernanceReport {
	dependencyGraph := BuildGraph(configuration)
	cycles := dependencyGraph.DetectCycles()
	if cycles == nil {
		cycles = [][]string{}
	}
	cycleMembers := graph.CycleMembers(cycles)

	statuses := make(map[string]graph.SelfStatus)
	problems := make(map[string][]string)
	stampsByRepository := make(map[string]stamp.ValidationStamp)
	hasStamp := make(map[string]bool)

	for _, repository := range configuration.Repositories {
		status := service.resolveSelfStatus(configuration, repository, problems, stampsByRepository, hasStamp)
		statuses[repository.Name] = status

		if recordCounts[repository.Name] == 0 {
			problems[repository.Name] = append(problems[repository.Name], problemNoRecordsMessageConstant)
		}
	}

	// Dependency-only nodes surface as unconfigured rather than being dropped.
	referencedBy := make(map[string]string)
	for _, repository := range configuration.Repositories {
		for _, dependencyName := range repository.DependsOn {
			if _, configured := configuration.Repository(dependencyName); !configured {
				if _, alreadySeen := referencedBy[dependencyName]; !alreadySeen {
					referencedBy[dependencyName] = repository.Name
				}
			}
		}
	}
	for dependencyName, referencingRepository := range referencedBy {
		statuses[dependencyName] = graph.SelfStatusUnconfigured
		problems[dependencyName] = append(problems[dependencyName], fmt.Sprintf(problemUnconfiguredTemplateConstant, referencingRepository))
	}

	for cycleMember := range cycleMembers {
		problems[cycleMember] = append(problems[cycleMember], problemCycleMemberMessageConstant)
	}

	readiness := dependencyGraph.EvaluateReadiness(statuses, cycles)

	repositories := make(map[string]RepositoryStatus, len(statuses))
	degraded := len(cycles) > 0
	for nodeName, status := range statuses {
		nodeProblems := problems[nodeName]
		if nodeProblems == nil {
			nodeProblems = []string{}
		}
		if len(nodeProblems) > 0 {
			degraded = true
		}

		dependencies := []string{}
		if repository, configured := configuration.Repository(nodeName); configured {
			dependencies = append(dependencies, repository.DependsOn...)
		}

		highestMode := ""
		if persistedStamp, stamped := stampsByRepository[nodeName]; stamped {
			highestMode = string(persistedStamp.HighestMode)
		}

		repositories[nodeName] = RepositoryStatus{
			SelfStatus:        status,
			HighestMode:       highestMode,
			HasStamp:          hasStamp[nodeName],
			FileCount:         recordCounts[nodeName],
			Dependencies:      dependencies,
			DependenciesReady: readiness[nodeName],
			Problems:          nodeProblems,
		}
	}

	overallStatus := overallStatusOKConstant
	if degraded {
		overallStatus = overallStatusDegradedConstant
	}

	return GovernanceReport{
		GeneratedAt:         utils.FormatTimestamp(service.clock.Now()),
		Repositories:        repositories,
		Cycles:              cycles,
		MissingRepositories: dependencyGraph.MissingDependencies(),
		UnusedRepositories:  dependencyGraph.UnusedRepositories(),
		OverallStatus:       overallStatus,
	}
}

// resolveSelfStatus walks the terminal status lattice for one configured repository.
func (service *Service) resolveSelfStatus(
	configuration hubconfig.Configuration,
	repository hubconfig.RepositoryConfiguration,
	problems map[string][]string,
	stampsByRepository map[string]stamp.ValidationStamp,
	hasStamp map[string]bool,
) graph.SelfStatus {
	repositoryRoot := configuration.RepositoryRoot(repository)
	if _, statError := os.Stat(repositoryRoot); statError != nil {
		problems[repository.Name] = append(problems[repository.Name], fmt.Sprintf(problemCloneMissingTemplateConstant, repositoryRoot))
		return graph.SelfStatusNoClone
	}

	persistedStamp, readError := service.stampReader.Read(repositoryRoot)
	if readError != nil {
		if errors.Is(readError, stamp.ErrStampMissing) {
			problems[repository.Name] = append(problems[repository.Name], problemStampMissingMessageConstant)
			return graph.SelfStatusNoStamp
		}
		service.logger.Warn(stampReadFailedLogMessageConstant,
			zap.String(logFieldRepositoryConstant, repository.Name),
			zap.Error(readError),
		)
		problems[repository.Name] = append(problems[repository.Name], fmt.Sprintf(problemStampUnreadableTemplate, readError))
		return graph.SelfStatusNoStamp
	}

	hasStamp[repository.Name] = true

	switch persistedStamp.HighestMode {
	case stamp.ModeProd:
		stampsByRepository[repository.Name] = persistedStamp
		return graph.SelfStatusProd
	case stamp.ModeBuild:
		stampsByRepository[repository.Name] = persistedStamp
		return graph.SelfStatusBuild
	default:
		// Never coerced to build or prod: an unknown mode is a problem and the repo is not prod.
		problems[repository.Name] = append(problems[repository.Name], fmt.Sprintf(problemUnknownModeTemplateConstant, string(persistedStamp.HighestMode)))
		return graph.SelfStatusNoStamp
	}
}

// BuildGraph converts the hub configuration into dependency graph nodes.
func BuildGraph(configuration hubconfig.Configuration) *graph.DependencyGraph {
	nodes := make([]graph.RepoNode, 0, len(configuration.Repositories))
	for _, repository := range configuration.Repositories {
		nodes = append(nodes, graph.RepoNode{
			Name:                 repository.Name,
			LocalPath:            configuration.RepositoryRoot(repository),
			DeclaredDependencies: append([]string{}, repository.DependsOn...),
		})
	}
	return graph.NewDependencyGraph(nodes)
}
