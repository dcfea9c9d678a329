package cycle

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/diamondops/stegdb/internal/fingerprint"
	"github.com/diamondops/stegdb/internal/hubconfig"
	"github.com/diamondops/stegdb/internal/index"
	"github.com/diamondops/stegdb/internal/repair"
	"github.com/diamondops/stegdb/internal/report"
	"github.com/diamondops/stegdb/internal/utils"
)

const (
	phaseScanMessageConstant         = "scan phase complete"
	phaseAggregateMessageConstant    = "aggregate phase complete"
	phaseEvaluateMessageConstant     = "evaluate phase complete"
	phaseRepairMessageConstant       = "repair phase complete"
	fullCycleCompleteMessageConstant = "full cycle complete"
	cloneMissingMessageConstant      = "clone missing, scan skipped"
	scanFailureMessageConstant       = "file could not be fingerprinted"
	phaseDegradedMessageConstant     = "phase failed, continuing full cycle"
	logFieldRepositoryConstant       = "repo"
	logFieldPathConstant             = "path"
	logFieldPhaseConstant            = "phase"
	logFieldOverallStatusConstant    = "overall_status"
	logFieldScannedRepositoryCount   = "scanned_repository_count"
	logFieldAggregatedRecordCount    = "aggregated_record_count"
	logFieldPlannedRepositoryCount   = "planned_repository_count"
	phaseNameScanConstant            = "scan"
	phaseNameAggregateConstant       = "aggregate"
	phaseNameEvaluateConstant        = "evaluate"
	phaseNameRepairConstant          = "repair"
)

// Service drives the four governance phases in dependency order: scan,
// aggregate, evaluate, repair. A failing phase is logged and degrades the
// result, but the cycle always runs to completion and writes whatever
// outputs it can; only a missing hub configuration halts the run, and the
// caller enforces that before constructing the service.
type Service struct {
	scanner     *fingerprint.Scanner
	planner     *repair.Planner
	stampReader report.StampReader
	logger      *zap.Logger
	clock       utils.Clock
}

// NewService constructs a full-cycle service using the provided collaborators.
func NewService(scanner *fingerprint.Scanner, planner *repair.Planner, stampReader report.StampReader, logger *zap.Logger, clock utils.Clock) *Service {
	if scanner == nil {
		scanner = fingerprint.NewScanner(0)
	}
	if planner == nil {
		planner = repair.NewPlanner()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		scanner:     scanner,
		planner:     planner,
		stampReader: stampReader,
		logger:      logger,
		clock:       utils.ResolveClock(clock),
	}
}

// Run executes every phase against the configured fleet.
func (service *Service) Run(executionContext context.Context, configuration hubconfig.Configuration) error {
	service.runScanPhase(executionContext, configuration)

	aggregated := service.runAggregatePhase(configuration)

	governanceReport := service.runEvaluatePhase(configuration, aggregated)

	service.runRepairPhase(executionContext, configuration, aggregated)

	service.logger.Info(fullCycleCompleteMessageConstant,
		zap.String(logFieldOverallStatusConstant, governanceReport.OverallStatus),
	)

	return executionContext.Err()
}

func (service *Service) runScanPhase(executionContext context.Context, configuration hubconfig.Configuration) {
	scannedCount := 0
	for _, repository := range configuration.Repositories {
		repositoryRoot := configuration.RepositoryRoot(repository)
		if _, statError := os.Stat(repositoryRoot); statError != nil {
			service.logger.Warn(cloneMissingMessageConstant,
				zap.String(logFieldRepositoryConstant, repository.Name),
				zap.String(logFieldPathConstant, repositoryRoot),
			)
			continue
		}

		scanResult, scanError := service.scanner.Scan(executionContext, repositoryRoot, repository.Name, configuration.IncludeSubtrees, service.clock.Now())
		if scanError != nil {
			service.degradePhase(phaseNameScanConstant, scanError)
			continue
		}

		for _, failure := range scanResult.Failures {
			service.logger.Warn(scanFailureMessageConstant,
				zap.String(logFieldRepositoryConstant, repository.Name),
				zap.String(logFieldPathConstant, failure.Path),
				zap.Error(failure.Cause),
			)
		}

		if writeError := fingerprint.WriteRecordsFile(configuration.FingerprintRecordsPath(repository.Name), scanResult.Records); writeError != nil {
			service.degradePhase(phaseNameScanConstant, writeError)
			continue
		}
		scannedCount++
	}

	service.logger.Info(phaseScanMessageConstant, zap.Int(logFieldScannedRepositoryCount, scannedCount))
}

func (service *Service) runAggregatePhase(configuration hubconfig.Configuration) *index.AggregatedIndex {
	aggregated, loadError := index.LoadAggregatedIndex(configuration, service.logger)
	if loadError != nil {
		service.degradePhase(phaseNameAggregateConstant, loadError)
		empty, _ := index.BuildIndex(nil)
		return empty
	}

	if writeError := fingerprint.WriteRecordsFile(configuration.AggregatedRecordsPath(), aggregated.OrderedRecords()); writeError != nil {
		service.degradePhase(phaseNameAggregateConstant, writeError)
	}

	service.logger.Info(phaseAggregateMessageConstant, zap.Int(logFieldAggregatedRecordCount, len(aggregated.OrderedRecords())))
	return aggregated
}

func (service *Service) runEvaluatePhase(configuration hubconfig.Configuration, aggregated *index.AggregatedIndex) report.GovernanceReport {
	reportService := report.NewService(service.stampReader, service.logger, service.clock)
	governanceReport := reportService.Evaluate(configuration, aggregated.RecordCounts())

	dependencyGraph := report.BuildGraph(configuration)
	graphDocument := report.BuildGraphDocument(configuration, dependencyGraph, governanceReport.Cycles, aggregated.RecordCounts(), governanceReport.GeneratedAt)

	if writeError := report.WriteDocument(configuration.DependencyGraphPath(), graphDocument); writeError != nil {
		service.degradePhase(phaseNameEvaluateConstant, writeError)
	}
	if writeError := report.WriteDocument(configuration.DependencyStatusPath(), governanceReport); writeError != nil {
		service.degradePhase(phaseNameEvaluateConstant, writeError)
	}

	service.logger.Info(phaseEvaluateMessageConstant, zap.String(logFieldOverallStatusConstant, governanceReport.OverallStatus))
	return governanceReport
}

func (service *Service) runRepairPhase(executionContext context.Context, configuration hubconfig.Configuration, aggregated *index.AggregatedIndex) {
	plannedCount := 0
	for _, repository := range configuration.Repositories {
		canonicalRoot := configuration.CanonicalRoot(repository)
		if len(canonicalRoot) == 0 {
			continue
		}
		if _, statError := os.Stat(canonicalRoot); statError != nil {
			continue
		}

		canonicalFiles, scanError := repair.ScanCanonicalFiles(executionContext, canonicalRoot, configuration.IncludeSubtrees, service.logger, service.clock)
		if scanError != nil {
			service.degradePhase(phaseNameRepairConstant, scanError)
			continue
		}

		plan := service.planner.Plan(repository.Name, repository.CanonicalPath, canonicalFiles, aggregated, service.clock.Now())
		if writeError := repair.WritePlan(configuration.RepairPlanPath(repository.Name), plan); writeError != nil {
			service.degradePhase(phaseNameRepairConstant, writeError)
			continue
		}
		plannedCount++
	}

	service.logger.Info(phaseRepairMessageConstant, zap.Int(logFieldPlannedRepositoryCount, plannedCount))
}

func (service *Service) degradePhase(phaseName string, phaseError error) {
	service.logger.Warn(phaseDegradedMessageConstant,
		zap.String(logFieldPhaseConstant, phaseName),
		zap.Error(phaseError),
	)
}
