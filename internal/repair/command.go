package repair

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/diamondops/stegdb/internal/fingerprint"
	"github.com/diamondops/stegdb/internal/hubconfig"
	"github.com/diamondops/stegdb/internal/index"
	"github.com/diamondops/stegdb/internal/utils"
)

const (
	commandNameConstant              = "repair"
	commandShortDescriptionConstant  = "Plan corrective actions converging repositories toward their canonical files"
	commandLongDescriptionConstant   = "repair diffs each repository's canonical file set against the aggregated index and writes an ordered, idempotent repair plan per repository."
	repoFlagNameConstant             = "repo"
	repoFlagUsageConstant            = "Restrict planning to a single configured repository."
	unknownRepositoryTemplate        = "repository %s is not declared in the hub configuration"
	noCanonicalMessageConstant       = "no canonical file set declared, repository skipped"
	canonicalRootMissingMessageConst = "canonical root missing, repository skipped"
	canonicalScanFailureMessageConst = "canonical file could not be fingerprinted"
	planWrittenMessageConstant       = "repair plan written"
	logFieldRepositoryConstant       = "repo"
	logFieldCanonicalRootConstant    = "canonical_root"
	logFieldPathConstant             = "path"
	logFieldActionCountConstant      = "action_count"
	logFieldOutputConstant           = "output"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// HubConfigurationProvider supplies the path of the hub configuration file.
type HubConfigurationProvider func() string

// CommandBuilder assembles the repair cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider           LoggerProvider
	HubConfigurationProvider HubConfigurationProvider
	Clock                    utils.Clock
}

// Build constructs the cobra command for repair planning.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandNameConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(repoFlagNameConstant, "", repoFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration, configurationError := hubconfig.LoadConfiguration(builder.HubConfigurationProvider())
	if configurationError != nil {
		return configurationError
	}

	repositoryFlagValue, _ := command.Flags().GetString(repoFlagNameConstant)

	targetRepositories := configuration.Repositories
	if len(repositoryFlagValue) > 0 {
		repository, found := configuration.Repository(repositoryFlagValue)
		if !found {
			return fmt.Errorf(unknownRepositoryTemplate, repositoryFlagValue)
		}
		targetRepositories = []hubconfig.RepositoryConfiguration{repository}
	}

	logger := resolveLogger(builder.LoggerProvider)
	clock := utils.ResolveClock(builder.Clock)

	aggregated, loadError := index.LoadAggregatedIndex(configuration, logger)
	if loadError != nil {
		return loadError
	}

	planner := NewPlanner()
	for _, repository := range targetRepositories {
		if planError := planRepository(command.Context(), configuration, repository, planner, aggregated, logger, clock); planError != nil {
			return planError
		}
	}

	return nil
}

func planRepository(
	executionContext context.Context,
	configuration hubconfig.Configuration,
	repository hubconfig.RepositoryConfiguration,
	planner *Planner,
	aggregated *index.AggregatedIndex,
	logger *zap.Logger,
	clock utils.Clock,
) error {
	canonicalRoot := configuration.CanonicalRoot(repository)
	if len(canonicalRoot) == 0 {
		logger.Debug(noCanonicalMessageConstant, zap.String(logFieldRepositoryConstant, repository.Name))
		return nil
	}
	if _, statError := os.Stat(canonicalRoot); statError != nil {
		logger.Warn(canonicalRootMissingMessageConst,
			zap.String(logFieldRepositoryConstant, repository.Name),
			zap.String(logFieldCanonicalRootConstant, canonicalRoot),
		)
		return nil
	}

	canonicalFiles, scanError := ScanCanonicalFiles(executionContext, canonicalRoot, configuration.IncludeSubtrees, logger, clock)
	if scanError != nil {
		return scanError
	}

	plan := planner.Plan(repository.Name, repository.CanonicalPath, canonicalFiles, aggregated, clock.Now())

	planPath := configuration.RepairPlanPath(repository.Name)
	if writeError := WritePlan(planPath, plan); writeError != nil {
		return writeError
	}

	logger.Info(planWrittenMessageConstant,
		zap.String(logFieldRepositoryConstant, repository.Name),
		zap.Int(logFieldActionCountConstant, len(plan.Actions)),
		zap.String(logFieldOutputConstant, planPath),
	)

	return nil
}

// ScanCanonicalFiles fingerprints the hub's canonical tree for one repository.
func ScanCanonicalFiles(executionContext context.Context, canonicalRoot string, includeSubtrees []string, logger *zap.Logger, clock utils.Clock) ([]CanonicalFile, error) {
	scanner := fingerprint.NewScanner(0)
	scanResult, scanError := scanner.Scan(executionContext, canonicalRoot, "", includeSubtrees, clock.Now())
	if scanError != nil {
		return nil, scanError
	}

	for _, failure := range scanResult.Failures {
		logger.Warn(canonicalScanFailureMessageConst,
			zap.String(logFieldPathConstant, failure.Path),
			zap.Error(failure.Cause),
		)
	}

	canonicalFiles := make([]CanonicalFile, 0, len(scanResult.Records))
	for _, record := range scanResult.Records {
		canonicalFiles = append(canonicalFiles, CanonicalFile{Path: record.Path, SHA256: record.SHA256})
	}
	return canonicalFiles, nil
}

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
