package report

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/diamondops/stegdb/internal/hubconfig"
	"github.com/diamondops/stegdb/internal/index"
	"github.com/diamondops/stegdb/internal/utils"
)

const (
	commandNameConstant              = "evaluate"
	commandShortDescriptionConstant  = "Evaluate dependency health and write the governance report"
	commandLongDescriptionConstant   = "evaluate builds the repository dependency graph, detects cycles, computes transitive promotion readiness, and writes the dependency graph and governance report documents."
	aggregatedMissingMessageConstant = "aggregated index missing, repositories will report zero fingerprint records"
	reportWrittenMessageConstant     = "governance report written"
	logFieldAggregatedPathConstant   = "aggregated_path"
	logFieldOverallStatusConstant    = "overall_status"
	logFieldCycleCountConstant       = "cycle_count"
	logFieldRepositoryCountConstant  = "repository_count"
	logFieldStatusDocumentConstant   = "status_document"
	logFieldGraphDocumentConstant    = "graph_document"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// HubConfigurationProvider supplies the path of the hub configuration file.
type HubConfigurationProvider func() string

// CommandBuilder assembles the evaluate cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider           LoggerProvider
	HubConfigurationProvider HubConfigurationProvider
	StampReader              StampReader
	Clock                    utils.Clock
}

// Build constructs the cobra command for dependency evaluation.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandNameConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration, configurationError := hubconfig.LoadConfiguration(builder.HubConfigurationProvider())
	if configurationError != nil {
		// ConfigMissing is the one fatal error: no meaningful partial report exists without it.
		return configurationError
	}

	logger := resolveLogger(builder.LoggerProvider)
	service := NewService(builder.StampReader, logger, builder.Clock)

	recordCounts := loadRecordCounts(configuration, logger)
	governanceReport := service.Evaluate(configuration, recordCounts)

	dependencyGraph := BuildGraph(configuration)
	graphDocument := BuildGraphDocument(configuration, dependencyGraph, governanceReport.Cycles, recordCounts, governanceReport.GeneratedAt)

	if writeError := WriteDocument(configuration.DependencyGraphPath(), graphDocument); writeError != nil {
		return writeError
	}
	if writeError := WriteDocument(configuration.DependencyStatusPath(), governanceReport); writeError != nil {
		return writeError
	}

	logger.Info(reportWrittenMessageConstant,
		zap.String(logFieldOverallStatusConstant, governanceReport.OverallStatus),
		zap.Int(logFieldCycleCountConstant, len(governanceReport.Cycles)),
		zap.Int(logFieldRepositoryCountConstant, len(governanceReport.Repositories)),
		zap.String(logFieldStatusDocumentConstant, configuration.DependencyStatusPath()),
		zap.String(logFieldGraphDocumentConstant, configuration.DependencyGraphPath()),
	)

	return nil
}

// loadRecordCounts reads the aggregated index's count-by-repo view; a missing
// or unreadable index degrades to zero counts instead of aborting.
func loadRecordCounts(configuration hubconfig.Configuration, logger *zap.Logger) map[string]int {
	aggregatedPath := configuration.AggregatedRecordsPath()
	if _, statError := os.Stat(aggregatedPath); statError != nil {
		logger.Warn(aggregatedMissingMessageConstant, zap.String(logFieldAggregatedPathConstant, aggregatedPath))
		return map[string]int{}
	}

	aggregated, loadError := index.LoadAggregatedFile(aggregatedPath, logger)
	if loadError != nil {
		logger.Warn(aggregatedMissingMessageConstant,
			zap.String(logFieldAggregatedPathConstant, aggregatedPath),
			zap.Error(loadError),
		)
		return map[string]int{}
	}

	return aggregated.RecordCounts()
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
