package index

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/diamondops/stegdb/internal/fingerprint"
	"github.com/diamondops/stegdb/internal/hubconfig"
)

const (
	commandNameConstant              = "aggregate"
	commandShortDescriptionConstant  = "Merge per-repo fingerprint records into the aggregated index"
	commandLongDescriptionConstant   = "aggregate merges every repository's fingerprint records into the hub-wide aggregated index, replacing the previous index outright."
	malformedLinesMessageConstant    = "malformed fingerprint lines skipped"
	aggregatedWrittenMessageConstant = "aggregated index written"
	logFieldRepositoryConstant       = "repo"
	logFieldSkippedLineCountConstant = "skipped_line_count"
	logFieldRecordCountConstant      = "record_count"
	logFieldRepositoryCountConstant  = "repository_count"
	logFieldOutputConstant           = "output"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// HubConfigurationProvider supplies the path of the hub configuration file.
type HubConfigurationProvider func() string

// CommandBuilder assembles the aggregate cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider           LoggerProvider
	HubConfigurationProvider HubConfigurationProvider
}

// Build constructs the cobra command for index aggregation.
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
		return configurationError
	}

	logger := resolveLogger(builder.LoggerProvider)

	aggregated, loadError := LoadAggregatedIndex(configuration, logger)
	if loadError != nil {
		return loadError
	}

	outputPath := configuration.AggregatedRecordsPath()
	if writeError := fingerprint.WriteRecordsFile(outputPath, aggregated.OrderedRecords()); writeError != nil {
		return writeError
	}

	logger.Info(aggregatedWrittenMessageConstant,
		zap.Int(logFieldRecordCountConstant, len(aggregated.OrderedRecords())),
		zap.Int(logFieldRepositoryCountConstant, len(aggregated.Repositories())),
		zap.String(logFieldOutputConstant, outputPath),
	)

	return nil
}

// LoadAggregatedIndex builds the index from every configured repository's per-repo records.
func LoadAggregatedIndex(configuration hubconfig.Configuration, logger *zap.Logger) (*AggregatedIndex, error) {
	var allRecords []fingerprint.FileRecord
	for _, repositoryName := range configuration.RepositoryNames() {
		repositoryRecords, malformedLineCount, readError := fingerprint.ReadRecordsFile(configuration.FingerprintRecordsPath(repositoryName))
		if readError != nil {
			return nil, readError
		}
		if malformedLineCount > 0 {
			logger.Warn(malformedLinesMessageConstant,
				zap.String(logFieldRepositoryConstant, repositoryName),
				zap.Int(logFieldSkippedLineCountConstant, malformedLineCount),
			)
		}
		allRecords = append(allRecords, repositoryRecords...)
	}

	return BuildIndex(allRecords)
}

// LoadAggregatedFile builds the index from a previously written aggregated records file.
func LoadAggregatedFile(filePath string, logger *zap.Logger) (*AggregatedIndex, error) {
	records, malformedLineCount, readError := fingerprint.ReadRecordsFile(filePath)
	if readError != nil {
		return nil, readError
	}
	if malformedLineCount > 0 {
		logger.Warn(malformedLinesMessageConstant,
			zap.String(logFieldOutputConstant, filePath),
			zap.Int(logFieldSkippedLineCountConstant, malformedLineCount),
		)
	}
	return BuildIndex(records)
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
