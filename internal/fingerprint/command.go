package fingerprint

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/diamondops/stegdb/internal/hubconfig"
	"github.com/diamondops/stegdb/internal/utils"
)

const (
	commandNameConstant             = "scan"
	commandShortDescriptionConstant = "Fingerprint governed repository files"
	commandLongDescriptionConstant  = "scan walks the allow-listed subtrees of governed repositories and writes one fingerprint record per file to the hub's per-repo metadata."
	repoFlagNameConstant            = "repo"
	repoFlagUsageConstant           = "Restrict scanning to a single configured repository."
	workersFlagNameConstant         = "workers"
	workersFlagUsageConstant        = "Number of concurrent hashing workers."
	unknownRepositoryTemplate       = "repository %s is not declared in the hub configuration"
	cloneMissingMessageConstant     = "clone missing, repository skipped"
	scanFailureMessageConstant      = "file could not be fingerprinted"
	recordsWrittenMessageConstant   = "fingerprint records written"
	logFieldRepositoryConstant      = "repo"
	logFieldPathConstant            = "path"
	logFieldRecordCountConstant     = "record_count"
	logFieldFailureCountConstant    = "failure_count"
	logFieldOutputConstant          = "output"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// HubConfigurationProvider supplies the path of the hub configuration file.
type HubConfigurationProvider func() string

// CommandBuilder assembles the scan cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider           LoggerProvider
	HubConfigurationProvider HubConfigurationProvider
	Clock                    utils.Clock
}

// Build constructs the cobra command for fingerprint scanning.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandNameConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(repoFlagNameConstant, "", repoFlagUsageConstant)
	command.Flags().Int(workersFlagNameConstant, 0, workersFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration, configurationError := hubconfig.LoadConfiguration(builder.HubConfigurationProvider())
	if configurationError != nil {
		return configurationError
	}

	repositoryFlagValue, _ := command.Flags().GetString(repoFlagNameConstant)
	workerCount, _ := command.Flags().GetInt(workersFlagNameConstant)

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
	scanner := NewScanner(workerCount)

	for _, repository := range targetRepositories {
		repositoryRoot := configuration.RepositoryRoot(repository)
		if _, statError := os.Stat(repositoryRoot); statError != nil {
			logger.Warn(cloneMissingMessageConstant,
				zap.String(logFieldRepositoryConstant, repository.Name),
				zap.String(logFieldPathConstant, repositoryRoot),
			)
			continue
		}

		scanResult, scanError := scanner.Scan(command.Context(), repositoryRoot, repository.Name, configuration.IncludeSubtrees, clock.Now())
		if scanError != nil {
			return scanError
		}

		for _, failure := range scanResult.Failures {
			logger.Warn(scanFailureMessageConstant,
				zap.String(logFieldRepositoryConstant, repository.Name),
				zap.String(logFieldPathConstant, failure.Path),
				zap.Error(failure.Cause),
			)
		}

		recordsPath := configuration.FingerprintRecordsPath(repository.Name)
		if writeError := WriteRecordsFile(recordsPath, scanResult.Records); writeError != nil {
			return writeError
		}

		logger.Info(recordsWrittenMessageConstant,
			zap.String(logFieldRepositoryConstant, repository.Name),
			zap.Int(logFieldRecordCountConstant, len(scanResult.Records)),
			zap.Int(logFieldFailureCountConstant, len(scanResult.Failures)),
			zap.String(logFieldOutputConstant, recordsPath),
		)
	}

	return nil
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
