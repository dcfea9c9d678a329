package stamp

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/diamondops/stegdb/internal/hubconfig"
	"github.com/diamondops/stegdb/internal/index"
	"github.com/diamondops/stegdb/internal/utils"
)

const (
	commandNameConstant             = "stamp"
	commandShortDescriptionConstant = "Record a validation pass for a repository commit"
	commandLongDescriptionConstant  = "stamp merges a successful validation pass into the repository's persisted validation stamp, strengthening the highest mode within a commit and replacing the stamp across commits."
	repoFlagNameConstant            = "repo"
	repoFlagUsageConstant           = "Configured repository the validation ran against."
	commitFlagNameConstant          = "commit"
	commitFlagUsageConstant         = "Commit the validation ran against."
	modeFlagNameConstant            = "mode"
	modeFlagUsageConstant           = "Validation mode reached (build or prod)."
	repoFlagRequiredMessageConstant = "a repository name is required"
	commitRequiredMessageConstant   = "a commit is required"
	unknownRepositoryTemplate       = "repository %s is not declared in the hub configuration"
	stampRecordedMessageConstant    = "validation stamp recorded"
	logFieldRepositoryConstant      = "repo"
	logFieldCommitConstant          = "commit"
	logFieldHighestModeConstant     = "highest_mode"
	logFieldMetaHashConstant        = "meta_sha256"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// HubConfigurationProvider supplies the path of the hub configuration file.
type HubConfigurationProvider func() string

// CommandBuilder assembles the stamp cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider           LoggerProvider
	HubConfigurationProvider HubConfigurationProvider
	Store                    *Store
	Clock                    utils.Clock
}

// Build constructs the cobra command for recording validation stamps.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandNameConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(repoFlagNameConstant, "", repoFlagUsageConstant)
	command.Flags().String(commitFlagNameConstant, "", commitFlagUsageConstant)
	command.Flags().String(modeFlagNameConstant, "", modeFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration, configurationError := hubconfig.LoadConfiguration(builder.HubConfigurationProvider())
	if configurationError != nil {
		return configurationError
	}

	repositoryName, _ := command.Flags().GetString(repoFlagNameConstant)
	commitValue, _ := command.Flags().GetString(commitFlagNameConstant)
	modeValue, _ := command.Flags().GetString(modeFlagNameConstant)

	if len(repositoryName) == 0 {
		return errors.New(repoFlagRequiredMessageConstant)
	}
	if len(commitValue) == 0 {
		return errors.New(commitRequiredMessageConstant)
	}

	validationMode, modeError := ParseMode(modeValue)
	if modeError != nil {
		return modeError
	}

	repository, found := configuration.Repository(repositoryName)
	if !found {
		return fmt.Errorf(unknownRepositoryTemplate, repositoryName)
	}

	logger := resolveLogger(builder.LoggerProvider)
	clock := utils.ResolveClock(builder.Clock)
	store := builder.Store
	if store == nil {
		store = NewStore()
	}

	aggregated, indexError := index.LoadAggregatedIndex(configuration, logger)
	if indexError != nil {
		return indexError
	}

	incoming := ValidationStamp{
		Repo:        repository.Name,
		Commit:      commitValue,
		HighestMode: validationMode,
		MetaSHA256:  aggregated.ContentHash(repository.Name),
		ValidatedAt: utils.FormatTimestamp(clock.Now()),
	}

	merged, recordError := store.Record(configuration.RepositoryRoot(repository), incoming)
	if recordError != nil {
		return recordError
	}

	logger.Info(stampRecordedMessageConstant,
		zap.String(logFieldRepositoryConstant, merged.Repo),
		zap.String(logFieldCommitConstant, merged.Commit),
		zap.String(logFieldHighestModeConstant, string(merged.HighestMode)),
		zap.String(logFieldMetaHashConstant, merged.MetaSHA256),
	)

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
