package discovery

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/diamondops/stegdb/internal/execshell"
	"github.com/diamondops/stegdb/internal/githubcli"
	"github.com/diamondops/stegdb/internal/hubconfig"
)

const (
	commandNameConstant               = "discover"
	commandShortDescriptionConstant   = "Compare configured repositories against discovered clones"
	commandLongDescriptionConstant    = "discover lists configured repositories whose clones are absent, clones present under the hub root that no configuration entry claims, and optionally the owner's remote repositories that are not configured."
	remoteFlagNameConstant            = "remote"
	remoteFlagUsageConstant           = "Also query the configured owner's remote repository list."
	ownerMissingMessageConstant       = "no owner configured, remote discovery skipped"
	remoteDiscoveryFailedMessageConst = "remote discovery failed"
	missingCloneHeaderConstant        = "configured repositories without clones:"
	unconfiguredCloneHeaderConstant   = "clones without configuration entries:"
	unconfiguredRemoteHeaderConstant  = "remote repositories without configuration entries:"
	discoveryListItemTemplateConstant = "  %s\n"
	discoveryCleanMessageConstant     = "all configured repositories have clones"
	discoverySummaryMessageConstant   = "clone discovery complete"
	logFieldConfiguredCountConstant   = "configured_count"
	logFieldCloneCountConstant        = "clone_count"
	logFieldMissingCloneCountConstant = "missing_clone_count"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// HubConfigurationProvider supplies the path of the hub configuration file.
type HubConfigurationProvider func() string

// RepositoryLister abstracts the remote discovery provider.
type RepositoryLister interface {
	ListRepositories(executionContext context.Context, owner string) ([]githubcli.RepositoryIdentifier, error)
}

// CommandBuilder assembles the discover cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider           LoggerProvider
	HubConfigurationProvider HubConfigurationProvider
	Discoverer               *FilesystemCloneDiscoverer
	RepositoryLister         RepositoryLister
}

// Build constructs the cobra command for clone discovery.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandNameConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().Bool(remoteFlagNameConstant, false, remoteFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration, configurationError := hubconfig.LoadConfiguration(builder.HubConfigurationProvider())
	if configurationError != nil {
		return configurationError
	}

	remoteFlagValue, _ := command.Flags().GetBool(remoteFlagNameConstant)
	logger := builder.resolveLogger()

	discoverer := builder.Discoverer
	if discoverer == nil {
		discoverer = NewFilesystemCloneDiscoverer()
	}

	clonePaths, discoveryError := discoverer.DiscoverClones(configuration.Root)
	if discoveryError != nil {
		return discoveryError
	}

	clonePathSet := make(map[string]struct{}, len(clonePaths))
	for _, clonePath := range clonePaths {
		clonePathSet[clonePath] = struct{}{}
	}

	var missingClones []string
	configuredPaths := make(map[string]struct{}, len(configuration.Repositories))
	for _, repository := range configuration.Repositories {
		repositoryRoot := configuration.RepositoryRoot(repository)
		configuredPaths[repositoryRoot] = struct{}{}
		if _, present := clonePathSet[repositoryRoot]; !present {
			missingClones = append(missingClones, repository.Name)
		}
	}
	sort.Strings(missingClones)

	var unconfiguredClones []string
	for _, clonePath := range clonePaths {
		if _, configured := configuredPaths[clonePath]; !configured {
			unconfiguredClones = append(unconfiguredClones, clonePath)
		}
	}

	outputWriter := command.OutOrStdout()
	writeSection(outputWriter, missingCloneHeaderConstant, missingClones)
	writeSection(outputWriter, unconfiguredCloneHeaderConstant, unconfiguredClones)
	if len(missingClones) == 0 && len(unconfiguredClones) == 0 {
		fmt.Fprintln(outputWriter, discoveryCleanMessageConstant)
	}

	if remoteFlagValue {
		builder.reportRemoteRepositories(command, configuration, logger, outputWriter)
	}

	logger.Info(discoverySummaryMessageConstant,
		zap.Int(logFieldConfiguredCountConstant, len(configuration.Repositories)),
		zap.Int(logFieldCloneCountConstant, len(clonePaths)),
		zap.Int(logFieldMissingCloneCountConstant, len(missingClones)),
	)

	return nil
}

// reportRemoteRepositories degrades on provider failure: remote discovery is
// advisory and never fails the command.
func (builder *CommandBuilder) reportRemoteRepositories(command *cobra.Command, configuration hubconfig.Configuration, logger *zap.Logger, outputWriter io.Writer) {
	if len(configuration.Owner) == 0 {
		logger.Warn(ownerMissingMessageConstant)
		return
	}

	lister, listerError := builder.resolveRepositoryLister(logger)
	if listerError != nil {
		logger.Warn(remoteDiscoveryFailedMessageConst, zap.Error(listerError))
		return
	}

	remoteRepositories, listError := lister.ListRepositories(command.Context(), configuration.Owner)
	if listError != nil {
		logger.Warn(remoteDiscoveryFailedMessageConst, zap.Error(listError))
		return
	}

	var unconfiguredRemote []string
	for _, remoteRepository := range remoteRepositories {
		if _, configured := configuration.Repository(remoteRepository.Name); !configured {
			unconfiguredRemote = append(unconfiguredRemote, remoteRepository.NameWithOwner)
		}
	}
	sort.Strings(unconfiguredRemote)

	writeSection(outputWriter, unconfiguredRemoteHeaderConstant, unconfiguredRemote)
}

func (builder *CommandBuilder) resolveRepositoryLister(logger *zap.Logger) (RepositoryLister, error) {
	if builder.RepositoryLister != nil {
		return builder.RepositoryLister, nil
	}

	executor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
	if executorError != nil {
		return nil, executorError
	}
	return githubcli.NewClient(executor)
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func writeSection(outputWriter io.Writer, header string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(outputWriter, header)
	for _, item := range items {
		fmt.Fprintf(outputWriter, discoveryListItemTemplateConstant, item)
	}
}
