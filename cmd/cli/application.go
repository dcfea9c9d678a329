package cli

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/diamondops/stegdb/internal/cycle"
	"github.com/diamondops/stegdb/internal/discovery"
	"github.com/diamondops/stegdb/internal/fingerprint"
	"github.com/diamondops/stegdb/internal/index"
	"github.com/diamondops/stegdb/internal/repair"
	"github.com/diamondops/stegdb/internal/report"
	"github.com/diamondops/stegdb/internal/stamp"
	"github.com/diamondops/stegdb/internal/utils"
)

const (
	applicationNameConstant                 = "stegdb"
	applicationShortDescriptionConstant     = "Multi-repo governance engine for the hub"
	applicationLongDescriptionConstant      = "stegdb fingerprints governed repositories, records validation stamps, evaluates the dependency graph, and plans repairs that converge repositories toward the hub's canonical files."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	hubConfigFlagNameConstant               = "hub-config"
	hubConfigFlagUsageConstant              = "Path to the hub repository configuration (YAML or JSON)."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	hubConfigurationKeyConstant             = "hub"
	hubConfigPathConfigKeyConstant          = hubConfigurationKeyConstant + ".config_path"
	environmentPrefixConstant               = "STEGDB"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	defaultConfigurationSearchPathConstant  = "."
	defaultHubConfigPathConstant            = "repos_config.yaml"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
	Hub    ApplicationHubConfiguration    `mapstructure:"hub"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ApplicationHubConfiguration locates the hub repository configuration file.
type ApplicationHubConfiguration struct {
	ConfigPath string `mapstructure:"config_path"`
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand           *cobra.Command
	configurationLoader   *utils.ConfigurationLoader
	loggerFactory         *utils.LoggerFactory
	logger                *zap.Logger
	configuration         ApplicationConfiguration
	configurationMetadata utils.LoadedConfiguration
	configurationFilePath string
	logLevelFlagValue     string
	logFormatFlagValue    string
	hubConfigFlagValue    string
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPathConstant},
	)

	application := &Application{
		configurationLoader: configurationLoader,
		loggerFactory:       utils.NewLoggerFactory(),
		logger:              zap.NewNop(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.hubConfigFlagValue, hubConfigFlagNameConstant, "", hubConfigFlagUsageConstant)

	application.registerSubcommands(cobraCommand)
	application.rootCommand = cobraCommand

	return application
}

func (application *Application) registerSubcommands(rootCommand *cobra.Command) {
	loggerProvider := func() *zap.Logger {
		return application.logger
	}
	hubConfigurationProvider := application.hubConfigurationPath

	scanBuilder := fingerprint.CommandBuilder{
		LoggerProvider:           loggerProvider,
		HubConfigurationProvider: hubConfigurationProvider,
	}
	if scanCommand, buildError := scanBuilder.Build(); buildError == nil {
		rootCommand.AddCommand(scanCommand)
	}

	aggregateBuilder := index.CommandBuilder{
		LoggerProvider:           loggerProvider,
		HubConfigurationProvider: hubConfigurationProvider,
	}
	if aggregateCommand, buildError := aggregateBuilder.Build(); buildError == nil {
		rootCommand.AddCommand(aggregateCommand)
	}

	stampBuilder := stamp.CommandBuilder{
		LoggerProvider:           loggerProvider,
		HubConfigurationProvider: hubConfigurationProvider,
	}
	if stampCommand, buildError := stampBuilder.Build(); buildError == nil {
		rootCommand.AddCommand(stampCommand)
	}

	evaluateBuilder := report.CommandBuilder{
		LoggerProvider:           loggerProvider,
		HubConfigurationProvider: hubConfigurationProvider,
	}
	if evaluateCommand, buildError := evaluateBuilder.Build(); buildError == nil {
		rootCommand.AddCommand(evaluateCommand)
	}

	repairBuilder := repair.CommandBuilder{
		LoggerProvider:           loggerProvider,
		HubConfigurationProvider: hubConfigurationProvider,
	}
	if repairCommand, buildError := repairBuilder.Build(); buildError == nil {
		rootCommand.AddCommand(repairCommand)
	}

	cycleBuilder := cycle.CommandBuilder{
		LoggerProvider:           loggerProvider,
		HubConfigurationProvider: hubConfigurationProvider,
	}
	if cycleCommand, buildError := cycleBuilder.Build(); buildError == nil {
		rootCommand.AddCommand(cycleCommand)
	}

	discoverBuilder := discovery.CommandBuilder{
		LoggerProvider:           loggerProvider,
		HubConfigurationProvider: hubConfigurationProvider,
	}
	if discoverCommand, buildError := discoverBuilder.Build(); buildError == nil {
		rootCommand.AddCommand(discoverCommand)
	}
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute runs a freshly assembled application with the default command set.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatStructured),
		hubConfigPathConfigKeyConstant:   defaultHubConfigPathConstant,
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if command.Root().PersistentFlags().Changed(logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}
	if command.Root().PersistentFlags().Changed(logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}
	if command.Root().PersistentFlags().Changed(hubConfigFlagNameConstant) {
		application.configuration.Hub.ConfigPath = application.hubConfigFlagValue
	}

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	return nil
}

// hubConfigurationPath resolves the hub configuration location for subcommands.
func (application *Application) hubConfigurationPath() string {
	return application.configuration.Hub.ConfigPath
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}

	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}
