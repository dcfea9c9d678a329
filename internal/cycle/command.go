package cycle

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/diamondops/stegdb/internal/fingerprint"
	"github.com/diamondops/stegdb/internal/hubconfig"
	"github.com/diamondops/stegdb/internal/repair"
	"github.com/diamondops/stegdb/internal/report"
	"github.com/diamondops/stegdb/internal/utils"
)

const (
	commandNameConstant             = "cycle"
	commandShortDescriptionConstant = "Run the full governance cycle"
	commandLongDescriptionConstant  = "cycle runs scan, aggregate, evaluate, and repair in order against every configured repository, writing all governance documents even when individual repositories degrade."
	workersFlagNameConstant         = "workers"
	workersFlagUsageConstant        = "Number of concurrent hashing workers."
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// HubConfigurationProvider supplies the path of the hub configuration file.
type HubConfigurationProvider func() string

// CommandBuilder assembles the cycle cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider           LoggerProvider
	HubConfigurationProvider HubConfigurationProvider
	StampReader              report.StampReader
	Clock                    utils.Clock
}

// Build constructs the cobra command for the full governance cycle.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandNameConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().Int(workersFlagNameConstant, 0, workersFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration, configurationError := hubconfig.LoadConfiguration(builder.HubConfigurationProvider())
	if configurationError != nil {
		// The one fatal path: without configuration no meaningful partial outputs exist.
		return configurationError
	}

	workerCount, _ := command.Flags().GetInt(workersFlagNameConstant)

	logger := builder.resolveLogger()
	service := NewService(
		fingerprint.NewScanner(workerCount),
		repair.NewPlanner(),
		builder.StampReader,
		logger,
		builder.Clock,
	)

	return service.Run(command.Context(), configuration)
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
