package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	loggerNotConfiguredMessageConstant        = "logger not configured"
	commandRunnerNotConfiguredMessageConstant = "command runner not configured"
	commandStartedMessageConstant             = "external command started"
	commandCompletedMessageConstant           = "external command completed"
	commandFailedTemplateConstant             = "%s %s failed with exit code %d%s"
	commandExecutionFailedTemplateConstant    = "%s %s failed: %v"
	standardErrorSuffixTemplateConstant       = ": %s"
	logFieldCommandConstant                   = "command"
	logFieldArgumentsConstant                 = "arguments"
	logFieldExitCodeConstant                  = "exit_code"
	commandArgumentsJoinSeparatorConstant     = " "
)

// CommandName identifies an executable the governance engine shells out to.
type CommandName string

// Supported external commands.
const (
	CommandGitHubCLI CommandName = "gh"
)

// CommandDetails carries the arguments and execution environment of one invocation.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand couples an executable name with its invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable outcome of one invocation.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner abstracts process execution for deterministic testing.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// Initialization sentinels.
var (
	ErrLoggerNotConfigured        = errors.New(loggerNotConfiguredMessageConstant)
	ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)
)

// CommandFailedError reports a command that ran and exited non-zero.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error renders the failure with its exit code and trailing standard error.
func (failedError CommandFailedError) Error() string {
	standardErrorSuffix := ""
	trimmedStandardError := strings.TrimSpace(failedError.Result.StandardError)
	if len(trimmedStandardError) > 0 {
		standardErrorSuffix = fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
	}
	return fmt.Sprintf(commandFailedTemplateConstant, failedError.Command.Name, joinArguments(failedError.Command.Details.Arguments), failedError.Result.ExitCode, standardErrorSuffix)
}

// CommandExecutionError reports a command that could not be executed at all.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error renders the execution failure.
func (executionError CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionFailedTemplateConstant, executionError.Command.Name, joinArguments(executionError.Command.Details.Arguments), executionError.Cause)
}

// Unwrap exposes the underlying cause.
func (executionError CommandExecutionError) Unwrap() error {
	return executionError.Cause
}

// ShellExecutor runs external commands with structured logging around every invocation.
type ShellExecutor struct {
	logger *zap.Logger
	runner CommandRunner
}

// NewShellExecutor constructs an executor, requiring both collaborators.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}
	return &ShellExecutor{logger: logger, runner: runner}, nil
}

// ExecuteGitHubCLI runs the GitHub CLI with the supplied details.
func (executor *ShellExecutor) ExecuteGitHubCLI(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.execute(executionContext, ShellCommand{Name: CommandGitHubCLI, Details: details})
}

func (executor *ShellExecutor) execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executor.logger.Debug(commandStartedMessageConstant,
		zap.String(logFieldCommandConstant, string(command.Name)),
		zap.String(logFieldArgumentsConstant, joinArguments(command.Details.Arguments)),
	)

	result, runError := executor.runner.Run(executionContext, command)
	if runError != nil {
		executionError := CommandExecutionError{Command: command, Cause: runError}
		executor.logger.Debug(commandCompletedMessageConstant,
			zap.String(logFieldCommandConstant, string(command.Name)),
			zap.Error(executionError),
		)
		return ExecutionResult{}, executionError
	}

	executor.logger.Debug(commandCompletedMessageConstant,
		zap.String(logFieldCommandConstant, string(command.Name)),
		zap.Int(logFieldExitCodeConstant, result.ExitCode),
	)

	if result.ExitCode != 0 {
		return result, CommandFailedError{Command: command, Result: result}
	}
	return result, nil
}

func joinArguments(arguments []string) string {
	return strings.Join(arguments, commandArgumentsJoinSeparatorConstant)
}
