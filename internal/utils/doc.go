// Package utils exposes reusable helpers consumed by multiple commands.
//
// It currently houses the ConfigurationLoader, LoggerFactory, and Clock
// abstractions that integrate Viper, environment variables, and zap logging
// for the CLI.
package utils
