// Package utils exposes the ambient helpers shared by the publish command.
//
// ConfigurationLoader layers embedded defaults, configuration files and
// PUBLISH_ environment overrides through Viper. LoggerFactory builds zap
// loggers, optionally mirrored into a rotating log file.
package utils
