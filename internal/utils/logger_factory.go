package utils

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logLevelDebugStringConstant          = "debug"
	logLevelInfoStringConstant           = "info"
	logLevelWarnStringConstant           = "warn"
	logLevelErrorStringConstant          = "error"
	logFormatStructuredStringConstant    = "structured"
	logFormatConsoleStringConstant       = "console"
	logFormatAutomaticStringConstant     = "auto"
	jsonZapEncodingStringConstant        = "json"
	consoleZapEncodingStringConstant     = "console"
	unsupportedLogLevelTemplateConstant  = "unsupported log level: %s"
	unsupportedLogFormatTemplateConstant = "unsupported log format: %s"
	defaultLogFileMaxSizeMegabytes       = 1
	defaultLogFileMaxBackups             = 2
	defaultLogFileMaxAgeDays             = 30
)

// LogLevel enumerates supported logging granularities.
type LogLevel string

// Exported log level constants for reuse across packages.
const (
	LogLevelDebug LogLevel = LogLevel(logLevelDebugStringConstant)
	LogLevelInfo  LogLevel = LogLevel(logLevelInfoStringConstant)
	LogLevelWarn  LogLevel = LogLevel(logLevelWarnStringConstant)
	LogLevelError LogLevel = LogLevel(logLevelErrorStringConstant)
)

// LogFormat enumerates supported logger output encodings.
type LogFormat string

// Exported log format constants for reuse across packages.
const (
	LogFormatStructured LogFormat = LogFormat(logFormatStructuredStringConstant)
	LogFormatConsole    LogFormat = LogFormat(logFormatConsoleStringConstant)
	LogFormatAutomatic  LogFormat = LogFormat(logFormatAutomaticStringConstant)
)

// LogFileConfiguration describes the optional rotating log file that mirrors every log entry.
type LogFileConfiguration struct {
	Path             string `mapstructure:"path"`
	MaxSizeMegabytes int    `mapstructure:"max_size_megabytes"`
	MaxBackups       int    `mapstructure:"max_backups"`
	MaxAgeDays       int    `mapstructure:"max_age_days"`
}

// Enabled reports whether a log file path has been configured.
func (configuration LogFileConfiguration) Enabled() bool {
	return len(strings.TrimSpace(configuration.Path)) > 0
}

// LoggerOption customizes logger construction.
type LoggerOption func(*loggerOptions)

type loggerOptions struct {
	logFile LogFileConfiguration
}

// WithLogFile tees every log entry into a rotating JSON log file.
func WithLogFile(configuration LogFileConfiguration) LoggerOption {
	return func(options *loggerOptions) {
		options.logFile = configuration
	}
}

// TerminalDetector reports whether a file descriptor is attached to a terminal.
type TerminalDetector func(fileDescriptor uintptr) bool

// LoggerFactory builds zap.Logger instances with consistent configuration.
type LoggerFactory struct {
	terminalDetector TerminalDetector
}

var logLevelMapping = map[LogLevel]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

var logFormatEncodingMapping = map[LogFormat]string{
	LogFormatStructured: jsonZapEncodingStringConstant,
	LogFormatConsole:    consoleZapEncodingStringConstant,
}

// NewLoggerFactory constructs a new logger factory.
func NewLoggerFactory() *LoggerFactory {
	return &LoggerFactory{terminalDetector: detectTerminal}
}

// NewLoggerFactoryWithTerminalDetector constructs a logger factory that resolves automatic formats with the provided detector.
func NewLoggerFactoryWithTerminalDetector(terminalDetector TerminalDetector) *LoggerFactory {
	if terminalDetector == nil {
		terminalDetector = detectTerminal
	}
	return &LoggerFactory{terminalDetector: terminalDetector}
}

// ResolveLogFormat maps an empty or automatic format to console for interactive stderr and structured otherwise.
func (factory *LoggerFactory) ResolveLogFormat(requestedLogFormat LogFormat) LogFormat {
	normalizedFormat := LogFormat(strings.ToLower(strings.TrimSpace(string(requestedLogFormat))))
	if len(normalizedFormat) > 0 && normalizedFormat != LogFormatAutomatic {
		return normalizedFormat
	}

	terminalDetector := factory.terminalDetector
	if terminalDetector == nil {
		terminalDetector = detectTerminal
	}
	if terminalDetector(os.Stderr.Fd()) {
		return LogFormatConsole
	}
	return LogFormatStructured
}

// CreateLogger produces a zap.Logger honoring the requested log level and format.
func (factory *LoggerFactory) CreateLogger(requestedLogLevel LogLevel, requestedLogFormat LogFormat, options ...LoggerOption) (*zap.Logger, error) {
	zapLogLevel, levelExists := logLevelMapping[LogLevel(strings.ToLower(strings.TrimSpace(string(requestedLogLevel))))]
	if !levelExists {
		return nil, fmt.Errorf(unsupportedLogLevelTemplateConstant, requestedLogLevel)
	}

	resolvedLogFormat := factory.ResolveLogFormat(requestedLogFormat)
	encoding, formatExists := logFormatEncodingMapping[resolvedLogFormat]
	if !formatExists {
		return nil, fmt.Errorf(unsupportedLogFormatTemplateConstant, requestedLogFormat)
	}

	resolvedOptions := loggerOptions{}
	for _, option := range options {
		if option != nil {
			option(&resolvedOptions)
		}
	}

	configuration := zap.NewProductionConfig()
	configuration.Level = zap.NewAtomicLevelAt(zapLogLevel)
	configuration.Encoding = encoding

	buildOptions := []zap.Option{}
	if resolvedOptions.logFile.Enabled() {
		fileCore := newRotatingFileCore(resolvedOptions.logFile, configuration.EncoderConfig, configuration.Level)
		buildOptions = append(buildOptions, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore)
		}))
	}

	logger, buildError := configuration.Build(buildOptions...)
	if buildError != nil {
		return nil, buildError
	}

	return logger, nil
}

func newRotatingFileCore(configuration LogFileConfiguration, encoderConfiguration zapcore.EncoderConfig, level zap.AtomicLevel) zapcore.Core {
	maxSizeMegabytes := configuration.MaxSizeMegabytes
	if maxSizeMegabytes <= 0 {
		maxSizeMegabytes = defaultLogFileMaxSizeMegabytes
	}
	maxBackups := configuration.MaxBackups
	if maxBackups <= 0 {
		maxBackups = defaultLogFileMaxBackups
	}
	maxAgeDays := configuration.MaxAgeDays
	if maxAgeDays <= 0 {
		maxAgeDays = defaultLogFileMaxAgeDays
	}

	rotatingWriter := &lumberjack.Logger{
		Filename:   strings.TrimSpace(configuration.Path),
		MaxSize:    maxSizeMegabytes,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}

	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfiguration), zapcore.AddSync(rotatingWriter), level)
}

func detectTerminal(fileDescriptor uintptr) bool {
	return isatty.IsTerminal(fileDescriptor) || isatty.IsCygwinTerminal(fileDescriptor)
}
