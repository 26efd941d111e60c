package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/publish/internal/execshell"
	"github.com/temirov/publish/internal/gitrepo"
	"github.com/temirov/publish/internal/ui"
	"github.com/temirov/publish/internal/utils"
	"github.com/temirov/publish/internal/utils/flags"
	pathutils "github.com/temirov/publish/internal/utils/path"
)

const (
	commandUseConstant                    = "publish <source-directory> <target-directory> [target-branch]"
	commandShortDescriptionConstant       = "Promote a directory into a branch of a git working tree"
	commandLongDescriptionConstant        = "publish stages the source directory, switches the target working tree to the target branch (creating it when missing), replaces the tracked content with the staged copy, then commits and pushes the result."
	commandExampleConstant                = "  publish ./site . gh-pages\n  publish --dry-run ./build ~/checkouts/site\n  publish --push=no --report yaml ./public ../pages main"
	minimumArgumentCountConstant          = 2
	maximumArgumentCountConstant          = 3
	argumentCountErrorTemplateConstant    = "%w: expected %s arguments, received %d\nUsage: %s"
	argumentCountRangeConstant            = "2 or 3"
	argumentCountExactConstant            = "3"
	pathResolutionErrorTemplateConstant   = "%s: %w"
	sourceArgumentLabelConstant           = "source directory"
	targetArgumentLabelConstant           = "target directory"
	commandExecutionErrorTemplateConstant = "publish failed: %w"
	reportWriteErrorTemplateConstant      = "unable to write publish report: %w"
	flagRemoteNameConstant                = "remote"
	flagRemoteUsageConstant               = "Name of the remote that receives the pushed branch"
	flagMessageNameConstant               = "message"
	flagMessageShorthandConstant          = "m"
	flagMessageUsageConstant              = "Commit message recorded on the target branch"
	flagBranchModeNameConstant            = "branch-mode"
	flagBranchModeUsageConstant           = "How a missing target branch is created: from the current branch or as an orphan"
	flagStrategyNameConstant              = "strategy"
	flagStrategyUsageConstant             = "Replace all target content or remove only entries missing from the source"
	flagReportNameConstant                = "report"
	flagReportUsageConstant               = "Summary printed to standard output after publishing"
	flagSkipUnchangedNameConstant         = "skip-unchanged"
	flagSkipUnchangedUsageConstant        = "Skip the commit when the target content did not change"
	flagRequireBranchNameConstant         = "require-branch"
	flagRequireBranchUsageConstant        = "Require the target branch as the third positional argument"
	flagDryRunNameConstant                = "dry-run"
	flagDryRunUsageConstant               = "Validate the inputs and list the planned steps without changing anything"
	flagPushNameConstant                  = "push"
	flagPushUsageConstant                 = "Push the target branch to the remote after committing"
	publishRequestedLogMessageConstant    = "Publish requested"
	logFieldContentStrategyConstant       = "content_strategy"
	logFieldDryRunConstant                = "dry_run"
	logFieldConfigurationFilePathConstant = "config_file"
	targetBranchArgumentIndexConstant     = 2
	sourceArgumentIndexConstant           = 0
	targetArgumentIndexConstant           = 1
)

// ErrArgumentCount indicates that the command received the wrong number of positional arguments.
var ErrArgumentCount = errors.New("invalid argument count")

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider supplies the publish configuration loaded by the application.
type ConfigurationProvider func() CommandConfiguration

// Publisher performs a publish run.
type Publisher interface {
	Publish(executionContext context.Context, options Options) (Result, error)
}

// ServiceProvider constructs a Publisher from resolved dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (Publisher, error)

// CommandBuilder assembles the publish Cobra command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	ConfigurationProvider        ConfigurationProvider
	HumanReadableLoggingProvider func() bool
	Executor                     GitExecutor
	Inspector                    RepositoryInspector
	ServiceProvider              ServiceProvider
	PathResolver                 *pathutils.DirectoryPathResolver
	ReportWriter                 io.Writer
	ScratchParentDirectory       string
}

// Build constructs the publish command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	defaults := DefaultCommandConfiguration()

	command := &cobra.Command{
		Use:     commandUseConstant,
		Short:   commandShortDescriptionConstant,
		Long:    commandLongDescriptionConstant,
		Example: commandExampleConstant,
		Args:    builder.validateArgumentRange,
		RunE:    builder.run,
	}

	flagSet := command.Flags()
	flagSet.String(flagRemoteNameConstant, defaults.RemoteName, flagRemoteUsageConstant)
	flagSet.StringP(flagMessageNameConstant, flagMessageShorthandConstant, defaults.CommitMessage, flagMessageUsageConstant)
	flags.AddChoiceFlag(flagSet, nil, flagBranchModeNameConstant, string(defaults.BranchMode), BranchModeChoices(), flagBranchModeUsageConstant)
	flags.AddChoiceFlag(flagSet, nil, flagStrategyNameConstant, string(defaults.ContentStrategy), ContentStrategyChoices(), flagStrategyUsageConstant)
	flags.AddChoiceFlag(flagSet, nil, flagReportNameConstant, string(defaults.Report), ReportFormatChoices(), flagReportUsageConstant)
	flags.AddToggleFlag(flagSet, nil, flagSkipUnchangedNameConstant, "", defaults.SkipUnchanged, flagSkipUnchangedUsageConstant)
	flags.AddToggleFlag(flagSet, nil, flagRequireBranchNameConstant, "", defaults.RequireBranch, flagRequireBranchUsageConstant)
	flags.BindExecutionFlags(
		command,
		flags.ExecutionDefaults{DryRun: defaults.DryRun, Push: defaults.Push},
		flags.ExecutionFlagDefinitions{
			DryRun: flags.ExecutionFlagDefinition{Name: flagDryRunNameConstant, Usage: flagDryRunUsageConstant, Enabled: true},
			Push:   flags.ExecutionFlagDefinition{Name: flagPushNameConstant, Usage: flagPushUsageConstant, Enabled: true},
		},
	)

	return command, nil
}

func (builder *CommandBuilder) validateArgumentRange(command *cobra.Command, arguments []string) error {
	if len(arguments) < minimumArgumentCountConstant || len(arguments) > maximumArgumentCountConstant {
		return argumentCountError(command, argumentCountRangeConstant, len(arguments))
	}
	return nil
}

func argumentCountError(command *cobra.Command, expectedCount string, receivedCount int) error {
	return fmt.Errorf(argumentCountErrorTemplateConstant, ErrArgumentCount, expectedCount, receivedCount, command.UseLine())
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration, configurationError := builder.resolveEffectiveConfiguration(command)
	if configurationError != nil {
		return configurationError
	}

	if configuration.RequireBranch && len(arguments) != maximumArgumentCountConstant {
		return argumentCountError(command, argumentCountExactConstant, len(arguments))
	}

	options, optionsError := builder.buildOptions(configuration, arguments)
	if optionsError != nil {
		return optionsError
	}

	logger := builder.resolveLogger()
	humanReadableLogging := builder.humanReadableLoggingEnabled()

	executor, executorError := builder.resolveExecutor(logger, humanReadableLogging)
	if executorError != nil {
		return executorError
	}

	var stepObserver StepObserver
	if humanReadableLogging {
		stepObserver = ui.NewConsoleStepLogger(logger)
	}

	service, serviceError := builder.resolveService(ServiceDependencies{
		Logger:                 logger,
		GitExecutor:            executor,
		Inspector:              builder.resolveInspector(),
		StepObserver:           stepObserver,
		ScratchParentDirectory: builder.ScratchParentDirectory,
	})
	if serviceError != nil {
		return serviceError
	}

	configurationFilePath, _ := utils.NewCommandContextAccessor().ConfigurationFilePath(command.Context())
	logger.Debug(
		publishRequestedLogMessageConstant,
		zap.String(logFieldSourcePathConstant, options.SourcePath),
		zap.String(logFieldTargetPathConstant, options.TargetPath),
		zap.String(logFieldTargetBranchConstant, options.TargetBranch),
		zap.String(logFieldBranchModeConstant, string(options.BranchMode)),
		zap.String(logFieldContentStrategyConstant, string(options.ContentStrategy)),
		zap.Bool(logFieldDryRunConstant, options.DryRun),
		zap.String(logFieldConfigurationFilePathConstant, configurationFilePath),
	)

	result, publishError := service.Publish(command.Context(), options)
	if publishError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, publishError)
	}

	if reportError := WriteReport(builder.resolveReportWriter(command), configuration.Report, result); reportError != nil {
		return fmt.Errorf(reportWriteErrorTemplateConstant, reportError)
	}

	return nil
}

// resolveEffectiveConfiguration layers explicitly set flags over the loaded configuration.
func (builder *CommandBuilder) resolveEffectiveConfiguration(command *cobra.Command) (CommandConfiguration, error) {
	configuration := builder.resolveConfiguration()
	flagSet := command.Flags()

	if flagSet.Changed(flagRemoteNameConstant) {
		configuration.RemoteName, _ = flagSet.GetString(flagRemoteNameConstant)
	}
	if flagSet.Changed(flagMessageNameConstant) {
		configuration.CommitMessage, _ = flagSet.GetString(flagMessageNameConstant)
	}
	if flagSet.Changed(flagBranchModeNameConstant) {
		branchModeValue, _ := flagSet.GetString(flagBranchModeNameConstant)
		branchMode, parseError := ParseBranchMode(branchModeValue)
		if parseError != nil {
			return CommandConfiguration{}, parseError
		}
		configuration.BranchMode = branchMode
	}
	if flagSet.Changed(flagStrategyNameConstant) {
		strategyValue, _ := flagSet.GetString(flagStrategyNameConstant)
		strategy, parseError := ParseContentStrategy(strategyValue)
		if parseError != nil {
			return CommandConfiguration{}, parseError
		}
		configuration.ContentStrategy = strategy
	}
	if flagSet.Changed(flagReportNameConstant) {
		reportValue, _ := flagSet.GetString(flagReportNameConstant)
		report, parseError := ParseReportFormat(reportValue)
		if parseError != nil {
			return CommandConfiguration{}, parseError
		}
		configuration.Report = report
	}
	if flagSet.Changed(flagSkipUnchangedNameConstant) {
		configuration.SkipUnchanged, _ = flagSet.GetBool(flagSkipUnchangedNameConstant)
	}
	if flagSet.Changed(flagRequireBranchNameConstant) {
		configuration.RequireBranch, _ = flagSet.GetBool(flagRequireBranchNameConstant)
	}
	if flagSet.Changed(flagDryRunNameConstant) {
		configuration.DryRun, _ = flagSet.GetBool(flagDryRunNameConstant)
	}
	if flagSet.Changed(flagPushNameConstant) {
		configuration.Push, _ = flagSet.GetBool(flagPushNameConstant)
	}

	return configuration.Sanitize(), nil
}

func (builder *CommandBuilder) buildOptions(configuration CommandConfiguration, arguments []string) (Options, error) {
	pathResolver := builder.PathResolver
	if pathResolver == nil {
		pathResolver = pathutils.NewDirectoryPathResolver(nil)
	}

	sourcePath, sourceError := pathResolver.Resolve(arguments[sourceArgumentIndexConstant])
	if sourceError != nil {
		return Options{}, fmt.Errorf(pathResolutionErrorTemplateConstant, sourceArgumentLabelConstant, sourceError)
	}
	targetPath, targetError := pathResolver.Resolve(arguments[targetArgumentIndexConstant])
	if targetError != nil {
		return Options{}, fmt.Errorf(pathResolutionErrorTemplateConstant, targetArgumentLabelConstant, targetError)
	}

	targetBranch := configuration.Branch
	if len(arguments) > targetBranchArgumentIndexConstant {
		if trimmedBranch := strings.TrimSpace(arguments[targetBranchArgumentIndexConstant]); len(trimmedBranch) > 0 {
			targetBranch = trimmedBranch
		}
	}

	return Options{
		SourcePath:      sourcePath,
		TargetPath:      targetPath,
		TargetBranch:    targetBranch,
		RemoteName:      configuration.RemoteName,
		CommitMessage:   configuration.CommitMessage,
		BranchMode:      configuration.BranchMode,
		ContentStrategy: configuration.ContentStrategy,
		SkipUnchanged:   configuration.SkipUnchanged,
		Push:            configuration.Push,
		DryRun:          configuration.DryRun,
	}, nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
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

func (builder *CommandBuilder) humanReadableLoggingEnabled() bool {
	if builder.HumanReadableLoggingProvider == nil {
		return false
	}
	return builder.HumanReadableLoggingProvider()
}

func (builder *CommandBuilder) resolveExecutor(logger *zap.Logger, humanReadableLogging bool) (GitExecutor, error) {
	if builder.Executor != nil {
		return builder.Executor, nil
	}

	executorOptions := []execshell.ShellExecutorOption{}
	if humanReadableLogging {
		executorOptions = append(executorOptions, execshell.WithCommandEventObserver(ui.NewConsoleCommandEventLogger(logger)))
	}

	shellExecutor, creationError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), humanReadableLogging, executorOptions...)
	if creationError != nil {
		return nil, creationError
	}
	return shellExecutor, nil
}

func (builder *CommandBuilder) resolveInspector() RepositoryInspector {
	if builder.Inspector != nil {
		return builder.Inspector
	}
	return gitrepo.NewInspector()
}

func (builder *CommandBuilder) resolveService(dependencies ServiceDependencies) (Publisher, error) {
	if builder.ServiceProvider != nil {
		return builder.ServiceProvider(dependencies)
	}
	return NewService(dependencies)
}

func (builder *CommandBuilder) resolveReportWriter(command *cobra.Command) io.Writer {
	if builder.ReportWriter != nil {
		return builder.ReportWriter
	}
	return utils.NewFlushingWriter(command.OutOrStdout())
}
