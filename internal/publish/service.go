package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/temirov/publish/internal/execshell"
	"github.com/temirov/publish/internal/gitrepo"
)

const (
	gitCheckoutSubcommandConstant          = "checkout"
	gitCreateBranchFlagConstant            = "-b"
	gitOrphanBranchFlagConstant            = "--orphan"
	gitEndOfOptionsConstant                = "--"
	gitAddSubcommandConstant               = "add"
	gitAllFlagConstant                     = "--all"
	gitCurrentDirectoryConstant            = "."
	gitStatusSubcommandConstant            = "status"
	gitPorcelainFlagConstant               = "--porcelain"
	gitCommitSubcommandConstant            = "commit"
	gitAllowEmptyFlagConstant              = "--allow-empty"
	gitMessageFlagConstant                 = "-m"
	gitPushSubcommandConstant              = "push"
	gitTerminalPromptEnvironmentConstant   = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisabledConstant      = "0"
	targetRoleConstant                     = "target directory"
	sourceRoleConstant                     = "source directory"
	reasonTemplateConstant                 = "%s %s"
	reasonMissingConstant                  = "does not exist"
	reasonNotDirectoryConstant             = "is not a directory"
	reasonInaccessibleConstant             = "cannot be inspected"
	reasonNotRepositoryConstant            = "target directory is not a git working tree"
	scratchAllocatedLogMessageConstant     = "Allocated scratch directory"
	skipReasonDryRunConstant               = "dry run"
	skipReasonNoChangesConstant            = "no changes to commit"
	skipReasonPushDisabledConstant         = "push disabled"
	publishStartedLogMessageConstant       = "Publish started"
	publishCompletedLogMessageConstant     = "Publish completed"
	publishDryRunLogMessageConstant        = "Publish dry run validated inputs"
	stepStartedLogMessageConstant          = "Step started"
	stepCompletedLogMessageConstant        = "Step completed"
	stepSkippedLogMessageConstant          = "Step skipped"
	stepFailedLogMessageConstant           = "Step failed"
	branchCreatedLogMessageConstant        = "Created target branch"
	scratchReleaseFailedLogMessageConstant = "Failed to remove scratch directory"
	headLookupFailedLogMessageConstant     = "Unable to resolve HEAD commit"
	remoteLookupFailedLogMessageConstant   = "Unable to describe push destination"
	logFieldRunIdentifierConstant          = "run_id"
	logFieldStepConstant                   = "step"
	logFieldPositionConstant               = "position"
	logFieldTotalConstant                  = "total"
	logFieldReasonConstant                 = "reason"
	logFieldSourcePathConstant             = "source_path"
	logFieldTargetPathConstant             = "target_path"
	logFieldTargetBranchConstant           = "target_branch"
	logFieldBranchModeConstant             = "branch_mode"
	logFieldScratchPathConstant            = "scratch_path"
	logFieldCommitHashConstant             = "commit_hash"
	logFieldRemoteConstant                 = "remote"
)

// GitExecutor exposes the git invocations required by the publisher.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// RepositoryInspector answers read-only questions about a git working tree.
type RepositoryInspector interface {
	IsRepository(repositoryPath string) (bool, error)
	HeadCommit(repositoryPath string) (string, error)
	RemoteURL(repositoryPath string, remoteName string) (string, error)
}

// RunIdentifierGenerator produces a unique identifier for a publish run.
type RunIdentifierGenerator func() string

// ServiceDependencies enumerates collaborators required by the publisher.
type ServiceDependencies struct {
	Logger                 *zap.Logger
	GitExecutor            GitExecutor
	Inspector              RepositoryInspector
	StepObserver           StepObserver
	RunIdentifierGenerator RunIdentifierGenerator
	ScratchParentDirectory string
}

// Options describes a single publish request.
type Options struct {
	SourcePath      string
	TargetPath      string
	TargetBranch    string
	RemoteName      string
	CommitMessage   string
	BranchMode      BranchMode
	ContentStrategy ContentStrategy
	SkipUnchanged   bool
	Push            bool
	DryRun          bool
}

// Result summarizes a publish run.
type Result struct {
	RunID            string     `yaml:"run_id"`
	SourcePath       string     `yaml:"source_path"`
	TargetPath       string     `yaml:"target_path"`
	TargetBranch     string     `yaml:"target_branch"`
	BranchCreated    bool       `yaml:"branch_created"`
	Committed        bool       `yaml:"committed"`
	Pushed           bool       `yaml:"pushed"`
	CommitHash       string     `yaml:"commit_hash,omitempty"`
	RemoteRepository string     `yaml:"remote_repository,omitempty"`
	CompletedSteps   []StepName `yaml:"completed_steps"`
	PlannedSteps     []StepName `yaml:"planned_steps,omitempty"`
	DryRun           bool       `yaml:"dry_run"`
}

// Service promotes directory contents onto a branch of a git working tree.
type Service struct {
	logger                 *zap.Logger
	gitExecutor            GitExecutor
	inspector              RepositoryInspector
	stepObserver           StepObserver
	runIdentifierGenerator RunIdentifierGenerator
	scratchParentDirectory string
}

// NewService constructs a Service.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.GitExecutor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	if dependencies.Inspector == nil {
		return nil, ErrInspectorNotConfigured
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var stepObserver StepObserver = noopStepObserver{}
	if dependencies.StepObserver != nil {
		stepObserver = dependencies.StepObserver
	}

	runIdentifierGenerator := dependencies.RunIdentifierGenerator
	if runIdentifierGenerator == nil {
		runIdentifierGenerator = func() string { return uuid.NewString() }
	}

	return &Service{
		logger:                 logger,
		gitExecutor:            dependencies.GitExecutor,
		inspector:              dependencies.Inspector,
		stepObserver:           stepObserver,
		runIdentifierGenerator: runIdentifierGenerator,
		scratchParentDirectory: dependencies.ScratchParentDirectory,
	}, nil
}

// Publish validates the request, then stages the source, switches the target to the requested branch, replaces
// its content and commits and pushes the result. The first failing step aborts the run.
func (service *Service) Publish(executionContext context.Context, options Options) (Result, error) {
	normalizedOptions, optionsError := normalizeOptions(options)
	if optionsError != nil {
		return Result{}, optionsError
	}

	run := &publishRun{
		service:  service,
		options:  normalizedOptions,
		position: 0,
		total:    len(orderedSteps),
		result: Result{
			RunID:          service.runIdentifierGenerator(),
			SourcePath:     normalizedOptions.SourcePath,
			TargetPath:     normalizedOptions.TargetPath,
			TargetBranch:   normalizedOptions.TargetBranch,
			DryRun:         normalizedOptions.DryRun,
			CompletedSteps: make([]StepName, 0, len(orderedSteps)),
		},
	}
	run.logger = service.logger.With(
		zap.String(logFieldRunIdentifierConstant, run.result.RunID),
		zap.String(logFieldSourcePathConstant, normalizedOptions.SourcePath),
		zap.String(logFieldTargetPathConstant, normalizedOptions.TargetPath),
		zap.String(logFieldTargetBranchConstant, normalizedOptions.TargetBranch),
	)
	run.logger.Debug(publishStartedLogMessageConstant, zap.String(logFieldBranchModeConstant, string(normalizedOptions.BranchMode)))

	return run.execute(executionContext)
}

func normalizeOptions(options Options) (Options, error) {
	normalized := options
	normalized.SourcePath = strings.TrimSpace(options.SourcePath)
	normalized.TargetPath = strings.TrimSpace(options.TargetPath)
	normalized.TargetBranch = strings.TrimSpace(options.TargetBranch)
	normalized.RemoteName = fallbackValue(options.RemoteName, defaultRemoteNameConstant)
	normalized.CommitMessage = fallbackValue(options.CommitMessage, defaultCommitMessageConstant)

	if len(normalized.SourcePath) == 0 {
		return Options{}, ErrSourcePathRequired
	}
	if len(normalized.TargetPath) == 0 {
		return Options{}, ErrTargetPathRequired
	}
	if len(normalized.TargetBranch) == 0 {
		return Options{}, ErrTargetBranchRequired
	}

	if len(normalized.BranchMode) == 0 {
		normalized.BranchMode = BranchModeBranch
	} else if _, parseError := ParseBranchMode(string(normalized.BranchMode)); parseError != nil {
		return Options{}, parseError
	}
	if len(normalized.ContentStrategy) == 0 {
		normalized.ContentStrategy = ContentStrategyReplace
	} else if _, parseError := ParseContentStrategy(string(normalized.ContentStrategy)); parseError != nil {
		return Options{}, parseError
	}

	return normalized, nil
}

type publishRun struct {
	service  *Service
	options  Options
	logger   *zap.Logger
	result   Result
	position int
	total    int
	scratch  scratchDirectory
}

func (run *publishRun) execute(executionContext context.Context) (Result, error) {
	validations := []struct {
		step   StepName
		action func(context.Context) error
	}{
		{step: StepValidateTarget, action: run.validateTarget},
		{step: StepValidateTargetIsRepo, action: run.validateTargetIsRepository},
		{step: StepValidateSource, action: run.validateSource},
	}
	for _, validation := range validations {
		if stepError := run.runStep(executionContext, validation.step, validation.action); stepError != nil {
			return run.result, stepError
		}
	}

	if run.options.DryRun {
		run.result.PlannedSteps = mutatingSteps()
		for _, plannedStep := range run.result.PlannedSteps {
			run.skipStep(plannedStep, skipReasonDryRunConstant)
		}
		run.logger.Info(publishDryRunLogMessageConstant)
		return run.result, nil
	}

	defer run.releaseScratch()

	mutations := []struct {
		step   StepName
		action func(context.Context) error
	}{
		{step: StepPrepareScratch, action: run.prepareScratch},
		{step: StepStageSource, action: run.stageSource},
		{step: StepSwitchOrCreateBranch, action: run.switchOrCreateBranch},
		{step: StepClearTargetContent, action: run.clearTargetContent},
		{step: StepCopyStagedIntoTarget, action: run.copyStagedIntoTarget},
		{step: StepIndexAll, action: run.indexAll},
		{step: StepCommit, action: run.commit},
		{step: StepPush, action: run.push},
	}
	for _, mutation := range mutations {
		if stepError := run.runStep(executionContext, mutation.step, mutation.action); stepError != nil {
			return run.result, stepError
		}
	}

	run.logger.Info(
		publishCompletedLogMessageConstant,
		zap.String(logFieldCommitHashConstant, run.result.CommitHash),
		zap.String(logFieldRemoteConstant, run.result.RemoteRepository),
	)

	return run.result, nil
}

// errStepSkipped signals that a step ran to completion without doing any work.
type errStepSkipped struct {
	reason string
}

func (skipped errStepSkipped) Error() string {
	return skipped.reason
}

func (run *publishRun) runStep(executionContext context.Context, step StepName, action func(context.Context) error) error {
	run.position++

	if executionContext != nil {
		if contextError := executionContext.Err(); contextError != nil {
			return run.failStep(step, StepError{Step: step, Cause: contextError})
		}
	}

	run.service.stepObserver.StepStarted(string(step), run.position, run.total)
	run.logger.Debug(stepStartedLogMessageConstant, run.stepFields(step)...)

	actionError := action(executionContext)
	var skipped errStepSkipped
	switch {
	case actionError == nil:
		run.result.CompletedSteps = append(run.result.CompletedSteps, step)
		run.service.stepObserver.StepCompleted(string(step), run.position, run.total)
		run.logger.Debug(stepCompletedLogMessageConstant, run.stepFields(step)...)
		return nil
	case errors.As(actionError, &skipped):
		run.result.CompletedSteps = append(run.result.CompletedSteps, step)
		run.service.stepObserver.StepSkipped(string(step), run.position, run.total, skipped.reason)
		run.logger.Debug(stepSkippedLogMessageConstant, append(run.stepFields(step), zap.String(logFieldReasonConstant, skipped.reason))...)
		return nil
	}

	var preconditionError PreconditionError
	if errors.As(actionError, &preconditionError) {
		return run.failStep(step, preconditionError)
	}
	return run.failStep(step, StepError{Step: step, Cause: actionError})
}

func (run *publishRun) skipStep(step StepName, reason string) {
	run.position++
	run.service.stepObserver.StepSkipped(string(step), run.position, run.total, reason)
	run.logger.Debug(stepSkippedLogMessageConstant, append(run.stepFields(step), zap.String(logFieldReasonConstant, reason))...)
}

func (run *publishRun) failStep(step StepName, failure error) error {
	run.service.stepObserver.StepFailed(string(step), run.position, run.total, failure)
	run.logger.Error(stepFailedLogMessageConstant, append(run.stepFields(step), zap.Error(failure))...)
	return failure
}

func (run *publishRun) stepFields(step StepName) []zap.Field {
	return []zap.Field{
		zap.String(logFieldStepConstant, string(step)),
		zap.Int(logFieldPositionConstant, run.position),
		zap.Int(logFieldTotalConstant, run.total),
	}
}

func (run *publishRun) validateTarget(context.Context) error {
	resolvedPath, resolveError := resolveDirectory(StepValidateTarget, targetRoleConstant, run.options.TargetPath)
	if resolveError != nil {
		return resolveError
	}
	run.options.TargetPath = resolvedPath
	run.result.TargetPath = resolvedPath
	return nil
}

func (run *publishRun) validateTargetIsRepository(context.Context) error {
	isRepository, inspectionError := run.service.inspector.IsRepository(run.options.TargetPath)
	if inspectionError != nil {
		return PreconditionError{
			Step:   StepValidateTargetIsRepo,
			Path:   run.options.TargetPath,
			Reason: reasonNotRepositoryConstant,
			Cause:  inspectionError,
		}
	}
	if !isRepository {
		return PreconditionError{
			Step:   StepValidateTargetIsRepo,
			Path:   run.options.TargetPath,
			Reason: reasonNotRepositoryConstant,
		}
	}
	return nil
}

func (run *publishRun) validateSource(context.Context) error {
	resolvedPath, resolveError := resolveDirectory(StepValidateSource, sourceRoleConstant, run.options.SourcePath)
	if resolveError != nil {
		return resolveError
	}
	run.options.SourcePath = resolvedPath
	run.result.SourcePath = resolvedPath
	return nil
}

// resolveDirectory verifies that directoryPath names an existing directory and returns it with every
// symbolic link resolved, so later steps never operate on a link in place of the directory it points to.
func resolveDirectory(step StepName, role string, directoryPath string) (string, error) {
	directoryInfo, statError := os.Stat(directoryPath)
	if statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return "", PreconditionError{Step: step, Path: directoryPath, Reason: fmt.Sprintf(reasonTemplateConstant, role, reasonMissingConstant)}
		}
		return "", PreconditionError{Step: step, Path: directoryPath, Reason: fmt.Sprintf(reasonTemplateConstant, role, reasonInaccessibleConstant), Cause: statError}
	}
	if !directoryInfo.IsDir() {
		return "", PreconditionError{Step: step, Path: directoryPath, Reason: fmt.Sprintf(reasonTemplateConstant, role, reasonNotDirectoryConstant)}
	}

	resolvedPath, resolveError := filepath.EvalSymlinks(directoryPath)
	if resolveError != nil {
		return "", PreconditionError{Step: step, Path: directoryPath, Reason: fmt.Sprintf(reasonTemplateConstant, role, reasonInaccessibleConstant), Cause: resolveError}
	}
	return resolvedPath, nil
}

func (run *publishRun) prepareScratch(context.Context) error {
	scratch, allocationError := allocateScratchDirectory(run.service.scratchParentDirectory, run.result.RunID)
	if allocationError != nil {
		return allocationError
	}
	run.scratch = scratch
	run.logger.Debug(scratchAllocatedLogMessageConstant, zap.String(logFieldScratchPathConstant, scratch.path))
	return nil
}

func (run *publishRun) releaseScratch() {
	if releaseError := run.scratch.Release(); releaseError != nil {
		run.logger.Warn(scratchReleaseFailedLogMessageConstant, zap.String(logFieldScratchPathConstant, run.scratch.path), zap.Error(releaseError))
	}
}

func (run *publishRun) stageSource(context.Context) error {
	return run.scratch.Stage(run.options.SourcePath)
}

func (run *publishRun) switchOrCreateBranch(executionContext context.Context) error {
	// The trailing separator keeps git from reading the branch as a pathspec.
	_, checkoutError := run.executeGit(executionContext, gitCheckoutSubcommandConstant, run.options.TargetBranch, gitEndOfOptionsConstant)
	if checkoutError == nil {
		return nil
	}
	if contextError := executionContext.Err(); contextError != nil {
		return contextError
	}

	var commandFailed execshell.CommandFailedError
	if !errors.As(checkoutError, &commandFailed) {
		return checkoutError
	}

	creationFlag := gitCreateBranchFlagConstant
	if run.options.BranchMode == BranchModeOrphan {
		creationFlag = gitOrphanBranchFlagConstant
	}

	if _, creationError := run.executeGit(executionContext, gitCheckoutSubcommandConstant, creationFlag, run.options.TargetBranch); creationError != nil {
		return creationError
	}

	run.result.BranchCreated = true
	run.logger.Info(branchCreatedLogMessageConstant, zap.String(logFieldBranchModeConstant, string(run.options.BranchMode)))
	return nil
}

func (run *publishRun) clearTargetContent(context.Context) error {
	if run.options.ContentStrategy == ContentStrategySync {
		return clearEntriesMissingFromStaged(run.options.TargetPath, run.scratch.path)
	}
	return clearAllExceptMetadata(run.options.TargetPath)
}

func (run *publishRun) copyStagedIntoTarget(context.Context) error {
	return copyTree(run.scratch.path, run.options.TargetPath, true)
}

func (run *publishRun) indexAll(executionContext context.Context) error {
	_, addError := run.executeGit(executionContext, gitAddSubcommandConstant, gitAllFlagConstant, gitCurrentDirectoryConstant)
	return addError
}

func (run *publishRun) commit(executionContext context.Context) error {
	commitArguments := []string{gitCommitSubcommandConstant}

	freshOrphan := run.result.BranchCreated && run.options.BranchMode == BranchModeOrphan
	if run.options.SkipUnchanged && !freshOrphan {
		statusResult, statusError := run.executeGit(executionContext, gitStatusSubcommandConstant, gitPorcelainFlagConstant)
		if statusError != nil {
			return statusError
		}
		if len(strings.TrimSpace(statusResult.StandardOutput)) == 0 {
			run.recordHeadCommit()
			return errStepSkipped{reason: skipReasonNoChangesConstant}
		}
	} else {
		commitArguments = append(commitArguments, gitAllowEmptyFlagConstant)
	}

	commitArguments = append(commitArguments, gitMessageFlagConstant, run.options.CommitMessage)
	if _, commitError := run.executeGit(executionContext, commitArguments...); commitError != nil {
		return commitError
	}

	run.result.Committed = true
	run.recordHeadCommit()
	return nil
}

func (run *publishRun) recordHeadCommit() {
	headCommit, headError := run.service.inspector.HeadCommit(run.options.TargetPath)
	if headError != nil {
		run.logger.Warn(headLookupFailedLogMessageConstant, zap.Error(headError))
		return
	}
	run.result.CommitHash = headCommit
}

func (run *publishRun) push(executionContext context.Context) error {
	if !run.options.Push {
		return errStepSkipped{reason: skipReasonPushDisabledConstant}
	}

	if _, pushError := run.executeGit(executionContext, gitPushSubcommandConstant, run.options.RemoteName, run.options.TargetBranch); pushError != nil {
		return pushError
	}

	run.result.Pushed = true
	run.result.RemoteRepository = run.describeRemote()
	return nil
}

func (run *publishRun) describeRemote() string {
	remoteAddress, remoteError := run.service.inspector.RemoteURL(run.options.TargetPath, run.options.RemoteName)
	if remoteError != nil {
		run.logger.Debug(remoteLookupFailedLogMessageConstant, zap.String(logFieldRemoteConstant, run.options.RemoteName), zap.Error(remoteError))
		return run.options.RemoteName
	}

	parsedRemote, parseError := gitrepo.ParseRemoteURL(remoteAddress)
	if parseError != nil {
		return remoteAddress
	}
	return parsedRemote.Identifier()
}

func (run *publishRun) executeGit(executionContext context.Context, arguments ...string) (execshell.ExecutionResult, error) {
	return run.service.gitExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: run.options.TargetPath,
		EnvironmentVariables: map[string]string{
			gitTerminalPromptEnvironmentConstant: gitTerminalPromptDisabledConstant,
		},
	})
}
