package publish

import (
	"errors"
	"fmt"
)

const (
	gitExecutorNotConfiguredMessageConstant = "git executor not configured"
	inspectorNotConfiguredMessageConstant   = "repository inspector not configured"
	sourcePathRequiredMessageConstant       = "source directory is required"
	targetPathRequiredMessageConstant       = "target directory is required"
	targetBranchRequiredMessageConstant     = "target branch is required"
	preconditionErrorTemplateConstant       = "%s failed: %s: %s"
	preconditionCauseErrorTemplateConstant  = "%s failed: %s: %s: %v"
	stepErrorTemplateConstant               = "%s failed: %v"
)

var (
	// ErrGitExecutorNotConfigured indicates the service was constructed without a git executor.
	ErrGitExecutorNotConfigured = errors.New(gitExecutorNotConfiguredMessageConstant)
	// ErrInspectorNotConfigured indicates the service was constructed without a repository inspector.
	ErrInspectorNotConfigured = errors.New(inspectorNotConfiguredMessageConstant)
	// ErrSourcePathRequired indicates that no source directory was supplied.
	ErrSourcePathRequired = errors.New(sourcePathRequiredMessageConstant)
	// ErrTargetPathRequired indicates that no target directory was supplied.
	ErrTargetPathRequired = errors.New(targetPathRequiredMessageConstant)
	// ErrTargetBranchRequired indicates that no target branch was supplied.
	ErrTargetBranchRequired = errors.New(targetBranchRequiredMessageConstant)
)

// PreconditionError reports a validation step that rejected its input. Nothing has been modified when it is returned.
type PreconditionError struct {
	Step   StepName
	Path   string
	Reason string
	Cause  error
}

// Error describes the failed precondition.
func (preconditionError PreconditionError) Error() string {
	if preconditionError.Cause != nil {
		return fmt.Sprintf(preconditionCauseErrorTemplateConstant, preconditionError.Step, preconditionError.Reason, preconditionError.Path, preconditionError.Cause)
	}
	return fmt.Sprintf(preconditionErrorTemplateConstant, preconditionError.Step, preconditionError.Reason, preconditionError.Path)
}

// Unwrap exposes the underlying cause.
func (preconditionError PreconditionError) Unwrap() error {
	return preconditionError.Cause
}

// StepError reports a mutating step that failed. The target may hold partial results.
type StepError struct {
	Step  StepName
	Cause error
}

// Error describes the failed step.
func (stepError StepError) Error() string {
	return fmt.Sprintf(stepErrorTemplateConstant, stepError.Step, stepError.Cause)
}

// Unwrap exposes the underlying cause.
func (stepError StepError) Unwrap() error {
	return stepError.Cause
}

// FailedStep extracts the name of the step that produced err, when err originates from a publish run.
func FailedStep(err error) (StepName, bool) {
	var preconditionError PreconditionError
	if errors.As(err, &preconditionError) {
		return preconditionError.Step, true
	}
	var stepError StepError
	if errors.As(err, &stepError) {
		return stepError.Step, true
	}
	return "", false
}
