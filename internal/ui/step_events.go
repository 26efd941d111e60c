package ui

import (
	"fmt"

	"go.uber.org/zap"
)

const (
	stepStartedTemplateConstant   = "[%d/%d] %s"
	stepCompletedTemplateConstant = "[%d/%d] %s done"
	stepSkippedTemplateConstant   = "[%d/%d] %s skipped: %s"
	stepFailedTemplateConstant    = "[%d/%d] %s failed: %v"
)

// ConsoleStepLogger renders publish step progress for human-readable output.
type ConsoleStepLogger struct {
	logger *zap.Logger
}

// NewConsoleStepLogger constructs a step logger backed by the provided zap logger.
func NewConsoleStepLogger(logger *zap.Logger) *ConsoleStepLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleStepLogger{logger: logger}
}

// StepStarted logs the beginning of a step.
func (stepLogger *ConsoleStepLogger) StepStarted(stepName string, position int, total int) {
	if stepLogger == nil {
		return
	}
	stepLogger.logger.Info(fmt.Sprintf(stepStartedTemplateConstant, position, total, stepName))
}

// StepCompleted logs a successfully finished step.
func (stepLogger *ConsoleStepLogger) StepCompleted(stepName string, position int, total int) {
	if stepLogger == nil {
		return
	}
	stepLogger.logger.Info(fmt.Sprintf(stepCompletedTemplateConstant, position, total, stepName))
}

// StepSkipped logs a step that had nothing to do.
func (stepLogger *ConsoleStepLogger) StepSkipped(stepName string, position int, total int, reason string) {
	if stepLogger == nil {
		return
	}
	stepLogger.logger.Info(fmt.Sprintf(stepSkippedTemplateConstant, position, total, stepName, reason))
}

// StepFailed logs a step that terminated the run.
func (stepLogger *ConsoleStepLogger) StepFailed(stepName string, position int, total int, failure error) {
	if stepLogger == nil {
		return
	}
	stepLogger.logger.Error(fmt.Sprintf(stepFailedTemplateConstant, position, total, stepName, failure))
}
