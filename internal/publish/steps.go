package publish

// StepName identifies one stage of a publish run. Names appear in logs and in error messages.
type StepName string

// Publish steps in execution order.
const (
	StepValidateTarget       StepName = "ValidateTarget"
	StepValidateTargetIsRepo StepName = "ValidateTargetIsRepo"
	StepValidateSource       StepName = "ValidateSource"
	StepPrepareScratch       StepName = "PrepareScratch"
	StepStageSource          StepName = "StageSource"
	StepSwitchOrCreateBranch StepName = "SwitchOrCreateBranch"
	StepClearTargetContent   StepName = "ClearTargetContent"
	StepCopyStagedIntoTarget StepName = "CopyStagedIntoTarget"
	StepIndexAll             StepName = "IndexAll"
	StepCommit               StepName = "Commit"
	StepPush                 StepName = "Push"
)

var orderedSteps = []StepName{
	StepValidateTarget,
	StepValidateTargetIsRepo,
	StepValidateSource,
	StepPrepareScratch,
	StepStageSource,
	StepSwitchOrCreateBranch,
	StepClearTargetContent,
	StepCopyStagedIntoTarget,
	StepIndexAll,
	StepCommit,
	StepPush,
}

// OrderedSteps returns every publish step in execution order.
func OrderedSteps() []StepName {
	steps := make([]StepName, len(orderedSteps))
	copy(steps, orderedSteps)
	return steps
}

func mutatingSteps() []StepName {
	return OrderedSteps()[3:]
}

// StepObserver receives progress notifications while a publish run advances.
// Positions are one-based within total.
type StepObserver interface {
	StepStarted(stepName string, position int, total int)
	StepCompleted(stepName string, position int, total int)
	StepSkipped(stepName string, position int, total int, reason string)
	StepFailed(stepName string, position int, total int, failure error)
}

type noopStepObserver struct{}

func (noopStepObserver) StepStarted(string, int, int) {}

func (noopStepObserver) StepCompleted(string, int, int) {}

func (noopStepObserver) StepSkipped(string, int, int, string) {}

func (noopStepObserver) StepFailed(string, int, int, error) {}
