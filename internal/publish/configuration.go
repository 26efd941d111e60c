package publish

import (
	"fmt"
	"strings"
)

const (
	defaultTargetBranchConstant        = "gh-pages"
	defaultRemoteNameConstant          = "origin"
	defaultCommitMessageConstant       = "Promote contents to target branch"
	branchModeBranchStringConstant     = "branch"
	branchModeOrphanStringConstant     = "orphan"
	strategyReplaceStringConstant      = "replace"
	strategySyncStringConstant         = "sync"
	reportFormatNoneStringConstant     = "none"
	reportFormatYAMLStringConstant     = "yaml"
	unsupportedBranchModeTemplate      = "unsupported branch mode %q"
	unsupportedContentStrategyTemplate = "unsupported content strategy %q"
	unsupportedReportFormatTemplate    = "unsupported report format %q"
)

// BranchMode controls how a missing target branch is created.
type BranchMode string

// Supported branch modes.
const (
	BranchModeBranch BranchMode = BranchMode(branchModeBranchStringConstant)
	BranchModeOrphan BranchMode = BranchMode(branchModeOrphanStringConstant)
)

// BranchModeChoices lists the accepted branch mode values.
func BranchModeChoices() []string {
	return []string{branchModeBranchStringConstant, branchModeOrphanStringConstant}
}

// ParseBranchMode converts user input into a BranchMode.
func ParseBranchMode(rawValue string) (BranchMode, error) {
	switch BranchMode(strings.ToLower(strings.TrimSpace(rawValue))) {
	case BranchModeBranch:
		return BranchModeBranch, nil
	case BranchModeOrphan:
		return BranchModeOrphan, nil
	default:
		return "", fmt.Errorf(unsupportedBranchModeTemplate, rawValue)
	}
}

// UnmarshalText decodes configuration values.
func (mode *BranchMode) UnmarshalText(text []byte) error {
	if len(strings.TrimSpace(string(text))) == 0 {
		*mode = ""
		return nil
	}
	parsedMode, parseError := ParseBranchMode(string(text))
	if parseError != nil {
		return parseError
	}
	*mode = parsedMode
	return nil
}

// ContentStrategy controls how existing target content is cleared.
type ContentStrategy string

// Supported content strategies.
const (
	// ContentStrategyReplace deletes every top-level entry except the git metadata.
	ContentStrategyReplace ContentStrategy = ContentStrategy(strategyReplaceStringConstant)
	// ContentStrategySync deletes only entries that are absent from the staged content.
	ContentStrategySync ContentStrategy = ContentStrategy(strategySyncStringConstant)
)

// ContentStrategyChoices lists the accepted content strategy values.
func ContentStrategyChoices() []string {
	return []string{strategyReplaceStringConstant, strategySyncStringConstant}
}

// ParseContentStrategy converts user input into a ContentStrategy.
func ParseContentStrategy(rawValue string) (ContentStrategy, error) {
	switch ContentStrategy(strings.ToLower(strings.TrimSpace(rawValue))) {
	case ContentStrategyReplace:
		return ContentStrategyReplace, nil
	case ContentStrategySync:
		return ContentStrategySync, nil
	default:
		return "", fmt.Errorf(unsupportedContentStrategyTemplate, rawValue)
	}
}

// UnmarshalText decodes configuration values.
func (strategy *ContentStrategy) UnmarshalText(text []byte) error {
	if len(strings.TrimSpace(string(text))) == 0 {
		*strategy = ""
		return nil
	}
	parsedStrategy, parseError := ParseContentStrategy(string(text))
	if parseError != nil {
		return parseError
	}
	*strategy = parsedStrategy
	return nil
}

// ReportFormat selects the summary printed to standard output after a run.
type ReportFormat string

// Supported report formats.
const (
	ReportFormatNone ReportFormat = ReportFormat(reportFormatNoneStringConstant)
	ReportFormatYAML ReportFormat = ReportFormat(reportFormatYAMLStringConstant)
)

// ReportFormatChoices lists the accepted report format values.
func ReportFormatChoices() []string {
	return []string{reportFormatNoneStringConstant, reportFormatYAMLStringConstant}
}

// ParseReportFormat converts user input into a ReportFormat.
func ParseReportFormat(rawValue string) (ReportFormat, error) {
	switch ReportFormat(strings.ToLower(strings.TrimSpace(rawValue))) {
	case ReportFormatNone:
		return ReportFormatNone, nil
	case ReportFormatYAML:
		return ReportFormatYAML, nil
	default:
		return "", fmt.Errorf(unsupportedReportFormatTemplate, rawValue)
	}
}

// UnmarshalText decodes configuration values.
func (format *ReportFormat) UnmarshalText(text []byte) error {
	if len(strings.TrimSpace(string(text))) == 0 {
		*format = ""
		return nil
	}
	parsedFormat, parseError := ParseReportFormat(string(text))
	if parseError != nil {
		return parseError
	}
	*format = parsedFormat
	return nil
}

// CommandConfiguration captures configuration values for the publish command.
type CommandConfiguration struct {
	Branch          string          `mapstructure:"branch"`
	RequireBranch   bool            `mapstructure:"require_branch"`
	RemoteName      string          `mapstructure:"remote"`
	CommitMessage   string          `mapstructure:"message"`
	BranchMode      BranchMode      `mapstructure:"branch_mode"`
	ContentStrategy ContentStrategy `mapstructure:"strategy"`
	SkipUnchanged   bool            `mapstructure:"skip_unchanged"`
	Push            bool            `mapstructure:"push"`
	DryRun          bool            `mapstructure:"dry_run"`
	Report          ReportFormat    `mapstructure:"report"`
}

// DefaultCommandConfiguration provides baseline configuration values for publishing.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Branch:          defaultTargetBranchConstant,
		RequireBranch:   false,
		RemoteName:      defaultRemoteNameConstant,
		CommitMessage:   defaultCommitMessageConstant,
		BranchMode:      BranchModeBranch,
		ContentStrategy: ContentStrategyReplace,
		SkipUnchanged:   true,
		Push:            true,
		DryRun:          false,
		Report:          ReportFormatNone,
	}
}

// Sanitize trims configuration values and fills blank entries with defaults.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration

	sanitized.Branch = fallbackValue(configuration.Branch, defaults.Branch)
	sanitized.RemoteName = fallbackValue(configuration.RemoteName, defaults.RemoteName)
	sanitized.CommitMessage = fallbackValue(configuration.CommitMessage, defaults.CommitMessage)

	if len(sanitized.BranchMode) == 0 {
		sanitized.BranchMode = defaults.BranchMode
	}
	if len(sanitized.ContentStrategy) == 0 {
		sanitized.ContentStrategy = defaults.ContentStrategy
	}
	if len(sanitized.Report) == 0 {
		sanitized.Report = defaults.Report
	}

	return sanitized
}

func fallbackValue(value string, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallback
	}
	return trimmed
}
