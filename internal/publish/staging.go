package publish

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	scratchDirectoryPatternTemplateConstant = "publish-%s-*"
	scratchDirectoryErrorTemplateConstant   = "create scratch directory: %w"
)

// scratchDirectory is a private staging area owned by a single publish run.
type scratchDirectory struct {
	path string
}

// allocateScratchDirectory creates a uniquely named directory under parentDirectory, or under the system
// temporary directory when parentDirectory is blank.
func allocateScratchDirectory(parentDirectory string, runIdentifier string) (scratchDirectory, error) {
	trimmedParent := strings.TrimSpace(parentDirectory)
	if len(trimmedParent) == 0 {
		trimmedParent = os.TempDir()
	}

	scratchPath, creationError := os.MkdirTemp(trimmedParent, fmt.Sprintf(scratchDirectoryPatternTemplateConstant, runIdentifier))
	if creationError != nil {
		return scratchDirectory{}, fmt.Errorf(scratchDirectoryErrorTemplateConstant, creationError)
	}

	return scratchDirectory{path: filepath.Clean(scratchPath)}, nil
}

// Stage copies the full source tree into the scratch directory.
func (scratch scratchDirectory) Stage(sourcePath string) error {
	return copyTree(sourcePath, scratch.path, false)
}

// Release removes the scratch directory and everything below it.
func (scratch scratchDirectory) Release() error {
	if len(scratch.path) == 0 {
		return nil
	}
	return os.RemoveAll(scratch.path)
}
