package pathutils

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	absolutePathErrorTemplateConstant = "unable to resolve absolute path for %q: %w"
)

// ErrEmptyDirectoryPath indicates that a directory argument was blank.
var ErrEmptyDirectoryPath = errors.New("directory path is empty")

// DirectoryPathResolver turns user supplied directory arguments into clean absolute paths.
type DirectoryPathResolver struct {
	homeExpander *HomeExpander
}

// NewDirectoryPathResolver constructs a resolver that expands the home shortcut before resolving.
func NewDirectoryPathResolver(homeExpander *HomeExpander) *DirectoryPathResolver {
	if homeExpander == nil {
		homeExpander = NewHomeExpander()
	}
	return &DirectoryPathResolver{homeExpander: homeExpander}
}

// Resolve expands a leading tilde, converts the path to an absolute form and cleans it.
func (resolver *DirectoryPathResolver) Resolve(candidatePath string) (string, error) {
	trimmedPath := strings.TrimSpace(candidatePath)
	if len(trimmedPath) == 0 {
		return "", ErrEmptyDirectoryPath
	}

	expandedPath := resolver.homeExpander.Expand(trimmedPath)
	absolutePath, absoluteError := filepath.Abs(expandedPath)
	if absoluteError != nil {
		return "", fmt.Errorf(absolutePathErrorTemplateConstant, candidatePath, absoluteError)
	}

	return filepath.Clean(absolutePath), nil
}
