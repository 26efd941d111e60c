package publish

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/temirov/publish/internal/gitrepo"
)

const (
	copyEntryErrorTemplateConstant       = "copy %s: %w"
	removeEntryErrorTemplateConstant     = "remove %s: %w"
	readDirectoryErrorTemplateConstant   = "read directory %s: %w"
	unsupportedEntryTemplateConstant     = "unsupported file type %s at %s"
	copyRootNotDirectoryTemplateConstant = "copy root %s is not a directory"
	currentDirectoryEntryConstant        = "."
)

type entryKind int

const (
	entryKindOther entryKind = iota
	entryKindDirectory
	entryKindSymlink
	entryKindRegular
)

func classifyEntry(mode fs.FileMode) entryKind {
	switch {
	case mode.IsDir():
		return entryKindDirectory
	case mode&fs.ModeSymlink != 0:
		return entryKindSymlink
	case mode.IsRegular():
		return entryKindRegular
	default:
		return entryKindOther
	}
}

// copyTree recursively copies the contents of sourceRoot into destinationRoot, overwriting existing entries and
// preserving permissions, modification times and symbolic links below the roots. Both roots must be existing
// directories; symbolic links naming either root are followed and the roots themselves are never replaced.
// When skipMetadata is set, a top-level git metadata entry in sourceRoot is not copied.
func copyTree(sourceRoot string, destinationRoot string, skipMetadata bool) error {
	type directoryTimestamp struct {
		path string
		info fs.FileInfo
	}
	directories := make([]directoryTimestamp, 0)

	resolvedSourceRoot, sourceRootError := resolveCopyRoot(sourceRoot)
	if sourceRootError != nil {
		return sourceRootError
	}
	resolvedDestinationRoot, destinationRootError := resolveCopyRoot(destinationRoot)
	if destinationRootError != nil {
		return destinationRootError
	}

	walkError := filepath.WalkDir(resolvedSourceRoot, func(sourcePath string, entry fs.DirEntry, entryError error) error {
		if entryError != nil {
			return entryError
		}

		relativePath, relativeError := filepath.Rel(resolvedSourceRoot, sourcePath)
		if relativeError != nil {
			return relativeError
		}
		if relativePath == currentDirectoryEntryConstant {
			return nil
		}

		if entry.IsDir() && filepath.Clean(sourcePath) == resolvedDestinationRoot {
			return filepath.SkipDir
		}
		if skipMetadata && relativePath == gitrepo.MetadataEntryName {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		destinationPath := filepath.Join(resolvedDestinationRoot, relativePath)
		entryInfo, infoError := entry.Info()
		if infoError != nil {
			return infoError
		}

		switch classifyEntry(entryInfo.Mode()) {
		case entryKindDirectory:
			if ensureError := ensureDirectory(destinationPath, entryInfo.Mode().Perm()); ensureError != nil {
				return fmt.Errorf(copyEntryErrorTemplateConstant, relativePath, ensureError)
			}
			directories = append(directories, directoryTimestamp{path: destinationPath, info: entryInfo})
		case entryKindSymlink:
			if linkError := copySymlink(sourcePath, destinationPath); linkError != nil {
				return fmt.Errorf(copyEntryErrorTemplateConstant, relativePath, linkError)
			}
		case entryKindRegular:
			if fileError := copyRegularFile(sourcePath, destinationPath, entryInfo); fileError != nil {
				return fmt.Errorf(copyEntryErrorTemplateConstant, relativePath, fileError)
			}
		default:
			return fmt.Errorf(unsupportedEntryTemplateConstant, entryInfo.Mode().Type(), sourcePath)
		}
		return nil
	})
	if walkError != nil {
		return walkError
	}

	for index := len(directories) - 1; index >= 0; index-- {
		directory := directories[index]
		if chmodError := os.Chmod(directory.path, directory.info.Mode().Perm()); chmodError != nil {
			return chmodError
		}
		if timesError := os.Chtimes(directory.path, directory.info.ModTime(), directory.info.ModTime()); timesError != nil {
			return timesError
		}
	}

	return nil
}

func resolveCopyRoot(rootPath string) (string, error) {
	resolvedPath, resolveError := filepath.EvalSymlinks(rootPath)
	if resolveError != nil {
		return "", resolveError
	}
	rootInfo, statError := os.Stat(resolvedPath)
	if statError != nil {
		return "", statError
	}
	if !rootInfo.IsDir() {
		return "", fmt.Errorf(copyRootNotDirectoryTemplateConstant, rootPath)
	}
	return filepath.Clean(resolvedPath), nil
}

func ensureDirectory(directoryPath string, permissions fs.FileMode) error {
	existingInfo, statError := os.Lstat(directoryPath)
	switch {
	case statError == nil && existingInfo.IsDir():
		return nil
	case statError == nil:
		if removeError := os.RemoveAll(directoryPath); removeError != nil {
			return removeError
		}
	case !errors.Is(statError, fs.ErrNotExist):
		return statError
	}
	return os.Mkdir(directoryPath, permissions|0o700)
}

func copySymlink(sourcePath string, destinationPath string) error {
	linkTarget, readLinkError := os.Readlink(sourcePath)
	if readLinkError != nil {
		return readLinkError
	}
	if removeError := removeExisting(destinationPath); removeError != nil {
		return removeError
	}
	return os.Symlink(linkTarget, destinationPath)
}

func copyRegularFile(sourcePath string, destinationPath string, sourceInfo fs.FileInfo) error {
	if removeError := removeExisting(destinationPath); removeError != nil {
		return removeError
	}

	sourceFile, openError := os.Open(sourcePath)
	if openError != nil {
		return openError
	}
	defer sourceFile.Close()

	destinationFile, createError := os.OpenFile(destinationPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, sourceInfo.Mode().Perm()|0o200)
	if createError != nil {
		return createError
	}

	if _, copyError := io.Copy(destinationFile, sourceFile); copyError != nil {
		_ = destinationFile.Close()
		return copyError
	}
	if closeError := destinationFile.Close(); closeError != nil {
		return closeError
	}

	if chmodError := os.Chmod(destinationPath, sourceInfo.Mode().Perm()); chmodError != nil {
		return chmodError
	}
	return os.Chtimes(destinationPath, sourceInfo.ModTime(), sourceInfo.ModTime())
}

func removeExisting(entryPath string) error {
	removeError := os.RemoveAll(entryPath)
	if removeError != nil && !errors.Is(removeError, fs.ErrNotExist) {
		return removeError
	}
	return nil
}

// clearAllExceptMetadata removes every top-level entry of targetRoot except the git metadata entry.
func clearAllExceptMetadata(targetRoot string) error {
	entries, readError := os.ReadDir(targetRoot)
	if readError != nil {
		return fmt.Errorf(readDirectoryErrorTemplateConstant, targetRoot, readError)
	}

	for _, entry := range entries {
		if entry.Name() == gitrepo.MetadataEntryName {
			continue
		}
		entryPath := filepath.Join(targetRoot, entry.Name())
		if removeError := os.RemoveAll(entryPath); removeError != nil {
			return fmt.Errorf(removeEntryErrorTemplateConstant, entry.Name(), removeError)
		}
	}

	return nil
}

// clearEntriesMissingFromStaged removes entries of targetRoot that do not exist in stagedRoot or whose kind
// differs there. The top-level git metadata entry is always kept.
func clearEntriesMissingFromStaged(targetRoot string, stagedRoot string) error {
	return pruneDirectory(targetRoot, stagedRoot, true)
}

func pruneDirectory(targetDirectory string, stagedDirectory string, topLevel bool) error {
	entries, readError := os.ReadDir(targetDirectory)
	if readError != nil {
		return fmt.Errorf(readDirectoryErrorTemplateConstant, targetDirectory, readError)
	}

	for _, entry := range entries {
		if topLevel && entry.Name() == gitrepo.MetadataEntryName {
			continue
		}

		targetPath := filepath.Join(targetDirectory, entry.Name())
		stagedPath := filepath.Join(stagedDirectory, entry.Name())

		targetInfo, targetInfoError := entry.Info()
		if targetInfoError != nil {
			return targetInfoError
		}

		stagedInfo, stagedStatError := os.Lstat(stagedPath)
		if stagedStatError != nil && !errors.Is(stagedStatError, fs.ErrNotExist) {
			return stagedStatError
		}

		keep := stagedStatError == nil && classifyEntry(stagedInfo.Mode()) == classifyEntry(targetInfo.Mode())
		if !keep {
			if removeError := os.RemoveAll(targetPath); removeError != nil {
				return fmt.Errorf(removeEntryErrorTemplateConstant, targetPath, removeError)
			}
			continue
		}

		if classifyEntry(targetInfo.Mode()) == entryKindDirectory {
			if pruneError := pruneDirectory(targetPath, stagedPath, false); pruneError != nil {
				return pruneError
			}
		}
	}

	return nil
}
