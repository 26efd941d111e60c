package gitrepo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

const (
	// MetadataEntryName is the working tree entry holding git metadata.
	MetadataEntryName = ".git"

	repositoryPathRequiredMessageConstant = "repository path must be provided"
	remoteNameRequiredMessageConstant     = "remote name must be provided"
	openRepositoryErrorTemplateConstant   = "unable to open repository %s: %w"
	statMetadataErrorTemplateConstant     = "unable to inspect %s: %w"
	resolveHeadErrorTemplateConstant      = "unable to resolve HEAD in %s: %w"
	lookupRemoteErrorTemplateConstant     = "unable to read remote %s in %s: %w"
	remoteWithoutURLTemplateConstant      = "remote %s in %s has no URL"
)

// ErrRepositoryPathRequired indicates an empty repository path.
var ErrRepositoryPathRequired = errors.New(repositoryPathRequiredMessageConstant)

// ErrRemoteNameRequired indicates an empty remote name.
var ErrRemoteNameRequired = errors.New(remoteNameRequiredMessageConstant)

// Inspector reads repository state without invoking the git binary.
type Inspector struct{}

// NewInspector constructs an Inspector.
func NewInspector() *Inspector {
	return &Inspector{}
}

// IsRepository reports whether the directory carries git metadata that can be opened as a repository.
func (inspector *Inspector) IsRepository(repositoryPath string) (bool, error) {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return false, ErrRepositoryPathRequired
	}

	metadataPath := filepath.Join(trimmedPath, MetadataEntryName)
	if _, statError := os.Lstat(metadataPath); statError != nil {
		if errors.Is(statError, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf(statMetadataErrorTemplateConstant, metadataPath, statError)
	}

	if _, openError := inspector.open(trimmedPath); openError != nil {
		if errors.Is(openError, git.ErrRepositoryNotExists) {
			return false, nil
		}
		return false, fmt.Errorf(openRepositoryErrorTemplateConstant, trimmedPath, openError)
	}

	return true, nil
}

// HeadCommit returns the commit hash HEAD points to.
func (inspector *Inspector) HeadCommit(repositoryPath string) (string, error) {
	repository, openError := inspector.open(repositoryPath)
	if openError != nil {
		return "", fmt.Errorf(openRepositoryErrorTemplateConstant, repositoryPath, openError)
	}

	headReference, headError := repository.Head()
	if headError != nil {
		if errors.Is(headError, plumbing.ErrReferenceNotFound) {
			return "", nil
		}
		return "", fmt.Errorf(resolveHeadErrorTemplateConstant, repositoryPath, headError)
	}

	return headReference.Hash().String(), nil
}

// RemoteURL returns the first configured URL of the named remote.
func (inspector *Inspector) RemoteURL(repositoryPath string, remoteName string) (string, error) {
	trimmedRemoteName := strings.TrimSpace(remoteName)
	if len(trimmedRemoteName) == 0 {
		return "", ErrRemoteNameRequired
	}

	repository, openError := inspector.open(repositoryPath)
	if openError != nil {
		return "", fmt.Errorf(openRepositoryErrorTemplateConstant, repositoryPath, openError)
	}

	remote, remoteError := repository.Remote(trimmedRemoteName)
	if remoteError != nil {
		return "", fmt.Errorf(lookupRemoteErrorTemplateConstant, trimmedRemoteName, repositoryPath, remoteError)
	}

	remoteURLs := remote.Config().URLs
	if len(remoteURLs) == 0 {
		return "", fmt.Errorf(remoteWithoutURLTemplateConstant, trimmedRemoteName, repositoryPath)
	}

	return remoteURLs[0], nil
}

func (inspector *Inspector) open(repositoryPath string) (*git.Repository, error) {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return nil, ErrRepositoryPathRequired
	}
	return git.PlainOpenWithOptions(trimmedPath, &git.PlainOpenOptions{
		DetectDotGit:          false,
		EnableDotGitCommonDir: true,
	})
}
