package publish_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/publish/internal/execshell"
	"github.com/temirov/publish/internal/gitrepo"
	"github.com/temirov/publish/internal/publish"
)

const (
	integrationBranchConstant        = "gh-pages"
	integrationBaseBranchConstant    = "master"
	integrationRemoteNameConstant    = "origin"
	integrationAuthorNameConstant    = "Publish Tester"
	integrationAuthorEmailConstant   = "publish@example.com"
	integrationCommitMessageConstant = "Publish site"
)

type gitRepositoryFixture struct {
	sourcePath     string
	targetPath     string
	remotePath     string
	baseHeadCommit plumbing.Hash
}

func requireGitBinary(testInstance *testing.T) {
	testInstance.Helper()
	if _, lookupError := exec.LookPath("git"); lookupError != nil {
		testInstance.Skip("git executable not available")
	}
}

func isolateGitEnvironment(testInstance *testing.T) {
	testInstance.Helper()

	globalConfigurationPath := filepath.Join(testInstance.TempDir(), "gitconfig")
	require.NoError(testInstance, os.WriteFile(globalConfigurationPath, nil, 0o644))

	testInstance.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	testInstance.Setenv("GIT_CONFIG_GLOBAL", globalConfigurationPath)
	testInstance.Setenv("GIT_AUTHOR_NAME", integrationAuthorNameConstant)
	testInstance.Setenv("GIT_AUTHOR_EMAIL", integrationAuthorEmailConstant)
	testInstance.Setenv("GIT_COMMITTER_NAME", integrationAuthorNameConstant)
	testInstance.Setenv("GIT_COMMITTER_EMAIL", integrationAuthorEmailConstant)
}

func newGitRepositoryFixture(testInstance *testing.T) gitRepositoryFixture {
	testInstance.Helper()

	fixture := gitRepositoryFixture{
		sourcePath: testInstance.TempDir(),
		targetPath: testInstance.TempDir(),
		remotePath: testInstance.TempDir(),
	}

	writeFixtureFile(testInstance, filepath.Join(fixture.sourcePath, "a.txt"), "alpha")
	writeFixtureFile(testInstance, filepath.Join(fixture.sourcePath, "docs", "index.html"), "<h1>docs</h1>")

	_, remoteInitError := git.PlainInit(fixture.remotePath, true)
	require.NoError(testInstance, remoteInitError)

	targetRepository, targetInitError := git.PlainInit(fixture.targetPath, false)
	require.NoError(testInstance, targetInitError)

	_, remoteCreationError := targetRepository.CreateRemote(&config.RemoteConfig{
		Name: integrationRemoteNameConstant,
		URLs: []string{fixture.remotePath},
	})
	require.NoError(testInstance, remoteCreationError)

	writeFixtureFile(testInstance, filepath.Join(fixture.targetPath, "old.txt"), "stale")
	worktree, worktreeError := targetRepository.Worktree()
	require.NoError(testInstance, worktreeError)
	_, addError := worktree.Add("old.txt")
	require.NoError(testInstance, addError)

	baseHeadCommit, commitError := worktree.Commit("Initial commit", &git.CommitOptions{
		Author: &object.Signature{
			Name:  integrationAuthorNameConstant,
			Email: integrationAuthorEmailConstant,
			When:  time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
		},
	})
	require.NoError(testInstance, commitError)
	fixture.baseHeadCommit = baseHeadCommit

	return fixture
}

func writeFixtureFile(testInstance *testing.T, filePath string, content string) {
	testInstance.Helper()
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(filePath), 0o755))
	require.NoError(testInstance, os.WriteFile(filePath, []byte(content), 0o644))
}

func (fixture gitRepositoryFixture) options(branchMode publish.BranchMode) publish.Options {
	return publish.Options{
		SourcePath:      fixture.sourcePath,
		TargetPath:      fixture.targetPath,
		TargetBranch:    integrationBranchConstant,
		RemoteName:      integrationRemoteNameConstant,
		CommitMessage:   integrationCommitMessageConstant,
		BranchMode:      branchMode,
		ContentStrategy: publish.ContentStrategyReplace,
		SkipUnchanged:   true,
		Push:            true,
	}
}

func (fixture gitRepositoryFixture) remoteBranchCommit(testInstance *testing.T, branchName string) *object.Commit {
	testInstance.Helper()

	remoteRepository, openError := git.PlainOpen(fixture.remotePath)
	require.NoError(testInstance, openError)

	branchReference, referenceError := remoteRepository.Reference(plumbing.NewBranchReferenceName(branchName), true)
	require.NoError(testInstance, referenceError)

	commit, commitError := remoteRepository.CommitObject(branchReference.Hash())
	require.NoError(testInstance, commitError)
	return commit
}

func newIntegrationService(testInstance *testing.T) *publish.Service {
	testInstance.Helper()

	executor, executorError := execshell.NewShellExecutor(zap.NewNop(), execshell.NewOSCommandRunner(), false)
	require.NoError(testInstance, executorError)

	service, serviceError := publish.NewService(publish.ServiceDependencies{
		Logger:                 zap.NewNop(),
		GitExecutor:            executor,
		Inspector:              gitrepo.NewInspector(),
		ScratchParentDirectory: testInstance.TempDir(),
	})
	require.NoError(testInstance, serviceError)
	return service
}

func TestPublishAgainstRealRepository(testInstance *testing.T) {
	requireGitBinary(testInstance)

	testCases := []struct {
		name                string
		branchMode          publish.BranchMode
		expectedParentCount int
	}{
		{name: "branch_mode", branchMode: publish.BranchModeBranch, expectedParentCount: 1},
		{name: "orphan_mode", branchMode: publish.BranchModeOrphan, expectedParentCount: 0},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			isolateGitEnvironment(testInstance)
			fixture := newGitRepositoryFixture(testInstance)
			service := newIntegrationService(testInstance)

			result, publishError := service.Publish(context.Background(), fixture.options(testCase.branchMode))
			require.NoError(testInstance, publishError)
			require.True(testInstance, result.BranchCreated)
			require.True(testInstance, result.Committed)
			require.True(testInstance, result.Pushed)

			publishedCommit := fixture.remoteBranchCommit(testInstance, integrationBranchConstant)
			require.Equal(testInstance, result.CommitHash, publishedCommit.Hash.String())
			require.Equal(testInstance, integrationCommitMessageConstant, publishedCommit.Message[:len(integrationCommitMessageConstant)])
			require.Equal(testInstance, testCase.expectedParentCount, publishedCommit.NumParents())
			if testCase.expectedParentCount == 1 {
				require.Equal(testInstance, fixture.baseHeadCommit, publishedCommit.ParentHashes[0])
			}

			publishedTree, treeError := publishedCommit.Tree()
			require.NoError(testInstance, treeError)

			publishedFile, fileError := publishedTree.File("a.txt")
			require.NoError(testInstance, fileError)
			publishedContent, contentError := publishedFile.Contents()
			require.NoError(testInstance, contentError)
			require.Equal(testInstance, "alpha", publishedContent)

			_, nestedError := publishedTree.File("docs/index.html")
			require.NoError(testInstance, nestedError)

			_, staleError := publishedTree.File("old.txt")
			require.ErrorIs(testInstance, staleError, object.ErrFileNotFound)

			targetRepository, openError := git.PlainOpen(fixture.targetPath)
			require.NoError(testInstance, openError)
			baseReference, baseError := targetRepository.Reference(plumbing.NewBranchReferenceName(integrationBaseBranchConstant), true)
			require.NoError(testInstance, baseError)
			require.Equal(testInstance, fixture.baseHeadCommit, baseReference.Hash())

			baseCommit, baseCommitError := targetRepository.CommitObject(baseReference.Hash())
			require.NoError(testInstance, baseCommitError)
			baseTree, baseTreeError := baseCommit.Tree()
			require.NoError(testInstance, baseTreeError)
			_, baseFileError := baseTree.File("old.txt")
			require.NoError(testInstance, baseFileError)
		})
	}
}

func TestPublishTwiceSkipsUnchangedContent(testInstance *testing.T) {
	requireGitBinary(testInstance)
	isolateGitEnvironment(testInstance)

	fixture := newGitRepositoryFixture(testInstance)
	service := newIntegrationService(testInstance)

	firstResult, firstError := service.Publish(context.Background(), fixture.options(publish.BranchModeBranch))
	require.NoError(testInstance, firstError)
	require.True(testInstance, firstResult.Committed)

	secondResult, secondError := service.Publish(context.Background(), fixture.options(publish.BranchModeBranch))
	require.NoError(testInstance, secondError)
	require.False(testInstance, secondResult.BranchCreated)
	require.False(testInstance, secondResult.Committed)
	require.True(testInstance, secondResult.Pushed)
	require.Equal(testInstance, firstResult.CommitHash, secondResult.CommitHash)

	publishedCommit := fixture.remoteBranchCommit(testInstance, integrationBranchConstant)
	require.Equal(testInstance, firstResult.CommitHash, publishedCommit.Hash.String())
}

func TestPublishReportsFailedStepForMissingRemote(testInstance *testing.T) {
	requireGitBinary(testInstance)
	isolateGitEnvironment(testInstance)

	fixture := newGitRepositoryFixture(testInstance)
	service := newIntegrationService(testInstance)

	options := fixture.options(publish.BranchModeBranch)
	options.RemoteName = "missing"

	result, publishError := service.Publish(context.Background(), options)
	require.Error(testInstance, publishError)
	require.True(testInstance, result.Committed)

	failedStep, failedStepFound := publish.FailedStep(publishError)
	require.True(testInstance, failedStepFound)
	require.Equal(testInstance, publish.StepPush, failedStep)
}

func TestPublishThroughSymlinkedDirectories(testInstance *testing.T) {
	requireGitBinary(testInstance)

	testCases := []struct {
		name       string
		linkSource bool
		linkTarget bool
	}{
		{name: "symlinked_source", linkSource: true},
		{name: "symlinked_target", linkTarget: true},
		{name: "symlinked_source_and_target", linkSource: true, linkTarget: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			isolateGitEnvironment(testInstance)
			fixture := newGitRepositoryFixture(testInstance)
			service := newIntegrationService(testInstance)
			linkParent := testInstance.TempDir()

			options := fixture.options(publish.BranchModeBranch)
			if testCase.linkSource {
				options.SourcePath = filepath.Join(linkParent, "source")
				require.NoError(testInstance, os.Symlink(fixture.sourcePath, options.SourcePath))
			}
			if testCase.linkTarget {
				options.TargetPath = filepath.Join(linkParent, "target")
				require.NoError(testInstance, os.Symlink(fixture.targetPath, options.TargetPath))
			}

			result, publishError := service.Publish(context.Background(), options)
			require.NoError(testInstance, publishError)
			require.True(testInstance, result.Pushed)

			if testCase.linkTarget {
				linkInfo, lstatError := os.Lstat(options.TargetPath)
				require.NoError(testInstance, lstatError)
				require.NotZero(testInstance, linkInfo.Mode()&os.ModeSymlink)
			}

			_, openError := git.PlainOpen(fixture.targetPath)
			require.NoError(testInstance, openError)

			publishedTree, treeError := fixture.remoteBranchCommit(testInstance, integrationBranchConstant).Tree()
			require.NoError(testInstance, treeError)
			_, fileError := publishedTree.File("a.txt")
			require.NoError(testInstance, fileError)
			_, staleError := publishedTree.File("old.txt")
			require.ErrorIs(testInstance, staleError, object.ErrFileNotFound)
		})
	}
}

func TestPublishSymlinkedSourceNamingTargetKeepsRepository(testInstance *testing.T) {
	requireGitBinary(testInstance)
	isolateGitEnvironment(testInstance)

	fixture := newGitRepositoryFixture(testInstance)
	service := newIntegrationService(testInstance)

	options := fixture.options(publish.BranchModeBranch)
	options.SourcePath = filepath.Join(testInstance.TempDir(), "site")
	require.NoError(testInstance, os.Symlink(fixture.targetPath, options.SourcePath))

	_, publishError := service.Publish(context.Background(), options)
	require.NoError(testInstance, publishError)

	targetRepository, openError := git.PlainOpen(fixture.targetPath)
	require.NoError(testInstance, openError)
	baseReference, baseError := targetRepository.Reference(plumbing.NewBranchReferenceName(integrationBaseBranchConstant), true)
	require.NoError(testInstance, baseError)
	require.Equal(testInstance, fixture.baseHeadCommit, baseReference.Hash())

	publishedTree, treeError := fixture.remoteBranchCommit(testInstance, integrationBranchConstant).Tree()
	require.NoError(testInstance, treeError)
	_, fileError := publishedTree.File("old.txt")
	require.NoError(testInstance, fileError)
}

func TestPublishBranchNamedLikeTrackedPath(testInstance *testing.T) {
	requireGitBinary(testInstance)
	isolateGitEnvironment(testInstance)

	fixture := newGitRepositoryFixture(testInstance)
	service := newIntegrationService(testInstance)

	options := fixture.options(publish.BranchModeBranch)
	options.TargetBranch = "old.txt"

	result, publishError := service.Publish(context.Background(), options)
	require.NoError(testInstance, publishError)
	require.True(testInstance, result.BranchCreated)
	require.True(testInstance, result.Committed)
	require.True(testInstance, result.Pushed)

	publishedCommit := fixture.remoteBranchCommit(testInstance, "old.txt")
	require.Equal(testInstance, result.CommitHash, publishedCommit.Hash.String())
	require.Equal(testInstance, fixture.baseHeadCommit, publishedCommit.ParentHashes[0])

	targetRepository, openError := git.PlainOpen(fixture.targetPath)
	require.NoError(testInstance, openError)
	baseReference, baseError := targetRepository.Reference(plumbing.NewBranchReferenceName(integrationBaseBranchConstant), true)
	require.NoError(testInstance, baseError)
	require.Equal(testInstance, fixture.baseHeadCommit, baseReference.Hash())

	secondResult, secondError := service.Publish(context.Background(), options)
	require.NoError(testInstance, secondError)
	require.False(testInstance, secondResult.BranchCreated)
	require.Equal(testInstance, result.CommitHash, secondResult.CommitHash)
}

func TestPublishContentStrategiesProduceIdenticalCommits(testInstance *testing.T) {
	requireGitBinary(testInstance)
	isolateGitEnvironment(testInstance)

	publishedTreeHash := func(strategy publish.ContentStrategy) plumbing.Hash {
		fixture := newGitRepositoryFixture(testInstance)
		writeFixtureFile(testInstance, filepath.Join(fixture.targetPath, "docs", "stale.html"), "stale")
		writeFixtureFile(testInstance, filepath.Join(fixture.targetPath, "a.txt"), "previous alpha")

		options := fixture.options(publish.BranchModeBranch)
		options.ContentStrategy = strategy

		_, publishError := newIntegrationService(testInstance).Publish(context.Background(), options)
		require.NoError(testInstance, publishError)
		return fixture.remoteBranchCommit(testInstance, integrationBranchConstant).TreeHash
	}

	require.Equal(testInstance, publishedTreeHash(publish.ContentStrategyReplace), publishedTreeHash(publish.ContentStrategySync))
}
