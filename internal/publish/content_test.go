package publish

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func snapshotTree(testInstance *testing.T, rootPath string) map[string]string {
	testInstance.Helper()

	snapshot := map[string]string{}
	walkError := filepath.WalkDir(rootPath, func(entryPath string, entry fs.DirEntry, entryError error) error {
		if entryError != nil {
			return entryError
		}
		relativePath, relativeError := filepath.Rel(rootPath, entryPath)
		if relativeError != nil {
			return relativeError
		}
		if relativePath == "." {
			return nil
		}
		entryInfo, infoError := entry.Info()
		if infoError != nil {
			return infoError
		}
		switch classifyEntry(entryInfo.Mode()) {
		case entryKindDirectory:
			snapshot[relativePath] = "dir"
		case entryKindSymlink:
			linkTarget, linkError := os.Readlink(entryPath)
			if linkError != nil {
				return linkError
			}
			snapshot[relativePath] = "link:" + linkTarget
		default:
			content, readError := os.ReadFile(entryPath)
			if readError != nil {
				return readError
			}
			snapshot[relativePath] = "file:" + string(content)
		}
		return nil
	})
	require.NoError(testInstance, walkError)
	return snapshot
}

func TestCopyTreePreservesAttributes(testInstance *testing.T) {
	sourceRoot := testInstance.TempDir()
	destinationRoot := testInstance.TempDir()

	scriptPath := filepath.Join(sourceRoot, "bin", "deploy.sh")
	writeTestFile(testInstance, scriptPath, "#!/bin/sh\n")
	require.NoError(testInstance, os.Chmod(scriptPath, 0o755))

	modificationTime := time.Date(2020, time.January, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(testInstance, os.Chtimes(scriptPath, modificationTime, modificationTime))
	require.NoError(testInstance, os.Symlink("bin/deploy.sh", filepath.Join(sourceRoot, "deploy")))

	require.NoError(testInstance, copyTree(sourceRoot, destinationRoot, false))

	copiedInfo, statError := os.Stat(filepath.Join(destinationRoot, "bin", "deploy.sh"))
	require.NoError(testInstance, statError)
	require.Equal(testInstance, fs.FileMode(0o755), copiedInfo.Mode().Perm())
	require.True(testInstance, copiedInfo.ModTime().Equal(modificationTime))

	linkTarget, linkError := os.Readlink(filepath.Join(destinationRoot, "deploy"))
	require.NoError(testInstance, linkError)
	require.Equal(testInstance, "bin/deploy.sh", linkTarget)
}

func TestCopyTreeOverwritesAndSkipsMetadata(testInstance *testing.T) {
	sourceRoot := testInstance.TempDir()
	destinationRoot := testInstance.TempDir()

	writeTestFile(testInstance, filepath.Join(sourceRoot, ".git", "config"), "source metadata")
	writeTestFile(testInstance, filepath.Join(sourceRoot, "page"), "new page")
	writeTestFile(testInstance, filepath.Join(sourceRoot, "assets", "nested", ".git"), "nested entry")

	writeTestFile(testInstance, filepath.Join(destinationRoot, ".git", "config"), "target metadata")
	writeTestFile(testInstance, filepath.Join(destinationRoot, "page", "index.html"), "directory replaced by file")

	require.NoError(testInstance, copyTree(sourceRoot, destinationRoot, true))

	require.Equal(testInstance, map[string]string{
		".git":               "dir",
		".git/config":        "file:target metadata",
		"page":               "file:new page",
		"assets":             "dir",
		"assets/nested":      "dir",
		"assets/nested/.git": "file:nested entry",
	}, snapshotTree(testInstance, destinationRoot))
}

func TestCopyTreeFollowsSymlinkedRoots(testInstance *testing.T) {
	realSource := testInstance.TempDir()
	realDestination := testInstance.TempDir()
	linkParent := testInstance.TempDir()

	writeTestFile(testInstance, filepath.Join(realSource, "index.html"), "home")
	writeTestFile(testInstance, filepath.Join(realDestination, ".git", "HEAD"), "ref: refs/heads/main\n")

	sourceLink := filepath.Join(linkParent, "source")
	destinationLink := filepath.Join(linkParent, "destination")
	require.NoError(testInstance, os.Symlink(realSource, sourceLink))
	require.NoError(testInstance, os.Symlink(realDestination, destinationLink))

	require.NoError(testInstance, copyTree(sourceLink, destinationLink, true))

	destinationInfo, lstatError := os.Lstat(destinationLink)
	require.NoError(testInstance, lstatError)
	require.NotZero(testInstance, destinationInfo.Mode()&os.ModeSymlink)

	require.Equal(testInstance, map[string]string{
		".git":       "dir",
		".git/HEAD":  "file:ref: refs/heads/main\n",
		"index.html": "file:home",
	}, snapshotTree(testInstance, realDestination))
}

func TestCopyTreeRejectsNonDirectoryRoot(testInstance *testing.T) {
	sourceFile := filepath.Join(testInstance.TempDir(), "single.txt")
	writeTestFile(testInstance, sourceFile, "content")
	destinationRoot := testInstance.TempDir()

	require.ErrorContains(testInstance, copyTree(sourceFile, destinationRoot, true), "is not a directory")

	entries, readError := os.ReadDir(destinationRoot)
	require.NoError(testInstance, readError)
	require.Empty(testInstance, entries)
}

func TestClearAllExceptMetadata(testInstance *testing.T) {
	targetRoot := testInstance.TempDir()
	writeTestFile(testInstance, filepath.Join(targetRoot, ".git", "HEAD"), "ref")
	writeTestFile(testInstance, filepath.Join(targetRoot, "index.html"), "old")
	writeTestFile(testInstance, filepath.Join(targetRoot, "docs", "guide.md"), "old")
	writeTestFile(testInstance, filepath.Join(targetRoot, ".nojekyll"), "")

	require.NoError(testInstance, clearAllExceptMetadata(targetRoot))

	entries, readError := os.ReadDir(targetRoot)
	require.NoError(testInstance, readError)
	require.Len(testInstance, entries, 1)
	require.Equal(testInstance, ".git", entries[0].Name())
	require.FileExists(testInstance, filepath.Join(targetRoot, ".git", "HEAD"))
}

func TestClearEntriesMissingFromStaged(testInstance *testing.T) {
	stagedRoot := testInstance.TempDir()
	targetRoot := testInstance.TempDir()

	writeTestFile(testInstance, filepath.Join(stagedRoot, "index.html"), "new")
	writeTestFile(testInstance, filepath.Join(stagedRoot, "docs", "guide.md"), "new")
	writeTestFile(testInstance, filepath.Join(stagedRoot, "assets"), "now a file")

	writeTestFile(testInstance, filepath.Join(targetRoot, ".git", "HEAD"), "ref")
	writeTestFile(testInstance, filepath.Join(targetRoot, "index.html"), "old")
	writeTestFile(testInstance, filepath.Join(targetRoot, "docs", "guide.md"), "old")
	writeTestFile(testInstance, filepath.Join(targetRoot, "docs", "removed.md"), "old")
	writeTestFile(testInstance, filepath.Join(targetRoot, "assets", "logo.png"), "old")
	writeTestFile(testInstance, filepath.Join(targetRoot, "stale.txt"), "old")

	require.NoError(testInstance, clearEntriesMissingFromStaged(targetRoot, stagedRoot))

	remaining := snapshotTree(testInstance, targetRoot)
	remainingPaths := make([]string, 0, len(remaining))
	for remainingPath := range remaining {
		remainingPaths = append(remainingPaths, remainingPath)
	}
	sort.Strings(remainingPaths)

	require.Equal(testInstance, []string{".git", ".git/HEAD", "docs", "docs/guide.md", "index.html"}, remainingPaths)
}

func TestContentStrategiesProduceIdenticalTrees(testInstance *testing.T) {
	stagedRoot := testInstance.TempDir()
	writeTestFile(testInstance, filepath.Join(stagedRoot, "index.html"), "new index")
	writeTestFile(testInstance, filepath.Join(stagedRoot, "docs", "guide.md"), "new guide")
	writeTestFile(testInstance, filepath.Join(stagedRoot, "feed"), "feed is a file now")
	require.NoError(testInstance, os.Symlink("index.html", filepath.Join(stagedRoot, "home.html")))

	prepareTarget := func() string {
		targetRoot := testInstance.TempDir()
		writeTestFile(testInstance, filepath.Join(targetRoot, ".git", "HEAD"), "ref")
		writeTestFile(testInstance, filepath.Join(targetRoot, "index.html"), "old index")
		writeTestFile(testInstance, filepath.Join(targetRoot, "docs", "old.md"), "old")
		writeTestFile(testInstance, filepath.Join(targetRoot, "feed", "atom.xml"), "old feed")
		writeTestFile(testInstance, filepath.Join(targetRoot, "home.html"), "plain file before")
		return targetRoot
	}

	replaceTarget := prepareTarget()
	require.NoError(testInstance, clearAllExceptMetadata(replaceTarget))
	require.NoError(testInstance, copyTree(stagedRoot, replaceTarget, true))

	syncTarget := prepareTarget()
	require.NoError(testInstance, clearEntriesMissingFromStaged(syncTarget, stagedRoot))
	require.NoError(testInstance, copyTree(stagedRoot, syncTarget, true))

	require.Equal(testInstance, snapshotTree(testInstance, replaceTarget), snapshotTree(testInstance, syncTarget))
}

func TestAllocateScratchDirectory(testInstance *testing.T) {
	parentDirectory := testInstance.TempDir()

	firstScratch, firstError := allocateScratchDirectory(parentDirectory, "run")
	require.NoError(testInstance, firstError)
	secondScratch, secondError := allocateScratchDirectory(parentDirectory, "run")
	require.NoError(testInstance, secondError)

	require.NotEqual(testInstance, firstScratch.path, secondScratch.path)
	require.Equal(testInstance, parentDirectory, filepath.Dir(firstScratch.path))

	sourceRoot := testInstance.TempDir()
	writeTestFile(testInstance, filepath.Join(sourceRoot, "a.txt"), "alpha")
	require.NoError(testInstance, firstScratch.Stage(sourceRoot))
	require.FileExists(testInstance, filepath.Join(firstScratch.path, "a.txt"))

	require.NoError(testInstance, firstScratch.Release())
	require.NoError(testInstance, secondScratch.Release())
	require.NoDirExists(testInstance, firstScratch.path)
	require.NoError(testInstance, scratchDirectory{}.Release())
}
