package pathutils_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/temirov/publish/internal/utils/path"
)

const (
	testHomeDirectoryConstant = "/home/publisher"
)

func TestHomeExpanderExpand(testInstance *testing.T) {
	testCases := []struct {
		name         string
		candidate    string
		expectedPath string
	}{
		{name: "empty", candidate: "", expectedPath: ""},
		{name: "tilde_only", candidate: "~", expectedPath: testHomeDirectoryConstant},
		{name: "tilde_prefix", candidate: "~/site/build", expectedPath: filepath.Join(testHomeDirectoryConstant, "site", "build")},
		{name: "absolute", candidate: "/srv/site", expectedPath: "/srv/site"},
		{name: "other_user", candidate: "~someone/site", expectedPath: "~someone/site"},
	}

	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return testHomeDirectoryConstant, nil
	})

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedPath, expander.Expand(testCase.candidate))
		})
	}
}

func TestHomeExpanderKeepsPathWhenHomeUnavailable(testInstance *testing.T) {
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return "", errors.New("no home")
	})
	require.Equal(testInstance, "~/site", expander.Expand("~/site"))
}

func TestDirectoryPathResolverResolve(testInstance *testing.T) {
	workingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)

	resolver := pathutils.NewDirectoryPathResolver(pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return testHomeDirectoryConstant, nil
	}))

	homeRelativePath, homeRelativeError := resolver.Resolve("~/site/../public")
	require.NoError(testInstance, homeRelativeError)
	require.Equal(testInstance, filepath.Join(testHomeDirectoryConstant, "public"), homeRelativePath)

	relativePath, relativeError := resolver.Resolve(" build ")
	require.NoError(testInstance, relativeError)
	require.Equal(testInstance, filepath.Join(workingDirectory, "build"), relativePath)

	_, emptyError := resolver.Resolve("  ")
	require.ErrorIs(testInstance, emptyError, pathutils.ErrEmptyDirectoryPath)
}
