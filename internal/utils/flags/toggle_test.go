package flags

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestAddToggleFlagParsesValues(t *testing.T) {
	testCases := []struct {
		name            string
		arguments       []string
		expectedValue   bool
		expectedChanged bool
	}{
		{name: "DefaultFalse", arguments: []string{}, expectedValue: false, expectedChanged: false},
		{name: "ImplicitTrue", arguments: []string{"--toggle"}, expectedValue: true, expectedChanged: true},
		{name: "ExplicitYes", arguments: []string{"--toggle", "yes"}, expectedValue: true, expectedChanged: true},
		{name: "ExplicitTrueUppercase", arguments: []string{"--toggle", "TRUE"}, expectedValue: true, expectedChanged: true},
		{name: "ExplicitNo", arguments: []string{"--toggle", "no"}, expectedValue: false, expectedChanged: true},
		{name: "ExplicitFalseUppercase", arguments: []string{"--toggle", "FALSE"}, expectedValue: false, expectedChanged: true},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			command := &cobra.Command{}

			var toggleValue bool
			AddToggleFlag(command.Flags(), &toggleValue, "toggle", "", false, "Toggle flag")

			normalizedArguments := NormalizeToggleArguments(testCase.arguments)
			parseError := command.ParseFlags(normalizedArguments)
			require.NoError(t, parseError)

			require.Equal(t, testCase.expectedValue, toggleValue)

			flag := command.Flags().Lookup("toggle")
			require.NotNil(t, flag)
			require.Equal(t, testCase.expectedChanged, flag.Changed)
		})
	}
}

func TestAddToggleFlagRejectsInvalidValues(t *testing.T) {
	command := &cobra.Command{}

	var toggleValue bool
	AddToggleFlag(command.Flags(), &toggleValue, "toggle", "", false, "Toggle flag")

	normalizedArguments := NormalizeToggleArguments([]string{"--toggle=maybe"})
	parseError := command.ParseFlags(normalizedArguments)
	require.Error(t, parseError)

	require.Equal(t, false, toggleValue)

	flag := command.Flags().Lookup("toggle")
	require.NotNil(t, flag)
	require.False(t, flag.Changed)
}

func TestNormalizeToggleArgumentsHandlesShorthand(t *testing.T) {
	command := &cobra.Command{}

	var toggleValue bool
	AddToggleFlag(command.Flags(), &toggleValue, "toggle", "t", false, "Toggle flag")

	normalizedArguments := NormalizeToggleArguments([]string{"-t", "no"})
	parseError := command.ParseFlags(normalizedArguments)
	require.NoError(t, parseError)

	require.False(t, toggleValue)

	flag := command.Flags().Lookup("toggle")
	require.NotNil(t, flag)
	require.True(t, flag.Changed)
}

func TestNormalizeToggleArgumentsLeavesPositionalArgumentsInPlace(t *testing.T) {
	command := &cobra.Command{}

	var toggleValue bool
	AddToggleFlag(command.Flags(), &toggleValue, "push", "", false, "Push flag")

	normalizedArguments := NormalizeToggleArguments([]string{"--push", "site", "checkout", "gh-pages"})
	require.Equal(t, []string{"--push", "site", "checkout", "gh-pages"}, normalizedArguments)

	parseError := command.ParseFlags(normalizedArguments)
	require.NoError(t, parseError)
	require.True(t, toggleValue)
	require.Equal(t, []string{"site", "checkout", "gh-pages"}, command.Flags().Args())
}

func TestNormalizeToggleArgumentsStopsAtTerminator(t *testing.T) {
	normalizedArguments := NormalizeToggleArguments([]string{"--", "--push", "no"})
	require.Equal(t, []string{"--", "--push", "no"}, normalizedArguments)
}

func TestNormalizeToggleArgumentsJoinsLiteralAfterBareToggle(t *testing.T) {
	command := &cobra.Command{}

	var toggleValue bool
	AddToggleFlag(command.Flags(), &toggleValue, "push", "", true, "Push flag")

	normalizedArguments := NormalizeToggleArguments([]string{"--push", "no", "site"})
	require.Equal(t, []string{"--push=no", "site"}, normalizedArguments)

	require.NoError(t, command.ParseFlags(normalizedArguments))
	require.False(t, toggleValue)
	require.Equal(t, []string{"site"}, command.Flags().Args())
}

func TestNormalizeToggleArgumentsKeepsLiteralPositionalWhenSeparated(t *testing.T) {
	testCases := []struct {
		name               string
		arguments          []string
		expectedToggle     bool
		expectedPositional []string
	}{
		{name: "ExplicitValue", arguments: []string{"--push=yes", "no", "site"}, expectedToggle: true, expectedPositional: []string{"no", "site"}},
		{name: "Terminator", arguments: []string{"--push", "--", "no", "site"}, expectedToggle: true, expectedPositional: []string{"no", "site"}},
		{name: "PositionalFirst", arguments: []string{"no", "site", "--push"}, expectedToggle: true, expectedPositional: []string{"no", "site"}},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			command := &cobra.Command{}

			var toggleValue bool
			AddToggleFlag(command.Flags(), &toggleValue, "push", "", false, "Push flag")

			require.NoError(t, command.ParseFlags(NormalizeToggleArguments(testCase.arguments)))
			require.Equal(t, testCase.expectedToggle, toggleValue)
			require.Equal(t, testCase.expectedPositional, command.Flags().Args())
		})
	}
}

func TestNormalizeToggleArgumentsIgnoresPlainBooleanFlags(t *testing.T) {
	command := &cobra.Command{}

	var dryRun bool
	command.Flags().BoolVar(&dryRun, "dry-run", false, "Dry run")

	normalizedArguments := NormalizeToggleArguments([]string{"--dry-run", "no", "site"})
	require.Equal(t, []string{"--dry-run", "no", "site"}, normalizedArguments)

	require.NoError(t, command.ParseFlags(normalizedArguments))
	require.True(t, dryRun)
	require.Equal(t, []string{"no", "site"}, command.Flags().Args())
}
