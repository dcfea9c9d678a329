package hubconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/diamondops/stegdb/internal/hubconfig"
)

const (
	testConfigurationFileNameConstant = "repos_config.yaml"
	testMissingPathConstant           = "/nonexistent/repos_config.yaml"
)

func writeConfigurationFile(testInstance *testing.T, content string) string {
	testInstance.Helper()

	configurationPath := filepath.Join(testInstance.TempDir(), testConfigurationFileNameConstant)
	require.NoError(testInstance, os.WriteFile(configurationPath, []byte(content), 0o644))
	return configurationPath
}

func TestLoadConfigurationMissingFile(testInstance *testing.T) {
	_, loadError := hubconfig.LoadConfiguration(testMissingPathConstant)

	require.Error(testInstance, loadError)
	require.ErrorIs(testInstance, loadError, hubconfig.ErrConfigurationMissing)
}

func TestLoadConfigurationEmptyPath(testInstance *testing.T) {
	_, loadError := hubconfig.LoadConfiguration("   ")

	require.Error(testInstance, loadError)
	require.NotErrorIs(testInstance, loadError, hubconfig.ErrConfigurationMissing)
}

func TestLoadConfigurationAppliesDefaults(testInstance *testing.T) {
	configurationPath := writeConfigurationFile(testInstance, "repos:\n  - name: alpha\n    path: alpha\n")

	configuration, loadError := hubconfig.LoadConfiguration(configurationPath)

	require.NoError(testInstance, loadError)
	require.Equal(testInstance, ".", configuration.Root)
	require.Equal(testInstance, []string{"src", "tools"}, configuration.IncludeSubtrees)
}

func TestLoadConfigurationAcceptsJSON(testInstance *testing.T) {
	configurationPath := writeConfigurationFile(testInstance, `{"root": "/hub", "repos": [{"name": "alpha", "path": "alpha", "depends_on": ["beta"]}, {"name": "beta", "path": "beta"}]}`)

	configuration, loadError := hubconfig.LoadConfiguration(configurationPath)

	require.NoError(testInstance, loadError)
	require.Equal(testInstance, "/hub", configuration.Root)
	require.Equal(testInstance, []string{"alpha", "beta"}, configuration.RepositoryNames())

	alpha, found := configuration.Repository("alpha")
	require.True(testInstance, found)
	require.Equal(testInstance, []string{"beta"}, alpha.DependsOn)
}

func TestLoadConfigurationValidation(testInstance *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{
			name:    "no_repositories",
			content: "root: /hub\n",
		},
		{
			name:    "repository_without_name",
			content: "repos:\n  - path: alpha\n",
		},
		{
			name:    "repository_without_path",
			content: "repos:\n  - name: alpha\n",
		},
		{
			name:    "duplicate_repository_name",
			content: "repos:\n  - name: alpha\n    path: alpha\n  - name: alpha\n    path: other\n",
		},
		{
			name:    "empty_dependency_name",
			content: "repos:\n  - name: alpha\n    path: alpha\n    depends_on:\n      - \"  \"\n",
		},
		{
			name:    "self_dependency",
			content: "repos:\n  - name: alpha\n    path: alpha\n    depends_on:\n      - alpha\n",
		},
		{
			name:    "unparseable_document",
			content: "repos: [unterminated\n",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			configurationPath := writeConfigurationFile(testInstance, testCase.content)

			_, loadError := hubconfig.LoadConfiguration(configurationPath)

			require.Error(testInstance, loadError)
		})
	}
}

func TestConfigurationPathHelpers(testInstance *testing.T) {
	configurationPath := writeConfigurationFile(testInstance, "root: /hub\nrepos:\n  - name: alpha\n    path: clones/alpha\n    canonical_path: canonical/alpha\n  - name: beta\n    path: /elsewhere/beta\n")

	configuration, loadError := hubconfig.LoadConfiguration(configurationPath)
	require.NoError(testInstance, loadError)

	alpha, _ := configuration.Repository("alpha")
	beta, _ := configuration.Repository("beta")

	require.Equal(testInstance, filepath.Join("/hub", "clones", "alpha"), configuration.RepositoryRoot(alpha))
	require.Equal(testInstance, "/elsewhere/beta", configuration.RepositoryRoot(beta))
	require.Equal(testInstance, filepath.Join("/hub", "canonical", "alpha"), configuration.CanonicalRoot(alpha))
	require.Empty(testInstance, configuration.CanonicalRoot(beta))
	require.Equal(testInstance, filepath.Join("/hub", "repos", "alpha", "files.jsonl"), configuration.FingerprintRecordsPath("alpha"))
	require.Equal(testInstance, filepath.Join("/hub", "meta", "aggregated_files.jsonl"), configuration.AggregatedRecordsPath())
	require.Equal(testInstance, filepath.Join("/hub", "meta", "dependency_graph.json"), configuration.DependencyGraphPath())
	require.Equal(testInstance, filepath.Join("/hub", "meta", "dependency_status.json"), configuration.DependencyStatusPath())
	require.Equal(testInstance, filepath.Join("/hub", "repairs", "alpha", "repair_plan.json"), configuration.RepairPlanPath("alpha"))
}

func TestLoadConfigurationTrimsDeclaredValues(testInstance *testing.T) {
	configurationPath := writeConfigurationFile(testInstance, "repos:\n  - name: \" alpha \"\n    path: \" alpha \"\n    depends_on:\n      - \" beta \"\n  - name: beta\n    path: beta\n")

	configuration, loadError := hubconfig.LoadConfiguration(configurationPath)
	require.NoError(testInstance, loadError)

	alpha, found := configuration.Repository("alpha")
	require.True(testInstance, found)
	require.Equal(testInstance, "alpha", alpha.Path)
	require.Equal(testInstance, []string{"beta"}, alpha.DependsOn)
}
