package repair_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/diamondops/stegdb/internal/fingerprint"
	"github.com/diamondops/stegdb/internal/hubconfig"
	"github.com/diamondops/stegdb/internal/repair"
)

type repairFixture struct {
	hubRoot           string
	configurationPath string
	configuration     hubconfig.Configuration
}

func buildRepairFixture(testInstance *testing.T, configurationBody string) repairFixture {
	testInstance.Helper()

	hubRoot := testInstance.TempDir()
	configurationPath := filepath.Join(hubRoot, "repos_config.yaml")
	configurationContent := fmt.Sprintf("root: %s\n%s", hubRoot, configurationBody)
	require.NoError(testInstance, os.WriteFile(configurationPath, []byte(configurationContent), 0o644))

	configuration, loadError := hubconfig.LoadConfiguration(configurationPath)
	require.NoError(testInstance, loadError)

	return repairFixture{hubRoot: hubRoot, configurationPath: configurationPath, configuration: configuration}
}

func writeCanonicalFile(testInstance *testing.T, fixture repairFixture, relativePath string, content string) {
	testInstance.Helper()

	absolutePath := filepath.Join(fixture.hubRoot, filepath.FromSlash(relativePath))
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(absolutePath), 0o755))
	require.NoError(testInstance, os.WriteFile(absolutePath, []byte(content), 0o644))
}

func runRepairCommand(testInstance *testing.T, fixture repairFixture, arguments []string) error {
	testInstance.Helper()

	builder := repair.CommandBuilder{
		HubConfigurationProvider: func() string { return fixture.configurationPath },
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SetArgs(arguments)
	return command.Execute()
}

func TestRepairCommandPlansDriftedRepository(testInstance *testing.T) {
	fixture := buildRepairFixture(testInstance, "repos:\n  - name: alpha\n    path: alpha\n    canonical_path: canonical/alpha\n")
	writeCanonicalFile(testInstance, fixture, "canonical/alpha/src/expected.py", "expected content\n")

	require.NoError(testInstance, fingerprint.WriteRecordsFile(fixture.configuration.FingerprintRecordsPath("alpha"), []fingerprint.FileRecord{
		{Repo: "alpha", Path: "src/other.py", SHA256: "ee55"},
	}))

	require.NoError(testInstance, runRepairCommand(testInstance, fixture, nil))

	plan, readError := repair.ReadPlan(fixture.configuration.RepairPlanPath("alpha"))
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "alpha", plan.Repo)
	require.Equal(testInstance, "canonical/alpha", plan.CanonicalRoot)
	require.Len(testInstance, plan.Actions, 1)
	require.Equal(testInstance, repair.ActionTypeWriteFile, plan.Actions[0].Type)
	require.Equal(testInstance, "src/expected.py", plan.Actions[0].TargetPath)
	require.Equal(testInstance, repair.ReasonMissingInRepo, plan.Actions[0].Reason)
}

func TestRepairCommandSkipsRepositoriesWithoutCanonicalFiles(testInstance *testing.T) {
	fixture := buildRepairFixture(testInstance, "repos:\n  - name: alpha\n    path: alpha\n  - name: beta\n    path: beta\n    canonical_path: canonical/beta\n")

	require.NoError(testInstance, runRepairCommand(testInstance, fixture, nil))

	_, statError := os.Stat(fixture.configuration.RepairPlanPath("alpha"))
	require.True(testInstance, os.IsNotExist(statError))

	// beta declares a canonical path but the directory does not exist yet.
	_, statError = os.Stat(fixture.configuration.RepairPlanPath("beta"))
	require.True(testInstance, os.IsNotExist(statError))
}

func TestRepairCommandRejectsUnknownRepository(testInstance *testing.T) {
	fixture := buildRepairFixture(testInstance, "repos:\n  - name: alpha\n    path: alpha\n")

	executionError := runRepairCommand(testInstance, fixture, []string{"--repo", "ghost"})

	require.Error(testInstance, executionError)
	require.Contains(testInstance, executionError.Error(), "ghost")
}
