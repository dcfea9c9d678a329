package report_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/diamondops/stegdb/internal/fingerprint"
	"github.com/diamondops/stegdb/internal/report"
	"github.com/diamondops/stegdb/internal/stamp"
)

func configurationPathFor(fixture fleetFixture) string {
	return filepath.Join(fixture.hubRoot, "repos_config.yaml")
}

func TestEvaluateCommandWritesGovernanceDocuments(testInstance *testing.T) {
	fixture := buildFleet(testInstance,
		[]string{repositoryBlock("alpha", "beta"), repositoryBlock("beta")},
		[]string{"alpha", "beta"},
	)
	require.NoError(testInstance, fingerprint.WriteRecordsFile(fixture.configuration.AggregatedRecordsPath(), []fingerprint.FileRecord{
		{Repo: "alpha", Path: "src/a.py", SHA256: "aa11"},
		{Repo: "beta", Path: "src/b.py", SHA256: "bb22"},
	}))

	builder := report.CommandBuilder{
		HubConfigurationProvider: func() string { return configurationPathFor(fixture) },
		StampReader: &stubStampReader{stamps: map[string]stamp.ValidationStamp{
			"alpha": prodStamp("alpha"),
			"beta":  prodStamp("beta"),
		}},
		Clock: fixedClock{instant: testEvaluationInstant},
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SetArgs(nil)

	require.NoError(testInstance, command.Execute())

	statusBytes, readError := os.ReadFile(fixture.configuration.DependencyStatusPath())
	require.NoError(testInstance, readError)

	var governanceReport report.GovernanceReport
	require.NoError(testInstance, json.Unmarshal(statusBytes, &governanceReport))
	require.Equal(testInstance, "ok", governanceReport.OverallStatus)
	require.Equal(testInstance, 1, governanceReport.Repositories["alpha"].FileCount)

	graphBytes, readError := os.ReadFile(fixture.configuration.DependencyGraphPath())
	require.NoError(testInstance, readError)

	var graphDocument report.GraphDocument
	require.NoError(testInstance, json.Unmarshal(graphBytes, &graphDocument))
	require.Len(testInstance, graphDocument.Nodes, 2)
	require.Equal(testInstance, []report.GraphEdgeDocument{{From: "alpha", To: "beta"}}, graphDocument.Edges)
}

func TestEvaluateCommandDegradesOnMissingAggregatedIndex(testInstance *testing.T) {
	fixture := buildFleet(testInstance, []string{repositoryBlock("alpha")}, []string{"alpha"})

	observedCore, observedLogs := observer.New(zap.WarnLevel)
	builder := report.CommandBuilder{
		LoggerProvider:           func() *zap.Logger { return zap.New(observedCore) },
		HubConfigurationProvider: func() string { return configurationPathFor(fixture) },
		StampReader:              &stubStampReader{stamps: map[string]stamp.ValidationStamp{"alpha": prodStamp("alpha")}},
		Clock:                    fixedClock{instant: testEvaluationInstant},
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SetArgs(nil)

	require.NoError(testInstance, command.Execute())

	warnEntries := observedLogs.FilterMessage("aggregated index missing, repositories will report zero fingerprint records").All()
	require.Len(testInstance, warnEntries, 1)

	statusBytes, readError := os.ReadFile(fixture.configuration.DependencyStatusPath())
	require.NoError(testInstance, readError)

	var governanceReport report.GovernanceReport
	require.NoError(testInstance, json.Unmarshal(statusBytes, &governanceReport))
	require.Equal(testInstance, "degraded", governanceReport.OverallStatus)
	require.Zero(testInstance, governanceReport.Repositories["alpha"].FileCount)
	require.Contains(testInstance, governanceReport.Repositories["alpha"].Problems, "no fingerprint records aggregated")
}

func TestEvaluateCommandFailsWithoutConfiguration(testInstance *testing.T) {
	builder := report.CommandBuilder{
		HubConfigurationProvider: func() string { return filepath.Join(testInstance.TempDir(), "absent.yaml") },
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SetArgs(nil)

	require.Error(testInstance, command.Execute())
}
