package report_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/diamondops/stegdb/internal/hubconfig"
	"github.com/diamondops/stegdb/internal/report"
	"github.com/diamondops/stegdb/internal/stamp"
)

var testEvaluationInstant = time.Date(2026, time.March, 14, 9, 30, 15, 0, time.UTC)

type fixedClock struct {
	instant time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.instant
}

// stubStampReader resolves stamps by the repository directory name.
type stubStampReader struct {
	stamps map[string]stamp.ValidationStamp
	errors map[string]error
}

func (reader *stubStampReader) Read(repositoryRoot string) (stamp.ValidationStamp, error) {
	repositoryName := filepath.Base(repositoryRoot)
	if readError, present := reader.errors[repositoryName]; present {
		return stamp.ValidationStamp{}, readError
	}
	if persistedStamp, present := reader.stamps[repositoryName]; present {
		return persistedStamp, nil
	}
	return stamp.ValidationStamp{}, stamp.ErrStampMissing
}

type fleetFixture struct {
	configuration hubconfig.Configuration
	hubRoot       string
}

// buildFleet loads a hub configuration rooted at a temp directory and creates
// a clone directory for every listed repository.
func buildFleet(testInstance *testing.T, repositoryBlocks []string, clones []string) fleetFixture {
	testInstance.Helper()

	hubRoot := testInstance.TempDir()
	configurationContent := fmt.Sprintf("root: %s\nrepos:\n%s", hubRoot, strings.Join(repositoryBlocks, ""))
	configurationPath := filepath.Join(hubRoot, "repos_config.yaml")
	require.NoError(testInstance, os.WriteFile(configurationPath, []byte(configurationContent), 0o644))

	configuration, loadError := hubconfig.LoadConfiguration(configurationPath)
	require.NoError(testInstance, loadError)

	for _, cloneName := range clones {
		require.NoError(testInstance, os.MkdirAll(filepath.Join(hubRoot, cloneName), 0o755))
	}

	return fleetFixture{configuration: configuration, hubRoot: hubRoot}
}

func repositoryBlock(repositoryName string, dependencies ...string) string {
	block := fmt.Sprintf("  - name: %s\n    path: %s\n", repositoryName, repositoryName)
	if len(dependencies) > 0 {
		block += "    depends_on:\n"
		for _, dependencyName := range dependencies {
			block += fmt.Sprintf("      - %s\n", dependencyName)
		}
	}
	return block
}

func prodStamp(repositoryName string) stamp.ValidationStamp {
	return stamp.ValidationStamp{
		Repo:        repositoryName,
		Commit:      "abc123",
		HighestMode: stamp.ModeProd,
		MetaSHA256:  "digest",
		ValidatedAt: "2026-03-14T09:00:00Z",
	}
}

func TestEvaluateHealthyFleet(testInstance *testing.T) {
	fixture := buildFleet(testInstance,
		[]string{repositoryBlock("alpha", "beta"), repositoryBlock("beta")},
		[]string{"alpha", "beta"},
	)
	reader := &stubStampReader{stamps: map[string]stamp.ValidationStamp{
		"alpha": prodStamp("alpha"),
		"beta":  prodStamp("beta"),
	}}

	service := report.NewService(reader, nil, fixedClock{instant: testEvaluationInstant})
	governanceReport := service.Evaluate(fixture.configuration, map[string]int{"alpha": 3, "beta": 2})

	require.Equal(testInstance, "ok", governanceReport.OverallStatus)
	require.Equal(testInstance, "2026-03-14T09:30:15Z", governanceReport.GeneratedAt)
	require.Empty(testInstance, governanceReport.Cycles)
	require.Empty(testInstance, governanceReport.MissingRepositories)
	require.Equal(testInstance, []string{"alpha"}, governanceReport.UnusedRepositories)

	alphaStatus := governanceReport.Repositories["alpha"]
	require.Equal(testInstance, "prod", string(alphaStatus.SelfStatus))
	require.Equal(testInstance, "prod", alphaStatus.HighestMode)
	require.True(testInstance, alphaStatus.HasStamp)
	require.Equal(testInstance, 3, alphaStatus.FileCount)
	require.Equal(testInstance, []string{"beta"}, alphaStatus.Dependencies)
	require.True(testInstance, alphaStatus.DependenciesReady)
	require.Empty(testInstance, alphaStatus.Problems)
}

func TestEvaluateMissingCloneDegrades(testInstance *testing.T) {
	fixture := buildFleet(testInstance,
		[]string{repositoryBlock("alpha", "beta"), repositoryBlock("beta")},
		[]string{"alpha"},
	)
	reader := &stubStampReader{stamps: map[string]stamp.ValidationStamp{"alpha": prodStamp("alpha")}}

	service := report.NewService(reader, nil, fixedClock{instant: testEvaluationInstant})
	governanceReport := service.Evaluate(fixture.configuration, map[string]int{"alpha": 3, "beta": 1})

	require.Equal(testInstance, "degraded", governanceReport.OverallStatus)

	betaStatus := governanceReport.Repositories["beta"]
	require.Equal(testInstance, "no_clone", string(betaStatus.SelfStatus))
	require.False(testInstance, betaStatus.HasStamp)
	require.Len(testInstance, betaStatus.Problems, 1)
	require.Contains(testInstance, betaStatus.Problems[0], "clone missing")

	require.False(testInstance, governanceReport.Repositories["alpha"].DependenciesReady)
}

func TestEvaluateMissingStamp(testInstance *testing.T) {
	fixture := buildFleet(testInstance, []string{repositoryBlock("alpha")}, []string{"alpha"})
	reader := &stubStampReader{}

	service := report.NewService(reader, nil, fixedClock{instant: testEvaluationInstant})
	governanceReport := service.Evaluate(fixture.configuration, map[string]int{"alpha": 3})

	alphaStatus := governanceReport.Repositories["alpha"]
	require.Equal(testInstance, "no_stamp", string(alphaStatus.SelfStatus))
	require.False(testInstance, alphaStatus.HasStamp)
	require.Equal(testInstance, []string{"no validation stamp recorded"}, alphaStatus.Problems)
	require.Equal(testInstance, "degraded", governanceReport.OverallStatus)
}

func TestEvaluateUnknownStampMode(testInstance *testing.T) {
	fixture := buildFleet(testInstance, []string{repositoryBlock("alpha")}, []string{"alpha"})
	unknownStamp := prodStamp("alpha")
	unknownStamp.HighestMode = stamp.ValidationMode("canary")
	reader := &stubStampReader{stamps: map[string]stamp.ValidationStamp{"alpha": unknownStamp}}

	service := report.NewService(reader, nil, fixedClock{instant: testEvaluationInstant})
	governanceReport := service.Evaluate(fixture.configuration, map[string]int{"alpha": 3})

	alphaStatus := governanceReport.Repositories["alpha"]
	require.Equal(testInstance, "no_stamp", string(alphaStatus.SelfStatus))
	require.True(testInstance, alphaStatus.HasStamp)
	require.Empty(testInstance, alphaStatus.HighestMode)
	require.Len(testInstance, alphaStatus.Problems, 1)
	require.Contains(testInstance, alphaStatus.Problems[0], `unknown mode "canary"`)
}

func TestEvaluateUnreadableStamp(testInstance *testing.T) {
	fixture := buildFleet(testInstance, []string{repositoryBlock("alpha")}, []string{"alpha"})
	reader := &stubStampReader{errors: map[string]error{"alpha": fmt.Errorf("validation stamp unreadable: truncated document")}}

	service := report.NewService(reader, nil, fixedClock{instant: testEvaluationInstant})
	governanceReport := service.Evaluate(fixture.configuration, map[string]int{"alpha": 3})

	alphaStatus := governanceReport.Repositories["alpha"]
	require.Equal(testInstance, "no_stamp", string(alphaStatus.SelfStatus))
	require.False(testInstance, alphaStatus.HasStamp)
	require.Contains(testInstance, alphaStatus.Problems[0], "unreadable")
}

func TestEvaluateUnconfiguredDependency(testInstance *testing.T) {
	fixture := buildFleet(testInstance, []string{repositoryBlock("alpha", "ghost")}, []string{"alpha"})
	reader := &stubStampReader{stamps: map[string]stamp.ValidationStamp{"alpha": prodStamp("alpha")}}

	service := report.NewService(reader, nil, fixedClock{instant: testEvaluationInstant})
	governanceReport := service.Evaluate(fixture.configuration, map[string]int{"alpha": 3})

	require.Equal(testInstance, []string{"ghost"}, governanceReport.MissingRepositories)
	require.Equal(testInstance, "degraded", governanceReport.OverallStatus)

	ghostStatus, present := governanceReport.Repositories["ghost"]
	require.True(testInstance, present)
	require.Equal(testInstance, "unconfigured", string(ghostStatus.SelfStatus))
	require.Equal(testInstance, []string{"referenced as a dependency of alpha but never configured"}, ghostStatus.Problems)

	require.False(testInstance, governanceReport.Repositories["alpha"].DependenciesReady)
}

func TestEvaluateCycleDegradesEveryMember(testInstance *testing.T) {
	fixture := buildFleet(testInstance,
		[]string{repositoryBlock("a", "b"), repositoryBlock("b", "c"), repositoryBlock("c", "a")},
		[]string{"a", "b", "c"},
	)
	reader := &stubStampReader{stamps: map[string]stamp.ValidationStamp{
		"a": prodStamp("a"),
		"b": prodStamp("b"),
		"c": prodStamp("c"),
	}}

	service := report.NewService(reader, nil, fixedClock{instant: testEvaluationInstant})
	governanceReport := service.Evaluate(fixture.configuration, map[string]int{"a": 1, "b": 1, "c": 1})

	require.Equal(testInstance, "degraded", governanceReport.OverallStatus)
	require.Equal(testInstance, [][]string{{"a", "b", "c", "a"}}, governanceReport.Cycles)

	for _, memberName := range []string{"a", "b", "c"} {
		memberStatus := governanceReport.Repositories[memberName]
		require.False(testInstance, memberStatus.DependenciesReady)
		require.Contains(testInstance, memberStatus.Problems, "member of a dependency cycle")
	}
}

func TestEvaluateFlagsRepositoriesWithoutRecords(testInstance *testing.T) {
	fixture := buildFleet(testInstance, []string{repositoryBlock("alpha")}, []string{"alpha"})
	reader := &stubStampReader{stamps: map[string]stamp.ValidationStamp{"alpha": prodStamp("alpha")}}

	service := report.NewService(reader, nil, fixedClock{instant: testEvaluationInstant})
	governanceReport := service.Evaluate(fixture.configuration, map[string]int{})

	alphaStatus := governanceReport.Repositories["alpha"]
	require.Equal(testInstance, "prod", string(alphaStatus.SelfStatus))
	require.Zero(testInstance, alphaStatus.FileCount)
	require.Contains(testInstance, alphaStatus.Problems, "no fingerprint records aggregated")
	require.Equal(testInstance, "degraded", governanceReport.OverallStatus)
}
