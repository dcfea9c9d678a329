package index_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/diamondops/stegdb/internal/fingerprint"
	"github.com/diamondops/stegdb/internal/index"
)

func fleetRecords() []fingerprint.FileRecord {
	return []fingerprint.FileRecord{
		{Repo: "beta", Path: "src/b.py", SHA256: "bb22", SizeBytes: 4, Timestamp: "2026-03-14T09:30:15Z"},
		{Repo: "alpha", Path: "src/z.py", SHA256: "zz99", SizeBytes: 2, Timestamp: "2026-03-14T09:30:15Z"},
		{Repo: "alpha", Path: "src/a.py", SHA256: "aa11", SizeBytes: 7, Timestamp: "2026-03-14T09:30:15Z"},
	}
}

func TestBuildIndexRejectsDuplicateRecords(testInstance *testing.T) {
	records := fleetRecords()
	records = append(records, fingerprint.FileRecord{Repo: "alpha", Path: "src/a.py", SHA256: "cc33"})

	_, buildError := index.BuildIndex(records)

	require.Error(testInstance, buildError)
	require.Contains(testInstance, buildError.Error(), "alpha:src/a.py")
}

func TestAggregatedIndexLookup(testInstance *testing.T) {
	aggregated, buildError := index.BuildIndex(fleetRecords())
	require.NoError(testInstance, buildError)

	record, found := aggregated.Lookup("alpha", "src/a.py")
	require.True(testInstance, found)
	require.Equal(testInstance, "aa11", record.SHA256)

	_, found = aggregated.Lookup("alpha", "src/missing.py")
	require.False(testInstance, found)

	_, found = aggregated.Lookup("gamma", "src/a.py")
	require.False(testInstance, found)
}

func TestAggregatedIndexOrderingAndCounts(testInstance *testing.T) {
	aggregated, buildError := index.BuildIndex(fleetRecords())
	require.NoError(testInstance, buildError)

	require.Equal(testInstance, []string{"alpha", "beta"}, aggregated.Repositories())
	require.Equal(testInstance, 2, aggregated.RecordCount("alpha"))
	require.Equal(testInstance, map[string]int{"alpha": 2, "beta": 1}, aggregated.RecordCounts())

	orderedPaths := make([]string, 0, 3)
	for _, record := range aggregated.OrderedRecords() {
		orderedPaths = append(orderedPaths, record.Repo+":"+record.Path)
	}
	require.Equal(testInstance, []string{"alpha:src/a.py", "alpha:src/z.py", "beta:src/b.py"}, orderedPaths)
}

func TestContentHashIgnoresTimestampsAndSizes(testInstance *testing.T) {
	firstIndex, buildError := index.BuildIndex([]fingerprint.FileRecord{
		{Repo: "alpha", Path: "src/a.py", SHA256: "aa11", SizeBytes: 7, Timestamp: "2026-03-14T09:30:15Z"},
		{Repo: "alpha", Path: "src/b.py", SHA256: "bb22", SizeBytes: 4, Timestamp: "2026-03-14T09:30:15Z"},
	})
	require.NoError(testInstance, buildError)

	secondIndex, buildError := index.BuildIndex([]fingerprint.FileRecord{
		{Repo: "alpha", Path: "src/b.py", SHA256: "bb22", SizeBytes: 400, Timestamp: "2027-01-01T00:00:00Z"},
		{Repo: "alpha", Path: "src/a.py", SHA256: "aa11", SizeBytes: 700, Timestamp: "2027-01-01T00:00:00Z"},
	})
	require.NoError(testInstance, buildError)

	require.Equal(testInstance, firstIndex.ContentHash("alpha"), secondIndex.ContentHash("alpha"))
}

func TestContentHashTracksContentChanges(testInstance *testing.T) {
	baseline, buildError := index.BuildIndex([]fingerprint.FileRecord{
		{Repo: "alpha", Path: "src/a.py", SHA256: "aa11"},
	})
	require.NoError(testInstance, buildError)

	drifted, buildError := index.BuildIndex([]fingerprint.FileRecord{
		{Repo: "alpha", Path: "src/a.py", SHA256: "aa12"},
	})
	require.NoError(testInstance, buildError)

	require.NotEqual(testInstance, baseline.ContentHash("alpha"), drifted.ContentHash("alpha"))
	require.NotEqual(testInstance, baseline.ContentHash("alpha"), baseline.ContentHash("beta"))
}
