package index

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/diamondops/stegdb/internal/fingerprint"
)

const (
	duplicateRecordTemplateConstant = "duplicate fingerprint record for %s:%s"
	contentHashFieldSeparatorByte   = 0x00
)

// RepoPathKey identifies one fingerprint record inside the aggregated index.
type RepoPathKey struct {
	Repo string
	Path string
}

// AggregatedIndex merges fingerprint records from every governed repository
// into one flat collection keyed by (repo, path). It is built once per
// aggregation pass and read-only afterwards.
type AggregatedIndex struct {
	recordsByRepo  map[string][]fingerprint.FileRecord
	recordByKey    map[RepoPathKey]fingerprint.FileRecord
	orderedRecords []fingerprint.FileRecord
}

// BuildIndex assembles an aggregated index, rejecting duplicate (repo, path) pairs.
func BuildIndex(records []fingerprint.FileRecord) (*AggregatedIndex, error) {
	aggregated := &AggregatedIndex{
		recordsByRepo: make(map[string][]fingerprint.FileRecord),
		recordByKey:   make(map[RepoPathKey]fingerprint.FileRecord, len(records)),
	}

	for _, record := range records {
		recordKey := RepoPathKey{Repo: record.Repo, Path: record.Path}
		if _, duplicate := aggregated.recordByKey[recordKey]; duplicate {
			return nil, fmt.Errorf(duplicateRecordTemplateConstant, record.Repo, record.Path)
		}
		aggregated.recordByKey[recordKey] = record
		aggregated.recordsByRepo[record.Repo] = append(aggregated.recordsByRepo[record.Repo], record)
	}

	for repositoryName := range aggregated.recordsByRepo {
		repositoryRecords := aggregated.recordsByRepo[repositoryName]
		sort.Slice(repositoryRecords, func(firstIndex int, secondIndex int) bool {
			return repositoryRecords[firstIndex].Path < repositoryRecords[secondIndex].Path
		})
	}

	aggregated.orderedRecords = make([]fingerprint.FileRecord, 0, len(records))
	for _, repositoryName := range aggregated.Repositories() {
		aggregated.orderedRecords = append(aggregated.orderedRecords, aggregated.recordsByRepo[repositoryName]...)
	}

	return aggregated, nil
}

// Lookup reports whether (repo, path) exists and with which record.
func (aggregated *AggregatedIndex) Lookup(repositoryName string, relativePath string) (fingerprint.FileRecord, bool) {
	record, found := aggregated.recordByKey[RepoPathKey{Repo: repositoryName, Path: relativePath}]
	return record, found
}

// Records returns a repository's records sorted lexicographically by path.
func (aggregated *AggregatedIndex) Records(repositoryName string) []fingerprint.FileRecord {
	return aggregated.recordsByRepo[repositoryName]
}

// RecordCount reports how many fingerprint records a repository contributed.
func (aggregated *AggregatedIndex) RecordCount(repositoryName string) int {
	return len(aggregated.recordsByRepo[repositoryName])
}

// RecordCounts exposes the count-by-repo view consumed by the governance report.
func (aggregated *AggregatedIndex) RecordCounts() map[string]int {
	counts := make(map[string]int, len(aggregated.recordsByRepo))
	for repositoryName, repositoryRecords := range aggregated.recordsByRepo {
		counts[repositoryName] = len(repositoryRecords)
	}
	return counts
}

// Repositories lists repository names present in the index, sorted.
func (aggregated *AggregatedIndex) Repositories() []string {
	names := make([]string, 0, len(aggregated.recordsByRepo))
	for repositoryName := range aggregated.recordsByRepo {
		names = append(names, repositoryName)
	}
	sort.Strings(names)
	return names
}

// OrderedRecords returns every record ordered by repository name, then path.
//
// The ordering makes re-serialization byte-stable regardless of scan order or
// traversal concurrency.
func (aggregated *AggregatedIndex) OrderedRecords() []fingerprint.FileRecord {
	return aggregated.orderedRecords
}

// ContentHash digests a repository's (path, sha256) pairs into the
// content-index hash recorded on validation stamps. Timestamps deliberately
// do not participate.
func (aggregated *AggregatedIndex) ContentHash(repositoryName string) string {
	digest := sha256.New()
	for _, record := range aggregated.recordsByRepo[repositoryName] {
		digest.Write([]byte(record.Path))
		digest.Write([]byte{contentHashFieldSeparatorByte})
		digest.Write([]byte(record.SHA256))
		digest.Write([]byte{'\n'})
	}
	return hex.EncodeToString(digest.Sum(nil))
}
