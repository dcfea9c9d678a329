package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	defaultWorkerCountConstant = 4
	hashChunkSizeConstant      = 64 * 1024
)

// Directory and file names excluded from every scan regardless of the allow-list.
var excludedDirectoryNames = map[string]struct{}{
	".git":          {},
	".hg":           {},
	".svn":          {},
	"__pycache__":   {},
	".pytest_cache": {},
	"node_modules":  {},
}

var excludedFileNames = map[string]struct{}{
	".DS_Store": {},
}

// Scanner walks allow-listed subtrees of a repository and fingerprints every regular file.
type Scanner struct {
	workerCount int
}

// NewScanner constructs a scanner with a bounded hashing worker pool.
func NewScanner(workerCount int) *Scanner {
	if workerCount <= 0 {
		workerCount = defaultWorkerCountConstant
	}
	return &Scanner{workerCount: workerCount}
}

type hashOutcome struct {
	record  FileRecord
	failure *ScanFailure
}

// Scan fingerprints every regular file under the allow-listed subtrees of repositoryRoot.
//
// Unreadable files are reported as failures and never abort the scan. The
// returned records are sorted by path so the emitted sequence is identical
// regardless of worker scheduling.
func (scanner *Scanner) Scan(executionContext context.Context, repositoryRoot string, repositoryName string, includeSubtrees []string, observedAt time.Time) (ScanResult, error) {
	candidatePaths, enumerationFailures := enumerateFiles(repositoryRoot, includeSubtrees)
	timestamp := observedAt.UTC().Truncate(time.Second).Format(time.RFC3339)

	jobs := make(chan string)
	outcomes := make(chan hashOutcome)

	var workerGroup sync.WaitGroup
	for workerIndex := 0; workerIndex < scanner.workerCount; workerIndex++ {
		workerGroup.Add(1)
		go func() {
			defer workerGroup.Done()
			for relativePath := range jobs {
				outcomes <- hashFile(repositoryRoot, repositoryName, relativePath, timestamp)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, relativePath := range candidatePaths {
			select {
			case <-executionContext.Done():
				return
			case jobs <- relativePath:
			}
		}
	}()

	go func() {
		workerGroup.Wait()
		close(outcomes)
	}()

	result := ScanResult{Failures: enumerationFailures}
	for outcome := range outcomes {
		if outcome.failure != nil {
			result.Failures = append(result.Failures, *outcome.failure)
			continue
		}
		result.Records = append(result.Records, outcome.record)
	}

	if contextError := executionContext.Err(); contextError != nil {
		return ScanResult{}, contextError
	}

	sort.Slice(result.Records, func(firstIndex int, secondIndex int) bool {
		return result.Records[firstIndex].Path < result.Records[secondIndex].Path
	})
	sort.Slice(result.Failures, func(firstIndex int, secondIndex int) bool {
		return result.Failures[firstIndex].Path < result.Failures[secondIndex].Path
	})

	return result, nil
}

// enumerateFiles lists candidate files under the allow-listed subtrees, posix-style relative to root.
func enumerateFiles(repositoryRoot string, includeSubtrees []string) ([]string, []ScanFailure) {
	var candidatePaths []string
	var failures []ScanFailure

	for _, subtreeName := range includeSubtrees {
		subtreeRoot := filepath.Join(repositoryRoot, subtreeName)
		if _, statError := os.Stat(subtreeRoot); statError != nil {
			// Absent subtrees are ordinary: not every repository carries every allow-listed directory.
			continue
		}

		walkError := filepath.WalkDir(subtreeRoot, func(path string, directoryEntry fs.DirEntry, entryError error) error {
			if entryError != nil {
				failures = append(failures, ScanFailure{Path: relativePosixPath(repositoryRoot, path), Cause: entryError})
				if directoryEntry != nil && directoryEntry.IsDir() {
					return fs.SkipDir
				}
				return nil
			}

			if directoryEntry.IsDir() {
				if _, excluded := excludedDirectoryNames[directoryEntry.Name()]; excluded {
					return fs.SkipDir
				}
				return nil
			}

			if !directoryEntry.Type().IsRegular() {
				return nil
			}
			if _, excluded := excludedFileNames[directoryEntry.Name()]; excluded {
				return nil
			}

			candidatePaths = append(candidatePaths, relativePosixPath(repositoryRoot, path))
			return nil
		})
		if walkError != nil {
			failures = append(failures, ScanFailure{Path: subtreeName, Cause: walkError})
		}
	}

	return candidatePaths, failures
}

// hashFile streams the file through SHA-256 in fixed-size chunks so the digest is memory-independent.
func hashFile(repositoryRoot string, repositoryName string, relativePath string, timestamp string) hashOutcome {
	absolutePath := filepath.Join(repositoryRoot, filepath.FromSlash(relativePath))

	fileHandle, openError := os.Open(absolutePath)
	if openError != nil {
		return hashOutcome{failure: &ScanFailure{Path: relativePath, Cause: openError}}
	}
	defer fileHandle.Close()

	digest := sha256.New()
	chunkBuffer := make([]byte, hashChunkSizeConstant)
	byteCount, copyError := io.CopyBuffer(digest, fileHandle, chunkBuffer)
	if copyError != nil {
		return hashOutcome{failure: &ScanFailure{Path: relativePath, Cause: copyError}}
	}

	return hashOutcome{record: FileRecord{
		Repo:      repositoryName,
		Path:      relativePath,
		SHA256:    hex.EncodeToString(digest.Sum(nil)),
		SizeBytes: byteCount,
		Timestamp: timestamp,
	}}
}

func relativePosixPath(repositoryRoot string, absolutePath string) string {
	relativePath, relativeError := filepath.Rel(repositoryRoot, absolutePath)
	if relativeError != nil {
		return filepath.ToSlash(absolutePath)
	}
	return filepath.ToSlash(relativePath)
}
