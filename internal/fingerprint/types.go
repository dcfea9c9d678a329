package fingerprint

// FileRecord fingerprints one regular file inside a governed repository.
//
// Identity is (Repo, Path); records are unique per repository within one
// aggregation pass and are superseded, never patched, by the next full scan.
// Timestamp is metadata only and never participates in hash comparisons.
type FileRecord struct {
	Repo      string `json:"repo"`
	Path      string `json:"path"`
	SHA256    string `json:"sha256"`
	SizeBytes int64  `json:"size_bytes"`
	Timestamp string `json:"timestamp"`
}

// ScanFailure records a single unreadable file without aborting the scan.
type ScanFailure struct {
	Path  string
	Cause error
}

// ScanResult carries the sorted records and per-file failures of one scan.
type ScanResult struct {
	Records  []FileRecord
	Failures []ScanFailure
}
