package fingerprint

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	recordEncodeErrorTemplateConstant   = "failed to encode fingerprint record %s: %w"
	recordScanErrorTemplateConstant     = "failed to read fingerprint records: %w"
	recordFileOpenErrorTemplateConstant = "failed to open fingerprint records at %s: %w"
	recordDirectoryPermissionsConstant  = 0o755
	recordFilePermissionsConstant       = 0o644
	temporaryFileSuffixConstant         = ".tmp"
)

// WriteRecords serializes records as newline-delimited JSON, one record per line.
func WriteRecords(destination io.Writer, records []FileRecord) error {
	for _, record := range records {
		encodedRecord, encodeError := json.Marshal(record)
		if encodeError != nil {
			return fmt.Errorf(recordEncodeErrorTemplateConstant, record.Path, encodeError)
		}
		if _, writeError := destination.Write(append(encodedRecord, '\n')); writeError != nil {
			return writeError
		}
	}
	return nil
}

// ReadRecords parses newline-delimited JSON records, skipping blank and malformed lines.
//
// The number of skipped malformed lines is returned so callers can surface the
// condition without failing the load.
func ReadRecords(source io.Reader) ([]FileRecord, int, error) {
	var records []FileRecord
	malformedLineCount := 0

	lineScanner := bufio.NewScanner(source)
	lineScanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for lineScanner.Scan() {
		line := strings.TrimSpace(lineScanner.Text())
		if len(line) == 0 {
			continue
		}

		var record FileRecord
		if unmarshalError := json.Unmarshal([]byte(line), &record); unmarshalError != nil {
			malformedLineCount++
			continue
		}
		records = append(records, record)
	}
	if scanError := lineScanner.Err(); scanError != nil {
		return nil, malformedLineCount, fmt.Errorf(recordScanErrorTemplateConstant, scanError)
	}

	return records, malformedLineCount, nil
}

// WriteRecordsFile writes records to filePath as a complete replacement via temp-file rename.
func WriteRecordsFile(filePath string, records []FileRecord) error {
	if directoryError := os.MkdirAll(filepath.Dir(filePath), recordDirectoryPermissionsConstant); directoryError != nil {
		return directoryError
	}

	temporaryPath := filePath + temporaryFileSuffixConstant
	temporaryFile, createError := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, recordFilePermissionsConstant)
	if createError != nil {
		return createError
	}

	if writeError := WriteRecords(temporaryFile, records); writeError != nil {
		temporaryFile.Close()
		os.Remove(temporaryPath)
		return writeError
	}
	if closeError := temporaryFile.Close(); closeError != nil {
		os.Remove(temporaryPath)
		return closeError
	}

	return os.Rename(temporaryPath, filePath)
}

// ReadRecordsFile loads records from filePath; a missing file yields no records.
func ReadRecordsFile(filePath string) ([]FileRecord, int, error) {
	fileHandle, openError := os.Open(filePath)
	if openError != nil {
		if os.IsNotExist(openError) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf(recordFileOpenErrorTemplateConstant, filePath, openError)
	}
	defer fileHandle.Close()

	return ReadRecords(fileHandle)
}
