package stamp

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	stampDirectoryNameConstant        = "meta"
	stampFileNameConstant             = "validation_stamp.json"
	stampDirectoryPermissionsConstant = 0o755
	stampFilePermissionsConstant      = 0o644
	temporaryFileSuffixConstant       = ".tmp"
	stampUnreadableTemplateConstant   = "validation stamp unreadable at %s: %w"
	stampEncodeErrorTemplateConstant  = "failed to encode validation stamp for %s: %w"
	stampDocumentIndentConstant       = "  "
)

// Store reads and writes the one persisted stamp document each repository
// keeps at a fixed location relative to its root.
type Store struct{}

// NewStore constructs a stamp store.
func NewStore() *Store {
	return &Store{}
}

// DocumentPath locates a repository's stamp document.
func (store *Store) DocumentPath(repositoryRoot string) string {
	return filepath.Join(repositoryRoot, stampDirectoryNameConstant, stampFileNameConstant)
}

// Read loads the repository's stamp. A missing document yields ErrStampMissing;
// an unparseable document yields a wrapped unreadable error.
func (store *Store) Read(repositoryRoot string) (ValidationStamp, error) {
	documentPath := store.DocumentPath(repositoryRoot)

	contentBytes, readError := os.ReadFile(documentPath)
	if readError != nil {
		if os.IsNotExist(readError) {
			return ValidationStamp{}, ErrStampMissing
		}
		return ValidationStamp{}, fmt.Errorf(stampUnreadableTemplateConstant, documentPath, readError)
	}

	var persistedStamp ValidationStamp
	if unmarshalError := json.Unmarshal(contentBytes, &persistedStamp); unmarshalError != nil {
		return ValidationStamp{}, fmt.Errorf(stampUnreadableTemplateConstant, documentPath, unmarshalError)
	}

	return persistedStamp, nil
}

// Write persists the stamp as a complete replacement via temp-file rename.
func (store *Store) Write(repositoryRoot string, persistedStamp ValidationStamp) error {
	documentPath := store.DocumentPath(repositoryRoot)
	if directoryError := os.MkdirAll(filepath.Dir(documentPath), stampDirectoryPermissionsConstant); directoryError != nil {
		return directoryError
	}

	encodedStamp, encodeError := json.MarshalIndent(persistedStamp, "", stampDocumentIndentConstant)
	if encodeError != nil {
		return fmt.Errorf(stampEncodeErrorTemplateConstant, persistedStamp.Repo, encodeError)
	}
	encodedStamp = append(encodedStamp, '\n')

	temporaryPath := documentPath + temporaryFileSuffixConstant
	if writeError := os.WriteFile(temporaryPath, encodedStamp, stampFilePermissionsConstant); writeError != nil {
		return writeError
	}

	return os.Rename(temporaryPath, documentPath)
}

// Record merges an incoming validation pass into the persisted stamp and writes the result.
func (store *Store) Record(repositoryRoot string, incoming ValidationStamp) (ValidationStamp, error) {
	existing, readError := store.Read(repositoryRoot)
	if readError != nil {
		if !errors.Is(readError, ErrStampMissing) {
			return ValidationStamp{}, readError
		}
		if !incoming.HighestMode.Known() {
			return ValidationStamp{}, UnknownModeError{Mode: incoming.HighestMode}
		}
		if writeError := store.Write(repositoryRoot, incoming); writeError != nil {
			return ValidationStamp{}, writeError
		}
		return incoming, nil
	}

	merged, mergeError := Merge(existing, incoming)
	if mergeError != nil {
		return ValidationStamp{}, mergeError
	}

	if writeError := store.Write(repositoryRoot, merged); writeError != nil {
		return ValidationStamp{}, writeError
	}
	return merged, nil
}
