package repair

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const (
	planDirectoryPermissionsConstant = 0o755
	planFilePermissionsConstant      = 0o644
	planDocumentIndentConstant       = "  "
	temporaryFileSuffixConstant      = ".tmp"
)

// WritePlan persists a repair plan as indented JSON via temp-file rename. An
// empty plan is written explicitly so consumers can distinguish "no drift"
// from "never planned".
func WritePlan(filePath string, plan RepairPlan) error {
	if directoryError := os.MkdirAll(filepath.Dir(filePath), planDirectoryPermissionsConstant); directoryError != nil {
		return directoryError
	}

	encodedPlan, encodeError := json.MarshalIndent(plan, "", planDocumentIndentConstant)
	if encodeError != nil {
		return encodeError
	}
	encodedPlan = append(encodedPlan, '\n')

	temporaryPath := filePath + temporaryFileSuffixConstant
	if writeError := os.WriteFile(temporaryPath, encodedPlan, planFilePermissionsConstant); writeError != nil {
		return writeError
	}

	return os.Rename(temporaryPath, filePath)
}

// ReadPlan loads a previously written repair plan.
func ReadPlan(filePath string) (RepairPlan, error) {
	contentBytes, readError := os.ReadFile(filePath)
	if readError != nil {
		return RepairPlan{}, readError
	}

	var plan RepairPlan
	if unmarshalError := json.Unmarshal(contentBytes, &plan); unmarshalError != nil {
		return RepairPlan{}, unmarshalError
	}
	return plan, nil
}
