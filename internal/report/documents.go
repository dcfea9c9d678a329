package report

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/diamondops/stegdb/internal/graph"
	"github.com/diamondops/stegdb/internal/hubconfig"
)

const (
	documentDirectoryPermissionsConstant = 0o755
	documentFilePermissionsConstant      = 0o644
	documentIndentConstant               = "  "
	temporaryFileSuffixConstant          = ".tmp"
)

// GraphNodeDocument serializes one node of the dependency graph document.
type GraphNodeDocument struct {
	Name      string   `json:"name"`
	Path      string   `json:"path"`
	DependsOn []string `json:"depends_on"`
	FileCount int      `json:"file_count"`
}

// GraphEdgeDocument serializes one dependency edge.
type GraphEdgeDocument struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// GraphDocument is the serialized dependency graph written alongside the report.
type GraphDocument struct {
	GeneratedAt string              `json:"generated_at"`
	Nodes       []GraphNodeDocument `json:"nodes"`
	Edges       []GraphEdgeDocument `json:"edges"`
	Cycles      [][]string          `json:"cycles"`
}

// BuildGraphDocument assembles the graph document from configuration and evaluation output.
func BuildGraphDocument(configuration hubconfig.Configuration, dependencyGraph *graph.DependencyGraph, cycles [][]string, recordCounts map[string]int, generatedAt string) GraphDocument {
	document := GraphDocument{
		GeneratedAt: generatedAt,
		Nodes:       []GraphNodeDocument{},
		Edges:       []GraphEdgeDocument{},
		Cycles:      cycles,
	}
	if document.Cycles == nil {
		document.Cycles = [][]string{}
	}

	for _, nodeName := range dependencyGraph.Names() {
		node, _ := dependencyGraph.Node(nodeName)
		dependsOn := node.DeclaredDependencies
		if dependsOn == nil {
			dependsOn = []string{}
		}
		document.Nodes = append(document.Nodes, GraphNodeDocument{
			Name:      node.Name,
			Path:      node.LocalPath,
			DependsOn: dependsOn,
			FileCount: recordCounts[node.Name],
		})
		for _, dependencyName := range node.DeclaredDependencies {
			document.Edges = append(document.Edges, GraphEdgeDocument{From: node.Name, To: dependencyName})
		}
	}

	return document
}

// WriteDocument persists any governance document as indented JSON via temp-file rename.
func WriteDocument(filePath string, document any) error {
	if directoryError := os.MkdirAll(filepath.Dir(filePath), documentDirectoryPermissionsConstant); directoryError != nil {
		return directoryError
	}

	encodedDocument, encodeError := json.MarshalIndent(document, "", documentIndentConstant)
	if encodeError != nil {
		return encodeError
	}
	encodedDocument = append(encodedDocument, '\n')

	temporaryPath := filePath + temporaryFileSuffixConstant
	if writeError := os.WriteFile(temporaryPath, encodedDocument, documentFilePermissionsConstant); writeError != nil {
		return writeError
	}

	return os.Rename(temporaryPath, filePath)
}
