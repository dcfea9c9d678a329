package graph

import "sort"

// SelfStatus is the per-repository state computed fresh on every evaluation run.
type SelfStatus string

// Self-status values, terminal per run. Only SelfStatusProd satisfies a
// dependency requirement.
const (
	SelfStatusUnconfigured SelfStatus = "unconfigured"
	SelfStatusNoClone      SelfStatus = "no_clone"
	SelfStatusNoStamp      SelfStatus = "no_stamp"
	SelfStatusBuild        SelfStatus = "build"
	SelfStatusProd         SelfStatus = "prod"
)

// IsProduction reports whether the status satisfies a dependency requirement.
func (status SelfStatus) IsProduction() bool {
	return status == SelfStatusProd
}

// RepoNode declares one repository and its direct dependencies. Nodes are
// built once per evaluation run and read-only during graph algorithms.
type RepoNode struct {
	Name                 string
	LocalPath            string
	DeclaredDependencies []string
}

// DependencyGraph is the directed graph of repository-to-repository dependency edges.
type DependencyGraph struct {
	nodesByName map[string]RepoNode
	sortedNames []string
}

// NewDependencyGraph builds an adjacency structure from declared repository nodes.
func NewDependencyGraph(nodes []RepoNode) *DependencyGraph {
	dependencyGraph := &DependencyGraph{
		nodesByName: make(map[string]RepoNode, len(nodes)),
		sortedNames: make([]string, 0, len(nodes)),
	}
	for _, node := range nodes {
		dependencyGraph.nodesByName[node.Name] = node
		dependencyGraph.sortedNames = append(dependencyGraph.sortedNames, node.Name)
	}
	sort.Strings(dependencyGraph.sortedNames)
	return dependencyGraph
}

// Node resolves a declared node by name.
func (dependencyGraph *DependencyGraph) Node(nodeName string) (RepoNode, bool) {
	node, found := dependencyGraph.nodesByName[nodeName]
	return node, found
}

// Names lists declared node names, sorted.
func (dependencyGraph *DependencyGraph) Names() []string {
	return dependencyGraph.sortedNames
}

// MissingDependencies lists names referenced as dependencies but never declared, sorted.
func (dependencyGraph *DependencyGraph) MissingDependencies() []string {
	missing := make(map[string]struct{})
	for _, node := range dependencyGraph.nodesByName {
		for _, dependencyName := range node.DeclaredDependencies {
			if _, declared := dependencyGraph.nodesByName[dependencyName]; !declared {
				missing[dependencyName] = struct{}{}
			}
		}
	}
	return sortedSetMembers(missing)
}

// UnusedRepositories lists declared names nothing depends on, sorted. Informational only.
func (dependencyGraph *DependencyGraph) UnusedRepositories() []string {
	dependedUpon := make(map[string]struct{})
	for _, node := range dependencyGraph.nodesByName {
		for _, dependencyName := range node.DeclaredDependencies {
			dependedUpon[dependencyName] = struct{}{}
		}
	}

	unused := make(map[string]struct{})
	for nodeName := range dependencyGraph.nodesByName {
		if _, used := dependedUpon[nodeName]; !used {
			unused[nodeName] = struct{}{}
		}
	}
	return sortedSetMembers(unused)
}

type traversalColor int

const (
	colorUnvisited traversalColor = iota
	colorOnStack
	colorDone
)

// DetectCycles finds every distinct cycle via three-color depth-first
// traversal. A back-edge to an on-stack node reports the cycle as the path
// from that node forward through the current stack, closed back on itself.
// Each node is entered at most once overall, so traversal terminates on
// cyclic input and no cycle is reported twice.
func (dependencyGraph *DependencyGraph) DetectCycles() [][]string {
	colors := make(map[string]traversalColor, len(dependencyGraph.nodesByName))
	var cycles [][]string
	var stack []string

	var visit func(nodeName string)
	visit = func(nodeName string) {
		colors[nodeName] = colorOnStack
		stack = append(stack, nodeName)

		for _, dependencyName := range dependencyGraph.nodesByName[nodeName].DeclaredDependencies {
			if _, declared := dependencyGraph.nodesByName[dependencyName]; !declared {
				// Missing dependencies are reported separately, never traversed.
				continue
			}

			switch colors[dependencyName] {
			case colorUnvisited:
				visit(dependencyName)
			case colorOnStack:
				cycleStart := 0
				for stackIndex := range stack {
					if stack[stackIndex] == dependencyName {
						cycleStart = stackIndex
						break
					}
				}
				cycle := append([]string{}, stack[cycleStart:]...)
				cycle = append(cycle, dependencyName)
				cycles = append(cycles, cycle)
			case colorDone:
			}
		}

		stack = stack[:len(stack)-1]
		colors[nodeName] = colorDone
	}

	for _, nodeName := range dependencyGraph.sortedNames {
		if colors[nodeName] == colorUnvisited {
			visit(nodeName)
		}
	}

	return cycles
}

// EvaluateReadiness computes deps_ok per node by iterative fixed point.
//
// A node is ready only if every declared dependency resolves to a declared
// node whose self status is prod and whose own readiness holds. Nodes inside
// a detected cycle are pinned false before iteration because cycles can never
// self-satisfy. Values only ever flip true to false, so the loop terminates
// in at most O(V*E).
func (dependencyGraph *DependencyGraph) EvaluateReadiness(statuses map[string]SelfStatus, cycles [][]string) map[string]bool {
	readiness := make(map[string]bool, len(dependencyGraph.nodesByName))

	cycleMembers := CycleMembers(cycles)
	for _, nodeName := range dependencyGraph.sortedNames {
		_, insideCycle := cycleMembers[nodeName]
		readiness[nodeName] = !insideCycle
	}

	for changed := true; changed; {
		changed = false
		for _, nodeName := range dependencyGraph.sortedNames {
			if !readiness[nodeName] {
				continue
			}
			for _, dependencyName := range dependencyGraph.nodesByName[nodeName].DeclaredDependencies {
				if _, declared := dependencyGraph.nodesByName[dependencyName]; !declared {
					readiness[nodeName] = false
					changed = true
					break
				}
				if !statuses[dependencyName].IsProduction() || !readiness[dependencyName] {
					readiness[nodeName] = false
					changed = true
					break
				}
			}
		}
	}

	return readiness
}

// CycleMembers collapses reported cycles into the set of member node names.
func CycleMembers(cycles [][]string) map[string]struct{} {
	members := make(map[string]struct{})
	for _, cycle := range cycles {
		for _, nodeName := range cycle {
			members[nodeName] = struct{}{}
		}
	}
	return members
}

func sortedSetMembers(set map[string]struct{}) []string {
	members := make([]string, 0, len(set))
	for member := range set {
		members = append(members, member)
	}
	sort.Strings(members)
	return members
}
