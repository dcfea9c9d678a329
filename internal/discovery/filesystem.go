package discovery

import (
	"io/fs"
	"path/filepath"
	"sort"
)

const gitMetadataDirectoryNameConstant = ".git"

// FilesystemCloneDiscoverer locates repository working copies on disk.
type FilesystemCloneDiscoverer struct{}

// NewFilesystemCloneDiscoverer constructs a clone discoverer backed by filepath.WalkDir.
func NewFilesystemCloneDiscoverer() *FilesystemCloneDiscoverer {
	return &FilesystemCloneDiscoverer{}
}

// DiscoverClones walks the hub root and returns directories containing a .git
// entry, without descending into discovered clones.
func (discoverer *FilesystemCloneDiscoverer) DiscoverClones(hubRoot string) ([]string, error) {
	seen := make(map[string]struct{})
	var clonePaths []string

	walkError := filepath.WalkDir(hubRoot, func(path string, directoryEntry fs.DirEntry, entryError error) error {
		if entryError != nil {
			return nil
		}

		if directoryEntry.Name() != gitMetadataDirectoryNameConstant {
			return nil
		}

		clonePath := filepath.Dir(path)
		if _, alreadySeen := seen[clonePath]; alreadySeen {
			if directoryEntry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		seen[clonePath] = struct{}{}
		clonePaths = append(clonePaths, clonePath)

		if directoryEntry.IsDir() {
			return fs.SkipDir
		}
		return nil
	})
	if walkError != nil {
		return nil, walkError
	}

	sort.Strings(clonePaths)
	return clonePaths, nil
}
