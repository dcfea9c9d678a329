package hubconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	configurationMissingMessageConstant        = "hub configuration file missing"
	configurationPathRequiredMessageConstant   = "hub configuration path must be provided"
	configurationParseErrorTemplateConstant    = "failed to parse hub configuration: %w"
	configurationReadErrorTemplateConstant     = "failed to read hub configuration: %w"
	configurationNoRepositoriesMessageConstant = "hub configuration must declare at least one repository"
	repositoryNameRequiredMessageConstant      = "hub configuration declares a repository without a name"
	repositoryPathRequiredTemplateConstant     = "repository %s missing local path"
	repositoryDuplicateNameTemplateConstant    = "repository %s declared more than once"
	repositoryEmptyDependencyTemplateConstant  = "repository %s declares an empty dependency name"
	repositorySelfDependencyTemplateConstant   = "repository %s declares a dependency on itself"
	defaultHubRootConstant                     = "."
	repositoryMetadataDirectoryNameConstant    = "repos"
	hubMetadataDirectoryNameConstant           = "meta"
	repairPlanDirectoryNameConstant            = "repairs"
	fingerprintRecordsFileNameConstant         = "files.jsonl"
	aggregatedRecordsFileNameConstant          = "aggregated_files.jsonl"
	dependencyGraphFileNameConstant            = "dependency_graph.json"
	dependencyStatusFileNameConstant           = "dependency_status.json"
	repairPlanFileNameConstant                 = "repair_plan.json"
	defaultFingerprintSubtreeSourceConstant    = "src"
	defaultFingerprintSubtreeToolingConstant   = "tools"
)

// ErrConfigurationMissing indicates the hub configuration file is absent; the run halts before any phase.
var ErrConfigurationMissing = errors.New(configurationMissingMessageConstant)

// RepositoryConfiguration declares one governed repository.
type RepositoryConfiguration struct {
	Name          string   `yaml:"name" json:"name"`
	Path          string   `yaml:"path" json:"path"`
	CanonicalPath string   `yaml:"canonical_path" json:"canonical_path"`
	DependsOn     []string `yaml:"depends_on" json:"depends_on"`
}

// Configuration declares the hub root, the fingerprint allow-list, and every governed repository.
type Configuration struct {
	Root            string                    `yaml:"root" json:"root"`
	IncludeSubtrees []string                  `yaml:"include_dirs" json:"include_dirs"`
	Owner           string                    `yaml:"owner" json:"owner"`
	Repositories    []RepositoryConfiguration `yaml:"repos" json:"repos"`

	repositoryLookup map[string]RepositoryConfiguration
}

// LoadConfiguration reads and validates the hub configuration from a YAML or JSON file.
func LoadConfiguration(filePath string) (Configuration, error) {
	trimmedPath := strings.TrimSpace(filePath)
	if len(trimmedPath) == 0 {
		return Configuration{}, errors.New(configurationPathRequiredMessageConstant)
	}

	contentBytes, readError := os.ReadFile(trimmedPath)
	if readError != nil {
		if os.IsNotExist(readError) {
			return Configuration{}, fmt.Errorf("%w: %s", ErrConfigurationMissing, trimmedPath)
		}
		return Configuration{}, fmt.Errorf(configurationReadErrorTemplateConstant, readError)
	}

	var configuration Configuration
	if unmarshalError := yaml.Unmarshal(contentBytes, &configuration); unmarshalError != nil {
		return Configuration{}, fmt.Errorf(configurationParseErrorTemplateConstant, unmarshalError)
	}

	configuration.applyDefaults()
	if validationError := configuration.validate(); validationError != nil {
		return Configuration{}, validationError
	}

	configuration.repositoryLookup = make(map[string]RepositoryConfiguration, len(configuration.Repositories))
	for _, repository := range configuration.Repositories {
		configuration.repositoryLookup[repository.Name] = repository
	}

	return configuration, nil
}

func (configuration *Configuration) applyDefaults() {
	if len(strings.TrimSpace(configuration.Root)) == 0 {
		configuration.Root = defaultHubRootConstant
	}
	if len(configuration.IncludeSubtrees) == 0 {
		configuration.IncludeSubtrees = []string{defaultFingerprintSubtreeSourceConstant, defaultFingerprintSubtreeToolingConstant}
	}
}

// validate fails fast on structural problems instead of deferring them into graph evaluation.
func (configuration *Configuration) validate() error {
	if len(configuration.Repositories) == 0 {
		return errors.New(configurationNoRepositoriesMessageConstant)
	}

	seenNames := make(map[string]struct{}, len(configuration.Repositories))
	for repositoryIndex := range configuration.Repositories {
		repository := &configuration.Repositories[repositoryIndex]
		repository.Name = strings.TrimSpace(repository.Name)
		repository.Path = strings.TrimSpace(repository.Path)
		repository.CanonicalPath = strings.TrimSpace(repository.CanonicalPath)

		if len(repository.Name) == 0 {
			return errors.New(repositoryNameRequiredMessageConstant)
		}
		if _, duplicate := seenNames[repository.Name]; duplicate {
			return fmt.Errorf(repositoryDuplicateNameTemplateConstant, repository.Name)
		}
		seenNames[repository.Name] = struct{}{}

		if len(repository.Path) == 0 {
			return fmt.Errorf(repositoryPathRequiredTemplateConstant, repository.Name)
		}

		sanitizedDependencies := make([]string, 0, len(repository.DependsOn))
		for _, dependencyName := range repository.DependsOn {
			trimmedDependency := strings.TrimSpace(dependencyName)
			if len(trimmedDependency) == 0 {
				return fmt.Errorf(repositoryEmptyDependencyTemplateConstant, repository.Name)
			}
			if trimmedDependency == repository.Name {
				return fmt.Errorf(repositorySelfDependencyTemplateConstant, repository.Name)
			}
			sanitizedDependencies = append(sanitizedDependencies, trimmedDependency)
		}
		repository.DependsOn = sanitizedDependencies
	}

	return nil
}

// Repository resolves a declared repository by name.
func (configuration Configuration) Repository(repositoryName string) (RepositoryConfiguration, bool) {
	repository, found := configuration.repositoryLookup[repositoryName]
	return repository, found
}

// RepositoryNames lists declared repository names in declaration order.
func (configuration Configuration) RepositoryNames() []string {
	names := make([]string, 0, len(configuration.Repositories))
	for _, repository := range configuration.Repositories {
		names = append(names, repository.Name)
	}
	return names
}

// RepositoryRoot resolves the working-copy root of a declared repository.
func (configuration Configuration) RepositoryRoot(repository RepositoryConfiguration) string {
	if filepath.IsAbs(repository.Path) {
		return repository.Path
	}
	return filepath.Join(configuration.Root, repository.Path)
}

// CanonicalRoot resolves the hub's canonical file set for a repository; empty when none is declared.
func (configuration Configuration) CanonicalRoot(repository RepositoryConfiguration) string {
	if len(repository.CanonicalPath) == 0 {
		return ""
	}
	if filepath.IsAbs(repository.CanonicalPath) {
		return repository.CanonicalPath
	}
	return filepath.Join(configuration.Root, repository.CanonicalPath)
}

// FingerprintRecordsPath locates a repository's per-repo fingerprint records inside the hub.
func (configuration Configuration) FingerprintRecordsPath(repositoryName string) string {
	return filepath.Join(configuration.Root, repositoryMetadataDirectoryNameConstant, repositoryName, fingerprintRecordsFileNameConstant)
}

// AggregatedRecordsPath locates the hub-wide aggregated fingerprint index.
func (configuration Configuration) AggregatedRecordsPath() string {
	return filepath.Join(configuration.Root, hubMetadataDirectoryNameConstant, aggregatedRecordsFileNameConstant)
}

// DependencyGraphPath locates the serialized dependency graph document.
func (configuration Configuration) DependencyGraphPath() string {
	return filepath.Join(configuration.Root, hubMetadataDirectoryNameConstant, dependencyGraphFileNameConstant)
}

// DependencyStatusPath locates the governance report document.
func (configuration Configuration) DependencyStatusPath() string {
	return filepath.Join(configuration.Root, hubMetadataDirectoryNameConstant, dependencyStatusFileNameConstant)
}

// RepairPlanPath locates a repository's repair plan document inside the hub.
func (configuration Configuration) RepairPlanPath(repositoryName string) string {
	return filepath.Join(configuration.Root, repairPlanDirectoryNameConstant, repositoryName, repairPlanFileNameConstant)
}
