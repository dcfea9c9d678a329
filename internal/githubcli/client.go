package githubcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/diamondops/stegdb/internal/execshell"
)

const (
	repoSubcommandConstant                 = "repo"
	listSubcommandConstant                 = "list"
	pullRequestSubcommandConstant          = "pr"
	createSubcommandConstant               = "create"
	jsonFlagConstant                       = "--json"
	limitFlagConstant                      = "--limit"
	repoFlagConstant                       = "--repo"
	titleFlagConstant                      = "--title"
	bodyFlagConstant                       = "--body"
	headFlagConstant                       = "--head"
	baseFlagConstant                       = "--base"
	repositoryListJSONFieldsConstant       = "name,nameWithOwner,defaultBranchRef"
	repositoryListLimitDefaultConstant     = 200
	ownerFieldNameConstant                 = "owner"
	repositoryFieldNameConstant            = "repository"
	titleFieldNameConstant                 = "title"
	headBranchFieldNameConstant            = "head_branch"
	requiredValueMessageConstant           = "value required"
	executorNotConfiguredMessageConstant   = "github cli executor not configured"
	operationErrorTemplateConstant         = "%s operation failed: %s"
	responseDecodingErrorTemplateConstant  = "%s response decoding failed: %s"
	invalidInputErrorTemplateConstant      = "%s: %s"
	listRepositoriesOperationNameConstant  = OperationName("ListRepositories")
	createPullRequestOperationNameConstant = OperationName("CreatePullRequest")
)

// OperationName describes a named GitHub CLI workflow supported by the client.
type OperationName string

// RepositoryIdentifier is the discovery provider's view of one remote repository.
type RepositoryIdentifier struct {
	Name          string
	NameWithOwner string
	DefaultBranch string
}

// PullRequestOptions carries the inputs accepted by the pull-request-opening provider.
type PullRequestOptions struct {
	Repository string
	Title      string
	Body       string
	HeadBranch string
	BaseBranch string
}

// GitHubCommandExecutor is the minimal interface required from execshell.ShellExecutor.
type GitHubCommandExecutor interface {
	ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Client coordinates GitHub CLI invocations through execshell.
type Client struct {
	executor GitHubCommandExecutor
}

// ErrExecutorNotConfigured indicates the client was constructed without an executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// NewClient constructs a GitHub CLI client backed by the supplied executor.
func NewClient(executor GitHubCommandExecutor) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Client{executor: executor}, nil
}

type repositoryListEntry struct {
	Name          string `json:"name"`
	NameWithOwner string `json:"nameWithOwner"`
	DefaultBranch struct {
		Name string `json:"name"`
	} `json:"defaultBranchRef"`
}

// ListRepositories returns the owner's repositories with their default branch names.
func (client *Client) ListRepositories(executionContext context.Context, owner string) ([]RepositoryIdentifier, error) {
	trimmedOwner := strings.TrimSpace(owner)
	if len(trimmedOwner) == 0 {
		return nil, InvalidInputError{FieldName: ownerFieldNameConstant, Message: requiredValueMessageConstant}
	}

	arguments := []string{
		repoSubcommandConstant,
		listSubcommandConstant,
		trimmedOwner,
		jsonFlagConstant,
		repositoryListJSONFieldsConstant,
		limitFlagConstant,
		strconv.Itoa(repositoryListLimitDefaultConstant),
	}

	result, executionError := client.executor.ExecuteGitHubCLI(executionContext, execshell.CommandDetails{Arguments: arguments})
	if executionError != nil {
		return nil, fmt.Errorf(operationErrorTemplateConstant, listRepositoriesOperationNameConstant, executionError)
	}

	var listedRepositories []repositoryListEntry
	if decodeError := json.Unmarshal([]byte(result.StandardOutput), &listedRepositories); decodeError != nil {
		return nil, fmt.Errorf(responseDecodingErrorTemplateConstant, listRepositoriesOperationNameConstant, decodeError)
	}

	identifiers := make([]RepositoryIdentifier, 0, len(listedRepositories))
	for _, listedRepository := range listedRepositories {
		identifiers = append(identifiers, RepositoryIdentifier{
			Name:          listedRepository.Name,
			NameWithOwner: listedRepository.NameWithOwner,
			DefaultBranch: listedRepository.DefaultBranch.Name,
		})
	}

	return identifiers, nil
}

// CreatePullRequest opens a pull request for the supplied branch and contents.
func (client *Client) CreatePullRequest(executionContext context.Context, options PullRequestOptions) error {
	if len(strings.TrimSpace(options.Repository)) == 0 {
		return InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(options.Title)) == 0 {
		return InvalidInputError{FieldName: titleFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(options.HeadBranch)) == 0 {
		return InvalidInputError{FieldName: headBranchFieldNameConstant, Message: requiredValueMessageConstant}
	}

	arguments := []string{
		pullRequestSubcommandConstant,
		createSubcommandConstant,
		repoFlagConstant,
		options.Repository,
		titleFlagConstant,
		options.Title,
		bodyFlagConstant,
		options.Body,
		headFlagConstant,
		options.HeadBranch,
	}
	if len(strings.TrimSpace(options.BaseBranch)) > 0 {
		arguments = append(arguments, baseFlagConstant, options.BaseBranch)
	}

	if _, executionError := client.executor.ExecuteGitHubCLI(executionContext, execshell.CommandDetails{Arguments: arguments}); executionError != nil {
		return fmt.Errorf(operationErrorTemplateConstant, createPullRequestOperationNameConstant, executionError)
	}

	return nil
}
