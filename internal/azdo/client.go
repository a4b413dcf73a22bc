// Package azdo is the Azure DevOps REST gateway: the four calls state sync
// makes against Boards and Repos, with no decision logic of its own.
package azdo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/microsoft/azure-devops-go-api/azuredevops/v7"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/git"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/webapi"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/workitemtracking"

	"basegraph.app/prsync/common/logger"
	"basegraph.app/prsync/internal/domain"
)

const (
	fieldWorkItemType = "System.WorkItemType"
	fieldState        = "System.State"
	statePatchPath    = "/fields/" + fieldState
)

type Config struct {
	OrganizationURL string
	Project         string
	PAT             string
	Timeout         time.Duration // per call; zero leaves the caller's deadline alone
}

type Client interface {
	GetWorkItem(ctx context.Context, id int) (*domain.WorkItem, error)
	GetAllowedStates(ctx context.Context, workItemType string) ([]string, error)
	UpdateWorkItemState(ctx context.Context, id int, state string) error
	GetLinkedWorkItemIDs(ctx context.Context, repositoryID string, pullRequestID int) ([]int, error)
}

type restClient struct {
	workItems workitemtracking.Client
	repos     git.Client
	project   string
	timeout   time.Duration
	logger    *slog.Logger
}

// NewClient connects with a personal access token. Creating the SDK clients
// resolves their resource areas, so a bad organization URL or token fails here.
func NewClient(ctx context.Context, cfg Config, log *slog.Logger) (Client, error) {
	conn := azuredevops.NewPatConnection(cfg.OrganizationURL, cfg.PAT)

	witClient, err := workitemtracking.NewClient(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("creating work item tracking client: %w", err)
	}

	gitClient, err := git.NewClient(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("creating git client: %w", err)
	}

	return newRESTClient(witClient, gitClient, cfg.Project, cfg.Timeout, log), nil
}

func newRESTClient(witClient workitemtracking.Client, gitClient git.Client, project string, timeout time.Duration, log *slog.Logger) *restClient {
	if log == nil {
		log = slog.Default()
	}
	return &restClient{
		workItems: witClient,
		repos:     gitClient,
		project:   project,
		timeout:   timeout,
		logger:    log,
	}
}

func (c *restClient) GetWorkItem(ctx context.Context, id int) (*domain.WorkItem, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	wi, err := c.workItems.GetWorkItem(ctx, workitemtracking.GetWorkItemArgs{
		Id:      &id,
		Project: &c.project,
		Fields:  &[]string{fieldWorkItemType, fieldState},
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "get work item failed", "error", err, "work_item_id", id)
		return nil, fmt.Errorf("fetching work item %d: %w", id, err)
	}
	if wi == nil {
		return nil, fmt.Errorf("fetching work item %d: empty response", id)
	}

	var fields map[string]interface{}
	if wi.Fields != nil {
		fields = *wi.Fields
	}
	return workItemFromFields(id, fields), nil
}

func (c *restClient) GetAllowedStates(ctx context.Context, workItemType string) ([]string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	states, err := c.workItems.GetWorkItemTypeStates(ctx, workitemtracking.GetWorkItemTypeStatesArgs{
		Project: &c.project,
		Type:    &workItemType,
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "get allowed states failed", "error", err, "work_item_type", workItemType)
		return nil, fmt.Errorf("fetching states for work item type %q: %w", workItemType, err)
	}
	if states == nil {
		return nil, nil
	}
	return stateNames(*states), nil
}

func (c *restClient) UpdateWorkItemState(ctx context.Context, id int, state string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err := c.workItems.UpdateWorkItem(ctx, workitemtracking.UpdateWorkItemArgs{
		Id:       &id,
		Project:  &c.project,
		Document: statePatch(state),
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "update work item failed", "error", err, "work_item_id", id, "state", state)
		return fmt.Errorf("updating work item %d to %q: %w", id, state, err)
	}
	return nil
}

// GetLinkedWorkItemIDs asks the project-scoped route first and falls back to
// the organization-scoped one, which resolves repositories that live in a
// different project than the configured one.
func (c *restClient) GetLinkedWorkItemIDs(ctx context.Context, repositoryID string, pullRequestID int) ([]int, error) {
	if repositoryID == "" || pullRequestID <= 0 {
		return nil, nil
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "prsync.azdo.links"})

	var lastErr error
	for _, project := range []*string{&c.project, nil} {
		refs, err := c.pullRequestWorkItemRefs(ctx, repositoryID, pullRequestID, project)
		if err != nil {
			c.logger.WarnContext(ctx, "pull request work item lookup attempt failed",
				"error", err,
				"project_scoped", project != nil,
			)
			lastErr = err
			continue
		}
		return refIDs(refs), nil
	}

	return nil, fmt.Errorf("fetching work items linked to pull request %d: %w", pullRequestID, lastErr)
}

func (c *restClient) pullRequestWorkItemRefs(ctx context.Context, repositoryID string, pullRequestID int, project *string) ([]webapi.ResourceRef, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	refs, err := c.repos.GetPullRequestWorkItemRefs(ctx, git.GetPullRequestWorkItemRefsArgs{
		RepositoryId:  &repositoryID,
		PullRequestId: &pullRequestID,
		Project:       project,
	})
	if err != nil {
		return nil, err
	}
	if refs == nil {
		return nil, nil
	}
	return *refs, nil
}

func (c *restClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
