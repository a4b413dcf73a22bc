package domain

// PullRequestEvent is the part of an Azure DevOps git.pullrequest.* service
// hook notification that reconciliation needs.
type PullRequestEvent struct {
	EventType      string
	Status         PullRequestStatus
	PullRequestID  int
	RepositoryID   string
	RepositoryName string
	WorkItemIDs    []int // explicit refs carried on the payload, if any
}

// WorkItem is the slice of an Azure Boards work item relevant to state sync.
type WorkItem struct {
	ID    int
	Type  string
	State string
}
