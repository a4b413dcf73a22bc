package dto

import (
	"bytes"
	"strconv"
	"strings"

	"basegraph.app/prsync/internal/domain"
)

// PullRequestWebhook is an Azure DevOps service hook notification for the
// git.pullrequest.created / updated / merged events.
type PullRequestWebhook struct {
	ID          string               `json:"id"`
	EventType   string               `json:"eventType"`
	PublisherID string               `json:"publisherId"`
	Resource    *PullRequestResource `json:"resource"`
}

type PullRequestResource struct {
	Status        string        `json:"status"`
	PullRequestID FlexibleID    `json:"pullRequestId"`
	Repository    Repository    `json:"repository"`
	WorkItemRefs  []WorkItemRef `json:"workItemRefs,omitempty"`
}

type Repository struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type WorkItemRef struct {
	ID  FlexibleID `json:"id"`
	URL string     `json:"url,omitempty"`
}

// FlexibleID accepts both numeric ids and the string ids Azure DevOps uses
// for resource refs. Unparseable ids decode to 0 and are dropped later.
type FlexibleID int

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		*id = 0
		return nil
	}
	*id = FlexibleID(n)
	return nil
}

// ToEvent flattens the notification. A missing resource yields an event with
// no status, which reconciles to "no state change".
func (w PullRequestWebhook) ToEvent() domain.PullRequestEvent {
	event := domain.PullRequestEvent{EventType: w.EventType}
	if w.Resource == nil {
		return event
	}

	event.Status = domain.PullRequestStatus(w.Resource.Status)
	event.PullRequestID = int(w.Resource.PullRequestID)
	event.RepositoryID = w.Resource.Repository.ID
	event.RepositoryName = w.Resource.Repository.Name
	for _, ref := range w.Resource.WorkItemRefs {
		if ref.ID > 0 {
			event.WorkItemIDs = append(event.WorkItemIDs, int(ref.ID))
		}
	}
	return event
}

type ReconcileResponse struct {
	Status     string `json:"status"`
	Outcome    string `json:"outcome"`
	Message    string `json:"message"`
	State      string `json:"state,omitempty"`
	Updated    int    `json:"updated"`
	Failed     int    `json:"failed,omitempty"`
	DeliveryID int64  `json:"delivery_id,string"`
}
