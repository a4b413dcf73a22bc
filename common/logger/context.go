package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// The webhook handler sets the delivery and pull request fields once; everything
// downstream (reconciler, gateway) only adds what it knows about.
type LogFields struct {
	DeliveryID    *int64  // Snowflake id assigned to the inbound webhook delivery
	PullRequestID *int64  // Azure Repos pull request id
	RepositoryID  *string // Azure Repos repository id (GUID)
	WorkItemID    *int64  // Work item currently being reconciled
	EventType     *string // Service hook event type (e.g., "git.pullrequest.updated")
	Component     string  // Component name (OTel semantic convention style, e.g., "prsync.service.reconcile")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.DeliveryID != nil {
		result.DeliveryID = new.DeliveryID
	}
	if new.PullRequestID != nil {
		result.PullRequestID = new.PullRequestID
	}
	if new.RepositoryID != nil {
		result.RepositoryID = new.RepositoryID
	}
	if new.WorkItemID != nil {
		result.WorkItemID = new.WorkItemID
	}
	if new.EventType != nil {
		result.EventType = new.EventType
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{WorkItemID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}
