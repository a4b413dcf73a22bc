package azdo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/webapi"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/workitemtracking"

	"basegraph.app/prsync/internal/domain"
)

func workItemFromFields(id int, fields map[string]interface{}) *domain.WorkItem {
	return &domain.WorkItem{
		ID:    id,
		Type:  stringField(fields, fieldWorkItemType),
		State: stringField(fields, fieldState),
	}
}

func stringField(fields map[string]interface{}, name string) string {
	v, ok := fields[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func stateNames(states []workitemtracking.WorkItemStateColor) []string {
	names := make([]string, 0, len(states))
	for _, s := range states {
		if s.Name != nil && *s.Name != "" {
			names = append(names, *s.Name)
		}
	}
	return names
}

// refIDs keeps the order of the response and drops refs without a numeric id.
func refIDs(refs []webapi.ResourceRef) []int {
	ids := make([]int, 0, len(refs))
	for _, ref := range refs {
		if ref.Id == nil {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(*ref.Id))
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func statePatch(state string) *[]webapi.JsonPatchOperation {
	op := webapi.OperationValues.Add
	path := statePatchPath
	return &[]webapi.JsonPatchOperation{
		{
			Op:    &op,
			Path:  &path,
			Value: state,
		},
	}
}
