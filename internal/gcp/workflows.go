package gcp

import (
	"context"
	"encoding/json"
	"fmt"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
)

// WorkflowParent returns the resource name of a workflow.
func WorkflowParent(projectID, location, workflowID string) string {
	return fmt.Sprintf("projects/%s/locations/%s/workflows/%s", projectID, location, workflowID)
}

// WorkflowStarter starts an execution of the workflow at parent and returns
// its name.
type WorkflowStarter interface {
	Start(ctx context.Context, parent string, payload any) (string, error)
}

// ExecutionsStarter implements WorkflowStarter with the Workflows Executions
// API.
type ExecutionsStarter struct {
	Client *executions.Client
}

func (s ExecutionsStarter) Start(ctx context.Context, parent string, payload any) (string, error) {
	return TriggerWorkflow(ctx, s.Client, parent, payload)
}

// TriggerWorkflow starts an execution of the workflow at parent with payload
// as its JSON argument and returns the execution name.
func TriggerWorkflow(ctx context.Context, client *executions.Client, parent string, payload any) (string, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: parent,
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	exec, err := client.CreateExecution(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	return exec.GetName(), nil
}
