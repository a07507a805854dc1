package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoMessage is returned when the queue has no visible messages
var ErrNoMessage = errors.New("no messages in queue")

// Task types routed by the worker pools
const (
	TaskTypeScan     = "scan"
	TaskTypeEvaluate = "evaluate"
)

// TaskMessage is the envelope stored in the queue. The payload is one of
// ScanTask or EvaluateTask, selected by Type and validated at the boundary
// before entering a worker.
type TaskMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ScanTask asks the scan executor to probe one engine for one keyword.
// JobID references the pending ScanJob row created at enqueue time; when the
// queue redelivers the task after a failure, the executor creates a fresh job
// (terminal jobs are never reopened).
type ScanTask struct {
	JobID     string `json:"job_id"`
	KeywordID string `json:"keyword_id"`
	Engine    string `json:"engine"`
}

// EvaluateTask asks the evaluation engine to judge a persisted scan result
type EvaluateTask struct {
	ResultID  string `json:"result_id"`
	ProjectID string `json:"project_id"`
}

// NewScanTaskMessage wraps a ScanTask in a TaskMessage envelope
func NewScanTaskMessage(task ScanTask) (TaskMessage, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return TaskMessage{}, fmt.Errorf("failed to marshal scan task: %w", err)
	}
	return TaskMessage{Type: TaskTypeScan, Payload: payload}, nil
}

// NewEvaluateTaskMessage wraps an EvaluateTask in a TaskMessage envelope
func NewEvaluateTaskMessage(task EvaluateTask) (TaskMessage, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return TaskMessage{}, fmt.Errorf("failed to marshal evaluate task: %w", err)
	}
	return TaskMessage{Type: TaskTypeEvaluate, Payload: payload}, nil
}

// DecodeScanTask extracts a ScanTask payload
func (m TaskMessage) DecodeScanTask() (ScanTask, error) {
	if m.Type != TaskTypeScan {
		return ScanTask{}, fmt.Errorf("message type %q is not a scan task", m.Type)
	}
	var task ScanTask
	if err := json.Unmarshal(m.Payload, &task); err != nil {
		return ScanTask{}, fmt.Errorf("failed to decode scan task: %w", err)
	}
	if task.JobID == "" || task.KeywordID == "" || task.Engine == "" {
		return ScanTask{}, fmt.Errorf("scan task missing required fields")
	}
	return task, nil
}

// DecodeEvaluateTask extracts an EvaluateTask payload
func (m TaskMessage) DecodeEvaluateTask() (EvaluateTask, error) {
	if m.Type != TaskTypeEvaluate {
		return EvaluateTask{}, fmt.Errorf("message type %q is not an evaluate task", m.Type)
	}
	var task EvaluateTask
	if err := json.Unmarshal(m.Payload, &task); err != nil {
		return EvaluateTask{}, fmt.Errorf("failed to decode evaluate task: %w", err)
	}
	if task.ResultID == "" {
		return EvaluateTask{}, fmt.Errorf("evaluate task missing result_id")
	}
	return task, nil
}
