package model

import (
	"strings"
	"time"
)

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// IsTerminal reports whether no further transitions are allowed.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusSucceeded || s == RunStatusFailed
}

// Valid reports whether s is a known status.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusPending, RunStatusRunning, RunStatusSucceeded, RunStatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether a run in status s may move to next.
// pending may fail directly when it never reaches a worker.
func (s RunStatus) CanTransition(next RunStatus) bool {
	switch s {
	case RunStatusPending:
		return next == RunStatusRunning || next == RunStatusFailed
	case RunStatusRunning:
		return next == RunStatusSucceeded || next == RunStatusFailed
	}
	return false
}

// Project is the input metadata for a run, usually a tracker page.
type Project struct {
	PageID       string `json:"page_id,omitempty" yaml:"page_id,omitempty"`
	ProjectName  string `json:"project_name" yaml:"project_name"`
	BusinessName string `json:"business_name" yaml:"business_name" validate:"required"`
	Link         string `json:"link" yaml:"link" validate:"required"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
	Location     string `json:"location,omitempty" yaml:"location,omitempty"`
	DueDate      string `json:"due_date,omitempty" yaml:"due_date,omitempty"`
	Status       string `json:"status,omitempty" yaml:"status,omitempty"`
	Team         string `json:"team,omitempty" yaml:"team,omitempty"`
	Assignee     string `json:"assignee,omitempty" yaml:"assignee,omitempty"`
	Priority     string `json:"priority,omitempty" yaml:"priority,omitempty"`
	Approved     bool   `json:"approved,omitempty" yaml:"approved,omitempty"`
}

// NameOrDefault returns the project name, or "Project" when unset.
func (p Project) NameOrDefault() string {
	if strings.TrimSpace(p.ProjectName) == "" {
		return "Project"
	}
	return p.ProjectName
}

// ArtifactBase returns the file-name stem of the report: the project name
// with spaces replaced by underscores.
func (p Project) ArtifactBase() string {
	return strings.ReplaceAll(p.NameOrDefault(), " ", "_")
}

// Run is one end-to-end execution of the pipeline for one project.
type Run struct {
	ID           string     `json:"id" yaml:"id"`
	Project      Project    `json:"project" yaml:"project"`
	Status       RunStatus  `json:"status" yaml:"status"`
	ArtifactPath string     `json:"artifact_path,omitempty" yaml:"artifact_path,omitempty"`
	WorkbookPath string     `json:"workbook_path,omitempty" yaml:"workbook_path,omitempty"`
	Error        string     `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" yaml:"updated_at"`
	StartedAt    *time.Time `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

// RunUpdate carries the fields written alongside a status transition.
type RunUpdate struct {
	ArtifactPath string
	WorkbookPath string
	Error        string
}

// PhaseStatus represents the outcome of a pipeline phase.
type PhaseStatus string

const (
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusDegraded PhaseStatus = "degraded"
	PhaseStatusFailed   PhaseStatus = "failed"
)

// PhaseResult holds the timing and outcome of one pipeline phase.
type PhaseResult struct {
	Name     string         `json:"name"`
	Status   PhaseStatus    `json:"status"`
	Duration int64          `json:"duration_ms"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
