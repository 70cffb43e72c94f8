package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sells-group/competitor-intel/internal/jobs"
	"github.com/sells-group/competitor-intel/internal/model"
)

func TestSweep_ContinuesPastFailures(t *testing.T) {
	projects := []model.Project{
		{PageID: "p1", BusinessName: "Acme", Link: "https://acme.example"},
		{PageID: "p2", BusinessName: "NoLink"},
		{PageID: "p3", BusinessName: "Beta", Link: "https://beta.example"},
	}
	runs := &mockRuns{}
	runs.On("Submit", mock.Anything, projects[0]).Return("run-1", nil)
	runs.On("Submit", mock.Anything, projects[1]).Return("", &jobs.ValidationError{Fields: []string{"link"}})
	runs.On("Submit", mock.Anything, projects[2]).Return("run-3", errors.New("queue full"))

	res := sweep(t.Context(), runs, projects)

	assert.Equal(t, map[string]string{"p1": "run-1"}, res.Submitted)
	assert.Len(t, res.Skipped, 2)
	assert.Contains(t, res.Skipped["p2"], "missing link")
	runs.AssertNumberOfCalls(t, "Submit", 3)
}

func TestFormatSweep(t *testing.T) {
	var buf bytes.Buffer
	formatSweep(&buf, sweepResult{
		Submitted: map[string]string{"p1": "run-1"},
		Skipped:   map[string]string{"p2": "jobs: invalid project: missing link"},
	})
	assert.Contains(t, buf.String(), "Submitted: 1")
	assert.Contains(t, buf.String(), "p2: jobs: invalid project: missing link")
}
