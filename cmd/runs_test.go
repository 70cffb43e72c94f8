package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/competitor-intel/internal/model"
)

var testNow = time.Date(2026, 10, 14, 10, 30, 0, 0, time.UTC)

func sampleRuns(now time.Time) []model.Run {
	started := now.Add(-3 * time.Minute)
	finished := now.Add(-1 * time.Minute)
	return []model.Run{
		{
			ID:           "abc12345-6789-0000-0000-000000000000",
			Project:      model.Project{BusinessName: "Acme Robotics", Link: "https://acme-robotics.example"},
			Status:       model.RunStatusSucceeded,
			ArtifactPath: "pdfs/Acme_Robotics_competitor_analysis.pdf",
			CreatedAt:    now.Add(-5 * time.Minute),
			StartedAt:    &started,
			FinishedAt:   &finished,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Project:   model.Project{BusinessName: "Beta Logistics Incorporated of North America"},
			Status:    model.RunStatusFailed,
			Error:     "discovery: no_json: the provider returned prose without any array",
			CreatedAt: now.Add(-1 * time.Hour),
		},
		{
			ID:        "0123",
			Project:   model.Project{BusinessName: "Gamma"},
			Status:    model.RunStatusPending,
			CreatedAt: now,
		},
	}
}

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2026, 10, 14, 10, 30, 0, 0, time.UTC)

	var buf bytes.Buffer
	formatRunsList(&buf, sampleRuns(now), now)

	output := buf.String()
	assert.Contains(t, output, "BUSINESS")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
	assert.Contains(t, output, "Acme Robotics")
	assert.Contains(t, output, "succeeded")
	assert.Contains(t, output, "2m0s")
	assert.Contains(t, output, "pdfs/Acme_Robotics_competitor_analysis.pdf")
	assert.Contains(t, output, "Beta Logistics Incorporated...")
	assert.Contains(t, output, "discovery: no_json: the provider retu...")
	assert.Contains(t, output, "2026-10-14 10:30")
}

func TestRunDuration(t *testing.T) {
	now := time.Date(2026, 10, 14, 10, 30, 0, 0, time.UTC)
	started := now.Add(-90 * time.Second)

	assert.Equal(t, "-", runDuration(model.Run{}, now))
	assert.Equal(t, "1m30s", runDuration(model.Run{StartedAt: &started}, now), "running uses now")
}

func TestWriteRun(t *testing.T) {
	now := time.Date(2026, 10, 14, 10, 30, 0, 0, time.UTC)
	run := sampleRuns(now)[0]

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeRun(&buf, &run, "json"))
		var got model.Run
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, model.RunStatusSucceeded, got.Status)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeRun(&buf, &run, "yaml"))
		assert.Contains(t, buf.String(), "status: succeeded")
		assert.Contains(t, buf.String(), "business_name: Acme Robotics")

		var got map[string]any
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, run.ID, got["id"])
	})

	t.Run("unknown", func(t *testing.T) {
		err := writeRun(&bytes.Buffer{}, &run, "xml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "xml")
	})
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}
