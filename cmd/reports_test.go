package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/competitor-intel/internal/artifact"
)

func TestFormatReports(t *testing.T) {
	mod := time.Date(2026, 10, 14, 8, 15, 0, 0, time.UTC)
	var buf bytes.Buffer
	formatReports(&buf, []artifact.Info{
		{Name: "Acme_Robotics_competitor_analysis.pdf", Size: 48213, ModTime: mod},
	})

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Acme_Robotics_competitor_analysis.pdf")
	assert.Contains(t, out, "48213")
	assert.Contains(t, out, "2026-10-14 08:15")
}
