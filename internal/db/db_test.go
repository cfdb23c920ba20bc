package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStatusConstants(t *testing.T) {
	statuses := []string{RunStatusRunning, RunStatusCompleted, RunStatusFailed}
	for _, status := range statuses {
		assert.NotEmpty(t, status)
	}
}

func TestMatchRunType(t *testing.T) {
	run := MatchRun{
		Title:   "Engineer",
		Company: "TestCorp",
		Status:  RunStatusRunning,
	}

	assert.Equal(t, "TestCorp", run.Company)
	assert.Equal(t, "Engineer", run.Title)
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.Nil(t, run.CompletedAt)
}
