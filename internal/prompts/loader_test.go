package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get("extraction.json", "extract-job-description")
	require.NoError(t, err)
	assert.NotEmpty(t, prompt)
	assert.Contains(t, prompt, "Extract structured information")
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get("extraction.json", "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestMustGet_ValidPrompt(t *testing.T) {
	ClearCache()

	assert.NotPanics(t, func() {
		prompt := MustGet("refinement.json", "refine-experience")
		assert.NotEmpty(t, prompt)
	})
}

func TestFormat(t *testing.T) {
	template := "Tailoring for {{.JobTitle}} at {{.JobCompany}}"
	data := map[string]string{
		"JobTitle":   "Backend Engineer",
		"JobCompany": "Acme Corp",
	}

	result := Format(template, data)
	assert.Equal(t, "Tailoring for Backend Engineer at Acme Corp", result)
}

func TestFormat_EmptyData(t *testing.T) {
	template := "Hello {{.Name}}"
	result := Format(template, map[string]string{})
	assert.Equal(t, template, result) // Placeholder remains
}

func TestList(t *testing.T) {
	ClearCache()

	keys, err := List("refinement.json")
	require.NoError(t, err)
	assert.Contains(t, keys, "refine-experience")
	assert.Contains(t, keys, "refine-batch")
}

func TestCaching(t *testing.T) {
	ClearCache()

	prompt1, err := Get("extraction.json", "extract-job-description")
	require.NoError(t, err)

	prompt2, err := Get("extraction.json", "extract-job-description")
	require.NoError(t, err)

	assert.Equal(t, prompt1, prompt2)
}
