package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPlatform(t *testing.T) {
	cases := []struct {
		url  string
		want Platform
	}{
		{"https://boards.greenhouse.io/acme/jobs/123", PlatformGreenhouse},
		{"https://jobs.lever.co/acme/abc-def", PlatformLever},
		{"https://acme.wd1.myworkdayjobs.com/careers/job/123", PlatformWorkday},
		{"https://www.linkedin.com/jobs/view/123", PlatformLinkedIn},
		{"https://www.indeed.com/viewjob?jk=abc", PlatformIndeed},
		{"https://careers.acme.example/jobs/123", PlatformUnknown},
		{"://bad", PlatformUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DetectPlatform(tc.url), tc.url)
	}
}

func TestPlatformContentSelectors(t *testing.T) {
	assert.Contains(t, PlatformContentSelectors(PlatformGreenhouse), ".job__description")
	assert.Contains(t, PlatformContentSelectors(PlatformLever), ".posting-description")
	assert.Contains(t, PlatformContentSelectors(PlatformIndeed), "#jobDescriptionText")
	// Unknown platforms fall back to generic job selectors.
	assert.Contains(t, PlatformContentSelectors(PlatformUnknown), ".job-description")
}

func TestPlatformNoiseSelectors_IncludeCommon(t *testing.T) {
	for _, platform := range []Platform{PlatformGreenhouse, PlatformLever, PlatformWorkday, PlatformUnknown} {
		assert.Contains(t, PlatformNoiseSelectors(platform), "form", string(platform))
		assert.Contains(t, PlatformNoiseSelectors(platform), ".eeo-statement", string(platform))
	}
	assert.Contains(t, PlatformNoiseSelectors(PlatformGreenhouse), ".application--wrapper")
}
