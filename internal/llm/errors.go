package llm

// IntegrationError indicates an LLM call exhausted its retries or returned
// unusable data.
type IntegrationError struct {
	Message string
	Cause   error
}

func (e *IntegrationError) Error() string {
	if e.Cause != nil {
		return "llm: " + e.Message + ": " + e.Cause.Error()
	}
	return "llm: " + e.Message
}

func (e *IntegrationError) Unwrap() error {
	return e.Cause
}
