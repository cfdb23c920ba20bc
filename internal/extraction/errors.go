package extraction

// Error represents a failure while extracting a job description.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return "extraction: " + e.Message + ": " + e.Cause.Error()
	}
	return "extraction: " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}
