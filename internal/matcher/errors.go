package matcher

// MatchingError reports a failed matching run together with the stage that
// failed.
type MatchingError struct {
	Stage   Stage
	Message string
	Cause   error
}

func (e *MatchingError) Error() string {
	msg := "matcher: " + string(e.Stage) + ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *MatchingError) Unwrap() error {
	return e.Cause
}
