package models

// FieldError is a per-field rejection reason returned by the remote system.
type FieldError struct {
	Field   string
	Message string
}

// SubmissionResult is the remote system's answer for one submitted scan.
type SubmissionResult struct {
	LocalID  string
	RemoteID string
	Success  bool
	Errors   []FieldError
}

// Accepted reports whether the remote system stored the scan.
func (r SubmissionResult) Accepted() bool {
	return r.Success && r.RemoteID != ""
}
