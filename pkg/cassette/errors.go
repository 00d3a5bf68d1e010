package cassette

import "fmt"

// MissingRecordingError is returned on a playback miss when neither
// AllowMissing nor a fallback is configured.
type MissingRecordingError struct {
	Method      string
	URL         string
	Fingerprint string
}

func (e *MissingRecordingError) Error() string {
	return fmt.Sprintf("no recording found for %s %s (fingerprint %s)", e.Method, e.URL, e.Fingerprint)
}

// Hint returns a user-friendly suggestion for resolving this error.
func (e *MissingRecordingError) Hint() string {
	return "Re-run in record mode to capture this request, or set AllowMissing / a fallback."
}
