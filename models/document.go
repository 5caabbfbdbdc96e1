package models

// DocumentStatus describes how processing of a single page ended
type DocumentStatus string

const (
	// StatusOK means the page matched the template; Records may still be empty
	StatusOK DocumentStatus = "ok"
	// StatusEmpty means the page is usable but held nothing to extract (warning only)
	StatusEmpty DocumentStatus = "empty"
	// StatusFailed means the page could not be fetched or does not match the template
	StatusFailed DocumentStatus = "failed"
)

// DocumentResult is the outcome of fetching and extracting one URL
type DocumentResult struct {
	URL     string
	Status  DocumentStatus
	Records []Record
	Err     error // Reason for StatusEmpty and StatusFailed
}

// Warning returns the user-facing message for a non-OK result, or "" for StatusOK
func (d DocumentResult) Warning() string {
	switch d.Status {
	case StatusOK:
		return ""
	case StatusEmpty:
		return "No restaurants section found on " + d.URL + ": " + errText(d.Err)
	default:
		return "An error occurred while processing " + d.URL + ": " + errText(d.Err)
	}
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
