package domain

import "time"

// SourceType tells how a registry entry was added.
type SourceType string

// Source types.
const (
	SourceURL      SourceType = "url"
	SourcePDF      SourceType = "pdf"
	SourceDetected SourceType = "detected"
)

// SourceStatus is the moderation state of a registry entry.
type SourceStatus string

// Source statuses.
const (
	StatusPending  SourceStatus = "pending"
	StatusApproved SourceStatus = "approved"
	StatusRejected SourceStatus = "rejected"
)

// ParseSourceStatus validates a status string.
func ParseSourceStatus(s string) (SourceStatus, error) {
	switch st := SourceStatus(s); st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, nil
	}
	return "", ErrInvalidStatus
}

// SourceRecord is a link observed in model output that is not on the official allow-list.
type SourceRecord struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	URL        string       `json:"url"`
	Type       SourceType   `json:"type"`
	Status     SourceStatus `json:"status"`
	DetectedAt time.Time    `json:"detectedAt"`
	Context    string       `json:"context,omitempty"`
}

// DetectedLink is a markdown link found in an answer.
type DetectedLink struct {
	Title string
	URL   string
}
