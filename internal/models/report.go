package models

import "time"

// ReportStatus tracks a water issue through triage.
type ReportStatus string

const (
	ReportPending    ReportStatus = "pending"
	ReportInProgress ReportStatus = "inProgress"
	ReportResolved   ReportStatus = "resolved"
)

// Valid reports whether s is a known status.
func (s ReportStatus) Valid() bool {
	switch s {
	case ReportPending, ReportInProgress, ReportResolved:
		return true
	}
	return false
}

// Report is a citizen-submitted water issue.
type Report struct {
	ID          int64        `json:"id"`
	UserID      int64        `json:"user_id"`
	IssueType   string       `json:"issue_type"`
	Location    string       `json:"location"`
	Description string       `json:"description"`
	Latitude    *float64     `json:"latitude,omitempty"`
	Longitude   *float64     `json:"longitude,omitempty"`
	ImageURL    string       `json:"image_url,omitempty"`
	Status      ReportStatus `json:"status"`
	Comments    []string     `json:"comments,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// IssueImage is an uploaded photo attached to reports by URL.
type IssueImage struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	FileName   string    `json:"file_name"`
	StoredPath string    `json:"-"`
	MimeType   string    `json:"mime_type"`
	Size       int64     `json:"size"`
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"created_at"`
}
