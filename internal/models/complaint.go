package models

import "time"

type ComplaintStatus string

const (
	ComplaintSubmitted  ComplaintStatus = "Submitted"
	ComplaintInProgress ComplaintStatus = "In Progress"
	ComplaintResolved   ComplaintStatus = "Resolved"
)

type Complaint struct {
	ID        string          `json:"id"`
	UserID    int             `json:"-"`
	Query     string          `json:"query"`
	Image     string          `json:"image,omitempty"`
	Status    ComplaintStatus `json:"status"`
	CreatedAt time.Time       `json:"date"`
}

type CreateComplaintRequest struct {
	Query string `json:"query"`

	// Image is an optional data URI.
	Image string `json:"image,omitempty"`
}
