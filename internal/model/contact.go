package model

import (
	"slices"
	"time"
)

// ContactStatus tracks a submission through the sales pipeline.
type ContactStatus string

// ContactStatus constants.
const (
	ContactStatusNew       ContactStatus = "new"
	ContactStatusContacted ContactStatus = "contacted"
	ContactStatusQualified ContactStatus = "qualified"
	ContactStatusConverted ContactStatus = "converted"
	ContactStatusArchived  ContactStatus = "archived"
)

// ValidContactStatuses lists every status in pipeline order.
var ValidContactStatuses = []ContactStatus{
	ContactStatusNew,
	ContactStatusContacted,
	ContactStatusQualified,
	ContactStatusConverted,
	ContactStatusArchived,
}

// IsValid reports whether s is a known status.
func (s ContactStatus) IsValid() bool {
	return slices.Contains(ValidContactStatuses, s)
}

// ContactSubmission is a message left through the public contact form.
type ContactSubmission struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	Company     *string       `json:"company"`
	Message     string        `json:"message"`
	Status      ContactStatus `json:"status"`
	IPAddress   string        `json:"ip_address,omitempty"`
	UserAgent   string        `json:"user_agent,omitempty"`
	AssignedTo  *string       `json:"assigned_to"`
	Notes       *string       `json:"notes"`
	SubmittedAt time.Time     `json:"submitted_at"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// ContactUpdate holds the admin-editable fields of a submission.
// Nil fields are left unchanged.
type ContactUpdate struct {
	Status     *ContactStatus
	AssignedTo *string
	Notes      *string
}

// IsEmpty reports whether the update changes nothing.
func (u ContactUpdate) IsEmpty() bool {
	return u.Status == nil && u.AssignedTo == nil && u.Notes == nil
}

// Apply copies the non-nil fields onto s.
func (u ContactUpdate) Apply(s *ContactSubmission) {
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.AssignedTo != nil {
		s.AssignedTo = u.AssignedTo
	}
	if u.Notes != nil {
		s.Notes = u.Notes
	}
}

// ContactFilter selects submissions for listing.
type ContactFilter struct {
	Statuses []ContactStatus
	Skip     int
	Limit    int
}
