package dto

import (
	"strings"

	"github.com/attec/attec-api/internal/model"
)

// Contact form bounds.
const (
	NameMinLen     = 2
	NameMaxLen     = 100
	CompanyMaxLen  = 100
	MessageMinLen  = 10
	MessageMaxLen  = 2000
	NotesMaxLen    = 5000
	AssigneeMaxLen = 255
)

// ContactSubmittedMessage is returned to the visitor after a submission.
const ContactSubmittedMessage = "Thank you for your message. We'll be in touch within 24 hours!"

// ContactRequest represents the public contact form.
type ContactRequest struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Company *string `json:"company,omitempty"`
	Message string  `json:"message"`
}

// Validate trims and checks the form.
func (r *ContactRequest) Validate() Fields {
	f := Fields{}
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Message = strings.TrimSpace(r.Message)

	f.length("name", r.Name, NameMinLen, NameMaxLen)
	f.email("email", r.Email)
	if r.Company != nil {
		company := strings.TrimSpace(*r.Company)
		r.Company = &company
		f.length("company", company, 0, CompanyMaxLen)
	}
	f.length("message", r.Message, MessageMinLen, MessageMaxLen)
	return f.Err()
}

// CompanyValue returns the company or "".
func (r *ContactRequest) CompanyValue() string {
	if r.Company == nil {
		return ""
	}
	return *r.Company
}

// ContactCreatedResponse is returned by POST /contact.
type ContactCreatedResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	SubmissionID string `json:"submission_id"`
}

// UpdateContactRequest represents PATCH /contact/submissions/{id}.
type UpdateContactRequest struct {
	Status     *string `json:"status,omitempty"`
	AssignedTo *string `json:"assigned_to,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

// ToUpdate validates the request and converts it to a model update.
func (r *UpdateContactRequest) ToUpdate() (model.ContactUpdate, Fields) {
	f := Fields{}
	var u model.ContactUpdate
	if r.Status != nil {
		st := model.ContactStatus(strings.ToLower(strings.TrimSpace(*r.Status)))
		if !st.IsValid() {
			f["status"] = "must be one of new, contacted, qualified, converted, archived"
		}
		u.Status = &st
	}
	if r.AssignedTo != nil {
		f.length("assigned_to", *r.AssignedTo, 0, AssigneeMaxLen)
		u.AssignedTo = r.AssignedTo
	}
	if r.Notes != nil {
		f.length("notes", *r.Notes, 0, NotesMaxLen)
		u.Notes = r.Notes
	}
	return u, f.Err()
}
