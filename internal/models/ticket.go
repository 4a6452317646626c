package models

import (
	"time"
)

// Ticket statuses. The numeric values are part of the URL and filter
// contract, do not reorder.
const (
	StatusNew     = 0
	StatusOpen    = 1
	StatusPending = 2
	StatusClosed  = 3
)

// StatusName returns the display name for a ticket status.
func StatusName(status int) string {
	switch status {
	case StatusNew:
		return "New"
	case StatusOpen:
		return "Open"
	case StatusPending:
		return "Pending"
	case StatusClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Ticket is a support request with its audit history and attachments.
type Ticket struct {
	ID         int64     `json:"id" db:"id"`
	UID        int64     `json:"uid" db:"uid"`
	OwnerID    int64     `json:"owner_id" db:"owner_id"`
	GroupID    int64     `json:"group_id" db:"group_id"`
	TypeID     int64     `json:"type_id" db:"type_id"`
	PriorityID int64     `json:"priority_id" db:"priority_id"`
	Status     int       `json:"status" db:"status"`
	AssigneeID *int64    `json:"assignee_id,omitempty" db:"assignee_id"`
	Subject    string    `json:"subject" db:"subject"`
	Issue      string    `json:"issue" db:"issue"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`

	History     []HistoryEntry `json:"history,omitempty"`
	Attachments []Attachment   `json:"attachments,omitempty"`
	Notes       []Note         `json:"notes,omitempty"`
	Comments    []Comment      `json:"comments,omitempty"`
	Tags        []string       `json:"tags,omitempty"`

	// Joined fields
	Group    *Group      `json:"group,omitempty"`
	Type     *TicketType `json:"type,omitempty"`
	Priority *Priority   `json:"priority,omitempty"`
	Owner    *User       `json:"owner,omitempty"`
}

// History actions recorded by this core.
const (
	HistoryTicketCreated   = "ticket:created"
	HistoryAttachmentAdded = "ticket:added:attachment"
)

// HistoryEntry is an immutable audit record appended to a ticket.
type HistoryEntry struct {
	ID          int64     `json:"id" db:"id"`
	TicketID    int64     `json:"-" db:"ticket_id"`
	Action      string    `json:"action" db:"action"`
	Description string    `json:"description" db:"description"`
	OwnerID     int64     `json:"owner_id" db:"owner_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Attachment is a file stored on disk and referenced by a ticket.
type Attachment struct {
	ID       int64  `json:"id" db:"id"`
	TicketID int64  `json:"-" db:"ticket_id"`
	OwnerID  int64  `json:"owner_id" db:"owner_id"`
	Name     string `json:"name" db:"name"`
	Path     string `json:"path" db:"path"`
	MimeType string `json:"mimetype" db:"mimetype"`
}

// Note is an internal remark visible only under the notes:view capability.
type Note struct {
	ID        int64     `json:"id" db:"id"`
	TicketID  int64     `json:"-" db:"ticket_id"`
	OwnerID   int64     `json:"owner_id" db:"owner_id"`
	Note      string    `json:"note" db:"note"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Comment is a public reply on a ticket.
type Comment struct {
	ID        int64     `json:"id" db:"id"`
	TicketID  int64     `json:"-" db:"ticket_id"`
	OwnerID   int64     `json:"owner_id" db:"owner_id"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TicketType categorizes tickets and declares the priorities valid for it.
type TicketType struct {
	ID         int64      `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	Priorities []Priority `json:"priorities,omitempty"`
}

// Priority is a ticket priority level.
type Priority struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Group is a named collection of users sharing ticket visibility.
type Group struct {
	ID     int64  `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	Public bool   `json:"public" db:"public"`
}

// User is a helpdesk account. Authentication lives outside this core; only
// identity and role are consumed here.
type User struct {
	ID       int64  `json:"id" db:"id"`
	Username string `json:"username" db:"username"`
	FullName string `json:"full_name" db:"full_name"`
	Email    string `json:"email" db:"email"`
	Role     string `json:"role" db:"role"`
}
