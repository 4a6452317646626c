package models

import "time"

// DefaultPageLimit is the page size used by the ticket views.
const DefaultPageLimit = 50

// TicketFilter is the free-form filter built from the filter view's query
// string. Raw carries the canonical page-stripped URL used to build
// pagination links.
type TicketFilter struct {
	UID        string     `json:"uid,omitempty"`
	Subject    string     `json:"subject,omitempty"`
	Issue      string     `json:"issue,omitempty"`
	DateStart  *time.Time `json:"date_start,omitempty"`
	DateEnd    *time.Time `json:"date_end,omitempty"`
	Status     []int      `json:"status,omitempty"`
	Priorities []int64    `json:"priorities,omitempty"`
	Groups     []int64    `json:"groups,omitempty"`
	Types      []int64    `json:"types,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	Assignees  []int64    `json:"assignees,omitempty"`
	Raw        string     `json:"raw,omitempty"`
}

// TicketQuery is the normalized query executed against the
// ticket store. GroupIDs is the visibility scope and always restricts the
// result set; an empty scope yields no tickets.
type TicketQuery struct {
	Limit        int
	Page         int // zero-based
	Status       []int
	AssignedSelf bool
	Unassigned   bool
	UserID       int64
	Filter       *TicketFilter
	GroupIDs     []int64
}

// Normalize applies the view defaults: a missing limit becomes the standard
// page size, and a limit of exactly 1 is treated as "no explicit limit".
func (q *TicketQuery) Normalize() {
	switch {
	case q.Limit == 1:
		q.Limit = 10
	case q.Limit <= 0:
		q.Limit = DefaultPageLimit
	}
	if q.Page < 0 {
		q.Page = 0
	}
}
