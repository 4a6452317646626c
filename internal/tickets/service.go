package tickets

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/pradeepmisra81/trudesk/internal/models"
)

// Capabilities consumed by the ticket views. The rule table behind them
// lives outside this core.
const (
	CapPublicTickets = "ticket:public"
	CapNotesView     = "notes:view"
)

// ErrForbidden is returned when a user may not see a ticket.
var ErrForbidden = errors.New("ticket not visible to user")

// CapabilityChecker answers role capability questions for a user.
type CapabilityChecker interface {
	Can(user *models.User, capability string) bool
}

type ticketStore interface {
	List(ctx context.Context, q *models.TicketQuery) ([]models.Ticket, error)
	Count(ctx context.Context, q *models.TicketQuery) (int, error)
	GetByUID(ctx context.Context, uid int64) (*models.Ticket, error)
}

type groupStore interface {
	GroupsOfUser(ctx context.Context, userID int64) ([]models.Group, error)
	PublicGroups(ctx context.Context) ([]models.Group, error)
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)
}

// Service executes ticket queries with per-group visibility applied.
type Service struct {
	tickets ticketStore
	groups  groupStore
	caps    CapabilityChecker
	logger  *log.Logger
}

// Option customizes Service.
type Option func(*Service)

// NewService builds the ticket query service.
func NewService(tickets ticketStore, groups groupStore, caps CapabilityChecker, opts ...Option) *Service {
	s := &Service{
		tickets: tickets,
		groups:  groups,
		caps:    caps,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// ListResult is one page of tickets plus its pagination state.
type ListResult struct {
	Tickets    []models.Ticket `json:"tickets"`
	Pagination Pagination      `json:"pagination"`
}

// VisibleGroupIDs returns the group scope for a user: their own groups,
// plus every public group when they hold the public tickets capability.
func (s *Service) VisibleGroupIDs(ctx context.Context, user *models.User) ([]int64, error) {
	own, err := s.groups.GroupsOfUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("visible groups: %w", err)
	}
	seen := make(map[int64]bool, len(own))
	var ids []int64
	for _, g := range own {
		if !seen[g.ID] {
			seen[g.ID] = true
			ids = append(ids, g.ID)
		}
	}
	if s.caps.Can(user, CapPublicTickets) {
		public, err := s.groups.PublicGroups(ctx)
		if err != nil {
			return nil, fmt.Errorf("visible groups: %w", err)
		}
		for _, g := range public {
			if !seen[g.ID] {
				seen[g.ID] = true
				ids = append(ids, g.ID)
			}
		}
	}
	return ids, nil
}

// List runs a query for the user, scoping it to their visible groups and
// blanking notes they may not see.
func (s *Service) List(ctx context.Context, user *models.User, q *models.TicketQuery) (*ListResult, error) {
	scope, err := s.VisibleGroupIDs(ctx, user)
	if err != nil {
		return nil, err
	}
	q.GroupIDs = scope
	q.UserID = user.ID
	q.Normalize()

	page, err := s.tickets.List(ctx, q)
	if err != nil {
		return nil, err
	}
	total, err := s.tickets.Count(ctx, q)
	if err != nil {
		return nil, err
	}

	if !s.caps.Can(user, CapNotesView) {
		for i := range page {
			page[i].Notes = nil
		}
	}
	return &ListResult{
		Tickets:    page,
		Pagination: Paginate(total, q.Page, q.Limit),
	}, nil
}

// GetByUID loads one ticket for the user, enforcing group visibility. A
// ticket in a public group is visible with the public tickets capability
// even without membership.
func (s *Service) GetByUID(ctx context.Context, user *models.User, uid int64) (*models.Ticket, error) {
	ticket, err := s.tickets.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	member, err := s.groups.IsMember(ctx, ticket.GroupID, user.ID)
	if err != nil {
		return nil, err
	}
	if !member {
		public := ticket.Group != nil && ticket.Group.Public
		if !public || !s.caps.Can(user, CapPublicTickets) {
			return nil, ErrForbidden
		}
	}
	if !s.caps.Can(user, CapNotesView) {
		ticket.Notes = nil
	}
	return ticket, nil
}
