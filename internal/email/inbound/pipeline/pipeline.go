package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/pradeepmisra81/trudesk/internal/events"
	"github.com/pradeepmisra81/trudesk/internal/models"
	"github.com/pradeepmisra81/trudesk/internal/repository"
)

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	CreateFromEmail(ctx context.Context, email string) (*models.User, *models.Group, error)
}

type groupStore interface {
	GroupsOfUser(ctx context.Context, userID int64) ([]models.Group, error)
}

type typeStore interface {
	GetByName(ctx context.Context, name string) (*models.TicketType, error)
	GetByID(ctx context.Context, id int64) (*models.TicketType, error)
}

type priorityStore interface {
	GetByID(ctx context.Context, id int64) (*models.Priority, error)
}

type ticketCreator interface {
	Create(ctx context.Context, ticket *models.Ticket) error
}

type emitter interface {
	Emit(event events.Event)
}

// Defaults carries the per-cycle resolution state. Type and priority ids
// resolved during a batch are cached here and handed back so the next cycle
// skips the lookups.
type Defaults struct {
	TicketType    string
	TypeID        int64
	PriorityID    int64
	CreateAccount bool
}

// BatchResult summarizes one processed batch.
type BatchResult struct {
	Created int
	Dropped int
}

// Processor resolves inbound messages into tickets.
type Processor struct {
	users      userStore
	groups     groupStore
	types      typeStore
	priorities priorityStore
	tickets    ticketCreator
	events     emitter
	logger     *log.Logger
}

// Option customizes Processor.
type Option func(*Processor)

// New builds an ingestion processor over the given stores.
func New(users userStore, groups groupStore, types typeStore, priorities priorityStore, tickets ticketCreator, opts ...Option) *Processor {
	p := &Processor{
		users:      users,
		groups:     groups,
		types:      types,
		priorities: priorities,
		tickets:    tickets,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithLogger overrides the logger used for ingestion diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithEmitter wires the event bus notified on ticket creation.
func WithEmitter(e emitter) Option {
	return func(p *Processor) {
		p.events = e
	}
}

// ProcessBatch runs every message through the resolution pipeline. A
// message that fails is dropped and logged; the batch carries on. The
// updated defaults are returned so resolved ids survive the cycle.
func (p *Processor) ProcessBatch(ctx context.Context, messages []*models.InboundMessage, defaults Defaults) (Defaults, BatchResult) {
	var result BatchResult
	for _, msg := range messages {
		if ctx.Err() != nil {
			break
		}
		if !msg.Complete() {
			p.logf("ingest: dropping incomplete message uid=%d", uidOf(msg))
			result.Dropped++
			continue
		}
		updated, err := p.process(ctx, msg, defaults)
		defaults = updated
		if err != nil {
			p.logf("ingest: dropping message uid=%d from=%s: %v", msg.UID, msg.From, err)
			result.Dropped++
			continue
		}
		result.Created++
	}
	return defaults, result
}

// process resolves one message step by step and creates its ticket. The
// defaults come back updated even on failure so cached ids are not lost.
func (p *Processor) process(ctx context.Context, msg *models.InboundMessage, defaults Defaults) (Defaults, error) {
	if err := p.resolveOwner(ctx, msg, defaults.CreateAccount); err != nil {
		return defaults, err
	}
	if err := p.resolveGroup(ctx, msg); err != nil {
		return defaults, err
	}
	var err error
	if defaults, err = p.resolveType(ctx, msg, defaults); err != nil {
		return defaults, err
	}
	if defaults, err = p.resolvePriority(ctx, msg, defaults); err != nil {
		return defaults, err
	}

	ticket := &models.Ticket{
		OwnerID:    msg.Owner.ID,
		GroupID:    msg.Group.ID,
		TypeID:     msg.Type.ID,
		PriorityID: msg.Priority.ID,
		Status:     models.StatusNew,
		Subject:    msg.Subject,
		Issue:      msg.Body,
		History: []models.HistoryEntry{{
			Action:      models.HistoryTicketCreated,
			Description: "Ticket was created.",
			OwnerID:     msg.Owner.ID,
		}},
	}
	if err := p.tickets.Create(ctx, ticket); err != nil {
		return defaults, fmt.Errorf("create ticket: %w", err)
	}

	if p.events != nil {
		p.events.Emit(events.TicketCreated(ticket))
	}
	return defaults, nil
}

// resolveOwner finds or provisions the sender's account. A provisioned
// account carries its group along so the group step is already done.
func (p *Processor) resolveOwner(ctx context.Context, msg *models.InboundMessage, createAccount bool) error {
	if msg.Owner != nil {
		return nil
	}
	user, err := p.users.GetByEmail(ctx, msg.From)
	switch {
	case err == nil:
		msg.Owner = user
		return nil
	case errors.Is(err, repository.ErrNotFound):
		if !createAccount {
			return fmt.Errorf("no account for sender %s", msg.From)
		}
		user, group, err := p.users.CreateFromEmail(ctx, msg.From)
		if err != nil {
			return fmt.Errorf("provision account for %s: %w", msg.From, err)
		}
		msg.Owner = user
		msg.Group = group
		return nil
	default:
		return fmt.Errorf("lookup sender %s: %w", msg.From, err)
	}
}

// resolveGroup picks the owner's first group unless provisioning already
// set one.
func (p *Processor) resolveGroup(ctx context.Context, msg *models.InboundMessage) error {
	if msg.Group != nil {
		return nil
	}
	groups, err := p.groups.GroupsOfUser(ctx, msg.Owner.ID)
	if err != nil {
		return fmt.Errorf("groups of %s: %w", msg.From, err)
	}
	if len(groups) == 0 {
		return fmt.Errorf("sender %s belongs to no group", msg.From)
	}
	msg.Group = &groups[0]
	return nil
}

// resolveType resolves the configured default type once and caches the id
// in the defaults for the rest of the cycle. The stock "Issue" default is
// looked up by name; any other configured value is taken as a type id.
func (p *Processor) resolveType(ctx context.Context, msg *models.InboundMessage, defaults Defaults) (Defaults, error) {
	if defaults.TypeID > 0 {
		t, err := p.types.GetByID(ctx, defaults.TypeID)
		if err != nil {
			return defaults, fmt.Errorf("ticket type %d: %w", defaults.TypeID, err)
		}
		msg.Type = t
		return defaults, nil
	}
	name := defaults.TicketType
	if name == "" {
		name = "Issue"
	}
	var t *models.TicketType
	var err error
	if name == "Issue" {
		t, err = p.types.GetByName(ctx, name)
	} else {
		id, parseErr := strconv.ParseInt(name, 10, 64)
		if parseErr != nil {
			return defaults, fmt.Errorf("ticket type %q is not an id", name)
		}
		t, err = p.types.GetByID(ctx, id)
	}
	if err != nil {
		return defaults, fmt.Errorf("ticket type %q: %w", name, err)
	}
	msg.Type = t
	defaults.TypeID = t.ID
	return defaults, nil
}

// resolvePriority uses the configured priority when set, otherwise the
// first priority of the resolved type, caching the choice.
func (p *Processor) resolvePriority(ctx context.Context, msg *models.InboundMessage, defaults Defaults) (Defaults, error) {
	if defaults.PriorityID > 0 {
		pr, err := p.priorities.GetByID(ctx, defaults.PriorityID)
		if err != nil {
			return defaults, fmt.Errorf("priority %d: %w", defaults.PriorityID, err)
		}
		msg.Priority = pr
		return defaults, nil
	}
	if msg.Type == nil || len(msg.Type.Priorities) == 0 {
		return defaults, fmt.Errorf("type %s has no priorities", typeName(msg.Type))
	}
	pr := msg.Type.Priorities[0]
	msg.Priority = &pr
	defaults.PriorityID = pr.ID
	return defaults, nil
}

func (p *Processor) logf(format string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}

func uidOf(msg *models.InboundMessage) uint32 {
	if msg == nil {
		return 0
	}
	return msg.UID
}

func typeName(t *models.TicketType) string {
	if t == nil {
		return "unknown"
	}
	return t.Name
}
