package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pradeepmisra81/trudesk/internal/models"
)

// TicketRepository persists tickets with their history and attachments.
type TicketRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewTicketRepository(db *sqlx.DB) *TicketRepository {
	return &TicketRepository{db: db, now: time.Now}
}

// Create persists a new ticket together with its initial history entries in
// one transaction. The display uid is assigned from the current maximum;
// ID, UID and timestamps are filled in on the passed ticket.
func (r *TicketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ticket create: %w", err)
	}
	defer tx.Rollback()

	// Display uids start at 1000.
	var uid int64
	if err := tx.GetContext(ctx, &uid, `SELECT COALESCE(MAX(uid), 999) + 1 FROM tickets`); err != nil {
		return fmt.Errorf("next ticket uid: %w", err)
	}
	ticket.UID = uid

	now := r.now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now

	ticket.ID, err = insertReturningID(ctx, tx, r.db.DriverName(), `
		INSERT INTO tickets (uid, owner_id, group_id, type_id, priority_id, status,
			assignee_id, subject, issue, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ticket.UID, ticket.OwnerID, ticket.GroupID, ticket.TypeID, ticket.PriorityID,
		ticket.Status, ticket.AssigneeID, ticket.Subject, ticket.Issue,
		ticket.CreatedAt, ticket.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}

	for i := range ticket.History {
		entry := &ticket.History[i]
		entry.TicketID = ticket.ID
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
		entry.ID, err = insertReturningID(ctx, tx, r.db.DriverName(), `
			INSERT INTO ticket_history (ticket_id, action, description, owner_id, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			entry.TicketID, entry.Action, entry.Description, entry.OwnerID, entry.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert ticket history: %w", err)
		}
	}

	for _, tag := range ticket.Tags {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO ticket_tags (ticket_id, tag) VALUES (?, ?)`),
			ticket.ID, tag); err != nil {
			return fmt.Errorf("insert ticket tag: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ticket create: %w", err)
	}
	return nil
}

// GetByUID loads a ticket by display uid with every relation the detail
// view needs.
func (r *TicketRepository) GetByUID(ctx context.Context, uid int64) (*models.Ticket, error) {
	return r.getOne(ctx, "t.uid = ?", uid)
}

// GetByID loads a ticket by primary key with relations.
func (r *TicketRepository) GetByID(ctx context.Context, id int64) (*models.Ticket, error) {
	return r.getOne(ctx, "t.id = ?", id)
}

func (r *TicketRepository) getOne(ctx context.Context, cond string, arg interface{}) (*models.Ticket, error) {
	var row ticketRow
	query := r.db.Rebind(`
		SELECT t.id, t.uid, t.owner_id, t.group_id, t.type_id, t.priority_id,
			t.status, t.assignee_id, t.subject, t.issue, t.created_at, t.updated_at,
			g.name AS group_name, g.public AS group_public,
			tt.name AS type_name, p.name AS priority_name,
			u.username AS owner_username, u.full_name AS owner_full_name,
			u.email AS owner_email, u.role AS owner_role
		FROM tickets t
		INNER JOIN groups g ON g.id = t.group_id
		INNER JOIN ticket_types tt ON tt.id = t.type_id
		INNER JOIN priorities p ON p.id = t.priority_id
		INNER JOIN users u ON u.id = t.owner_id
		WHERE ` + cond)
	if err := r.db.GetContext(ctx, &row, query, arg); err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get ticket: %w", err)
	}

	ticket := row.toTicket()
	if err := r.loadRelations(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *TicketRepository) loadRelations(ctx context.Context, t *models.Ticket) error {
	var err error
	load := func(dest interface{}, query string) {
		if err != nil {
			return
		}
		if e := r.db.SelectContext(ctx, dest, r.db.Rebind(query), t.ID); e != nil {
			err = fmt.Errorf("ticket %d relations: %w", t.ID, e)
		}
	}

	load(&t.History, `
		SELECT id, ticket_id, action, description, owner_id, created_at
		FROM ticket_history WHERE ticket_id = ? ORDER BY created_at, id`)
	load(&t.Attachments, `
		SELECT id, ticket_id, owner_id, name, path, mimetype
		FROM ticket_attachments WHERE ticket_id = ? ORDER BY id`)
	load(&t.Notes, `
		SELECT id, ticket_id, owner_id, note, created_at
		FROM ticket_notes WHERE ticket_id = ? ORDER BY created_at, id`)
	load(&t.Comments, `
		SELECT id, ticket_id, owner_id, comment, created_at
		FROM ticket_comments WHERE ticket_id = ? ORDER BY created_at, id`)
	load(&t.Tags, `
		SELECT tag FROM ticket_tags WHERE ticket_id = ? ORDER BY tag`)
	return err
}

// AddAttachment appends an attachment plus its history entry and bumps the
// ticket's updated time, all in one transaction. The reloaded ticket is
// returned for the HTTP response.
func (r *TicketRepository) AddAttachment(ctx context.Context, ticketID int64, att models.Attachment, entry models.HistoryEntry) (*models.Ticket, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin add attachment: %w", err)
	}
	defer tx.Rollback()

	now := r.now()
	att.TicketID = ticketID
	if _, err := insertReturningID(ctx, tx, r.db.DriverName(), `
		INSERT INTO ticket_attachments (ticket_id, owner_id, name, path, mimetype)
		VALUES (?, ?, ?, ?, ?)`,
		att.TicketID, att.OwnerID, att.Name, att.Path, att.MimeType); err != nil {
		return nil, fmt.Errorf("insert attachment: %w", err)
	}

	entry.TicketID = ticketID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if _, err := insertReturningID(ctx, tx, r.db.DriverName(), `
		INSERT INTO ticket_history (ticket_id, action, description, owner_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		entry.TicketID, entry.Action, entry.Description, entry.OwnerID, entry.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert attachment history: %w", err)
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE tickets SET updated_at = ? WHERE id = ?`), now, ticketID); err != nil {
		return nil, fmt.Errorf("touch ticket: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add attachment: %w", err)
	}
	return r.GetByID(ctx, ticketID)
}

// List executes a normalized ticket query and returns the matching page.
// An empty group scope matches nothing.
func (r *TicketRepository) List(ctx context.Context, q *models.TicketQuery) ([]models.Ticket, error) {
	if len(q.GroupIDs) == 0 {
		return nil, nil
	}
	where, args := buildTicketConditions(q)
	query := `
		SELECT t.id, t.uid, t.owner_id, t.group_id, t.type_id, t.priority_id,
			t.status, t.assignee_id, t.subject, t.issue, t.created_at, t.updated_at,
			g.name AS group_name, g.public AS group_public,
			tt.name AS type_name, p.name AS priority_name,
			u.username AS owner_username, u.full_name AS owner_full_name,
			u.email AS owner_email, u.role AS owner_role
		FROM tickets t
		INNER JOIN groups g ON g.id = t.group_id
		INNER JOIN ticket_types tt ON tt.id = t.type_id
		INNER JOIN priorities p ON p.id = t.priority_id
		INNER JOIN users u ON u.id = t.owner_id
		WHERE ` + where + `
		ORDER BY t.uid DESC
		LIMIT ? OFFSET ?`
	args = append(args, q.Limit, q.Page*q.Limit)

	expanded, expandedArgs, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("expand ticket query: %w", err)
	}

	var rows []ticketRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(expanded), expandedArgs...); err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}

	tickets := make([]models.Ticket, 0, len(rows))
	for i := range rows {
		tickets = append(tickets, *rows[i].toTicket())
	}
	return tickets, nil
}

// Count returns the total number of tickets matching the query, ignoring
// pagination.
func (r *TicketRepository) Count(ctx context.Context, q *models.TicketQuery) (int, error) {
	if len(q.GroupIDs) == 0 {
		return 0, nil
	}
	where, args := buildTicketConditions(q)
	query := `SELECT COUNT(*) FROM tickets t WHERE ` + where

	expanded, expandedArgs, err := sqlx.In(query, args...)
	if err != nil {
		return 0, fmt.Errorf("expand ticket count: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(expanded), expandedArgs...); err != nil {
		return 0, fmt.Errorf("count tickets: %w", err)
	}
	return total, nil
}

// buildTicketConditions renders the WHERE clause shared by List and Count.
// Slice arguments are left for sqlx.In to expand.
func buildTicketConditions(q *models.TicketQuery) (string, []interface{}) {
	conds := []string{"t.group_id IN (?)"}
	args := []interface{}{q.GroupIDs}

	statuses := q.Status
	if q.Filter != nil && len(q.Filter.Status) > 0 {
		statuses = q.Filter.Status
	}
	if len(statuses) > 0 {
		conds = append(conds, "t.status IN (?)")
		args = append(args, statuses)
	}

	if q.AssignedSelf && q.UserID > 0 {
		conds = append(conds, "t.assignee_id = ?")
		args = append(args, q.UserID)
	}
	if q.Unassigned {
		conds = append(conds, "t.assignee_id IS NULL")
	}

	if f := q.Filter; f != nil {
		if f.UID != "" {
			if uid, err := strconv.ParseInt(f.UID, 10, 64); err == nil {
				conds = append(conds, "t.uid = ?")
				args = append(args, uid)
			}
		}
		if f.Subject != "" {
			conds = append(conds, "LOWER(t.subject) LIKE ?")
			args = append(args, "%"+strings.ToLower(f.Subject)+"%")
		}
		if f.Issue != "" {
			conds = append(conds, "LOWER(t.issue) LIKE ?")
			args = append(args, "%"+strings.ToLower(f.Issue)+"%")
		}
		if f.DateStart != nil {
			conds = append(conds, "t.created_at >= ?")
			args = append(args, *f.DateStart)
		}
		if f.DateEnd != nil {
			conds = append(conds, "t.created_at <= ?")
			args = append(args, *f.DateEnd)
		}
		if len(f.Priorities) > 0 {
			conds = append(conds, "t.priority_id IN (?)")
			args = append(args, f.Priorities)
		}
		if len(f.Groups) > 0 {
			conds = append(conds, "t.group_id IN (?)")
			args = append(args, f.Groups)
		}
		if len(f.Types) > 0 {
			conds = append(conds, "t.type_id IN (?)")
			args = append(args, f.Types)
		}
		if len(f.Assignees) > 0 {
			conds = append(conds, "t.assignee_id IN (?)")
			args = append(args, f.Assignees)
		}
		if len(f.Tags) > 0 {
			conds = append(conds, "EXISTS (SELECT 1 FROM ticket_tags tg WHERE tg.ticket_id = t.id AND tg.tag IN (?))")
			args = append(args, f.Tags)
		}
	}

	return strings.Join(conds, " AND "), args
}

// ticketRow is the scan target for ticket selects with joined names.
type ticketRow struct {
	models.Ticket
	GroupName     string `db:"group_name"`
	GroupPublic   bool   `db:"group_public"`
	TypeName      string `db:"type_name"`
	PriorityName  string `db:"priority_name"`
	OwnerUsername string `db:"owner_username"`
	OwnerFullName string `db:"owner_full_name"`
	OwnerEmail    string `db:"owner_email"`
	OwnerRole     string `db:"owner_role"`
}

func (row *ticketRow) toTicket() *models.Ticket {
	t := row.Ticket
	t.Group = &models.Group{ID: t.GroupID, Name: row.GroupName, Public: row.GroupPublic}
	t.Type = &models.TicketType{ID: t.TypeID, Name: row.TypeName}
	t.Priority = &models.Priority{ID: t.PriorityID, Name: row.PriorityName}
	t.Owner = &models.User{
		ID:       t.OwnerID,
		Username: row.OwnerUsername,
		FullName: row.OwnerFullName,
		Email:    row.OwnerEmail,
		Role:     row.OwnerRole,
	}
	return &t
}
