package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/pradeepmisra81/trudesk/internal/models"
)

// TicketTypeRepository manages ticket types and their priority lists.
type TicketTypeRepository struct {
	db *sqlx.DB
}

func NewTicketTypeRepository(db *sqlx.DB) *TicketTypeRepository {
	return &TicketTypeRepository{db: db}
}

// GetByName resolves a type by its display name, priorities included.
func (r *TicketTypeRepository) GetByName(ctx context.Context, name string) (*models.TicketType, error) {
	var t models.TicketType
	query := r.db.Rebind(`SELECT id, name FROM ticket_types WHERE name = ?`)
	if err := r.db.GetContext(ctx, &t, query, name); err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get type by name %s: %w", name, err)
	}
	if err := r.loadPriorities(ctx, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByID resolves a type by id, priorities included.
func (r *TicketTypeRepository) GetByID(ctx context.Context, id int64) (*models.TicketType, error) {
	var t models.TicketType
	query := r.db.Rebind(`SELECT id, name FROM ticket_types WHERE id = ?`)
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get type %d: %w", id, err)
	}
	if err := r.loadPriorities(ctx, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TicketTypeRepository) loadPriorities(ctx context.Context, t *models.TicketType) error {
	query := r.db.Rebind(`
		SELECT p.id, p.name
		FROM priorities p
		INNER JOIN type_priorities tp ON tp.priority_id = p.id
		WHERE tp.type_id = ?
		ORDER BY tp.ordering, p.id`)
	if err := r.db.SelectContext(ctx, &t.Priorities, query, t.ID); err != nil {
		return fmt.Errorf("load priorities for type %d: %w", t.ID, err)
	}
	return nil
}

// PriorityRepository resolves ticket priorities.
type PriorityRepository struct {
	db *sqlx.DB
}

func NewPriorityRepository(db *sqlx.DB) *PriorityRepository {
	return &PriorityRepository{db: db}
}

// GetByID resolves a priority by id.
func (r *PriorityRepository) GetByID(ctx context.Context, id int64) (*models.Priority, error) {
	var p models.Priority
	query := r.db.Rebind(`SELECT id, name FROM priorities WHERE id = ?`)
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get priority %d: %w", id, err)
	}
	return &p, nil
}
