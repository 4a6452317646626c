package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/pradeepmisra81/trudesk/internal/models"
)

// GroupRepository manages groups and their memberships.
type GroupRepository struct {
	db *sqlx.DB
}

func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// GroupsOfUser returns every group the user belongs to.
func (r *GroupRepository) GroupsOfUser(ctx context.Context, userID int64) ([]models.Group, error) {
	var groups []models.Group
	query := r.db.Rebind(`
		SELECT g.id, g.name, g.public
		FROM groups g
		INNER JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = ?
		ORDER BY g.name`)
	if err := r.db.SelectContext(ctx, &groups, query, userID); err != nil {
		return nil, fmt.Errorf("groups of user %d: %w", userID, err)
	}
	return groups, nil
}

// PublicGroups returns all groups marked public.
func (r *GroupRepository) PublicGroups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.SelectContext(ctx, &groups, `
		SELECT id, name, public
		FROM groups
		WHERE public = TRUE
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("public groups: %w", err)
	}
	return groups, nil
}

// IsMember reports whether the user belongs to the group.
func (r *GroupRepository) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	var count int
	query := r.db.Rebind(`
		SELECT COUNT(*) FROM group_members
		WHERE group_id = ? AND user_id = ?`)
	if err := r.db.GetContext(ctx, &count, query, groupID, userID); err != nil {
		return false, fmt.Errorf("group membership: %w", err)
	}
	return count > 0, nil
}
