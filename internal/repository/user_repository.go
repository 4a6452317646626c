package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/pradeepmisra81/trudesk/internal/models"
)

// UserRepository manages helpdesk accounts.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByEmail looks up a user by email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := r.db.Rebind(`
		SELECT id, username, full_name, email, role
		FROM users
		WHERE LOWER(email) = LOWER(?)`)
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &user, nil
}

// GetByID looks up a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	query := r.db.Rebind(`
		SELECT id, username, full_name, email, role
		FROM users
		WHERE id = ?`)
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &user, nil
}

// CreateFromEmail provisions a lightweight account for a mail sender
// together with its default group, in one transaction. The username is the
// full address and the display name its local part.
func (r *UserRepository) CreateFromEmail(ctx context.Context, email string) (*models.User, *models.Group, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, nil, fmt.Errorf("invalid email address %q", email)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin create-from-email: %w", err)
	}
	defer tx.Rollback()

	user := &models.User{
		Username: email,
		FullName: email[:strings.Index(email, "@")],
		Email:    email,
		Role:     "user",
	}
	user.ID, err = insertReturningID(ctx, tx, r.db.DriverName(), `
		INSERT INTO users (username, full_name, email, role)
		VALUES (?, ?, ?, ?)`,
		user.Username, user.FullName, user.Email, user.Role)
	if err != nil {
		return nil, nil, fmt.Errorf("insert user: %w", err)
	}

	group := &models.Group{Name: email, Public: false}
	group.ID, err = insertReturningID(ctx, tx, r.db.DriverName(), `
		INSERT INTO groups (name, public)
		VALUES (?, ?)`,
		group.Name, group.Public)
	if err != nil {
		return nil, nil, fmt.Errorf("insert group: %w", err)
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO group_members (group_id, user_id)
		VALUES (?, ?)`),
		group.ID, user.ID); err != nil {
		return nil, nil, fmt.Errorf("insert group member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit create-from-email: %w", err)
	}
	return user, group, nil
}
