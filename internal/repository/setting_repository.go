package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/pradeepmisra81/trudesk/internal/models"
)

// SettingRepository reads the name/value settings table.
type SettingRepository struct {
	db *sqlx.DB
}

func NewSettingRepository(db *sqlx.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// GetAll returns every setting row.
func (r *SettingRepository) GetAll(ctx context.Context) ([]models.Setting, error) {
	var settings []models.Setting
	err := r.db.SelectContext(ctx, &settings, `SELECT name, value FROM settings ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

// Get returns a single setting by name.
func (r *SettingRepository) Get(ctx context.Context, name string) (*models.Setting, error) {
	var s models.Setting
	query := r.db.Rebind(`SELECT name, value FROM settings WHERE name = ?`)
	if err := r.db.GetContext(ctx, &s, query, name); err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load setting %s: %w", name, err)
	}
	return &s, nil
}
