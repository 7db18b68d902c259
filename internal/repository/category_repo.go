package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"mailnight/internal/model"
)

type CategoryRepository struct {
	db *pgxpool.Pool
}

func NewCategoryRepository(db *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) FindByID(ctx context.Context, id int) (*model.Category, error) {
	query := `
        SELECT id, name, color, icon, is_system, user_id, created_at
        FROM email_categories
        WHERE id = $1
    `
	var c model.Category
	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Color, &c.Icon, &c.IsSystem, &c.UserID, &c.CreatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// ListForUser returns the system categories followed by those owned by userID.
func (r *CategoryRepository) ListForUser(ctx context.Context, userID int) ([]model.Category, error) {
	query := `
        SELECT id, name, color, icon, is_system, user_id, created_at
        FROM email_categories
        WHERE is_system OR user_id = $1
        ORDER BY is_system DESC, id
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.Icon, &c.IsSystem, &c.UserID, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
