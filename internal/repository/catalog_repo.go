package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"nutrichat-backend/internal/models"
)

type CatalogRepo struct {
	pool *pgxpool.Pool
}

func NewCatalogRepo(pool *pgxpool.Pool) *CatalogRepo {
	return &CatalogRepo{pool: pool}
}

// ListAvailable returns every catalog item visible to the matcher.
// Unavailable items are excluded so they can never back a meal.
func (r *CatalogRepo) ListAvailable(ctx context.Context) ([]models.CatalogItem, error) {
	query := `SELECT id, brand, name, description, category, calories, protein_g, carbs_g, fat_g, available, created_at
		FROM catalog_items WHERE available = TRUE ORDER BY brand, name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.CatalogItem
	for rows.Next() {
		var it models.CatalogItem
		err := rows.Scan(
			&it.ID, &it.Brand, &it.Name, &it.Description, &it.Category,
			&it.Nutrition.Calories, &it.Nutrition.ProteinG, &it.Nutrition.CarbsG, &it.Nutrition.FatG,
			&it.Available, &it.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *CatalogRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.CatalogItem, error) {
	it := &models.CatalogItem{}
	query := `SELECT id, brand, name, description, category, calories, protein_g, carbs_g, fat_g, available, created_at
		FROM catalog_items WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&it.ID, &it.Brand, &it.Name, &it.Description, &it.Category,
		&it.Nutrition.Calories, &it.Nutrition.ProteinG, &it.Nutrition.CarbsG, &it.Nutrition.FatG,
		&it.Available, &it.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (r *CatalogRepo) Search(ctx context.Context, q string, limit int) ([]models.CatalogItem, error) {
	query := `SELECT id, brand, name, description, category, calories, protein_g, carbs_g, fat_g, available, created_at
		FROM catalog_items
		WHERE available = TRUE AND (name ILIKE $1 OR brand ILIKE $1 OR description ILIKE $1)
		ORDER BY name LIMIT $2`

	rows, err := r.pool.Query(ctx, query, "%"+q+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.CatalogItem
	for rows.Next() {
		var it models.CatalogItem
		err := rows.Scan(
			&it.ID, &it.Brand, &it.Name, &it.Description, &it.Category,
			&it.Nutrition.Calories, &it.Nutrition.ProteinG, &it.Nutrition.CarbsG, &it.Nutrition.FatG,
			&it.Available, &it.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
