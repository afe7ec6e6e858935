package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nutrichat-backend/internal/models"
)

var ErrNoPlannedMeal = errors.New("no planned meal found")

type MealRepo struct {
	pool *pgxpool.Pool
}

func NewMealRepo(pool *pgxpool.Pool) *MealRepo {
	return &MealRepo{pool: pool}
}

func (r *MealRepo) Create(ctx context.Context, m *models.Meal) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	query := `INSERT INTO meals (id, user_id, name, meal_type, date, portion, status, calories, protein_g, carbs_g, fat_g, provenance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		m.ID, m.UserID, m.Name, m.MealType, m.Date, m.Portion, m.Status,
		roundedInt(m.Nutrition.Calories), roundedInt(m.Nutrition.ProteinG),
		roundedInt(m.Nutrition.CarbsG), roundedInt(m.Nutrition.FatG),
		m.Provenance,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
}

func (r *MealRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Meal, error) {
	m := &models.Meal{}
	query := `SELECT id, user_id, name, meal_type, date, portion, status, calories, protein_g, carbs_g, fat_g, provenance, created_at, updated_at
		FROM meals WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.UserID, &m.Name, &m.MealType, &m.Date, &m.Portion, &m.Status,
		&m.Nutrition.Calories, &m.Nutrition.ProteinG, &m.Nutrition.CarbsG, &m.Nutrition.FatG,
		&m.Provenance, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *MealRepo) ListByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]*models.Meal, error) {
	query := `SELECT id, user_id, name, meal_type, date, portion, status, calories, protein_g, carbs_g, fat_g, provenance, created_at, updated_at
		FROM meals WHERE user_id = $1 AND date = $2 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMeals(rows)
}

// FindPlanned returns the oldest planned meal for a user on a date,
// optionally narrowed to a meal type. pgx.ErrNoRows maps to
// ErrNoPlannedMeal so callers can treat the miss as a no-op.
func (r *MealRepo) FindPlanned(ctx context.Context, userID uuid.UUID, date time.Time, mealType models.MealType) (*models.Meal, error) {
	query := `SELECT id, user_id, name, meal_type, date, portion, status, calories, protein_g, carbs_g, fat_g, provenance, created_at, updated_at
		FROM meals WHERE user_id = $1 AND date = $2 AND status = 'planned'`
	args := []interface{}{userID, date}

	if mealType != models.MealTypeUnset {
		query += ` AND meal_type = $3`
		args = append(args, mealType)
	}
	query += ` ORDER BY created_at ASC LIMIT 1`

	m := &models.Meal{}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&m.ID, &m.UserID, &m.Name, &m.MealType, &m.Date, &m.Portion, &m.Status,
		&m.Nutrition.Calories, &m.Nutrition.ProteinG, &m.Nutrition.CarbsG, &m.Nutrition.FatG,
		&m.Provenance, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoPlannedMeal
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// MarkLogged performs the one-way planned→logged transition. The id and
// meal_type are untouched. Rows already logged are not rewritten.
func (r *MealRepo) MarkLogged(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE meals SET status = 'logged', updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND status = 'planned'`,
		id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoPlannedMeal
	}
	return nil
}

func (r *MealRepo) Update(ctx context.Context, m *models.Meal) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE meals SET name = $1, meal_type = $2, calories = $3, protein_g = $4, carbs_g = $5, fat_g = $6, updated_at = NOW()
		 WHERE id = $7 AND user_id = $8`,
		m.Name, m.MealType,
		roundedInt(m.Nutrition.Calories), roundedInt(m.Nutrition.ProteinG),
		roundedInt(m.Nutrition.CarbsG), roundedInt(m.Nutrition.FatG),
		m.ID, m.UserID)
	return err
}

func (r *MealRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM meals WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SumByUserAndDate aggregates logged meals for one day. NULL fields
// contribute nothing rather than zeroing the total.
func (r *MealRepo) SumByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (*models.DayTotals, error) {
	totals := &models.DayTotals{UserID: userID, Date: date.Format("2006-01-02")}
	query := `SELECT COALESCE(SUM(calories), 0), COALESCE(SUM(protein_g), 0), COALESCE(SUM(carbs_g), 0), COALESCE(SUM(fat_g), 0), COUNT(*)
		FROM meals WHERE user_id = $1 AND date = $2 AND status = 'logged'`

	err := r.pool.QueryRow(ctx, query, userID, date).Scan(
		&totals.Calories, &totals.ProteinG, &totals.CarbsG, &totals.FatG, &totals.MealCount,
	)
	if err != nil {
		return nil, err
	}
	return totals, nil
}

func scanMeals(rows pgx.Rows) ([]*models.Meal, error) {
	var meals []*models.Meal
	for rows.Next() {
		m := &models.Meal{}
		err := rows.Scan(
			&m.ID, &m.UserID, &m.Name, &m.MealType, &m.Date, &m.Portion, &m.Status,
			&m.Nutrition.Calories, &m.Nutrition.ProteinG, &m.Nutrition.CarbsG, &m.Nutrition.FatG,
			&m.Provenance, &m.CreatedAt, &m.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		meals = append(meals, m)
	}
	return meals, rows.Err()
}

// roundedInt converts a nutrition field to a whole number for storage.
// Nil stays NULL; unknown values are never coerced to zero.
func roundedInt(v *float64) *int {
	if v == nil {
		return nil
	}
	n := int(*v + 0.5)
	return &n
}
