package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/stpp-dev/rekod-sekolah-api/internal/models"
)

// MealOrderRepository persists daily meal order forms.
type MealOrderRepository struct {
	db *sqlx.DB
}

// NewMealOrderRepository constructs a MealOrderRepository.
func NewMealOrderRepository(db *sqlx.DB) *MealOrderRepository {
	return &MealOrderRepository{db: db}
}

// Create inserts a meal order.
func (r *MealOrderRepository) Create(ctx context.Context, order *models.MealOrder) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	const query = `INSERT INTO meal_orders (id, order_no, order_date, meal_count, execution_date, supply_date,
            ordered_by_name, ordered_by_position, approved_by_name, approved_by_position,
            received_by_name, received_by_position, received_date, created_by, created_at, updated_at)
        VALUES (:id, :order_no, :order_date, :meal_count, :execution_date, :supply_date,
            :ordered_by_name, :ordered_by_position, :approved_by_name, :approved_by_position,
            :received_by_name, :received_by_position, :received_date, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, order); err != nil {
		return fmt.Errorf("create meal order: %w", err)
	}
	return nil
}

// List returns meal orders newest-first with pagination.
func (r *MealOrderRepository) List(ctx context.Context, page, pageSize int) ([]models.MealOrder, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT id, order_no, order_date, meal_count, execution_date, supply_date,
            ordered_by_name, ordered_by_position, approved_by_name, approved_by_position,
            received_by_name, received_by_position, received_date, created_by, created_at, updated_at
        FROM meal_orders ORDER BY created_at DESC LIMIT %d OFFSET %d`, pageSize, offset)
	var orders []models.MealOrder
	if err := r.db.SelectContext(ctx, &orders, query); err != nil {
		return nil, 0, fmt.Errorf("list meal orders: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM meal_orders`); err != nil {
		return nil, 0, fmt.Errorf("count meal orders: %w", err)
	}
	return orders, total, nil
}
