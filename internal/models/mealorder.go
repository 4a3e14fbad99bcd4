package models

import "time"

// MealOrder is one daily meal order form filed with the school's food
// supplier: the order number, how many pupils eat, and the three sign-off
// parties (orderer, approver, supplier).
type MealOrder struct {
	ID                 string    `db:"id" json:"id"`
	OrderNo            string    `db:"order_no" json:"order_no"`
	OrderDate          time.Time `db:"order_date" json:"order_date"`
	MealCount          int       `db:"meal_count" json:"meal_count"`
	ExecutionDate      time.Time `db:"execution_date" json:"execution_date"`
	SupplyDate         time.Time `db:"supply_date" json:"supply_date"`
	OrderedByName      string    `db:"ordered_by_name" json:"ordered_by_name"`
	OrderedByPosition  string    `db:"ordered_by_position" json:"ordered_by_position"`
	ApprovedByName     string    `db:"approved_by_name" json:"approved_by_name"`
	ApprovedByPosition string    `db:"approved_by_position" json:"approved_by_position"`
	ReceivedByName     string    `db:"received_by_name" json:"received_by_name"`
	ReceivedByPosition string    `db:"received_by_position" json:"received_by_position"`
	ReceivedDate       time.Time `db:"received_date" json:"received_date"`
	CreatedBy          *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// CreateMealOrderRequest files a meal order. Dates arrive as YYYY-MM-DD.
type CreateMealOrderRequest struct {
	OrderNo            string `json:"order_no" validate:"required,max=60"`
	OrderDate          string `json:"order_date" validate:"required,datetime=2006-01-02"`
	MealCount          int    `json:"meal_count" validate:"required,min=1"`
	ExecutionDate      string `json:"execution_date" validate:"required,datetime=2006-01-02"`
	SupplyDate         string `json:"supply_date" validate:"required,datetime=2006-01-02"`
	OrderedByName      string `json:"ordered_by_name" validate:"required,max=120"`
	OrderedByPosition  string `json:"ordered_by_position" validate:"required,max=120"`
	ApprovedByName     string `json:"approved_by_name" validate:"required,max=120"`
	ApprovedByPosition string `json:"approved_by_position" validate:"required,max=120"`
	ReceivedByName     string `json:"received_by_name" validate:"required,max=120"`
	ReceivedByPosition string `json:"received_by_position" validate:"required,max=120"`
	ReceivedDate       string `json:"received_date" validate:"required,datetime=2006-01-02"`
}
