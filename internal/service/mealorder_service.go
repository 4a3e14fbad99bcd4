package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/stpp-dev/rekod-sekolah-api/internal/models"
	"github.com/stpp-dev/rekod-sekolah-api/pkg/dates"
	appErrors "github.com/stpp-dev/rekod-sekolah-api/pkg/errors"
)

type mealOrderRepository interface {
	Create(ctx context.Context, order *models.MealOrder) error
	List(ctx context.Context, page, pageSize int) ([]models.MealOrder, int, error)
}

// MealOrderService files and lists daily meal order forms.
type MealOrderService struct {
	orders    mealOrderRepository
	validator *validator.Validate
	logger    *zap.Logger
	location  *time.Location
}

// NewMealOrderService constructs a MealOrderService.
func NewMealOrderService(orders mealOrderRepository, validate *validator.Validate, loc *time.Location, logger *zap.Logger) *MealOrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &MealOrderService{orders: orders, validator: validate, logger: logger, location: loc}
}

// Create validates and persists a meal order filed by creatorID.
func (s *MealOrderService) Create(ctx context.Context, req models.CreateMealOrderRequest, creatorID string) (*models.MealOrder, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid meal order payload")
	}

	order := &models.MealOrder{
		OrderNo:            req.OrderNo,
		MealCount:          req.MealCount,
		OrderedByName:      req.OrderedByName,
		OrderedByPosition:  req.OrderedByPosition,
		ApprovedByName:     req.ApprovedByName,
		ApprovedByPosition: req.ApprovedByPosition,
		ReceivedByName:     req.ReceivedByName,
		ReceivedByPosition: req.ReceivedByPosition,
	}
	for _, field := range []struct {
		raw  string
		dest *time.Time
	}{
		{req.OrderDate, &order.OrderDate},
		{req.ExecutionDate, &order.ExecutionDate},
		{req.SupplyDate, &order.SupplyDate},
		{req.ReceivedDate, &order.ReceivedDate},
	} {
		parsed, err := dates.ParseDate(field.raw, s.location)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "dates must be YYYY-MM-DD")
		}
		*field.dest = parsed
	}
	if creatorID != "" {
		order.CreatedBy = &creatorID
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to create meal order")
	}

	s.logger.Info("meal order filed",
		zap.String("order_no", order.OrderNo),
		zap.Int("meal_count", order.MealCount))
	return order, nil
}

// List returns filed meal orders newest-first.
func (s *MealOrderService) List(ctx context.Context, page, pageSize int) ([]models.MealOrder, *models.Pagination, error) {
	orders, total, err := s.orders.List(ctx, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list meal orders")
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return orders, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}
