package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stpp-dev/rekod-sekolah-api/internal/models"
	appErrors "github.com/stpp-dev/rekod-sekolah-api/pkg/errors"
	"github.com/stpp-dev/rekod-sekolah-api/pkg/jobs"
)

type notificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, id, recipientID string) error
	Delete(ctx context.Context, id, recipientID string) error
}

type financeUserSource interface {
	FindFirstByRole(ctx context.Context, role models.UserRole) (*models.User, error)
}

const jobTypeInvoiceSent = "invoice_sent"

// invoiceSentPayload carries everything the dispatch worker needs, so the
// job survives independently of the request that enqueued it.
type invoiceSentPayload struct {
	InvoiceNumber string
	Amount        decimal.Decimal
	StudentCount  int
	SenderID      string
}

// NotificationService delivers in-app notifications. Invoice notifications
// are dispatched asynchronously through a retrying worker queue so a slow
// write never blocks the send endpoint.
type NotificationService struct {
	notifications notificationRepository
	users         financeUserSource
	logger        *zap.Logger

	queue *jobs.Queue
}

// NewNotificationService constructs a NotificationService and its dispatch
// queue. Call Start before enqueuing and Stop on shutdown.
func NewNotificationService(notifications notificationRepository, users financeUserSource, cfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		notifications: notifications,
		users:         users,
		logger:        logger,
	}
	s.queue = jobs.NewQueue("notifications", s.handleJob, cfg)
	return s
}

// Start launches the dispatch workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the dispatch queue.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifyInvoiceSent queues an invoice notification for the finance account.
func (s *NotificationService) NotifyInvoiceSent(invoice *models.Invoice, senderID string, studentCount int) error {
	return s.queue.Enqueue(jobs.Job{
		ID:   uuid.NewString(),
		Type: jobTypeInvoiceSent,
		Payload: invoiceSentPayload{
			InvoiceNumber: invoice.InvoiceNumber,
			Amount:        invoice.Total,
			StudentCount:  studentCount,
			SenderID:      senderID,
		},
	})
}

// ListForUser returns the user's notifications newest-first together with
// the unread count.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, int, error) {
	notifications, err := s.notifications.ListByRecipient(ctx, userID, limit)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list notifications")
	}
	unread, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to count notifications")
	}
	return notifications, unread, nil
}

// MarkRead marks one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.notifications.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to mark notification")
	}
	return nil
}

// Delete removes one of the user's notifications.
func (s *NotificationService) Delete(ctx context.Context, id, userID string) error {
	if err := s.notifications.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to delete notification")
	}
	return nil
}

func (s *NotificationService) handleJob(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case jobTypeInvoiceSent:
		payload, ok := job.Payload.(invoiceSentPayload)
		if !ok {
			return fmt.Errorf("unexpected payload type %T for %s job", job.Payload, job.Type)
		}
		return s.dispatchInvoiceSent(ctx, payload)
	default:
		return fmt.Errorf("unknown job type %s", job.Type)
	}
}

func (s *NotificationService) dispatchInvoiceSent(ctx context.Context, payload invoiceSentPayload) error {
	recipient, err := s.users.FindFirstByRole(ctx, models.RoleFinance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("no finance account to notify",
				zap.String("invoice_number", payload.InvoiceNumber))
			return nil
		}
		return fmt.Errorf("resolve finance recipient: %w", err)
	}

	amount := payload.Amount
	count := payload.StudentCount
	notification := &models.Notification{
		Type:          jobTypeInvoiceSent,
		Title:         fmt.Sprintf("New Invoice: %s", payload.InvoiceNumber),
		Message:       fmt.Sprintf("Invoice %s for %d students, total RM %s", payload.InvoiceNumber, count, amount.StringFixed(2)),
		InvoiceNumber: &payload.InvoiceNumber,
		Amount:        &amount,
		StudentCount:  &count,
		Status:        models.NotificationUnread,
		RecipientID:   recipient.ID,
		CreatedAt:     time.Now().UTC(),
	}
	if payload.SenderID != "" {
		notification.SenderID = &payload.SenderID
	}

	if err := s.notifications.Create(ctx, notification); err != nil {
		return fmt.Errorf("create invoice notification: %w", err)
	}

	s.logger.Info("invoice notification delivered",
		zap.String("invoice_number", payload.InvoiceNumber),
		zap.String("recipient_id", recipient.ID))
	return nil
}
