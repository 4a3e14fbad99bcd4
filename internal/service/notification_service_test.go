package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stpp-dev/rekod-sekolah-api/internal/models"
	"github.com/stpp-dev/rekod-sekolah-api/pkg/jobs"
)

type mockNotificationRepo struct {
	mu            sync.Mutex
	notifications []*models.Notification
	nextID        int
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	n.ID = n.Title
	stored := *n
	m.notifications = append(m.notifications, &stored)
	return nil
}

func (m *mockNotificationRepo) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.notifications {
		if n.RecipientID == recipientID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, recipientID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.notifications {
		if n.RecipientID == recipientID && n.Status == models.NotificationUnread {
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, recipientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.ID == id && n.RecipientID == recipientID {
			n.Status = models.NotificationRead
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockNotificationRepo) Delete(ctx context.Context, id, recipientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.notifications {
		if n.ID == id && n.RecipientID == recipientID {
			m.notifications = append(m.notifications[:i], m.notifications[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type mockFinanceUsers struct {
	finance *models.User
}

func (m *mockFinanceUsers) FindFirstByRole(ctx context.Context, role models.UserRole) (*models.User, error) {
	if m.finance != nil && m.finance.Role == role {
		return m.finance, nil
	}
	return nil, sql.ErrNoRows
}

func TestNotificationServiceDispatchInvoiceSent(t *testing.T) {
	repo := &mockNotificationRepo{}
	users := &mockFinanceUsers{finance: &models.User{ID: "fin-1", Role: models.RoleFinance, Active: true}}
	svc := NewNotificationService(repo, users, jobs.QueueConfig{Workers: 1, Logger: zap.NewNop()}, zap.NewNop())

	amount := decimal.RequireFromString("25.00")
	err := svc.dispatchInvoiceSent(context.Background(), invoiceSentPayload{
		InvoiceNumber: "INV-0005",
		Amount:        amount,
		StudentCount:  5,
		SenderID:      "user-1",
	})
	require.NoError(t, err)

	list, unread, err := svc.ListForUser(context.Background(), "fin-1", 50)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, unread)
	assert.Equal(t, "INV-0005", *list[0].InvoiceNumber)
	assert.Equal(t, 5, *list[0].StudentCount)
	assert.True(t, list[0].Amount.Equal(amount))
	assert.Equal(t, "user-1", *list[0].SenderID)
}

func TestNotificationServiceDispatchNoFinanceAccount(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, &mockFinanceUsers{}, jobs.QueueConfig{Workers: 1, Logger: zap.NewNop()}, zap.NewNop())

	err := svc.dispatchInvoiceSent(context.Background(), invoiceSentPayload{InvoiceNumber: "INV-0001"})
	require.NoError(t, err)
	assert.Empty(t, repo.notifications)
}

func TestNotificationServiceQueueDelivery(t *testing.T) {
	repo := &mockNotificationRepo{}
	users := &mockFinanceUsers{finance: &models.User{ID: "fin-1", Role: models.RoleFinance, Active: true}}
	svc := NewNotificationService(repo, users, jobs.QueueConfig{Workers: 1, Logger: zap.NewNop()}, zap.NewNop())

	svc.Start(context.Background())
	defer svc.Stop()

	invoice := &models.Invoice{InvoiceNumber: "INV-0009", Total: decimal.RequireFromString("15.00")}
	require.NoError(t, svc.NotifyInvoiceSent(invoice, "user-1", 3))

	require.Eventually(t, func() bool {
		_, unread, err := svc.ListForUser(context.Background(), "fin-1", 50)
		return err == nil && unread == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNotificationServiceMarkReadScopedToRecipient(t *testing.T) {
	repo := &mockNotificationRepo{}
	users := &mockFinanceUsers{finance: &models.User{ID: "fin-1", Role: models.RoleFinance, Active: true}}
	svc := NewNotificationService(repo, users, jobs.QueueConfig{Workers: 1, Logger: zap.NewNop()}, zap.NewNop())

	require.NoError(t, svc.dispatchInvoiceSent(context.Background(), invoiceSentPayload{InvoiceNumber: "INV-0001"}))
	id := repo.notifications[0].ID

	err := svc.MarkRead(context.Background(), id, "someone-else")
	require.Error(t, err)

	require.NoError(t, svc.MarkRead(context.Background(), id, "fin-1"))
	_, unread, err := svc.ListForUser(context.Background(), "fin-1", 50)
	require.NoError(t, err)
	assert.Zero(t, unread)
}
