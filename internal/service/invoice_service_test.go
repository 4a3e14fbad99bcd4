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
	"github.com/stpp-dev/rekod-sekolah-api/pkg/dates"
)

type mockInvoiceRepo struct {
	mu       sync.Mutex
	invoices []*models.Invoice
	nextID   int
}

func (m *mockInvoiceRepo) LatestNumber(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.invoices) == 0 {
		return "", nil
	}
	return m.invoices[len(m.invoices)-1].InvoiceNumber, nil
}

func (m *mockInvoiceRepo) Create(ctx context.Context, invoice *models.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	invoice.ID = invoice.InvoiceNumber
	stored := *invoice
	m.invoices = append(m.invoices, &stored)
	return nil
}

func (m *mockInvoiceRepo) List(ctx context.Context, page, pageSize int) ([]models.Invoice, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Invoice, 0, len(m.invoices))
	for i := len(m.invoices) - 1; i >= 0; i-- {
		out = append(out, *m.invoices[i])
	}
	return out, len(out), nil
}

func (m *mockInvoiceRepo) FindByID(ctx context.Context, id string) (*models.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invoices {
		if inv.ID == id {
			copy := *inv
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockInvoiceRepo) UpdateStatus(ctx context.Context, id string, status models.InvoiceStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invoices {
		if inv.ID == id {
			inv.Status = status
			return nil
		}
	}
	return sql.ErrNoRows
}

type mockLunchSource struct {
	rows []models.CanteenStudentRow
}

func (m *mockLunchSource) ReceivedToday(ctx context.Context) ([]models.CanteenStudentRow, error) {
	return m.rows, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *recordingNotifier) NotifyInvoiceSent(invoice *models.Invoice, senderID string, studentCount int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, invoice.InvoiceNumber)
	return nil
}

func lunchRows() []models.CanteenStudentRow {
	return []models.CanteenStudentRow{
		{
			CanteenRecord: models.CanteenRecord{StudentID: "stu-1", LunchReceived: true},
			StudentCode:   "DENIM001",
			StudentName:   "Aina",
			GradeName:     "DENIM",
			GradeYear:     3,
		},
		{
			CanteenRecord: models.CanteenRecord{StudentID: "stu-2", LunchReceived: true},
			StudentCode:   "DENIM002",
			StudentName:   "Badrul",
			GradeName:     "DENIM",
			GradeYear:     3,
		},
	}
}

func newInvoiceService(repo *mockInvoiceRepo, canteen *mockLunchSource, notifier financeNotifier) *InvoiceService {
	return NewInvoiceService(repo, canteen, notifier, time.UTC, InvoiceConfig{
		MealPrice:  decimal.RequireFromString("5.00"),
		ClientName: "Kantin STPP",
	}, zap.NewNop())
}

func TestInvoiceServiceBuildLines(t *testing.T) {
	svc := newInvoiceService(&mockInvoiceRepo{}, &mockLunchSource{}, nil)

	lines := svc.BuildLines(lunchRows())
	require.Len(t, lines, 2)
	assert.Equal(t, "Aina (DENIM001) - Tahun 3 DENIM", lines[0].Description)
	assert.Equal(t, "Badrul (DENIM002) - Tahun 3 DENIM", lines[1].Description)
	assert.Equal(t, 1, lines[0].Quantity)
	assert.Equal(t, "5.00", lines[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "10.00", linesTotal(lines).StringFixed(2))
}

func TestInvoiceServiceDraft(t *testing.T) {
	svc := newInvoiceService(&mockInvoiceRepo{}, &mockLunchSource{rows: lunchRows()}, nil)

	draft, err := svc.Draft(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "INV-0001", draft.InvoiceNumber)
	assert.Equal(t, 2, draft.StudentCount)
	assert.Equal(t, "10.00", draft.Total.StringFixed(2))
	assert.True(t, draft.InvoiceDate.Equal(dates.Day(time.Now(), time.UTC)))
}

func TestInvoiceServiceDraftNoLunches(t *testing.T) {
	svc := newInvoiceService(&mockInvoiceRepo{}, &mockLunchSource{}, nil)

	_, err := svc.Draft(context.Background())
	require.Error(t, err)
}

func TestInvoiceServiceSendToFinanceSequence(t *testing.T) {
	repo := &mockInvoiceRepo{}
	notifier := &recordingNotifier{}
	svc := newInvoiceService(repo, &mockLunchSource{rows: lunchRows()}, notifier)

	first, err := svc.SendToFinance(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "INV-0001", first.InvoiceNumber)
	assert.Equal(t, models.InvoiceStatusPending, first.Status)

	second, err := svc.SendToFinance(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "INV-0002", second.InvoiceNumber)

	assert.Equal(t, []string{"INV-0001", "INV-0002"}, notifier.calls)
}

func TestInvoiceServiceUpdateStatus(t *testing.T) {
	repo := &mockInvoiceRepo{}
	svc := newInvoiceService(repo, &mockLunchSource{rows: lunchRows()}, nil)

	created, err := svc.SendToFinance(context.Background(), "user-1")
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), created.ID, models.InvoiceStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, updated.Status)

	_, err = svc.UpdateStatus(context.Background(), created.ID, models.InvoiceStatus("bogus"))
	require.Error(t, err)
}

func TestInvoiceServicePDF(t *testing.T) {
	repo := &mockInvoiceRepo{}
	svc := newInvoiceService(repo, &mockLunchSource{rows: lunchRows()}, nil)

	created, err := svc.SendToFinance(context.Background(), "user-1")
	require.NoError(t, err)

	payload, invoice, err := svc.PDF(context.Background(), created.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, payload)
	assert.Equal(t, created.InvoiceNumber, invoice.InvoiceNumber)
}
