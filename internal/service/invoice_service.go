package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stpp-dev/rekod-sekolah-api/internal/models"
	"github.com/stpp-dev/rekod-sekolah-api/pkg/dates"
	appErrors "github.com/stpp-dev/rekod-sekolah-api/pkg/errors"
	"github.com/stpp-dev/rekod-sekolah-api/pkg/export"
)

type invoiceRepository interface {
	LatestNumber(ctx context.Context) (string, error)
	Create(ctx context.Context, invoice *models.Invoice) error
	List(ctx context.Context, page, pageSize int) ([]models.Invoice, int, error)
	FindByID(ctx context.Context, id string) (*models.Invoice, error)
	UpdateStatus(ctx context.Context, id string, status models.InvoiceStatus) error
}

type lunchRecipientSource interface {
	ReceivedToday(ctx context.Context) ([]models.CanteenStudentRow, error)
}

type financeNotifier interface {
	NotifyInvoiceSent(invoice *models.Invoice, senderID string, studentCount int) error
}

const invoiceNumberPrefix = "INV-"

// InvoiceConfig carries billing constants.
type InvoiceConfig struct {
	MealPrice  decimal.Decimal
	ClientName string
}

// InvoiceService turns a day's lunch distribution into invoices and manages
// their lifecycle.
type InvoiceService struct {
	invoices invoiceRepository
	canteen  lunchRecipientSource
	notifier financeNotifier
	logger   *zap.Logger
	location *time.Location
	config   InvoiceConfig

	pdf *export.PDFExporter
}

// NewInvoiceService constructs an InvoiceService.
func NewInvoiceService(invoices invoiceRepository, canteen lunchRecipientSource, notifier financeNotifier, loc *time.Location, config InvoiceConfig, logger *zap.Logger) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &InvoiceService{
		invoices: invoices,
		canteen:  canteen,
		notifier: notifier,
		logger:   logger,
		location: loc,
		config:   config,
		pdf:      export.NewPDFExporter(),
	}
}

// Draft previews today's invoice: the number that would be assigned plus
// one line per lunch recipient. Nothing is persisted.
func (s *InvoiceService) Draft(ctx context.Context) (*models.InvoiceDraft, error) {
	received, err := s.canteen.ReceivedToday(ctx)
	if err != nil {
		return nil, err
	}
	if len(received) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no lunches recorded today")
	}

	number, err := s.nextNumber(ctx)
	if err != nil {
		return nil, err
	}

	lines := s.BuildLines(received)
	return &models.InvoiceDraft{
		InvoiceNumber: number,
		InvoiceDate:   dates.Day(time.Now(), s.location),
		ClientName:    s.config.ClientName,
		Items:         lines,
		Total:         linesTotal(lines),
		StudentCount:  len(received),
	}, nil
}

// SendToFinance persists today's invoice and queues a notification for the
// finance account. The invoice is created even when notification dispatch
// later fails; the queue retries delivery on its own.
func (s *InvoiceService) SendToFinance(ctx context.Context, senderID string) (*models.Invoice, error) {
	received, err := s.canteen.ReceivedToday(ctx)
	if err != nil {
		return nil, err
	}
	if len(received) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no lunches recorded today")
	}

	number, err := s.nextNumber(ctx)
	if err != nil {
		return nil, err
	}

	lines := s.BuildLines(received)
	invoice := &models.Invoice{
		InvoiceNumber: number,
		InvoiceDate:   dates.Day(time.Now(), s.location),
		ClientName:    s.config.ClientName,
		Items:         lines,
		Total:         linesTotal(lines),
		Status:        models.InvoiceStatusPending,
	}
	if senderID != "" {
		invoice.CreatedBy = &senderID
	}

	if err := s.invoices.Create(ctx, invoice); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to create invoice")
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyInvoiceSent(invoice, senderID, len(received)); err != nil {
			s.logger.Warn("failed to queue finance notification",
				zap.String("invoice_number", invoice.InvoiceNumber),
				zap.Error(err))
		}
	}

	s.logger.Info("invoice sent to finance",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("total", invoice.Total.StringFixed(2)),
		zap.Int("students", len(received)))

	return invoice, nil
}

// List returns invoices newest-first.
func (s *InvoiceService) List(ctx context.Context, page, pageSize int) ([]models.Invoice, *models.Pagination, error) {
	invoices, total, err := s.invoices.List(ctx, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list invoices")
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return invoices, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get fetches one invoice.
func (s *InvoiceService) Get(ctx context.Context, id string) (*models.Invoice, error) {
	invoice, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load invoice")
	}
	return invoice, nil
}

// UpdateStatus moves an invoice between lifecycle states.
func (s *InvoiceService) UpdateStatus(ctx context.Context, id string, status models.InvoiceStatus) (*models.Invoice, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported invoice status")
	}
	if err := s.invoices.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to update invoice")
	}
	return s.Get(ctx, id)
}

// PDF renders an invoice document.
func (s *InvoiceService) PDF(ctx context.Context, id string) ([]byte, *models.Invoice, error) {
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	rows := make([]map[string]string, 0, len(invoice.Items)+1)
	for _, line := range invoice.Items {
		rows = append(rows, map[string]string{
			"Description": line.Description,
			"Qty":         strconv.Itoa(line.Quantity),
			"Unit Price":  line.UnitPrice.StringFixed(2),
			"Total":       line.Total.StringFixed(2),
		})
	}
	rows = append(rows, map[string]string{
		"Description": "TOTAL",
		"Qty":         "",
		"Unit Price":  "",
		"Total":       invoice.Total.StringFixed(2),
	})

	dataset := export.Dataset{
		Headers: []string{"Description", "Qty", "Unit Price", "Total"},
		Rows:    rows,
	}
	title := fmt.Sprintf("Invoice %s", invoice.InvoiceNumber)
	subtitle := fmt.Sprintf("%s | %s | %s", invoice.ClientName, invoice.InvoiceDate.Format("2006-01-02"), strings.ToUpper(string(invoice.Status)))
	payload, err := s.pdf.Render(dataset, title, subtitle)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render invoice pdf")
	}
	return payload, invoice, nil
}

// BuildLines converts lunch recipients into invoice lines, one per student,
// in the recipients' roster order.
func (s *InvoiceService) BuildLines(received []models.CanteenStudentRow) models.InvoiceLines {
	lines := make(models.InvoiceLines, 0, len(received))
	for _, row := range received {
		description := fmt.Sprintf("%s (%s) - Tahun %d %s", row.StudentName, row.StudentCode, row.GradeYear, row.GradeName)
		lines = append(lines, models.InvoiceLine{
			Description: description,
			Quantity:    1,
			UnitPrice:   s.config.MealPrice,
			Total:       s.config.MealPrice,
		})
	}
	return lines
}

// nextNumber derives the next sequential invoice number from the most
// recent one. An unparsable or missing predecessor restarts the sequence.
func (s *InvoiceService) nextNumber(ctx context.Context) (string, error) {
	latest, err := s.invoices.LatestNumber(ctx)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to read latest invoice number")
	}
	return NextInvoiceNumber(latest), nil
}

// NextInvoiceNumber increments an INV-#### sequence number. Empty or
// malformed input yields INV-0001.
func NextInvoiceNumber(latest string) string {
	if strings.HasPrefix(latest, invoiceNumberPrefix) {
		suffix := strings.TrimPrefix(latest, invoiceNumberPrefix)
		if n, err := strconv.Atoi(suffix); err == nil && n >= 0 {
			return fmt.Sprintf("%s%04d", invoiceNumberPrefix, n+1)
		}
	}
	return invoiceNumberPrefix + "0001"
}

func linesTotal(lines models.InvoiceLines) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Total)
	}
	return total
}
