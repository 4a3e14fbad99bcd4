package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/stpp-dev/rekod-sekolah-api/internal/models"
)

// InvoiceRepository manages invoice persistence.
type InvoiceRepository struct {
	db *sqlx.DB
}

// NewInvoiceRepository constructs an InvoiceRepository.
func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// LatestNumber returns the most recently created invoice number, or an
// empty string when no invoice exists yet.
func (r *InvoiceRepository) LatestNumber(ctx context.Context) (string, error) {
	const query = `SELECT invoice_number FROM invoices ORDER BY created_at DESC LIMIT 1`
	var number string
	if err := r.db.GetContext(ctx, &number, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("latest invoice number: %w", err)
	}
	return number, nil
}

// Create inserts a new invoice.
func (r *InvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = now
	}
	invoice.UpdatedAt = now
	const query = `INSERT INTO invoices (id, invoice_number, invoice_date, client_name, items, total, status, created_by, created_at, updated_at)
        VALUES (:id, :invoice_number, :invoice_date, :client_name, :items, :total, :status, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, invoice); err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

// List returns invoices newest-first with pagination.
func (r *InvoiceRepository) List(ctx context.Context, page, pageSize int) ([]models.Invoice, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT id, invoice_number, invoice_date, client_name, items, total, status, created_by, created_at, updated_at
        FROM invoices ORDER BY created_at DESC LIMIT %d OFFSET %d`, pageSize, offset)
	var invoices []models.Invoice
	if err := r.db.SelectContext(ctx, &invoices, query); err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM invoices`); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}
	return invoices, total, nil
}

// FindByID fetches one invoice.
func (r *InvoiceRepository) FindByID(ctx context.Context, id string) (*models.Invoice, error) {
	const query = `SELECT id, invoice_number, invoice_date, client_name, items, total, status, created_by, created_at, updated_at
        FROM invoices WHERE id = $1`
	var invoice models.Invoice
	if err := r.db.GetContext(ctx, &invoice, query, id); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// UpdateStatus moves an invoice to a new lifecycle state.
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id string, status models.InvoiceStatus) error {
	const query = `UPDATE invoices SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update invoice status rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AggregateRange summarises invoices whose invoice_date falls inside
// [from, to).
func (r *InvoiceRepository) AggregateRange(ctx context.Context, from, to time.Time) (*models.InvoiceRangeSummary, error) {
	const query = `SELECT COUNT(*) AS count,
        COALESCE(SUM(total), 0) AS amount,
        COUNT(*) FILTER (WHERE status = 'paid') AS paid,
        COUNT(*) FILTER (WHERE status = 'unpaid') AS unpaid
        FROM invoices WHERE invoice_date >= $1 AND invoice_date < $2`
	var summary models.InvoiceRangeSummary
	if err := r.db.GetContext(ctx, &summary, query, from, to); err != nil {
		return nil, fmt.Errorf("aggregate invoices: %w", err)
	}
	return &summary, nil
}
