package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the free-form invoice lifecycle state. "pending" on
// creation; finance flips to "paid" or "unpaid".
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusUnpaid  InvoiceStatus = "unpaid"
)

// Valid reports whether the status is a supported value.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusUnpaid:
		return true
	default:
		return false
	}
}

// InvoiceLine is one billable meal line.
type InvoiceLine struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// InvoiceLines is stored as a jsonb column.
type InvoiceLines []InvoiceLine

// Value implements driver.Valuer for jsonb storage.
func (l InvoiceLines) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Scan implements sql.Scanner for jsonb storage.
func (l *InvoiceLines) Scan(src interface{}) error {
	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, l)
	case string:
		return json.Unmarshal([]byte(data), l)
	case nil:
		*l = nil
		return nil
	default:
		return fmt.Errorf("unsupported invoice lines source %T", src)
	}
}

// Invoice is one finance send for a day's meal distribution.
type Invoice struct {
	ID            string          `db:"id" json:"id"`
	InvoiceNumber string          `db:"invoice_number" json:"invoice_number"`
	InvoiceDate   time.Time       `db:"invoice_date" json:"invoice_date"`
	ClientName    string          `db:"client_name" json:"client_name"`
	Items         InvoiceLines    `db:"items" json:"items"`
	Total         decimal.Decimal `db:"total" json:"total"`
	Status        InvoiceStatus   `db:"status" json:"status"`
	CreatedBy     *string         `db:"created_by" json:"created_by,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// InvoiceDraft is the render-ready preview before a finance send: the
// assigned number plus lines derived from today's lunch records.
type InvoiceDraft struct {
	InvoiceNumber string          `json:"invoice_number"`
	InvoiceDate   time.Time       `json:"invoice_date"`
	ClientName    string          `json:"client_name"`
	Items         InvoiceLines    `json:"items"`
	Total         decimal.Decimal `json:"total"`
	StudentCount  int             `json:"student_count"`
}

// InvoiceRangeSummary aggregates invoices inside a reporting window.
type InvoiceRangeSummary struct {
	Count  int             `db:"count" json:"count"`
	Amount decimal.Decimal `db:"amount" json:"amount"`
	Paid   int             `db:"paid" json:"paid"`
	Unpaid int             `db:"unpaid" json:"unpaid"`
}
