package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// NotificationStatus tracks whether the recipient has opened the entry.
type NotificationStatus string

const (
	NotificationUnread NotificationStatus = "unread"
	NotificationRead   NotificationStatus = "read"
)

// Notification is an append-only in-app message, currently used to signal
// finance about a freshly created invoice.
type Notification struct {
	ID            string             `db:"id" json:"id"`
	Type          string             `db:"type" json:"type"`
	Title         string             `db:"title" json:"title"`
	Message       string             `db:"message" json:"message"`
	InvoiceNumber *string            `db:"invoice_number" json:"invoice_number,omitempty"`
	Amount        *decimal.Decimal   `db:"amount" json:"amount,omitempty"`
	StudentCount  *int               `db:"student_count" json:"student_count,omitempty"`
	Status        NotificationStatus `db:"status" json:"status"`
	RecipientID   string             `db:"recipient_id" json:"recipient_id"`
	SenderID      *string            `db:"sender_id" json:"sender_id,omitempty"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
}
