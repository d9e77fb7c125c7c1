package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mpetrovs/tabchat/internal/common"
)

// TransactionType tells which way a message's amount moves the sender's
// running total.
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// MessageStatus tags a message as a provisional local echo (offline send,
// not yet confirmed by the backend) or a confirmed remote record.
type MessageStatus string

const (
	StatusProvisional MessageStatus = "provisional"
	StatusConfirmed   MessageStatus = "confirmed"
)

// Message is one entry in a conversation's append-only sequence. Immutable
// once created. At least one of Text (non-empty) or Amount must be present;
// if Amount is set, TransactionType is set too.
type Message struct {
	ID              string
	SenderID        string
	Text            string
	Amount          *decimal.Decimal
	TransactionType TransactionType
	Timestamp       time.Time
	Status          MessageStatus
}

// Validate enforces the message invariants before any I/O is attempted.
func (m *Message) Validate() error {
	if strings.TrimSpace(m.Text) == "" && m.Amount == nil {
		return common.ErrEmptyMessage
	}
	if m.Amount != nil {
		if !m.Amount.IsPositive() {
			return common.ErrInvalidAmount
		}
		if m.TransactionType != TransactionCredit && m.TransactionType != TransactionDebit {
			return common.ErrInvalidAmount
		}
	}
	return nil
}

// SignedDelta returns the amount with the sign implied by the transaction
// type, or zero if the message carries no amount.
func (m *Message) SignedDelta() decimal.Decimal {
	if m.Amount == nil {
		return decimal.Zero
	}
	if m.TransactionType == TransactionDebit {
		return m.Amount.Neg()
	}
	return *m.Amount
}

// SameAs reports whether other looks like the confirmed copy of this
// provisional message: same sender, text and amount, with timestamps within
// skew of each other. Used to reconcile local echoes against the live feed
// without relying on ids.
func (m *Message) SameAs(other *Message, skew time.Duration) bool {
	if m.SenderID != other.SenderID || m.Text != other.Text {
		return false
	}
	if (m.Amount == nil) != (other.Amount == nil) {
		return false
	}
	if m.Amount != nil && (!m.Amount.Equal(*other.Amount) || m.TransactionType != other.TransactionType) {
		return false
	}
	d := m.Timestamp.Sub(other.Timestamp)
	if d < 0 {
		d = -d
	}
	return d <= skew
}
