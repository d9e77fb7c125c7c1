package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OperationKind discriminates the payload of a PendingOperation.
type OperationKind string

const (
	OpMessage       OperationKind = "message"
	OpProfileUpdate OperationKind = "profile"
	OpBalanceUpdate OperationKind = "transaction"
)

// PendingOperation is a durably queued intent that could not be applied to
// the backend because the device was offline. It is removed from the queue
// only after a successful replay; on failure it is re-enqueued with an
// attempt counter and a backoff deadline (at-least-once semantics).
type PendingOperation struct {
	ID            int64
	Kind          OperationKind
	Payload       json.RawMessage
	Attempts      int
	NextAttemptAt time.Time
	CreatedAt     time.Time
}

// MessageOp re-appends a message to the conversation's sequence on replay,
// converting the locally captured timestamp into the backend's canonical
// time representation.
type MessageOp struct {
	ConversationID  string           `json:"conversationId"`
	LocalID         string           `json:"localId"`
	SenderID        string           `json:"senderId"`
	Text            string           `json:"text"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	TransactionType TransactionType  `json:"transactionType,omitempty"`
	SentAt          time.Time        `json:"sentAt"`
}

// ProfileOp applies a field-level merge to the user's profile document.
// AddFriends entries are applied as array-union additions to the friends
// list, so a replay cannot clobber links added elsewhere in the meantime.
type ProfileOp struct {
	UserID     string         `json:"userId"`
	Fields     map[string]any `json:"fields,omitempty"`
	AddFriends []string       `json:"addFriends,omitempty"`
}

// BalanceOp applies the signed delta to balances[UserID] as an atomic
// server-side increment. Storing the delta rather than a captured absolute
// value keeps replay correct regardless of interleaved writes from another
// device of the same user.
type BalanceOp struct {
	ConversationID string          `json:"conversationId"`
	UserID         string          `json:"userId"`
	CounterpartyID string          `json:"counterpartyId"`
	Delta          decimal.Decimal `json:"delta"`
}

// NewPendingOperation marshals payload under the given kind.
func NewPendingOperation(kind OperationKind, payload any) (*PendingOperation, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s operation: %w", kind, err)
	}
	return &PendingOperation{Kind: kind, Payload: b, CreatedAt: time.Now()}, nil
}

// DecodeMessageOp decodes the payload of an OpMessage operation.
func (p *PendingOperation) DecodeMessageOp() (*MessageOp, error) {
	var op MessageOp
	if err := json.Unmarshal(p.Payload, &op); err != nil {
		return nil, fmt.Errorf("decoding message operation: %w", err)
	}
	return &op, nil
}

// DecodeProfileOp decodes the payload of an OpProfileUpdate operation.
func (p *PendingOperation) DecodeProfileOp() (*ProfileOp, error) {
	var op ProfileOp
	if err := json.Unmarshal(p.Payload, &op); err != nil {
		return nil, fmt.Errorf("decoding profile operation: %w", err)
	}
	return &op, nil
}

// DecodeBalanceOp decodes the payload of an OpBalanceUpdate operation.
func (p *PendingOperation) DecodeBalanceOp() (*BalanceOp, error) {
	var op BalanceOp
	if err := json.Unmarshal(p.Payload, &op); err != nil {
		return nil, fmt.Errorf("decoding balance operation: %w", err)
	}
	return &op, nil
}
