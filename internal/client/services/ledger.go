// Package services contains the domain logic of the client: the balance
// ledger, the send composer, pending-operation replay, the conversation
// directory and the supporting profile/friend/session services.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mpetrovs/tabchat/internal/client/backend"
	"github.com/mpetrovs/tabchat/internal/client/models"
	"github.com/mpetrovs/tabchat/internal/common"
	"github.com/mpetrovs/tabchat/internal/logging"
)

// Connectivity is the process-wide online state, owned by the connectivity
// monitor and injected into the services that branch on it.
type Connectivity interface {
	Online() bool
}

// LedgerService turns a signed transaction entered by one user into a
// durable update of that user's own running total within the shared
// conversation.
//
// Each side's total only ever moves through its owner: crediting yourself
// does not debit the counterparty. The UI-facing "net balance" is the
// difference of the two totals (models.Conversation.NetBalance), so no
// two-writer transaction is ever needed and the counterparty can be offline.
type LedgerService struct {
	store backend.Store
	log   logging.Logger
}

func NewLedgerService(store backend.Store, log logging.Logger) *LedgerService {
	return &LedgerService{store: store, log: log}
}

// ApplyTransaction adds amount to (credit) or subtracts it from (debit) the
// acting user's own balance entry, lazily creating the conversation with
// both totals at zero if it does not exist yet. Returns the acting user's
// new running total.
//
// The write is an atomic server-side increment, so concurrent transactions
// from another device of the same user compose instead of clobbering.
func (s *LedgerService) ApplyTransaction(ctx context.Context, conversationID, actingUserID string, amount decimal.Decimal, direction models.TransactionType) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, common.ErrInvalidAmount
	}
	delta := amount
	switch direction {
	case models.TransactionCredit:
	case models.TransactionDebit:
		delta = amount.Neg()
	default:
		return decimal.Zero, common.ErrInvalidAmount
	}

	conv, err := ensureConversation(ctx, s.store, s.log, conversationID, actingUserID)
	if err != nil {
		return decimal.Zero, err
	}

	if err := s.store.IncrementBalance(ctx, conversationID, actingUserID, delta); err != nil {
		return decimal.Zero, err
	}

	// Best effort: the increment may race a concurrent write from another
	// device, in which case the authoritative total arrives via the live
	// subscription shortly after.
	return conv.Balance(actingUserID).Add(delta), nil
}

// ensureConversation fetches the conversation, creating it with both
// participants and zero balances on first interaction. Every write path
// (transaction, message append, replay) goes through it: the document must
// carry its participants before any partial update such as the preview
// merge touches it, or later increments land on balance keys the reads
// never surface.
func ensureConversation(ctx context.Context, store backend.Store, log logging.Logger, conversationID, actingUserID string) (*models.Conversation, error) {
	conv, err := store.GetConversation(ctx, conversationID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	a, b, ok := models.SplitConversationID(conversationID)
	if !ok {
		return nil, fmt.Errorf("malformed conversation id %q", conversationID)
	}
	if actingUserID != a && actingUserID != b {
		return nil, fmt.Errorf("user %s is not a participant of %s", actingUserID, conversationID)
	}

	conv = models.NewConversation(a, b)
	if err := store.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}
	log.Info(ctx, "conversation created", "conversation", conversationID)
	return conv, nil
}
