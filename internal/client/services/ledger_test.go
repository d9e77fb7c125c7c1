package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpetrovs/tabchat/internal/client/models"
	"github.com/mpetrovs/tabchat/internal/common"
)

func TestApplyTransaction_CreditMovesOnlyOwnTotal(t *testing.T) {
	store := newFakeStore()
	convID := models.ConversationID("alice", "bob")
	require.NoError(t, store.CreateConversation(context.Background(), models.NewConversation("alice", "bob")))

	svc := NewLedgerService(store, testLogger())

	total, err := svc.ApplyTransaction(context.Background(), convID, "alice", decimal.NewFromInt(20), models.TransactionCredit)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(20)))

	conv, err := store.GetConversation(context.Background(), convID)
	require.NoError(t, err)
	assert.True(t, conv.Balance("alice").Equal(decimal.NewFromInt(20)))
	assert.True(t, conv.Balance("bob").IsZero(), "the counterparty's total must not move")
	assert.True(t, conv.NetBalance("alice").Equal(decimal.NewFromInt(20)))
	assert.True(t, conv.NetBalance("bob").Equal(decimal.NewFromInt(-20)))
}

func TestApplyTransaction_DebitSubtracts(t *testing.T) {
	store := newFakeStore()
	convID := models.ConversationID("alice", "bob")
	require.NoError(t, store.CreateConversation(context.Background(), models.NewConversation("alice", "bob")))

	svc := NewLedgerService(store, testLogger())

	total, err := svc.ApplyTransaction(context.Background(), convID, "bob", decimal.NewFromInt(5), models.TransactionDebit)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(-5)))

	conv, err := store.GetConversation(context.Background(), convID)
	require.NoError(t, err)
	assert.True(t, conv.Balance("bob").Equal(decimal.NewFromInt(-5)))
}

func TestApplyTransaction_LazyCreatesConversation(t *testing.T) {
	store := newFakeStore()
	convID := models.ConversationID("alice", "bob")

	svc := NewLedgerService(store, testLogger())

	total, err := svc.ApplyTransaction(context.Background(), convID, "alice", decimal.NewFromInt(10), models.TransactionCredit)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(10)))

	conv, err := store.GetConversation(context.Background(), convID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, conv.Participants[:])
	assert.True(t, conv.Balance("alice").Equal(decimal.NewFromInt(10)))
	assert.True(t, conv.Balance("bob").IsZero())
}

func TestApplyTransaction_RejectsInvalidInput(t *testing.T) {
	store := newFakeStore()
	svc := NewLedgerService(store, testLogger())
	convID := models.ConversationID("alice", "bob")

	_, err := svc.ApplyTransaction(context.Background(), convID, "alice", decimal.Zero, models.TransactionCredit)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = svc.ApplyTransaction(context.Background(), convID, "alice", decimal.NewFromInt(-3), models.TransactionDebit)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = svc.ApplyTransaction(context.Background(), convID, "alice", decimal.NewFromInt(3), models.TransactionType("transfer"))
	assert.ErrorIs(t, err, common.ErrInvalidAmount)
}

func TestApplyTransaction_RejectsNonParticipant(t *testing.T) {
	store := newFakeStore()
	svc := NewLedgerService(store, testLogger())

	_, err := svc.ApplyTransaction(context.Background(), models.ConversationID("alice", "bob"), "mallory", decimal.NewFromInt(1), models.TransactionCredit)
	require.Error(t, err)

	_, gerr := store.GetConversation(context.Background(), models.ConversationID("alice", "bob"))
	assert.ErrorIs(t, gerr, common.ErrorNotFound, "no conversation may be created for a non-participant")
}
