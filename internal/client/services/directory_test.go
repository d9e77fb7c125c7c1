package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpetrovs/tabchat/internal/client/models"
)

func seedConversation(t *testing.T, store *fakeStore, a, b string, aBalance, bBalance int64, lastMessage string, lastAt time.Time) {
	t.Helper()
	conv := models.NewConversation(a, b)
	conv.Balances[a] = decimal.NewFromInt(aBalance)
	conv.Balances[b] = decimal.NewFromInt(bBalance)
	conv.LastMessage = lastMessage
	conv.LastMessageTime = lastAt
	require.NoError(t, store.CreateConversation(context.Background(), conv))
}

func TestList_RecencyOrderWithPlaceholders(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, &models.User{ID: "me", Friends: []string{"anna", "boris", "clara"}}))
	require.NoError(t, store.CreateUser(ctx, &models.User{ID: "anna", Name: "Anna"}))
	require.NoError(t, store.CreateUser(ctx, &models.User{ID: "boris", Name: "Boris"}))
	require.NoError(t, store.CreateUser(ctx, &models.User{ID: "clara", Name: "Clara"}))

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seedConversation(t, store, "me", "anna", 30, 10, "see you", base.Add(-time.Hour))
	seedConversation(t, store, "me", "boris", 0, 15, "thanks!", base)
	// clara: no conversation document yet.

	svc := NewDirectoryService(store, testLogger())
	rows, err := svc.List(ctx, "me")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Boris", rows[0].Counterparty.Name)
	assert.Equal(t, "Anna", rows[1].Counterparty.Name)
	assert.Equal(t, "Clara", rows[2].Counterparty.Name, "no-message conversations sort last")

	assert.Equal(t, "thanks!", rows[0].Preview)
	assert.True(t, rows[0].NetBalance.Equal(decimal.NewFromInt(-15)))

	assert.Equal(t, "see you", rows[1].Preview)
	assert.True(t, rows[1].NetBalance.Equal(decimal.NewFromInt(20)))

	assert.Equal(t, PlaceholderPreview, rows[2].Preview)
	assert.True(t, rows[2].NetBalance.IsZero())
	assert.True(t, rows[2].LastMessageTime.IsZero())
}

func TestList_SkipsUnreadableRows(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	// "ghost" has no profile document; the row is skipped, not fatal.
	require.NoError(t, store.CreateUser(ctx, &models.User{ID: "me", Friends: []string{"anna", "ghost"}}))
	require.NoError(t, store.CreateUser(ctx, &models.User{ID: "anna", Name: "Anna"}))

	svc := NewDirectoryService(store, testLogger())
	rows, err := svc.List(ctx, "me")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Anna", rows[0].Counterparty.Name)
}

func TestList_NoFriends(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, &models.User{ID: "me"}))

	svc := NewDirectoryService(store, testLogger())
	rows, err := svc.List(ctx, "me")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWatch_NoFriendsDeliversEmptyListingThenCloses(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.CreateUser(context.Background(), &models.User{ID: "loner"}))
	svc := NewDirectoryService(store, testLogger())

	// With nothing to watch the closer has no goroutines to wait for; the
	// initial listing must still arrive before the channel closes. Looping
	// gives the race detector repeated shots at the emit/close ordering.
	for i := 0; i < 50; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		out, err := svc.Watch(ctx, "loner")
		require.NoError(t, err)

		listing, ok := <-out
		require.True(t, ok, "the initial listing must be delivered, not raced away by close")
		assert.Empty(t, listing)

		_, ok = <-out
		assert.False(t, ok)
		cancel()
	}
}

func TestWatch_AllSubscriptionsFailingStillDeliversInitialListing(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, &models.User{ID: "me", Friends: []string{"anna"}}))
	require.NoError(t, store.CreateUser(ctx, &models.User{ID: "anna", Name: "Anna"}))
	store.watchConvErr = assert.AnError

	svc := NewDirectoryService(store, testLogger())
	out, err := svc.Watch(ctx, "me")
	require.NoError(t, err)

	listing, ok := <-out
	require.True(t, ok)
	require.Len(t, listing, 1)
	assert.Equal(t, "Anna", listing[0].Counterparty.Name)

	_, ok = <-out
	assert.False(t, ok)
}

func TestWatch_ReordersOnUpdate(t *testing.T) {
	store := newFakeStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, store.CreateUser(ctx, &models.User{ID: "me", Friends: []string{"anna"}}))
	require.NoError(t, store.CreateUser(ctx, &models.User{ID: "anna", Name: "Anna"}))

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seedConversation(t, store, "me", "anna", 0, 0, "hello", base)

	stream := make(chan *models.Conversation, 1)
	store.convStream = stream

	svc := NewDirectoryService(store, testLogger())
	out, err := svc.Watch(ctx, "me")
	require.NoError(t, err)

	first := <-out
	require.Len(t, first, 1)
	assert.Equal(t, "hello", first[0].Preview)

	updated := models.NewConversation("me", "anna")
	updated.Balances["anna"] = decimal.NewFromInt(40)
	updated.LastMessage = "you owe me"
	updated.LastMessageTime = base.Add(time.Minute)
	stream <- updated
	close(stream)

	var last []ConversationSummary
	for rows := range out {
		last = rows
	}
	require.Len(t, last, 1)
	assert.Equal(t, "you owe me", last[0].Preview)
	assert.True(t, last[0].NetBalance.Equal(decimal.NewFromInt(-40)))
	assert.Equal(t, base.Add(time.Minute), last[0].LastMessageTime)
}
