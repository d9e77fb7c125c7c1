package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpetrovs/tabchat/internal/client/models"
	"github.com/mpetrovs/tabchat/internal/common"
)

func TestAddFriend_Complete(t *testing.T) {
	store := newFakeStore()
	queue := newFakeQueue()
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, &models.User{ID: "alice"}))
	require.NoError(t, store.CreateUser(ctx, &models.User{ID: "bob"}))

	svc := NewFriendService(store, queue, &fakeConn{online: true}, testLogger())
	outcome, err := svc.AddFriend(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, FriendAddComplete, outcome)

	alice, _ := store.GetUser(ctx, "alice")
	bob, _ := store.GetUser(ctx, "bob")
	assert.Contains(t, alice.Friends, "bob")
	assert.Contains(t, bob.Friends, "alice")

	n, err := queue.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAddFriend_MirrorFailureQueuesCompensation(t *testing.T) {
	store := newFakeStore()
	queue := newFakeQueue()
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, &models.User{ID: "alice"}))
	require.NoError(t, store.CreateUser(ctx, &models.User{ID: "bob"}))
	store.addFriendErr["bob"] = common.ErrorUnavailable

	svc := NewFriendService(store, queue, &fakeConn{online: true}, testLogger())
	outcome, err := svc.AddFriend(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, FriendAddPartial, outcome)

	alice, _ := store.GetUser(ctx, "alice")
	assert.Contains(t, alice.Friends, "bob")

	ops := queue.snapshot()
	require.Len(t, ops, 1)
	po, err := ops[0].DecodeProfileOp()
	require.NoError(t, err)
	assert.Equal(t, "bob", po.UserID)
	assert.Equal(t, []string{"alice"}, po.AddFriends)
}

func TestAddFriend_OfflineQueuesBothLinks(t *testing.T) {
	store := newFakeStore()
	queue := newFakeQueue()
	ctx := context.Background()

	svc := NewFriendService(store, queue, &fakeConn{online: false}, testLogger())
	outcome, err := svc.AddFriend(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, FriendAddQueued, outcome)

	ops := queue.snapshot()
	require.Len(t, ops, 2)
	first, err := ops[0].DecodeProfileOp()
	require.NoError(t, err)
	second, err := ops[1].DecodeProfileOp()
	require.NoError(t, err)
	assert.Equal(t, "alice", first.UserID)
	assert.Equal(t, []string{"bob"}, first.AddFriends)
	assert.Equal(t, "bob", second.UserID)
	assert.Equal(t, []string{"alice"}, second.AddFriends)
}

func TestAddFriend_TransientFirstWriteQueuesBothLinks(t *testing.T) {
	store := newFakeStore()
	queue := newFakeQueue()
	ctx := context.Background()
	store.addFriendErr["alice"] = common.ErrorUnavailable

	svc := NewFriendService(store, queue, &fakeConn{online: true}, testLogger())
	outcome, err := svc.AddFriend(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, FriendAddQueued, outcome)

	n, err := queue.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestAddFriend_PermanentFailureSurfaces(t *testing.T) {
	store := newFakeStore()
	queue := newFakeQueue()
	ctx := context.Background()
	store.addFriendErr["alice"] = common.ErrorUnauthorized

	svc := NewFriendService(store, queue, &fakeConn{online: true}, testLogger())
	_, err := svc.AddFriend(ctx, "alice", "bob")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	n, err := queue.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCandidates_ExcludesSelfAndFriends(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, &models.User{ID: "alice", Friends: []string{"bob"}}))
	require.NoError(t, store.CreateUser(ctx, &models.User{ID: "bob"}))
	require.NoError(t, store.CreateUser(ctx, &models.User{ID: "clara"}))

	svc := NewFriendService(store, newFakeQueue(), &fakeConn{online: true}, testLogger())
	candidates, err := svc.Candidates(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "clara", candidates[0].ID)
}
