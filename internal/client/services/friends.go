package services

import (
	"context"

	"github.com/mpetrovs/tabchat/internal/client/backend"
	"github.com/mpetrovs/tabchat/internal/client/models"
	"github.com/mpetrovs/tabchat/internal/client/repositories/pendingops"
	"github.com/mpetrovs/tabchat/internal/logging"
)

// FriendAddOutcome is the typed result of a friend-add: both links written,
// only the caller's side written (mirror queued for replay), or everything
// queued because the device was offline.
type FriendAddOutcome string

const (
	FriendAddComplete FriendAddOutcome = "complete"
	FriendAddPartial  FriendAddOutcome = "partial"
	FriendAddQueued   FriendAddOutcome = "queued"
)

// FriendService manages the symmetric friend links between user documents.
// Friendship is one logical operation over two documents with no
// transactional guarantee from the backend, so the second write gets a
// compensating pending operation instead of being fire-and-forget.
type FriendService struct {
	store backend.Store
	queue pendingops.Repository
	conn  Connectivity
	log   logging.Logger
}

func NewFriendService(store backend.Store, queue pendingops.Repository, conn Connectivity, log logging.Logger) *FriendService {
	return &FriendService{store: store, queue: queue, conn: conn, log: log}
}

// AddFriend links userID and friendID on both user documents. Array-union
// semantics make each side idempotent, so replays are safe.
func (s *FriendService) AddFriend(ctx context.Context, userID, friendID string) (FriendAddOutcome, error) {
	if !s.conn.Online() {
		if err := s.enqueueLink(ctx, userID, friendID); err != nil {
			return "", err
		}
		if err := s.enqueueLink(ctx, friendID, userID); err != nil {
			return "", err
		}
		return FriendAddQueued, nil
	}

	if err := s.store.AddFriend(ctx, userID, friendID); err != nil {
		if !backend.IsTransient(err) {
			return "", err
		}
		s.log.Warn(ctx, "friend add degraded to queue", "friend", friendID, "error", err)
		if err := s.enqueueLink(ctx, userID, friendID); err != nil {
			return "", err
		}
		if err := s.enqueueLink(ctx, friendID, userID); err != nil {
			return "", err
		}
		return FriendAddQueued, nil
	}

	// Mirror link. On failure the compensating op replays it later; the
	// caller learns the link is half-applied for now.
	if err := s.store.AddFriend(ctx, friendID, userID); err != nil {
		s.log.Warn(ctx, "mirror friend link failed, queueing compensation", "friend", friendID, "error", err)
		if qerr := s.enqueueLink(ctx, friendID, userID); qerr != nil {
			return "", qerr
		}
		return FriendAddPartial, nil
	}
	return FriendAddComplete, nil
}

func (s *FriendService) enqueueLink(ctx context.Context, userID, friendID string) error {
	op, err := models.NewPendingOperation(models.OpProfileUpdate, models.ProfileOp{
		UserID:     userID,
		AddFriends: []string{friendID},
	})
	if err != nil {
		return err
	}
	return s.queue.Enqueue(ctx, op)
}

// Candidates lists users who are not yet friends of userID, for the
// "add a friend" screen.
func (s *FriendService) Candidates(ctx context.Context, userID string) ([]*models.User, error) {
	me, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListUsers(ctx, userID)
	if err != nil {
		return nil, err
	}

	var result []*models.User
	for _, u := range all {
		if !me.IsFriend(u.ID) {
			result = append(result, u)
		}
	}
	return result, nil
}
