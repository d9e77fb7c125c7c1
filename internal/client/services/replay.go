package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mpetrovs/tabchat/internal/client/backend"
	"github.com/mpetrovs/tabchat/internal/client/models"
	"github.com/mpetrovs/tabchat/internal/client/repositories/pendingops"
	"github.com/mpetrovs/tabchat/internal/common"
	"github.com/mpetrovs/tabchat/internal/logging"
)

// ReplayService drains the pending-operation queue against the backend once
// connectivity returns.
//
// Semantics are at-least-once: an operation leaves the queue only when its
// replay succeeded; a failed operation is re-enqueued alone (the batch keeps
// going) with exponential backoff, and is surfaced through OnExhausted after
// MaxAttempts instead of looping silently forever.
type ReplayService struct {
	queue pendingops.Repository
	store backend.Store
	log   logging.Logger

	// MaxAttempts and BackoffBase govern the retry policy for a failing
	// operation. OnExhausted, if set, receives operations dropped after the
	// final attempt.
	MaxAttempts int
	BackoffBase time.Duration
	OnExhausted func(op *models.PendingOperation, err error)

	// One drain at a time: an edge-triggered monitor and a manual sync may
	// race otherwise.
	mu sync.Mutex

	now func() time.Time
}

func NewReplayService(queue pendingops.Repository, store backend.Store, log logging.Logger) *ReplayService {
	return &ReplayService{
		queue:       queue,
		store:       store,
		log:         log,
		MaxAttempts: 8,
		BackoffBase: 2 * time.Second,
		now:         time.Now,
	}
}

// DrainAndReplay takes a snapshot of the ready queue (clearing it in the
// same transaction) and replays each operation in original enqueue order.
func (s *ReplayService) DrainAndReplay(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ops, err := s.queue.TakeReady(ctx, s.now())
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}
	s.log.Info(ctx, "replaying pending operations", "count", len(ops))

	for _, op := range ops {
		err := s.apply(ctx, op)
		if err == nil {
			continue
		}

		if op.Attempts+1 >= s.MaxAttempts {
			s.log.Error(ctx, "dropping operation after final attempt",
				"kind", op.Kind, "attempts", op.Attempts+1, "error", err)
			if s.OnExhausted != nil {
				s.OnExhausted(op, errors.Join(common.ErrReplayExhausted, err))
			}
			continue
		}

		backoff := s.BackoffBase << op.Attempts
		s.log.Warn(ctx, "replay failed, re-enqueueing operation",
			"kind", op.Kind, "attempts", op.Attempts+1, "retry_in", backoff, "error", err)
		if qerr := s.queue.Requeue(ctx, op, s.now().Add(backoff)); qerr != nil {
			return qerr
		}
	}
	return nil
}

func (s *ReplayService) apply(ctx context.Context, op *models.PendingOperation) error {
	switch op.Kind {
	case models.OpMessage:
		return s.applyMessage(ctx, op)
	case models.OpProfileUpdate:
		return s.applyProfile(ctx, op)
	case models.OpBalanceUpdate:
		return s.applyBalance(ctx, op)
	default:
		// Unknown kinds come from a newer client version; keep them out of
		// the retry loop.
		s.log.Error(ctx, "unknown pending operation kind", "kind", op.Kind)
		return nil
	}
}

// applyMessage re-appends the message, converting the locally captured
// timestamp into the backend's canonical representation, and brings the
// deferred preview up to date.
func (s *ReplayService) applyMessage(ctx context.Context, op *models.PendingOperation) error {
	mo, err := op.DecodeMessageOp()
	if err != nil {
		return err
	}
	msg := &models.Message{
		SenderID:        mo.SenderID,
		Text:            mo.Text,
		Amount:          mo.Amount,
		TransactionType: mo.TransactionType,
		Timestamp:       mo.SentAt,
	}

	// The queued message may be the first interaction of the pair.
	if _, err := ensureConversation(ctx, s.store, s.log, mo.ConversationID, mo.SenderID); err != nil {
		return err
	}
	if _, err := s.store.AppendMessage(ctx, mo.ConversationID, msg); err != nil {
		return err
	}

	if err := s.store.SetConversationPreview(ctx, mo.ConversationID, previewText(msg)); err != nil {
		// Advisory data; the next successful write corrects it.
		s.log.Warn(ctx, "preview update failed during replay", "conversation", mo.ConversationID, "error", err)
	}
	return nil
}

func (s *ReplayService) applyProfile(ctx context.Context, op *models.PendingOperation) error {
	po, err := op.DecodeProfileOp()
	if err != nil {
		return err
	}
	if err := s.store.UpdateUserFields(ctx, po.UserID, po.Fields); err != nil {
		return err
	}
	for _, friendID := range po.AddFriends {
		if err := s.store.AddFriend(ctx, po.UserID, friendID); err != nil {
			return err
		}
	}
	return nil
}

// applyBalance replays the recorded signed delta as an atomic increment.
// Replaying a drained operation applies its delta exactly once, and the
// increment composes with any writes that happened since enqueue.
func (s *ReplayService) applyBalance(ctx context.Context, op *models.PendingOperation) error {
	bo, err := op.DecodeBalanceOp()
	if err != nil {
		return err
	}

	if _, err := ensureConversation(ctx, s.store, s.log, bo.ConversationID, bo.UserID); err != nil {
		return err
	}
	return s.store.IncrementBalance(ctx, bo.ConversationID, bo.UserID, bo.Delta)
}
