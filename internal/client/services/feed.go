package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mpetrovs/tabchat/internal/client/backend"
	"github.com/mpetrovs/tabchat/internal/client/models"
)

// Feed merges the confirmed message stream of a conversation with the
// provisional local echoes of sends queued while offline.
//
// A provisional echo is reconciled away once a confirmed message with the
// same sender, content and approximate time arrives; matching by id is
// impossible because the backend assigns a fresh id on replay.
//
// Only the message is echoed locally. A queued transaction's balance delta
// has no local shadow, so net balances shown elsewhere stay at the
// backend's last known totals until the replay applies the delta.
type Feed struct {
	store backend.Store
	skew  time.Duration

	mu          sync.Mutex
	provisional map[string][]*models.Message // conversationID -> echoes
}

func NewFeed(store backend.Store) *Feed {
	return &Feed{
		store:       store,
		skew:        backend.ClockSkewTolerance,
		provisional: make(map[string][]*models.Message),
	}
}

// AddProvisional registers a local echo for display until its confirmed
// counterpart arrives.
func (f *Feed) AddProvisional(conversationID string, m *models.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.provisional[conversationID] = append(f.provisional[conversationID], m)
}

// Pending returns the provisional echoes currently held for a conversation.
func (f *Feed) Pending(conversationID string) []*models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.Message(nil), f.provisional[conversationID]...)
}

// Watch streams the merged message sequence for the conversation until ctx
// is done. Each emission is the full sequence ordered by timestamp, with
// unconfirmed echoes included in place.
func (f *Feed) Watch(ctx context.Context, conversationID string) (<-chan []*models.Message, error) {
	confirmed, err := f.store.WatchMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	out := make(chan []*models.Message)
	go func() {
		defer close(out)
		for batch := range confirmed {
			merged := f.merge(conversationID, batch)
			select {
			case out <- merged:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// merge drops every provisional echo matched by a confirmed message, then
// interleaves the survivors into the sequence by local timestamp.
func (f *Feed) merge(conversationID string, confirmed []*models.Message) []*models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	var remaining []*models.Message
	for _, echo := range f.provisional[conversationID] {
		matched := false
		for _, m := range confirmed {
			if echo.SameAs(m, f.skew) {
				matched = true
				break
			}
		}
		if !matched {
			remaining = append(remaining, echo)
		}
	}
	f.provisional[conversationID] = remaining

	merged := make([]*models.Message, 0, len(confirmed)+len(remaining))
	merged = append(merged, confirmed...)
	merged = append(merged, remaining...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	return merged
}
