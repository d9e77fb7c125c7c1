package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mpetrovs/tabchat/internal/client/backend"
	"github.com/mpetrovs/tabchat/internal/client/models"
	"github.com/mpetrovs/tabchat/internal/common"
	"github.com/mpetrovs/tabchat/internal/logging"
)

// PlaceholderPreview is shown for a friend with no conversation yet.
const PlaceholderPreview = "Tap to start chatting"

// ConversationSummary is one directory row: a counterparty with the live
// net balance and the denormalized recency data.
type ConversationSummary struct {
	ConversationID  string
	Counterparty    *models.User
	NetBalance      decimal.Decimal
	Preview         string
	LastMessageTime time.Time // zero when the conversation has no messages
}

// DirectoryService produces the live, recency-ordered view of the current
// user's conversations with derived net balances. Net balances are always
// recomputed from the conversation's balances map, never cached. Balance
// deltas still sitting in the offline queue are not folded in: the listing
// shows the backend's totals and catches up when the replay lands them.
type DirectoryService struct {
	store backend.Store
	log   logging.Logger
}

func NewDirectoryService(store backend.Store, log logging.Logger) *DirectoryService {
	return &DirectoryService{store: store, log: log}
}

// List returns one summary per friend, ordered by last message time
// descending; conversations with no messages sort last (zero time is the
// minimum sentinel). A friend without a conversation document yet gets zero
// balances and a placeholder preview.
func (s *DirectoryService) List(ctx context.Context, userID string) ([]ConversationSummary, error) {
	me, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(me.Friends))
	for _, friendID := range me.Friends {
		summary, err := s.summarize(ctx, userID, friendID)
		if err != nil {
			s.log.Warn(ctx, "skipping unreadable directory row", "friend", friendID, "error", err)
			continue
		}
		summaries = append(summaries, *summary)
	}

	sortSummaries(summaries)
	return summaries, nil
}

func (s *DirectoryService) summarize(ctx context.Context, userID, friendID string) (*ConversationSummary, error) {
	friend, err := s.store.GetUser(ctx, friendID)
	if err != nil {
		return nil, err
	}

	summary := &ConversationSummary{
		ConversationID: models.ConversationID(userID, friendID),
		Counterparty:   friend,
		NetBalance:     decimal.Zero,
		Preview:        PlaceholderPreview,
	}

	conv, err := s.store.GetConversation(ctx, summary.ConversationID)
	if errors.Is(err, common.ErrorNotFound) {
		return summary, nil
	}
	if err != nil {
		return nil, err
	}

	summary.NetBalance = conv.NetBalance(userID)
	summary.LastMessageTime = conv.LastMessageTime
	if conv.LastMessage != "" {
		summary.Preview = conv.LastMessage
	}
	return summary, nil
}

// Watch keeps a directory listing live: it subscribes to every friend's
// conversation document and re-emits the re-sorted listing whenever any of
// them changes. The channel closes when ctx is done. Friends added after
// the call are picked up by watching again.
func (s *DirectoryService) Watch(ctx context.Context, userID string) (<-chan []ConversationSummary, error) {
	initial, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make(chan []ConversationSummary, 1)

	var mu sync.Mutex
	rows := make(map[string]ConversationSummary, len(initial))
	for _, row := range initial {
		rows[row.ConversationID] = row
	}

	emit := func() {
		mu.Lock()
		listing := make([]ConversationSummary, 0, len(rows))
		for _, row := range rows {
			listing = append(listing, row)
		}
		mu.Unlock()
		sortSummaries(listing)
		select {
		case out <- listing:
		case <-ctx.Done():
		}
	}

	var wg sync.WaitGroup
	for _, row := range initial {
		updates, err := s.store.WatchConversation(ctx, row.ConversationID)
		if err != nil {
			s.log.Warn(ctx, "conversation watch unavailable", "conversation", row.ConversationID, "error", err)
			continue
		}

		wg.Add(1)
		go func(row ConversationSummary, updates <-chan *models.Conversation) {
			defer wg.Done()
			for conv := range updates {
				mu.Lock()
				current := rows[row.ConversationID]
				current.NetBalance = conv.NetBalance(userID)
				current.LastMessageTime = conv.LastMessageTime
				if conv.LastMessage != "" {
					current.Preview = conv.LastMessage
				}
				rows[row.ConversationID] = current
				mu.Unlock()
				emit()
			}
		}(row, updates)
	}

	// The initial emit must complete before the closer can run: with no
	// watchers the WaitGroup is already drained, and close(out) would race
	// the send above.
	emit()
	go func() {
		wg.Wait()
		close(out)
	}()

	return out, nil
}

// sortSummaries orders by recency descending. Zero LastMessageTime is the
// epoch sentinel, so no-message conversations end up last; name breaks ties
// for a stable display.
func sortSummaries(s []ConversationSummary) {
	sort.SliceStable(s, func(i, j int) bool {
		if !s[i].LastMessageTime.Equal(s[j].LastMessageTime) {
			return s[i].LastMessageTime.After(s[j].LastMessageTime)
		}
		return s[i].Counterparty.DisplayName() < s[j].Counterparty.DisplayName()
	})
}
