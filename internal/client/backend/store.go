// Package backend defines the interface the client needs from the managed
// remote document store, and implements it over Cloud Firestore.
//
// The store is an external collaborator: the client only assumes read-one,
// merge-write, append-to-subcollection and subscribe-to-changes primitives
// with server-assigned timestamps. Everything else (query planning,
// replication, real-time delivery) belongs to the backend.
package backend

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mpetrovs/tabchat/internal/client/models"
)

// Store is the remote document store seen by the client services.
type Store interface {
	Close() error

	// Ping performs a cheap read to probe reachability.
	Ping(ctx context.Context) error

	// GetUser returns users/{id}, or common.ErrorNotFound.
	GetUser(ctx context.Context, id string) (*models.User, error)

	// CreateUser merge-creates users/{id} from u.
	CreateUser(ctx context.Context, u *models.User) error

	// UpdateUserFields applies a field-level merge to users/{id}.
	UpdateUserFields(ctx context.Context, id string, fields map[string]any) error

	// AddFriend adds friendID to users/{userID}.friends as a set union.
	// One-sided: callers mirror the link themselves.
	AddFriend(ctx context.Context, userID, friendID string) error

	// ListUsers returns every user profile except id.
	ListUsers(ctx context.Context, excludeID string) ([]*models.User, error)

	// GetConversation returns chatRooms/{id}, or common.ErrorNotFound.
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)

	// CreateConversation creates chatRooms/{c.ID} if absent. Creating a
	// conversation that already exists is not an error.
	CreateConversation(ctx context.Context, c *models.Conversation) error

	// IncrementBalance atomically adds delta to balances[userID] of the
	// conversation. Only the acting user's own entry is ever addressed.
	IncrementBalance(ctx context.Context, conversationID, userID string, delta decimal.Decimal) error

	// SetConversationPreview updates the denormalized lastMessage /
	// lastMessageTime pair, stamping the time server-side.
	SetConversationPreview(ctx context.Context, conversationID, preview string) error

	// AppendMessage appends m to the conversation's message sequence and
	// returns the backend-assigned id. A zero m.Timestamp means "stamp
	// server-side"; a non-zero one (offline replay) is written as given.
	AppendMessage(ctx context.Context, conversationID string, m *models.Message) (string, error)

	// WatchConversation streams the conversation document on every change
	// until ctx is done. The channel is closed when the stream ends.
	WatchConversation(ctx context.Context, id string) (<-chan *models.Conversation, error)

	// WatchMessages streams the full message sequence, ordered by timestamp
	// ascending, on every change until ctx is done.
	WatchMessages(ctx context.Context, conversationID string) (<-chan []*models.Message, error)
}

// ClockSkewTolerance bounds how far a locally stamped replay timestamp may
// drift from server time before feed reconciliation stops matching it.
const ClockSkewTolerance = 2 * time.Minute
