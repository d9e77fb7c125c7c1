package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Separator joining the two sorted participant ids into a conversation id.
const conversationIDSep = "_"

// Conversation is the durable two-party context holding the shared balance
// state and message sequence between exactly two users. Its identity is
// computable by either party without coordination.
//
// Balances holds one independent running total per participant. A user only
// ever moves their own entry; the displayed "net balance" is the difference
// of the two totals, not a conserved transfer.
type Conversation struct {
	ID              string
	Participants    [2]string
	Balances        map[string]decimal.Decimal
	LastMessage     string
	LastMessageTime time.Time
}

// ConversationID derives the deterministic id for the pair (a, b): the two
// ids sorted and joined, so both parties compute the same key.
func ConversationID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + conversationIDSep + b
}

// SplitConversationID recovers the two participant ids from a conversation
// id. ok is false if the id is not of the sorted-pair form.
func SplitConversationID(id string) (a, b string, ok bool) {
	i := strings.Index(id, conversationIDSep)
	if i <= 0 || i == len(id)-1 {
		return "", "", false
	}
	return id[:i], id[i+1:], true
}

// NewConversation returns a conversation for the pair (a, b) with both
// running totals at zero.
func NewConversation(a, b string) *Conversation {
	if b < a {
		a, b = b, a
	}
	return &Conversation{
		ID:           ConversationID(a, b),
		Participants: [2]string{a, b},
		Balances: map[string]decimal.Decimal{
			a: decimal.Zero,
			b: decimal.Zero,
		},
	}
}

// Balance returns the running total for userID, zero if absent.
func (c *Conversation) Balance(userID string) decimal.Decimal {
	if v, ok := c.Balances[userID]; ok {
		return v
	}
	return decimal.Zero
}

// OtherParticipant returns the counterparty of userID, or "" if userID is
// not a participant.
func (c *Conversation) OtherParticipant(userID string) string {
	switch userID {
	case c.Participants[0]:
		return c.Participants[1]
	case c.Participants[1]:
		return c.Participants[0]
	}
	return ""
}

// NetBalance computes what the counterparty owes userID:
// balances[userID] - balances[other]. Recomputed from the live map on every
// call, never cached.
func (c *Conversation) NetBalance(userID string) decimal.Decimal {
	return c.Balance(userID).Sub(c.Balance(c.OtherParticipant(userID)))
}
