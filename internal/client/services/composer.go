package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mpetrovs/tabchat/internal/client/backend"
	"github.com/mpetrovs/tabchat/internal/client/models"
	"github.com/mpetrovs/tabchat/internal/client/push"
	"github.com/mpetrovs/tabchat/internal/client/repositories/pendingops"
	"github.com/mpetrovs/tabchat/internal/logging"
)

// SendResult tells the caller how a send ended: confirmed remote, queued
// locally, or rejected before any I/O.
type SendResult string

const (
	SendOK     SendResult = "ok"
	SendQueued SendResult = "queued"
	SendFailed SendResult = "failed"
)

// SendInput is one user send action: a text, an optional amount with its
// direction, addressed to a counterparty.
type SendInput struct {
	ConversationID string
	SenderID       string
	SenderName     string
	CounterpartyID string
	Text           string
	Amount         *decimal.Decimal
	Direction      models.TransactionType
}

// EchoSink receives provisional local echoes of messages queued offline so
// the feed can display them before the backend confirms.
type EchoSink interface {
	AddProvisional(conversationID string, m *models.Message)
}

// Composer is the single entry point for "send". It bundles the optional
// ledger update with the message append, branching on connectivity decided
// once at call time. Network-layer failures never propagate: they degrade
// the send to the queued path.
type Composer struct {
	store      backend.Store
	ledger     *LedgerService
	queue      pendingops.Repository
	conn       Connectivity
	dispatcher push.Dispatcher
	echoes     EchoSink
	log        logging.Logger

	// sendTimeout demotes a stalled online attempt to the queued path
	// instead of hanging the caller.
	sendTimeout time.Duration

	now func() time.Time
}

func NewComposer(store backend.Store, ledger *LedgerService, queue pendingops.Repository,
	conn Connectivity, dispatcher push.Dispatcher, echoes EchoSink,
	sendTimeout time.Duration, log logging.Logger) *Composer {
	return &Composer{
		store:       store,
		ledger:      ledger,
		queue:       queue,
		conn:        conn,
		dispatcher:  dispatcher,
		echoes:      echoes,
		log:         log,
		sendTimeout: sendTimeout,
		now:         time.Now,
	}
}

// Send validates the input, then either applies it against the backend or
// queues it for replay. The returned message is the caller's local echo:
// confirmed on the online path, provisional on the queued one.
func (c *Composer) Send(ctx context.Context, in SendInput) (SendResult, *models.Message, error) {
	msg := &models.Message{
		ID:              uuid.NewString(),
		SenderID:        in.SenderID,
		Text:            in.Text,
		Amount:          in.Amount,
		TransactionType: in.Direction,
		Timestamp:       c.now(),
		Status:          models.StatusProvisional,
	}
	if err := msg.Validate(); err != nil {
		return SendFailed, nil, err
	}

	if !c.conn.Online() {
		return c.sendOffline(ctx, in, msg, true)
	}

	sendCtx := ctx
	if c.sendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, c.sendTimeout)
		defer cancel()
	}

	result, balanceApplied, err := c.sendOnline(sendCtx, in, msg)
	if err == nil {
		return result, msg, nil
	}
	if backend.IsTransient(err) {
		c.log.Warn(ctx, "online send degraded to queue", "conversation", in.ConversationID, "error", err)
		// A balance applied before the failure must not be queued again: the
		// replay would double it.
		return c.sendOffline(ctx, in, msg, !balanceApplied)
	}
	return SendFailed, nil, err
}

func (c *Composer) sendOnline(ctx context.Context, in SendInput, msg *models.Message) (SendResult, bool, error) {
	balanceApplied := false
	if in.Amount != nil {
		if _, err := c.ledger.ApplyTransaction(ctx, in.ConversationID, in.SenderID, *in.Amount, in.Direction); err != nil {
			return SendFailed, false, err
		}
		balanceApplied = true
	} else {
		// A text-only first message creates the conversation too. Without
		// this the preview merge below would bring the document into being
		// with no participants and no balance keys.
		if _, err := ensureConversation(ctx, c.store, c.log, in.ConversationID, in.SenderID); err != nil {
			return SendFailed, false, err
		}
	}

	// Zero timestamp: the backend stamps the canonical time.
	remote := *msg
	remote.Timestamp = time.Time{}
	remoteID, err := c.store.AppendMessage(ctx, in.ConversationID, &remote)
	if err != nil {
		return SendFailed, balanceApplied, err
	}
	msg.ID = remoteID
	msg.Status = models.StatusConfirmed

	// The preview is advisory; a failed update leaves a stale directory row
	// until the next successful write corrects it.
	if err := c.store.SetConversationPreview(ctx, in.ConversationID, previewText(msg)); err != nil {
		c.log.Warn(ctx, "preview update failed", "conversation", in.ConversationID, "error", err)
	}

	c.notifyCounterparty(ctx, in, msg)
	return SendOK, true, nil
}

func (c *Composer) sendOffline(ctx context.Context, in SendInput, msg *models.Message, queueBalance bool) (SendResult, *models.Message, error) {
	if in.Amount != nil && queueBalance {
		op, err := models.NewPendingOperation(models.OpBalanceUpdate, models.BalanceOp{
			ConversationID: in.ConversationID,
			UserID:         in.SenderID,
			CounterpartyID: in.CounterpartyID,
			Delta:          msg.SignedDelta(),
		})
		if err != nil {
			return SendFailed, nil, err
		}
		if err := c.queue.Enqueue(ctx, op); err != nil {
			return SendFailed, nil, fmt.Errorf("queueing balance update: %w", err)
		}
	}

	op, err := models.NewPendingOperation(models.OpMessage, models.MessageOp{
		ConversationID:  in.ConversationID,
		LocalID:         msg.ID,
		SenderID:        msg.SenderID,
		Text:            msg.Text,
		Amount:          msg.Amount,
		TransactionType: msg.TransactionType,
		SentAt:          msg.Timestamp,
	})
	if err != nil {
		return SendFailed, nil, err
	}
	if err := c.queue.Enqueue(ctx, op); err != nil {
		return SendFailed, nil, fmt.Errorf("queueing message: %w", err)
	}

	if c.echoes != nil {
		c.echoes.AddProvisional(in.ConversationID, msg)
	}
	c.log.Info(ctx, "send queued for replay", "conversation", in.ConversationID)
	return SendQueued, msg, nil
}

// notifyCounterparty fires the push without blocking or failing the send.
func (c *Composer) notifyCounterparty(ctx context.Context, in SendInput, msg *models.Message) {
	if c.dispatcher == nil || in.CounterpartyID == "" {
		return
	}
	counterparty, err := c.store.GetUser(ctx, in.CounterpartyID)
	if err != nil || counterparty.PushToken == "" {
		return
	}

	title := in.SenderName
	if title == "" {
		title = in.SenderID
	}
	body := pushBody(msg)
	data := map[string]string{"conversationId": in.ConversationID}

	go func() {
		// Detached from the send's deadline on purpose.
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.dispatcher.Notify(pushCtx, counterparty.PushToken, title, body, data); err != nil {
			c.log.Warn(pushCtx, "push dispatch failed", "conversation", in.ConversationID, "error", err)
		}
	}()
}

// previewText is the denormalized one-line summary shown in the directory.
func previewText(m *models.Message) string {
	if m.Text != "" {
		return m.Text
	}
	return formatAmount(m)
}

// pushBody mirrors the chat bubble: text plus the formatted signed amount.
func pushBody(m *models.Message) string {
	if m.Amount == nil {
		return m.Text
	}
	if m.Text == "" {
		return formatAmount(m)
	}
	return m.Text + "\n" + formatAmount(m)
}

func formatAmount(m *models.Message) string {
	sign := "+"
	if m.TransactionType == models.TransactionDebit {
		sign = "-"
	}
	return fmt.Sprintf("%s $%s", sign, m.Amount.StringFixed(2))
}
