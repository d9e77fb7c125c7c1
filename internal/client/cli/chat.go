package cli

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mpetrovs/tabchat/internal/client/models"
	"github.com/mpetrovs/tabchat/internal/client/services"
	"github.com/mpetrovs/tabchat/internal/common"
)

// amountToken matches a trailing signed amount like +20 or -12.50.
var amountToken = regexp.MustCompile(`^[+-]\d+(\.\d{1,2})?$`)

// parseSend splits a chat line into its text and an optional signed amount.
// A trailing token of the form +20 or -12.50 becomes a credit or debit; the
// rest of the line is the message text.
func parseSend(line string) (text string, amount *decimal.Decimal, direction models.TransactionType, err error) {
	line = strings.TrimSpace(line)
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil, "", common.ErrEmptyMessage
	}

	last := fields[len(fields)-1]
	if !amountToken.MatchString(last) {
		return line, nil, "", nil
	}

	direction = models.TransactionCredit
	if last[0] == '-' {
		direction = models.TransactionDebit
	}
	value, err := decimal.NewFromString(last[1:])
	if err != nil {
		return "", nil, "", common.ErrInvalidAmount
	}

	text = strings.TrimSpace(strings.TrimSuffix(line, last))
	return text, &value, direction, nil
}

// Chat opens the conversation with the named friend and enters a send loop.
// Each line is a message; a trailing +20 / -12.50 moves the balance. The
// loop exits on "/back".
func (a *App) Chat(ctx context.Context, name string) error {
	if a.user == nil {
		fmt.Println("Sign in first")
		return common.ErrNotSignedIn
	}

	friend, err := a.findFriend(ctx, name)
	if err != nil {
		fmt.Println(err)
		return err
	}
	convID := models.ConversationID(a.user.ID, friend.ID)

	a.printHistory(ctx, convID, friend)

	fmt.Printf("Chatting with %s. Messages may end with +20 or -12.50; '/back' to leave.\n", friend.DisplayName())
	for {
		line, err := getSimpleText(a.reader, "", os.Stdout)
		if err != nil {
			return err
		}
		if line == "/back" {
			return nil
		}

		text, amount, direction, err := parseSend(line)
		if err != nil {
			fmt.Println("Nothing to send")
			continue
		}

		result, msg, err := a.core.Composer.Send(ctx, services.SendInput{
			ConversationID: convID,
			SenderID:       a.user.ID,
			SenderName:     a.user.DisplayName(),
			CounterpartyID: friend.ID,
			Text:           text,
			Amount:         amount,
			Direction:      direction,
		})
		switch {
		case err != nil:
			fmt.Println("Send failed:", err)
		case result == services.SendQueued:
			fmt.Println("(queued, will send when online)")
		default:
			a.printMessage(msg, friend)
		}
	}
}

// printHistory shows the current message sequence, including provisional
// echoes of sends still waiting in the queue.
func (a *App) printHistory(ctx context.Context, convID string, friend *models.User) {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed, err := a.core.Feed.Watch(watchCtx, convID)
	if err != nil {
		a.log.Warn(ctx, "history unavailable", "conversation", convID, "error", err)
		return
	}

	select {
	case batch := <-feed:
		for _, m := range batch {
			a.printMessage(m, friend)
		}
	case <-time.After(3 * time.Second):
	}
}

func (a *App) printMessage(m *models.Message, friend *models.User) {
	who := "me"
	if m.SenderID == friend.ID {
		who = friend.DisplayName()
	}
	mark := ""
	if m.Status == models.StatusProvisional {
		mark = " (pending)"
	}
	line := m.Text
	if m.Amount != nil {
		sign := "+"
		if m.TransactionType == models.TransactionDebit {
			sign = "-"
		}
		entry := fmt.Sprintf("%s $%s", sign, m.Amount.StringFixed(2))
		if line == "" {
			line = entry
		} else {
			line = line + "  " + entry
		}
	}
	fmt.Printf("[%s] %s: %s%s\n", m.Timestamp.Format("15:04"), who, line, mark)
}

// findFriend resolves a friend by display name, email or id prefix.
func (a *App) findFriend(ctx context.Context, name string) (*models.User, error) {
	me, err := a.core.Store.GetUser(ctx, a.user.ID)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	needle := strings.ToLower(name)
	for _, friendID := range me.Friends {
		friend, err := a.core.Store.GetUser(ctx, friendID)
		if err != nil {
			continue
		}
		if strings.ToLower(friend.Name) == needle ||
			strings.ToLower(friend.Email) == needle ||
			strings.HasPrefix(friend.ID, name) {
			return friend, nil
		}
	}
	return nil, fmt.Errorf("no friend matching %q", name)
}
