package cli

import (
	"context"
	"fmt"

	"github.com/mpetrovs/tabchat/internal/common"
)

// Chats prints the conversation directory: one row per friend, most recent
// first, with the live net balance.
func (a *App) Chats(ctx context.Context) error {
	if a.user == nil {
		fmt.Println("Sign in first")
		return common.ErrNotSignedIn
	}

	rows, err := a.core.Directory.List(ctx, a.user.ID)
	if err != nil {
		fmt.Println("Could not load chats:", err)
		return err
	}
	if len(rows) == 0 {
		fmt.Println("No chats yet. Add a friend with 'invite'.")
		return nil
	}

	for i, row := range rows {
		balance := ""
		if !row.NetBalance.IsZero() {
			if row.NetBalance.IsPositive() {
				balance = fmt.Sprintf("  [owes you $%s]", row.NetBalance.StringFixed(2))
			} else {
				balance = fmt.Sprintf("  [you owe $%s]", row.NetBalance.Neg().StringFixed(2))
			}
		}
		fmt.Printf("%2d. %-20s %s%s\n", i+1, row.Counterparty.DisplayName(), row.Preview, balance)
	}
	return nil
}

// Sync drains the pending-operation queue by hand, for users who do not
// want to wait for the next connectivity edge.
func (a *App) Sync(ctx context.Context) error {
	if !a.core.Monitor.Online() {
		fmt.Println("Offline; queued operations will sync when connectivity returns")
		return nil
	}
	if err := a.core.Replay.DrainAndReplay(ctx); err != nil {
		fmt.Println("Sync failed:", err)
		return err
	}
	fmt.Println("Synced")
	return nil
}
