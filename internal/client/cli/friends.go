package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/mpetrovs/tabchat/internal/client/services"
	"github.com/mpetrovs/tabchat/internal/common"
)

// Friends lists the current user's friends.
func (a *App) Friends(ctx context.Context) error {
	if a.user == nil {
		fmt.Println("Sign in first")
		return common.ErrNotSignedIn
	}

	me, err := a.core.Store.GetUser(ctx, a.user.ID)
	if err != nil {
		fmt.Println("Could not load profile:", err)
		return err
	}
	if len(me.Friends) == 0 {
		fmt.Println("No friends yet. Use 'invite' to add one.")
		return nil
	}

	for _, friendID := range me.Friends {
		friend, err := a.core.Store.GetUser(ctx, friendID)
		if err != nil {
			fmt.Printf("  %s (unavailable)\n", friendID)
			continue
		}
		fmt.Printf("  %s <%s>\n", friend.DisplayName(), friend.Email)
	}
	return nil
}

// Invite shows users who are not friends yet and links the chosen one.
func (a *App) Invite(ctx context.Context) error {
	if a.user == nil {
		fmt.Println("Sign in first")
		return common.ErrNotSignedIn
	}

	candidates, err := a.core.Friends.Candidates(ctx, a.user.ID)
	if err != nil {
		fmt.Println("Could not load users:", err)
		return err
	}
	if len(candidates) == 0 {
		fmt.Println("Everyone is already a friend")
		return nil
	}

	for i, u := range candidates {
		fmt.Printf("%2d. %s <%s>\n", i+1, u.DisplayName(), u.Email)
	}
	choice, err := getSimpleText(a.reader, "Add friend number (empty to cancel)", os.Stdout)
	if err != nil {
		return err
	}
	if choice == "" {
		return nil
	}
	n, err := strconv.Atoi(choice)
	if err != nil || n < 1 || n > len(candidates) {
		fmt.Println("No such entry")
		return nil
	}

	friend := candidates[n-1]
	outcome, err := a.core.Friends.AddFriend(ctx, a.user.ID, friend.ID)
	if err != nil {
		fmt.Println("Could not add friend:", err)
		return err
	}
	switch outcome {
	case services.FriendAddQueued:
		fmt.Printf("%s will be added when online\n", friend.DisplayName())
	case services.FriendAddPartial:
		fmt.Printf("Added %s; their side will catch up on the next sync\n", friend.DisplayName())
	default:
		fmt.Printf("Added %s\n", friend.DisplayName())
	}
	return nil
}
