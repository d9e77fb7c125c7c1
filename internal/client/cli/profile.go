package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mpetrovs/tabchat/internal/common"
)

// SetName updates the display name shown to counterparties.
func (a *App) SetName(ctx context.Context, name string) error {
	if a.user == nil {
		fmt.Println("Sign in first")
		return common.ErrNotSignedIn
	}
	if name == "" {
		fmt.Println("Usage: name <display name>")
		return nil
	}

	if err := a.core.Profiles.SetDisplayName(ctx, a.user.ID, name); err != nil {
		fmt.Println("Could not update name:", err)
		return err
	}
	a.user.Name = name
	fmt.Println("Name updated")
	return nil
}

// SetAvatar uploads an image file to the image host and points the profile
// at the hosted URL.
func (a *App) SetAvatar(ctx context.Context, path string) error {
	if a.user == nil {
		fmt.Println("Sign in first")
		return common.ErrNotSignedIn
	}
	if path == "" {
		fmt.Println("Usage: avatar <image file>")
		return nil
	}

	image, err := os.ReadFile(path)
	if err != nil {
		fmt.Println("Could not read image:", err)
		return err
	}

	url, err := a.core.Profiles.SetProfileImage(ctx, a.user.ID, image)
	if err != nil {
		fmt.Println("Could not update avatar:", err)
		return err
	}
	a.user.ProfileImageURL = url
	fmt.Println("Avatar updated:", url)
	return nil
}
