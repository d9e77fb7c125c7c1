package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mpetrovs/tabchat/internal/client/auth"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for credentials, creates an account and signs in.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	session, err := a.core.Sessions.SignUp(ctx, email, password)
	if err != nil {
		fmt.Println("Registration failed:", err)
		return err
	}
	return a.enterSession(ctx, session)
}

// Login prompts for credentials and authenticates.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	session, err := a.core.Sessions.SignIn(ctx, email, password)
	if err != nil {
		fmt.Println("Login failed:", err)
		return err
	}
	return a.enterSession(ctx, session)
}

func (a *App) enterSession(ctx context.Context, session *auth.Session) error {
	a.session = session

	user, err := a.core.Profiles.EnsureUser(ctx, session)
	if err != nil {
		fmt.Println("Could not load profile:", err)
		return err
	}
	a.user = user
	fmt.Printf("Signed in as %s\n", user.DisplayName())
	return nil
}

// Logout clears the device token, drops the cached session and forgets the
// in-memory user.
func (a *App) Logout(ctx context.Context) error {
	if a.user != nil && a.core.Monitor.Online() {
		if err := a.core.Profiles.UnregisterPushToken(ctx, a.user.ID); err != nil {
			a.log.Warn(ctx, "failed to clear push token", "error", err)
		}
	}
	if err := a.core.Sessions.SignOut(ctx); err != nil {
		return err
	}
	a.session = nil
	a.user = nil
	fmt.Println("Signed out")
	return nil
}
