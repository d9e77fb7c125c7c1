package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Chats(ctx context.Context) error
	Chat(ctx context.Context, name string) error
	Friends(ctx context.Context) error
	Invite(ctx context.Context) error
	SetName(ctx context.Context, name string) error
	SetAvatar(ctx context.Context, path string) error
	Sync(ctx context.Context) error
}

// runREPL reads a line from the scanner, parses the first token as the
// command and dispatches to methods on a. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or "exit"/"quit".
//
// Errors returned by command handlers are ignored here; handlers print
// their own diagnostics. This keeps the loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("tab %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		arg := strings.Join(parts[1:], " ")

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: chats, chat <friend>, friends, invite, name <name>, avatar <file>, sync, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "c", "chats":
			_ = a.Chats(ctx)

		case "chat":
			if arg == "" {
				printlnFn("Usage: chat <friend>")
				continue
			}
			_ = a.Chat(ctx, arg)

		case "friends":
			_ = a.Friends(ctx)

		case "invite":
			_ = a.Invite(ctx)

		case "name":
			_ = a.SetName(ctx, arg)

		case "avatar":
			_ = a.SetAvatar(ctx, arg)

		case "sync":
			_ = a.Sync(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
