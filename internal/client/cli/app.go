package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mpetrovs/tabchat/internal/client/app"
	"github.com/mpetrovs/tabchat/internal/client/auth"
	"github.com/mpetrovs/tabchat/internal/client/config"
	"github.com/mpetrovs/tabchat/internal/client/models"
	"github.com/mpetrovs/tabchat/internal/common"
	"github.com/mpetrovs/tabchat/internal/logging"
)

// App is the interactive client. It wraps the assembled core and tracks the
// signed-in user for the duration of the REPL.
type App struct {
	cfg  *config.Config
	core *app.App
	log  logging.Logger

	reader  *bufio.Reader
	session *auth.Session
	user    *models.User
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	core, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:    cfg,
		core:   core,
		log:    log,
		reader: bufio.NewReader(os.Stdin),
	}, nil
}

// Run restores a cached session if one exists, starts the connectivity
// monitor and enters the REPL. It blocks until the user exits.
func (a *App) Run(ctx context.Context) error {
	defer a.core.Close()

	a.core.Start(ctx)
	a.restoreSession(ctx)

	fmt.Println("tabchat (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.status, scanner)
	return nil
}

func (a *App) restoreSession(ctx context.Context) {
	session, err := a.core.Sessions.Current(ctx)
	if err != nil {
		if !errors.Is(err, common.ErrNotSignedIn) {
			a.log.Warn(ctx, "cached session unusable", "error", err)
		}
		return
	}
	a.session = session

	user, err := a.core.Profiles.EnsureUser(ctx, session)
	if err != nil {
		a.log.Warn(ctx, "profile unavailable", "error", err)
		return
	}
	a.user = user
	fmt.Printf("Welcome back, %s\n", user.DisplayName())
}

func (a *App) isLoggedIn() bool {
	return a.user != nil
}

func (a *App) status() string {
	mode := "offline"
	if a.core.Monitor.Online() {
		mode = "online"
	}
	if a.user == nil {
		return fmt.Sprintf("(%s)", mode)
	}
	return fmt.Sprintf("(%s %s)", a.user.DisplayName(), mode)
}
