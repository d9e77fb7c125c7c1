// Package app assembles the client: local database, remote store, services
// and the connectivity monitor, wired together once at startup.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mpetrovs/tabchat/internal/client/auth"
	"github.com/mpetrovs/tabchat/internal/client/backend"
	"github.com/mpetrovs/tabchat/internal/client/config"
	"github.com/mpetrovs/tabchat/internal/client/localdb"
	"github.com/mpetrovs/tabchat/internal/client/push"
	"github.com/mpetrovs/tabchat/internal/client/repositories/metadata"
	"github.com/mpetrovs/tabchat/internal/client/repositories/pendingops"
	"github.com/mpetrovs/tabchat/internal/client/services"
	"github.com/mpetrovs/tabchat/internal/logging"
	"github.com/mpetrovs/tabchat/internal/netx"
)

// App owns every long-lived dependency of the client. Construct it with New,
// start the background monitor with Start and release resources with Close.
type App struct {
	Config   *config.Config
	Log      logging.Logger
	DeviceID string

	DB      *sql.DB
	Store   backend.Store
	Monitor *Monitor

	Sessions  *services.SessionService
	Profiles  *services.ProfileService
	Friends   *services.FriendService
	Ledger    *services.LedgerService
	Composer  *services.Composer
	Replay    *services.ReplayService
	Directory *services.DirectoryService
	Feed      *services.Feed
}

func New(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	db, err := localdb.Open(ctx, cfg.DatabaseFile)
	if err != nil {
		return nil, fmt.Errorf("opening local database: %w", err)
	}

	store, err := backend.NewFirestoreStore(ctx, cfg.ProjectID, cfg.CredentialsFile, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to backend: %w", err)
	}

	queue := pendingops.NewSQLiteRepository(db)
	meta := metadata.NewSQLiteRepository(db)

	deviceID, err := ensureDeviceID(ctx, meta)
	if err != nil {
		store.Close()
		db.Close()
		return nil, err
	}

	provider := &auth.FirebaseProvider{APIKey: cfg.AuthAPIKey}
	dispatcher := &push.ExpoDispatcher{Endpoint: cfg.PushEndpoint}
	images := &netx.ImageHost{Endpoint: cfg.ImageHostEndpoint, APIKey: cfg.ImageHostAPIKey}

	feed := services.NewFeed(store)
	ledger := services.NewLedgerService(store, log)
	replay := services.NewReplayService(queue, store, log)

	// Every offline→online edge drains the queue.
	monitor := NewMonitor(store, cfg.OnlineCheckInterval, log, func(ctx context.Context) {
		if err := replay.DrainAndReplay(ctx); err != nil {
			log.Error(ctx, "replay after reconnect failed", "error", err)
		}
	})

	return &App{
		Config:    cfg,
		Log:       log,
		DeviceID:  deviceID,
		DB:        db,
		Store:     store,
		Monitor:   monitor,
		Sessions:  services.NewSessionService(provider, meta, log),
		Profiles:  services.NewProfileService(store, queue, monitor, images, log),
		Friends:   services.NewFriendService(store, queue, monitor, log),
		Ledger:    ledger,
		Composer:  services.NewComposer(store, ledger, queue, monitor, dispatcher, feed, cfg.SendTimeout, log),
		Replay:    replay,
		Directory: services.NewDirectoryService(store, log),
		Feed:      feed,
	}, nil
}

// Start launches the connectivity monitor. It returns immediately; the
// monitor stops when ctx is done.
func (a *App) Start(ctx context.Context) {
	go a.Monitor.Run(ctx)
}

func (a *App) Close() error {
	return errors.Join(a.Store.Close(), a.DB.Close())
}

// ensureDeviceID returns the stable identifier of this installation,
// minting one on first launch.
func ensureDeviceID(ctx context.Context, meta metadata.Repository) (string, error) {
	v, err := meta.Get(ctx, metadata.KeyDeviceID)
	if err != nil {
		return "", fmt.Errorf("reading device id: %w", err)
	}
	if v != nil {
		return string(v), nil
	}
	id := uuid.NewString()
	if err := meta.Set(ctx, metadata.KeyDeviceID, []byte(id)); err != nil {
		return "", fmt.Errorf("storing device id: %w", err)
	}
	return id, nil
}
