// Package bootstrap wires the store, state and services from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"

	"campusfeed/internal/config"
	"campusfeed/internal/repositories"
	"campusfeed/internal/services"
	"campusfeed/internal/state"
	"campusfeed/internal/storage"
	"campusfeed/pkg/rabbitmq"
)

// App holds everything a front end needs to run commands.
type App struct {
	Config   *config.Config
	Store    storage.Store
	State    *state.State
	Auth     *services.AuthService
	Posts    *services.PostService
	Profiles *services.ProfileService
	Market   *services.MarketService
	Images   *services.ImageService
	Avatars  *services.ImageService
	Sync     *services.SyncService

	mq *rabbitmq.Client
}

// NewApp opens the configured store, loads the state and builds the
// services. Store-change sync is enabled when RABBITMQ_URL is set; a broker
// that cannot be reached only disables sync.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := storage.Open(ctx, storage.Config{
		Driver:   cfg.StoreDriver,
		DSN:      cfg.StoreDSN,
		RedisURL: cfg.RedisURL,
	})
	if err != nil {
		return nil, fmt.Errorf("store connection failed: %w", err)
	}

	repos := repositories.NewKVRepositories(store, storage.Keys{Prefix: cfg.StoreKeyPrefix})
	st := state.New(repos, state.SavedScope(cfg.MarketSavedScope))
	if err := st.Load(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	avatars := services.NewImageService(cfg.AvatarMaxBytes)
	app := &App{
		Config:   cfg,
		Store:    store,
		State:    st,
		Auth:     services.NewAuthService(st, cfg.BcryptCost),
		Posts:    services.NewPostService(st),
		Profiles: services.NewProfileService(st, cfg.ProfileMaxBioLength, avatars),
		Market:   services.NewMarketService(st),
		Images:   services.NewImageService(cfg.ImageMaxBytes),
		Avatars:  avatars,
	}

	if cfg.RabbitMQURL != "" {
		client, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Exchange: cfg.SyncExchange})
		if err != nil {
			log.Printf("Warning: store sync disabled: %v", err)
			return app, nil
		}
		if err := app.StartSync(ctx, client); err != nil {
			client.Close()
			log.Printf("Warning: store sync disabled: %v", err)
			return app, nil
		}
		app.mq = client
	}

	return app, nil
}

// StartSync connects the state to bus so flushes are announced and remote
// flushes rehydrate it.
func (a *App) StartSync(ctx context.Context, bus services.StoreEventBus) error {
	syncService := services.NewSyncService(a.State, bus)
	if err := syncService.Start(ctx); err != nil {
		return err
	}
	a.Sync = syncService
	return nil
}

// Close flushes the state and releases the broker and store connections.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.State.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush state: %w", err))
	}
	if a.mq != nil {
		if err := a.mq.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close store: %w", err))
	}
	return errors.Join(errs...)
}
