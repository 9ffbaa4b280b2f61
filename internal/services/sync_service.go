package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"campusfeed/internal/state"
	"campusfeed/pkg/rabbitmq"

	"github.com/google/uuid"
)

// StoreEventBus carries store-change events between instances sharing a
// store. *rabbitmq.Client implements it.
type StoreEventBus interface {
	PublishStoreChanged(ev rabbitmq.StoreEvent) error
	ConsumeStoreEvents(handler func(rabbitmq.StoreEvent) error) error
}

// SyncService announces local flushes and rehydrates the state when
// another instance flushes.
type SyncService struct {
	state  *state.State
	bus    StoreEventBus
	origin string
}

// NewSyncService creates a new SyncService with a fresh origin id.
func NewSyncService(st *state.State, bus StoreEventBus) *SyncService {
	return &SyncService{
		state:  st,
		bus:    bus,
		origin: uuid.NewString(),
	}
}

// Origin identifies this instance in published events.
func (s *SyncService) Origin() string {
	return s.origin
}

// NotifyChanged implements state.ChangeNotifier. Publish failures are
// logged; the local flush already succeeded.
func (s *SyncService) NotifyChanged(_ context.Context, collections ...state.Collection) {
	names := make([]string, len(collections))
	for i, c := range collections {
		names[i] = string(c)
	}
	ev := rabbitmq.StoreEvent{
		Origin:      s.origin,
		Collections: names,
		At:          time.Now().UTC(),
	}
	if err := s.bus.PublishStoreChanged(ev); err != nil {
		log.Printf("Warning: failed to publish store change: %v", err)
	}
}

// Start installs the service as the state's notifier and begins consuming.
func (s *SyncService) Start(ctx context.Context) error {
	s.state.SetNotifier(s)
	if err := s.bus.ConsumeStoreEvents(func(ev rabbitmq.StoreEvent) error {
		return s.HandleEvent(ctx, ev)
	}); err != nil {
		return fmt.Errorf("failed to start store sync: %w", err)
	}
	return nil
}

// HandleEvent rehydrates the state for events from other instances that
// touched users, posts or saved items.
func (s *SyncService) HandleEvent(ctx context.Context, ev rabbitmq.StoreEvent) error {
	if ev.Origin == s.origin {
		return nil
	}
	relevant := false
	for _, c := range ev.Collections {
		switch state.Collection(c) {
		case state.Users, state.Posts, state.Saved:
			relevant = true
		}
	}
	if !relevant {
		return nil
	}
	if err := s.state.Rehydrate(ctx); err != nil {
		return fmt.Errorf("failed to rehydrate after change from %s: %w", ev.Origin, err)
	}
	log.Printf("Rehydrated state after change from %s", ev.Origin)
	return nil
}
