// Package session bootstraps the anonymous identity the rest of the
// app is scoped to. An identity issued once is persisted locally and
// reused on later runs; only when none exists (or the store has
// forgotten it) is a fresh anonymous identity requested.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/config"
	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/model"
	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/store"
)

// Manager resolves the session identity in the background and delivers
// it over Identities. At most one identity is produced per run; the
// channel closes without a value when sign-in fails, which is logged
// and otherwise ignored.
type Manager struct {
	store  store.Store
	path   string
	ch     chan model.Identity
	cancel context.CancelFunc
}

// Start launches identity resolution against the store.
func Start(ctx context.Context, st store.Store, identityPath string) *Manager {
	runCtx, cancel := context.WithCancel(ctx)
	m := &Manager{
		store:  st,
		path:   identityPath,
		ch:     make(chan model.Identity, 1),
		cancel: cancel,
	}
	go m.run(runCtx)
	return m
}

// Identities delivers the resolved identity. The channel closes after
// at most one value.
func (m *Manager) Identities() <-chan model.Identity {
	return m.ch
}

// Close tears down the identity-state subscription.
func (m *Manager) Close() error {
	m.cancel()
	return nil
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.ch)

	identity, err := m.resolve(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("session: anonymous sign-in failed: %v", err)
		}
		return
	}

	select {
	case m.ch <- identity:
	case <-ctx.Done():
	}
}

func (m *Manager) resolve(ctx context.Context) (model.Identity, error) {
	if persisted, err := loadIdentity(m.path); err == nil {
		identity, err := m.store.LookupIdentity(ctx, persisted.ID)
		if err == nil {
			return identity, nil
		}
		if !errors.Is(err, store.ErrIdentityNotFound) {
			return model.Identity{}, err
		}
		// Stale local identity; fall through to fresh issuance.
		log.Printf("session: persisted identity %s unknown to store, requesting a new one", persisted.ID)
	}

	identity, err := m.store.CreateIdentity(ctx)
	if err != nil {
		return model.Identity{}, err
	}

	if err := saveIdentity(m.path, identity); err != nil {
		// The session still works for this run; it just won't survive
		// a restart.
		log.Printf("session: persist identity: %v", err)
	}

	return identity, nil
}

func loadIdentity(path string) (model.Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Identity{}, err
	}

	var identity model.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return model.Identity{}, fmt.Errorf("parse identity file: %w", err)
	}
	if identity.ID == "" {
		return model.Identity{}, fmt.Errorf("identity file has no id")
	}
	return identity, nil
}

func saveIdentity(path string, identity model.Identity) error {
	if err := config.EnsureDir(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(identity, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}
