package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/model"
	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/testutil"
)

func identityPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "identity.json")
}

func receiveIdentity(t *testing.T, m *Manager) (model.Identity, bool) {
	t.Helper()
	select {
	case identity, ok := <-m.Identities():
		return identity, ok
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for identity")
		return model.Identity{}, false
	}
}

func TestFreshRunCreatesAndPersistsIdentity(t *testing.T) {
	fake := testutil.NewFakeStore()
	path := identityPath(t)

	m := Start(context.Background(), fake, path)
	defer m.Close()

	identity, ok := receiveIdentity(t, m)
	if !ok {
		t.Fatalf("expected an identity, channel closed")
	}
	if identity.ID == "" {
		t.Fatalf("expected a non-empty identity id")
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected identity file to exist: %v", err)
	}
}

func TestPersistedIdentityIsReused(t *testing.T) {
	fake := testutil.NewFakeStore()
	path := identityPath(t)

	first := Start(context.Background(), fake, path)
	identity, ok := receiveIdentity(t, first)
	if !ok {
		t.Fatalf("expected an identity on first run")
	}
	first.Close()

	second := Start(context.Background(), fake, path)
	defer second.Close()
	reused, ok := receiveIdentity(t, second)
	if !ok {
		t.Fatalf("expected an identity on second run")
	}

	if reused.ID != identity.ID {
		t.Fatalf("expected identity %s to be reused, got %s", identity.ID, reused.ID)
	}
}

func TestStaleIdentityTriggersFreshIssuance(t *testing.T) {
	fake := testutil.NewFakeStore()
	path := identityPath(t)

	// Persisted file points at an identity the store has forgotten.
	data := []byte(`{"id": "identity-forgotten", "createdAt": "2024-03-01T12:00:00Z"}`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("seed identity file: %v", err)
	}

	m := Start(context.Background(), fake, path)
	defer m.Close()

	identity, ok := receiveIdentity(t, m)
	if !ok {
		t.Fatalf("expected a fresh identity, channel closed")
	}
	if identity.ID == "identity-forgotten" {
		t.Fatalf("expected the stale identity to be replaced")
	}
}

func TestCorruptIdentityFileTriggersFreshIssuance(t *testing.T) {
	fake := testutil.NewFakeStore()
	path := identityPath(t)

	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatalf("seed identity file: %v", err)
	}

	m := Start(context.Background(), fake, path)
	defer m.Close()

	identity, ok := receiveIdentity(t, m)
	if !ok {
		t.Fatalf("expected a fresh identity, channel closed")
	}
	if identity.ID == "" {
		t.Fatalf("expected a non-empty identity id")
	}
}

func TestSignInFailureClosesChannelWithoutValue(t *testing.T) {
	fake := testutil.NewFakeStore()
	fake.CreateIdentityErr = fmt.Errorf("store unreachable")
	path := identityPath(t)

	m := Start(context.Background(), fake, path)
	defer m.Close()

	_, ok := receiveIdentity(t, m)
	if ok {
		t.Fatalf("expected channel to close without a value")
	}
}

func TestLookupFailureIsNotRetriedWithFreshIdentity(t *testing.T) {
	fake := testutil.NewFakeStore()
	fake.AddIdentity("identity-known")
	fake.LookupIdentityErr = fmt.Errorf("store unreachable")
	path := identityPath(t)

	data := []byte(`{"id": "identity-known", "createdAt": "2024-03-01T12:00:00Z"}`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("seed identity file: %v", err)
	}

	m := Start(context.Background(), fake, path)
	defer m.Close()

	// A transport failure is not the same as a forgotten identity; a
	// new identity must not be minted over it.
	_, ok := receiveIdentity(t, m)
	if ok {
		t.Fatalf("expected sign-in to fail, not to mint a new identity")
	}
}
