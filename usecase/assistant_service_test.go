package usecase

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/avalonlabs/vesper/adapters/audiodev"
	"github.com/avalonlabs/vesper/adapters/genailive"
	"github.com/avalonlabs/vesper/adapters/profilestore"
	"github.com/avalonlabs/vesper/domain/entities"
	"github.com/avalonlabs/vesper/internal/audit"
	"github.com/avalonlabs/vesper/internal/session"
)

func newTestService(t *testing.T) (*AssistantService, *profilestore.FileStore, *genailive.MockTransport) {
	t.Helper()

	store, err := profilestore.NewFileStore(filepath.Join(t.TempDir(), "profiles.json"), nil)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	transport := &genailive.MockTransport{}
	device := audiodev.NewMockDevice()
	logs := audit.NewStore(100, nil)
	manager := session.NewManager(transport, device, logs, zap.NewNop(), session.Options{APIKey: "test-key"})

	return NewAssistantService(store, manager, zap.NewNop()), store, transport
}

func seededProfileID(t *testing.T, store *profilestore.FileStore) string {
	t.Helper()
	profiles, err := store.List(context.Background())
	if err != nil || len(profiles) == 0 {
		t.Fatalf("Store should hold the seeded profile, err = %v", err)
	}
	return profiles[0].ID
}

func TestConnectLoadsProfileAndStartsSession(t *testing.T) {
	svc, store, transport := newTestService(t)
	id := seededProfileID(t, store)

	if err := svc.Connect(context.Background(), id); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if got := svc.SessionState(); got != entities.StateConnecting {
		t.Errorf("Expected CONNECTING, got %q", got)
	}

	deadline := time.Now().Add(time.Second)
	for transport.Last() == nil {
		if time.Now().After(deadline) {
			t.Fatal("Transport never opened")
		}
		time.Sleep(5 * time.Millisecond)
	}

	svc.Disconnect()
	if got := svc.SessionState(); got != entities.StateDisconnected {
		t.Errorf("Expected DISCONNECTED after disconnect, got %q", got)
	}
}

func TestConnectUnknownProfile(t *testing.T) {
	svc, _, _ := newTestService(t)

	if err := svc.Connect(context.Background(), "missing"); err == nil {
		t.Fatal("Connect should fail for an unknown profile")
	}
	if got := svc.SessionState(); got != entities.StateDisconnected {
		t.Errorf("Failed connect should leave state DISCONNECTED, got %q", got)
	}
}

func TestAuthenticate(t *testing.T) {
	svc, store, _ := newTestService(t)
	id := seededProfileID(t, store)

	profile, err := svc.Authenticate(context.Background(), id)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if profile.ID != id {
		t.Errorf("Wrong profile returned: %q", profile.ID)
	}

	if _, err := svc.Authenticate(context.Background(), "missing"); err == nil {
		t.Error("Authenticate should fail for an unknown profile")
	}
}

func TestProfileEditDoesNotTouchRunningSession(t *testing.T) {
	svc, store, transport := newTestService(t)
	id := seededProfileID(t, store)

	if err := svc.Connect(context.Background(), id); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for transport.Last() == nil {
		if time.Now().After(deadline) {
			t.Fatal("Transport never opened")
		}
		time.Sleep(5 * time.Millisecond)
	}

	profile, _ := svc.GetProfile(context.Background(), id)
	profile.AIName = "RENAMED"
	if err := svc.UpdateProfile(context.Background(), profile); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	// The open session keeps running; no reconnect, no second open.
	if len(transport.Sessions) != 1 {
		t.Errorf("Edit should not reopen the session, opens = %d", len(transport.Sessions))
	}
	if transport.Sessions[0].Closed() {
		t.Error("Edit should not close the running session")
	}
}
