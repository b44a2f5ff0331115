package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/avalonlabs/vesper/adapters/audiodev"
	"github.com/avalonlabs/vesper/adapters/genailive"
	"github.com/avalonlabs/vesper/adapters/profilestore"
	"github.com/avalonlabs/vesper/domain/entities"
	"github.com/avalonlabs/vesper/internal/audit"
	"github.com/avalonlabs/vesper/internal/auth"
	"github.com/avalonlabs/vesper/internal/monitor"
	"github.com/avalonlabs/vesper/internal/session"
	"github.com/avalonlabs/vesper/internal/websocket"
	"github.com/avalonlabs/vesper/usecase"
)

type stubSampler struct{}

func (stubSampler) Sample() (monitor.Stats, error) {
	return monitor.Stats{CPUPercent: 10, MemoryPercent: 20}, nil
}

type testEnv struct {
	echo      *echo.Echo
	store     *profilestore.FileStore
	logs      *audit.Store
	profileID string
	token     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := profilestore.NewFileStore(filepath.Join(t.TempDir(), "profiles.json"), nil)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	logs := audit.NewStore(100, nil)
	manager := session.NewManager(&genailive.MockTransport{}, audiodev.NewMockDevice(), logs, zap.NewNop(), session.Options{APIKey: "test-key"})
	assistant := usecase.NewAssistantService(store, manager, zap.NewNop())

	issuer, err := auth.NewIssuer("test-secret")
	if err != nil {
		t.Fatalf("NewIssuer() error = %v", err)
	}

	mon := monitor.New(stubSampler{}, logs, nil)
	hub := websocket.NewHub(zap.NewNop())
	go hub.Run()

	server := NewServer(assistant, issuer, logs, mon, hub, zap.NewNop())
	e := echo.New()
	server.InitRoutes(e)

	profiles, _ := store.List(context.Background())
	token, _, err := issuer.IssueToken(profiles[0].ID, profiles[0].Name)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	return &testEnv{echo: e, store: store, logs: logs, profileID: profiles[0].ID, token: token}
}

func (env *testEnv) request(t *testing.T, method, path, body string, authorized bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if authorized {
		req.Header.Set("Authorization", "Bearer "+env.token)
	}
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodGet, "/health", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
}

func TestLoginIssuesToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/v1/auth/login",
		`{"profile_id":"`+env.profileID+`"}`, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Response should decode: %v", err)
	}
	if resp.Token == "" || resp.Profile == nil || resp.Profile.ID != env.profileID {
		t.Errorf("Incomplete login response: %+v", resp)
	}
}

func TestLoginUnknownProfile(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodPost, "/api/v1/auth/login", `{"profile_id":"nope"}`, false)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/api/v1/profiles", "/api/v1/logs", "/api/v1/session/state"} {
		rec := env.request(t, http.MethodGet, path, "", false)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401 without token, got %d", path, rec.Code)
		}
	}
}

func TestProfileCRUD(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/v1/profiles",
		`{"name":"Morgan","ai_name":"FRIDAY","language":"English","voice_name":"Puck","processing_mode":"cloud"}`, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created entities.UserProfile
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("Create response should decode: %v", err)
	}

	rec = env.request(t, http.MethodGet, "/api/v1/profiles/"+created.ID, "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("Get: expected 200, got %d", rec.Code)
	}

	rec = env.request(t, http.MethodPut, "/api/v1/profiles/"+created.ID,
		`{"name":"Morgan","ai_name":"RENAMED","language":"English","voice_name":"Puck","processing_mode":"cloud"}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("Update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.request(t, http.MethodDelete, "/api/v1/profiles/"+created.ID, "", true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Delete: expected 204, got %d", rec.Code)
	}

	rec = env.request(t, http.MethodGet, "/api/v1/profiles/"+created.ID, "", true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Get after delete: expected 404, got %d", rec.Code)
	}
}

func TestCreateProfileRejectsInvalidPayload(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodPost, "/api/v1/profiles", `{"name":"No Voice"}`, true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid profile, got %d", rec.Code)
	}
}

func TestSessionLifecycleEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/api/v1/session/state", "", true)
	var state SessionStateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("State response should decode: %v", err)
	}
	if state.State != entities.StateDisconnected {
		t.Errorf("Expected DISCONNECTED initially, got %q", state.State)
	}

	rec = env.request(t, http.MethodPost, "/api/v1/session/connect", `{}`, true)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Connect: expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	// A second connect while the first is underway conflicts.
	rec = env.request(t, http.MethodPost, "/api/v1/session/connect", `{}`, true)
	if rec.Code != http.StatusConflict {
		t.Errorf("Second connect: expected 409, got %d", rec.Code)
	}

	rec = env.request(t, http.MethodPost, "/api/v1/session/disconnect", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("Disconnect: expected 200, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("Disconnect response should decode: %v", err)
	}
	if state.State != entities.StateDisconnected {
		t.Errorf("Expected DISCONNECTED after disconnect, got %q", state.State)
	}
}

func TestConnectUnknownProfileReturnsNotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodPost, "/api/v1/session/connect", `{"profile_id":"missing"}`, true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestLogsEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.logs.Append(entities.NewLogEntry(entities.LogInfo, "System Disconnected."))

	rec := env.request(t, http.MethodGet, "/api/v1/logs", "", true)
	var resp LogsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Logs response should decode: %v", err)
	}
	if len(resp.Entries) != 1 || resp.Entries[0].Message != "System Disconnected." {
		t.Errorf("Unexpected log listing: %+v", resp.Entries)
	}

	rec = env.request(t, http.MethodDelete, "/api/v1/logs", "", true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Clear: expected 204, got %d", rec.Code)
	}

	rec = env.request(t, http.MethodGet, "/api/v1/logs", "", true)
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Logs response should decode: %v", err)
	}
	if len(resp.Entries) != 0 {
		t.Errorf("Expected empty log after clear, got %d entries", len(resp.Entries))
	}
}

func TestSystemStats(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodGet, "/api/v1/system/stats", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var stats monitor.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Stats response should decode: %v", err)
	}
	if stats.CPUPercent != 10 {
		t.Errorf("Expected stubbed cpu 10, got %v", stats.CPUPercent)
	}
}
