package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	devicedomain "prospect-platform/backend/internal/device/domain"
	"prospect-platform/backend/internal/identity/service"
	"prospect-platform/backend/internal/platform/background"
	"prospect-platform/backend/internal/security"
	userdomain "prospect-platform/backend/internal/user/domain"
)

type memUsers struct {
	mu    sync.Mutex
	users []*userdomain.User
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memUsers) GetByMobile(ctx context.Context, mobile string) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.MobileNumber == mobile {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memUsers) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return nil
}

type memDevices struct{}

func (memDevices) Upsert(ctx context.Context, b *devicedomain.Binding) (*devicedomain.Binding, error) {
	return b, nil
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	hasher := security.NewHasher(4)
	hash, err := hasher.Hash([]byte("s3cret-pass"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	users := &memUsers{users: []*userdomain.User{
		{ID: "u-active", MobileNumber: "9800000001", Email: "a@example.com", PasswordHash: hash, SecurePIN: "4321", IsActive: true, UserType: userdomain.UserTypeCustomer},
		{ID: "u-inactive", MobileNumber: "9800000002", Email: "b@example.com", PasswordHash: hash, IsActive: false, UserType: userdomain.UserTypePartner},
	}}
	runner := background.NewRunner(nil, time.Second)
	t.Cleanup(runner.Wait)
	return NewHandler(service.NewAuthService(service.Deps{
		Users:   users,
		Devices: memDevices{},
		Hasher:  hasher,
		Tokens:  tokens,
		Runner:  runner,
	}))
}

type envelope struct {
	Type       string          `json:"type"`
	Data       json.RawMessage `json:"data"`
	StatusCode int             `json:"status_code"`
}

func post(t *testing.T, fn http.HandlerFunc, body string) (int, envelope, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	fn(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal %q: %v", rec.Body.String(), err)
	}
	var data map[string]any
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	return rec.Code, env, data
}

func TestLogin(t *testing.T) {
	h := newTestHandler(t)
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantMsg  string
	}{
		{"unknown mobile", `{"mobile_number":"9800000999","password":"s3cret-pass"}`, http.StatusNotFound, "mobile number not registered"},
		{"inactive", `{"mobile_number":"9800000002","password":"s3cret-pass"}`, http.StatusForbidden, "user is inactive"},
		{"wrong password", `{"mobile_number":"9800000001","password":"nope"}`, http.StatusForbidden, "password does not match"},
		{"missing password", `{"mobile_number":"9800000001"}`, http.StatusBadRequest, "password is required"},
		{"bad json", `{"mobile_number":`, http.StatusBadRequest, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env, data := post(t, h.Login, tt.body)
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			if env.Type != "failure" {
				t.Errorf("type = %q, want failure", env.Type)
			}
			if data["message"] != tt.wantMsg {
				t.Errorf("message = %v, want %q", data["message"], tt.wantMsg)
			}
		})
	}
}

func TestLogin_Success(t *testing.T) {
	h := newTestHandler(t)
	code, env, data := post(t, h.Login, `{"mobile_number":"9800000001","password":"s3cret-pass","device_details":{"device_token":"tok","device_id":"dev"}}`)
	if code != http.StatusAccepted || env.Type != "success" || env.StatusCode != http.StatusAccepted {
		t.Fatalf("code = %d, envelope = %+v", code, env)
	}
	if data["access_token"] == "" || data["refresh_token"] == "" {
		t.Errorf("tokens missing: %v", data)
	}
	if data["token_type"] != "bearer" {
		t.Errorf("token_type = %v", data["token_type"])
	}
	user, _ := data["user"].(map[string]any)
	if user["_id"] != "u-active" {
		t.Errorf("user = %v", user)
	}
	if _, leaked := user["password"]; leaked {
		t.Error("password hash must not be returned")
	}
	if _, leaked := user["secure_pin"]; leaked {
		t.Error("secure pin must not be returned")
	}
}

func TestRefresh(t *testing.T) {
	h := newTestHandler(t)
	_, _, data := post(t, h.Login, `{"mobile_number":"9800000001","password":"s3cret-pass"}`)
	refresh, _ := data["refresh_token"].(string)
	code, env, _ := post(t, h.Refresh, `{"refresh_token":"`+refresh+`"}`)
	if code != http.StatusAccepted || env.Type != "success" {
		t.Errorf("refresh code = %d type = %s", code, env.Type)
	}
	code, _, _ = post(t, h.Refresh, `{"refresh_token":"garbage"}`)
	if code != http.StatusUnauthorized {
		t.Errorf("garbage refresh code = %d, want 401", code)
	}
}

func TestVerifySecurePIN(t *testing.T) {
	h := newTestHandler(t)
	code, env, _ := post(t, h.VerifySecurePIN, `{"mobile_number":"9800000001","secure_pin":"4321"}`)
	if code != http.StatusAccepted || env.Type != "success" {
		t.Errorf("code = %d type = %s", code, env.Type)
	}
	code, _, data := post(t, h.VerifySecurePIN, `{"mobile_number":"9800000001","secure_pin":"1111"}`)
	if code != http.StatusForbidden || data["message"] != "secure pin does not match" {
		t.Errorf("wrong pin = %d %v", code, data["message"])
	}
	code, _, data = post(t, h.VerifySecurePIN, `{"mobile_number":"9800000001","secure_pin":"12ab"}`)
	if code != http.StatusBadRequest || data["message"] != "secure_pin is not numeric" {
		t.Errorf("non-numeric pin = %d %v", code, data["message"])
	}
}
