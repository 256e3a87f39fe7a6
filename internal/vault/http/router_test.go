package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	authdomain "github.com/cipher-calc/backend/internal/auth/domain"
	authrepo "github.com/cipher-calc/backend/internal/auth/repository"
	"github.com/cipher-calc/backend/internal/common/clock"
	commoncrypto "github.com/cipher-calc/backend/internal/common/crypto"
	"github.com/cipher-calc/backend/internal/common/logger"
	"github.com/cipher-calc/backend/internal/vault/domain"
	vaulthttp "github.com/cipher-calc/backend/internal/vault/http"
	"github.com/cipher-calc/backend/internal/vault/service"
	vaultws "github.com/cipher-calc/backend/internal/vault/websocket"
)

const testAccessSecret = "test-access-secret-0123456789abcdef"

type userRepoStub struct{}

func (userRepoStub) Create(ctx context.Context, user authdomain.User) error { return nil }

func (userRepoStub) FindByEmail(ctx context.Context, email string) (authdomain.User, error) {
	return authdomain.User{}, authrepo.ErrUserNotFound
}

func (userRepoStub) FindByID(ctx context.Context, id authdomain.UserID) (authdomain.User, error) {
	if id == "user-1" {
		return authdomain.User{ID: id, Email: "alice@example.com", SecretCode: "314159"}, nil
	}
	return authdomain.User{}, authrepo.ErrUserNotFound
}

func (userRepoStub) FindBySecretCode(ctx context.Context, code string) (authdomain.User, error) {
	if code == "314159" {
		return authdomain.User{ID: "user-1", Email: "alice@example.com", SecretCode: code}, nil
	}
	return authdomain.User{}, authrepo.ErrUserNotFound
}

type messageRepoStub struct {
	messages map[string]domain.Message
}

func newMessageRepoStub() *messageRepoStub {
	return &messageRepoStub{messages: make(map[string]domain.Message)}
}

func (s *messageRepoStub) Create(ctx context.Context, msg domain.Message) error {
	s.messages[msg.ID] = msg
	return nil
}

func (s *messageRepoStub) ListForUser(ctx context.Context, userID string) ([]domain.Message, error) {
	out := make([]domain.Message, 0)
	for _, msg := range s.messages {
		if msg.UserID == userID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (s *messageRepoStub) MarkRead(ctx context.Context, id string, userID string) (bool, error) {
	msg, ok := s.messages[id]
	if !ok || msg.UserID != userID {
		return false, nil
	}
	msg.IsRead = true
	s.messages[id] = msg
	return true, nil
}

func (s *messageRepoStub) Delete(ctx context.Context, id string, userID string) (bool, error) {
	msg, ok := s.messages[id]
	if !ok || msg.UserID != userID {
		return false, nil
	}
	delete(s.messages, id)
	return true, nil
}

func setupVaultHandler(t *testing.T) (http.Handler, *messageRepoStub) {
	t.Helper()

	repo := newMessageRepoStub()
	svc := service.NewVaultService(
		userRepoStub{},
		repo,
		commoncrypto.NewUUIDGenerator(),
		clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		logger.NewNop(),
	)

	handler := vaulthttp.NewHandler(svc, vaultws.NewHub(logger.NewNop()), vaultws.ClientConfig{}, testAccessSecret, 5*time.Second, logger.NewNop())
	return handler, repo
}

func bearerToken(t *testing.T, userID string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": userID + "@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAccessSecret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return token
}

func TestSecretCodeEndpoint(t *testing.T) {
	handler, _ := setupVaultHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/secret-code", strings.NewReader(`{"secret_code":"314159"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		User struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.User.ID != "user-1" || resp.User.Email != "alice@example.com" {
		t.Errorf("unexpected user payload: %+v", resp.User)
	}
}

func TestSecretCodeEndpoint_Invalid(t *testing.T) {
	handler, _ := setupVaultHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/secret-code", strings.NewReader(`{"secret_code":"000000"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSendAndListMessages(t *testing.T) {
	handler, _ := setupVaultHandler(t)

	body := `{"sender_name":"Bob","sender_email":"bob@example.com","subject":"plans","content":"meet at noon"}`
	req := httptest.NewRequest(http.MethodPost, "/api/messages?secret_code=314159", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/messages/314159", nil)
	listRec := httptest.NewRecorder()
	handler.ServeHTTP(listRec, listReq)

	if listRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", listRec.Code, listRec.Body.String())
	}

	var msgs []domain.Message
	if err := json.Unmarshal(listRec.Body.Bytes(), &msgs); err != nil {
		t.Fatalf("failed to decode messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "meet at noon" {
		t.Errorf("unexpected messages: %+v", msgs)
	}
}

func TestSendMessage_UnknownRecipient(t *testing.T) {
	handler, _ := setupVaultHandler(t)

	body := `{"sender_name":"Bob","sender_email":"bob@example.com","content":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/api/messages?user_id=ghost", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSendMessage_NoRecipient(t *testing.T) {
	handler, _ := setupVaultHandler(t)

	body := `{"sender_name":"Bob","sender_email":"bob@example.com","content":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestMarkRead_RequiresBearerToken(t *testing.T) {
	handler, repo := setupVaultHandler(t)
	repo.messages["msg-1"] = domain.Message{ID: "msg-1", UserID: "user-1", Content: "hello"}

	req := httptest.NewRequest(http.MethodPatch, "/api/messages/msg-1/read", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d: %s", rec.Code, rec.Body.String())
	}

	authed := httptest.NewRequest(http.MethodPatch, "/api/messages/msg-1/read", nil)
	authed.Header.Set("Authorization", "Bearer "+bearerToken(t, "user-1"))
	authedRec := httptest.NewRecorder()
	handler.ServeHTTP(authedRec, authed)

	if authedRec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d: %s", authedRec.Code, authedRec.Body.String())
	}
	if !repo.messages["msg-1"].IsRead {
		t.Error("expected message marked read")
	}
}

func TestDeleteMessage(t *testing.T) {
	handler, repo := setupVaultHandler(t)
	repo.messages["msg-1"] = domain.Message{ID: "msg-1", UserID: "user-1", Content: "hello"}

	req := httptest.NewRequest(http.MethodDelete, "/api/messages/msg-1", nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t, "user-1"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := repo.messages["msg-1"]; ok {
		t.Error("expected message deleted")
	}
}

func TestDeleteMessage_OtherAccountToken(t *testing.T) {
	handler, repo := setupVaultHandler(t)
	repo.messages["msg-1"] = domain.Message{ID: "msg-1", UserID: "user-1", Content: "hello"}

	req := httptest.NewRequest(http.MethodDelete, "/api/messages/msg-1", nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t, "user-2"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign owner, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := repo.messages["msg-1"]; !ok {
		t.Error("message must survive a delete attempt by another account")
	}
}

func TestMarkRead_OtherAccountToken(t *testing.T) {
	handler, repo := setupVaultHandler(t)
	repo.messages["msg-1"] = domain.Message{ID: "msg-1", UserID: "user-1", Content: "hello"}

	req := httptest.NewRequest(http.MethodPatch, "/api/messages/msg-1/read", nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t, "user-2"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign owner, got %d: %s", rec.Code, rec.Body.String())
	}
	if repo.messages["msg-1"].IsRead {
		t.Error("message must stay unread after a mark by another account")
	}
}

func TestSendMessage_ContentTooLong(t *testing.T) {
	handler, _ := setupVaultHandler(t)

	body := `{"sender_name":"Bob","sender_email":"bob@example.com","content":"` + strings.Repeat("x", 4001) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/messages?secret_code=314159", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteMessage_NotFound(t *testing.T) {
	handler, _ := setupVaultHandler(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/messages/ghost", nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t, "user-1"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}
