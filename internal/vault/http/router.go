package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	gorillaWS "github.com/gorilla/websocket"

	"github.com/cipher-calc/backend/internal/common/constants"
	commonhttp "github.com/cipher-calc/backend/internal/common/http"
	"github.com/cipher-calc/backend/internal/common/jwtverify"
	"github.com/cipher-calc/backend/internal/common/logger"
	"github.com/cipher-calc/backend/internal/common/validation"
	"github.com/cipher-calc/backend/internal/vault/service"
	vaultws "github.com/cipher-calc/backend/internal/vault/websocket"
)

type secretCodeRequest struct {
	SecretCode string `json:"secret_code" validate:"required,max=50"`
}

type sendMessageRequest struct {
	SenderName  string `json:"sender_name" validate:"required"`
	SenderEmail string `json:"sender_email" validate:"required,email"`
	Subject     string `json:"subject" validate:"max=500"`
	Content     string `json:"content" validate:"required,max=4000"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type Handler struct {
	vault          *service.VaultService
	hub            *vaultws.Hub
	wsConfig       vaultws.ClientConfig
	upgrader       gorillaWS.Upgrader
	requestTimeout time.Duration
	log            *logger.Logger
}

func NewHandler(vault *service.VaultService, hub *vaultws.Hub, wsConfig vaultws.ClientConfig, accessSecret string, requestTimeout time.Duration, log *logger.Logger) http.Handler {
	if requestTimeout <= 0 {
		requestTimeout = constants.DBQueryTimeout
	}
	h := &Handler{
		vault:    vault,
		hub:      hub,
		wsConfig: wsConfig,
		upgrader: gorillaWS.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		requestTimeout: requestTimeout,
		log:            log,
	}

	requireAuth := jwtverify.Middleware(accessSecret, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", commonhttp.HealthHandler(log))
	mux.HandleFunc("/api/auth/secret-code", h.secretCode)
	mux.HandleFunc("/api/messages", h.messages)
	mux.Handle("/api/messages/", h.messageSubtree(requireAuth))
	mux.HandleFunc("/ws", h.feed)
	return mux
}

func (h *Handler) secretCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		commonhttp.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req secretCodeRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		commonhttp.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := validation.Struct(req); err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	user, err := h.vault.VerifySecretCode(ctx, req.SecretCode)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, map[string]any{"user": user})
}

// messages handles the collection route: delivery of a new message.
func (h *Handler) messages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		commonhttp.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req sendMessageRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		commonhttp.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := validation.Struct(req); err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	msg, err := h.vault.SendMessage(ctx, service.SendMessageInput{
		RecipientUserID:     r.URL.Query().Get("user_id"),
		RecipientSecretCode: r.URL.Query().Get("secret_code"),
		SenderName:          req.SenderName,
		SenderEmail:         req.SenderEmail,
		Subject:             req.Subject,
		Content:             req.Content,
	})
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusCreated, msg)
}

// messageSubtree dispatches /api/messages/{...}. Reads by secret code stay
// open; mutations require a bearer access token scoped to the vault owner.
func (h *Handler) messageSubtree(requireAuth func(http.Handler) http.Handler) http.Handler {
	mutations := requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/messages/")
		switch {
		case r.Method == http.MethodPatch && strings.HasSuffix(rest, "/read"):
			h.markRead(w, r, strings.TrimSuffix(rest, "/read"))
		case r.Method == http.MethodDelete && !strings.Contains(rest, "/"):
			h.deleteMessage(w, r, rest)
		default:
			commonhttp.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			rest := strings.TrimPrefix(r.URL.Path, "/api/messages/")
			if rest == "" || strings.Contains(rest, "/") {
				commonhttp.WriteError(w, http.StatusNotFound, "not found")
				return
			}
			h.listMessages(w, r, rest)
			return
		}
		mutations.ServeHTTP(w, r)
	})
}

func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request, secretCode string) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	msgs, err := h.vault.ListMessages(ctx, secretCode)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, msgs)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request, messageID string) {
	if messageID == "" {
		commonhttp.WriteError(w, http.StatusNotFound, "not found")
		return
	}

	claims, ok := jwtverify.FromContext(r.Context())
	if !ok {
		commonhttp.WriteError(w, http.StatusUnauthorized, "missing or invalid authorization")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	if err := h.vault.MarkRead(ctx, messageID, claims.UserID); err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, messageResponse{Message: "Message marked as read"})
}

func (h *Handler) deleteMessage(w http.ResponseWriter, r *http.Request, messageID string) {
	if messageID == "" {
		commonhttp.WriteError(w, http.StatusNotFound, "not found")
		return
	}

	claims, ok := jwtverify.FromContext(r.Context())
	if !ok {
		commonhttp.WriteError(w, http.StatusUnauthorized, "missing or invalid authorization")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	if err := h.vault.DeleteMessage(ctx, messageID, claims.UserID); err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, messageResponse{Message: "Message deleted"})
}

// feed upgrades to the live vault feed after the secret code checks out.
func (h *Handler) feed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		commonhttp.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx, cancel := h.requestContext(r)
	user, err := h.vault.VerifySecretCode(ctx, r.URL.Query().Get("secret_code"))
	cancel()
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("vault feed upgrade failed: %v", err)
		return
	}

	client := vaultws.NewClient(r.Context(), h.hub, conn, user.ID, h.log, h.wsConfig)
	h.hub.Register(client)
	client.Start()
}

func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.requestTimeout)
}
