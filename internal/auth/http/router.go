package http

import (
	"context"
	"net/http"
	"time"

	"github.com/cipher-calc/backend/internal/auth/service"
	"github.com/cipher-calc/backend/internal/common/constants"
	commonhttp "github.com/cipher-calc/backend/internal/common/http"
	"github.com/cipher-calc/backend/internal/common/logger"
	"github.com/cipher-calc/backend/internal/common/validation"
)

// bcrypt rejects inputs over 72 bytes, so the password cap is enforced here
// before hashing.
type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required,min=10"`
}

type logoutRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type Handler struct {
	auth           *service.AuthService
	requestTimeout time.Duration
	log            *logger.Logger
}

func NewHandler(auth *service.AuthService, requestTimeout time.Duration, log *logger.Logger) http.Handler {
	if requestTimeout <= 0 {
		requestTimeout = constants.DBQueryTimeout
	}
	h := &Handler{auth: auth, requestTimeout: requestTimeout, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", commonhttp.HealthHandler(log))
	mux.HandleFunc("/api/auth/register", h.register)
	mux.HandleFunc("/api/auth/login", h.login)
	mux.HandleFunc("/api/auth/refresh", h.refresh)
	mux.HandleFunc("/api/auth/logout", h.logout)
	return mux
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		commonhttp.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req registerRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.WithFields(r.Context(), logger.Fields{"action": "register_bad_json"}).Warnf("register failed: invalid json: %v", err)
		commonhttp.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := validation.Struct(req); err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	result, err := h.auth.Register(ctx, req.Email, req.Password)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		commonhttp.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req loginRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.WithFields(r.Context(), logger.Fields{"action": "login_bad_json"}).Warnf("login failed: invalid json: %v", err)
		commonhttp.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := validation.Struct(req); err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	result, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		commonhttp.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req refreshRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.WithFields(r.Context(), logger.Fields{"action": "refresh_bad_json"}).Warnf("refresh failed: invalid json: %v", err)
		commonhttp.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := validation.Struct(req); err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	result, err := h.auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		commonhttp.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req logoutRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.WithFields(r.Context(), logger.Fields{"action": "logout_bad_json"}).Warnf("logout failed: invalid json: %v", err)
		commonhttp.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := validation.Struct(req); err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	if err := h.auth.Logout(ctx, req.UserID); err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, messageResponse{Message: "Logged out"})
}

func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.requestTimeout)
}
