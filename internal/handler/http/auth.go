package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/handler/http/response"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/service/auth"
)

type AuthHandler interface {
	Login(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	Session(w http.ResponseWriter, r *http.Request)
}

type AuthHandlerImpl struct {
	authService *auth.Service
}

func NewAuthHandler(svc *auth.Service) AuthHandler {
	return &AuthHandlerImpl{authService: svc}
}

// Login implements AuthHandler.
func (h *AuthHandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	snap, err := h.authService.Login(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Logged in", snap)
}

// Logout implements AuthHandler.
func (h *AuthHandlerImpl) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.Logout()
	response.SuccessWithMessage(w, "Logged out", nil)
}

// Session implements AuthHandler. Returns the live session or, before
// re-authentication completes, the persisted snapshot.
func (h *AuthHandlerImpl) Session(w http.ResponseWriter, r *http.Request) {
	snap, err := h.authService.Current(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, snap)
}
