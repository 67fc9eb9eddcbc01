package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/handler/http/response"
	leaveService "github.com/cmlabs-hris/leavesync-agent-go/internal/service/leave"
	syncService "github.com/cmlabs-hris/leavesync-agent-go/internal/service/sync"
)

type OutboxHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Count(w http.ResponseWriter, r *http.Request)
	SyncNow(w http.ResponseWriter, r *http.Request)
	ClearCache(w http.ResponseWriter, r *http.Request)
}

type OutboxHandlerImpl struct {
	leaveService *leaveService.Service
	engine       *syncService.Engine
}

func NewOutboxHandler(svc *leaveService.Service, engine *syncService.Engine) OutboxHandler {
	return &OutboxHandlerImpl{leaveService: svc, engine: engine}
}

// List implements OutboxHandler.
func (h *OutboxHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	mutations, err := h.leaveService.PendingMutations(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, mutations)
}

// Count implements OutboxHandler.
func (h *OutboxHandlerImpl) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.leaveService.PendingCount(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, map[string]int{"count": count})
}

// SyncNow implements OutboxHandler. The pass runs synchronously; when one is
// already in flight this returns immediately (single-flight).
func (h *OutboxHandlerImpl) SyncNow(w http.ResponseWriter, r *http.Request) {
	h.engine.SyncNow(r.Context())

	count, err := h.leaveService.PendingCount(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Sync pass finished", map[string]int{"count": count})
}

// ClearCache implements OutboxHandler.
func (h *OutboxHandlerImpl) ClearCache(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OwnerID string `json:"owner_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OwnerID == "" {
		response.BadRequest(w, "owner_id is required", nil)
		return
	}

	if err := h.leaveService.ClearCache(r.Context(), req.OwnerID); err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Local data cleared", nil)
}
