package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/leave"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/handler/http/response"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/pkg/validator"
	leaveService "github.com/cmlabs-hris/leavesync-agent-go/internal/service/leave"
	"github.com/go-chi/chi/v5"
)

type LeaveHandler interface {
	Submit(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	ListTypes(w http.ResponseWriter, r *http.Request)
	ListAllocations(w http.ResponseWriter, r *http.Request)
	ListBlockedDates(w http.ResponseWriter, r *http.Request)

	ListApprovals(w http.ResponseWriter, r *http.Request)
	Approve(w http.ResponseWriter, r *http.Request)
	Refuse(w http.ResponseWriter, r *http.Request)
}

type LeaveHandlerImpl struct {
	leaveService *leaveService.Service
}

func NewLeaveHandler(svc *leaveService.Service) LeaveHandler {
	return &LeaveHandlerImpl{leaveService: svc}
}

// Submit implements LeaveHandler.
func (h *LeaveHandlerImpl) Submit(w http.ResponseWriter, r *http.Request) {
	var req leave.SubmitLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.leaveService.Submit(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if result.Queued {
		response.Accepted(w, "Leave request queued for synchronization", result)
		return
	}
	response.SuccessWithMessage(w, "Leave request submitted", result)
}

// List implements LeaveHandler.
func (h *LeaveHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.leaveService.Leaves(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, snapshot)
}

// ListTypes implements LeaveHandler.
func (h *LeaveHandlerImpl) ListTypes(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.leaveService.LeaveTypes(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, snapshot)
}

// ListAllocations implements LeaveHandler.
func (h *LeaveHandlerImpl) ListAllocations(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || !validator.IsValidYear(parsed) {
			response.BadRequest(w, "year must be a valid calendar year", nil)
			return
		}
		year = parsed
	}

	snapshot, err := h.leaveService.Allocations(r.Context(), year)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, snapshot)
}

// ListBlockedDates implements LeaveHandler.
func (h *LeaveHandlerImpl) ListBlockedDates(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.leaveService.BlockedDates(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, snapshot)
}

// ListApprovals implements LeaveHandler.
func (h *LeaveHandlerImpl) ListApprovals(w http.ResponseWriter, r *http.Request) {
	items, err := h.leaveService.LeavesToApprove(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, items)
}

// Approve implements LeaveHandler.
func (h *LeaveHandlerImpl) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

// Refuse implements LeaveHandler.
func (h *LeaveHandlerImpl) Refuse(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *LeaveHandlerImpl) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	leaveID := chi.URLParam(r, "leaveID")
	if leaveID == "" {
		response.BadRequest(w, "Leave ID is required", nil)
		return
	}

	result, err := h.leaveService.Decide(r.Context(), leaveID, approve)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if result.Queued {
		response.Accepted(w, "Decision queued for synchronization", result)
		return
	}
	response.SuccessWithMessage(w, "Decision applied", result)
}
