package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/leave"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/session"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/remote"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Client is the HTTP implementation of the remote ERP boundary. It speaks
// the backend's JSON envelope and maps transport failures and status codes
// onto the retryable/terminal error contract.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// SetToken installs the bearer token used for authenticated calls. The
// login flow calls this; tests may call it directly.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// envelope mirrors the backend's response shape.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Client) do(ctx context.Context, op, method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return remote.Terminal(op, fmt.Sprintf("encode request: %v", err))
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return remote.Terminal(op, fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		// Timeouts, refused connections, DNS failures: all retryable.
		return remote.Retryable(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return remote.Retryable(op, fmt.Errorf("server error: %s", resp.Status))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return remote.Terminal(op, resp.Status)
		}
		return remote.Retryable(op, fmt.Errorf("decode response: %w", err))
	}

	if resp.StatusCode >= 400 || !env.Success {
		msg := resp.Status
		if env.Error != nil && env.Error.Message != "" {
			msg = env.Error.Message
		}
		return remote.Terminal(op, msg)
	}

	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return remote.Retryable(op, fmt.Errorf("decode data: %w", err))
		}
	}

	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

func (c *Client) Login(ctx context.Context, email, password string) (session.Snapshot, error) {
	const op = "erp.login"

	var data loginResponse
	if err := c.do(ctx, op, http.MethodPost, "/api/v1/auth/login", loginRequest{Email: email, Password: password}, &data); err != nil {
		return session.Snapshot{}, err
	}
	if data.AccessToken == "" {
		return session.Snapshot{}, remote.Terminal(op, "login response carried no access token")
	}

	snap, err := snapshotFromToken(data.AccessToken)
	if err != nil {
		return session.Snapshot{}, remote.Terminal(op, err.Error())
	}

	c.SetToken(data.AccessToken)
	return snap, nil
}

// snapshotFromToken extracts the agent's session identity from the issued
// token's claims. The token is only decoded here; signature verification is
// the server's concern and the agent never accepts inbound tokens.
func snapshotFromToken(raw string) (session.Snapshot, error) {
	tok, err := jwt.ParseString(raw, jwt.WithVerify(false), jwt.WithValidate(false))
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("parse access token: %w", err)
	}

	snap := session.Snapshot{
		UserID:      tok.Subject(),
		LastLoginAt: time.Now(),
	}
	if v, ok := tok.Get("employee_id"); ok {
		snap.EmployeeID, _ = v.(string)
	}
	if v, ok := tok.Get("name"); ok {
		snap.UserName, _ = v.(string)
	}
	if v, ok := tok.Get("email"); ok {
		snap.Email, _ = v.(string)
	}
	if v, ok := tok.Get("is_manager"); ok {
		snap.IsManager, _ = v.(bool)
	}

	if snap.UserID == "" || snap.EmployeeID == "" {
		return session.Snapshot{}, fmt.Errorf("access token missing identity claims")
	}

	return snap, nil
}

type createLeaveRequest struct {
	LeaveTypeID string `json:"leave_type_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Reason      string `json:"reason"`
}

type createLeaveResponse struct {
	ID string `json:"id"`
}

func (c *Client) CreateLeaveRequest(ctx context.Context, leaveTypeID string, startDate, endDate time.Time, reason string) (string, error) {
	const op = "erp.create_leave_request"

	req := createLeaveRequest{
		LeaveTypeID: leaveTypeID,
		StartDate:   startDate.Format("2006-01-02"),
		EndDate:     endDate.Format("2006-01-02"),
		Reason:      reason,
	}
	var data createLeaveResponse
	if err := c.do(ctx, op, http.MethodPost, "/api/v1/leaves/requests", req, &data); err != nil {
		return "", err
	}
	return data.ID, nil
}

func (c *Client) ApproveLeave(ctx context.Context, leaveID string) error {
	path := fmt.Sprintf("/api/v1/leaves/requests/%s/approve", url.PathEscape(leaveID))
	return c.do(ctx, "erp.approve_leave", http.MethodPost, path, nil, nil)
}

func (c *Client) RefuseLeave(ctx context.Context, leaveID string) error {
	path := fmt.Sprintf("/api/v1/leaves/requests/%s/reject", url.PathEscape(leaveID))
	return c.do(ctx, "erp.refuse_leave", http.MethodPost, path, nil, nil)
}

func (c *Client) ListLeavesToApprove(ctx context.Context) ([]leave.Leave, error) {
	var items []leave.Leave
	if err := c.do(ctx, "erp.list_leaves_to_approve", http.MethodGet, "/api/v1/leaves/approvals", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) ListOwnLeaves(ctx context.Context, employeeID string) ([]leave.Leave, error) {
	path := "/api/v1/leaves/requests?employee_id=" + url.QueryEscape(employeeID)
	var items []leave.Leave
	if err := c.do(ctx, "erp.list_own_leaves", http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) ListLeaveTypes(ctx context.Context) ([]leave.LeaveType, error) {
	var items []leave.LeaveType
	if err := c.do(ctx, "erp.list_leave_types", http.MethodGet, "/api/v1/leaves/types", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) ListAllocations(ctx context.Context, employeeID string, year int) ([]leave.Allocation, error) {
	path := fmt.Sprintf("/api/v1/leaves/allocations?employee_id=%s&year=%d", url.QueryEscape(employeeID), year)
	var items []leave.Allocation
	if err := c.do(ctx, "erp.list_allocations", http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) ListBlockedDates(ctx context.Context) ([]leave.BlockedDate, error) {
	var items []leave.BlockedDate
	if err := c.do(ctx, "erp.list_blocked_dates", http.MethodGet, "/api/v1/leaves/blocked-dates", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return remote.Terminal("erp.ping", err.Error())
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return remote.Retryable("erp.ping", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return remote.Retryable("erp.ping", fmt.Errorf("server error: %s", resp.Status))
	}
	return nil
}
