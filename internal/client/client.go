// Package client is a typed client for the SecureTransact REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/securetransact/escrow-api/internal/core/domain"
	"github.com/securetransact/escrow-api/internal/core/ports"
)

const (
	defaultTimeout      = 30 * time.Second
	DefaultProbeTimeout = 5 * time.Second
)

// Client calls one API base URL. The zero value is not usable; use New or
// Discover.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type Option func(*Client)

// WithToken authenticates every request with a bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Token() string { return c.token }

// SetToken replaces the bearer token, e.g. after Login.
func (c *Client) SetToken(token string) { c.token = token }

// Discover probes the candidate base URLs in order and returns a client for the
// first one whose liveness probe answers within timeout. It fails with an
// Unreachable error when none does.
func Discover(ctx context.Context, candidates []string, timeout time.Duration, opts ...Option) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	var errs []error
	for _, base := range candidates {
		c := New(base, opts...)
		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		_, err := c.Health(probeCtx)
		cancel()
		if err == nil {
			return c, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", base, err))
	}
	return nil, domain.Wrap(domain.KindUnreachable, "no API server reachable", errors.Join(errs...))
}

// --- Operational ---

type HealthStatus struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

type DependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type Readiness struct {
	Status       string                      `json:"status"`
	Dependencies map[string]DependencyStatus `json:"dependencies"`
}

func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ready returns the readiness report. A degraded report is returned together
// with an Unreachable error.
func (c *Client) Ready(ctx context.Context) (*Readiness, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/db-test", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out Readiness
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return nil, decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, domain.Wrap(domain.KindInternal, "decode readiness", err)
	}
	if resp.StatusCode == http.StatusServiceUnavailable {
		return &out, domain.NewError(domain.KindUnreachable, "service degraded")
	}
	return &out, nil
}

// --- Auth ---

type RegisterRequest struct {
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Name     string          `json:"name"`
	Phone    string          `json:"phone,omitempty"`
	UserType domain.UserType `json:"userType"`
}

type AuthResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// Register creates an account and keeps the returned token on the client.
func (c *Client) Register(ctx context.Context, in RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", in, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

// Login authenticates and keeps the returned token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

// --- Users ---

// UserUpdate is a partial profile update; nil fields are left unchanged.
type UserUpdate struct {
	Email    *string          `json:"email,omitempty"`
	Name     *string          `json:"name,omitempty"`
	Phone    *string          `json:"phone,omitempty"`
	UserType *domain.UserType `json:"userType,omitempty"`
}

func (c *Client) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var out domain.User
	if err := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateUser(ctx context.Context, id string, in UserUpdate) (*domain.User, error) {
	var out domain.User
	if err := c.do(ctx, http.MethodPut, "/api/users/"+url.PathEscape(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Stats(ctx context.Context, userID string) (*ports.Stats, error) {
	var out ports.Stats
	if err := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Conversations(ctx context.Context, userID, query string) ([]domain.Conversation, error) {
	path := "/api/users/" + url.PathEscape(userID) + "/conversations"
	if query != "" {
		path += "?" + url.Values{"q": {query}}.Encode()
	}
	var out []domain.Conversation
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- Transactions ---

type CreateTransactionRequest struct {
	Title            string                   `json:"title"`
	Description      string                   `json:"description"`
	Price            string                   `json:"price"`
	Status           domain.TransactionStatus `json:"status,omitempty"`
	BuyerID          string                   `json:"buyerId,omitempty"`
	SellerID         string                   `json:"sellerId,omitempty"`
	BuyerName        string                   `json:"buyerName,omitempty"`
	SellerName       string                   `json:"sellerName,omitempty"`
	ExpectedDelivery string                   `json:"expectedDelivery,omitempty"`
	InspectionPeriod int                      `json:"inspectionPeriod,omitempty"`
	DeliveryAddress  string                   `json:"deliveryAddress,omitempty"`
	Images           []string                 `json:"images,omitempty"`
}

// MarshalJSON sends the price as a JSON number.
func (r CreateTransactionRequest) MarshalJSON() ([]byte, error) {
	type plain CreateTransactionRequest
	price := json.Number(r.Price)
	if r.Price == "" {
		price = "0"
	}
	return json.Marshal(struct {
		plain
		Price json.Number `json:"price"`
	}{plain(r), price})
}

func (c *Client) ListTransactions(ctx context.Context) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	if err := c.do(ctx, http.MethodGet, "/api/transactions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListUserTransactions(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	if err := c.do(ctx, http.MethodGet, "/api/transactions/user/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTransaction creates a transaction. A non-empty idempotencyKey makes
// retries with the same key return the first response.
func (c *Client) CreateTransaction(ctx context.Context, in CreateTransactionRequest, idempotencyKey string) (*domain.Transaction, error) {
	var out domain.Transaction
	if err := c.doWithKey(ctx, http.MethodPost, "/api/transactions", in, &out, idempotencyKey); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	var out domain.Transaction
	if err := c.do(ctx, http.MethodGet, "/api/transactions/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateStatus(ctx context.Context, id string, status domain.TransactionStatus, disputeReason string) (*domain.Transaction, error) {
	body := map[string]string{"status": string(status)}
	if disputeReason != "" {
		body["disputeReason"] = disputeReason
	}
	var out domain.Transaction
	if err := c.do(ctx, http.MethodPut, "/api/transactions/"+url.PathEscape(id)+"/status", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Actions(ctx context.Context, id string) (*ports.ActionsView, error) {
	var out ports.ActionsView
	if err := c.do(ctx, http.MethodGet, "/api/transactions/"+url.PathEscape(id)+"/actions", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ApplyAction(ctx context.Context, id string, action domain.Action, reason string) (*domain.Transaction, error) {
	path := "/api/transactions/" + url.PathEscape(id) + "/actions/" + url.PathEscape(string(action))
	var out domain.Transaction
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"reason": reason}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadImage sends r as the multipart "image" field.
func (c *Client) UploadImage(ctx context.Context, id, filename string, r io.Reader) (*domain.Transaction, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "build upload", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, domain.Wrap(domain.KindInternal, "read image", err)
	}
	if err := mw.Close(); err != nil {
		return nil, domain.Wrap(domain.KindInternal, "build upload", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/transactions/"+url.PathEscape(id)+"/images", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out domain.Transaction
	if err := c.roundTrip(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Messages ---

type SendMessageRequest struct {
	TransactionID string             `json:"transactionId"`
	SenderID      string             `json:"senderId,omitempty"`
	SenderName    string             `json:"senderName,omitempty"`
	Message       string             `json:"message"`
	Type          domain.MessageType `json:"type,omitempty"`
}

func (c *Client) ListMessages(ctx context.Context, transactionID string) ([]*domain.Message, error) {
	var out []*domain.Message
	if err := c.do(ctx, http.MethodGet, "/api/transactions/"+url.PathEscape(transactionID)+"/messages", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SendMessage(ctx context.Context, in SendMessageRequest, idempotencyKey string) (*domain.Message, error) {
	var out domain.Message
	if err := c.doWithKey(ctx, http.MethodPost, "/api/messages", in, &out, idempotencyKey); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Plumbing ---

type errorBody struct {
	Error string           `json:"error"`
	Kind  domain.ErrorKind `json:"kind"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	return c.doWithKey(ctx, method, path, in, out, "")
}

func (c *Client) doWithKey(ctx context.Context, method, path string, in, out any, idempotencyKey string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return domain.Wrap(domain.KindInternal, "encode request", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	return c.roundTrip(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.Wrap(domain.KindUnreachable, "cannot reach "+c.baseURL, err)
	}
	return resp, nil
}

func (c *Client) roundTrip(req *http.Request, out any) error {
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.Wrap(domain.KindInternal, "decode response", err)
	}
	return nil
}

// decodeError turns a non-2xx response into a classified error. The kind is
// derived from the status code; the server's message is kept when present.
func decodeError(resp *http.Response) error {
	var body errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
		if body.Error == "" {
			body.Error = http.StatusText(resp.StatusCode)
		}
	}
	return &domain.Error{
		Kind:    KindForStatus(resp.StatusCode),
		Message: body.Error,
	}
}

// KindForStatus maps an HTTP status code back to an error kind.
func KindForStatus(code int) domain.ErrorKind {
	switch code {
	case http.StatusConflict:
		return domain.KindDuplicateEmail
	case http.StatusNotFound:
		return domain.KindNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.KindUnauthorized
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.KindValidationFailed
	case http.StatusServiceUnavailable:
		return domain.KindUnreachable
	default:
		return domain.KindInternal
	}
}
