package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"impact-registration/internal/config"
	"impact-registration/internal/domain"
	"impact-registration/internal/logger"
)

const maxResponseBytes = 4 << 20

// Client talks to the festival registration backend
type Client struct {
	baseURL    string
	endpoints  config.EndpointsConfig
	httpClient *http.Client
}

func NewClient(baseURL string, endpoints config.EndpointsConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		endpoints:  endpoints,
		httpClient: httpClient,
	}
}

// NewFromConfig builds a client whose requests give up after the configured timeout
func NewFromConfig(cfg *config.Config) *Client {
	return NewClient(cfg.Backend.BaseURL, cfg.Backend.Endpoints, &http.Client{Timeout: cfg.Timeout()})
}

// SubmitRegistration posts a validated registration as multipart form data
func (c *Client) SubmitRegistration(ctx context.Context, token string, reg domain.Registration) (*StatusResponse, error) {
	body, contentType, err := EncodeRegistration(reg)
	if err != nil {
		return nil, err
	}
	var out StatusResponse
	if err := c.do(ctx, http.MethodPost, c.endpoints.Registration, token, contentType, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetProfile(ctx context.Context, token string) (*ProfileResponse, error) {
	var out ProfileResponse
	if err := c.do(ctx, http.MethodGet, c.endpoints.Profile, token, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAdminDashboard returns every user with their registrations. The backend
// answers with either a bare array or an object holding a users array.
func (c *Client) GetAdminDashboard(ctx context.Context, token string) ([]domain.User, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, c.endpoints.AdminDashboard, token, "", nil, &raw); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var users []domain.User
		if err := json.Unmarshal(trimmed, &users); err != nil {
			return nil, &TransportError{Op: "decode " + c.endpoints.AdminDashboard, Err: err}
		}
		return users, nil
	}

	var env dashboardEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, &TransportError{Op: "decode " + c.endpoints.AdminDashboard, Err: err}
	}
	return env.Users, nil
}

func (c *Client) UpdateVerification(ctx context.Context, token, registrationID string, verified bool) (*StatusResponse, error) {
	body, err := json.Marshal(updateVerificationRequest{RegistrationID: registrationID, Verified: verified})
	if err != nil {
		return nil, err
	}
	var out StatusResponse
	if err := c.do(ctx, http.MethodPost, c.endpoints.AdminUpdateVerification, token, "application/json", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CheckToken(ctx context.Context, token string) (bool, error) {
	var out CheckTokenResponse
	if err := c.do(ctx, http.MethodGet, c.endpoints.CheckToken, token, "", nil, &out); err != nil {
		return false, err
	}
	return out.Valid, nil
}

func (c *Client) SignIn(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	return c.authenticate(ctx, c.endpoints.SignIn, creds)
}

func (c *Client) SignUp(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	return c.authenticate(ctx, c.endpoints.SignUp, creds)
}

func (c *Client) AdminSignIn(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	return c.authenticate(ctx, c.endpoints.AdminSignIn, creds)
}

func (c *Client) authenticate(ctx context.Context, path string, creds Credentials) (*AuthResponse, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return nil, err
	}
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, path, "", "application/json", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends one request and decodes the JSON answer into out. Non-2xx statuses
// become *ServerError, as does a 2xx envelope with success=false. Every call
// is a single attempt.
func (c *Client) do(ctx context.Context, method, path, token, contentType string, body io.Reader, out any) error {
	requestID := uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	logger.BackendCall(method, path, requestID)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		terr := &TransportError{Op: method + " " + path, Err: err}
		logger.BackendResult(path, requestID, 0, terr)
		return terr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		terr := &TransportError{Op: "read " + path, Err: err}
		logger.BackendResult(path, requestID, 0, terr)
		return terr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &ServerError{StatusCode: resp.StatusCode, Message: messageFrom(data)}
		logger.BackendResult(path, requestID, resp.StatusCode, serr)
		return serr
	}

	if err := json.Unmarshal(data, out); err != nil {
		terr := &TransportError{Op: "decode " + path, Err: err}
		logger.BackendResult(path, requestID, 0, terr)
		return terr
	}

	if s, ok := out.(statusful); ok && !s.status().Success {
		serr := &ServerError{StatusCode: resp.StatusCode, Message: s.status().Text()}
		logger.BackendResult(path, requestID, resp.StatusCode, serr)
		return serr
	}

	logger.BackendResult(path, requestID, resp.StatusCode, nil)
	return nil
}

// messageFrom pulls message or error out of an error body, ignoring bodies
// that are not JSON
func messageFrom(data []byte) string {
	var env StatusResponse
	if err := json.Unmarshal(data, &env); err != nil {
		return ""
	}
	return env.Text()
}
