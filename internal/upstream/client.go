package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/anasy333/krishisat-gateway/internal/domain"
	"github.com/anasy333/krishisat-gateway/pkg/logger"
)

// Config holds the remote service connection settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// newHTTPClient builds a client with a tuned transport for the remote
// analytics service.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: timeout,
		},
	}
}

// HTTPGateway is the real AuthGateway over the remote KrishiSat API.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

// NewHTTPGateway creates an auth gateway against the remote service.
func NewHTTPGateway(cfg *Config) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		client:  newHTTPClient(cfg.Timeout),
		log:     logger.Get().With(zap.String("component", "auth_gateway")),
	}
}

type sendOTPPayload struct {
	Phone string `json:"phone_number"`
}

type verifyOTPPayload struct {
	Phone string `json:"phone_number"`
	OTP   string `json:"otp"`
}

type verifyOTPResult struct {
	Token string `json:"token"`
	User  struct {
		ID        string `json:"id"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Role      string `json:"role"`
		Email     string `json:"email"`
		Phone     string `json:"phone_number"`
	} `json:"user"`
}

// SendOTP asks the remote service to deliver a code. Failures are surfaced
// as-is; there is no automatic retry for user-facing auth actions.
func (g *HTTPGateway) SendOTP(ctx context.Context, phone string) error {
	resp, err := g.postJSON(ctx, "/api/send-otp/", sendOTPPayload{Phone: phone})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrUserNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: send-otp returned %d", ErrUnavailable, resp.StatusCode)
	default:
		return fmt.Errorf("send-otp failed with status %d", resp.StatusCode)
	}
}

// VerifyOTP exchanges phone + code for a token and identity.
func (g *HTTPGateway) VerifyOTP(ctx context.Context, phone, code string) (*AuthResult, error) {
	resp, err := g.postJSON(ctx, "/api/verify-otp/", verifyOTPPayload{Phone: phone, OTP: code})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrInvalidCode
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrUserNotFound
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: verify-otp returned %d", ErrUnavailable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("verify-otp failed with status %d", resp.StatusCode)
	}

	var result verifyOTPResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode verify-otp response: %w", err)
	}
	if result.Token == "" {
		return nil, fmt.Errorf("verify-otp response carried no token")
	}

	return &AuthResult{
		Token: result.Token,
		Identity: &domain.Identity{
			ID:        result.User.ID,
			FirstName: result.User.FirstName,
			LastName:  result.User.LastName,
			Role:      domain.ParseRole(result.User.Role),
			Email:     result.User.Email,
			Phone:     result.User.Phone,
		},
	}, nil
}

func (g *HTTPGateway) postJSON(ctx context.Context, path string, payload interface{}) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		g.log.Warn("upstream auth call failed",
			zap.String("path", path),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

// DataClient passes dashboard requests through to the remote service. The
// payloads stay opaque: the gateway forwards bytes and never interprets
// them.
type DataClient struct {
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

// NewDataClient creates a pass-through client for the analytics endpoints.
func NewDataClient(cfg *Config) *DataClient {
	return &DataClient{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		client:  newHTTPClient(cfg.Timeout),
		log:     logger.Get().With(zap.String("component", "data_client")),
	}
}

// Get fetches a JSON payload with the session credential attached.
// A 401 maps to ErrUnauthorized so the sweep middleware can clear the
// session.
func (c *DataClient) Get(ctx context.Context, credential, path string, query url.Values) (json.RawMessage, error) {
	body, _, err := c.fetch(ctx, credential, path, query)
	return body, err
}

// Download fetches a binary payload (PDF export), returning bytes and the
// upstream content type.
func (c *DataClient) Download(ctx context.Context, credential, path string, query url.Values) ([]byte, string, error) {
	return c.fetch(ctx, credential, path, query)
}

// Post forwards a JSON body (farm creation with drawn geometry) and returns
// the upstream payload untouched.
func (c *DataClient) Post(ctx context.Context, credential, path string, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+credential)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("upstream data call failed",
			zap.String("path", path),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %s returned %d", ErrUnavailable, path, resp.StatusCode)
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated:
		return nil, fmt.Errorf("upstream %s failed with status %d", path, resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response: %w", err)
	}
	return payload, nil
}

func (c *DataClient) fetch(ctx context.Context, credential, path string, query url.Values) ([]byte, string, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+credential)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("upstream data call failed",
			zap.String("path", path),
			zap.Error(err))
		return nil, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, "", ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return nil, "", fmt.Errorf("upstream resource not found: %s", path)
	case resp.StatusCode >= 500:
		return nil, "", fmt.Errorf("%w: %s returned %d", ErrUnavailable, path, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, "", fmt.Errorf("upstream %s failed with status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upstream response: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}
