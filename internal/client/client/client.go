// Package client is a small HTTP client for the gophauth API. It keeps no
// state; callers hold the tokens and pass them in.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// TokenPair is what /login returns.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Refreshed is what /refresh returns.
type Refreshed struct {
	Username     string `json:"username"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type AuthClient struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *AuthClient {
	return &AuthClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *AuthClient) Register(ctx context.Context, username, password string) error {
	return c.do(ctx, http.MethodPost, "/register", "", credentials{username, password}, nil)
}

func (c *AuthClient) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	var out TokenPair
	if err := c.do(ctx, http.MethodPost, "/login", "", credentials{username, password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh presents refreshToken, naming the caller with accessToken (which
// may already be expired).
func (c *AuthClient) Refresh(ctx context.Context, accessToken, refreshToken string) (*Refreshed, error) {
	var out Refreshed
	body := struct {
		RefreshToken string `json:"refreshToken"`
	}{refreshToken}
	if err := c.do(ctx, http.MethodPost, "/refresh", accessToken, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *AuthClient) Logout(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
}

// Hello calls the protected greeting route and returns its text.
func (c *AuthClient) Hello(ctx context.Context, accessToken string) (string, error) {
	var out string
	if err := c.do(ctx, http.MethodGet, "/hello", accessToken, nil, &out); err != nil {
		return "", err
	}
	return out, nil
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// do sends in as JSON and decodes a 2xx body into out. A *string out receives
// the raw body.
func (c *AuthClient) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, data)
	}

	switch o := out.(type) {
	case nil:
		return nil
	case *string:
		*o = string(data)
		return nil
	default:
		return json.Unmarshal(data, out)
	}
}

// APIError is a non-2xx answer from the server. errors.Is matches it against
// the common sentinel for its status code.
type APIError struct {
	StatusCode int
	Message    string
}

func newAPIError(code int, body []byte) *APIError {
	e := &APIError{StatusCode: code}
	var m struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &m) == nil && m.Message != "" {
		e.Message = m.Message
	} else {
		e.Message = http.StatusText(code)
	}
	return e
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch {
	case errors.Is(target, common.ErrorUnauthorized):
		return e.StatusCode == http.StatusUnauthorized
	case errors.Is(target, common.ErrorAlreadyExists):
		return e.StatusCode == http.StatusConflict
	case errors.Is(target, common.ErrorInvalidInput):
		return e.StatusCode == http.StatusBadRequest
	case errors.Is(target, common.ErrorInternal):
		return e.StatusCode >= http.StatusInternalServerError
	}
	return false
}
