// Package yggdrasil is a client for the Yggdrasil authentication protocol as
// spoken by third-party Minecraft account servers (LittleSkin and friends).
package yggdrasil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
)

// Client talks to one Yggdrasil server. It is stateless and safe for
// concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// validate is best-effort, so transient failures may be retried there;
	// authenticate/refresh errors must surface unretried.
	validateClient *retryablehttp.Client
}

// NewClient creates a client for the given base URL. A single trailing slash
// is stripped before endpoint concatenation.
func NewClient(serverURL string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = 30 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL:        strings.TrimSuffix(serverURL, "/"),
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		validateClient: rc,
	}
}

// BaseURL returns the normalized server URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type agent struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
}

type authenticateRequest struct {
	Agent       agent  `json:"agent"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	RequestUser bool   `json:"requestUser"`
}

type refreshRequest struct {
	AccessToken string `json:"accessToken"`
	ClientToken string `json:"clientToken,omitempty"`
	RequestUser bool   `json:"requestUser"`
}

type validateRequest struct {
	AccessToken string `json:"accessToken"`
	ClientToken string `json:"clientToken,omitempty"`
}

type sessionResponse struct {
	AccessToken       string    `json:"accessToken"`
	ClientToken       string    `json:"clientToken"`
	AvailableProfiles []Profile `json:"availableProfiles"`
	SelectedProfile   *Profile  `json:"selectedProfile"`
}

// DiscoverProfiles authenticates against the server purely to list the
// profiles available under the given credentials.
func (c *Client) DiscoverProfiles(ctx context.Context, username, password string) ([]Profile, error) {
	log.Debug().Str("server", c.baseURL).Msg("discovering profiles")

	resp, err := c.postAuthenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	if len(resp.AvailableProfiles) == 0 {
		return nil, ErrNoProfiles
	}
	return resp.AvailableProfiles, nil
}

// Authenticate performs a credentials login and returns the resulting
// session. If the server does not pick a profile, the first available one is
// selected.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	log.Debug().Str("server", c.baseURL).Msg("authenticating")

	resp, err := c.postAuthenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return sessionFrom(resp, "")
}

// Refresh exchanges an access token for a fresh one. The clientToken may be
// empty; if the server omits it in the response, the input value is kept.
func (c *Client) Refresh(ctx context.Context, accessToken, clientToken string) (*Session, error) {
	log.Debug().Str("server", c.baseURL).Msg("refreshing session")

	body := refreshRequest{
		AccessToken: accessToken,
		ClientToken: clientToken,
		RequestUser: true,
	}

	resp, err := c.postSession(ctx, c.baseURL+"/authserver/refresh", body)
	if err != nil {
		return nil, err
	}
	return sessionFrom(resp, clientToken)
}

// Validate reports whether the access token is still valid. It never returns
// an error: HTTP 204 means valid, everything else (including transport
// failures) means invalid, with the reason logged for diagnostics.
func (c *Client) Validate(ctx context.Context, accessToken, clientToken string) bool {
	payload, err := json.Marshal(validateRequest{AccessToken: accessToken, ClientToken: clientToken})
	if err != nil {
		log.Error().Err(err).Msg("validate: encoding request")
		return false
	}

	url := c.baseURL + "/authserver/validate"
	log.Debug().
		Str("url", url).
		Str("accessToken", MaskToken(accessToken)).
		Msg("validating token")

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, payload)
	if err != nil {
		log.Error().Err(err).Msg("validate: building request")
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.validateClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("token validation failed: request error")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		log.Debug().Msg("token validation successful")
		return true
	}

	body, _ := io.ReadAll(resp.Body)
	log.Warn().
		Int("status", resp.StatusCode).
		Str("error", extractErrorMessage(body)).
		Msg("token validation failed")
	return false
}

func (c *Client) postAuthenticate(ctx context.Context, username, password string) (*sessionResponse, error) {
	body := authenticateRequest{
		Agent:       agent{Name: "Minecraft", Version: 1},
		Username:    username,
		Password:    password,
		RequestUser: true,
	}
	return c.postSession(ctx, c.baseURL+"/authserver/authenticate", body)
}

func (c *Client) postSession(ctx context.Context, url string, body any) (*sessionResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, &ServerError{
			StatusCode: resp.StatusCode,
			Message:    extractErrorMessage(raw),
		}
	}

	var result sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &result, nil
}

// sessionFrom applies the shared response rules: accessToken is required,
// selectedProfile falls back to the first available profile, clientToken
// falls back to the caller's value.
func sessionFrom(resp *sessionResponse, fallbackClientToken string) (*Session, error) {
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing accessToken", ErrMalformedResponse)
	}

	selected := resp.SelectedProfile
	if selected == nil {
		if len(resp.AvailableProfiles) == 0 {
			return nil, ErrNoProfile
		}
		selected = &resp.AvailableProfiles[0]
	}

	clientToken := resp.ClientToken
	if clientToken == "" {
		clientToken = fallbackClientToken
	}

	return &Session{
		AccessToken:       resp.AccessToken,
		ClientToken:       clientToken,
		UUID:              selected.ID,
		Name:              selected.Name,
		AvailableProfiles: resp.AvailableProfiles,
		SelectedProfile:   *selected,
	}, nil
}

// extractErrorMessage pulls the errorMessage field out of a JSON error body,
// falling back to the raw body text.
func extractErrorMessage(body []byte) string {
	var parsed struct {
		ErrorMessage string `json:"errorMessage"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.ErrorMessage != "" {
		return parsed.ErrorMessage
	}
	return strings.TrimSpace(string(body))
}

// MaskToken redacts a token for logging: first and last 10 characters with
// the middle elided, or fully masked for short tokens.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 20 {
		return strings.Repeat("*", len(token))
	}
	return token[:10] + strings.Repeat("*", len(token)-20) + token[len(token)-10:]
}
