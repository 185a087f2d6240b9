package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal HTTP client for the management backend's REST surface.
// Bearer-token auth is attached to every request from the TokenSource.
type Client struct {
	BaseURL    string
	Tokens     TokenSource
	HTTPClient *http.Client
}

// New returns a client with a default HTTP timeout.
func New(baseURL string, tokens TokenSource) *Client {
	return &Client{
		BaseURL: baseURL,
		Tokens:  tokens,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// StatusError reports a non-2xx backend response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Message)
}

func (c *Client) endpoint(path string) string {
	base := strings.TrimRight(c.BaseURL, "/")
	return base + path
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var payload io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		payload = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), payload)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Tokens != nil {
		token, err := c.Tokens.Token()
		if err != nil {
			return fmt.Errorf("token source: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = resp.Status
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

func listPath(resource, filter string) string {
	q := url.Values{}
	q.Set("filter", filter)
	return "/v1/" + resource + "?" + q.Encode()
}

// ListGroupsByName fetches groups whose display name matches exactly.
func (c *Client) ListGroupsByName(ctx context.Context, displayName string) ([]Group, error) {
	var resp struct {
		Value []Group `json:"value"`
	}
	if err := c.doJSON(ctx, http.MethodGet, listPath("groups", NameFilter(displayName)), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// CreateGroup creates a security group and returns its ID.
func (c *Client) CreateGroup(ctx context.Context, req *GroupCreate) (string, error) {
	if req == nil {
		return "", fmt.Errorf("request is nil")
	}
	var resp Group
	if err := c.doJSON(ctx, http.MethodPost, "/v1/groups", req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// ListAppsByName fetches published apps whose display name matches exactly.
func (c *Client) ListAppsByName(ctx context.Context, displayName string) ([]App, error) {
	var resp struct {
		Value []App `json:"value"`
	}
	if err := c.doJSON(ctx, http.MethodGet, listPath("apps", NameFilter(displayName)), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// CreateApp registers a new application artifact and returns it.
func (c *Client) CreateApp(ctx context.Context, req *AppCreate) (*App, error) {
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}
	var resp App
	if err := c.doJSON(ctx, http.MethodPost, "/v1/apps", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateContentVersion opens a new content version for an app.
func (c *Client) CreateContentVersion(ctx context.Context, appID string) (*ContentVersion, error) {
	if appID == "" {
		return nil, fmt.Errorf("app id required")
	}
	var resp ContentVersion
	path := "/v1/apps/" + appID + "/contentVersions"
	if err := c.doJSON(ctx, http.MethodPost, path, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateContentFile registers a file entry within a content version and
// returns its resource locator for subsequent polling.
func (c *Client) CreateContentFile(ctx context.Context, appID, versionID string, req *ContentFileCreate) (string, error) {
	if appID == "" || versionID == "" {
		return "", fmt.Errorf("app id and version id required")
	}
	if req == nil {
		return "", fmt.Errorf("request is nil")
	}
	var resp ContentFile
	base := "/v1/apps/" + appID + "/contentVersions/" + versionID + "/files"
	if err := c.doJSON(ctx, http.MethodPost, base, req, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("backend returned no file id")
	}
	return base + "/" + resp.ID, nil
}

// GetContentFile fetches a content file entry by its resource locator.
func (c *Client) GetContentFile(ctx context.Context, locator string) (*ContentFile, error) {
	if locator == "" {
		return nil, fmt.Errorf("locator required")
	}
	var resp ContentFile
	if err := c.doJSON(ctx, http.MethodGet, locator, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RenewUpload asks the backend for fresh storage credentials for a file.
func (c *Client) RenewUpload(ctx context.Context, locator string) error {
	if locator == "" {
		return fmt.Errorf("locator required")
	}
	return c.doJSON(ctx, http.MethodPost, locator+"/renewUpload", nil, nil)
}

// CommitFile submits the encryption info for an uploaded file.
func (c *Client) CommitFile(ctx context.Context, locator string, enc FileEncryptionInfo) error {
	if locator == "" {
		return fmt.Errorf("locator required")
	}
	body := struct {
		FileEncryptionInfo FileEncryptionInfo `json:"fileEncryptionInfo"`
	}{enc}
	return c.doJSON(ctx, http.MethodPost, locator+"/commit", body, nil)
}

// SetCommittedContentVersion marks a content version as the committed one.
func (c *Client) SetCommittedContentVersion(ctx context.Context, appID, versionID string) error {
	if appID == "" || versionID == "" {
		return fmt.Errorf("app id and version id required")
	}
	body := map[string]string{"committedContentVersion": versionID}
	return c.doJSON(ctx, http.MethodPatch, "/v1/apps/"+appID, body, nil)
}

// CreateAssignment binds an app to an assignment target.
func (c *Client) CreateAssignment(ctx context.Context, appID string, assignment Assignment) error {
	if appID == "" {
		return fmt.Errorf("app id required")
	}
	return c.doJSON(ctx, http.MethodPost, "/v1/apps/"+appID+"/assignments", assignment, nil)
}

// ListRemediationsByName fetches remediation jobs matching a display name.
func (c *Client) ListRemediationsByName(ctx context.Context, displayName string) ([]Remediation, error) {
	var resp struct {
		Value []Remediation `json:"value"`
	}
	if err := c.doJSON(ctx, http.MethodGet, listPath("remediations", NameFilter(displayName)), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// CreateRemediation creates an auto-remediation job and returns its ID.
func (c *Client) CreateRemediation(ctx context.Context, req *RemediationCreate) (string, error) {
	if req == nil {
		return "", fmt.Errorf("request is nil")
	}
	var resp Remediation
	if err := c.doJSON(ctx, http.MethodPost, "/v1/remediations", req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// HasRemediationEntitlement reports whether the tenant is licensed for
// auto-remediation jobs.
func (c *Client) HasRemediationEntitlement(ctx context.Context) (bool, error) {
	var resp struct {
		Entitled bool `json:"entitled"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/licensing/remediations", nil, &resp); err != nil {
		return false, err
	}
	return resp.Entitled, nil
}
