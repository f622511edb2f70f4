// Package nextcloud is a client for the file-manager REST layer in front of
// Nextcloud: provider-side scan triggers, user permissions and user
// administration.
package nextcloud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to one file-manager REST endpoint with basic auth.
type Client struct {
	httpClient *http.Client
	baseURL    string
	username   string
	password   string
}

// New creates a Client for the REST layer at baseURL.
func New(baseURL, username, password string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		password:   password,
	}
}

// do issues a request and returns the response body. Non-2xx responses are
// decoded for their error message when the body is JSON.
func (c *Client) do(ctx context.Context, method, p string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+p, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, p, err)
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, p, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, p, err)
	}
	if resp.StatusCode >= 400 {
		msg := struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}{}
		if json.Unmarshal(body, &msg) == nil && msg.Message != "" {
			return nil, fmt.Errorf("%s %s: status %d: %s", method, p, resp.StatusCode, msg.Message)
		}
		return nil, fmt.Errorf("%s %s: status %d", method, p, resp.StatusCode)
	}
	return body, nil
}

// Test checks the API connection.
func (c *Client) Test(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "test")
	return err
}

// UserPermissions returns the raw permissions response for a directory.
// Use ExtractPermissions to pull the permission number out of it.
func (c *Client) UserPermissions(ctx context.Context, dir string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "files/userpermissions/"+url.PathEscape(dir))
}

// SetUserPermissions grants permType on dir to user. Returns the raw
// response; failure messages are embedded in it (see ExtractFailureMessages).
func (c *Client) SetUserPermissions(ctx context.Context, user, permType, dir string) ([]byte, error) {
	return c.do(ctx, http.MethodPost,
		"files/userpermissions/"+url.PathEscape(user)+"/"+url.PathEscape(permType)+"/"+url.PathEscape(dir))
}

// DeleteUserPermissions revokes user's permissions on dir.
func (c *Client) DeleteUserPermissions(ctx context.Context, user, dir string) ([]byte, error) {
	return c.do(ctx, http.MethodDelete,
		"files/userpermissions/"+url.PathEscape(user)+"/"+url.PathEscape(dir))
}

// ScanAllFiles triggers a provider-side scan of every file.
func (c *Client) ScanAllFiles(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPut, "files/scan")
	return err
}

// ScanUserFiles triggers a provider-side scan of one user's files.
func (c *Client) ScanUserFiles(ctx context.Context, user string) error {
	_, err := c.do(ctx, http.MethodPut, "files/scan/"+url.PathEscape(user))
	return err
}

// ScanDirectoryFiles triggers a provider-side scan of a directory.
func (c *Client) ScanDirectoryFiles(ctx context.Context, dir string) error {
	_, err := c.do(ctx, http.MethodPut, "files/scan/directory/"+url.PathEscape(dir))
	return err
}

// Users returns all provider users.
func (c *Client) Users(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "files/users")
}

// CreateUser creates a provider user.
func (c *Client) CreateUser(ctx context.Context, user string) error {
	_, err := c.do(ctx, http.MethodPost, "users/"+url.PathEscape(user))
	return err
}

// DisableUser disables a provider user.
func (c *Client) DisableUser(ctx context.Context, user string) error {
	_, err := c.do(ctx, http.MethodPut, "users/"+url.PathEscape(user)+"/disable")
	return err
}

// EnableUser enables a provider user.
func (c *Client) EnableUser(ctx context.Context, user string) error {
	_, err := c.do(ctx, http.MethodPut, "users/"+url.PathEscape(user)+"/enable")
	return err
}
