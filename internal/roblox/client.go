// Package roblox talks to the public Roblox users and thumbnails APIs.
package roblox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"signup/config"
)

const Platform = "roblox"

var ErrNotFound = errors.New("roblox user not found")

type User struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	DisplayName       string `json:"displayName,omitempty"`
	RequestedUsername string `json:"requestedUsername,omitempty"`
}

type StatusError struct {
	URL  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("roblox API %s returned %d: %s", e.URL, e.Code, e.Body)
}

type Client struct {
	UsersURL      string
	SearchURL     string
	ThumbnailsURL string
	AvatarSize    string
	AvatarFormat  string
	HTTP          *http.Client
}

func NewClient(cfg *config.RobloxConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		UsersURL:      cfg.UsersURL,
		SearchURL:     cfg.SearchURL,
		ThumbnailsURL: cfg.ThumbnailsURL,
		AvatarSize:    cfg.AvatarSize,
		AvatarFormat:  cfg.AvatarFormat,
		HTTP:          &http.Client{Timeout: timeout},
	}
}

// Search returns users whose name resembles keyword. The result is fuzzy:
// callers must check for an exact match themselves.
func (c *Client) Search(ctx context.Context, keyword string, limit int) ([]User, error) {
	u, err := url.Parse(c.SearchURL)
	if err != nil {
		return nil, fmt.Errorf("invalid search URL %q: %w", c.SearchURL, err)
	}
	q := u.Query()
	q.Set("keyword", keyword)
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Data []User `json:"data"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// LookupUsername resolves an exact username to its user record.
func (c *Client) LookupUsername(ctx context.Context, username string) (*User, error) {
	users, err := c.LookupUsernames(ctx, []string{username})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 || users[0].ID == 0 {
		return nil, ErrNotFound
	}
	return &users[0], nil
}

func (c *Client) LookupUsernames(ctx context.Context, usernames []string) ([]User, error) {
	body, err := json.Marshal(map[string]interface{}{
		"usernames":          usernames,
		"excludeBannedUsers": false,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.UsersURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		Data []User `json:"data"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// AvatarHeadshot returns the headshot image URL for userID, or "" when the
// API has none.
func (c *Client) AvatarHeadshot(ctx context.Context, userID int64) (string, error) {
	u, err := url.Parse(c.ThumbnailsURL)
	if err != nil {
		return "", fmt.Errorf("invalid thumbnails URL %q: %w", c.ThumbnailsURL, err)
	}
	q := u.Query()
	q.Set("userIds", strconv.FormatInt(userID, 10))
	q.Set("size", c.AvatarSize)
	q.Set("format", c.AvatarFormat)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}

	var out struct {
		Data []struct {
			TargetID int64  `json:"targetId"`
			State    string `json:"state"`
			ImageURL string `json:"imageUrl"`
		} `json:"data"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if len(out.Data) == 0 {
		return "", nil
	}
	return out.Data[0].ImageURL, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", req.URL.Host, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{URL: req.URL.Path, Code: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", req.URL.Path, err)
	}
	return nil
}
