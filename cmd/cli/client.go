package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// errNotLoggedIn is returned by protected commands without a stored token
var errNotLoggedIn = errors.New("not logged in; run: tenantsync auth login")

// apiError carries the detail message of a non-2xx response
type apiError struct {
	Status int
	Detail string
}

func (e *apiError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("request failed: %s", http.StatusText(e.Status))
	}
	return fmt.Sprintf("request failed (%d): %s", e.Status, e.Detail)
}

// client talks to the tenantsync HTTP API
type client struct {
	baseURL   string
	tokenPath string
	http      *http.Client
}

func newClient() *client {
	base := os.Getenv("TENANTSYNC_API")
	if base == "" {
		base = "http://localhost:8080"
	}
	return &client{
		baseURL:   strings.TrimRight(base, "/"),
		tokenPath: defaultTokenPath(),
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".tenantsync", "token")
}

func (c *client) saveToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(c.tokenPath), 0o700); err != nil {
		return err
	}
	return os.WriteFile(c.tokenPath, []byte(token), 0o600)
}

func (c *client) loadToken() string {
	data, err := os.ReadFile(c.tokenPath)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (c *client) clearToken() error {
	err := os.Remove(c.tokenPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// login exchanges credentials for a token via the form-encoded /token endpoint
func (c *client) login(username, password string) (string, error) {
	form := url.Values{"username": {username}, "password": {password}}
	resp, err := c.http.PostForm(c.baseURL+"/token", form)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := decodeResponse(resp, &out); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

// do sends an authenticated JSON request; out may be nil
func (c *client) do(method, path string, body, out any) error {
	token := c.loadToken()
	if token == "" {
		return errNotLoggedIn
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body struct {
			Detail string `json:"detail"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		return &apiError{Status: resp.StatusCode, Detail: body.Detail}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
