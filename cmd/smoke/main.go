// Package main is a post-deployment smoke test. It checks that the API is
// healthy, registers a throwaway account, logs in with it, reads the profile
// back and lists the public catalogue. Each step is printed; the first failure
// exits non-zero.
//
//	go run ./cmd/smoke -base http://localhost:8080
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

type client struct {
	base  string
	http  *http.Client
	token string
}

func (c *client) do(method, path string, body, out interface{}, want int) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}
	if resp.StatusCode != want {
		return fmt.Errorf("%s %s: status %d, want %d: %s", method, path, resp.StatusCode, want, data)
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}

func main() {
	base := flag.String("base", "http://localhost:8080", "API base URL")
	flag.Parse()

	c := &client{base: *base, http: &http.Client{Timeout: 10 * time.Second}}
	email := "smoke-" + uuid.NewString()[:8] + "@example.org"
	password := uuid.NewString()

	var login struct {
		AccessToken string `json:"access_token"`
	}
	var me struct {
		Email string `json:"email"`
	}
	var list []json.RawMessage

	steps := []struct {
		name string
		run  func() error
	}{
		{"health", func() error { return c.do(http.MethodGet, "/health", nil, nil, http.StatusOK) }},
		{"ready", func() error { return c.do(http.MethodGet, "/ready", nil, nil, http.StatusOK) }},
		{"register", func() error {
			return c.do(http.MethodPost, "/api/v1/users",
				map[string]string{"name": "Smoke Test", "email": email, "password": password}, nil, http.StatusCreated)
		}},
		{"login", func() error {
			return c.do(http.MethodPost, "/api/v1/auth/login",
				map[string]string{"email": email, "password": password}, &login, http.StatusOK)
		}},
		{"me", func() error {
			c.token = login.AccessToken
			if err := c.do(http.MethodGet, "/api/v1/auth/me", nil, &me, http.StatusOK); err != nil {
				return err
			}
			if me.Email != email {
				return fmt.Errorf("me returned %q, want %q", me.Email, email)
			}
			return nil
		}},
		{"non-admin cannot create ONG", func() error {
			return c.do(http.MethodPost, "/api/v1/ongs",
				map[string]string{"name": "Smoke", "email": email}, nil, http.StatusForbidden)
		}},
		{"list ongs", func() error { return c.do(http.MethodGet, "/api/v1/ongs", nil, &list, http.StatusOK) }},
		{"list animals", func() error { return c.do(http.MethodGet, "/api/v1/animals", nil, &list, http.StatusOK) }},
	}

	for _, step := range steps {
		if err := step.run(); err != nil {
			fmt.Printf("FAIL %s: %v\n", step.name, err)
			os.Exit(1)
		}
		fmt.Printf("ok   %s\n", step.name)
	}
}
