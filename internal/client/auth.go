package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type User struct {
	Username   string `json:"username"`
	StateID    int    `json:"stateId"`
	DistrictID int    `json:"districtId"`
}

type SignupRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	StateID    int    `json:"stateId"`
	DistrictID int    `json:"districtId"`
}

// UpdateRequest is a partial profile update; nil fields are not sent.
type UpdateRequest struct {
	Username   string  `json:"username"`
	Password   *string `json:"password,omitempty"`
	StateID    *int    `json:"stateId,omitempty"`
	DistrictID *int    `json:"districtId,omitempty"`
}

func (c *Client) Login(ctx context.Context, username, password string) error {
	return c.postJSON(ctx, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, nil)
}

func (c *Client) Signup(ctx context.Context, req SignupRequest) error {
	return c.postJSON(ctx, "/api/auth/signup", req, nil)
}

func (c *Client) Update(ctx context.Context, req UpdateRequest) error {
	return c.postJSON(ctx, "/api/auth/update", req, nil)
}

func (c *Client) User(ctx context.Context, username string) (*User, error) {
	u := c.baseURL + "/api/auth/user?username=" + url.QueryEscape(username)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var user User
	if err := c.do(req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
