package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fjod/storefront/internal/domain"
)

type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInResponse struct {
	Status string    `json:"status"`
	Token  string    `json:"token"`
	ID     domain.ID `json:"id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
}

type UpdateUserRequest struct {
	ID       domain.ID `json:"id"`
	Name     string    `json:"name,omitempty"`
	Password string    `json:"password,omitempty"`
}

const signInStatusOK = "OK"

func (c *Client) SignUp(ctx context.Context, req SignUpRequest) error {
	return c.do(ctx, http.MethodPost, "/users/signup", "", req, nil)
}

// SignIn returns the new session. A response that is not status OK or lacks
// any of token, id, name, email is an invalid response.
func (c *Client) SignIn(ctx context.Context, req SignInRequest) (domain.Session, error) {
	var resp SignInResponse
	if err := c.do(ctx, http.MethodPost, "/users/signin", "", req, &resp); err != nil {
		return domain.Session{}, err
	}

	if resp.Status != signInStatusOK || resp.Token == "" || resp.ID == "" || resp.Name == "" || resp.Email == "" {
		return domain.Session{}, fmt.Errorf("%w: missing fields in sign-in response", domain.ErrInvalidResponse)
	}

	return domain.Session{
		Token:  resp.Token,
		UserID: resp.ID,
		Name:   resp.Name,
		Email:  resp.Email,
	}, nil
}

func (c *Client) UpdateUser(ctx context.Context, req UpdateUserRequest) error {
	return c.do(ctx, http.MethodPost, "/users/update", "", req, nil)
}
