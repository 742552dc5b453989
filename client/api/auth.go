package api

import (
	"context"
	"net/http"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Tokens struct {
	Access  string `json:"access" validate:"required"`
	Refresh string `json:"refresh" validate:"required"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name,omitempty"`
}

type Profile struct {
	ID              int64  `json:"id" validate:"required"`
	Email           string `json:"email"`
	FullName        string `json:"full_name"`
	Nickname        string `json:"nickname"`
	IsEmailVerified bool   `json:"is_email_verified"`
}

type ProfileUpdate struct {
	FullName string `json:"full_name,omitempty" validate:"omitempty,max=150"`
	Nickname string `json:"nickname,omitempty" validate:"omitempty,max=50"`
}

// Message is the {"detail": ...} acknowledgement of register and logout.
type Message struct {
	Detail string `json:"detail"`
}

type logoutRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (Tokens, error) {
	return getOne[Tokens](ctx, c, http.MethodPost, "/auth/login/", nil, &req)
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (Message, error) {
	return getOne[Message](ctx, c, http.MethodPost, "/auth/register/", nil, &req)
}

func (c *Client) Me(ctx context.Context) (Profile, error) {
	return getOne[Profile](ctx, c, http.MethodGet, "/auth/me/", nil, nil)
}

func (c *Client) UpdateProfile(ctx context.Context, req ProfileUpdate) (Profile, error) {
	return getOne[Profile](ctx, c, http.MethodPut, "/user/profile/", nil, &req)
}

func (c *Client) Logout(ctx context.Context, refresh string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout/", nil, &logoutRequest{Refresh: refresh}, nil)
}
