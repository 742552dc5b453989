// Package auth holds the access credential used for REST calls and the room channel.
//
// The token is opaque to the client: claims are read without signature verification,
// the backend remains the only authority on validity.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken      = errors.New("no access token")
	ErrTokenExpired = errors.New("access token expired")
	ErrNoUserClaim  = errors.New("access token has no user id claim")
)

type Credential struct {
	Token        string
	RefreshToken string
	UserID       int64
	Username     string
	ExpiresAt    time.Time
}

func (c Credential) Valid(now time.Time) error {
	if c.Token == "" {
		return ErrNoToken
	}
	if !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt) {
		return ErrTokenExpired
	}
	return nil
}

type claims struct {
	UserID   any    `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// ParseCredential reads user id and expiry from an access token.
func ParseCredential(access, refresh string) (Credential, error) {
	if access == "" {
		return Credential{}, ErrNoToken
	}
	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(access, &c); err != nil {
		return Credential{}, fmt.Errorf("parse access token: %w", err)
	}
	userID, err := claimUserID(c)
	if err != nil {
		return Credential{}, err
	}
	cred := Credential{
		Token:        access,
		RefreshToken: refresh,
		UserID:       userID,
		Username:     c.Username,
	}
	if c.ExpiresAt != nil {
		cred.ExpiresAt = c.ExpiresAt.Time
	}
	return cred, nil
}

func claimUserID(c claims) (int64, error) {
	switch v := c.UserID.(type) {
	case float64:
		return int64(v), nil
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, errors.Join(ErrNoUserClaim, err)
		}
		return id, nil
	}
	if c.Subject != "" {
		id, err := strconv.ParseInt(c.Subject, 10, 64)
		if err == nil {
			return id, nil
		}
	}
	return 0, ErrNoUserClaim
}
