// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when authentication fails.
// Hosted implementations should wrap this error with additional context.
var ErrUnauthorized = errors.New("unauthorized")

// AuthInfo contains identity information returned after successful
// authentication. UserID is the only required field; it keys rate
// limits, usage accounting, and the request journal.
type AuthInfo struct {
	// UserID is the unique identifier for the authenticated user.
	// Must never be empty.
	UserID string

	// Email is the user's email address. May be empty.
	Email string

	// Roles contains the user's role memberships.
	// Common roles: "admin", "writer"
	Roles []string
}

// HasRole checks if the user has a specific role.
func (a *AuthInfo) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthProvider validates authentication tokens and returns user identity.
//
// Implementations must be safe for concurrent use by multiple goroutines.
//
// The default NopAuthProvider always returns a valid "local-user",
// which lets the desktop app talk to its local server without any
// authentication infrastructure. Hosted deployments validate tokens
// against a real identity provider.
type AuthProvider interface {
	// Validate checks if the token is valid and returns the user's
	// identity. Returns ErrUnauthorized (possibly wrapped) when the
	// token is rejected.
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// NopAuthProvider is the default authentication provider for open source.
//
// It always returns the local user, enabling the app to function
// without any authentication infrastructure. The token is ignored.
type NopAuthProvider struct{}

// Validate always returns the local user.
func (p *NopAuthProvider) Validate(_ context.Context, _ string) (*AuthInfo, error) {
	return &AuthInfo{
		UserID: "local-user",
		Roles:  []string{"admin"},
	}, nil
}

// StaticTokenProvider validates requests against one pre-shared token.
//
// Used when the local server is exposed beyond the loopback interface,
// for example syncing from a tablet on the same LAN. The comparison is
// constant-time.
type StaticTokenProvider struct {
	token  string
	userID string
}

// NewStaticTokenProvider builds a provider for one pre-shared token.
// userID defaults to "local-user" when empty.
func NewStaticTokenProvider(token, userID string) (*StaticTokenProvider, error) {
	if token == "" {
		return nil, fmt.Errorf("static token must not be empty")
	}
	if userID == "" {
		userID = "local-user"
	}
	return &StaticTokenProvider{token: token, userID: userID}, nil
}

// Validate accepts exactly the configured token.
func (p *StaticTokenProvider) Validate(_ context.Context, token string) (*AuthInfo, error) {
	if subtle.ConstantTimeCompare([]byte(token), []byte(p.token)) != 1 {
		return nil, ErrUnauthorized
	}
	return &AuthInfo{
		UserID: p.userID,
		Roles:  []string{"writer"},
	}, nil
}

var (
	_ AuthProvider = (*NopAuthProvider)(nil)
	_ AuthProvider = (*StaticTokenProvider)(nil)
)
