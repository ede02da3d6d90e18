// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	require.NotNil(t, opts.AuthProvider)

	info, err := opts.AuthProvider.Validate(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "local-user", info.UserID)
	assert.True(t, info.HasRole("admin"))
}

func TestWithAuth(t *testing.T) {
	provider, err := NewStaticTokenProvider("secret", "")
	require.NoError(t, err)

	opts := DefaultOptions().WithAuth(provider)
	assert.Same(t, provider, opts.AuthProvider)
}

func TestNopAuthProviderIgnoresToken(t *testing.T) {
	p := &NopAuthProvider{}
	for _, token := range []string{"", "garbage", "Bearer abc"} {
		info, err := p.Validate(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "local-user", info.UserID)
	}
}

func TestStaticTokenProvider(t *testing.T) {
	t.Run("empty token rejected at construction", func(t *testing.T) {
		_, err := NewStaticTokenProvider("", "u1")
		assert.Error(t, err)
	})

	t.Run("matching token", func(t *testing.T) {
		p, err := NewStaticTokenProvider("s3cret", "tablet-user")
		require.NoError(t, err)

		info, err := p.Validate(context.Background(), "s3cret")
		require.NoError(t, err)
		assert.Equal(t, "tablet-user", info.UserID)
		assert.True(t, info.HasRole("writer"))
	})

	t.Run("wrong token", func(t *testing.T) {
		p, err := NewStaticTokenProvider("s3cret", "")
		require.NoError(t, err)

		_, err = p.Validate(context.Background(), "wrong")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("default user id", func(t *testing.T) {
		p, err := NewStaticTokenProvider("s3cret", "")
		require.NoError(t, err)

		info, err := p.Validate(context.Background(), "s3cret")
		require.NoError(t, err)
		assert.Equal(t, "local-user", info.UserID)
	})
}

func TestHasRole(t *testing.T) {
	info := &AuthInfo{UserID: "u1", Roles: []string{"writer", "admin"}}
	assert.True(t, info.HasRole("writer"))
	assert.False(t, info.HasRole("auditor"))
}
