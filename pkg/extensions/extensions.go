// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package extensions defines injection points for hosted deployments.
//
// LucidLines is designed as a fully functional local writing tool that
// works offline with a single user. Hosted deployments provide concrete
// implementations of these interfaces and inject them via ServiceOptions;
// the open source build uses no-op defaults.
//
// # Extension Categories
//
//   - auth.go: Authentication (AuthProvider)
//
// # Thread Safety
//
// All interface implementations must be safe for concurrent use.
package extensions

// ServiceOptions groups all extension points for service configuration.
//
// All fields are optional; nil values are replaced with no-op defaults
// when DefaultOptions() is called or when services check for nil.
type ServiceOptions struct {
	// AuthProvider validates authentication tokens.
	// Default: NopAuthProvider (always returns the local user)
	AuthProvider AuthProvider
}

// DefaultOptions returns ServiceOptions with no-op defaults.
//
// This is the configuration used by the open source version: every
// request is treated as the local single user.
func DefaultOptions() ServiceOptions {
	return ServiceOptions{
		AuthProvider: &NopAuthProvider{},
	}
}

// WithAuth returns a copy of opts with the given AuthProvider.
func (opts ServiceOptions) WithAuth(provider AuthProvider) ServiceOptions {
	opts.AuthProvider = provider
	return opts
}
