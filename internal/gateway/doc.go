// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway implements the HTTP client for the Sage backend API.
//
// All network traffic goes through this package; the chat core and the UI
// never touch net/http directly. Responses are decoded into the wire types
// here and converted to internal/model values at the boundary.
//
// GATEWAY: Secure logging, typed errors, and rate limiting
package gateway
