// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

// Version is the client version reported in the User-Agent header and
// the version subcommand.
const Version = "0.3.0"
