// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

// Package csource reads build settings from C headers and map files and
// injects key material into the embedded key store sources.
package csource
