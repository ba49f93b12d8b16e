// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package auth owns the credential lifecycle of every upstream provider: the in-memory
// store, the refresh manager, the background scheduler and the conductor that drives
// provider attempts for a request.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/traylinx/freeapi/sdk/freeapi/executor"
)

// Credential is an opaque guest token or session token issued by an upstream.
type Credential struct {
	Value      string
	AcquiredAt time.Time
	TTL        time.Duration
}

// ExpiresAt returns the instant after which the credential is considered stale.
func (c Credential) ExpiresAt() time.Time {
	return c.AcquiredAt.Add(c.TTL)
}

// Stale reports whether the credential is past its assumed lifetime. Staleness only
// schedules a refresh; a stale credential keeps serving until it is rejected or replaced.
func (c Credential) Stale(now time.Time) bool {
	if c.TTL <= 0 {
		return true
	}
	return !now.Before(c.ExpiresAt())
}

// ErrNoRefresher is returned when a provider has no registered handshake.
var ErrNoRefresher = errors.New("no refresher registered")

// ErrEmptyToken is returned when a handshake succeeds without a usable token.
var ErrEmptyToken = errors.New("handshake returned no token")

// RefreshError wraps every failure of a credential handshake.
type RefreshError struct {
	Provider executor.ProviderID
	Err      error
}

func (e *RefreshError) Error() string {
	if e == nil {
		return "freeapi auth: refresh failed"
	}
	return fmt.Sprintf("freeapi auth: refresh %s: %v", e.Provider, e.Err)
}

func (e *RefreshError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
