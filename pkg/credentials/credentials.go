// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package credentials contains the API credentials shared by the request and ticket signers.
package credentials

import (
	"errors"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Credentials holds a secret ID/key pair and the application ID.
//
// The secret key can be rotated at runtime; secret ID and app ID are fixed after construction.
// Credentials is safe for concurrent use.
type Credentials struct {
	secretID   string
	secretKey  string
	appID      uint64
	generation uint64
	mu         sync.RWMutex
}

// Snapshot is a consistent view of Credentials taken at the start of a signing operation.
type Snapshot struct {
	SecretID  string
	SecretKey string
	AppID     uint64

	// Generation is incremented on every key rotation.
	Generation uint64
}

// New returns new Credentials.
func New(secretID, secretKey string, appID uint64) *Credentials {
	return &Credentials{
		secretID:  secretID,
		secretKey: secretKey,
		appID:     appID,
	}
}

// SecretID returns the secret ID.
func (c *Credentials) SecretID() string {
	return c.secretID
}

// AppID returns the application ID.
func (c *Credentials) AppID() uint64 {
	return c.appID
}

// RotateSecretKey replaces the secret key.
//
// Signing operations already in progress keep using the key they started with.
func (c *Credentials) RotateSecretKey(secretKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.secretKey = secretKey
	c.generation++
}

// Snapshot returns the current credentials.
func (c *Credentials) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		SecretID:   c.secretID,
		SecretKey:  c.secretKey,
		AppID:      c.appID,
		Generation: c.generation,
	}
}

// Validate checks that the credentials can be used for signing.
func (c *Credentials) Validate() error {
	var err error

	snap := c.Snapshot()

	if snap.SecretID == "" {
		err = multierror.Append(err, errors.New("secret ID is required"))
	}

	if snap.SecretKey == "" {
		err = multierror.Append(err, errors.New("secret key is required"))
	}

	return err
}
