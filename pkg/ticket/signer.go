// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package ticket

import (
	"crypto/hmac"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/siderolabs/go-tc3-signature/pkg/credentials"
	"github.com/siderolabs/go-tc3-signature/pkg/hashutil"
)

type signerOptions struct {
	now func() time.Time
}

// SignerOption represents a functional Signer option.
type SignerOption func(*signerOptions)

// WithClock overrides the clock used for issue time and expiry checks.
func WithClock(now func() time.Time) SignerOption {
	return func(o *signerOptions) {
		o.now = now
	}
}

// Signer issues and verifies tickets with the application secret key.
//
// Signer is safe for concurrent use.
type Signer struct {
	credentials *credentials.Credentials
	options     signerOptions
}

// NewSigner returns a new Signer.
func NewSigner(creds *credentials.Credentials, opt ...SignerOption) *Signer {
	options := signerOptions{
		now: time.Now,
	}

	for _, o := range opt {
		o(&options)
	}

	return &Signer{
		credentials: creds,
		options:     options,
	}
}

// Issue returns a ticket for identifier valid for expire starting now.
//
// A nil userbuf means no payload; the userbuf field is then absent from both
// the signed text and the ticket.
func (s *Signer) Issue(identifier string, expire time.Duration, userbuf []byte) (string, error) {
	snap := s.credentials.Snapshot()

	t := &Ticket{
		Version:    Version,
		Identifier: identifier,
		AppID:      snap.AppID,
		Expire:     int64(expire / time.Second),
		Time:       s.options.now().Unix(),
	}

	if userbuf != nil {
		encoded := base64.StdEncoding.EncodeToString(userbuf)
		t.UserBuf = &encoded
	}

	t.Sig = sign(snap.SecretKey, t)

	return t.Encode()
}

// Verify decodes the ticket and checks its application, signature and expiry.
func (s *Signer) Verify(value string) (*Ticket, error) {
	t, err := Decode(value)
	if err != nil {
		return nil, err
	}

	snap := s.credentials.Snapshot()

	if t.AppID != snap.AppID {
		return nil, fmt.Errorf("%w: app ID %d does not match %d", ErrInvalidSignature, t.AppID, snap.AppID)
	}

	if !hmac.Equal([]byte(sign(snap.SecretKey, t)), []byte(t.Sig)) {
		return nil, ErrInvalidSignature
	}

	if s.options.now().After(t.ExpiresAt()) {
		return nil, fmt.Errorf("%w: at %s", ErrExpired, t.ExpiresAt().UTC())
	}

	return t, nil
}

func sign(secretKey string, t *Ticket) string {
	return base64.StdEncoding.EncodeToString(hashutil.HMACSHA256([]byte(secretKey), []byte(t.SignedText())))
}
