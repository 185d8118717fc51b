// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package message

import (
	"time"

	"github.com/siderolabs/go-tc3-signature/pkg/tc3"
	"github.com/siderolabs/go-tc3-signature/pkg/ticket"
)

// RequestSigner computes the Authorization header of an HTTP request, e.g. *tc3.Signer.
type RequestSigner interface {
	Sign(req tc3.Request) string
}

// RequestVerifier verifies the Authorization header of an HTTP request, e.g. *tc3.Signer.
type RequestVerifier interface {
	Verify(req tc3.Request, authorization string) error
}

// SecretResolver looks up the verifier for a secret ID.
type SecretResolver interface {
	Verifier(secretID string) (RequestVerifier, error)
}

// SecretResolverFunc is a function adapter for SecretResolver.
type SecretResolverFunc func(secretID string) (RequestVerifier, error)

// Verifier implements SecretResolver.
func (f SecretResolverFunc) Verifier(secretID string) (RequestVerifier, error) {
	return f(secretID)
}

// TicketIssuer issues user tickets, e.g. *ticket.Signer.
type TicketIssuer interface {
	Issue(identifier string, expire time.Duration, userbuf []byte) (string, error)
}

// TicketVerifier verifies user tickets, e.g. *ticket.Signer.
type TicketVerifier interface {
	Verify(value string) (*ticket.Ticket, error)
}
