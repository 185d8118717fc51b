// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package message

import (
	"fmt"
	"time"

	"google.golang.org/grpc/metadata"

	"github.com/siderolabs/go-tc3-signature/pkg/ticket"
)

// GRPC represents a gRPC message.
type GRPC struct {
	Metadata metadata.MD
	Method   string
}

// NewGRPC creates a new GRPC from the given metadata and method.
func NewGRPC(md metadata.MD, method string) *GRPC {
	return &GRPC{
		Metadata: md,
		Method:   method,
	}
}

// Identifier returns the user identifier on the message.
func (m *GRPC) Identifier() (string, error) {
	value := m.firstHeader(IdentifierHeaderKey)
	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, IdentifierHeaderKey)
	}

	return value, nil
}

// Ticket returns the encoded user ticket on the message.
func (m *GRPC) Ticket() (string, error) {
	value := m.firstHeader(UserSigHeaderKey)
	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, UserSigHeaderKey)
	}

	return value, nil
}

// Sign issues a ticket for identifier and attaches it to the metadata.
func (m *GRPC) Sign(identifier string, expire time.Duration, issuer TicketIssuer) error {
	value, err := issuer.Issue(identifier, expire, nil)
	if err != nil {
		return err
	}

	m.SetTicket(identifier, value)

	return nil
}

// SetTicket attaches a previously issued ticket, replacing any present one.
func (m *GRPC) SetTicket(identifier, value string) {
	m.Metadata.Set(IdentifierHeaderKey, identifier)
	m.Metadata.Set(UserSigHeaderKey, value)
}

// VerifyTicket verifies the ticket on the message and returns it.
//
// The ticket must have been issued for the identifier carried alongside it.
func (m *GRPC) VerifyTicket(verifier TicketVerifier) (*ticket.Ticket, error) {
	identifier, err := m.Identifier()
	if err != nil {
		return nil, err
	}

	value, err := m.Ticket()
	if err != nil {
		return nil, err
	}

	t, err := verifier.Verify(value)
	if err != nil {
		return nil, err
	}

	if t.Identifier != identifier {
		return nil, fmt.Errorf("%w: %q != %q", ErrIdentifierMismatch, t.Identifier, identifier)
	}

	return t, nil
}

func (m *GRPC) firstHeader(name string) string {
	values := m.Metadata.Get(name)
	if len(values) == 0 {
		return ""
	}

	return values[0]
}
