// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package tc3 implements the TC3-HMAC-SHA256 request signature.
package tc3

import (
	"crypto/hmac"
	"errors"
	"fmt"

	"github.com/siderolabs/go-tc3-signature/pkg/credentials"
)

// ErrSignatureMismatch is returned when a recomputed signature differs from the presented one.
var ErrSignatureMismatch = errors.New("signature mismatch")

// Request describes a single API call to be signed.
//
// Region and Action travel as separate headers and are not part of the signed text.
type Request struct {
	Host        string
	Region      string
	Action      string
	Service     string
	ContentType string
	Payload     []byte
	Time        SigningTime
}

// CanonicalHeaders returns the signed headers of the request.
func (r *Request) CanonicalHeaders() CanonicalHeaders {
	return CanonicalHeaders{
		ContentType: r.ContentType,
		Host:        r.Host,
	}
}

// CanonicalRequest returns the canonical request of r.
func (r *Request) CanonicalRequest() CanonicalRequest {
	return NewCanonicalRequest(r.CanonicalHeaders(), r.Payload)
}

// CredentialScope returns the credential scope of r.
func (r *Request) CredentialScope() string {
	return BuildCredentialScope(r.Time.Date, r.Service)
}

// StringToSign returns the string to sign of r.
func (r *Request) StringToSign() string {
	return BuildStringToSign(r.Time.TimestampString(), r.CredentialScope(), r.CanonicalRequest().String())
}

// Signer computes TC3 Authorization headers.
//
// Signer is safe for concurrent use; the secret key is read once per call, so a
// concurrent rotation never mixes old and new key material in one signature.
type Signer struct {
	credentials *credentials.Credentials
	keys        *derivedKeyCache
}

// NewSigner returns a new Signer for the given credentials.
func NewSigner(creds *credentials.Credentials) *Signer {
	return &Signer{
		credentials: creds,
		keys:        newDerivedKeyCache(),
	}
}

// Credentials returns the credentials used by the signer.
func (s *Signer) Credentials() *credentials.Credentials {
	return s.credentials
}

// Sign returns the Authorization header value for req.
//
// The payload must be sent exactly as passed in: re-encoding it after signing invalidates the signature.
func (s *Signer) Sign(req Request) string {
	snap := s.credentials.Snapshot()

	return BuildAuthorizationHeader(snap.SecretID, req.CredentialScope(), SignedHeaders, s.signature(&req, snap))
}

// Verify checks that authorization was produced for req by the signer's credentials.
func (s *Signer) Verify(req Request, authorization string) error {
	auth, err := ParseAuthorization(authorization)
	if err != nil {
		return err
	}

	snap := s.credentials.Snapshot()

	if auth.SecretID != snap.SecretID {
		return fmt.Errorf("unknown secret ID %q", auth.SecretID)
	}

	if err = auth.match(&req); err != nil {
		return err
	}

	expected := s.signature(&req, snap)

	if !hmac.Equal([]byte(expected), []byte(auth.Signature)) {
		return ErrSignatureMismatch
	}

	return nil
}

func (s *Signer) signature(req *Request, snap credentials.Snapshot) string {
	key := s.keys.get(snap.SecretKey, snap.Generation, req.Time.Date, req.Service)

	return BuildSignature(key, req.StringToSign())
}

// Sign computes the Authorization header for req with a static secret, without caching.
func Sign(secretID, secretKey string, req Request) string {
	key := DeriveKey(secretKey, req.Time.Date, req.Service)

	return BuildAuthorizationHeader(secretID, req.CredentialScope(), SignedHeaders, BuildSignature(key, req.StringToSign()))
}
