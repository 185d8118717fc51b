// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tc3

import (
	"strings"

	"github.com/siderolabs/go-tc3-signature/pkg/hashutil"
)

// CanonicalHeaders are the headers covered by the signature.
//
// Only content-type and host participate, always in this order, which keeps the
// canonical header block and SignedHeaders in sync.
type CanonicalHeaders struct {
	ContentType string
	Host        string
}

// String returns the canonical header block: one lowercase "name:value\n" line per header.
func (h CanonicalHeaders) String() string {
	var sb strings.Builder

	sb.Grow(len("content-type:\nhost:\n") + len(h.ContentType) + len(h.Host))

	sb.WriteString("content-type:")
	sb.WriteString(h.ContentType)
	sb.WriteByte('\n')
	sb.WriteString("host:")
	sb.WriteString(h.Host)
	sb.WriteByte('\n')

	return sb.String()
}

// SignedHeaders returns the ";"-joined names of the canonical headers.
func (h CanonicalHeaders) SignedHeaders() string {
	return SignedHeaders
}

// CanonicalRequest is the normalized description of a request that gets hashed into the string to sign.
type CanonicalRequest struct {
	Headers     CanonicalHeaders
	PayloadHash string
}

// NewCanonicalRequest builds the canonical request for the given headers and raw payload.
//
// The payload is hashed as opaque bytes.
func NewCanonicalRequest(headers CanonicalHeaders, payload []byte) CanonicalRequest {
	return CanonicalRequest{
		Headers:     headers,
		PayloadHash: hashutil.SHA256Hex(payload),
	}
}

// String returns METHOD\nURI\nQUERY\nHEADERS\nSIGNED_HEADERS\nPAYLOAD_HASH.
func (c CanonicalRequest) String() string {
	return strings.Join([]string{
		CanonicalMethod,
		CanonicalURI,
		CanonicalQuery,
		c.Headers.String(),
		c.Headers.SignedHeaders(),
		c.PayloadHash,
	}, "\n")
}

// BuildCredentialScope returns date/service/tc3_request.
func BuildCredentialScope(date, service string) string {
	return strings.Join([]string{date, service, RequestTerminator}, "/")
}

// BuildStringToSign returns ALGORITHM\nTIMESTAMP\nSCOPE\nHEX(SHA256(CANONICAL_REQUEST)).
func BuildStringToSign(timestamp, credentialScope, canonicalRequest string) string {
	return strings.Join([]string{
		Algorithm,
		timestamp,
		credentialScope,
		hashutil.SHA256Hex([]byte(canonicalRequest)),
	}, "\n")
}

// BuildSignature computes the hex encoded HMAC of the string to sign with the derived key.
func BuildSignature(key []byte, stringToSign string) string {
	return hashutil.BytesToHex(hashutil.HMACSHA256(key, []byte(stringToSign)))
}

// BuildAuthorizationHeader formats the Authorization header value.
func BuildAuthorizationHeader(secretID, credentialScope, signedHeaders, signature string) string {
	const (
		credential   = "Credential="
		signedHdrs   = "SignedHeaders="
		signatureKey = "Signature="
		commaSpace   = ", "
	)

	var sb strings.Builder

	sb.Grow(len(Algorithm) + 1 +
		len(credential) + len(secretID) + 1 + len(credentialScope) + len(commaSpace) +
		len(signedHdrs) + len(signedHeaders) + len(commaSpace) +
		len(signatureKey) + len(signature))

	sb.WriteString(Algorithm)
	sb.WriteByte(' ')
	sb.WriteString(credential)
	sb.WriteString(secretID)
	sb.WriteByte('/')
	sb.WriteString(credentialScope)
	sb.WriteString(commaSpace)
	sb.WriteString(signedHdrs)
	sb.WriteString(signedHeaders)
	sb.WriteString(commaSpace)
	sb.WriteString(signatureKey)
	sb.WriteString(signature)

	return sb.String()
}
