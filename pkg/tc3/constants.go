// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tc3

const (
	// Algorithm is the TC3 signing algorithm identifier.
	Algorithm = "TC3-HMAC-SHA256"

	// RequestTerminator closes the credential scope and is the last key derivation input.
	RequestTerminator = "tc3_request"

	// SecretPrefix is prepended to the secret key to form the first derivation key.
	SecretPrefix = "TC3"

	// SignedHeaders lists the headers covered by the signature, in canonical order.
	SignedHeaders = "content-type;host"

	// CanonicalMethod is the only HTTP method signed by this package.
	CanonicalMethod = "POST"

	// CanonicalURI is the fixed request path of the API.
	CanonicalURI = "/"

	// CanonicalQuery is the fixed (empty) query string of POST requests.
	CanonicalQuery = ""

	// DateFormat is the layout of the credential scope date.
	DateFormat = "2006-01-02"
)
