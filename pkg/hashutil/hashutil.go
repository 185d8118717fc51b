// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package hashutil contains the hashing primitives shared by the request and ticket signers.
package hashutil

import (
	"crypto/hmac"
	"crypto/sha256"

	"github.com/opencontainers/go-digest"
)

const hexDigits = "0123456789abcdef"

// SHA256Hex returns the lowercase hex encoded SHA-256 digest of b.
func SHA256Hex(b []byte) string {
	return digest.SHA256.FromBytes(b).Encoded()
}

// HMACSHA256 computes HMAC-SHA256 of msg with the given key.
//
// The output is always 32 bytes long; an empty key is valid.
func HMACSHA256(key, msg []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(msg) //nolint:errcheck

	return h.Sum(nil)
}

// BytesToHex encodes b as two lowercase hex digits per byte, without delimiters.
func BytesToHex(b []byte) string {
	out := make([]byte, len(b)*2)

	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0x0f]
	}

	return string(out)
}
