// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package ticket issues and verifies compressed, HMAC-signed user login tickets.
package ticket

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Version is the ticket format version.
const Version = "2.0"

// Field names of the ticket, shared by the signed text and the serialized form.
const (
	FieldVersion    = "TLS.ver"
	FieldIdentifier = "TLS.identifier"
	FieldAppID      = "TLS.app_id"
	FieldExpire     = "TLS.expire"
	FieldTime       = "TLS.time"
	FieldUserBuf    = "TLS.userbuf"
	FieldSig        = "TLS.sig"
)

// DoS protection for Decode.
const maxDecodedSize = 64 * 1024

var (
	// ErrMalformed is returned when a ticket can't be decoded.
	ErrMalformed = errors.New("malformed ticket")

	// ErrInvalidSignature is returned when the ticket signature doesn't verify.
	ErrInvalidSignature = errors.New("invalid ticket signature")

	// ErrExpired is returned when the ticket is past its expiry.
	ErrExpired = errors.New("ticket expired")
)

// encoding is base64 with the URL-safe ticket alphabet: '+' -> '*', '/' -> '-', '=' -> '_'.
var encoding = base64.NewEncoding("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789*-").WithPadding('_')

// Ticket is the decoded content of a ticket.
type Ticket struct {
	// UserBuf is the base64 encoded opaque payload, nil when no payload was given.
	UserBuf *string `json:"TLS.userbuf,omitempty"`

	Version    string `json:"TLS.ver"`
	Identifier string `json:"TLS.identifier"`
	Sig        string `json:"TLS.sig"`
	AppID      uint64 `json:"TLS.app_id"`
	Expire     int64  `json:"TLS.expire"`
	Time       int64  `json:"TLS.time"`
}

// IssuedAt returns the issue time.
func (t *Ticket) IssuedAt() time.Time {
	return time.Unix(t.Time, 0)
}

// ExpiresAt returns the expiry time.
func (t *Ticket) ExpiresAt() time.Time {
	return time.Unix(t.Time+t.Expire, 0)
}

// Payload returns the decoded opaque payload and whether one was present.
func (t *Ticket) Payload() ([]byte, bool, error) {
	if t.UserBuf == nil {
		return nil, false, nil
	}

	b, err := base64.StdEncoding.DecodeString(*t.UserBuf)
	if err != nil {
		return nil, true, fmt.Errorf("%w: userbuf: %w", ErrMalformed, err)
	}

	return b, true, nil
}

// SignedText returns the text covered by the ticket signature.
//
// The userbuf line is only present when the ticket carries a payload.
func (t *Ticket) SignedText() string {
	var sb strings.Builder

	writeLine := func(field, value string) {
		sb.WriteString(field)
		sb.WriteByte(':')
		sb.WriteString(value)
		sb.WriteByte('\n')
	}

	writeLine(FieldIdentifier, t.Identifier)
	writeLine(FieldAppID, strconv.FormatUint(t.AppID, 10))
	writeLine(FieldTime, strconv.FormatInt(t.Time, 10))
	writeLine(FieldExpire, strconv.FormatInt(t.Expire, 10))

	if t.UserBuf != nil {
		writeLine(FieldUserBuf, *t.UserBuf)
	}

	return sb.String()
}

// fields returns the serialized field map; userbuf only appears when present in the signed text.
func (t *Ticket) fields() map[string]any {
	m := map[string]any{
		FieldVersion:    t.Version,
		FieldIdentifier: t.Identifier,
		FieldAppID:      t.AppID,
		FieldExpire:     t.Expire,
		FieldTime:       t.Time,
		FieldSig:        t.Sig,
	}

	if t.UserBuf != nil {
		m[FieldUserBuf] = *t.UserBuf
	}

	return m
}

// Encode serializes, compresses and encodes the ticket.
func (t *Ticket) Encode() (string, error) {
	// map keys are emitted sorted, which makes the JSON canonical
	serialized, err := json.Marshal(t.fields())
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer

	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return "", err
	}

	if _, err = w.Write(serialized); err != nil {
		return "", err
	}

	if err = w.Close(); err != nil {
		return "", err
	}

	return encoding.EncodeToString(buf.Bytes()), nil
}

// Decode reverses Encode. The signature is not checked.
func Decode(value string) (*Ticket, error) {
	compressed, err := encoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	defer r.Close() //nolint:errcheck

	serialized, err := io.ReadAll(io.LimitReader(r, maxDecodedSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	var t Ticket

	if err = json.Unmarshal(serialized, &t); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if t.Identifier == "" || t.Sig == "" {
		return nil, fmt.Errorf("%w: missing identifier or signature", ErrMalformed)
	}

	return &t, nil
}
