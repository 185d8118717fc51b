// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package message

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// HTTP headers set by HTTP.Sign.
const (
	// AuthorizationHeaderKey is the header carrying the TC3 Authorization value.
	AuthorizationHeaderKey = "Authorization"

	// ContentTypeHeaderKey is the signed content type header.
	ContentTypeHeaderKey = "Content-Type"

	// HostHeaderKey is the signed host header.
	HostHeaderKey = "Host"

	// ActionHeaderKey names the API action.
	ActionHeaderKey = "X-TC-Action"

	// TimestampHeaderKey carries the signing timestamp in epoch seconds.
	TimestampHeaderKey = "X-TC-Timestamp"

	// VersionHeaderKey is the API version.
	VersionHeaderKey = "X-TC-Version"

	// RegionHeaderKey is the target region.
	RegionHeaderKey = "X-TC-Region"

	timestampAllowedSkew = 5 * time.Minute
)

// gRPC metadata keys set by GRPC.Sign.
const (
	// IdentifierHeaderKey is the metadata key for the user identifier.
	IdentifierHeaderKey = "x-tc-identifier"

	// UserSigHeaderKey is the metadata key for the user ticket.
	UserSigHeaderKey = "x-tc-usersig"
)

// DefaultContentType is used when Options.ContentType is empty.
const DefaultContentType = "application/json"

var (
	// ErrNotFound is returned when a header or metadata key is not found.
	ErrNotFound = errors.New("not found")

	// ErrBodyTooLarge is returned when the request body exceeds MaxBodySize.
	ErrBodyTooLarge = errors.New("request body too large")

	// ErrIdentifierMismatch is returned when the ticket was issued for another identifier.
	ErrIdentifierMismatch = errors.New("identifier mismatch")
)

func parseTimestamp(value string) (*time.Time, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, TimestampHeaderKey)
	}

	timestampInt, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, err
	}

	timestamp := time.Unix(timestampInt, 0)

	return &timestamp, nil
}

func verifyTimestamp(timestamp *time.Time, now time.Time) error {
	if now.Add(timestampAllowedSkew).Before(*timestamp) ||
		now.Add(-timestampAllowedSkew).After(*timestamp) {
		return fmt.Errorf("timestamp is outside of allowed skew: %s", timestamp)
	}

	return nil
}
