// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tc3

import (
	"strconv"
	"time"
)

// SigningTime is the request timestamp together with its UTC date.
//
// The date goes into the credential scope and the timestamp into the string to sign
// and the X-TC-Timestamp header; both must describe the same instant.
type SigningTime struct {
	Date      string
	Timestamp int64
}

// NewSigningTime returns the SigningTime of t.
func NewSigningTime(t time.Time) SigningTime {
	t = t.UTC()

	return SigningTime{
		Timestamp: t.Unix(),
		Date:      t.Format(DateFormat),
	}
}

// SigningTimeFromParts builds a SigningTime from an explicit timestamp and date.
//
// No consistency check is done: a date not matching the timestamp produces a
// signature the remote verifier rejects.
func SigningTimeFromParts(timestamp int64, date string) SigningTime {
	return SigningTime{
		Timestamp: timestamp,
		Date:      date,
	}
}

// TimestampString returns the timestamp in decimal seconds.
func (st SigningTime) TimestampString() string {
	return strconv.FormatInt(st.Timestamp, 10)
}

// Consistent reports whether Date is the UTC date of Timestamp.
func (st SigningTime) Consistent() bool {
	return time.Unix(st.Timestamp, 0).UTC().Format(DateFormat) == st.Date
}
