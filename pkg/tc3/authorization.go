// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tc3

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAuthorization is returned when an Authorization header can't be parsed.
var ErrInvalidAuthorization = errors.New("invalid authorization header")

// Authorization is a parsed TC3 Authorization header.
type Authorization struct {
	SecretID      string
	Date          string
	Service       string
	SignedHeaders string
	Signature     string
}

// CredentialScope returns the credential scope of the header.
func (a *Authorization) CredentialScope() string {
	return BuildCredentialScope(a.Date, a.Service)
}

// ParseAuthorization parses a header produced by BuildAuthorizationHeader.
func ParseAuthorization(value string) (*Authorization, error) {
	rest, ok := strings.CutPrefix(value, Algorithm+" ")
	if !ok {
		return nil, fmt.Errorf("%w: unsupported algorithm", ErrInvalidAuthorization)
	}

	fields := map[string]string{}

	for _, part := range strings.Split(rest, ", ") {
		k, v, found := strings.Cut(part, "=")
		if !found {
			return nil, fmt.Errorf("%w: malformed field %q", ErrInvalidAuthorization, part)
		}

		fields[k] = v
	}

	credential, signedHeaders, signature := fields["Credential"], fields["SignedHeaders"], fields["Signature"]
	if credential == "" || signedHeaders == "" || signature == "" {
		return nil, fmt.Errorf("%w: missing field", ErrInvalidAuthorization)
	}

	// secret ID / date / service / tc3_request
	parts := strings.Split(credential, "/")
	if len(parts) < 4 || parts[len(parts)-1] != RequestTerminator {
		return nil, fmt.Errorf("%w: malformed credential %q", ErrInvalidAuthorization, credential)
	}

	n := len(parts)

	return &Authorization{
		SecretID:      strings.Join(parts[:n-3], "/"),
		Date:          parts[n-3],
		Service:       parts[n-2],
		SignedHeaders: signedHeaders,
		Signature:     signature,
	}, nil
}

func (a *Authorization) match(req *Request) error {
	if a.SignedHeaders != SignedHeaders {
		return fmt.Errorf("unexpected signed headers %q", a.SignedHeaders)
	}

	if a.Date != req.Time.Date {
		return fmt.Errorf("credential date %q does not match request date %q", a.Date, req.Time.Date)
	}

	if a.Service != req.Service {
		return fmt.Errorf("credential service %q does not match request service %q", a.Service, req.Service)
	}

	return nil
}
