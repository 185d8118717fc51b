// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package message

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/siderolabs/go-tc3-signature/pkg/tc3"
)

// MaxBodySize is the largest body NewHTTP accepts (DoS protection).
const MaxBodySize = 1024 * 1024

// Options describes the API call carried by an HTTP message.
type Options struct {
	// Time is the signing time, defaults to time.Now.
	Time time.Time

	Action  string
	Region  string
	Version string

	// Service defaults to the first label of the request host.
	Service string

	// ContentType defaults to DefaultContentType.
	ContentType string
}

// HTTP represents an HTTP API request.
type HTTP struct {
	request *http.Request
	now     func() time.Time
	body    []byte
}

// HTTPOption configures an HTTP message.
type HTTPOption func(*HTTP)

// WithClock sets the clock used for signing and timestamp skew checks.
func WithClock(now func() time.Time) HTTPOption {
	return func(m *HTTP) {
		m.now = now
	}
}

// NewHTTP returns a new HTTP message.
func NewHTTP(r *http.Request, opts ...HTTPOption) (*HTTP, error) {
	var (
		bodyBytes []byte
		err       error
	)

	if r.Body != nil {
		bodyBytes, err = io.ReadAll(io.LimitReader(r.Body, MaxBodySize+1))
		if err != nil {
			return nil, err
		}

		if len(bodyBytes) > MaxBodySize {
			r.Body.Close() //nolint:errcheck

			return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, MaxBodySize)
		}

		if err = r.Body.Close(); err != nil {
			return nil, err
		}

		// re-set the body so it can be read in further handlers
		r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	}

	m := &HTTP{
		request: r,
		body:    bodyBytes,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Body returns the buffered request body.
func (m *HTTP) Body() []byte {
	return m.body
}

func (m *HTTP) host() string {
	if m.request.Host != "" {
		return m.request.Host
	}

	return m.request.URL.Host
}

func (m *HTTP) timestamp() (*time.Time, error) {
	return parseTimestamp(m.request.Header.Get(TimestampHeaderKey))
}

// Authorization returns the parsed Authorization header of the message.
func (m *HTTP) Authorization() (*tc3.Authorization, error) {
	value := m.request.Header.Get(AuthorizationHeaderKey)
	if value == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, AuthorizationHeaderKey)
	}

	return tc3.ParseAuthorization(value)
}

// Sign signs the message with the given signer and sets all API headers.
//
// The body must not be changed after signing.
func (m *HTTP) Sign(signer RequestSigner, opts Options) error {
	if m.request.Method != tc3.CanonicalMethod {
		return fmt.Errorf("unsupported method %q", m.request.Method)
	}

	host := m.host()
	if host == "" {
		return fmt.Errorf("%w: %s", ErrNotFound, HostHeaderKey)
	}

	if opts.Time.IsZero() {
		opts.Time = m.now()
	}

	if opts.ContentType == "" {
		opts.ContentType = DefaultContentType
	}

	if opts.Service == "" {
		opts.Service, _, _ = strings.Cut(host, ".")
	}

	req := tc3.Request{
		Host:        host,
		Region:      opts.Region,
		Action:      opts.Action,
		Service:     opts.Service,
		ContentType: opts.ContentType,
		Payload:     m.body,
		Time:        tc3.NewSigningTime(opts.Time),
	}

	m.request.Host = host

	header := m.request.Header
	header.Set(ContentTypeHeaderKey, req.ContentType)
	header.Set(HostHeaderKey, host)
	header.Set(ActionHeaderKey, req.Action)
	header.Set(TimestampHeaderKey, req.Time.TimestampString())
	header.Set(VersionHeaderKey, opts.Version)

	if req.Region != "" {
		header.Set(RegionHeaderKey, req.Region)
	} else {
		header.Del(RegionHeaderKey)
	}

	header.Set(AuthorizationHeaderKey, signer.Sign(req))

	return nil
}

// VerifySignature verifies the signature of the message.
// It includes the verifications for the timestamp, the signed headers and the body.
func (m *HTTP) VerifySignature(resolver SecretResolver) error {
	timestamp, err := m.timestamp()
	if err != nil {
		return err
	}

	err = verifyTimestamp(timestamp, m.now())
	if err != nil {
		return err
	}

	if m.request.Method != tc3.CanonicalMethod {
		return fmt.Errorf("unsupported method %q", m.request.Method)
	}

	if uri := m.requestURI(); uri != tc3.CanonicalURI {
		return fmt.Errorf("unsupported request URI %q", uri)
	}

	auth, err := m.Authorization()
	if err != nil {
		return err
	}

	verifier, err := resolver.Verifier(auth.SecretID)
	if err != nil {
		return err
	}

	req := tc3.Request{
		Host:        m.host(),
		Region:      m.request.Header.Get(RegionHeaderKey),
		Action:      m.request.Header.Get(ActionHeaderKey),
		Service:     auth.Service,
		ContentType: m.request.Header.Get(ContentTypeHeaderKey),
		Payload:     m.body,
		Time:        tc3.NewSigningTime(*timestamp),
	}

	return verifier.Verify(req, m.request.Header.Get(AuthorizationHeaderKey))
}

func (m *HTTP) requestURI() string {
	requestURI := m.request.RequestURI
	if requestURI == "" {
		// client request
		requestURI = m.request.URL.RequestURI()
	}

	return requestURI
}

// SigningTime returns the signing time from the timestamp header.
func (m *HTTP) SigningTime() (tc3.SigningTime, error) {
	timestamp, err := m.timestamp()
	if err != nil {
		return tc3.SigningTime{}, err
	}

	return tc3.NewSigningTime(*timestamp), nil
}
