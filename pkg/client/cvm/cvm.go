// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package cvm provides a minimal signed JSON API client for the CVM endpoint.
package cvm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/siderolabs/go-tc3-signature/pkg/log"
	"github.com/siderolabs/go-tc3-signature/pkg/message"
	"github.com/siderolabs/go-tc3-signature/pkg/response"
)

// Endpoint defaults.
const (
	DefaultScheme      = "https"
	DefaultHost        = "cvm.tencentcloudapi.com"
	DefaultService     = "cvm"
	DefaultVersion     = "2017-03-12"
	DefaultContentType = message.DefaultContentType
)

// DoS Protection.
const maxResponseSize = 16 * 1024 * 1024

// Config configures a Client.
type Config struct {
	// Signer computes the Authorization header, e.g. *tc3.Signer.
	Signer message.RequestSigner

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Clock defaults to time.Now.
	Clock func() time.Time

	Scheme      string
	Host        string
	Service     string
	Version     string
	ContentType string
}

func (c *Config) setDefaults() {
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}

	if c.Clock == nil {
		c.Clock = time.Now
	}

	if c.Scheme == "" {
		c.Scheme = DefaultScheme
	}

	if c.Host == "" {
		c.Host = DefaultHost
	}

	if c.Service == "" {
		c.Service = DefaultService
	}

	if c.Version == "" {
		c.Version = DefaultVersion
	}

	if c.ContentType == "" {
		c.ContentType = DefaultContentType
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var err error

	if c.Signer == nil {
		err = multierror.Append(err, errors.New("signer is required"))
	}

	if c.Scheme != "http" && c.Scheme != "https" {
		err = multierror.Append(err, fmt.Errorf("unsupported scheme %q", c.Scheme))
	}

	if strings.ContainsAny(c.Host, "/ ") {
		err = multierror.Append(err, fmt.Errorf("invalid host %q", c.Host))
	}

	return err
}

// Client performs signed API calls.
//
// Calls are never retried.
type Client struct {
	config Config
}

// New returns a new Client, applying defaults to the unset fields of config.
func New(config Config) (*Client, error) {
	config.setDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config: config,
	}, nil
}

// Endpoint returns the URL requests are sent to.
func (c *Client) Endpoint() string {
	return c.config.Scheme + "://" + c.config.Host + "/"
}

// Call invokes action in region with a JSON payload and returns the Response object of a successful call.
//
// API failures are returned as *response.APIError, malformed responses as *response.ProtocolError.
func (c *Client) Call(ctx context.Context, action, region string, payload []byte) (json.RawMessage, error) {
	logger := log.GetLogger(ctx)
	traceID := uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	msg, err := message.NewHTTP(req, message.WithClock(c.config.Clock))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}

	if err = msg.Sign(c.config.Signer, message.Options{
		Action:      action,
		Region:      region,
		Version:     c.config.Version,
		Service:     c.config.Service,
		ContentType: c.config.ContentType,
	}); err != nil {
		return nil, fmt.Errorf("failed to sign %s: %w", action, err)
	}

	logger.Debugf("[%s] %s", traceID, CurlCommand(req, msg.Body()))

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}

	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", action, err)
	}

	logger.Debugf("[%s] HTTP %d, %d bytes", traceID, resp.StatusCode, len(body))

	result := response.Classify(body)

	switch result.Kind {
	case response.KindSuccess:
		return result.Payload, nil
	case response.KindApplicationError:
		logger.Warnf("[%s] %s failed: %s: %s (request id %s)", traceID, action, result.Code, result.Message, result.RequestID)

		return nil, fmt.Errorf("%s: %w", action, result.Err())
	default:
		logger.Errorf("[%s] %s: unparsable response with HTTP status %d", traceID, action, resp.StatusCode)

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("%s: unexpected HTTP status %d: %w", action, resp.StatusCode, result.Err())
		}

		return nil, fmt.Errorf("%s: %w", action, result.Err())
	}
}

// CallJSON marshals in, calls action and unmarshals the Response object into out.
func (c *Client) CallJSON(ctx context.Context, action, region string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}

	raw, err := c.Call(ctx, action, region, payload)
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}

	return json.Unmarshal(raw, out)
}

// CurlCommand renders a signed request as an equivalent curl command line.
func CurlCommand(req *http.Request, payload []byte) string {
	var sb strings.Builder

	host := req.Host
	if host == "" {
		host = req.URL.Host
	}

	fmt.Fprintf(&sb, "curl -X %s %s://%s", req.Method, req.URL.Scheme, host)

	for _, key := range []string{
		message.AuthorizationHeaderKey,
		message.ContentTypeHeaderKey,
		message.HostHeaderKey,
		message.ActionHeaderKey,
		message.TimestampHeaderKey,
		message.VersionHeaderKey,
		message.RegionHeaderKey,
	} {
		if value := req.Header.Get(key); value != "" {
			fmt.Fprintf(&sb, " -H \"%s: %s\"", key, value)
		}
	}

	fmt.Fprintf(&sb, " -d '%s'", payload)

	return sb.String()
}
