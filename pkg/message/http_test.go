// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package message_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/go-tc3-signature/pkg/credentials"
	"github.com/siderolabs/go-tc3-signature/pkg/message"
	"github.com/siderolabs/go-tc3-signature/pkg/tc3"
)

const (
	testEndpoint = "https://cvm.tencentcloudapi.com/"
	testBody     = `{"Limit": 1, "Filters": [{"Values": ["COAM-1"], "Name": "instance-name"}]}`
)

func newSigner() *tc3.Signer {
	return tc3.NewSigner(credentials.New("AKIDEXAMPLE", "SECRETEXAMPLE", 1400000000))
}

func newRequest(t *testing.T, body string) *http.Request {
	t.Helper()

	req, err := http.NewRequestWithContext(context.TODO(), http.MethodPost, testEndpoint, bytes.NewReader([]byte(body)))
	require.NoError(t, err)

	return req
}

func TestHTTPKnownVector(t *testing.T) {
	clock := message.WithClock(func() time.Time {
		return time.Unix(1573009278, 0)
	})

	req := newRequest(t, testBody)

	m, err := message.NewHTTP(req, clock)
	require.NoError(t, err)

	signer := newSigner()

	require.NoError(t, m.Sign(signer, message.Options{
		Action:  "DescribeInstances",
		Region:  "ap-guangzhou",
		Version: "2017-03-12",
	}))

	assert.Equal(t,
		"TC3-HMAC-SHA256 Credential=AKIDEXAMPLE/2019-11-06/cvm/tc3_request, "+
			"SignedHeaders=content-type;host, "+
			"Signature=c00045a43ac7e615478cef5de4903e92205976e127d56394c3925e77f8a262b8",
		req.Header.Get(message.AuthorizationHeaderKey),
	)

	assert.Equal(t, "application/json", req.Header.Get(message.ContentTypeHeaderKey))
	assert.Equal(t, "cvm.tencentcloudapi.com", req.Header.Get(message.HostHeaderKey))
	assert.Equal(t, "DescribeInstances", req.Header.Get(message.ActionHeaderKey))
	assert.Equal(t, "1573009278", req.Header.Get(message.TimestampHeaderKey))
	assert.Equal(t, "2017-03-12", req.Header.Get(message.VersionHeaderKey))
	assert.Equal(t, "ap-guangzhou", req.Header.Get(message.RegionHeaderKey))

	st, err := m.SigningTime()
	require.NoError(t, err)
	assert.Equal(t, tc3.SigningTimeFromParts(1573009278, "2019-11-06"), st)

	// the body is still readable after signing
	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, testBody, string(body))

	req.Body = io.NopCloser(bytes.NewReader(body))

	verified, err := message.NewHTTP(req, clock)
	require.NoError(t, err)

	assert.NoError(t, verified.VerifySignature(singleSecretResolver(signer)))
}

func TestHTTP(t *testing.T) {
	signer := newSigner()
	req := newRequest(t, testBody)

	m, err := message.NewHTTP(req)
	require.NoError(t, err)

	require.NoError(t, m.Sign(signer, message.Options{
		Action:  "DescribeInstances",
		Region:  "ap-guangzhou",
		Version: "2017-03-12",
	}))

	auth, err := m.Authorization()
	require.NoError(t, err)

	assert.Equal(t, "AKIDEXAMPLE", auth.SecretID)
	assert.Equal(t, "cvm", auth.Service)

	assert.NoError(t, m.VerifySignature(singleSecretResolver(signer)))

	for _, tt := range []struct {
		mutator       func(*testing.T, *http.Request)
		name          string
		body          string
		expectFailure bool
	}{
		{
			name:          "no changes",
			mutator:       func(*testing.T, *http.Request) {},
			expectFailure: false,
		},
		{
			name: "region is not signed",
			mutator: func(_ *testing.T, req *http.Request) {
				req.Header.Set(message.RegionHeaderKey, "ap-shanghai")
			},
			expectFailure: false,
		},
		{
			name: "not important header",
			mutator: func(_ *testing.T, req *http.Request) {
				req.Header.Set("X-Foo", "bar")
			},
			expectFailure: false,
		},
		{
			name: "method",
			mutator: func(_ *testing.T, req *http.Request) {
				req.Method = http.MethodGet
			},
			expectFailure: true,
		},
		{
			name: "host",
			mutator: func(_ *testing.T, req *http.Request) {
				req.Host = "cvm.ap-shanghai.tencentcloudapi.com"
			},
			expectFailure: true,
		},
		{
			name: "content type",
			mutator: func(_ *testing.T, req *http.Request) {
				req.Header.Set(message.ContentTypeHeaderKey, "application/json; charset=utf-8")
			},
			expectFailure: true,
		},
		{
			name:          "mutate body",
			mutator:       func(*testing.T, *http.Request) {},
			body:          `{"Limit": 2}`,
			expectFailure: true,
		},
		{
			name: "mutate path",
			mutator: func(_ *testing.T, req *http.Request) {
				req.URL.Path = "/other"
			},
			expectFailure: true,
		},
		{
			name: "corrupt signature",
			mutator: func(_ *testing.T, req *http.Request) {
				auth := req.Header.Get(message.AuthorizationHeaderKey)
				req.Header.Set(message.AuthorizationHeaderKey, auth+"0")
			},
			expectFailure: true,
		},
		{
			name: "mutate timestamp by a second",
			mutator: func(t *testing.T, req *http.Request) {
				ts, err := strconv.ParseInt(req.Header.Get(message.TimestampHeaderKey), 10, 64)
				require.NoError(t, err)

				req.Header.Set(message.TimestampHeaderKey, strconv.FormatInt(ts+1, 10))
			},
			expectFailure: true,
		},
		{
			name: "mutate timestamp --",
			mutator: func(_ *testing.T, req *http.Request) {
				req.Header.Set(message.TimestampHeaderKey, strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10))
			},
			expectFailure: true,
		},
		{
			name: "mutate timestamp ++",
			mutator: func(_ *testing.T, req *http.Request) {
				req.Header.Set(message.TimestampHeaderKey, strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
			},
			expectFailure: true,
		},
		{
			name: "drop authorization",
			mutator: func(_ *testing.T, req *http.Request) {
				req.Header.Del(message.AuthorizationHeaderKey)
			},
			expectFailure: true,
		},
		{
			name: "drop timestamp",
			mutator: func(_ *testing.T, req *http.Request) {
				req.Header.Del(message.TimestampHeaderKey)
			},
			expectFailure: true,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			body := testBody
			if tt.body != "" {
				body = tt.body
			}

			reqCopy := req.Clone(context.TODO())
			reqCopy.Body = io.NopCloser(bytes.NewReader([]byte(body)))

			tt.mutator(t, reqCopy)

			mCopy, err := message.NewHTTP(reqCopy)
			require.NoError(t, err)

			if tt.expectFailure {
				assert.Error(t, mCopy.VerifySignature(singleSecretResolver(signer)))
			} else {
				assert.NoError(t, mCopy.VerifySignature(singleSecretResolver(signer)))
			}
		})
	}
}

func TestHTTPVerifyUnknownSecretID(t *testing.T) {
	req := newRequest(t, testBody)

	m, err := message.NewHTTP(req)
	require.NoError(t, err)

	require.NoError(t, m.Sign(tc3.NewSigner(credentials.New("AKIDOTHER", "SECRETEXAMPLE", 0)), message.Options{Action: "DescribeInstances"}))

	require.ErrorIs(t, m.VerifySignature(singleSecretResolver(newSigner())), errUnknownSecretID)
}

func TestHTTPVerifyRotatedKey(t *testing.T) {
	signer := newSigner()
	req := newRequest(t, testBody)

	m, err := message.NewHTTP(req)
	require.NoError(t, err)

	require.NoError(t, m.Sign(signer, message.Options{Action: "DescribeInstances"}))

	signer.Credentials().RotateSecretKey("ROTATED")

	require.ErrorIs(t, m.VerifySignature(singleSecretResolver(signer)), tc3.ErrSignatureMismatch)
}

func TestHTTPMessageErrors(t *testing.T) {
	t.Parallel()

	t.Run("no authorization", func(t *testing.T) {
		t.Parallel()

		m, err := message.NewHTTP(newRequest(t, testBody))
		require.NoError(t, err)

		_, err = m.Authorization()
		require.ErrorIs(t, err, message.ErrNotFound)
	})

	t.Run("no timestamp", func(t *testing.T) {
		t.Parallel()

		m, err := message.NewHTTP(newRequest(t, testBody))
		require.NoError(t, err)

		require.ErrorIs(t, m.VerifySignature(singleSecretResolver(newSigner())), message.ErrNotFound)
	})

	t.Run("get is not signed", func(t *testing.T) {
		t.Parallel()

		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, testEndpoint, nil)
		require.NoError(t, err)

		m, err := message.NewHTTP(req)
		require.NoError(t, err)

		require.Error(t, m.Sign(newSigner(), message.Options{}))
	})

	t.Run("explicit service", func(t *testing.T) {
		t.Parallel()

		req := newRequest(t, testBody)

		m, err := message.NewHTTP(req)
		require.NoError(t, err)

		require.NoError(t, m.Sign(newSigner(), message.Options{Service: "tag"}))

		auth, err := m.Authorization()
		require.NoError(t, err)

		assert.Equal(t, "tag", auth.Service)
		assert.Empty(t, req.Header.Get(message.RegionHeaderKey))
	})
}

func TestHTTPBodyTooLarge(t *testing.T) {
	for _, tt := range []struct {
		name          string
		size          int
		expectFailure bool
	}{
		{
			name: "at limit",
			size: message.MaxBodySize,
		},
		{
			name:          "over limit",
			size:          message.MaxBodySize + 10,
			expectFailure: true,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			body := bytes.Repeat([]byte("a"), tt.size)

			// no ContentLength, the body is read as a stream
			req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, testEndpoint, io.NopCloser(bytes.NewReader(body)))
			require.NoError(t, err)

			m, err := message.NewHTTP(req)
			if tt.expectFailure {
				require.ErrorIs(t, err, message.ErrBodyTooLarge)

				return
			}

			require.NoError(t, err)
			assert.Len(t, m.Body(), tt.size)

			sent, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			assert.Equal(t, body, sent)
		})
	}
}
