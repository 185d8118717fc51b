// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package interceptor provides a GRPC client interceptor that attaches user tickets to requests.
package interceptor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/siderolabs/go-tc3-signature/pkg/credentials"
	"github.com/siderolabs/go-tc3-signature/pkg/log"
	"github.com/siderolabs/go-tc3-signature/pkg/message"
	"github.com/siderolabs/go-tc3-signature/pkg/ticket"
)

// DefaultTicketTTL is the lifetime of the tickets issued by the interceptor.
const DefaultTicketTTL = 24 * time.Hour

// SkipInterceptorContextKey is a context key used to skip interceptor to avoid infinite recursion.
type SkipInterceptorContextKey struct{}

// AuthEnabledFunc is called once to determine if auth is enabled.
type AuthEnabledFunc func(ctx context.Context, cc *grpc.ClientConn) (bool, error)

// IssuerFunc is a function which is called to get a ticket issuer.
type IssuerFunc func(ctx context.Context, cc *grpc.ClientConn, options *Options) (message.TicketIssuer, error)

// Options are the options for the interceptor.
type Options struct {
	InfoWriter      io.Writer
	AuthEnabledFunc AuthEnabledFunc
	GetIssuerFunc   IssuerFunc

	// RenewIssuerFunc is called when the server rejects a ticket with codes.Unauthenticated,
	// e.g. after the secret key was rotated. If nil, calls are never retried.
	RenewIssuerFunc IssuerFunc

	Identifier string
	TicketTTL  time.Duration

	// CredentialsBase64 are static credentials in base64 JSON format.
	// When specified, GetIssuerFunc is ignored and retries are never attempted.
	CredentialsBase64 string
}

// Interceptor is a GRPC interceptor that provides Unary and Stream client interceptors.
type Interceptor struct {
	issuer       message.TicketIssuer
	initErr      error
	options      Options
	initOnce     sync.Once
	issuerLock   sync.Mutex
	authEnabled  bool
	staticIssuer bool
}

// New creates a new client interceptor.
func New(options Options) *Interceptor {
	if options.InfoWriter == nil {
		options.InfoWriter = os.Stderr
	}

	if options.AuthEnabledFunc == nil {
		options.AuthEnabledFunc = func(context.Context, *grpc.ClientConn) (bool, error) {
			return true, nil
		}
	}

	if options.GetIssuerFunc == nil {
		options.GetIssuerFunc = issuerFromEnv
	}

	if options.TicketTTL == 0 {
		options.TicketTTL = DefaultTicketTTL
	}

	return &Interceptor{
		options: options,
	}
}

func issuerFromEnv(context.Context, *grpc.ClientConn, *Options) (message.TicketIssuer, error) {
	creds, err := credentials.FromEnv()
	if err != nil {
		return nil, err
	}

	return ticket.NewSigner(creds), nil
}

// Unary returns a new unary client interceptor which attaches tickets to requests.
func (i *Interceptor) Unary() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		return i.intercept(ctx, cc, method, func(ctx context.Context) error {
			return invoker(ctx, method, req, reply, cc, opts...)
		})
	}
}

// Stream returns a new streaming client interceptor which attaches tickets to requests.
func (i *Interceptor) Stream() grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		var stream grpc.ClientStream

		err := i.intercept(ctx, cc, method, func(ctx context.Context) error {
			var streamErr error

			stream, streamErr = streamer(ctx, desc, cc, method, opts...)

			return streamErr
		})
		if err != nil {
			return nil, err
		}

		return stream, nil
	}
}

func (i *Interceptor) intercept(ctx context.Context, cc *grpc.ClientConn, method string, fn func(context.Context) error) error {
	if ctx.Value(SkipInterceptorContextKey{}) != nil {
		return fn(ctx)
	}

	ctx = context.WithValue(ctx, SkipInterceptorContextKey{}, struct{}{})

	if err := i.initializeOnce(ctx, cc); err != nil {
		return err
	}

	if !i.authEnabled {
		return fn(ctx)
	}

	unsignedCtx := ctx
	isRetryable := !i.staticIssuer && i.options.RenewIssuerFunc != nil

	signAndMakeCall := func() (bool, error) {
		signedCtx, err := i.sign(unsignedCtx, method)
		if err != nil {
			return false, err
		}

		err = fn(signedCtx)
		if err != nil {
			return status.Code(err) == codes.Unauthenticated && isRetryable, err
		}

		return false, nil
	}

	for {
		retry, err := signAndMakeCall()
		if err == nil { // call succeeded
			return nil
		}

		if !retry { // should not retry
			return err
		}

		fmt.Fprintf(i.options.InfoWriter, "Could not authenticate: %v\n", err)

		log.GetLogger(ctx).Debugf("renewing ticket issuer for %s after %s", method, status.Code(err))

		if err = i.renewIssuer(ctx, cc); err != nil {
			return err
		}

		isRetryable = false // mark as not retryable since we already tried once
	}
}

func (i *Interceptor) renewIssuer(ctx context.Context, cc *grpc.ClientConn) error {
	issuer, err := i.options.RenewIssuerFunc(ctx, cc, &i.options)
	if err != nil {
		return err
	}

	i.setIssuer(issuer)

	return nil
}

func (i *Interceptor) sign(ctx context.Context, method string) (context.Context, error) {
	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		md = metadata.New(nil)
	} else {
		md = md.Copy()
	}

	msg := message.NewGRPC(md, method)

	if err := msg.Sign(i.options.Identifier, i.options.TicketTTL, i.getIssuer()); err != nil {
		return nil, fmt.Errorf("failed to issue ticket: %w", err)
	}

	return metadata.NewOutgoingContext(ctx, msg.Metadata), nil
}

func (i *Interceptor) getIssuer() message.TicketIssuer {
	i.issuerLock.Lock()
	defer i.issuerLock.Unlock()

	return i.issuer
}

func (i *Interceptor) setIssuer(issuer message.TicketIssuer) {
	i.issuerLock.Lock()
	defer i.issuerLock.Unlock()

	i.issuer = issuer
}

func (i *Interceptor) initializeOnce(ctx context.Context, cc *grpc.ClientConn) error {
	i.initOnce.Do(func() {
		i.initErr = i.initialize(ctx, cc)
	})

	return i.initErr
}

func (i *Interceptor) initialize(ctx context.Context, cc *grpc.ClientConn) error {
	var err error

	if i.options.Identifier == "" {
		err = multierror.Append(err, errors.New("identifier is required"))
	}

	authEnabled, authEnabledErr := i.options.AuthEnabledFunc(ctx, cc)
	if authEnabledErr != nil {
		err = multierror.Append(err, authEnabledErr)
	}

	if err != nil {
		return err
	}

	i.authEnabled = authEnabled

	if !authEnabled {
		return nil
	}

	if i.options.CredentialsBase64 != "" {
		creds, decodeErr := credentials.Decode(i.options.CredentialsBase64)
		if decodeErr != nil {
			return fmt.Errorf("failed to decode credentials from options: %w", decodeErr)
		}

		i.staticIssuer = true
		i.setIssuer(ticket.NewSigner(creds))

		return nil
	}

	issuer, issuerErr := i.options.GetIssuerFunc(ctx, cc, &i.options)
	if issuerErr == nil {
		i.setIssuer(issuer)

		return nil
	}

	if i.options.RenewIssuerFunc == nil {
		return issuerErr
	}

	fmt.Fprintf(i.options.InfoWriter, "Could not authenticate: %v\n", issuerErr)

	issuer, renewErr := i.options.RenewIssuerFunc(ctx, cc, &i.options)
	if renewErr != nil {
		return multierror.Append(issuerErr, renewErr)
	}

	i.setIssuer(issuer)

	return nil
}
