// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package log provides the logger used by the transport and interceptor packages.
//
// Callers enable logging by putting a Logger into the context with WithLogger.
// github.com/uber-go/zap.SugaredLogger and github.com/sirupsen/logrus.Logger
// both satisfy Logger.
package log

import "context"

type contextKey int

const loggerKey contextKey = iota

// Discard is a Logger which drops everything.
var Discard Logger = discardLogger{}

// Logger is implemented by users and/or 3rd party loggers.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// GetLogger returns the Logger stored in ctx, or Discard.
func GetLogger(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerKey).(Logger); ok {
		return logger
	}

	return Discard
}

type discardLogger struct{}

func (discardLogger) Debugf(string, ...any) {}

func (discardLogger) Infof(string, ...any) {}

func (discardLogger) Warnf(string, ...any) {}

func (discardLogger) Errorf(string, ...any) {}
