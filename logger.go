// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import "go.uber.org/zap"

// Logger is the logging seam threaded through the client and agent, so
// callers can swap in their own backend without this package importing
// one concretely at the call sites.
type Logger interface {
	Printf(format string, v ...interface{})
}

// ZapLogger adapts a *zap.SugaredLogger to the Logger interface.
type ZapLogger struct {
	s *zap.SugaredLogger
}

// NewZapLogger wraps l. Passing nil is not supported; construct one with
// zap.NewProduction().Sugar() or similar first.
func NewZapLogger(l *zap.SugaredLogger) *ZapLogger {
	return &ZapLogger{s: l}
}

func (z *ZapLogger) Printf(format string, v ...interface{}) {
	z.s.Infof(format, v...)
}

// discardLogger is the zero-value default used when a caller never
// supplies one, so agent.go/client.go never have to nil-check before
// logging.
type discardLogger struct{}

func (discardLogger) Printf(string, ...interface{}) {}

// DiscardLogger is a Logger that drops everything written to it.
var DiscardLogger Logger = discardLogger{}
