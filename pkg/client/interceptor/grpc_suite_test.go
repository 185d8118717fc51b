// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package interceptor_test

import (
	"net"

	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
)

// GRPCSuite runs a gRPC server on a random loopback port.
type GRPCSuite struct {
	suite.Suite

	Server *grpc.Server
	Target string

	serveErr chan error
}

// InitServer creates the server, services should be registered before StartServer.
func (suite *GRPCSuite) InitServer(opts ...grpc.ServerOption) {
	suite.Server = grpc.NewServer(opts...)
}

// StartServer starts serving in the background.
func (suite *GRPCSuite) StartServer() {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	suite.Require().NoError(err)

	suite.Target = listener.Addr().String()
	suite.serveErr = make(chan error, 1)

	go func() {
		suite.serveErr <- suite.Server.Serve(listener)
	}()
}

// StopServer stops the server and waits for Serve to return.
func (suite *GRPCSuite) StopServer() {
	suite.Server.Stop()

	suite.Require().NoError(<-suite.serveErr)
}
