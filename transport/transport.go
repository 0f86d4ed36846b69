// Copyright (C) 2025 meshkv
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package transport provides the transport layer abstraction: sending a
// request message to a peer's URI and receiving its reply, independent of
// whatever protocol actually carries the bytes (WebSocket in transport/ws,
// or an in-process loopback for tests).
package transport

import (
	"context"
	"errors"

	"github.com/meshkv/dht/message"
)

// ErrTimeout is returned by Send when the transport's own read timeout
// elapses before a reply arrives; a cancelled or expired ctx yields
// ctx.Err() instead.
var ErrTimeout = errors.New("transport: request timed out")

// ErrClosed is returned by Send once a transport has been shut down.
var ErrClosed = errors.New("transport: closed")

// Handler processes a request message arriving from a remote peer and
// returns the reply to send back (or an error to report as a failure,
// which implementations should translate into an RPC error on the wire).
type Handler interface {
	HandleMessage(ctx context.Context, from string, req message.Message) (message.Message, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, from string, req message.Message) (message.Message, error)

func (f HandlerFunc) HandleMessage(ctx context.Context, from string, req message.Message) (message.Message, error) {
	return f(ctx, from, req)
}

// Transport sends request messages to peers identified by URI and serves
// incoming requests to a registered Handler.
type Transport interface {
	// Send delivers req to the peer at uri and blocks for its reply.
	Send(ctx context.Context, uri string, req message.Message) (message.Message, error)

	// SetHandler installs the handler invoked for requests arriving from
	// remote peers. It must be called before the transport starts
	// accepting connections.
	SetHandler(h Handler)

	// Close shuts the transport down, releasing any listening sockets
	// or open connections.
	Close() error
}
