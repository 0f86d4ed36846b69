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

// Package loopback provides an in-process transport.Transport, useful for
// exercising multi-node behavior (lookups, replication, routing table
// convergence) in a single test binary without opening any sockets.
package loopback

import (
	"context"
	"errors"
	"sync"

	"github.com/meshkv/dht/message"
	"github.com/meshkv/dht/transport"
)

// Network is a shared registry of loopback transports, keyed by the URI
// each one was registered under. Sending to a URI dispatches directly to
// that transport's handler, in-process.
type Network struct {
	mu    sync.RWMutex
	peers map[string]*Transport
}

// NewNetwork creates an empty loopback network.
func NewNetwork() *Network {
	return &Network{peers: make(map[string]*Transport)}
}

// Transport is a Network-registered endpoint identified by uri.
type Transport struct {
	net *Network
	uri string

	mu      sync.RWMutex
	handler transport.Handler
	closed  bool

	// SentMessages captures every request this transport has sent, for
	// test assertions.
	sentMu       sync.Mutex
	SentMessages []message.Message
}

// NewTransport registers and returns a new endpoint at uri within net.
func NewTransport(net *Network, uri string) *Transport {
	t := &Transport{net: net, uri: uri}
	net.mu.Lock()
	net.peers[uri] = t
	net.mu.Unlock()
	return t
}

func (t *Transport) SetHandler(h transport.Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = h
}

// Send delivers req directly to the Transport registered at uri.
func (t *Transport) Send(ctx context.Context, uri string, req message.Message) (message.Message, error) {
	t.sentMu.Lock()
	t.SentMessages = append(t.SentMessages, req)
	t.sentMu.Unlock()

	t.net.mu.RLock()
	peer, ok := t.net.peers[uri]
	t.net.mu.RUnlock()
	if !ok {
		return nil, errors.New("loopback: no peer registered at " + uri)
	}

	peer.mu.RLock()
	handler := peer.handler
	closed := peer.closed
	peer.mu.RUnlock()
	if closed {
		return nil, transport.ErrClosed
	}
	if handler == nil {
		return nil, errors.New("loopback: peer at " + uri + " has no handler installed")
	}

	return handler.HandleMessage(ctx, t.uri, req)
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.net.mu.Lock()
	delete(t.net.peers, t.uri)
	t.net.mu.Unlock()
	return nil
}

// Reset clears the captured sent-message history, for reuse between
// subtests.
func (t *Transport) Reset() {
	t.sentMu.Lock()
	t.SentMessages = nil
	t.sentMu.Unlock()
}

var _ transport.Transport = (*Transport)(nil)
