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

// Package ws implements transport.Transport over WebSocket connections:
// one persistent, bidirectional connection per peer, requests correlated
// to replies by the message envelope's own uuid field.
package ws

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/meshkv/dht/message"
	"github.com/meshkv/dht/transport"
)

// Transport is a WebSocket-backed transport.Transport. It dials and
// caches one connection per peer URI for outgoing Send calls, and
// exposes Handler() as an http.Handler for accepting incoming
// connections from peers that dial in.
type Transport struct {
	dialTimeout  time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
	upgrader     websocket.Upgrader

	connMu sync.Mutex
	conns  map[string]*websocket.Conn

	pendingMu sync.Mutex
	pending   map[string]chan map[string]interface{}

	handlerMu sync.RWMutex
	handler   transport.Handler

	closedMu sync.RWMutex
	closed   bool
}

// New creates a WebSocket transport with the given timeouts.
func New(dialTimeout, readTimeout, writeTimeout time.Duration) *Transport {
	return &Transport{
		dialTimeout:  dialTimeout,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		conns:   make(map[string]*websocket.Conn),
		pending: make(map[string]chan map[string]interface{}),
	}
}

func (t *Transport) SetHandler(h transport.Handler) {
	t.handlerMu.Lock()
	defer t.handlerMu.Unlock()
	t.handler = h
}

// Handler returns an http.Handler that upgrades incoming connections and
// serves both requests (dispatched to the installed Handler) and replies
// (delivered to whichever Send call is waiting on that uuid).
func (t *Transport) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := t.upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, fmt.Sprintf("ws: upgrade failed: %v", err), http.StatusBadRequest)
			return
		}
		defer conn.Close()
		t.serve(r.Context(), conn)
	})
}

func (t *Transport) dial(ctx context.Context, uri string) (*websocket.Conn, error) {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if conn, ok := t.conns[uri]; ok {
		return conn, nil
	}

	dialer := &websocket.Dialer{HandshakeTimeout: t.dialTimeout}
	conn, _, err := dialer.DialContext(ctx, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("ws: dial %s: %w", uri, err)
	}
	t.conns[uri] = conn
	go t.serve(context.Background(), conn)
	return conn, nil
}

// Send encodes req, writes it to the connection for uri (dialing one if
// necessary), and blocks until a reply sharing req's uuid arrives, ctx
// is cancelled, or the read timeout elapses.
func (t *Transport) Send(ctx context.Context, uri string, req message.Message) (message.Message, error) {
	if t.isClosed() {
		return nil, transport.ErrClosed
	}

	conn, err := t.dial(ctx, uri)
	if err != nil {
		return nil, err
	}

	uuid := req.Header().UUID
	replyCh := make(chan map[string]interface{}, 1)
	t.pendingMu.Lock()
	t.pending[uuid] = replyCh
	t.pendingMu.Unlock()
	defer func() {
		t.pendingMu.Lock()
		delete(t.pending, uuid)
		t.pendingMu.Unlock()
	}()

	if err := conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return nil, fmt.Errorf("ws: set write deadline: %w", err)
	}
	if err := conn.WriteJSON(req.ToMap()); err != nil {
		return nil, fmt.Errorf("ws: write request: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case raw := <-replyCh:
		return message.Decode(raw)
	case <-time.After(t.readTimeout):
		return nil, transport.ErrTimeout
	}
}

// serve reads envelopes off conn for as long as it stays open, routing
// each one either to a pending Send call (a reply, sharing uuid with a
// request this transport sent) or to the installed Handler (a fresh
// request from the remote peer), writing the handler's response back.
func (t *Transport) serve(ctx context.Context, conn *websocket.Conn) {
	for {
		if err := conn.SetReadDeadline(time.Now().Add(t.readTimeout)); err != nil {
			return
		}
		var raw map[string]interface{}
		if err := conn.ReadJSON(&raw); err != nil {
			return
		}

		uuid, _ := raw["uuid"].(string)
		t.pendingMu.Lock()
		replyCh, waiting := t.pending[uuid]
		t.pendingMu.Unlock()
		if waiting {
			select {
			case replyCh <- raw:
			default:
			}
			continue
		}

		t.handlerMu.RLock()
		h := t.handler
		t.handlerMu.RUnlock()
		if h == nil {
			continue
		}

		req, err := message.Decode(raw)
		if err != nil {
			continue
		}
		from, _ := raw["sender"].(string)
		reply, err := h.HandleMessage(ctx, from, req)
		if err != nil || reply == nil {
			continue
		}

		if err := conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
			return
		}
		_ = conn.WriteJSON(reply.ToMap())
	}
}

func (t *Transport) isClosed() bool {
	t.closedMu.RLock()
	defer t.closedMu.RUnlock()
	return t.closed
}

// Close closes every connection this transport dialed out. Connections
// accepted through Handler are not tracked here and are not closed.
func (t *Transport) Close() error {
	t.closedMu.Lock()
	t.closed = true
	t.closedMu.Unlock()

	t.connMu.Lock()
	defer t.connMu.Unlock()
	for uri, conn := range t.conns {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
		delete(t.conns, uri)
	}
	return nil
}

var _ transport.Transport = (*Transport)(nil)
