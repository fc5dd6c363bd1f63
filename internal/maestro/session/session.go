// SPDX-License-Identifier: AGPL-3.0-or-later
// pbpctl - A userspace control client for Google Pixel Buds Pro
// Copyright (C) 2026 The pbpctl Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// The source code is available at <https://github.com/pbpctl/pbpctl>

// Package session supplies the reconnect-aware lifecycle over however
// many transport connections the Bluetooth layer hands it, with a fresh
// rpcclient.Client for each: a disconnect (observed upstream as errno
// 104, connection reset) ends one RPC session, and a fresh Connect call
// begins the next with its own channel resolution.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pbpctl/pbpctl/internal/maestro/resolver"
	"github.com/pbpctl/pbpctl/internal/maestro/rpcclient"
	"github.com/pbpctl/pbpctl/internal/maestro/service"
)

// ReconnectDelay is the fixed pause between a dropped connection and
// the next connect attempt. The device's own handoff behavior settles
// within this window; there is no exponential backoff because the
// retry is bounded by the caller's context, not by this package.
const ReconnectDelay = 500 * time.Millisecond

// Connector opens a new bidirectional byte stream to the device. The
// caller supplies this; establishing the RFCOMM session itself is
// outside this package.
type Connector func(ctx context.Context) (rpcclient.Transport, error)

// Session is one logical connection to the device across however many
// underlying transport reconnects occur. Binding is re-created on every
// reconnect since the resolved channel_id can change between sessions.
type Session struct {
	connect Connector

	Binding *service.Binding
	result  *resolver.Result

	client *rpcclient.Client
	runErr chan error
}

// Run connects, resolves the active channel, calls onReady with the new
// Session, and then waits for that session's client task to end. It
// returns when ctx is cancelled, when the session is closed (the client
// task returns nil), or when connecting or resolving fails. When the
// client task ends with any other error it reconnects after
// ReconnectDelay and calls onReady again once resolution completes.
func Run(ctx context.Context, connect Connector, onReady func(*Session)) error {
	for {
		sess, err := connectAndResolve(ctx, connect)
		if err != nil {
			return fmt.Errorf("session: %w", err)
		}

		onReady(sess)

		err = <-sess.runErr
		sess.result.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			return nil
		}

		err = fmt.Errorf("%w: %w", ErrDisconnected, err)
		slog.Warn("session: transport disconnected, reconnecting", "error", err, "delay", ReconnectDelay)
		select {
		case <-time.After(ReconnectDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func connectAndResolve(ctx context.Context, connect Connector) (*Session, error) {
	t, err := connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting transport: %w", err)
	}

	c := rpcclient.New(t)
	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()

	r, err := resolver.Resolve(ctx, c)
	if err != nil {
		c.Terminate()
		<-runErr
		return nil, fmt.Errorf("resolving channel: %w", err)
	}

	return &Session{
		connect: connect,
		Binding: service.NewBinding(c, r.ChannelID),
		result:  r,
		client:  c,
		runErr:  runErr,
	}, nil
}

// Close terminates the session's client task. Use when the caller is
// done with the device entirely, not on a routine reconnect.
func (s *Session) Close() {
	s.client.Terminate()
}

// ErrDisconnected wraps the underlying transport error in the warning
// Run logs when a session ends with an error and Run reconnects. Run
// does not return it.
var ErrDisconnected = errors.New("session: transport disconnected")
