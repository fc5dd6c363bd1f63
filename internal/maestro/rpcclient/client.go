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

// Package rpcclient implements the transport-multiplexed RPC client
// core: a single cooperative task that owns one framed transport,
// dispatches inbound packets to pending calls, and serializes outbound
// packets on behalf of caller handles.
package rpcclient

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/pbpctl/pbpctl/internal/maestro/rpcpacket"
	"github.com/pbpctl/pbpctl/internal/maestro/status"
	"github.com/pbpctl/pbpctl/internal/maestro/wire"
)

// Kind distinguishes the two RPC shapes this core exercises.
// ClientStream and Bidirectional are reserved by the wire schema but
// never constructed here.
type Kind int

const (
	KindUnary Kind = iota
	KindServerStream
)

func (k Kind) String() string {
	if k == KindServerStream {
		return "ServerStream"
	}
	return "Unary"
}

// Event is one update delivered to a call's handle, in the order the
// client task observed it.
type Event struct {
	// Item is set for a server-stream item; Complete is false.
	Item []byte
	// Complete marks the call's terminal event. Status and Payload are
	// only meaningful when Complete is true.
	Complete bool
	Status   status.Code
	Payload  []byte
}

// ErrAborted is the error surfaced to callers when the client
// terminates or the transport disconnects.
var ErrAborted = status.New(status.Aborted, "client terminated")

// SentinelCallID is the call_id the channel resolver registers its
// open() probes under.
const SentinelCallID = 0xFFFFFFFF

type pendingCall struct {
	uid     rpcpacket.CallUid
	kind    Kind
	updates chan Event
	done    chan struct{}
	once    sync.Once
}

func newPendingCall(uid rpcpacket.CallUid, kind Kind) *pendingCall {
	return &pendingCall{
		uid:     uid,
		kind:    kind,
		updates: make(chan Event, 16),
		done:    make(chan struct{}),
	}
}

// deliver pushes ev to the caller and, if terminal, closes the updates
// channel exactly once. Safe to call more than once with a terminal
// event; only the first takes effect.
func (p *pendingCall) deliver(ev Event) {
	select {
	case <-p.done:
		return
	default:
	}
	p.updates <- ev
	if ev.Complete {
		p.once.Do(func() {
			close(p.done)
			close(p.updates)
		})
	}
}

type reqKind int

const (
	reqNew reqKind = iota
	reqError
)

// outRequest is one entry on the client's unbounded request queue, fed
// by caller handles.
type outRequest struct {
	kind    reqKind
	call    *pendingCall
	payload []byte
	tx      bool
	code    status.Code
}

// Transport is the bidirectional byte stream the client task owns
// exclusively; no other goroutine touches it.
type Transport interface {
	io.Reader
	io.Writer
}

// Client runs the single cooperative task described by the core: it
// owns the pending-call table and the transport, and communicates with
// caller handles only through channels.
type Client struct {
	t Transport

	reqCh   chan outRequest
	inbound chan rpcpacket.Packet
	readErr chan error

	pending *xsync.Map[rpcpacket.CallUid, *pendingCall]

	// mu guards terminated. enqueue and markTerminated both take it, so
	// a request that loses the race to markTerminated is told Aborted
	// under the same lock instead of landing on reqCh after shutdown
	// has stopped reading it.
	mu         sync.Mutex
	terminated bool

	closeReq  chan struct{}
	closeOnce sync.Once
}

// New constructs a Client over an already-connected transport. Call Run
// in its own goroutine to start the cooperative task.
func New(t Transport) *Client {
	return &Client{
		t:        t,
		reqCh:    make(chan outRequest, 256),
		inbound:  make(chan rpcpacket.Packet, 256),
		readErr:  make(chan error, 1),
		pending:  xsync.NewMap[rpcpacket.CallUid, *pendingCall](),
		closeReq: make(chan struct{}),
	}
}

// Call creates a pending call and sends a Request packet carrying
// payload. cancel_on_drop for the returned handle defaults to true;
// callers that want open() semantics use Open instead.
func (c *Client) Call(channelID, serviceID, methodID, callID uint32, kind Kind, payload []byte) (*Handle, error) {
	return c.start(channelID, serviceID, methodID, callID, kind, payload, true)
}

// Open creates a pending call without sending anything, used to catch
// an unsolicited response the device sends before any request (see the
// channel resolver). cancel_on_drop for the returned handle defaults to
// false.
func (c *Client) Open(channelID, serviceID, methodID, callID uint32, kind Kind) (*Handle, error) {
	return c.start(channelID, serviceID, methodID, callID, kind, nil, false)
}

func (c *Client) start(channelID, serviceID, methodID, callID uint32, kind Kind, payload []byte, tx bool) (*Handle, error) {
	uid := rpcpacket.CallUid{ChannelID: channelID, ServiceID: serviceID, MethodID: methodID, CallID: callID}
	call := newPendingCall(uid, kind)

	if !c.enqueue(outRequest{kind: reqNew, call: call, payload: payload, tx: tx}) {
		return nil, ErrAborted
	}

	return newHandleWithFinalizer(&Handle{
		client:       c,
		call:         call,
		cancelOnDrop: tx,
	}), nil
}

// enqueue submits req to the client task's request queue. It reports
// false, without touching reqCh, if the client has already begun
// terminating. The terminated check and the send are one atomic section
// under mu, the same section markTerminated uses to flip the flag, so a
// concurrent enqueue either lands on reqCh strictly before shutdown's
// drain begins (and is therefore guaranteed to be drained) or is
// rejected outright; it never lands in the gap between the drain
// finishing and Run's select loop exiting.
func (c *Client) enqueue(req outRequest) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminated {
		return false
	}
	c.reqCh <- req
	return true
}

// markTerminated closes the gate enqueue consults. Callers must invoke
// this before draining reqCh or ranging pending, not after, so that any
// enqueue racing with shutdown observes the rejection rather than a
// request queue nobody will read again.
func (c *Client) markTerminated() {
	c.mu.Lock()
	c.terminated = true
	c.mu.Unlock()
}

// Terminate is the only graceful shutdown path. It stops accepting new
// calls, aborts every pending call locally, and sends a
// ClientError(Cancelled) for each one before closing the transport (if
// the transport implements io.Closer). The work is done by Run, which
// returns once it is finished; after that no further packets are sent.
func (c *Client) Terminate() {
	c.closeOnce.Do(func() { close(c.closeReq) })
}

// Run executes the client task until the transport disconnects or
// Terminate is called. It drains any already-queued requests before
// entering the mixed select loop, so that Open() registrations made
// before Run starts are guaranteed to be in the pending table before
// any response can arrive.
func (c *Client) Run(ctx context.Context) error {
	go c.readLoop()

	c.drainStartupRequests()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()

		case <-c.closeReq:
			c.shutdown()
			return nil

		case err := <-c.readErr:
			c.abortAll()
			return err

		case req := <-c.reqCh:
			c.handleRequest(req)

		case pkt := <-c.inbound:
			c.dispatch(pkt)
		}
	}
}

func (c *Client) drainStartupRequests() {
	for {
		select {
		case req := <-c.reqCh:
			c.handleRequest(req)
		default:
			return
		}
	}
}

func (c *Client) readLoop() {
	dec := wire.NewDecoder()
	buf := make([]byte, 4096)
	for {
		n, err := c.t.Read(buf)
		if n > 0 {
			for _, p := range dec.Feed(buf[:n]) {
				c.inbound <- p
			}
		}
		if err != nil {
			c.readErr <- err
			return
		}
	}
}

func (c *Client) send(p rpcpacket.Packet) error {
	frame, err := wire.Encode(p)
	if err != nil {
		return err
	}
	_, err = c.t.Write(frame)
	return err
}

func (c *Client) handleRequest(req outRequest) {
	switch req.kind {
	case reqNew:
		c.pending.Store(req.call.uid, req.call)
		if req.tx {
			if err := c.send(rpcpacket.Packet{
				Type:      rpcpacket.TypeRequest,
				ChannelID: req.call.uid.ChannelID,
				ServiceID: req.call.uid.ServiceID,
				MethodID:  req.call.uid.MethodID,
				CallID:    req.call.uid.CallID,
				Payload:   req.payload,
			}); err != nil {
				slog.Debug("rpcclient: failed to send request", "error", err, "uid", req.call.uid)
			}
		}

	case reqError:
		if cur, ok := c.pending.Load(req.call.uid); !ok || cur != req.call {
			// Already completed, cancelled or abandoned: no second
			// completion and no second ClientError.
			return
		}
		c.pending.Delete(req.call.uid)
		req.call.deliver(Event{Complete: true, Status: req.code})
		if req.tx {
			if err := c.send(rpcpacket.Packet{
				Type:      rpcpacket.TypeClientError,
				ChannelID: req.call.uid.ChannelID,
				ServiceID: req.call.uid.ServiceID,
				MethodID:  req.call.uid.MethodID,
				CallID:    req.call.uid.CallID,
				Status:    uint32(req.code),
			}); err != nil {
				slog.Debug("rpcclient: failed to send client error", "error", err, "uid", req.call.uid)
			}
		}
	}
}

func (c *Client) dispatch(p rpcpacket.Packet) {
	uid := p.Uid()

	switch p.Type {
	case rpcpacket.TypeResponse:
		call, ok := c.pending.LoadAndDelete(uid)
		if !ok {
			slog.Debug("rpcclient: response with no pending call", "uid", uid)
			return
		}
		st := status.FromWire(p.Status)
		if st != status.OK {
			slog.Debug("rpcclient: response carries non-OK status", "uid", uid, "status", st)
		}
		call.deliver(Event{Complete: true, Status: st, Payload: p.Payload})

	case rpcpacket.TypeServerError:
		call, ok := c.pending.LoadAndDelete(uid)
		if !ok {
			slog.Debug("rpcclient: server error with no pending call", "uid", uid)
			return
		}
		call.deliver(Event{Complete: true, Status: status.FromWire(p.Status)})

	case rpcpacket.TypeServerStream:
		call, ok := c.pending.Load(uid)
		if !ok {
			if err := c.send(rpcpacket.Packet{
				Type: rpcpacket.TypeClientError, ChannelID: uid.ChannelID, ServiceID: uid.ServiceID,
				MethodID: uid.MethodID, CallID: uid.CallID, Status: uint32(status.FailedPrecondition),
			}); err != nil {
				slog.Debug("rpcclient: failed to send client error for orphan stream item", "error", err, "uid", uid)
			}
			return
		}
		if call.kind != KindServerStream {
			c.pending.Delete(uid)
			call.deliver(Event{Complete: true, Status: status.InvalidArgument})
			if err := c.send(rpcpacket.Packet{
				Type: rpcpacket.TypeClientError, ChannelID: uid.ChannelID, ServiceID: uid.ServiceID,
				MethodID: uid.MethodID, CallID: uid.CallID, Status: uint32(status.InvalidArgument),
			}); err != nil {
				slog.Debug("rpcclient: failed to send client error for unary-mismatched stream", "error", err, "uid", uid)
			}
			return
		}
		call.deliver(Event{Item: p.Payload})

	default:
		slog.Debug("rpcclient: dropping packet of unhandled type", "type", p.Type, "uid", uid)
	}
}

func (c *Client) shutdown() {
	// Close the gate before draining: any enqueue that loses the race
	// sees terminated=true and never reaches reqCh, so the drain below
	// is guaranteed to see every request any caller believes it sent.
	c.markTerminated()

	type queuedError struct {
		uid  rpcpacket.CallUid
		code status.Code
	}
	var toSend []queuedError

	// Drain anything still on the request queue: New requests are told
	// Aborted and dropped, Error requests are processed normally.
	for {
		select {
		case req := <-c.reqCh:
			switch req.kind {
			case reqNew:
				req.call.deliver(Event{Complete: true, Status: status.Aborted})
			case reqError:
				c.handleRequest(req)
			}
		default:
			goto drained
		}
	}
drained:

	c.pending.Range(func(uid rpcpacket.CallUid, call *pendingCall) bool {
		call.deliver(Event{Complete: true, Status: status.Aborted})
		toSend = append(toSend, queuedError{uid: uid, code: status.Cancelled})
		return true
	})
	c.pending.Clear()

	for _, qe := range toSend {
		if err := c.send(rpcpacket.Packet{
			Type: rpcpacket.TypeClientError, ChannelID: qe.uid.ChannelID, ServiceID: qe.uid.ServiceID,
			MethodID: qe.uid.MethodID, CallID: qe.uid.CallID, Status: uint32(qe.code),
		}); err != nil {
			slog.Debug("rpcclient: failed to send client error during shutdown", "error", err, "uid", qe.uid)
		}
	}

	if cl, ok := c.t.(io.Closer); ok {
		if err := cl.Close(); err != nil {
			slog.Debug("rpcclient: failed to close transport during shutdown", "error", err)
		}
	}
}

func (c *Client) abortAll() {
	c.markTerminated()

	c.pending.Range(func(uid rpcpacket.CallUid, call *pendingCall) bool {
		call.deliver(Event{Complete: true, Status: status.Aborted})
		return true
	})
	c.pending.Clear()
}
