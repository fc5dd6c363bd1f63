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

package rpcclient

import (
	"runtime"
	"sync/atomic"

	"github.com/pbpctl/pbpctl/internal/maestro/status"
)

// Handle is the caller-facing response handle returned by Call and
// Open. It is cheap to copy by reference and may be shared across
// goroutines; concurrent callers racing to cancel the same call
// observe exactly one completion.
type Handle struct {
	client       *Client
	call         *pendingCall
	cancelOnDrop bool

	finalized atomic.Bool
}

// newHandleWithFinalizer arms a runtime finalizer implementing "handle
// drop": an un-finalized handle that becomes unreachable is cancelled
// (if started via Call) or abandoned (if opened via Open), matching the
// core's documented drop behavior.
func newHandleWithFinalizer(h *Handle) *Handle {
	runtime.SetFinalizer(h, func(h *Handle) {
		if h.finalized.CompareAndSwap(false, true) {
			if h.cancelOnDrop {
				h.Cancel()
			} else {
				h.Abandon()
			}
		}
	})
	return h
}

// IsComplete reports whether the call has reached a terminal state.
func (h *Handle) IsComplete() bool {
	select {
	case <-h.call.done:
		return true
	default:
		return false
	}
}

// Result awaits a single response or error, for a Unary call. Calling
// Result on a ServerStream call discards every stream item and returns
// the terminal event's payload or error; ordinary usage is Stream for
// ServerStream calls.
func (h *Handle) Result() ([]byte, error) {
	for ev := range h.call.updates {
		if ev.Complete {
			if ev.Status != status.OK {
				return nil, status.New(ev.Status, "")
			}
			return ev.Payload, nil
		}
		// A stray Item on a Unary handle is dropped; dispatch already
		// guards against this by rejecting mismatched kinds, so this
		// path is defensive only.
	}
	return nil, ErrAborted
}

// Stream returns the channel of events for a ServerStream call. The
// channel yields StreamItem events (Event.Item set) in delivery order,
// followed by exactly one terminal Event (Event.Complete set), after
// which the channel is closed.
func (h *Handle) Stream() <-chan Event {
	return h.call.updates
}

// Cancel sends ClientError(Cancelled) for this call and completes it
// locally. Safe to call more than once or concurrently; only the first
// call has effect. If the client has already begun terminating, the
// request is dropped rather than queued; the call is (or is about to
// be) completed locally as Aborted by the client's own shutdown sweep.
func (h *Handle) Cancel() {
	h.markFinalized()
	h.client.enqueue(outRequest{kind: reqError, call: h.call, tx: true, code: status.Cancelled})
}

// Abandon completes the call locally with Cancelled without sending
// anything to the peer. See Cancel for the terminated-client case.
func (h *Handle) Abandon() {
	h.markFinalized()
	h.client.enqueue(outRequest{kind: reqError, call: h.call, tx: false, code: status.Cancelled})
}

// CancelAndWait cancels the call and blocks until it reaches Complete.
func (h *Handle) CancelAndWait() {
	h.Cancel()
	for range h.call.updates {
	}
}

func (h *Handle) markFinalized() {
	h.finalized.Store(true)
}
