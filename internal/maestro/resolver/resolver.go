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

// Package resolver discovers which of the ten Maestro×peer channels the
// connected device answers on for this session, by registering
// receive-only probes and waiting for the device's unsolicited
// GetSoftwareInfo response.
package resolver

import (
	"context"
	"fmt"

	"github.com/pbpctl/pbpctl/internal/maestro/idhash"
	"github.com/pbpctl/pbpctl/internal/maestro/rpcclient"
	"github.com/pbpctl/pbpctl/internal/maestro/status"
)

// probePath is the method the device answers unsolicited, immediately
// after transport connect, on whichever channel is live.
const probePath = "maestro_pw.Maestro/GetSoftwareInfo"

// CandidateChannels are the six channels most likely to be live: both
// Maestro cores crossed with Case and the two Bluetooth-core peers.
// LeftSensorHub and RightSensorHub are valid channel_ids but are never
// the first channel to answer, so the resolver does not probe them.
var CandidateChannels = []uint32{18, 19, 21, 23, 24, 26}

// Result is a resolved channel along with the handle that caught the
// device's unsolicited response, so the caller can inspect the payload
// without issuing a second GetSoftwareInfo call.
type Result struct {
	ChannelID    uint32
	SoftwareInfo []byte
	otherProbes  []*rpcclient.Handle
}

// Resolve registers an open() probe on every candidate channel, then
// waits for the first one the device answers. The other pending probes
// remain registered until the caller cancels them (typically at
// session end, via Result.Close).
func Resolve(ctx context.Context, c *rpcclient.Client) (*Result, error) {
	serviceID, methodID, ok := idhash.SplitPath(probePath)
	if !ok {
		return nil, fmt.Errorf("resolver: malformed probe path %q", probePath)
	}

	handles := make(map[uint32]*rpcclient.Handle, len(CandidateChannels))
	for _, ch := range CandidateChannels {
		h, err := c.Open(ch, serviceID, methodID, rpcclient.SentinelCallID, rpcclient.KindUnary)
		if err != nil {
			return nil, fmt.Errorf("resolver: opening probe on channel %d: %w", ch, err)
		}
		handles[ch] = h
	}

	type answer struct {
		channel uint32
		payload []byte
		err     error
	}
	winner := make(chan answer, len(handles))
	for ch, h := range handles {
		ch, h := ch, h
		go func() {
			payload, err := h.Result()
			select {
			case winner <- answer{channel: ch, payload: payload, err: err}:
			case <-ctx.Done():
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case a := <-winner:
		if a.err != nil {
			return nil, fmt.Errorf("resolver: probe on channel %d failed: %w: %w", a.channel, ErrNoAnswer, a.err)
		}
		var remaining []*rpcclient.Handle
		for ch, h := range handles {
			if ch != a.channel {
				remaining = append(remaining, h)
			}
		}
		return &Result{ChannelID: a.channel, SoftwareInfo: a.payload, otherProbes: remaining}, nil
	}
}

// Close cancels every probe that did not win resolution. Call once the
// session no longer needs them.
func (r *Result) Close() {
	for _, h := range r.otherProbes {
		h.Cancel()
	}
}

// ErrNoAnswer is wrapped into the error Resolve returns when the first
// probe to complete does so with a non-OK status instead of
// GetSoftwareInfo data, as when the client terminates (Aborted) before
// the device answers.
var ErrNoAnswer = status.New(status.Aborted, "resolver: client terminated before any probe was answered")
