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

// Package wire composes the HDLC framer, the address map, and the RPC
// packet codec into the single encode/decode surface the client core
// talks to: an RpcPacket in, an HDLC frame out, and back.
package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pbpctl/pbpctl/internal/maestro/addr"
	"github.com/pbpctl/pbpctl/internal/maestro/hdlc"
	"github.com/pbpctl/pbpctl/internal/maestro/rpcpacket"
)

// controlRPC is the only control byte value the core recognizes.
const controlRPC = 0x03

// bufferSize matches the maximum frame size: the codec never needs to
// buffer more than one frame's worth of bytes at a time.
const bufferSize = hdlc.MaxFrameSize

// ErrUnknownChannel is returned by Encode when the packet's channel_id
// has no entry in the fixed address table.
var ErrUnknownChannel = errors.New("wire: channel_id has no address mapping")

// Encode resolves p's channel_id to a frame address and serializes p as
// an HDLC frame.
func Encode(p rpcpacket.Packet) ([]byte, error) {
	address, ok := addr.AddressForChannel(p.ChannelID)
	if !ok {
		return nil, fmt.Errorf("%w: channel_id=%d", ErrUnknownChannel, p.ChannelID)
	}
	return hdlc.Encode(hdlc.Frame{
		Address: address.Encode(),
		Control: controlRPC,
		Payload: rpcpacket.Encode(p),
	}), nil
}

// Decoder turns a raw byte stream into a stream of RpcPackets, dropping
// frames that don't carry an RPC payload.
type Decoder struct {
	frames *hdlc.Decoder
}

// NewDecoder returns a Decoder with its own internal byte-stuffing
// accumulator.
func NewDecoder() *Decoder {
	return &Decoder{frames: hdlc.NewDecoder()}
}

// Feed extracts every complete RpcPacket found in input. Frames with a
// non-RPC control byte or an undecodable payload are logged and
// dropped, not treated as errors.
func (d *Decoder) Feed(input []byte) []rpcpacket.Packet {
	var out []rpcpacket.Packet
	for _, f := range d.frames.Feed(input) {
		if f.Control != controlRPC {
			slog.Debug("wire: dropping frame with unrecognized control byte", "control", f.Control)
			continue
		}
		p, err := rpcpacket.Decode(f.Payload)
		if err != nil {
			slog.Debug("wire: dropping frame with undecodable payload", "error", err)
			continue
		}
		out = append(out, p)
	}
	return out
}

// ReadLoop reads from r in bufferSize chunks and invokes onPacket for
// every decoded RpcPacket, until r returns an error (including io.EOF).
func ReadLoop(r io.Reader, onPacket func(rpcpacket.Packet)) error {
	br := bufio.NewReaderSize(r, bufferSize)
	dec := NewDecoder()
	buf := make([]byte, bufferSize)
	for {
		n, err := br.Read(buf)
		if n > 0 {
			for _, p := range dec.Feed(buf[:n]) {
				onPacket(p)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
