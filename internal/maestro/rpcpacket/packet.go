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

// Package rpcpacket encodes and decodes the RPC packet carried as an
// HDLC frame's payload. The wire format is a length-delimited,
// protobuf-wire-format-compatible record; protowire implements the
// low-level varint/tag machinery so this package only has to know the
// field numbers.
package rpcpacket

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Type distinguishes the kind of packet on the wire.
type Type uint32

const (
	TypeRequest Type = iota
	TypeResponse
	TypeClientStream
	TypeServerStream
	TypeClientError
	TypeServerError
	TypeCancel
)

func (t Type) String() string {
	switch t {
	case TypeRequest:
		return "Request"
	case TypeResponse:
		return "Response"
	case TypeClientStream:
		return "ClientStream"
	case TypeServerStream:
		return "ServerStream"
	case TypeClientError:
		return "ClientError"
	case TypeServerError:
		return "ServerError"
	case TypeCancel:
		return "Cancel"
	default:
		return fmt.Sprintf("Type(%d)", uint32(t))
	}
}

// Field numbers, matching the field layout of Pigweed's RpcPacket proto.
const (
	fieldType      = 1
	fieldChannelID = 2
	fieldServiceID = 3
	fieldMethodID  = 4
	fieldPayload   = 5
	fieldStatus    = 6
	fieldCallID    = 7
)

// Packet is the RPC envelope carried inside every frame payload.
type Packet struct {
	Type      Type
	ChannelID uint32
	ServiceID uint32
	MethodID  uint32
	Payload   []byte
	Status    uint32
	CallID    uint32
}

// Encode serializes p as a protobuf-wire-format record.
func Encode(p Packet) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.Type))
	b = protowire.AppendTag(b, fieldChannelID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.ChannelID))
	b = protowire.AppendTag(b, fieldServiceID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.ServiceID))
	b = protowire.AppendTag(b, fieldMethodID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.MethodID))
	if len(p.Payload) > 0 {
		b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, p.Payload)
	}
	b = protowire.AppendTag(b, fieldStatus, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.Status))
	b = protowire.AppendTag(b, fieldCallID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.CallID))
	return b
}

// Decode parses a protobuf-wire-format record into a Packet. Unknown
// fields are skipped, matching normal protobuf forward-compatibility.
func Decode(b []byte) (Packet, error) {
	var p Packet
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Packet{}, fmt.Errorf("rpcpacket: invalid tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Packet{}, fmt.Errorf("rpcpacket: invalid type field: %w", protowire.ParseError(n))
			}
			p.Type = Type(v)
			b = b[n:]
		case fieldChannelID:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Packet{}, fmt.Errorf("rpcpacket: invalid channel_id field: %w", protowire.ParseError(n))
			}
			p.ChannelID = uint32(v)
			b = b[n:]
		case fieldServiceID:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Packet{}, fmt.Errorf("rpcpacket: invalid service_id field: %w", protowire.ParseError(n))
			}
			p.ServiceID = uint32(v)
			b = b[n:]
		case fieldMethodID:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Packet{}, fmt.Errorf("rpcpacket: invalid method_id field: %w", protowire.ParseError(n))
			}
			p.MethodID = uint32(v)
			b = b[n:]
		case fieldPayload:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Packet{}, fmt.Errorf("rpcpacket: invalid payload field: %w", protowire.ParseError(n))
			}
			p.Payload = append([]byte(nil), v...)
			b = b[n:]
		case fieldStatus:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Packet{}, fmt.Errorf("rpcpacket: invalid status field: %w", protowire.ParseError(n))
			}
			p.Status = uint32(v)
			b = b[n:]
		case fieldCallID:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Packet{}, fmt.Errorf("rpcpacket: invalid call_id field: %w", protowire.ParseError(n))
			}
			p.CallID = uint32(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Packet{}, fmt.Errorf("rpcpacket: invalid unknown field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return p, nil
}

// CallUid identifies a pending call's identity on the wire.
type CallUid struct {
	ChannelID uint32
	ServiceID uint32
	MethodID  uint32
	CallID    uint32
}

// Uid returns p's CallUid.
func (p Packet) Uid() CallUid {
	return CallUid{
		ChannelID: p.ChannelID,
		ServiceID: p.ServiceID,
		MethodID:  p.MethodID,
		CallID:    p.CallID,
	}
}
