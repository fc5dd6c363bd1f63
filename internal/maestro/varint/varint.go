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

// Package varint implements the continuation-bit varint encoding used to
// prefix the address field of an HDLC frame on the Maestro transport.
//
// Unlike the protobuf/LEB128 convention, the terminator bit here lives in
// bit 0 (the low bit) of each byte rather than the continuation bit living
// in bit 7 — the upper 7 bits of every byte carry payload. This is a
// device-specific wire format, not protobuf's, so it is implemented by
// hand rather than borrowed from google.golang.org/protobuf/encoding/protowire.
package varint

import "errors"

const (
	// MaxBytes is the largest encoding of a 32-bit value: 5 bytes of 7
	// payload bits each covers 35 bits, more than enough for 32.
	MaxBytes = 5

	payloadBits = 7
	terminator  = 0x01
)

// ErrIncomplete indicates the byte stream ended before a terminator byte
// (low bit set) was seen.
var ErrIncomplete = errors.New("varint: incomplete encoding")

// ErrOverflow indicates the decoded value would not fit in 32 bits.
var ErrOverflow = errors.New("varint: value overflows uint32")

// Decode reads a varint-encoded uint32 from the front of b. It returns the
// decoded value and the number of bytes consumed.
func Decode(b []byte) (value uint32, n int, err error) {
	for n = 0; n < len(b) && n < MaxBytes; n++ {
		chunk := b[n]
		group := uint32(chunk) >> 1
		shift := uint(n) * payloadBits

		if remaining := 32 - shift; remaining < payloadBits && group>>remaining != 0 {
			return 0, 0, ErrOverflow
		}
		value |= group << shift

		if chunk&terminator != 0 {
			return value, n + 1, nil
		}
	}
	if n >= MaxBytes {
		return 0, 0, ErrOverflow
	}
	return 0, 0, ErrIncomplete
}

// Encode appends the varint encoding of v to dst and returns the result.
func Encode(dst []byte, v uint32) []byte {
	for {
		group := byte(v & 0x7F)
		v >>= payloadBits
		b := group << 1
		if v == 0 {
			dst = append(dst, b|terminator)
			return dst
		}
		dst = append(dst, b)
	}
}

// Len reports the number of bytes Encode would emit for v.
func Len(v uint32) int {
	n := 1
	for v >>= payloadBits; v != 0; v >>= payloadBits {
		n++
	}
	return n
}
