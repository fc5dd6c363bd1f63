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

// Package hdlc implements the byte-stuffed HDLC-style framing used on the
// Maestro RFCOMM transport: a frame is delimited by 0x7E flag bytes and
// carries varint(address) ‖ control ‖ payload ‖ crc32_le.
package hdlc

import (
	"hash/crc32"

	"github.com/pbpctl/pbpctl/internal/maestro/varint"
)

const (
	// Flag delimits the start and end of every frame on the wire.
	Flag byte = 0x7E
	// Esc escapes a literal Flag or Esc byte appearing in the frame body.
	Esc byte = 0x7D
	// EscXOR is XORed into an escaped byte's value after the Esc marker.
	EscXOR byte = 0x20

	// MaxFrameSize bounds the unescaped frame body (address, control,
	// payload and CRC) the Decoder accumulates; a longer frame is dropped
	// with ErrBufferOverflow. Flags and stuffing bytes are not counted,
	// and Encode does not check the bound. There is no negotiation.
	MaxFrameSize = 4096

	crcSize     = 4
	controlSize = 1
)

// minBody is the smallest legal unescaped body: a one-byte varint, the
// control byte, and the four CRC bytes.
const minBody = 1 + controlSize + crcSize

// Frame is a single decoded HDLC frame.
type Frame struct {
	Address uint32
	Control byte
	Payload []byte
}

// checksum computes the IEEE CRC32 (reflected, init 0xFFFFFFFF, final xor
// 0xFFFFFFFF) over body — exactly hash/crc32's default polynomial and the
// table crc32.IEEETable already implements this; no third-party checksum
// library improves on the standard library here.
func checksum(body []byte) uint32 {
	return crc32.ChecksumIEEE(body)
}

// Encode serializes f as a complete, byte-stuffed, flag-delimited frame.
func Encode(f Frame) []byte {
	body := make([]byte, 0, len(f.Payload)+varint.MaxBytes+controlSize)
	body = varint.Encode(body, f.Address)
	body = append(body, f.Control)
	body = append(body, f.Payload...)

	sum := checksum(body)
	body = append(body,
		byte(sum),
		byte(sum>>8),
		byte(sum>>16),
		byte(sum>>24),
	)

	out := make([]byte, 0, len(body)*2+2)
	out = append(out, Flag)
	for _, b := range body {
		if b == Flag || b == Esc {
			out = append(out, Esc, b^EscXOR)
		} else {
			out = append(out, b)
		}
	}
	out = append(out, Flag)
	return out
}
