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

package hdlc

import (
	"errors"
	"hash/crc32"
	"log/slog"

	"github.com/pbpctl/pbpctl/internal/maestro/varint"
)

// Decode errors. All of these are recoverable at the frame boundary: the
// decoder logs and resumes scanning for the next frame rather than
// propagating to the caller.
var (
	ErrUnexpectedEndOfFrame = errors.New("hdlc: unexpected end of frame")
	ErrInvalidEncoding      = errors.New("hdlc: invalid escape encoding")
	ErrInvalidChecksum      = errors.New("hdlc: checksum mismatch")
	ErrInvalidFrame         = errors.New("hdlc: body too short to be a frame")
	ErrInvalidAddress       = errors.New("hdlc: invalid address varint")
	ErrBufferOverflow       = errors.New("hdlc: frame exceeds maximum size")
)

type outerState int

const (
	stateDiscard outerState = iota
	stateFrame
)

type escapeState int

const (
	escapeNormal escapeState = iota
	escapeEscaped
)

// Decoder extracts frames from a byte stream that may interleave noise
// with valid frames. It is re-entrant: a partial frame is retained across
// calls to Feed, and calling Feed again resumes where the previous call
// left off.
type Decoder struct {
	outer  outerState
	escape escapeState
	body   []byte

	// sawUnexpectedData is set once per discard run so repeated noise
	// bytes produce a single log line instead of one per byte.
	sawUnexpectedData bool
}

// NewDecoder returns a Decoder ready to scan a fresh byte stream.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed consumes input and returns every complete frame found. Bytes left
// over (a partial frame) are buffered internally for the next call.
func (d *Decoder) Feed(input []byte) []Frame {
	var frames []Frame
	for _, b := range input {
		if f, ok := d.step(b); ok {
			frames = append(frames, f)
		}
	}
	return frames
}

func (d *Decoder) step(b byte) (Frame, bool) {
	switch d.outer {
	case stateDiscard:
		if b == Flag {
			d.outer = stateFrame
			d.escape = escapeNormal
			d.body = d.body[:0]
			d.sawUnexpectedData = false
			return Frame{}, false
		}
		if !d.sawUnexpectedData {
			slog.Debug("hdlc: discarding unexpected data before frame", "byte", b)
			d.sawUnexpectedData = true
		}
		return Frame{}, false

	case stateFrame:
		switch d.escape {
		case escapeNormal:
			switch b {
			case Flag:
				return d.finalize()
			case Esc:
				d.escape = escapeEscaped
				return Frame{}, false
			default:
				return d.appendByte(b)
			}
		case escapeEscaped:
			if b == Flag {
				slog.Debug("hdlc: unexpected end of frame after escape byte", "error", ErrUnexpectedEndOfFrame)
				d.reset()
				return Frame{}, false
			}
			if b == Esc {
				slog.Debug("hdlc: invalid escape encoding", "error", ErrInvalidEncoding)
				d.reset()
				return Frame{}, false
			}
			d.escape = escapeNormal
			return d.appendByte(b ^ EscXOR)
		}
	}
	return Frame{}, false
}

func (d *Decoder) appendByte(b byte) (Frame, bool) {
	if len(d.body) >= MaxFrameSize {
		slog.Debug("hdlc: frame exceeds maximum size", "error", ErrBufferOverflow, "max", MaxFrameSize)
		d.reset()
		return Frame{}, false
	}
	d.body = append(d.body, b)
	return Frame{}, false
}

// finalize is reached when a Flag byte is seen while accumulating a frame
// body. A Flag simultaneously closes the frame just read and may double
// as the next frame's opening delimiter, but only when the body was too
// short to judge or failed its checksum — in both cases the Flag itself
// might be a stray byte inside a still-arriving frame, so the decoder
// stays in Frame rather than discarding past it. Every other outcome,
// success included, resets to Discard: a decoded (or address/control
// rejected) frame is a definite resynchronization point, and the next
// Flag is unambiguously a fresh frame's start, not leftover noise.
func (d *Decoder) finalize() (Frame, bool) {
	body := d.body

	if len(body) < minBody {
		slog.Debug("hdlc: body shorter than minimum frame size", "error", ErrInvalidFrame, "len", len(body))
		d.reopen()
		return Frame{}, false
	}

	dataLen := len(body) - crcSize
	data := body[:dataLen]
	wantCRC := uint32(body[dataLen]) |
		uint32(body[dataLen+1])<<8 |
		uint32(body[dataLen+2])<<16 |
		uint32(body[dataLen+3])<<24

	if got := crc32.ChecksumIEEE(data); got != wantCRC {
		slog.Debug("hdlc: checksum mismatch", "error", ErrInvalidChecksum, "want", wantCRC, "got", got)
		d.reopen()
		return Frame{}, false
	}

	addr, n, err := varint.Decode(data)
	if err != nil {
		slog.Debug("hdlc: invalid address varint", "error", ErrInvalidAddress, "cause", err)
		d.reset()
		return Frame{}, false
	}
	if n >= dataLen {
		slog.Debug("hdlc: frame has no room for control byte", "error", ErrInvalidFrame)
		d.reset()
		return Frame{}, false
	}

	control := data[n]
	payload := append([]byte(nil), data[n+1:]...)

	d.reset()
	return Frame{Address: addr, Control: control, Payload: payload}, true
}

// reset abandons the in-progress frame and returns to Discard: the
// decoder has lost synchronization and must see a fresh Flag before it
// will accumulate again.
func (d *Decoder) reset() {
	d.outer = stateDiscard
	d.escape = escapeNormal
	d.body = d.body[:0]
	d.sawUnexpectedData = false
}

// reopen abandons the in-progress frame but stays synchronized: the Flag
// that just arrived may double as the next frame's opening delimiter.
func (d *Decoder) reopen() {
	d.outer = stateFrame
	d.escape = escapeNormal
	d.body = d.body[:0]
	d.sawUnexpectedData = false
}
