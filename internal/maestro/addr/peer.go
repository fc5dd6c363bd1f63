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

// Package addr implements the Maestro device addressing scheme: the fixed
// Peer enumeration, the (source, target) bit-packed Address, and the
// bijection between channel ids 18..27 and (MaestroA|B, peer) pairs.
package addr

import "fmt"

// Peer identifies one endpoint on the Maestro bus.
type Peer struct {
	known   bool
	value   byte
	unknown byte // raw value, set when known is false
}

// Well-known peers. The raw byte values mirror the device's own
// enumeration order; Unrecognized carries any value outside this set.
var (
	PeerUnknown        = Peer{known: true, value: 0}
	PeerHost           = Peer{known: true, value: 1}
	PeerCase           = Peer{known: true, value: 2}
	PeerLeftBtCore     = Peer{known: true, value: 3}
	PeerRightBtCore    = Peer{known: true, value: 4}
	PeerLeftSensorHub  = Peer{known: true, value: 5}
	PeerRightSensorHub = Peer{known: true, value: 6}
	PeerLeftSpiBridge  = Peer{known: true, value: 7}
	PeerRightSpiBridge = Peer{known: true, value: 8}
	PeerDebugApp       = Peer{known: true, value: 9}
	PeerMaestroA       = Peer{known: true, value: 10}
	PeerLeftTahiti     = Peer{known: true, value: 11}
	PeerRightTahiti    = Peer{known: true, value: 12}
	PeerMaestroB       = Peer{known: true, value: 13}
)

var peerNames = map[byte]string{
	0: "Unknown", 1: "Host", 2: "Case", 3: "LeftBtCore", 4: "RightBtCore",
	5: "LeftSensorHub", 6: "RightSensorHub", 7: "LeftSpiBridge",
	8: "RightSpiBridge", 9: "DebugApp", 10: "MaestroA", 11: "LeftTahiti",
	12: "RightTahiti", 13: "MaestroB",
}

// Unrecognized wraps a raw peer byte that doesn't match a known value.
func Unrecognized(raw byte) Peer {
	return Peer{known: false, unknown: raw}
}

// Raw returns the wire-level byte for p.
func (p Peer) Raw() byte {
	if p.known {
		return p.value
	}
	return p.unknown
}

// String implements fmt.Stringer.
func (p Peer) String() string {
	if !p.known {
		return fmt.Sprintf("Unrecognized(%d)", p.unknown)
	}
	if name, ok := peerNames[p.value]; ok {
		return name
	}
	return fmt.Sprintf("Peer(%d)", p.value)
}

// PeerFromRaw maps a raw byte to a Peer, known or otherwise.
func PeerFromRaw(raw byte) Peer {
	if _, ok := peerNames[raw]; ok {
		return Peer{known: true, value: raw}
	}
	return Unrecognized(raw)
}
