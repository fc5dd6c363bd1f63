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

package addr

import "fmt"

// Bit layout of a Maestro frame address: source occupies bits [6..10),
// target occupies bits [10..14). Bits outside that range are reserved
// and always zero on encode.
const (
	sourceShift = 6
	sourceMask  = 0xF
	targetShift = 10
	targetMask  = 0xF
)

// Address identifies the source and target peer of a frame.
type Address struct {
	Source Peer
	Target Peer
}

// Encode packs a into a frame address value.
func (a Address) Encode() uint32 {
	return uint32(a.Source.Raw()&sourceMask)<<sourceShift |
		uint32(a.Target.Raw()&targetMask)<<targetShift
}

// Decode unpacks a frame address value into an Address.
func Decode(raw uint32) Address {
	src := byte(raw>>sourceShift) & sourceMask
	dst := byte(raw>>targetShift) & targetMask
	return Address{Source: PeerFromRaw(src), Target: PeerFromRaw(dst)}
}

func (a Address) String() string {
	return fmt.Sprintf("%s->%s", a.Source, a.Target)
}

// channelIDs maps channel_id (18..27) to the Address that reaches it on
// the wire: source is the Maestro core (A or B), target is the peer
// chip behind it. The ten entries cover MaestroA and MaestroB crossed
// with the five peers that expose an RPC channel: Case, LeftBtCore,
// LeftSensorHub, RightBtCore, RightSensorHub.
var channelIDs = map[uint32]Address{
	18: {PeerMaestroA, PeerCase},
	19: {PeerMaestroA, PeerLeftBtCore},
	20: {PeerMaestroA, PeerLeftSensorHub},
	21: {PeerMaestroA, PeerRightBtCore},
	22: {PeerMaestroA, PeerRightSensorHub},
	23: {PeerMaestroB, PeerCase},
	24: {PeerMaestroB, PeerLeftBtCore},
	25: {PeerMaestroB, PeerLeftSensorHub},
	26: {PeerMaestroB, PeerRightBtCore},
	27: {PeerMaestroB, PeerRightSensorHub},
}

var channelLookup map[Address]uint32

func init() {
	channelLookup = make(map[Address]uint32, len(channelIDs))
	for id, a := range channelIDs {
		channelLookup[a] = id
	}
}

// FirstChannelID and LastChannelID bound the valid channel_id range.
const (
	FirstChannelID = 18
	LastChannelID  = 27
)

// AddressForChannel returns the Address that reaches channel_id, or
// false if id is outside the fixed table.
func AddressForChannel(id uint32) (Address, bool) {
	a, ok := channelIDs[id]
	return a, ok
}

// ChannelForAddress returns the channel_id addressed by a, or false if
// the (source, target) pair has no assigned channel.
func ChannelForAddress(a Address) (uint32, bool) {
	id, ok := channelLookup[a]
	return id, ok
}
