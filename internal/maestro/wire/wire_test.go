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

package wire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbpctl/pbpctl/internal/maestro/hdlc"
	"github.com/pbpctl/pbpctl/internal/maestro/rpcpacket"
	"github.com/pbpctl/pbpctl/internal/maestro/wire"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := rpcpacket.Packet{
		Type:      rpcpacket.TypeRequest,
		ChannelID: 19,
		ServiceID: 0x7EDE71EA,
		MethodID:  0x7199FA44,
		CallID:    42,
		Payload:   []byte{0x0A, 0x00},
	}

	frame, err := wire.Encode(p)
	require.NoError(t, err)

	dec := wire.NewDecoder()
	packets := dec.Feed(frame)
	require.Len(t, packets, 1)
	assert.Equal(t, p, packets[0])
}

func TestEncodeUnknownChannelFails(t *testing.T) {
	_, err := wire.Encode(rpcpacket.Packet{ChannelID: 999})
	assert.ErrorIs(t, err, wire.ErrUnknownChannel)
}

func TestDecodeDropsNonRPCControlByte(t *testing.T) {
	frame := hdlc.Encode(hdlc.Frame{Address: 18, Control: 0x01, Payload: []byte{0x0A, 0x00}})

	dec := wire.NewDecoder()
	packets := dec.Feed(frame)
	assert.Empty(t, packets)
}

func TestDecodeFeedAcrossMultipleCalls(t *testing.T) {
	p := rpcpacket.Packet{ChannelID: 23, CallID: 7}
	frame, err := wire.Encode(p)
	require.NoError(t, err)

	dec := wire.NewDecoder()
	mid := len(frame) / 2
	assert.Empty(t, dec.Feed(frame[:mid]))
	packets := dec.Feed(frame[mid:])
	require.Len(t, packets, 1)
	assert.Equal(t, p, packets[0])
}
