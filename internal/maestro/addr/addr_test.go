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

package addr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbpctl/pbpctl/internal/maestro/addr"
)

func TestChannelBijection(t *testing.T) {
	for id := uint32(addr.FirstChannelID); id <= addr.LastChannelID; id++ {
		a, ok := addr.AddressForChannel(id)
		require.True(t, ok, "channel %d should resolve", id)

		got, ok := addr.ChannelForAddress(a)
		require.True(t, ok)
		assert.Equal(t, id, got)
	}
}

func TestChannelIDOutsideTableIsNone(t *testing.T) {
	_, ok := addr.AddressForChannel(17)
	assert.False(t, ok)
	_, ok = addr.AddressForChannel(28)
	assert.False(t, ok)

	_, ok = addr.ChannelForAddress(addr.Address{Source: addr.PeerMaestroA, Target: addr.PeerHost})
	assert.False(t, ok, "Host is not one of the five channel peers")

	_, ok = addr.ChannelForAddress(addr.Address{Source: addr.PeerHost, Target: addr.PeerCase})
	assert.False(t, ok, "Host is not a Maestro core")
}

func TestAddressEncodeDecode(t *testing.T) {
	a := addr.Address{Source: addr.PeerMaestroA, Target: addr.PeerHost}
	raw := a.Encode()
	assert.Equal(t, uint32(addr.PeerMaestroA.Raw())<<6|uint32(addr.PeerHost.Raw())<<10, raw)

	got := addr.Decode(raw)
	assert.Equal(t, a, got)
}

func TestPeerUnrecognized(t *testing.T) {
	p := addr.PeerFromRaw(0xFF)
	assert.Equal(t, byte(0xFF), p.Raw())
	assert.Contains(t, p.String(), "Unrecognized")
}
