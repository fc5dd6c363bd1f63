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

package service_test

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbpctl/pbpctl/internal/maestro/rpcclient"
	"github.com/pbpctl/pbpctl/internal/maestro/rpcpacket"
	"github.com/pbpctl/pbpctl/internal/maestro/service"
	"github.com/pbpctl/pbpctl/internal/maestro/wire"
)

func TestBindingCallsGetSoftwareInfo(t *testing.T) {
	local, remote := net.Pipe()
	c := rpcclient.New(local)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- c.Run(ctx) }()
	defer func() {
		cancel()
		local.Close()
		remote.Close()
		<-runDone
	}()

	b := service.NewBinding(c, 19)
	h, err := b.Call(service.GetSoftwareInfo, 1, nil)
	require.NoError(t, err)

	dec := wire.NewDecoder()
	buf := make([]byte, 4096)
	var req rpcpacket.Packet
	for {
		n, err := remote.Read(buf)
		require.NoError(t, err)
		if packets := dec.Feed(buf[:n]); len(packets) > 0 {
			req = packets[0]
			break
		}
	}
	assert.Equal(t, uint32(19), req.ChannelID)

	frame, err := wire.Encode(rpcpacket.Packet{
		Type: rpcpacket.TypeResponse, ChannelID: req.ChannelID, ServiceID: req.ServiceID,
		MethodID: req.MethodID, CallID: req.CallID, Payload: []byte("info"),
	})
	require.NoError(t, err)
	_, err = remote.Write(frame)
	require.NoError(t, err)

	payload, err := h.Result()
	require.NoError(t, err)
	assert.Equal(t, []byte("info"), payload)
}
