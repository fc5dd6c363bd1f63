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

package rpcclient_test

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbpctl/pbpctl/internal/maestro/rpcclient"
	"github.com/pbpctl/pbpctl/internal/maestro/rpcpacket"
	"github.com/pbpctl/pbpctl/internal/maestro/status"
	"github.com/pbpctl/pbpctl/internal/maestro/wire"
)

const (
	testChannel = 19
	testService = 0x7EDE71EA
	testMethod  = 0x7199FA44
)

// fakeDevice wraps the far end of a net.Pipe and speaks wire packets.
type fakeDevice struct {
	conn net.Conn
	dec  *wire.Decoder
	buf  []byte
}

func newFakeDevice(conn net.Conn) *fakeDevice {
	return &fakeDevice{conn: conn, dec: wire.NewDecoder(), buf: make([]byte, 4096)}
}

func (d *fakeDevice) send(t *testing.T, p rpcpacket.Packet) {
	t.Helper()
	frame, err := wire.Encode(p)
	require.NoError(t, err)
	_, err = d.conn.Write(frame)
	require.NoError(t, err)
}

func (d *fakeDevice) recv(t *testing.T) rpcpacket.Packet {
	t.Helper()
	for {
		n, err := d.conn.Read(d.buf)
		require.NoError(t, err)
		if packets := d.dec.Feed(d.buf[:n]); len(packets) > 0 {
			return packets[0]
		}
	}
}

func newPipeClient(t *testing.T) (*rpcclient.Client, *fakeDevice, func()) {
	t.Helper()
	local, remote := net.Pipe()
	c := rpcclient.New(local)
	device := newFakeDevice(remote)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- c.Run(ctx) }()

	cleanup := func() {
		cancel()
		local.Close()
		remote.Close()
		<-runDone
	}
	return c, device, cleanup
}

func TestUnaryCallResult(t *testing.T) {
	c, device, cleanup := newPipeClient(t)
	defer cleanup()

	h, err := c.Call(testChannel, testService, testMethod, 42, rpcclient.KindUnary, nil)
	require.NoError(t, err)

	req := device.recv(t)
	assert.Equal(t, rpcpacket.TypeRequest, req.Type)
	assert.Equal(t, uint32(42), req.CallID)

	device.send(t, rpcpacket.Packet{
		Type: rpcpacket.TypeResponse, ChannelID: testChannel, ServiceID: testService,
		MethodID: testMethod, CallID: 42, Payload: []byte("software-info"),
	})

	payload, err := h.Result()
	require.NoError(t, err)
	assert.Equal(t, []byte("software-info"), payload)
}

func TestServerStreamOrdering(t *testing.T) {
	c, device, cleanup := newPipeClient(t)
	defer cleanup()

	h, err := c.Call(testChannel, testService, testMethod, 7, rpcclient.KindServerStream, nil)
	require.NoError(t, err)
	device.recv(t) // initial Request

	items := [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	for _, item := range items {
		device.send(t, rpcpacket.Packet{
			Type: rpcpacket.TypeServerStream, ChannelID: testChannel, ServiceID: testService,
			MethodID: testMethod, CallID: 7, Payload: item,
		})
	}
	device.send(t, rpcpacket.Packet{
		Type: rpcpacket.TypeResponse, ChannelID: testChannel, ServiceID: testService,
		MethodID: testMethod, CallID: 7,
	})

	var got [][]byte
	for ev := range h.Stream() {
		if ev.Complete {
			assert.Equal(t, status.OK, ev.Status)
			break
		}
		got = append(got, ev.Item)
	}
	assert.Equal(t, items, got)
}

func TestCancelSendsClientError(t *testing.T) {
	c, device, cleanup := newPipeClient(t)
	defer cleanup()

	h, err := c.Call(testChannel, testService, testMethod, 9, rpcclient.KindUnary, nil)
	require.NoError(t, err)
	device.recv(t) // Request

	h.Cancel()

	ce := device.recv(t)
	assert.Equal(t, rpcpacket.TypeClientError, ce.Type)
	assert.Equal(t, status.Cancelled, status.FromWire(ce.Status))

	_, err = h.Result()
	assert.True(t, status.Is(err, status.Cancelled))
}

func TestUnaryOnlyRejectsServerStream(t *testing.T) {
	c, device, cleanup := newPipeClient(t)
	defer cleanup()

	h, err := c.Call(testChannel, testService, testMethod, 11, rpcclient.KindUnary, nil)
	require.NoError(t, err)
	device.recv(t)

	device.send(t, rpcpacket.Packet{
		Type: rpcpacket.TypeServerStream, ChannelID: testChannel, ServiceID: testService,
		MethodID: testMethod, CallID: 11, Payload: []byte("unexpected"),
	})

	_, err = h.Result()
	assert.True(t, status.Is(err, status.InvalidArgument))

	ce := device.recv(t)
	assert.Equal(t, rpcpacket.TypeClientError, ce.Type)
	assert.Equal(t, status.InvalidArgument, status.FromWire(ce.Status))
}

func TestOpenDoesNotSend(t *testing.T) {
	local, remote := net.Pipe()
	c := rpcclient.New(local)

	h, err := c.Open(testChannel, testService, testMethod, rpcclient.SentinelCallID, rpcclient.KindUnary)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- c.Run(ctx) }()
	defer func() {
		cancel()
		local.Close()
		remote.Close()
		<-runDone
	}()

	device := newFakeDevice(remote)
	device.send(t, rpcpacket.Packet{
		Type: rpcpacket.TypeResponse, ChannelID: testChannel, ServiceID: testService,
		MethodID: testMethod, CallID: rpcclient.SentinelCallID, Payload: []byte("unsolicited"),
	})

	payload, err := h.Result()
	require.NoError(t, err)
	assert.Equal(t, []byte("unsolicited"), payload)
}

func TestTerminateAbortsPending(t *testing.T) {
	local, remote := net.Pipe()
	c := rpcclient.New(local)

	h, err := c.Call(testChannel, testService, testMethod, 3, rpcclient.KindUnary, nil)
	require.NoError(t, err)

	ctx := context.Background()
	runDone := make(chan error, 1)
	go func() { runDone <- c.Run(ctx) }()

	device := newFakeDevice(remote)
	device.recv(t) // initial Request

	c.Terminate()

	ce := device.recv(t)
	assert.Equal(t, rpcpacket.TypeClientError, ce.Type)
	assert.Equal(t, status.Cancelled, status.FromWire(ce.Status))

	_, err = h.Result()
	assert.True(t, status.Is(err, status.Aborted))

	select {
	case runErr := <-runDone:
		assert.NoError(t, runErr)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Terminate")
	}

	local.Close()
	remote.Close()
}

// TestConcurrentCallDuringTerminateNeverStrands guards the window between
// Terminate draining the request queue and Run's select loop exiting:
// every Call racing against it must either be rejected outright or be
// guaranteed delivery, never enqueued into a queue nobody reads again.
func TestConcurrentCallDuringTerminateNeverStrands(t *testing.T) {
	local, remote := net.Pipe()
	c := rpcclient.New(local)

	ctx := context.Background()
	runDone := make(chan error, 1)
	go func() { runDone <- c.Run(ctx) }()

	// Drain whatever the fake device receives so sends made by the
	// client never block on an unread pipe.
	go func() {
		buf := make([]byte, 4096)
		for {
			if _, err := remote.Read(buf); err != nil {
				return
			}
		}
	}()

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			h, err := c.Call(testChannel, testService, testMethod, uint32(i), rpcclient.KindUnary, nil)
			if err != nil {
				// Rejected before reaching reqCh: not stranded.
				return
			}
			_, _ = h.Result()
		}(i)
	}

	time.Sleep(time.Millisecond) // let some workers race into start()
	c.Terminate()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("a Call racing with Terminate was stranded: Result() never returned")
	}

	select {
	case runErr := <-runDone:
		assert.NoError(t, runErr)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Terminate")
	}

	local.Close()
	remote.Close()
}
