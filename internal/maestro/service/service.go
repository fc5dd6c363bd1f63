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

// Package service is a thin table of typed bindings over the RPC
// client core: each entry pairs a textual path with precomputed
// service/method hashes and the RPC kind, and operations simply build
// requests against the session's resolved channel.
package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/codes"

	"github.com/pbpctl/pbpctl/internal/maestro/idhash"
	"github.com/pbpctl/pbpctl/internal/maestro/rpcclient"
	"github.com/pbpctl/pbpctl/internal/tracing"
)

// Method describes one bound operation. Request/response payload
// schemas live in a separate interface-description file; this shim
// treats Payload as opaque bytes.
type Method struct {
	Path      string
	Kind      rpcclient.Kind
	serviceID uint32
	methodID  uint32
}

func bind(path string, kind rpcclient.Kind) Method {
	svc, method, ok := idhash.SplitPath(path)
	if !ok {
		panic(fmt.Sprintf("service: malformed path %q", path))
	}
	return Method{Path: path, Kind: kind, serviceID: svc, methodID: method}
}

// The essential paths for this device, per the service-shim contract.
var (
	GetSoftwareInfo            = bind("maestro_pw.Maestro/GetSoftwareInfo", rpcclient.KindUnary)
	GetHardwareInfo            = bind("maestro_pw.Maestro/GetHardwareInfo", rpcclient.KindUnary)
	SubscribeRuntimeInfo       = bind("maestro_pw.Maestro/SubscribeRuntimeInfo", rpcclient.KindServerStream)
	WriteSetting               = bind("maestro_pw.Maestro/WriteSetting", rpcclient.KindUnary)
	ReadSetting                = bind("maestro_pw.Maestro/ReadSetting", rpcclient.KindUnary)
	SubscribeToSettingsChanges = bind("maestro_pw.Maestro/SubscribeToSettingsChanges", rpcclient.KindServerStream)
	SubscribeToOobeActions     = bind("maestro_pw.Maestro/SubscribeToOobeActions", rpcclient.KindServerStream)
	FetchDailySummaries        = bind("maestro_pw.Dosimeter/FetchDailySummaries", rpcclient.KindUnary)
	SubscribeToLiveDb          = bind("maestro_pw.Dosimeter/SubscribeToLiveDb", rpcclient.KindServerStream)
	SubscribeToQuietModeStatus = bind("maestro_pw.Multipoint/SubscribeToQuietModeStatus", rpcclient.KindServerStream)
)

// Binding calls a unary or server-stream method over client on
// channelID with call_id, carrying payload as the encoded request
// message.
type Binding struct {
	client    *rpcclient.Client
	channelID uint32
}

// NewBinding returns a Binding scoped to a session's resolved channel.
func NewBinding(client *rpcclient.Client, channelID uint32) *Binding {
	return &Binding{client: client, channelID: channelID}
}

// Call issues m against b's channel with the given call_id and request
// payload, returning the handle the caller uses to await the result
// (Unary) or iterate the stream (ServerStream).
func (b *Binding) Call(m Method, callID uint32, payload []byte) (*rpcclient.Handle, error) {
	return b.client.Call(b.channelID, m.serviceID, m.methodID, callID, m.Kind, payload)
}

// CallContext is Call with a span covering the request's enqueue,
// named after m.Path and tagged with the channel it was issued on.
func (b *Binding) CallContext(ctx context.Context, m Method, callID uint32, payload []byte) (*rpcclient.Handle, error) {
	_, span := tracing.StartCallSpan(ctx, m.Path, b.channelID)
	defer span.End()

	h, err := b.Call(m, callID, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return h, err
}
