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

// Package status provides the closed set of RPC status codes used by the
// client core. It mirrors the well-known gRPC code enumeration directly
// rather than redeclaring it, since google.golang.org/grpc/codes already
// is that enumeration, numeric value for numeric value.
package status

import (
	"fmt"

	"google.golang.org/grpc/codes"
)

// Code is the wire-level status code. Its values and numbering are
// exactly codes.Code's.
type Code = codes.Code

const (
	OK                 = codes.OK
	Cancelled          = codes.Canceled
	Unknown            = codes.Unknown
	InvalidArgument    = codes.InvalidArgument
	DeadlineExceeded   = codes.DeadlineExceeded
	NotFound           = codes.NotFound
	AlreadyExists      = codes.AlreadyExists
	PermissionDenied   = codes.PermissionDenied
	ResourceExhausted  = codes.ResourceExhausted
	FailedPrecondition = codes.FailedPrecondition
	Aborted            = codes.Aborted
	OutOfRange         = codes.OutOfRange
	Unimplemented      = codes.Unimplemented
	Internal           = codes.Internal
	Unavailable        = codes.Unavailable
	DataLoss           = codes.DataLoss
	Unauthenticated    = codes.Unauthenticated
)

// FromWire maps a raw wire status value to a Code. Values outside the
// known enumeration map to Unknown.
func FromWire(v uint32) Code {
	c := codes.Code(v)
	if c > Unauthenticated {
		return Unknown
	}
	return c
}

// Error is a non-OK status surfaced to a call handle.
type Error struct {
	Code    Code
	Message string
}

func New(c Code, format string, args ...any) *Error {
	return &Error{Code: c, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether err is a *Error carrying code c.
func Is(err error, c Code) bool {
	var se *Error
	if e, ok := err.(*Error); ok {
		se = e
	} else {
		return false
	}
	return se.Code == c
}
