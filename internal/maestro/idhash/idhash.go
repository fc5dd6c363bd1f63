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

// Package idhash implements the 65599-style rolling hash the device uses
// to turn service and method names into the 32-bit identifiers carried
// on the wire.
package idhash

import "strings"

// Hash computes h0 = len(name); hi+1 = hi + k*c, k starting at 65599 and
// multiplied by 65599 after every character, all mod 2^32.
func Hash(name string) uint32 {
	h := uint32(len(name))
	k := uint32(65599)
	for i := 0; i < len(name); i++ {
		h += k * uint32(name[i])
		k *= 65599
	}
	return h
}

// SplitPath splits a "Service/Method" path at the last '/' and returns
// the hash of each half.
func SplitPath(path string) (serviceID, methodID uint32, ok bool) {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return 0, 0, false
	}
	return Hash(path[:idx]), Hash(path[idx+1:]), true
}
