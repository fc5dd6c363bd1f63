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

package varint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbpctl/pbpctl/internal/maestro/varint"
)

func TestDecodeScenarios(t *testing.T) {
	t.Run("two byte value", func(t *testing.T) {
		v, n, err := varint.Decode([]byte{0x00, 0x03})
		require.NoError(t, err)
		assert.Equal(t, uint32(0x80), v)
		assert.Equal(t, 2, n)
	})

	t.Run("max uint32 in five bytes", func(t *testing.T) {
		v, n, err := varint.Decode([]byte{0xFE, 0xFE, 0xFE, 0xFE, 0x1F})
		require.NoError(t, err)
		assert.Equal(t, uint32(0xFFFFFFFF), v)
		assert.Equal(t, 5, n)
	})

	t.Run("overflow on sixth-byte-worth of bits", func(t *testing.T) {
		_, _, err := varint.Decode([]byte{0xFE, 0xFE, 0xFE, 0xFE, 0xFF})
		require.ErrorIs(t, err, varint.ErrOverflow)
	})

	t.Run("incomplete stream", func(t *testing.T) {
		_, _, err := varint.Decode([]byte{0x00, 0x00})
		require.ErrorIs(t, err, varint.ErrIncomplete)
	})

	t.Run("zero encodes to a single byte", func(t *testing.T) {
		enc := varint.Encode(nil, 0)
		assert.Equal(t, []byte{0x01}, enc)
	})
}

func TestRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 0x7F, 0x80, 0xFFFF, 0x10000, 0xFFFFFFFF, 0x7FFFFFFF}
	for _, v := range values {
		enc := varint.Encode(nil, v)
		assert.Len(t, enc, varint.Len(v))

		decoded, n, err := varint.Decode(enc)
		require.NoError(t, err)
		assert.Equal(t, v, decoded)
		assert.Equal(t, len(enc), n)
	}
}

func TestDecodeConsumesPrefixOnly(t *testing.T) {
	enc := varint.Encode(nil, 42)
	buf := append(append([]byte{}, enc...), 0xAA, 0xBB)
	v, n, err := varint.Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), v)
	assert.Equal(t, len(enc), n)
}
