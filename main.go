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

package main

import (
	"fmt"
	"os"

	"github.com/pbpctl/pbpctl/cmd"
	"github.com/pbpctl/pbpctl/internal/sdk"
)

func main() {
	os.Exit(run())
}

func run() int {
	root := cmd.NewCommand(sdk.Version, sdk.GitCommit)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
