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

package config

// Config stores the application configuration, loaded by configulator
// from flags, environment variables, and an optional config file, in
// that order of precedence.
type Config struct {
	LogLevel LogLevel      `name:"log-level" description:"Minimum severity logged" default:"info"`
	Device   DeviceConfig  `name:"device"`
	Metrics  MetricsConfig `name:"metrics"`
}

// DeviceConfig addresses the paired Pixel Buds Pro. Establishing the
// RFCOMM session itself lives above this module. No code in this module
// reads these fields: the probe subcommand dials --addr, and
// session.Run waits its own fixed session.ReconnectDelay.
type DeviceConfig struct {
	Address        string `name:"address" description:"Bluetooth MAC address of the paired device" default:""`
	ReconnectDelay int    `name:"reconnect-delay-ms" description:"Delay before retrying a dropped connection, in milliseconds" default:"500"`
}

// MetricsConfig controls the Prometheus exposition endpoint and
// optional OTLP trace export.
type MetricsConfig struct {
	Enabled      bool   `name:"enabled" description:"Serve Prometheus metrics" default:"false"`
	Port         int    `name:"port" description:"Metrics server listen port" default:"9100"`
	OTLPEndpoint string `name:"otlp-endpoint" description:"OTLP/gRPC endpoint for trace export; empty disables tracing" default:""`
}

// Validate reports whether the loaded configuration is usable. It is
// permissive and never fails: it only replaces an unrecognized LogLevel
// with info. Device.Address is not checked (the probe subcommand takes
// --addr directly).
func (c *Config) Validate() error {
	if !c.LogLevel.Valid() {
		c.LogLevel = LogLevelInfo
	}
	return nil
}
