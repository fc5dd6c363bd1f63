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

// Package cmd is a thin debug entrypoint over the Maestro RPC core: it
// dials a raw byte stream (normally handed to it by a Bluetooth RFCOMM
// layer, here a bare TCP or Unix socket for bench testing) and drives
// the channel resolver and a couple of service calls so the core can be
// exercised without a full CLI/TUI product built on top of it.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/USA-RedDragon/configulator"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/pbpctl/pbpctl/internal/config"
	"github.com/pbpctl/pbpctl/internal/maestro/resolver"
	"github.com/pbpctl/pbpctl/internal/maestro/rpcclient"
	"github.com/pbpctl/pbpctl/internal/maestro/service"
	"github.com/pbpctl/pbpctl/internal/metrics"
	"github.com/pbpctl/pbpctl/internal/tracing"
)

// NewCommand builds the root pbpctl command.
func NewCommand(version, commit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pbpctl",
		Version: fmt.Sprintf("%s - %s", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	c := configulator.New[config.Config]()
	if err := c.Command(cmd); err != nil {
		// Command() only fails on programmer error in the struct tags,
		// which a passing test suite already rules out.
		panic(fmt.Sprintf("cmd: failed to bind configuration flags: %v", err))
	}

	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "Resolve the active Maestro channel and print the device's software info",
		RunE:  runProbe,
	}
	probeCmd.Flags().String("addr", "", "host:port or /path/to/socket to dial in place of an RFCOMM stream")

	cmd.AddCommand(probeCmd)
	return cmd
}

func loadConfig(ctx context.Context) (*config.Config, error) {
	c, err := configulator.FromContext[config.Config](ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get config from context: %w", err)
	}
	cfg, err := c.LoadWithoutValidation()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func setupLogger(cfg *config.Config) {
	var level slog.Level
	switch cfg.LogLevel {
	case config.LogLevelDebug:
		level = slog.LevelDebug
	case config.LogLevelWarn:
		level = slog.LevelWarn
	case config.LogLevelError:
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: level})))
}

func runProbe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	setupLogger(cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cleanup, err := tracing.Setup(cfg.Metrics.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cleanup(shutdownCtx); err != nil {
			slog.Error("failed to shut down tracer", "error", err)
		}
	}()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(cfg.Metrics.Port, m); err != nil {
				slog.Error("metrics server exited", "error", err)
			}
		}()
	}

	addr, err := cmd.Flags().GetString("addr")
	if err != nil || addr == "" {
		return fmt.Errorf("--addr is required for probe (no RFCOMM layer is wired into this debug entrypoint)")
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		if conn, err = net.Dial("unix", addr); err != nil {
			return fmt.Errorf("failed to dial %s: %w", addr, err)
		}
	}
	defer conn.Close()

	client := rpcclient.New(conn)
	runErr := make(chan error, 1)
	go func() { runErr <- client.Run(ctx) }()
	defer client.Terminate()

	m.SetPendingCalls(float64(len(resolver.CandidateChannels)))
	result, err := resolver.Resolve(ctx, client)
	if err != nil {
		return fmt.Errorf("channel resolution failed: %w", err)
	}
	defer result.Close()

	slog.Info("resolved active channel", "channel_id", result.ChannelID)
	fmt.Printf("channel %d: %q\n", result.ChannelID, result.SoftwareInfo)

	binding := service.NewBinding(client, result.ChannelID)
	h, err := binding.CallContext(ctx, service.GetHardwareInfo, 1, nil)
	if err != nil {
		return fmt.Errorf("failed to issue GetHardwareInfo: %w", err)
	}
	payload, err := h.Result()
	if err != nil {
		return fmt.Errorf("GetHardwareInfo failed: %w", err)
	}
	fmt.Printf("hardware info: %q\n", payload)

	return nil
}
