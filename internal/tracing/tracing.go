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

// Package tracing wires OpenTelemetry trace export for the RPC core:
// every call issued through service.Binding.CallContext gets a span,
// exported over OTLP/gRPC when an endpoint is configured.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the tracer every call-issuing component pulls spans from.
var Tracer = otel.Tracer("github.com/pbpctl/pbpctl/internal/maestro")

// Setup initializes OpenTelemetry tracing if endpoint is non-empty.
// With an empty endpoint it returns a no-op cleanup function so callers
// can defer the result unconditionally.
func Setup(endpoint string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	return initTracer(endpoint)
}

func initTracer(endpoint string) (func(context.Context) error, error) {
	exporter, err := otlptrace.New(
		context.Background(),
		otlptracegrpc.NewClient(
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithEndpoint(endpoint),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	resources, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", "pbpctl"),
			attribute.String("library.language", "go"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace resources: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resources),
	)
	otel.SetTracerProvider(provider)
	Tracer = provider.Tracer("github.com/pbpctl/pbpctl/internal/maestro")
	return exporter.Shutdown, nil
}

// StartCallSpan starts a span for one RPC call, named after the service
// path the call binds to (e.g. "maestro_pw.Maestro/GetSoftwareInfo").
func StartCallSpan(ctx context.Context, path string, channelID uint32) (context.Context, trace.Span) {
	return Tracer.Start(ctx, path, trace.WithAttributes(
		attribute.Int64("maestro.channel_id", int64(channelID)),
	))
}
