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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks the RPC client core's call traffic and frame decoding
// health.
type Metrics struct {
	CallsTotal       *prometheus.CounterVec
	CallDuration     *prometheus.HistogramVec
	PendingCalls     prometheus.Gauge
	FrameDecodeError prometheus.Counter
	BytesRead        prometheus.Counter
	BytesWritten     prometheus.Counter
}

// New constructs and registers a Metrics instance against the default
// Prometheus registry.
func New() *Metrics {
	m := &Metrics{
		CallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maestro_rpc_calls_total",
			Help: "The total number of RPC calls completed, by method and status",
		}, []string{"method", "status"}),
		CallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "maestro_rpc_call_duration_seconds",
			Help:    "Duration from call() to the call reaching a terminal state",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		PendingCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "maestro_rpc_pending_calls",
			Help: "The current number of pending calls in the client's table",
		}),
		FrameDecodeError: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "maestro_frame_decode_errors_total",
			Help: "The total number of HDLC frames dropped for failing to decode",
		}),
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "maestro_transport_bytes_read_total",
			Help: "The total number of bytes read from the transport",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "maestro_transport_bytes_written_total",
			Help: "The total number of bytes written to the transport",
		}),
	}
	m.register()
	return m
}

func (m *Metrics) register() {
	prometheus.MustRegister(m.CallsTotal)
	prometheus.MustRegister(m.CallDuration)
	prometheus.MustRegister(m.PendingCalls)
	prometheus.MustRegister(m.FrameDecodeError)
	prometheus.MustRegister(m.BytesRead)
	prometheus.MustRegister(m.BytesWritten)
}

// RecordCall records a completed call's terminal status and duration.
func (m *Metrics) RecordCall(method, status string, durationSeconds float64) {
	m.CallsTotal.WithLabelValues(method, status).Inc()
	m.CallDuration.WithLabelValues(method).Observe(durationSeconds)
}

// SetPendingCalls reports the current size of the pending-call table.
func (m *Metrics) SetPendingCalls(count float64) {
	m.PendingCalls.Set(count)
}

// IncrementFrameDecodeErrors records a dropped, undecodable frame.
func (m *Metrics) IncrementFrameDecodeErrors() {
	m.FrameDecodeError.Inc()
}

// AddBytesRead and AddBytesWritten track raw transport throughput.
func (m *Metrics) AddBytesRead(n float64) {
	m.BytesRead.Add(n)
}

func (m *Metrics) AddBytesWritten(n float64) {
	m.BytesWritten.Add(n)
}
