// Copyright 2022 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lpc

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	backendDetected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lpc",
		Name:      "backend_detected",
		Help:      "Whether a supported LPC bridge was found this boot",
	})
	writeProtectRequested = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lpc",
		Name:      "write_protect_requested_total",
		Help:      "Number of attempts to lock the boot flash",
	})
	writeProtectApplied = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lpc",
		Name:      "write_protect_applied",
		Help:      "Whether the boot flash lock sequence completed",
	})
	writeProtectErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lpc",
		Name:      "write_protect_errors_total",
		Help:      "Number of failed boot flash lock sequences",
	})
)

func init() {
	prometheus.MustRegister(backendDetected)
	prometheus.MustRegister(writeProtectRequested)
	prometheus.MustRegister(writeProtectApplied)
	prometheus.MustRegister(writeProtectErrors)
}
