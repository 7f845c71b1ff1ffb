// Copyright 2022 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package handoff orders the last steps of a boot stage around the flash
// lock: the LPC bridge is found first, the stage does its work while the
// flash is still writable, and the flash is locked before control moves
// on or the stage gives up.
package handoff

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/u-root/lpcprotect/pkg/logger"
	"github.com/u-root/lpcprotect/pkg/lpc"
)

var log = logger.LogContainer.GetSimpleLogger()

// Step is one piece of work done while the flash is still writable.
type Step struct {
	Name string
	Run  func() error
}

// Sequence is the end of a boot stage, from finding the LPC bridge to
// handing over.
type Sequence struct {
	Dispatcher *lpc.Dispatcher
	// Steps run in order after the bridge has been probed and before the
	// flash is locked.
	Steps []Step
	// Handoff passes control to the next stage. On success it normally
	// does not return.
	Handoff func() error
	// MetricsFile, if set, receives a Prometheus text dump right before
	// the handoff.
	MetricsFile string
}

// Run executes the sequence. The flash is locked whether or not the steps
// succeed: a failed step means the next stage is not trusted, and whatever
// runs after the loader gives up must not be able to rewrite the firmware
// either. A failing step still aborts the boot before the handoff.
//
// A failure to lock is logged and the boot goes on: the platform is no
// worse off than one without a supported bridge.
func (s *Sequence) Run() error {
	if err := s.Dispatcher.Setup(); err != nil {
		return fmt.Errorf("LPC setup: %w", err)
	}
	for _, st := range s.Steps {
		log.Infof("Running %s", st.Name)
		if err := st.Run(); err != nil {
			s.lock()
			return fmt.Errorf("%s: %w", st.Name, err)
		}
	}
	s.lock()
	if s.Handoff == nil {
		return nil
	}
	return s.Handoff()
}

func (s *Sequence) lock() {
	if err := s.Dispatcher.WriteProtect(); err != nil {
		log.Errorf("Failed to write protect the boot flash: %v", err)
	}
	if s.MetricsFile != "" {
		if err := WriteMetrics(s.MetricsFile); err != nil {
			log.Warnf("Failed to write metrics: %v", err)
		}
	}
	logger.LogContainer.Sync()
}

// WriteMetrics dumps the default registry in the node exporter textfile
// format.
func WriteMetrics(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
