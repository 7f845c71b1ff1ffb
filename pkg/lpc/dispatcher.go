// Copyright 2022 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lpc selects the driver for the platform's LPC bridge and uses it
// to lock the boot flash before the next boot stage runs.
//
// A platform without a known bridge is not an error: every query reports
// nothing supported and WriteProtect does nothing.
package lpc

import (
	"github.com/hashicorp/go-multierror"
	"github.com/u-root/lpcprotect/pkg/logger"
	"github.com/u-root/lpcprotect/pkg/pci"
)

var log = logger.LogContainer.GetSimpleLogger()

// State tracks how far bridge detection got.
type State int

const (
	Unprobed State = iota
	Detected
	Unsupported
)

func (s State) String() string {
	switch s {
	case Unprobed:
		return "unprobed"
	case Detected:
		return "detected"
	case Unsupported:
		return "unsupported"
	}
	return "invalid"
}

// LockReporter is implemented by backends that can read back the lock
// state without changing it.
type LockReporter interface {
	LockState() (BiosControl, error)
}

// DeviceReporter is implemented by backends that bind to a PCI function.
type DeviceReporter interface {
	Device() (pci.Device, bool)
}

// Dispatcher owns the backend selected for this boot.
type Dispatcher struct {
	enabled  bool
	backends []Backend

	state    State
	selected Backend
	probeErr error
}

// NewDispatcher returns a dispatcher trying backends in the given order.
// enabled is the build time switch for flash write protection.
func NewDispatcher(enabled bool, backends ...Backend) *Dispatcher {
	return &Dispatcher{enabled: enabled, backends: backends}
}

// DefaultBackends lists every known backend in probe order.
func DefaultBackends(enum pci.Enumerator, cfg pci.Config) []Backend {
	return []Backend{
		NewIntelPCH(enum, cfg),
	}
}

// Setup selects the first backend whose hardware is present. A backend
// that fails to probe counts as absent. Setup runs once per boot.
func (d *Dispatcher) Setup() error {
	if d.state != Unprobed {
		return ErrAlreadySetup
	}
	var errs error
	for _, b := range d.backends {
		ok, err := b.Probe()
		if err != nil {
			log.Warnf("Probing LPC backend %s failed: %v", b.Name(), err)
			errs = multierror.Append(errs, err)
			continue
		}
		if ok {
			d.selected = b
			break
		}
	}
	d.probeErr = errs
	if d.selected == nil {
		d.state = Unsupported
		backendDetected.Set(0)
		log.Infof("No supported LPC bridge found")
		return nil
	}
	d.state = Detected
	backendDetected.Set(1)
	if r, ok := d.selected.(DeviceReporter); ok {
		if dev, ok := r.Device(); ok {
			log.Infof("LPC backend %s bound to %v", d.selected.Name(), dev)
			return nil
		}
	}
	log.Infof("LPC backend %s selected", d.selected.Name())
	return nil
}

func (d *Dispatcher) State() State {
	return d.state
}

func (d *Dispatcher) IsDetected() bool {
	return d.state == Detected
}

// Backend returns the selected backend, nil unless detected.
func (d *Dispatcher) Backend() Backend {
	return d.selected
}

// ProbeErr returns the accumulated errors of backends that failed to probe.
func (d *Dispatcher) ProbeErr() error {
	return d.probeErr
}

func (d *Dispatcher) Features() Features {
	if !d.IsDetected() {
		return 0
	}
	return d.selected.Features()
}

func (d *Dispatcher) CanWriteProtect() bool {
	return d.Features().Has(FeatureFlashWriteProtect)
}

// WriteProtect locks the boot flash if write protection is enabled and the
// selected backend supports it. Until the next platform reset nothing can
// undo this, so call it right before handing over to the next stage.
//
// An unsupported platform is not an error; only a failed register access
// is reported.
func (d *Dispatcher) WriteProtect() error {
	if !d.enabled {
		log.Infof("Flash write protection disabled in configuration")
		return nil
	}
	if !d.CanWriteProtect() {
		return nil
	}
	writeProtectRequested.Inc()
	if err := d.selected.EnableWriteProtect(); err != nil {
		writeProtectErrors.Inc()
		return err
	}
	writeProtectApplied.Set(1)
	log.Infof("Boot flash write protected by %s", d.selected.Name())
	return nil
}
