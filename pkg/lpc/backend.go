// Copyright 2022 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lpc

import (
	"errors"

	"github.com/u-root/lpcprotect/pkg/pci"
)

var (
	// ErrNotProbed is returned by backend operations that need a bound
	// bridge before Probe found one.
	ErrNotProbed    = errors.New("lpc: backend has no bound device")
	// ErrAlreadySetup is returned by a second Dispatcher.Setup.
	ErrAlreadySetup = errors.New("lpc: dispatcher already set up")
)

// Backend is the driver for one chipset family.
type Backend interface {
	Name() string
	// Probe looks for the backend's bridge and binds to the first match.
	// Without a match it returns false and leaves the backend untouched.
	Probe() (bool, error)
	Features() Features
	// EnableWriteProtect locks the boot flash until the next platform
	// reset. It fails with ErrNotProbed on a backend that never matched.
	EnableWriteProtect() error
}

// Identity is the set of PCI functions a backend drives.
type Identity struct {
	Vendor  uint16
	Devices []uint16
}

// Matches reports whether d has the identity's vendor and one of its
// device IDs.
func (id Identity) Matches(d pci.Device) bool {
	if d.Vendor != id.Vendor {
		return false
	}
	for _, dev := range id.Devices {
		if d.Device == dev {
			return true
		}
	}
	return false
}

// find returns the first enumerated device matching id.
func find(e pci.Enumerator, id Identity) (pci.Device, bool, error) {
	devs, err := e.Devices()
	if err != nil {
		return pci.Device{}, false, err
	}
	for _, d := range devs {
		if id.Matches(d) {
			return d, true, nil
		}
	}
	return pci.Device{}, false, nil
}
