// Copyright 2022 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lpc

import (
	"fmt"

	"github.com/u-root/lpcprotect/pkg/pci"
	"github.com/u-root/lpcprotect/pkg/pci/ids"
)

// IntelPCH drives the LPC bridge of Intel Platform Controller Hubs.
type IntelPCH struct {
	id   Identity
	enum pci.Enumerator
	cfg  pci.Config

	bound *pci.Device
}

// PCHOption configures an IntelPCH.
type PCHOption func(*IntelPCH)

// WithDeviceIDs extends the set of recognised LPC bridge device IDs.
func WithDeviceIDs(devs ...uint16) PCHOption {
	return func(p *IntelPCH) {
		p.id.Devices = append(p.id.Devices, devs...)
	}
}

// NewIntelPCH returns an unbound backend for the Lynx Point QM87 bridge
// and any device IDs added through options.
func NewIntelPCH(enum pci.Enumerator, cfg pci.Config, opts ...PCHOption) *IntelPCH {
	p := &IntelPCH{
		id: Identity{
			Vendor: ids.VendorIntel,
			Devices: []uint16{
				ids.DeviceIntelLptQM87,
			},
		},
		enum: enum,
		cfg:  cfg,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Name implements Backend.
func (p *IntelPCH) Name() string {
	return "intel-pch"
}

// Probe binds to the first enumerated bridge with a known device ID.
// Probing again rescans the bus.
func (p *IntelPCH) Probe() (bool, error) {
	d, ok, err := find(p.enum, p.id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", p.Name(), err)
	}
	if !ok {
		return false, nil
	}
	p.bound = &d
	return true, nil
}

// Device returns the bridge the backend bound to during Probe.
func (p *IntelPCH) Device() (pci.Device, bool) {
	if p.bound == nil {
		return pci.Device{}, false
	}
	return *p.bound, true
}

func (p *IntelPCH) Features() Features {
	return FeatureFlashWriteProtect
}

func (p *IntelPCH) EnableWriteProtect() error {
	if p.bound == nil {
		return ErrNotProbed
	}
	bdf := p.bound.BDF
	v, err := p.cfg.Read8(bdf, BiosCntlOffset)
	if err != nil {
		return fmt.Errorf("%s: read BIOS_CNTL: %w", p.Name(), err)
	}
	v = uint8(BiosControl(v).WriteProtected())
	if err := p.cfg.Write8(bdf, BiosCntlOffset, v); err != nil {
		return fmt.Errorf("%s: write BIOS_CNTL: %w", p.Name(), err)
	}
	return nil
}

// LockState reads BIOS_CNTL without modifying it.
func (p *IntelPCH) LockState() (BiosControl, error) {
	if p.bound == nil {
		return 0, ErrNotProbed
	}
	v, err := p.cfg.Read8(p.bound.BDF, BiosCntlOffset)
	if err != nil {
		return 0, fmt.Errorf("%s: read BIOS_CNTL: %w", p.Name(), err)
	}
	return BiosControl(v), nil
}
