// Copyright 2022 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pci provides the small slice of PCI access needed to find a
// chipset bridge and poke a byte in its configuration space.
//
// Enumeration goes through the u-root sysfs bus reader. Configuration
// space can be reached either through the sysfs config file of the device
// or, on x86, through the legacy 0xCF8/0xCFC port pair.
package pci

import (
	"fmt"

	upci "github.com/u-root/u-root/pkg/pci"
)

// Device describes one present PCI function.
type Device struct {
	Vendor uint16
	Device uint16
	BDF    BDF
}

func (d Device) String() string {
	return fmt.Sprintf("%s [%04x:%04x]", d.BDF, d.Vendor, d.Device)
}

// Enumerator lists the PCI functions present on the platform.
type Enumerator interface {
	Devices() ([]Device, error)
}

// Config is byte granular access to PCI configuration space.
type Config interface {
	Read8(BDF, uint8) (uint8, error)
	Write8(BDF, uint8, uint8) error
}

// Devices is a fixed device list, mostly useful for tests and for
// callers that already enumerated the bus.
type Devices []Device

func (d Devices) Devices() ([]Device, error) {
	return d, nil
}

// BusEnumerator lists devices through a u-root bus reader.
type BusEnumerator struct {
	r upci.BusReader
}

// NewBusEnumerator reads every device below /sys/bus/pci/devices, or only
// those matching globs if any are given.
func NewBusEnumerator(globs ...string) (*BusEnumerator, error) {
	r, err := upci.NewBusReader(globs...)
	if err != nil {
		return nil, fmt.Errorf("open PCI bus: %w", err)
	}
	return &BusEnumerator{r}, nil
}

func (e *BusEnumerator) Devices() ([]Device, error) {
	devs, err := e.r.Read()
	if err != nil {
		return nil, fmt.Errorf("read PCI bus: %w", err)
	}
	out := make([]Device, 0, len(devs))
	for _, p := range devs {
		d, err := fromBus(p)
		if err != nil {
			// Devices outside segment 0 cannot be reached with a 16 bit
			// locator, the chipset bridge is never one of them.
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func fromBus(p *upci.PCI) (Device, error) {
	bdf, err := ParseBDF(p.Addr)
	if err != nil {
		return Device{}, err
	}
	return Device{Vendor: p.Vendor, Device: p.Device, BDF: bdf}, nil
}
