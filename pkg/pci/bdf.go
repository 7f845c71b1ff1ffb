// Copyright 2022 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pci

import (
	"fmt"
)

// BDF is a bus/device/function locator packed the way the legacy
// configuration mechanism expects it: bus in bits 15:8, device in bits 7:3
// and function in bits 2:0.
type BDF uint16

func NewBDF(bus, dev, fn uint8) BDF {
	return BDF(uint16(bus)<<8 | uint16(dev&0x1f)<<3 | uint16(fn&0x7))
}

func (b BDF) Bus() uint8 {
	return uint8(b >> 8)
}

func (b BDF) Device() uint8 {
	return uint8(b>>3) & 0x1f
}

func (b BDF) Function() uint8 {
	return uint8(b) & 0x7
}

// String formats the locator like the kernel names sysfs entries, always in
// PCI segment 0.
func (b BDF) String() string {
	return fmt.Sprintf("0000:%02x:%02x.%x", b.Bus(), b.Device(), b.Function())
}

// ParseBDF parses "bus:dev.fn" with an optional leading segment, e.g.
// "0000:00:1f.0". Only segment 0 can be addressed with a 16 bit locator.
func ParseBDF(s string) (BDF, error) {
	var seg, bus, dev, fn uint
	if n, err := fmt.Sscanf(s, "%x:%x:%x.%x", &seg, &bus, &dev, &fn); err != nil || n != 4 {
		seg = 0
		if n, err := fmt.Sscanf(s, "%x:%x.%x", &bus, &dev, &fn); err != nil || n != 3 {
			return 0, fmt.Errorf("malformed PCI address %q", s)
		}
	}
	if seg != 0 {
		return 0, fmt.Errorf("PCI address %q: segment %#x is not addressable", s, seg)
	}
	if bus > 0xff || dev > 0x1f || fn > 0x7 {
		return 0, fmt.Errorf("PCI address %q out of range", s)
	}
	return NewBDF(uint8(bus), uint8(dev), uint8(fn)), nil
}
