// Copyright 2022 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ids holds the PCI vendor and device identifiers lpcprotect knows.
package ids

import (
	"fmt"
)

const (
	VendorIntel uint16 = 0x8086
)

// Intel LPC bridges.
const (
	// Lynx Point QM87, 8 Series mobile PCH
	DeviceIntelLptQM87 uint16 = 0x8c4f
)

var (
	vendors = map[uint16]string{
		VendorIntel: "Intel Corporation",
	}

	devices = map[uint32]string{
		key(VendorIntel, DeviceIntelLptQM87): "QM87 Express LPC Controller",
	}
)

func key(vendor, device uint16) uint32 {
	return uint32(vendor)<<16 | uint32(device)
}

// Name returns a human readable name for a vendor/device pair, falling back
// to the raw identifiers.
func Name(vendor, device uint16) string {
	v, ok := vendors[vendor]
	if !ok {
		v = fmt.Sprintf("%04x", vendor)
	}
	d, ok := devices[key(vendor, device)]
	if !ok {
		d = fmt.Sprintf("%04x", device)
	}
	return v + " " + d
}
