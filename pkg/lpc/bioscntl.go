// Copyright 2022 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lpc

import (
	"fmt"
	"strings"
)

const (
	// BIOS_CNTL lives in the LPC bridge (D31:F0) configuration space.
	// See Intel 8 Series/C220 Series PCH datasheet, 13.1.34.
	BiosCntlOffset uint8 = 0xdc

	// BIOSWE: while set, the boot flash accepts write cycles.
	BiosCntlBIOSWE BiosControl = 1 << 0
	// BLE: once set, BIOSWE can only be set from SMM. Cleared by reset only.
	BiosCntlBLE BiosControl = 1 << 1
	// SMM_BWP: flash writes additionally require all cores to be in SMM.
	BiosCntlSMMBWP BiosControl = 1 << 5
)

var biosCntlBits = []struct {
	bit  BiosControl
	name string
}{
	{BiosCntlBIOSWE, "BIOSWE"},
	{BiosCntlBLE, "BLE"},
	{1 << 2, "SRC0"},
	{1 << 3, "SRC1"},
	{1 << 4, "TSS"},
	{BiosCntlSMMBWP, "SMM_BWP"},
}

// BiosControl is the value of the BIOS control register.
type BiosControl uint8

// WriteProtected returns the register value with the flash locked. Bits
// other than BIOSWE, BLE and SMM_BWP control unrelated chipset behaviour
// and are kept as they are.
func (b BiosControl) WriteProtected() BiosControl {
	b &^= BiosCntlBIOSWE
	b |= BiosCntlBLE | BiosCntlSMMBWP
	return b
}

// Protected reports whether the register value locks the flash.
func (b BiosControl) Protected() bool {
	return b&BiosCntlBIOSWE == 0 && b&BiosCntlBLE != 0 && b&BiosCntlSMMBWP != 0
}

func (b BiosControl) String() string {
	var s []string
	for _, n := range biosCntlBits {
		if b&n.bit != 0 {
			s = append(s, n.name)
		}
	}
	return fmt.Sprintf("0x%02x [%s]", uint8(b), strings.Join(s, " "))
}
