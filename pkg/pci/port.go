// Copyright 2022 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pci

import (
	"fmt"

	"github.com/u-root/u-root/pkg/memio"
)

const (
	configAddressPort = 0xcf8
	configDataPort    = 0xcfc

	configEnable = 1 << 31
)

// PortConfig uses configuration mechanism #1, the same path firmware uses
// before any OS is around. It only reaches the first 256 bytes of a
// function, which is all a chipset bridge needs.
type PortConfig struct {
	In  func(uint16, memio.UintN) error
	Out func(uint16, memio.UintN) error
}

func configAddress(b BDF, off uint8) memio.Uint32 {
	return memio.Uint32(configEnable | uint32(b)<<8 | uint32(off&0xfc))
}

func (c *PortConfig) selectRegister(b BDF, off uint8) error {
	a := configAddress(b, off)
	if err := c.Out(configAddressPort, &a); err != nil {
		return fmt.Errorf("select %s offset %#x: %w", b, off, err)
	}
	return nil
}

func (c *PortConfig) Read8(b BDF, off uint8) (uint8, error) {
	if err := c.selectRegister(b, off); err != nil {
		return 0, err
	}
	var d memio.Uint8
	if err := c.In(configDataPort+uint16(off&3), &d); err != nil {
		return 0, fmt.Errorf("read %s offset %#x: %w", b, off, err)
	}
	return uint8(d), nil
}

func (c *PortConfig) Write8(b BDF, off uint8, v uint8) error {
	if err := c.selectRegister(b, off); err != nil {
		return err
	}
	d := memio.Uint8(v)
	if err := c.Out(configDataPort+uint16(off&3), &d); err != nil {
		return fmt.Errorf("write %s offset %#x: %w", b, off, err)
	}
	return nil
}
