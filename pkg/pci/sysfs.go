// Copyright 2022 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pci

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const sysfsDevices = "/sys/bus/pci/devices"

// SysfsConfig reaches configuration space through the kernel's per device
// config file. Offsets beyond 0x40 need root.
type SysfsConfig struct {
	fs   afero.Fs
	root string
}

func NewSysfsConfig() *SysfsConfig {
	return newSysfsConfig(afero.NewOsFs(), sysfsDevices)
}

func newSysfsConfig(fs afero.Fs, root string) *SysfsConfig {
	return &SysfsConfig{fs: fs, root: root}
}

func (c *SysfsConfig) path(b BDF) string {
	return filepath.Join(c.root, b.String(), "config")
}

func (c *SysfsConfig) Read8(b BDF, off uint8) (uint8, error) {
	f, err := c.fs.Open(c.path(b))
	if err != nil {
		return 0, fmt.Errorf("open config space of %s: %w", b, err)
	}
	defer f.Close()
	d := make([]byte, 1)
	if _, err := f.ReadAt(d, int64(off)); err != nil {
		return 0, fmt.Errorf("read %s offset %#x: %w", b, off, err)
	}
	return d[0], nil
}

func (c *SysfsConfig) Write8(b BDF, off uint8, v uint8) error {
	f, err := c.fs.OpenFile(c.path(b), os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open config space of %s: %w", b, err)
	}
	if _, err := f.WriteAt([]byte{v}, int64(off)); err != nil {
		f.Close()
		return fmt.Errorf("write %s offset %#x: %w", b, off, err)
	}
	return f.Close()
}
