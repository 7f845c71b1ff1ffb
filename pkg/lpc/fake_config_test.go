// Copyright 2022 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lpc

import (
	"fmt"
	"testing"

	"github.com/u-root/lpcprotect/pkg/pci"
)

type op struct {
	write bool
	bdf   pci.BDF
	off   uint8
	data  uint8
}

func opstr(o *op) string {
	t := "read"
	if o.write {
		t = "write"
	}
	return fmt.Sprintf("{%s @ %v+%02x = %02x}", t, o.bdf, o.off, o.data)
}

// fakeConfig replays a script of expected configuration space accesses.
type fakeConfig struct {
	t      *testing.T
	ops    []op
	writes int
}

func (c *fakeConfig) next(a string, b pci.BDF, off uint8) (op, bool) {
	if len(c.ops) == 0 {
		c.t.Errorf("Unexpected %s on %v+%02x", a, b, off)
		return op{}, false
	}
	o := c.ops[0]
	c.ops = c.ops[1:]
	return o, true
}

func (c *fakeConfig) Read8(b pci.BDF, off uint8) (uint8, error) {
	o, ok := c.next("read", b, off)
	if !ok {
		return 0, nil
	}
	if o.write || o.bdf != b || o.off != off {
		c.t.Errorf("Expected %s, got read on %v+%02x", opstr(&o), b, off)
	}
	return o.data, nil
}

func (c *fakeConfig) Write8(b pci.BDF, off uint8, d uint8) error {
	c.writes++
	o, ok := c.next("write", b, off)
	if !ok {
		return nil
	}
	if !o.write || o.bdf != b || o.off != off || o.data != d {
		c.t.Errorf("Expected %s, got write of %02x on %v+%02x", opstr(&o), d, b, off)
	}
	return nil
}

func (c *fakeConfig) ExpectWrite8(b pci.BDF, off uint8, d uint8) {
	c.ops = append(c.ops, op{true, b, off, d})
}

func (c *fakeConfig) FakeRead8(b pci.BDF, off uint8, d uint8) {
	c.ops = append(c.ops, op{false, b, off, d})
}

func (c *fakeConfig) Done() {
	c.t.Helper()
	for _, o := range c.ops {
		c.t.Errorf("Expected access never happened: %s", opstr(&o))
	}
}

func fakeConfigSpace(t *testing.T) *fakeConfig {
	return &fakeConfig{t: t}
}

// failingConfig fails every access.
type failingConfig struct {
	err error
}

func (c failingConfig) Read8(pci.BDF, uint8) (uint8, error) {
	return 0, c.err
}

func (c failingConfig) Write8(pci.BDF, uint8, uint8) error {
	return c.err
}

type failingEnumerator struct {
	err error
}

func (e failingEnumerator) Devices() ([]pci.Device, error) {
	return nil, e.err
}
