// Copyright 2022 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pci

import (
	"testing"

	upci "github.com/u-root/u-root/pkg/pci"
)

func TestNewBDF(t *testing.T) {
	b := NewBDF(0, 0x1f, 0)
	if b != 0x00f8 {
		t.Errorf("Expected 00:1f.0 to pack as 0x00f8, got %#04x", uint16(b))
	}
	b = NewBDF(0x3a, 0x02, 0x5)
	if b.Bus() != 0x3a || b.Device() != 0x02 || b.Function() != 0x5 {
		t.Errorf("Unpacked %v into %02x:%02x.%x", b, b.Bus(), b.Device(), b.Function())
	}
}

func TestParseBDF(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want BDF
		err  bool
	}{
		{in: "0000:00:1f.0", want: NewBDF(0, 0x1f, 0)},
		{in: "00:1f.3", want: NewBDF(0, 0x1f, 3)},
		{in: "0000:ff:1f.7", want: NewBDF(0xff, 0x1f, 7)},
		{in: "0001:00:1f.0", err: true},
		{in: "0000:00:20.0", err: true},
		{in: "0000:00:1f.8", err: true},
		{in: "garbage", err: true},
		{in: "", err: true},
	} {
		got, err := ParseBDF(tc.in)
		if tc.err {
			if err == nil {
				t.Errorf("ParseBDF(%q) = %v, expected an error", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseBDF(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseBDF(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestBDFString(t *testing.T) {
	b := NewBDF(0x3a, 0x1f, 0x2)
	if s := b.String(); s != "0000:3a:1f.2" {
		t.Errorf("Expected 0000:3a:1f.2, got %s", s)
	}
	p, err := ParseBDF(b.String())
	if err != nil || p != b {
		t.Errorf("Expected %v to parse back, got %v (%v)", b, p, err)
	}
}

func TestFromBus(t *testing.T) {
	d, err := fromBus(&upci.PCI{Addr: "0000:00:1f.0", Vendor: 0x8086, Device: 0x8c4f})
	if err != nil {
		t.Fatalf("fromBus: %v", err)
	}
	want := Device{Vendor: 0x8086, Device: 0x8c4f, BDF: NewBDF(0, 0x1f, 0)}
	if d != want {
		t.Errorf("Expected %v, got %v", want, d)
	}
	if _, err := fromBus(&upci.PCI{Addr: "0001:00:00.0"}); err == nil {
		t.Errorf("Expected a device outside segment 0 to be rejected")
	}
}
