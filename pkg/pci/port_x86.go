// Copyright 2022 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux && (amd64 || 386)
// +build linux
// +build amd64 386

package pci

import (
	"github.com/u-root/u-root/pkg/memio"
)

// NewPortConfig returns configuration mechanism #1 backed by /dev/port.
func NewPortConfig() (*PortConfig, error) {
	return &PortConfig{
		In:  memio.In,
		Out: memio.Out,
	}, nil
}
