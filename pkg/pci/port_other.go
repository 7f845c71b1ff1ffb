// Copyright 2022 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux || !(amd64 || 386)
// +build !linux !amd64,!386

package pci

import (
	"fmt"
	"runtime"
)

func NewPortConfig() (*PortConfig, error) {
	return nil, fmt.Errorf("port configuration access is not available on %s/%s", runtime.GOOS, runtime.GOARCH)
}
