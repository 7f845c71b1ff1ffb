// Copyright 2022 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pci

import (
	"fmt"
)

// OpenConfig returns the configuration space accessor named by access,
// "sysfs" or "port".
func OpenConfig(access string) (Config, error) {
	switch access {
	case "", "sysfs":
		return NewSysfsConfig(), nil
	case "port":
		c, err := NewPortConfig()
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown PCI config access method %q", access)
}
