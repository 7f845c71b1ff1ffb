// Copyright 2022 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"strconv"
)

// Set at build time, e.g.
//
//	go build -ldflags "-X github.com/u-root/lpcprotect/config.lpcProtect=false"
var (
	lpcProtect = "true"
	gitVersion = "dev"
	gitHash    = "unknown"
)

// Version identifies the build, both fields come from -ldflags.
type Version struct {
	Version string
	GitHash string
}

func (v Version) String() string {
	return fmt.Sprintf("%s (%s)", v.Version, v.GitHash)
}

type Config struct {
	// LpcProtect enables locking the boot flash through the LPC bridge
	// before handing over to the next boot stage. Without it the flash
	// stays writable, which is what firmware update tooling needs.
	LpcProtect bool
	// Access selects how PCI configuration space is reached, "sysfs" or
	// "port".
	Access  string
	Version Version
}

var DefaultConfig = &Config{
	LpcProtect: parseBool(lpcProtect, true),
	Access:     "sysfs",
	Version: Version{
		Version: gitVersion,
		GitHash: gitHash,
	},
}

func parseBool(s string, def bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}
