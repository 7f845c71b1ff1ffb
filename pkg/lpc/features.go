// Copyright 2022 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lpc

import (
	"strings"
)

// Features is the set of optional capabilities a backend advertises.
type Features uint32

const (
	FeatureFlashWriteProtect Features = 1 << iota
)

var featureNames = []struct {
	f    Features
	name string
}{
	{FeatureFlashWriteProtect, "flash-write-protect"},
}

func (f Features) Has(o Features) bool {
	return f&o == o && o != 0
}

func (f Features) String() string {
	if f == 0 {
		return "none"
	}
	var s []string
	for _, n := range featureNames {
		if f.Has(n.f) {
			s = append(s, n.name)
			f &^= n.f
		}
	}
	if f != 0 {
		s = append(s, "unknown")
	}
	return strings.Join(s, ",")
}
