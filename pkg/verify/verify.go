// Copyright 2021 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package verify checks files of the next boot stage against detached
// minisign signatures stored next to them as FILE.minisig.
package verify

import (
	"fmt"
	"os"

	"aead.dev/minisign"
)

// SignatureSuffix is appended to a file's path to find its signature.
const SignatureSuffix = ".minisig"

// Files verifies every path against the public key stored at keyPath and
// stops at the first failure.
func Files(keyPath string, paths ...string) error {
	key, err := minisign.PublicKeyFromFile(keyPath)
	if err != nil {
		return fmt.Errorf("read public key %s: %w", keyPath, err)
	}
	for _, p := range paths {
		if err := File(key, p); err != nil {
			return err
		}
	}
	return nil
}

func File(key minisign.PublicKey, path string) error {
	f, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sig, err := os.ReadFile(path + SignatureSuffix)
	if err != nil {
		return err
	}
	if !minisign.Verify(key, f, sig) {
		return fmt.Errorf("signature for %s does not match", path)
	}
	return nil
}
