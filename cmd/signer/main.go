// Copyright 2021 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// Tool to create the key pair the loader trusts and to sign the files of
// the next boot stage with it using minisign. It uses ED25519 and BLAKE2b
// under the hood.
//
// Synopsis:
//
//	signer -gen
//	signer -sign FILE
//
// Signing FILE writes FILE.minisig next to it.

package main

import (
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"aead.dev/minisign"
	"github.com/u-root/lpcprotect/pkg/logger"
	"github.com/u-root/lpcprotect/pkg/verify"
)

var (
	gen      = flag.Bool("gen", false, "Generates a key pair to sign files with")
	sign     = flag.String("sign", "", "File to sign")
	keyDir   = flag.String("keys", "keys", "Directory holding lpcprotect.key and lpcprotect.pub")
	password = flag.String("password", "lpcprotect", "Password protecting the private key")

	lc  = logger.LogContainer
	log = lc.GetLogger()
)

const (
	privateKeyName = "lpcprotect.key"
	publicKeyName  = "lpcprotect.pub"
)

func main() {
	flag.Parse()

	if *gen {
		check(generateKeypair(*keyDir, *password), "Failed to generate key pair")
		return
	}

	if *sign != "" {
		path, err := filepath.Abs(*sign)
		check(err, "Failed to evaluate file path")
		check(signFile(*keyDir, *password, path), "Failed to sign file")
		return
	}
	flag.Usage()
	os.Exit(2)
}

// generateKeypair refuses to replace an existing private key, files signed
// with it would no longer boot.
func generateKeypair(dir, password string) error {
	priv := filepath.Join(dir, privateKeyName)
	if _, err := os.Stat(priv); err == nil {
		return fmt.Errorf("private key %s already exists", priv)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	publicKey, privateKey, err := minisign.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}
	pk, err := minisign.EncryptKey(password, privateKey)
	if err != nil {
		return fmt.Errorf("encrypt private key: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := os.WriteFile(priv, pk, 0600); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, publicKeyName), []byte(publicKey.String()), 0644); err != nil {
		return err
	}
	log.Info("Generated key pair", lc.String("dir", dir))
	return nil
}

func signFile(dir, password, path string) error {
	key, err := minisign.PrivateKeyFromFile(password, filepath.Join(dir, privateKeyName))
	if err != nil {
		return fmt.Errorf("read private key: %w", err)
	}
	f, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sig := path + verify.SignatureSuffix
	if err := os.WriteFile(sig, minisign.Sign(key, f), 0644); err != nil {
		return err
	}
	log.Info("Signed file", lc.String("file", path), lc.String("signature", sig))
	return nil
}

func check(err error, msg string) {
	if err != nil {
		log.Fatal(msg, lc.String("err", err.Error()))
	}
}
