// Copyright 2016-2022 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// loader is the last program of the LinuxBoot stage. It finds the LPC
// bridge, mounts the next stage's root filesystem and checks its files
// against the minisign key, then locks the boot flash and hands over.
//
// In kexec mode the verified kernel is loaded with kexec. In switch mode
// an overlayfs is spanned over the rootfs and switch_root runs its init.
// Either way nothing after this program can write the boot flash until
// the platform is reset.

package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/u-root/lpcprotect/config"
	"github.com/u-root/lpcprotect/pkg/handoff"
	"github.com/u-root/lpcprotect/pkg/logger"
	"github.com/u-root/lpcprotect/pkg/lpc"
	"github.com/u-root/lpcprotect/pkg/pci"
	"github.com/u-root/lpcprotect/pkg/verify"
	"github.com/u-root/u-root/pkg/boot/kexec"
	"github.com/u-root/u-root/pkg/kmodule"
	uroot "github.com/u-root/u-root/pkg/mount"
	"golang.org/x/sys/unix"
)

const (
	pubKeyPath = "/lpcprotect.pub"
	kernelPath = "/ro/boot/bzImage"
	initrdPath = "/ro/boot/initramfs.cpio"
	initPath   = "/ro/bin/init"
)

var (
	kload   = flag.Bool("kexec", false, "Mount rootfs and call kexec")
	swroot  = flag.Bool("switch", false, "Mount rootfs and call switch_root")
	blk     = flag.Bool("blk", false, "Mount the next stage from a block device")
	dev     = flag.String("dev", "", "Block device holding the next stage, found by UUID if empty")
	fstype  = flag.String("fstype", "erofs", "Filesystem type of the next stage")
	cmdline = flag.String("cmdline", "", "Kernel command line for kexec")
	kmod    = flag.String("kmod", "", "Kernel module to load before mounting")
	access  = flag.String("access", config.DefaultConfig.Access, "PCI config space access method, sysfs or port")
	metrics = flag.String("metrics", "", "Write Prometheus metrics to this file before handing over")

	toVerify = []string{initPath, kernelPath}
	lc       = logger.LogContainer
	log      = lc.GetLogger()
)

func main() {
	flag.Parse()
	if *kload && *swroot {
		log.Fatal("kexec and switch are mutually exclusive!")
	}
	if !*kload && !*swroot {
		log.Fatal("please choose either kexec or switch!")
	}
	createBasicHirarchy()
	// The log file opened at startup sits below the fresh tmpfs now.
	lc.Reopen()
	v := config.DefaultConfig.Version
	log.Info("Starting loader", lc.String("version", v.Version), lc.String("commit", v.GitHash))

	s := &handoff.Sequence{
		Dispatcher:  dispatcher(),
		MetricsFile: *metrics,
	}
	if *kmod != "" {
		s.Steps = append(s.Steps, handoff.Step{Name: "load " + *kmod, Run: func() error { return loadModule(*kmod) }})
	}
	s.Steps = append(s.Steps, handoff.Step{Name: "mount next stage", Run: mountRoot})
	if *kload {
		s.Steps = append(s.Steps, handoff.Step{Name: "verify next stage", Run: verifyAll})
		s.Handoff = loadAndExec
	}
	if *swroot {
		s.Steps = append(s.Steps, handoff.Step{Name: "mount overlay", Run: mountOverlay})
		s.Handoff = func() error { return uroot.SwitchRoot("/mnt", "/bin/init") }
	}
	check(s.Run(), "Boot failed")
}

// dispatcher never fails: without a usable PCI bus the platform is treated
// as one without a supported bridge.
func dispatcher() *lpc.Dispatcher {
	enabled := config.DefaultConfig.LpcProtect
	enum, err := pci.NewBusEnumerator()
	if err != nil {
		log.Warn("PCI enumeration unavailable", lc.String("err", err.Error()))
		return lpc.NewDispatcher(enabled)
	}
	cfg, err := pci.OpenConfig(*access)
	if err != nil {
		log.Warn("PCI config space unavailable", lc.String("err", err.Error()))
		return lpc.NewDispatcher(enabled)
	}
	return lpc.NewDispatcher(enabled, lpc.DefaultBackends(enum, cfg)...)
}

// loadAndExec loads the verified kernel with kexec_file_load and jumps
// into it.
func loadAndExec() error {
	kernel, err := os.Open(kernelPath)
	if err != nil {
		return err
	}
	defer kernel.Close()
	var initrd *os.File
	if f, err := os.Open(initrdPath); err == nil {
		initrd = f
		defer initrd.Close()
	}
	if err := kexec.FileLoad(kernel, initrd, *cmdline); err != nil {
		return fmt.Errorf("kexec_file_load: %w", err)
	}
	return kexec.Reboot()
}

// createBasicHirarchy creates some basic directories and mounts if they don't exist yet
func createBasicHirarchy() {
	dirs := []string{"/mnt", "/ro", "/tmp", "/proc", "/sys", "/dev"}
	for _, dir := range dirs {
		check(os.MkdirAll(dir, 0755), fmt.Sprintf("Failed to create %s", dir))
	}

	mnts := []string{"sysfs", "proc", "devtmpfs", "tmpfs"}
	for _, mnt := range mnts {
		if err := mount(mnt); err != nil && !errors.Is(err, unix.EBUSY) {
			check(err, fmt.Sprintf("Failed mounting %s", mnt))
		}
	}
}

func mountRoot() error {
	if *dev != "" {
		return unix.Mount(*dev, "/ro", *fstype, unix.MS_RDONLY, "")
	}
	if !*blk {
		return fmt.Errorf("no device given, use -dev or -blk")
	}
	return mountBlk()
}

// mountBlk mounts the first block device carrying the next stage's erofs UUID
func mountBlk() error {
	var offset int64 = 1072 // This is the offset at which erofs stores the UUID
	var data = make([]byte, 16)
	var uuid = []byte{0x26, 0xab, 0x04, 0x01, 0x3f, 0x49, 0x4f, 0xc2, 0xa1, 0x72, 0xc8, 0xaa, 0x02, 0xac, 0xea, 0xf3}

	devs, _ := filepath.Glob("/sys/class/block/*")
	for _, d := range devs {
		d = "/dev/" + filepath.Base(d)
		bd, err := os.Open(d)
		if err != nil {
			continue
		}
		_, err = bd.ReadAt(data, offset)
		bd.Close()
		if err == nil && bytes.Equal(data, uuid) {
			return unix.Mount(d, "/ro", *fstype, unix.MS_RDONLY, "")
		}
	}
	return fmt.Errorf("no block device with the next stage found")
}

// mountOverlay mounts the overlayfs on top of the ro root
func mountOverlay() error {
	for _, dir := range []string{"/tmp/upper", "/tmp/work"} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return mount("overlayfs")
}

// Abstraction for unix.Mount
func mount(fs string) error {
	switch fs {
	case "proc":
		return unix.Mount(fs, "/proc", fs, 0, "")
	case "sysfs":
		return unix.Mount(fs, "/sys", fs, 0, "")
	case "devtmpfs":
		return unix.Mount(fs, "/dev", fs, 0, "")
	case "tmpfs":
		return unix.Mount(fs, "/tmp", fs, 0, "")
	case "overlayfs":
		return unix.Mount(fs, "/mnt", "overlay", 0, "lowerdir=/ro,upperdir=/tmp/upper,workdir=/tmp/work")
	}
	return fmt.Errorf("unknown filesystem %s", fs)
}

func verifyAll() error {
	if err := verify.Files(pubKeyPath, toVerify...); err != nil {
		return err
	}
	log.Info("Integrity check OK")
	return nil
}

func loadModule(fp string) error {
	f, err := os.Open(fp)
	if err != nil {
		return err
	}
	defer f.Close()
	return kmodule.FileInit(f, "", 0)
}

func check(err error, msg string) {
	if err != nil {
		log.Fatal(msg, lc.String("err", err.Error()))
	}
}
