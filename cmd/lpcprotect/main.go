// Copyright 2022 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// lpcprotect reports whether the boot flash is locked by the LPC bridge
// and can lock it.
//
// Synopsis:
//
//	lpcprotect [-access sysfs|port] [-metrics FILE] [status|lock]
//
// Locking cannot be undone without a platform reset.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/u-root/lpcprotect/config"
	"github.com/u-root/lpcprotect/pkg/handoff"
	"github.com/u-root/lpcprotect/pkg/logger"
	"github.com/u-root/lpcprotect/pkg/lpc"
	"github.com/u-root/lpcprotect/pkg/pci"
	"github.com/u-root/lpcprotect/pkg/pci/ids"
)

var (
	access  = flag.String("access", config.DefaultConfig.Access, "PCI config space access method, sysfs or port")
	metrics = flag.String("metrics", "", "Write Prometheus metrics to this file when done")
	log     = logger.LogContainer.GetSimpleLogger()
)

func main() {
	flag.Parse()
	cmd := "status"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}
	if err := run(cmd); err != nil {
		log.Fatal(err)
	}
}

func run(cmd string) error {
	enum, err := pci.NewBusEnumerator()
	if err != nil {
		return err
	}
	cfg, err := pci.OpenConfig(*access)
	if err != nil {
		return err
	}
	d := lpc.NewDispatcher(config.DefaultConfig.LpcProtect, lpc.DefaultBackends(enum, cfg)...)
	if err := d.Setup(); err != nil {
		return err
	}

	switch cmd {
	case "status":
		status(os.Stdout, d)
	case "lock":
		if !config.DefaultConfig.LpcProtect {
			log.Warn("Flash write protection is disabled in this build")
		}
		if err := d.WriteProtect(); err != nil {
			return err
		}
		status(os.Stdout, d)
	default:
		return fmt.Errorf("unknown command %q, expected status or lock", cmd)
	}

	if *metrics != "" {
		return handoff.WriteMetrics(*metrics)
	}
	return nil
}

func status(w io.Writer, d *lpc.Dispatcher) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("LPC bridge")
	t.AppendHeader(table.Row{"Property", "Value"})
	t.AppendRow(table.Row{"Version", config.DefaultConfig.Version})
	t.AppendRow(table.Row{"State", d.State()})
	if err := d.ProbeErr(); err != nil {
		t.AppendRow(table.Row{"Probe errors", err})
	}
	if !d.IsDetected() {
		t.Render()
		return
	}
	b := d.Backend()
	t.AppendRow(table.Row{"Backend", b.Name()})
	if r, ok := b.(lpc.DeviceReporter); ok {
		if dev, ok := r.Device(); ok {
			t.AppendRow(table.Row{"Device", dev.BDF})
			t.AppendRow(table.Row{"Name", ids.Name(dev.Vendor, dev.Device)})
		}
	}
	t.AppendRow(table.Row{"Features", d.Features()})
	if r, ok := b.(lpc.LockReporter); ok {
		v, err := r.LockState()
		if err != nil {
			t.AppendRow(table.Row{"BIOS_CNTL", err})
		} else {
			t.AppendRow(table.Row{"BIOS_CNTL", v})
			t.AppendRow(table.Row{"Write protected", v.Protected()})
		}
	}
	t.Render()
}
