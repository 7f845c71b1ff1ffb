// Copyright 2022 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lpc

import (
	"errors"
	"testing"

	pt "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/u-root/lpcprotect/pkg/logger"
	"github.com/u-root/lpcprotect/pkg/pci"
	"github.com/u-root/lpcprotect/pkg/pci/ids"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	core, logs := observer.New(zapcore.InfoLevel)
	t.Cleanup(logger.LogContainer.SetLogger(zap.New(core)))
	return logs
}

// fakeBackend matches a single vendor/device pair.
type fakeBackend struct {
	name     string
	id       Identity
	enum     pci.Enumerator
	features Features
	probeErr error

	probes  int
	bound   *pci.Device
	protect int
}

func (b *fakeBackend) Name() string {
	return b.name
}

func (b *fakeBackend) Probe() (bool, error) {
	b.probes++
	if b.probeErr != nil {
		return false, b.probeErr
	}
	d, ok, err := find(b.enum, b.id)
	if err != nil || !ok {
		return false, err
	}
	b.bound = &d
	return true, nil
}

func (b *fakeBackend) Features() Features {
	return b.features
}

func (b *fakeBackend) EnableWriteProtect() error {
	if b.bound == nil {
		return ErrNotProbed
	}
	b.protect++
	return nil
}

func TestDispatcherUnprobed(t *testing.T) {
	d := NewDispatcher(true, NewIntelPCH(pci.Devices{qm87}, fakeConfigSpace(t)))
	if d.State() != Unprobed {
		t.Errorf("Expected new dispatcher to be unprobed, was %v", d.State())
	}
	if d.IsDetected() || d.Features() != 0 || d.CanWriteProtect() {
		t.Errorf("Unprobed dispatcher reports capabilities")
	}
	if err := d.WriteProtect(); err != nil {
		t.Errorf("WriteProtect before Setup: %v", err)
	}
}

func TestDispatcherUnsupported(t *testing.T) {
	logs := observeLogs(t)
	fc := fakeConfigSpace(t)
	d := NewDispatcher(true, DefaultBackends(pci.Devices{hostBridge, impostor}, fc)...)
	if err := d.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if d.State() != Unsupported {
		t.Errorf("Expected unsupported, was %v", d.State())
	}
	if d.IsDetected() {
		t.Errorf("Dispatcher detected a backend on unsupported hardware")
	}
	if f := d.Features(); f != 0 {
		t.Errorf("Expected no features, got %v", f)
	}
	if d.Backend() != nil {
		t.Errorf("Unsupported dispatcher selected %v", d.Backend().Name())
	}
	if err := d.WriteProtect(); err != nil {
		t.Errorf("WriteProtect on unsupported hardware: %v", err)
	}
	if fc.writes != 0 {
		t.Errorf("Expected no config writes, got %d", fc.writes)
	}
	if v := pt.ToFloat64(backendDetected); v != 0 {
		t.Errorf("Expected backend detected metric to be 0, was %v", v)
	}
	if n := logs.FilterMessage("No supported LPC bridge found").Len(); n != 1 {
		t.Errorf("Expected the missing bridge to be logged once, got %d", n)
	}
	fc.Done()
}

func TestDispatcherDetected(t *testing.T) {
	fc := fakeConfigSpace(t)
	d := NewDispatcher(true, DefaultBackends(pci.Devices{hostBridge, qm87}, fc)...)
	if err := d.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if !d.IsDetected() {
		t.Fatalf("Expected detected, was %v", d.State())
	}
	if !d.CanWriteProtect() {
		t.Errorf("Expected detected PCH to support write protection")
	}
	r, ok := d.Backend().(DeviceReporter)
	if !ok {
		t.Fatalf("Intel PCH backend does not report its device")
	}
	if dev, ok := r.Device(); !ok || dev.BDF != lpcBridge {
		t.Errorf("Expected bound device at %v, got %v", lpcBridge, dev)
	}
	if v := pt.ToFloat64(backendDetected); v != 1 {
		t.Errorf("Expected backend detected metric to be 1, was %v", v)
	}

	applied := pt.ToFloat64(writeProtectRequested)
	fc.FakeRead8(lpcBridge, 0xdc, 0x09)
	fc.ExpectWrite8(lpcBridge, 0xdc, 0x2a)
	if err := d.WriteProtect(); err != nil {
		t.Fatalf("WriteProtect: %v", err)
	}
	fc.Done()
	if v := pt.ToFloat64(writeProtectRequested); v != applied+1 {
		t.Errorf("Expected one more lock request, metric went from %v to %v", applied, v)
	}
	if v := pt.ToFloat64(writeProtectApplied); v != 1 {
		t.Errorf("Expected write protect applied metric to be 1, was %v", v)
	}
}

func TestDispatcherDisabled(t *testing.T) {
	fc := fakeConfigSpace(t)
	d := NewDispatcher(false, DefaultBackends(pci.Devices{qm87}, fc)...)
	if err := d.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if !d.CanWriteProtect() {
		t.Fatalf("Expected detected PCH to support write protection")
	}
	if err := d.WriteProtect(); err != nil {
		t.Errorf("WriteProtect: %v", err)
	}
	if fc.writes != 0 {
		t.Errorf("Disabled write protection wrote config space %d times", fc.writes)
	}
	fc.Done()
}

func TestDispatcherFirstBackendWins(t *testing.T) {
	other := pci.Device{Vendor: 0x1022, Device: 0x790e, BDF: pci.NewBDF(0, 0x14, 3)}
	devs := pci.Devices{other, qm87}
	first := &fakeBackend{name: "intel", id: Identity{ids.VendorIntel, []uint16{ids.DeviceIntelLptQM87}}, enum: devs, features: FeatureFlashWriteProtect}
	second := &fakeBackend{name: "amd", id: Identity{0x1022, []uint16{0x790e}}, enum: devs, features: FeatureFlashWriteProtect}

	for _, tc := range []struct {
		order []*fakeBackend
		want  string
	}{
		{[]*fakeBackend{first, second}, "intel"},
		{[]*fakeBackend{second, first}, "amd"},
	} {
		first.probes, second.probes = 0, 0
		var bs []Backend
		for _, b := range tc.order {
			bs = append(bs, b)
		}
		d := NewDispatcher(true, bs...)
		if err := d.Setup(); err != nil {
			t.Fatalf("Setup: %v", err)
		}
		if got := d.Backend().Name(); got != tc.want {
			t.Errorf("Expected %s to be selected, got %s", tc.want, got)
		}
		if tc.order[1].probes != 0 {
			t.Errorf("Backend %s probed after a match", tc.order[1].name)
		}
	}
}

func TestDispatcherProbeErrorFallsThrough(t *testing.T) {
	logs := observeLogs(t)
	broken := &fakeBackend{name: "broken", probeErr: errors.New("no access")}
	working := &fakeBackend{name: "working", id: Identity{ids.VendorIntel, []uint16{ids.DeviceIntelLptQM87}}, enum: pci.Devices{qm87}, features: FeatureFlashWriteProtect}
	d := NewDispatcher(true, broken, working)
	if err := d.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if d.Backend() != working {
		t.Errorf("Expected working backend to be selected")
	}
	if d.ProbeErr() == nil {
		t.Errorf("Expected probe failure to be recorded")
	}
	failed := logs.FilterMessage("Probing LPC backend broken failed: no access").All()
	if len(failed) != 1 || failed[0].Level != zapcore.WarnLevel {
		t.Errorf("Expected one warning about the broken backend, got %+v", failed)
	}
	if err := d.WriteProtect(); err != nil || working.protect != 1 {
		t.Errorf("Expected one lock on the working backend, got %d (%v)", working.protect, err)
	}
}

func TestDispatcherFeatureGate(t *testing.T) {
	b := &fakeBackend{name: "nofeatures", id: Identity{ids.VendorIntel, []uint16{ids.DeviceIntelLptQM87}}, enum: pci.Devices{qm87}}
	d := NewDispatcher(true, b)
	if err := d.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if !d.IsDetected() || d.CanWriteProtect() {
		t.Fatalf("Expected a detected backend without write protection")
	}
	if err := d.WriteProtect(); err != nil {
		t.Errorf("WriteProtect: %v", err)
	}
	if b.protect != 0 {
		t.Errorf("Backend without the feature was asked to lock")
	}
}

func TestDispatcherSetupOnce(t *testing.T) {
	b := &fakeBackend{name: "intel", id: Identity{ids.VendorIntel, []uint16{ids.DeviceIntelLptQM87}}, enum: pci.Devices{qm87}}
	d := NewDispatcher(true, b)
	if err := d.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := d.Setup(); !errors.Is(err, ErrAlreadySetup) {
		t.Errorf("Expected ErrAlreadySetup, got %v", err)
	}
	if b.probes != 1 {
		t.Errorf("Expected a single probe, got %d", b.probes)
	}
}

func TestDispatcherWriteProtectError(t *testing.T) {
	want := errors.New("bus error")
	d := NewDispatcher(true, DefaultBackends(pci.Devices{qm87}, failingConfig{want})...)
	if err := d.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	before := pt.ToFloat64(writeProtectErrors)
	if err := d.WriteProtect(); !errors.Is(err, want) {
		t.Errorf("Expected %v, got %v", want, err)
	}
	if v := pt.ToFloat64(writeProtectErrors); v != before+1 {
		t.Errorf("Expected error metric to increase, went from %v to %v", before, v)
	}
}

func TestFeatures(t *testing.T) {
	var none Features
	if none.Has(FeatureFlashWriteProtect) {
		t.Errorf("Empty feature set has write protection")
	}
	if none.Has(0) {
		t.Errorf("Empty feature set has the empty feature")
	}
	if !FeatureFlashWriteProtect.Has(FeatureFlashWriteProtect) {
		t.Errorf("Write protect feature set lacks write protection")
	}
	if s := none.String(); s != "none" {
		t.Errorf("Expected none, got %s", s)
	}
	if s := (FeatureFlashWriteProtect | 1<<7).String(); s != "flash-write-protect,unknown" {
		t.Errorf("Unexpected formatting: %s", s)
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		Unprobed:    "unprobed",
		Detected:    "detected",
		Unsupported: "unsupported",
		State(42):   "invalid",
	} {
		if got := s.String(); got != want {
			t.Errorf("State(%d) = %s, want %s", int(s), got, want)
		}
	}
}
