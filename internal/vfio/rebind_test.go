/*
 * Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package vfio

import (
	"fmt"
	"testing"

	testlog "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/vfio-hook/internal/linuxutils"
	"github.com/NVIDIA/vfio-hook/internal/pci"
)

// fakeHost models the parts of kernel driver state the Rebinder touches.
type fakeHost struct {
	devices    map[string]*pci.DeviceState
	ops        []string
	failUnload map[string]error
	failLoad   error
	failUnbind error
	failNewID  error
	failRead   map[string]error
}

func newFakeHost(devices ...pci.DeviceState) *fakeHost {
	h := &fakeHost{
		devices:    make(map[string]*pci.DeviceState),
		failUnload: make(map[string]error),
		failRead:   make(map[string]error),
	}
	for i := range devices {
		d := devices[i]
		h.devices[d.Address] = &d
	}
	return h
}

func (h *fakeHost) pciLib() *pci.InterfaceMock {
	return &pci.InterfaceMock{
		InspectFunc: func(id string) (*pci.DeviceState, error) {
			if err := h.failRead[id]; err != nil {
				return nil, err
			}
			d, ok := h.devices[id]
			if !ok {
				return nil, fmt.Errorf("no such device %s", id)
			}
			state := *d
			return &state, nil
		},
		UnbindFunc: func(id string) error {
			h.ops = append(h.ops, "unbind "+id)
			if h.failUnbind != nil {
				return h.failUnbind
			}
			h.devices[id].Driver = ""
			return nil
		},
		RegisterNewIDFunc: func(driver string, vendor string, device string) error {
			h.ops = append(h.ops, fmt.Sprintf("new_id %s %s %s", driver, vendor, device))
			if h.failNewID != nil {
				return h.failNewID
			}
			for _, d := range h.devices {
				if d.Driver == "" && d.Vendor == vendor && d.Device == device {
					d.Driver = driver
				}
			}
			return nil
		},
	}
}

func (h *fakeHost) modules() *KernelModulesMock {
	return &KernelModulesMock{
		LoadFunc: func(module string) error {
			h.ops = append(h.ops, "load "+module)
			return h.failLoad
		},
		UnloadFunc: func(module string) error {
			h.ops = append(h.ops, "unload "+module)
			if err := h.failUnload[module]; err != nil {
				return err
			}
			if module == GraphicsDriver {
				for _, d := range h.devices {
					if d.Driver == GraphicsDriver {
						d.Driver = ""
					}
				}
			}
			return nil
		},
		ListFunc: func(searchKey string) ([]linuxutils.Module, error) {
			return []linuxutils.Module{{Name: searchKey, RefCount: 1}}, nil
		},
	}
}

func newTestRebinder(h *fakeHost) (*Rebinder, *pci.InterfaceMock, *KernelModulesMock) {
	logger, _ := testlog.NewNullLogger()
	pciLib := h.pciLib()
	modules := h.modules()
	return NewRebinder(logger, pciLib, modules), pciLib, modules
}

var graphicsTeardownOps = []string{
	"unload nvidia_drm",
	"unload nvidia_modeset",
	"unload nvidia_uvm",
	"unload nvidia",
}

func TestBind(t *testing.T) {
	gpu := pci.DeviceState{Address: "0000:01:00.0", Vendor: "0x10de", Device: "0x1b80", Driver: "nvidia"}
	gpuAudio := pci.DeviceState{Address: "0000:01:00.1", Vendor: "0x10de", Device: "0x10f0", Driver: "snd_hda_intel"}
	usb := pci.DeviceState{Address: "0000:05:00.0", Vendor: "0x1912", Device: "0x0014"}
	passthrough := pci.DeviceState{Address: "0000:06:00.0", Vendor: "0x8086", Device: "0x1533", Driver: PassthroughDriver}

	testCases := []struct {
		description   string
		devices       []pci.DeviceState
		ids           []string
		setup         func(h *fakeHost)
		expectedOps   []string
		expectedError bool
	}{
		{
			description: "already on vfio-pci is left untouched",
			devices:     []pci.DeviceState{passthrough},
			ids:         []string{passthrough.Address},
		},
		{
			description: "unbound device loads the module once and registers",
			devices:     []pci.DeviceState{usb},
			ids:         []string{usb.Address},
			expectedOps: []string{
				"load vfio-pci",
				"new_id vfio-pci 0x1912 0x0014",
			},
		},
		{
			description: "third party driver is unbound once before new_id",
			devices:     []pci.DeviceState{gpuAudio},
			ids:         []string{gpuAudio.Address},
			expectedOps: []string{
				"load vfio-pci",
				"unbind 0000:01:00.1",
				"new_id vfio-pci 0x10de 0x10f0",
			},
		},
		{
			description: "device on vfio-pci means the module is not loaded again",
			devices:     []pci.DeviceState{passthrough, usb},
			ids:         []string{passthrough.Address, usb.Address},
			expectedOps: []string{
				"new_id vfio-pci 0x1912 0x0014",
			},
		},
		{
			description: "graphics function triggers the module teardown",
			devices:     []pci.DeviceState{gpu, gpuAudio},
			ids:         []string{gpu.Address, gpuAudio.Address},
			expectedOps: append(append([]string{"load vfio-pci"}, graphicsTeardownOps...),
				"new_id vfio-pci 0x10de 0x1b80",
				"unbind 0000:01:00.1",
				"new_id vfio-pci 0x10de 0x10f0",
			),
		},
		{
			description: "advisory module failures are ignored",
			devices:     []pci.DeviceState{gpu},
			ids:         []string{gpu.Address},
			setup: func(h *fakeHost) {
				h.failUnload["nvidia_drm"] = fmt.Errorf("not loaded")
				h.failUnload["nvidia_uvm"] = fmt.Errorf("in use")
			},
			expectedOps: append(append([]string{"load vfio-pci"}, graphicsTeardownOps...),
				"new_id vfio-pci 0x10de 0x1b80",
			),
		},
		{
			description: "base graphics module failure is fatal",
			devices:     []pci.DeviceState{gpu},
			ids:         []string{gpu.Address},
			setup: func(h *fakeHost) {
				h.failUnload["nvidia"] = fmt.Errorf("resource busy")
			},
			expectedOps:   append([]string{"load vfio-pci"}, graphicsTeardownOps...),
			expectedError: true,
		},
		{
			description: "module load failure is fatal",
			devices:     []pci.DeviceState{usb},
			ids:         []string{usb.Address},
			setup: func(h *fakeHost) {
				h.failLoad = fmt.Errorf("modprobe failed")
			},
			expectedOps:   []string{"load vfio-pci"},
			expectedError: true,
		},
		{
			description: "unbind failure is fatal",
			devices:     []pci.DeviceState{gpuAudio, usb},
			ids:         []string{gpuAudio.Address, usb.Address},
			setup: func(h *fakeHost) {
				h.failUnbind = fmt.Errorf("permission denied")
			},
			expectedOps:   []string{"load vfio-pci", "unbind 0000:01:00.1"},
			expectedError: true,
		},
		{
			description: "new_id failure is fatal and stops processing",
			devices:     []pci.DeviceState{usb, gpuAudio},
			ids:         []string{usb.Address, gpuAudio.Address},
			setup: func(h *fakeHost) {
				h.failNewID = fmt.Errorf("invalid argument")
			},
			expectedOps:   []string{"load vfio-pci", "new_id vfio-pci 0x1912 0x0014"},
			expectedError: true,
		},
		{
			description: "unreadable device fails before any mutation",
			devices:     []pci.DeviceState{usb, gpuAudio},
			ids:         []string{usb.Address, gpuAudio.Address},
			setup: func(h *fakeHost) {
				h.failRead[gpuAudio.Address] = fmt.Errorf("no such file or directory")
			},
			expectedError: true,
		},
		{
			description:   "unknown device fails before any mutation",
			devices:       []pci.DeviceState{usb},
			ids:           []string{usb.Address, "0000:09:00.0"},
			expectedError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			h := newFakeHost(tc.devices...)
			if tc.setup != nil {
				tc.setup(h)
			}
			r, _, _ := newTestRebinder(h)

			_, err := r.Bind(tc.ids)
			if tc.expectedError {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tc.expectedOps, h.ops)
		})
	}
}

func TestBindReturnsStateBeforeMutation(t *testing.T) {
	gpuAudio := pci.DeviceState{Address: "0000:01:00.1", Vendor: "0x10de", Device: "0x10f0", Driver: "snd_hda_intel"}
	h := newFakeHost(gpuAudio)
	r, _, _ := newTestRebinder(h)

	observed, err := r.Bind([]string{gpuAudio.Address})
	require.NoError(t, err)
	require.Equal(t, []pci.DeviceState{gpuAudio}, observed)
	require.Equal(t, PassthroughDriver, h.devices[gpuAudio.Address].Driver)
}

func TestBindIsIdempotent(t *testing.T) {
	h := newFakeHost(
		pci.DeviceState{Address: "0000:01:00.0", Vendor: "0x10de", Device: "0x1b80", Driver: "nvidia"},
		pci.DeviceState{Address: "0000:01:00.1", Vendor: "0x10de", Device: "0x10f0", Driver: "snd_hda_intel"},
		pci.DeviceState{Address: "0000:05:00.0", Vendor: "0x1912", Device: "0x0014", Driver: "xhci_hcd"},
	)
	ids := []string{"0000:01:00.0", "0000:01:00.1", "0000:05:00.0"}
	r, pciLib, modules := newTestRebinder(h)

	_, err := r.Bind(ids)
	require.NoError(t, err)
	require.NotEmpty(t, h.ops)

	h.ops = nil
	unbinds, newIDs := len(pciLib.UnbindCalls()), len(pciLib.RegisterNewIDCalls())
	loads, unloads := len(modules.LoadCalls()), len(modules.UnloadCalls())

	observed, err := r.Bind(ids)
	require.NoError(t, err)
	require.Empty(t, h.ops)
	require.Len(t, pciLib.UnbindCalls(), unbinds)
	require.Len(t, pciLib.RegisterNewIDCalls(), newIDs)
	require.Len(t, modules.LoadCalls(), loads)
	require.Len(t, modules.UnloadCalls(), unloads)
	for _, state := range observed {
		require.Equal(t, PassthroughDriver, state.Driver)
	}
}

func TestBindUnloadsGraphicsDriverOnce(t *testing.T) {
	h := newFakeHost(
		pci.DeviceState{Address: "0000:01:00.0", Vendor: "0x10de", Device: "0x1b80", Driver: "nvidia"},
		pci.DeviceState{Address: "0000:02:00.0", Vendor: "0x10de", Device: "0x1e84", Driver: "nvidia"},
	)
	r, pciLib, modules := newTestRebinder(h)

	_, err := r.Bind([]string{"0000:01:00.0", "0000:02:00.0"})
	require.NoError(t, err)

	var unloaded []string
	for _, call := range modules.UnloadCalls() {
		unloaded = append(unloaded, call.Module)
	}
	require.Equal(t, []string{"nvidia_drm", "nvidia_modeset", "nvidia_uvm", "nvidia"}, unloaded)
	require.Empty(t, pciLib.UnbindCalls())
	require.Len(t, pciLib.RegisterNewIDCalls(), 2)
	require.Len(t, modules.LoadCalls(), 1)
	for _, d := range h.devices {
		require.Equal(t, PassthroughDriver, d.Driver)
	}
}

func TestBindSkipsTeardownWhenAlreadyRun(t *testing.T) {
	h := newFakeHost(
		pci.DeviceState{Address: "0000:01:00.0", Vendor: "0x10de", Device: "0x1b80", Driver: "nvidia"},
		pci.DeviceState{Address: "0000:02:00.0", Vendor: "0x10de", Device: "0x1e84", Driver: "nvidia"},
	)
	r, pciLib, modules := newTestRebinder(h)
	// Keep the second device reporting the graphics driver after the
	// teardown, as if the kernel had not yet updated its link.
	modules.UnloadFunc = func(module string) error { return nil }

	_, err := r.Bind([]string{"0000:01:00.0", "0000:02:00.0"})
	require.NoError(t, err)
	require.Len(t, modules.UnloadCalls(), len(graphicsTeardown))
	require.Len(t, pciLib.RegisterNewIDCalls(), 2)
}

func TestBindListsModulesWhenTeardownFails(t *testing.T) {
	h := newFakeHost(pci.DeviceState{Address: "0000:01:00.0", Vendor: "0x10de", Device: "0x1b80", Driver: "nvidia"})
	h.failUnload["nvidia"] = fmt.Errorf("resource busy")
	r, pciLib, modules := newTestRebinder(h)

	_, err := r.Bind([]string{"0000:01:00.0"})
	require.ErrorContains(t, err, "nvidia")
	require.Len(t, modules.ListCalls(), 1)
	require.Equal(t, GraphicsDriver, modules.ListCalls()[0].SearchKey)
	require.Empty(t, pciLib.RegisterNewIDCalls())
}
