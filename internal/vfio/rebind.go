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

	"github.com/sirupsen/logrus"

	"github.com/NVIDIA/vfio-hook/internal/linuxutils"
	"github.com/NVIDIA/vfio-hook/internal/pci"
)

const (
	PassthroughDriver = "vfio-pci"
	passthroughModule = "vfio-pci"

	// GraphicsDriver cannot be unbound per device; its module chain has to
	// be removed instead.
	GraphicsDriver = "nvidia"
)

// graphicsTeardown lists the module removals that release every device
// bound to the graphics driver, innermost dependents first. The dependents
// may legitimately be absent on a given host; the base module must go.
var graphicsTeardown = []step{
	advisory("nvidia_drm"),
	advisory("nvidia_modeset"),
	advisory("nvidia_uvm"),
	required("nvidia"),
}

//go:generate moq -rm -fmt=goimports -stub -out kernel_modules_mock.go . KernelModules

// KernelModules loads and removes kernel modules.
type KernelModules interface {
	Load(module string) error
	Unload(module string) error
	List(searchKey string) ([]linuxutils.Module, error)
}

// Rebinder hands PCI devices over to the vfio-pci driver.
type Rebinder struct {
	log     *logrus.Logger
	pciLib  pci.Interface
	modules KernelModules
}

// runState is the only memory a single Bind call keeps.
type runState struct {
	moduleLoaded     bool
	graphicsUnloaded bool
}

func NewRebinder(log *logrus.Logger, pciLib pci.Interface, modules KernelModules) *Rebinder {
	return &Rebinder{
		log:     log,
		pciLib:  pciLib,
		modules: modules,
	}
}

// Bind ensures every device in ids is bound to vfio-pci. It returns the
// binding state of each device as observed before anything was changed.
//
// Devices already on vfio-pci are left untouched. On error, devices rebound
// earlier in the same call stay rebound.
func (r *Rebinder) Bind(ids []string) ([]pci.DeviceState, error) {
	observed := make([]pci.DeviceState, 0, len(ids))
	var pending []pci.DeviceState
	passthroughInUse := false

	for _, id := range ids {
		state, err := r.pciLib.Inspect(id)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect device %s: %w", id, err)
		}
		observed = append(observed, *state)

		if state.Driver == PassthroughDriver {
			r.log.Infof("Device %s is already bound to %s", id, PassthroughDriver)
			passthroughInUse = true
			continue
		}
		pending = append(pending, *state)
	}

	if len(pending) == 0 {
		return observed, nil
	}

	run := &runState{}
	if !passthroughInUse {
		if err := r.loadPassthroughModule(run); err != nil {
			return observed, err
		}
	}

	for _, dev := range pending {
		if err := r.bindDevice(run, dev); err != nil {
			return observed, err
		}
	}

	return observed, nil
}

func (r *Rebinder) loadPassthroughModule(run *runState) error {
	if run.moduleLoaded {
		return nil
	}
	r.log.Infof("Loading kernel module %s", passthroughModule)
	if err := required(passthroughModule).load(r.log, r.modules); err != nil {
		return err
	}
	run.moduleLoaded = true
	return nil
}

func (r *Rebinder) bindDevice(run *runState, dev pci.DeviceState) error {
	// Unloading the graphics driver for an earlier device changes the
	// binding of this one, so the driver is read again here.
	current, err := r.pciLib.Inspect(dev.Address)
	if err != nil {
		return fmt.Errorf("failed to inspect device %s: %w", dev.Address, err)
	}

	switch current.Driver {
	case "", PassthroughDriver:
	case GraphicsDriver:
		if run.graphicsUnloaded {
			r.log.Infof("Device %s was released by the %s teardown", dev.Address, GraphicsDriver)
			break
		}
		if err := r.unloadGraphicsDriver(); err != nil {
			return fmt.Errorf("failed to release device %s from %s: %w", dev.Address, GraphicsDriver, err)
		}
		run.graphicsUnloaded = true
	default:
		r.log.Infof("Unbinding device %s from %s", dev.Address, current.Driver)
		if err := r.pciLib.Unbind(dev.Address); err != nil {
			return fmt.Errorf("failed to unbind device %s: %w", dev.Address, err)
		}
	}

	r.log.Infof("Registering device %s (%s %s) with %s", dev.Address, dev.Vendor, dev.Device, PassthroughDriver)
	if err := r.pciLib.RegisterNewID(PassthroughDriver, dev.Vendor, dev.Device); err != nil {
		return fmt.Errorf("failed to bind device %s to %s: %w", dev.Address, PassthroughDriver, err)
	}
	return nil
}

func (r *Rebinder) unloadGraphicsDriver() error {
	r.log.Infof("Unloading %s kernel modules", GraphicsDriver)
	if err := runUnloads(r.log, r.modules, graphicsTeardown); err != nil {
		r.log.Infof("Could not unload %s kernel modules, driver is in use", GraphicsDriver)
		if modules, listErr := r.modules.List(GraphicsDriver); listErr == nil {
			r.log.Infof("Loaded %s modules: %v", GraphicsDriver, modules)
		}
		return err
	}
	return nil
}
