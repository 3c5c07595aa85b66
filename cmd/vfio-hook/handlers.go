//go:build !darwin && !windows

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

package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/NVIDIA/vfio-hook/internal/hook"
	"github.com/NVIDIA/vfio-hook/internal/linuxutils"
	"github.com/NVIDIA/vfio-hook/internal/pci"
	"github.com/NVIDIA/vfio-hook/internal/virt"
)

const (
	operationPrepare  = "prepare"
	subOperationBegin = "begin"
)

var daemonOperations = []string{"start", "shutdown", "reload"}

type rebinder interface {
	Bind(ids []string) ([]pci.DeviceState, error)
}

type activator interface {
	Activate(names []string) error
}

// passthroughHandler hands a guest's PCI hostdevs to vfio-pci and starts its
// networks before the guest is prepared.
type passthroughHandler struct {
	log       *logrus.Logger
	rebinder  rebinder
	activator activator
	lockFile  string
}

func (h *passthroughHandler) Handle(ctx context.Context, inv hook.Invocation, desc hook.Description) error {
	if inv.SubOperation != subOperationBegin {
		return nil
	}
	domain, err := desc.Domain()
	if err != nil {
		return err
	}

	if err := h.bind(virt.PassthroughDevices(domain)); err != nil {
		return fmt.Errorf("failed to prepare %s: %w", inv.Object, err)
	}
	if err := h.activator.Activate(virt.Networks(domain)); err != nil {
		return fmt.Errorf("failed to prepare %s: %w", inv.Object, err)
	}
	return nil
}

func (h *passthroughHandler) bind(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	unlock, err := linuxutils.Lock(h.log, h.lockFile)
	if err != nil {
		return err
	}
	defer unlock()

	devices, err := h.rebinder.Bind(ids)
	if err != nil {
		return err
	}
	for _, dev := range devices {
		h.log.Debugf("%s [%s:%s] was bound to %q", dev.Address, dev.Vendor, dev.Device, dev.Driver)
	}
	return nil
}

// networkHandler starts the networks a guest depends on.
type networkHandler struct {
	activator activator
}

func (h *networkHandler) Handle(ctx context.Context, inv hook.Invocation, desc hook.Description) error {
	if inv.SubOperation != subOperationBegin {
		return nil
	}
	domain, err := desc.Domain()
	if err != nil {
		return err
	}
	if err := h.activator.Activate(virt.Networks(domain)); err != nil {
		return fmt.Errorf("failed to prepare %s: %w", inv.Object, err)
	}
	return nil
}

// daemonHandler records daemon lifecycle events. Guest events sharing an
// operation name are ignored.
type daemonHandler struct {
	log *logrus.Logger
}

func (h *daemonHandler) Handle(ctx context.Context, inv hook.Invocation, desc hook.Description) error {
	if inv.Object != "" {
		return nil
	}
	h.log.Infof("libvirt daemon %s %s", inv.Operation, inv.SubOperation)
	return nil
}

func newRegistry(log *logrus.Logger, cfg *config, rebinder rebinder, activator activator) *hook.Registry {
	registry := hook.NewRegistry()

	passthrough := &passthroughHandler{
		log:       log,
		rebinder:  rebinder,
		activator: activator,
		lockFile:  cfg.lockFile,
	}
	for _, guest := range cfg.passthroughGuests {
		registry.RegisterObject(guest, operationPrepare, passthrough)
	}
	registry.RegisterOperation(operationPrepare, &networkHandler{activator: activator})

	daemon := &daemonHandler{log: log}
	for _, op := range daemonOperations {
		registry.RegisterOperation(op, daemon)
	}
	return registry
}
