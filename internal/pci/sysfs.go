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

package pci

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	defaultSysfsRoot = "/sys"
	defaultHostRoot  = "/"

	pciDevicesDir = "bus/pci/devices"
	pciDriversDir = "bus/pci/drivers"
)

//go:generate moq -rm -fmt=goimports -stub -out interface_mock.go . Interface

// Interface reads and mutates the driver binding of PCI devices.
type Interface interface {
	Inspect(id string) (*DeviceState, error)
	Unbind(id string) error
	RegisterNewID(driver string, vendor string, device string) error
}

// DeviceState is a snapshot of a device's identity and binding, valid only
// at the time it was read.
type DeviceState struct {
	Address string
	// Vendor and Device hold the raw attribute text, e.g. "0x10de".
	Vendor string
	Device string
	// Driver is empty when no driver is bound.
	Driver string
}

// Bound reports whether a driver was bound when the state was read.
func (s DeviceState) Bound() bool {
	return s.Driver != ""
}

type sysfsLib struct {
	log       *logrus.Logger
	sysfsRoot string
	hostRoot  string
}

var _ Interface = (*sysfsLib)(nil)

// Option configures the sysfs backed implementation.
type Option func(*sysfsLib)

// New returns an Interface backed by the kernel's sysfs.
func New(opts ...Option) *sysfsLib {
	l := &sysfsLib{}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logrus.StandardLogger()
	}
	if l.sysfsRoot == "" {
		l.sysfsRoot = defaultSysfsRoot
	}
	if l.hostRoot == "" {
		l.hostRoot = defaultHostRoot
	}
	return l
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Logger) Option {
	return func(l *sysfsLib) {
		l.log = log
	}
}

// WithSysfsRoot sets the mount point of sysfs.
func WithSysfsRoot(root string) Option {
	return func(l *sysfsLib) {
		l.sysfsRoot = root
	}
}

// WithHostRoot sets the root under which /lib/modules is found.
func WithHostRoot(root string) Option {
	return func(l *sysfsLib) {
		l.hostRoot = root
	}
}

func (l *sysfsLib) devicePath(id string) string {
	return filepath.Join(l.sysfsRoot, pciDevicesDir, id)
}

func (l *sysfsLib) Inspect(id string) (*DeviceState, error) {
	path := l.devicePath(id)

	vendor, err := readAttribute(path, "vendor")
	if err != nil {
		return nil, fmt.Errorf("failed to read vendor of %s: %w", id, err)
	}
	device, err := readAttribute(path, "device")
	if err != nil {
		return nil, fmt.Errorf("failed to read device of %s: %w", id, err)
	}
	driver, err := getDriver(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read driver of %s: %w", id, err)
	}

	return &DeviceState{
		Address: id,
		Vendor:  vendor,
		Device:  device,
		Driver:  driver,
	}, nil
}

func (l *sysfsLib) Unbind(id string) error {
	driverPath := filepath.Join(l.devicePath(id), "driver")
	driver, err := getDriver(l.devicePath(id))
	if err != nil {
		return fmt.Errorf("failed to read driver link for %s: %w", id, err)
	}
	if driver == "" {
		l.log.Debugf("Device %s is not bound to any driver", id)
		return nil
	}

	unbindPath := filepath.Join(driverPath, "unbind")
	if err := os.WriteFile(unbindPath, []byte(id), 0644); err != nil {
		return fmt.Errorf("failed to unbind %s from %s: %w", id, driver, err)
	}
	return nil
}

func (l *sysfsLib) RegisterNewID(driver string, vendor string, device string) error {
	newIDPath := filepath.Join(l.sysfsRoot, pciDriversDir, driver, "new_id")
	if err := os.WriteFile(newIDPath, []byte(vendor+" "+device), 0644); err != nil {
		return fmt.Errorf("failed to register %s %s with %s: %w", vendor, device, driver, err)
	}
	return nil
}

func readAttribute(devicePath string, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(devicePath, name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// getDriver returns the base name of the driver symlink target, or an empty
// string if the device has no driver bound.
func getDriver(devicePath string) (string, error) {
	link, err := os.Readlink(filepath.Join(devicePath, "driver"))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return "", nil
	case err != nil:
		return "", err
	}
	return filepath.Base(link), nil
}
