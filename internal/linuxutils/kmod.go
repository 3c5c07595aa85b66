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

package linuxutils

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const (
	procModules = "/proc/modules"
	sysModule   = "/sys/module"
)

// Module is one entry of /proc/modules.
type Module struct {
	Name     string
	Size     int
	RefCount int
	UsedBy   []string
}

type KernelModules struct {
	log *logrus.Logger

	root string
}

func NewKernelModules(log *logrus.Logger, options ...func(modules *KernelModules)) *KernelModules {
	km := &KernelModules{
		log: log,
	}
	for _, option := range options {
		option(km)
	}
	if km.root == "" {
		km.root = "/"
	}
	return km
}

func WithRoot(root string) func(modules *KernelModules) {
	return func(km *KernelModules) {
		km.root = root
	}
}

// List returns the loaded modules whose /proc/modules line contains searchKey.
// An empty searchKey returns every module.
func (km *KernelModules) List(searchKey string) ([]Module, error) {
	modsFilePath := filepath.Join(km.root, procModules)
	file, err := os.Open(modsFilePath)
	if err != nil {
		return nil, fmt.Errorf("error opening file %s: %w", modsFilePath, err)
	}
	defer func(file *os.File) {
		err := file.Close()
		if err != nil {
			km.log.Warnf("error closing file %s: %v", modsFilePath, err)
		}
	}(file)

	var modules []Module
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if len(searchKey) > 0 && !strings.Contains(line, searchKey) {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		size, err := strconv.Atoi(fields[1])
		if err != nil {
			km.log.Warnf("error parsing module size %s: %v", fields[1], err)
			continue
		}
		refCnt, err := strconv.Atoi(fields[2])
		if err != nil {
			km.log.Warnf("error parsing module ref count %s: %v", fields[2], err)
			continue
		}

		var usedBy []string
		for _, user := range strings.Split(fields[3], ",") {
			if user != "" && user != "-" {
				usedBy = append(usedBy, user)
			}
		}

		modules = append(modules, Module{
			Name:     fields[0],
			Size:     size,
			RefCount: refCnt,
			UsedBy:   usedBy,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", modsFilePath, err)
	}
	return modules, nil
}

// Print logs the modules in the /proc/modules column layout.
func (km *KernelModules) Print(modules []Module) {
	km.log.Infof("%-20s %-10s %-15s %s", "Module", "Size", "Ref Count", "Used by")
	for _, m := range modules {
		km.log.Infof("%-20s %-10d %-15d %s", m.Name, m.Size, m.RefCount, strings.Join(m.UsedBy, ","))
	}
}

// IsLoaded reports whether the module is present under /sys/module.
func (km *KernelModules) IsLoaded(module string) bool {
	_, err := os.Stat(filepath.Join(km.root, sysModule, normalize(module)))
	return err == nil
}

// Version returns the version a loaded module reports under /sys/module.
func (km *KernelModules) Version(module string) (string, error) {
	path := filepath.Join(km.root, sysModule, normalize(module), "version")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read version of %s: %w", module, err)
	}
	version := strings.TrimSpace(string(data))
	if version == "" {
		return "", fmt.Errorf("kernel module %s reports no version", module)
	}
	return version, nil
}

// Load runs modprobe inside the configured root. Loading a module that is
// already loaded succeeds.
func (km *KernelModules) Load(module string) error {
	km.log.Debugf("Loading kernel module %s", module)
	cmd := exec.Command("chroot", km.root, "modprobe", module)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("modprobe %s: %w: %s", module, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Unload removes a module from the running kernel.
func (km *KernelModules) Unload(module string) error {
	km.log.Debugf("Unloading kernel module %s", module)
	if err := unix.DeleteModule(normalize(module), 0); err != nil {
		if errors.Is(err, unix.ENOENT) {
			return fmt.Errorf("kernel module %s is not loaded: %w", module, err)
		}
		return fmt.Errorf("failed to unload kernel module %s: %w", module, err)
	}
	return nil
}

// normalize converts a module name to the form the kernel uses internally.
func normalize(module string) string {
	return strings.ReplaceAll(module, "-", "_")
}
