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
	"os"
	"path/filepath"

	nvlibpci "github.com/NVIDIA/go-nvlib/pkg/nvpci"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/NVIDIA/vfio-hook/internal/info"
	"github.com/NVIDIA/vfio-hook/internal/linuxutils"
	"github.com/NVIDIA/vfio-hook/internal/pci"
)

type globalOptions struct {
	sysfsRoot string
	hostRoot  string
	lockFile  string
	debug     bool
}

func (o *globalOptions) pciLib(log *logrus.Logger) pciLib {
	return pci.New(
		pci.WithLogger(log),
		pci.WithSysfsRoot(o.sysfsRoot),
		pci.WithHostRoot(o.hostRoot),
	)
}

func (o *globalOptions) kernelModules(log *logrus.Logger) *linuxutils.KernelModules {
	return linuxutils.NewKernelModules(log, linuxutils.WithRoot(o.hostRoot))
}

func (o *globalOptions) nvpciLib(log *logrus.Logger) nvlibpci.Interface {
	return nvlibpci.New(
		nvlibpci.WithLogger(log),
		nvlibpci.WithPCIDevicesRoot(filepath.Join(o.sysfsRoot, "bus", "pci", "devices")),
	)
}

// pciLib is the sysfs view used by the commands.
type pciLib interface {
	pci.Interface
	VFIOVariant(id string) (string, error)
}

func main() {
	opts := globalOptions{}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		DisableQuote:  true,
	})

	app := cli.NewApp()
	app.Name = "vfio-manage"
	app.Usage = "Manage VFIO driver binding for PCI devices"
	app.Version = info.GetVersionString()

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:        "sysfs-root",
			Usage:       "Mount point of sysfs",
			Destination: &opts.sysfsRoot,
			EnvVars:     []string{"VFIO_HOOK_SYSFS_ROOT"},
			Value:       "/sys",
		},
		&cli.StringFlag{
			Name:        "host-root",
			Usage:       "Root used to run modprobe and read kernel module state",
			Destination: &opts.hostRoot,
			EnvVars:     []string{"VFIO_HOOK_HOST_ROOT"},
			Value:       "/",
		},
		&cli.StringFlag{
			Name:        "lock-file",
			Usage:       "File locked while device bindings change; empty disables locking",
			Destination: &opts.lockFile,
			EnvVars:     []string{"VFIO_HOOK_LOCK_FILE"},
			Value:       "/run/lock/vfio-hook.lock",
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "Enable debug-level logging",
			Destination: &opts.debug,
			EnvVars:     []string{"VFIO_HOOK_DEBUG"},
		},
	}
	app.Before = func(c *cli.Context) error {
		if opts.debug {
			log.SetLevel(logrus.DebugLevel)
		}
		return nil
	}

	app.Commands = []*cli.Command{
		newBindCommand(log, &opts),
		newUnbindCommand(log, &opts),
		newListCommand(log, &opts),
		newModulesCommand(log, &opts),
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
