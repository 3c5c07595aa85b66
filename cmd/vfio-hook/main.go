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
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/NVIDIA/vfio-hook/internal/hook"
	"github.com/NVIDIA/vfio-hook/internal/info"
	"github.com/NVIDIA/vfio-hook/internal/libvirt"
	"github.com/NVIDIA/vfio-hook/internal/linuxutils"
	"github.com/NVIDIA/vfio-hook/internal/pci"
	"github.com/NVIDIA/vfio-hook/internal/vfio"
	"github.com/NVIDIA/vfio-hook/internal/virt"
)

const (
	defaultEnvFile  = "/etc/default/vfio-hook"
	defaultLockFile = "/run/lock/vfio-hook.lock"
)

type config struct {
	sysfsRoot         string
	hostRoot          string
	libvirtURI        string
	lockFile          string
	passthroughGuests []string
	debug             bool
}

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		DisableQuote:  true,
	})

	// libvirt runs hooks with a scrubbed environment.
	if err := loadEnvFile(); err != nil {
		log.Fatal(err)
	}

	cfg := config{}

	app := cli.NewApp()
	app.Name = "vfio-hook"
	app.Usage = "libvirt hook that hands PCI devices to vfio-pci before a guest starts"
	app.UsageText = "qemu [global options] <object> <operation> <sub-operation> <extra>"
	app.Version = info.GetVersionString()
	app.HideHelpCommand = true

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:        "sysfs-root",
			Usage:       "Mount point of sysfs",
			Destination: &cfg.sysfsRoot,
			EnvVars:     []string{"VFIO_HOOK_SYSFS_ROOT"},
			Value:       "/sys",
		},
		&cli.StringFlag{
			Name:        "host-root",
			Usage:       "Root used to run modprobe and read kernel module state",
			Destination: &cfg.hostRoot,
			EnvVars:     []string{"VFIO_HOOK_HOST_ROOT"},
			Value:       "/",
		},
		&cli.StringFlag{
			Name:        "libvirt-uri",
			Usage:       "libvirt connection URI used to start networks",
			Destination: &cfg.libvirtURI,
			EnvVars:     []string{"VFIO_HOOK_LIBVIRT_URI"},
			Value:       libvirt.DefaultURI,
		},
		&cli.StringFlag{
			Name:        "lock-file",
			Usage:       "File locked while device bindings change; empty disables locking",
			Destination: &cfg.lockFile,
			EnvVars:     []string{"VFIO_HOOK_LOCK_FILE"},
			Value:       defaultLockFile,
		},
		&cli.StringSliceFlag{
			Name:    "passthrough-guest",
			Usage:   "Guest whose PCI hostdevs are bound to vfio-pci on prepare",
			EnvVars: []string{"VFIO_HOOK_PASSTHROUGH_GUESTS"},
			Value:   cli.NewStringSlice("hoth"),
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "Enable debug-level logging",
			Destination: &cfg.debug,
			EnvVars:     []string{"VFIO_HOOK_DEBUG"},
		},
	}

	app.Before = func(c *cli.Context) error {
		if cfg.debug {
			log.SetLevel(logrus.DebugLevel)
		}
		cfg.passthroughGuests = c.StringSlice("passthrough-guest")
		return nil
	}
	app.Action = func(c *cli.Context) error {
		return run(c.Context, log, &cfg, c.Args().Slice(), os.Stdin)
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadEnvFile() error {
	path := os.Getenv("VFIO_HOOK_ENV_FILE")
	if path == "" {
		path = defaultEnvFile
	}
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

func run(ctx context.Context, log *logrus.Logger, cfg *config, args []string, stdin io.Reader) error {
	inv, err := hook.ParseInvocation(args)
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(os.Args[0]), err)
	}

	pciLib := pci.New(
		pci.WithLogger(log),
		pci.WithSysfsRoot(cfg.sysfsRoot),
		pci.WithHostRoot(cfg.hostRoot),
	)
	modules := linuxutils.NewKernelModules(log, linuxutils.WithRoot(cfg.hostRoot))
	rebinder := vfio.NewRebinder(log, pciLib, modules)

	activator := virt.NewActivator(log, libvirt.Dialer(cfg.libvirtURI))
	defer func() {
		if err := activator.Close(); err != nil {
			log.Warnf("Failed to close libvirt connection: %v", err)
		}
	}()

	registry := newRegistry(log, cfg, rebinder, activator)
	return hook.NewDispatcher(log, registry).Dispatch(ctx, inv, stdin)
}
