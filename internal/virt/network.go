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

package virt

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Network is a virtual network known to the virtualization daemon.
type Network interface {
	IsActive() (bool, error)
	Create() error
	Free() error
}

// Connection is an open connection to the virtualization daemon.
type Connection interface {
	LookupNetworkByName(name string) (Network, error)
	Close() error
}

// Dialer opens a Connection.
type Dialer func() (Connection, error)

// Activator starts the virtual networks a guest depends on. The daemon
// connection is opened on first use.
type Activator struct {
	log  *logrus.Logger
	dial Dialer
	conn Connection
}

func NewActivator(log *logrus.Logger, dial Dialer) *Activator {
	return &Activator{
		log:  log,
		dial: dial,
	}
}

// Activate makes sure every named network is active. It stops at the first
// network that cannot be found or started.
func (a *Activator) Activate(names []string) error {
	for _, name := range names {
		if err := a.activate(name); err != nil {
			return err
		}
	}
	return nil
}

func (a *Activator) activate(name string) error {
	conn, err := a.connection()
	if err != nil {
		return err
	}

	network, err := conn.LookupNetworkByName(name)
	if err != nil {
		return fmt.Errorf("failed to look up network %s: %w", name, err)
	}
	defer func() {
		if err := network.Free(); err != nil {
			a.log.Warnf("Failed to free network %s: %v", name, err)
		}
	}()

	active, err := network.IsActive()
	if err != nil {
		return fmt.Errorf("failed to query state of network %s: %w", name, err)
	}
	if active {
		a.log.Debugf("Network %s is already active", name)
		return nil
	}

	a.log.Infof("Starting network %s", name)
	if err := network.Create(); err != nil {
		return fmt.Errorf("failed to start network %s: %w", name, err)
	}
	return nil
}

func (a *Activator) connection() (Connection, error) {
	if a.conn != nil {
		return a.conn, nil
	}
	conn, err := a.dial()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to libvirt: %w", err)
	}
	a.conn = conn
	return conn, nil
}

// Close closes the daemon connection if one was opened.
func (a *Activator) Close() error {
	if a.conn == nil {
		return nil
	}
	err := a.conn.Close()
	a.conn = nil
	return err
}
