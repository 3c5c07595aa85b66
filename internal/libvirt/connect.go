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

package libvirt

import (
	"fmt"

	"libvirt.org/go/libvirt"

	"github.com/NVIDIA/vfio-hook/internal/virt"
)

const DefaultURI = "qemu:///system"

type connection struct {
	conn *libvirt.Connect
}

// Dialer returns a virt.Dialer connecting to the daemon at uri.
func Dialer(uri string) virt.Dialer {
	return func() (virt.Connection, error) {
		conn, err := libvirt.NewConnect(uri)
		if err != nil {
			return nil, fmt.Errorf("connect %s: %w", uri, err)
		}
		return &connection{conn: conn}, nil
	}
}

func (c *connection) LookupNetworkByName(name string) (virt.Network, error) {
	network, err := c.conn.LookupNetworkByName(name)
	if err != nil {
		return nil, err
	}
	return network, nil
}

func (c *connection) Close() error {
	_, err := c.conn.Close()
	return err
}
