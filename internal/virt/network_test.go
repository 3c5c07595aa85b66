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
	"testing"

	testlog "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type fakeNetwork struct {
	active  bool
	creates int
	frees   int
	err     error
}

func (n *fakeNetwork) IsActive() (bool, error) { return n.active, nil }
func (n *fakeNetwork) Free() error             { n.frees++; return nil }

func (n *fakeNetwork) Create() error {
	n.creates++
	if n.err != nil {
		return n.err
	}
	n.active = true
	return nil
}

type fakeConnection struct {
	networks map[string]*fakeNetwork
	lookups  []string
	closed   bool
}

func (c *fakeConnection) LookupNetworkByName(name string) (Network, error) {
	c.lookups = append(c.lookups, name)
	n, ok := c.networks[name]
	if !ok {
		return nil, fmt.Errorf("network not found: no network with matching name '%s'", name)
	}
	return n, nil
}

func (c *fakeConnection) Close() error {
	c.closed = true
	return nil
}

func newTestActivator(conn *fakeConnection) (*Activator, *int) {
	logger, _ := testlog.NewNullLogger()
	dials := 0
	return NewActivator(logger, func() (Connection, error) {
		dials++
		return conn, nil
	}), &dials
}

func TestActivate(t *testing.T) {
	testCases := []struct {
		description     string
		networks        map[string]*fakeNetwork
		names           []string
		expectedCreates map[string]int
		expectedLookups []string
		expectedError   bool
	}{
		{
			description:     "active network is left alone",
			networks:        map[string]*fakeNetwork{"default": {active: true}},
			names:           []string{"default"},
			expectedCreates: map[string]int{"default": 0},
			expectedLookups: []string{"default"},
		},
		{
			description:     "inactive network is started once",
			networks:        map[string]*fakeNetwork{"default": {}},
			names:           []string{"default"},
			expectedCreates: map[string]int{"default": 1},
			expectedLookups: []string{"default"},
		},
		{
			description:     "unknown network aborts before later names",
			networks:        map[string]*fakeNetwork{"isolated": {}},
			names:           []string{"missing", "isolated"},
			expectedCreates: map[string]int{"isolated": 0},
			expectedLookups: []string{"missing"},
			expectedError:   true,
		},
		{
			description: "start failure aborts",
			networks: map[string]*fakeNetwork{
				"default":  {err: fmt.Errorf("bridge busy")},
				"isolated": {},
			},
			names:           []string{"default", "isolated"},
			expectedCreates: map[string]int{"default": 1, "isolated": 0},
			expectedLookups: []string{"default"},
			expectedError:   true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			conn := &fakeConnection{networks: tc.networks}
			a, dials := newTestActivator(conn)

			err := a.Activate(tc.names)
			if tc.expectedError {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, 1, *dials)
			require.Equal(t, tc.expectedLookups, conn.lookups)
			for name, creates := range tc.expectedCreates {
				require.Equal(t, creates, tc.networks[name].creates, name)
			}
		})
	}
}

func TestActivateConnectsLazily(t *testing.T) {
	conn := &fakeConnection{networks: map[string]*fakeNetwork{"default": {active: true}}}
	a, dials := newTestActivator(conn)

	require.NoError(t, a.Activate(nil))
	require.Equal(t, 0, *dials)
	require.NoError(t, a.Close())
	require.False(t, conn.closed)

	require.NoError(t, a.Activate([]string{"default"}))
	require.NoError(t, a.Activate([]string{"default"}))
	require.Equal(t, 1, *dials)
	require.Equal(t, 2, conn.networks["default"].frees)

	require.NoError(t, a.Close())
	require.True(t, conn.closed)
}

func TestActivateDialFailure(t *testing.T) {
	logger, _ := testlog.NewNullLogger()
	a := NewActivator(logger, func() (Connection, error) {
		return nil, fmt.Errorf("failed to connect socket")
	})

	require.Error(t, a.Activate([]string{"default"}))
}
