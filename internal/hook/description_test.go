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

package hook

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingReader struct {
	r     *strings.Reader
	reads int
}

func (c *countingReader) Read(p []byte) (int, error) {
	c.reads++
	return c.r.Read(p)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestDescriptionReadsOnce(t *testing.T) {
	r := &countingReader{r: strings.NewReader(`<domain type='kvm'><name>hoth</name></domain>`)}
	desc := NewDescription(r)
	require.Zero(t, r.reads)

	domain, err := desc.Domain()
	require.NoError(t, err)
	require.Equal(t, "hoth", domain.Name)
	reads := r.reads

	domain, err = desc.Domain()
	require.NoError(t, err)
	require.Equal(t, "hoth", domain.Name)
	require.Equal(t, reads, r.reads)
}

func TestDescriptionErrors(t *testing.T) {
	_, err := NewDescription(failingReader{}).Domain()
	require.ErrorContains(t, err, "broken pipe")

	_, err = NewDescription(strings.NewReader("<domain")).Domain()
	require.Error(t, err)
}
