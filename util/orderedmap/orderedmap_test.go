//  Copyright (c) 2023 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orderedmap_test

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/spatch/util/orderedmap"
)

func TestLoadStore(t *testing.T) {
	t.Parallel()

	// Specify expected k, v pairs.
	pairs := [][2]int{{1, 2}, {2, 3}, {3, 4}}
	m := orderedmap.New[int, int]()
	for _, p := range pairs {
		k, v := p[0], p[1]
		m.Store(k, v)
		loadedV, ok := m.Load(k)
		require.True(t, ok)
		require.Equal(t, v, loadedV)
		require.Equal(t, v, m.Value(k))
	}

	// Test loading a non-existent key.
	v, ok := m.Load(-1)
	require.False(t, ok)
	require.Empty(t, v)
	require.Empty(t, m.Value(-1))

	require.Equal(t, len(pairs), m.Len())
}

func TestRange(t *testing.T) {
	t.Parallel()

	// Create a map with 100 <i, i+1> pairs to have better chance of breaking
	// ordered iteration.
	m := orderedmap.New[int, int]()
	expectedKeys := make([]int, 0, 100)
	for i := 0; i < 100; i++ {
		m.Store(i, i+1)
		expectedKeys = append(expectedKeys, i)
	}

	// Run 5 concurrent subtests to ensure that the order is always the same.
	for i := 0; i < 5; i++ {
		t.Run(fmt.Sprintf("Run%d", i), func(t *testing.T) {
			t.Parallel()

			keys := make([]int, 0, len(expectedKeys))
			for _, p := range m.Pairs {
				keys = append(keys, p.Key)
			}
			require.Equal(t, expectedKeys, keys)
		})
	}
}

func TestCopy(t *testing.T) {
	t.Parallel()

	m := orderedmap.New[string, int]()
	m.Store("b", 1)
	m.Store("a", 2)

	c := m.Copy()
	c.Store("a", 99)
	c.Store("z", 3)

	// The original is untouched and order is preserved in the copy.
	require.Equal(t, 2, m.Value("a"))
	require.Equal(t, 2, m.Len())
	require.Equal(t, 99, c.Value("a"))
	require.Equal(t, "b", c.Pairs[0].Key)
}

func TestEncodingRoundTrip(t *testing.T) {
	t.Parallel()

	m := orderedmap.New[string, int]()
	m.Store("x", 1)
	m.Store("y", 2)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(m))

	decoded := orderedmap.New[string, int]()
	require.NoError(t, gob.NewDecoder(&buf).Decode(decoded))
	require.Equal(t, 1, decoded.Value("x"))
	require.Equal(t, 2, decoded.Value("y"))
	require.Empty(t, cmp.Diff(m.Pairs, decoded.Pairs))
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
