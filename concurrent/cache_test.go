// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package concurrent

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetOr(t *testing.T) {
	t.Run("will compute a value only once", func(t *testing.T) {
		c := NewCache[string, int]()

		var calls atomic.Int32
		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := c.GetOr("k", func() (int, error) {
					calls.Add(1)
					return 7, nil
				})
				assert.Nil(t, err)
				assert.Equal(t, 7, v)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, 1, c.Len())
	})

	t.Run("will not cache failed computations", func(t *testing.T) {
		c := NewCache[string, int]()

		_, err := c.GetOr("k", func() (int, error) {
			return 0, errors.New("boom")
		})
		require.Error(t, err)

		_, ok := c.Get("k")
		assert.False(t, ok)
	})
}
