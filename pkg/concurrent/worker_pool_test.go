package concurrent_test

import (
	"context"
	"errors"
	"testing"

	"lintang/trafficspeed/pkg/concurrent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunOrdered(t *testing.T) {
	t.Run("results keep job order", func(t *testing.T) {
		jobs := []int{1, 2, 3, 4, 5, 6, 7, 8}
		out, done, err := concurrent.RunOrdered(context.Background(), 3, jobs, func(ctx context.Context, j int) (int, error) {
			return j * j, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 4, 9, 16, 25, 36, 49, 64}, out)
		for _, d := range done {
			assert.True(t, d)
		}
	})

	t.Run("cancelled context skips queued jobs", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		jobs := []int{1, 2, 3}
		calls := 0
		_, done, err := concurrent.RunOrdered(ctx, 1, jobs, func(ctx context.Context, j int) (int, error) {
			calls++
			return j, nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, calls)
		assert.Equal(t, []bool{false, false, false}, done)
	})

	t.Run("job error is reported and its slot stays undone", func(t *testing.T) {
		boom := errors.New("boom")
		out, done, err := concurrent.RunOrdered(context.Background(), 2, []int{1, 2}, func(ctx context.Context, j int) (int, error) {
			if j == 2 {
				return 0, boom
			}
			return j, nil
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, out[0])
		assert.Equal(t, []bool{true, false}, done)
	})
}
