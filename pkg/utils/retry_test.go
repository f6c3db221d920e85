package utils_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bczgroup/tracker/pkg/utils"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTemporary = errors.New("temporary error")
	errRejected  = errors.New("rejected")
)

func testRetryOptions() utils.RetryOptions {
	return utils.RetryOptions{
		MaxElapsedTime:  time.Second,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		MaxRetries:      3,
	}
}

func TestWithRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		failures      int
		permanent     bool
		expectedCalls int
		expectedErr   error
	}{
		{
			name:          "succeeds first try",
			failures:      0,
			expectedCalls: 1,
		},
		{
			name:          "succeeds after retries",
			failures:      2,
			expectedCalls: 3,
		},
		{
			name:          "gives up after max retries",
			failures:      10,
			expectedCalls: 4,
			expectedErr:   errTemporary,
		},
		{
			name:          "permanent error stops immediately",
			failures:      10,
			permanent:     true,
			expectedCalls: 1,
			expectedErr:   errRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			result, err := utils.WithRetry(t.Context(), func() (int, error) {
				calls++
				if calls <= tt.failures {
					if tt.permanent {
						return 0, backoff.Permanent(errRejected)
					}
					return 0, errTemporary
				}
				return calls, nil
			}, testRetryOptions())

			assert.Equal(t, tt.expectedCalls, calls)

			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, calls, result)
		})
	}
}

func TestWithRetryCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	calls := 0
	_, err := utils.WithRetry(ctx, func() (int, error) {
		calls++
		return 0, errTemporary
	}, testRetryOptions())

	require.Error(t, err)
	assert.LessOrEqual(t, calls, 1)
}

func TestGetRequestRetryOptions(t *testing.T) {
	t.Parallel()

	opts := utils.GetRequestRetryOptions(2, 0, 0)
	assert.Equal(t, uint64(2), opts.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, opts.InitialInterval)
	assert.Equal(t, 500*time.Millisecond, opts.MaxInterval)

	opts = utils.GetRequestRetryOptions(1, time.Second, 3*time.Second)
	assert.Equal(t, time.Second, opts.InitialInterval)
	assert.Equal(t, 3*time.Second, opts.MaxInterval)
}
