package redis_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/bczgroup/tracker/internal/redis"
	"github.com/bczgroup/tracker/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestManagerGetClient(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	m := redis.NewManager(&config.Redis{Host: mr.Host(), Port: port}, zap.NewNop())
	defer m.Close()

	assert.Equal(t, mr.Addr(), m.Address())

	client, err := m.GetClient(redis.StatusDBIndex)
	require.NoError(t, err)

	again, err := m.GetClient(redis.StatusDBIndex)
	require.NoError(t, err)
	assert.Same(t, client, again)

	ctx := context.Background()
	require.NoError(t, client.Do(ctx, client.B().Set().Key("k").Value("v").Build()).Error())

	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}
