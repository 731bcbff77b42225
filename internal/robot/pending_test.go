package robot

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingRejectsDuplicateKey(t *testing.T) {
	table := newPendingTable()

	_, err := table.register(KeyCommand, time.Second)
	require.NoError(t, err)

	_, err = table.register(KeyCommand, time.Second)
	assert.ErrorIs(t, err, ErrRequestInFlight)

	_, err = table.register(PositionKey(1), time.Second)
	assert.NoError(t, err)
	assert.Equal(t, 2, table.len())
}

func TestPendingResolveOnce(t *testing.T) {
	table := newPendingTable()
	p, err := table.register(KeyPing, time.Second)
	require.NoError(t, err)

	assert.True(t, table.resolve(KeyPing, outcome{response: PingResponse{Online: true}}))
	assert.False(t, table.resolve(KeyPing, outcome{response: PingResponse{}}))
	assert.False(t, table.remove(p))

	o := <-p.result
	assert.Equal(t, PingResponse{Online: true}, o.response)
	assert.Empty(t, p.result)
}

func TestPendingRemoveIgnoresReplacement(t *testing.T) {
	table := newPendingTable()
	first, err := table.register(KeyCommand, time.Second)
	require.NoError(t, err)
	require.True(t, table.remove(first))

	second, err := table.register(KeyCommand, time.Second)
	require.NoError(t, err)

	// A stale handle must not evict the newer request
	assert.False(t, table.remove(first))
	assert.Equal(t, 1, table.len())
	assert.True(t, table.remove(second))
}

func TestPendingFailAll(t *testing.T) {
	table := newPendingTable()
	a, _ := table.register(KeyCommand, time.Second)
	b, _ := table.register(VelocityKey(2), time.Second)

	assert.Equal(t, 2, table.failAll(ErrConnectionClosed))
	assert.ErrorIs(t, (<-a.result).err, ErrConnectionClosed)
	assert.ErrorIs(t, (<-b.result).err, ErrConnectionClosed)

	_, err := table.register(KeyCommand, time.Second)
	assert.ErrorIs(t, err, ErrConnectionClosed)
	assert.Equal(t, 0, table.failAll(ErrConnectionClosed))
}

func TestPendingExactlyOnceUnderRace(t *testing.T) {
	for i := 0; i < 500; i++ {
		table := newPendingTable()
		p, err := table.register(KeyCommand, time.Second)
		require.NoError(t, err)

		var claims atomic.Int32
		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			if table.resolve(KeyCommand, outcome{response: OKResponse{}}) {
				claims.Add(1)
			}
		}()
		go func() {
			defer wg.Done()
			if table.remove(p) {
				claims.Add(1)
			}
		}()
		go func() {
			defer wg.Done()
			claims.Add(int32(table.failAll(ErrConnectionClosed)))
		}()
		wg.Wait()

		require.Equal(t, int32(1), claims.Load(), "iteration %d", i)
		assert.LessOrEqual(t, len(p.result), 1)
	}
}
