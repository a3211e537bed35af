package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifierPoolRecyclesWithNewGeneration(t *testing.T) {
	pool := NewIdentifierPool()
	a := pool.Acquire("a")
	b := pool.Acquire("b")
	assert.Equal(t, uint32(0), a.Index)
	assert.Equal(t, uint32(1), b.Index)

	require.NoError(t, pool.Release(a))
	assert.False(t, pool.IsAlive(a))
	assert.Error(t, pool.Release(a))
	assert.Nil(t, pool.Owner(a))

	c := pool.Acquire("c")
	assert.Equal(t, a.Index, c.Index)
	assert.NotEqual(t, a.Generation, c.Generation)
	assert.Equal(t, "c", pool.Owner(c))
	assert.False(t, pool.IsAlive(InvalidIdentifier))
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, LogLevelWarn, level)

	_, err = ParseLogLevel("loud")
	assert.Error(t, err)
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.AddLoad()
	m.AddLoad()
	m.AddSave()
	m.AddFailure()
	m.RecordInitialization("TextureLoader", 0)

	s := m.Snapshot()
	assert.Equal(t, uint64(2), s.Loads)
	assert.Equal(t, uint64(1), s.Saves)
	assert.Equal(t, uint64(1), s.Failures)
	assert.Contains(t, s.Initializations, "TextureLoader")
}
