package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveForResourcesRejectsTinyBudget(t *testing.T) {
	t.Parallel()

	_, err := SolveForResources(4, 1024, 0)
	assert.ErrorIs(t, err, ErrBudgetTooSmall)
}

func TestSolveForResourcesAppliesSlackAndCPURatio(t *testing.T) {
	t.Parallel()

	const memBudget = 1024 * 1024 * 1024

	pool, err := SolveForResources(10, memBudget, 0)
	require.NoError(t, err)

	assert.InDelta(t, 8.0, pool.totalCPU, 0.001)
	assert.Equal(t, int64(memBudget*90/100), pool.totalMem)
	assert.Zero(t, pool.totalDisk)
}

func TestSolveForResourcesDefaultsCPUFromHost(t *testing.T) {
	t.Parallel()

	pool, err := SolveForResources(0, 512*1024*1024, 0)
	require.NoError(t, err)
	assert.Positive(t, pool.totalCPU)
}
