package optimizer

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizeInvalidParameters(t *testing.T) {
	params := testParameters()
	params.PopulationSize = 0

	_, err := New(testLogger()).Optimize(context.Background(), testTasks(), testWorkers(), params, nil)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestOptimizeFindsFeasibleSchedule(t *testing.T) {
	params := testParameters()
	params.UseLocalSearch = true
	params.MaxGenerations = 50

	result, err := New(testLogger()).Optimize(context.Background(), testTasks(), testWorkers(), params, nil)
	require.NoError(t, err)

	require.NotNil(t, result.Best)
	require.Len(t, result.Best.Assignments, 5)
	assert.Zero(t, result.Fitness.DependencyViolations)
	assert.False(t, result.Diagnostics.Infeasible)
	assert.Greater(t, result.Fitness.Total, 0.0)

	require.Len(t, result.Diagnostics.Islands, 1)
	report := result.Diagnostics.Islands[0]
	assert.Contains(t, []IslandState{StateConverged, StateMaxGenerationsReached}, report.State)
	assert.LessOrEqual(t, report.Generations, 50)
}

func TestOptimizeReproducibleWithSeed(t *testing.T) {
	params := testParameters()

	first, err := New(testLogger()).Optimize(context.Background(), testTasks(), testWorkers(), params, nil)
	require.NoError(t, err)
	second, err := New(testLogger()).Optimize(context.Background(), testTasks(), testWorkers(), params, nil)
	require.NoError(t, err)

	assert.Equal(t, first.Best, second.Best)
	assert.Equal(t, first.Fitness, second.Fitness)
}

func TestOptimizeMigrationEventCount(t *testing.T) {
	params := testParameters()
	params.IslandCount = 2
	params.MaxGenerations = 20
	params.MigrationInterval = 5
	params.MigrationCount = 2
	params.DiversifyIslands = false
	params.PlateauWindow = 0

	result, err := New(testLogger()).Optimize(context.Background(), testTasks(), testWorkers(), params, nil)
	require.NoError(t, err)

	// 第 5、10、15 代各迁移一次；第 20 代因达到上限终止，不再迁移
	assert.Equal(t, int64(3), result.Diagnostics.MigrationEvents)

	require.Len(t, result.Diagnostics.Islands, 2)
	for _, report := range result.Diagnostics.Islands {
		assert.Equal(t, StateMaxGenerationsReached, report.State)
		assert.Equal(t, 20, report.Generations)
	}
}

func TestOptimizeEarlyIslandExitDoesNotDeadlock(t *testing.T) {
	params := testParameters()
	params.IslandCount = 3
	params.MaxGenerations = 60
	params.MigrationInterval = 3
	params.MigrationCount = 1
	// 严格平台期判定让各个岛在不同的代数自然收敛，验证屏障的动态注销不会死锁
	params.PlateauWindow = 4
	params.PlateauEpsilon = 0
	params.DiversifyIslands = true

	result, err := New(testLogger()).Optimize(context.Background(), testTasks(), testWorkers(), params, nil)
	require.NoError(t, err)
	require.NotNil(t, result.Best)
}

func TestOptimizeProgressCallback(t *testing.T) {
	params := testParameters()
	params.MaxGenerations = 10

	var mu sync.Mutex
	updates := make([]Progress, 0)

	_, err := New(testLogger()).Optimize(context.Background(), testTasks(), testWorkers(), params, func(p Progress) {
		mu.Lock()
		updates = append(updates, p)
		mu.Unlock()
	})
	require.NoError(t, err)

	require.Len(t, updates, 10)
	assert.Equal(t, 10, updates[len(updates)-1].Generation)
	assert.Equal(t, StateMaxGenerationsReached, updates[len(updates)-1].State)

	// 逐代最优单调不降
	for i := 1; i < len(updates); i++ {
		assert.GreaterOrEqual(t, updates[i].BestFitness, updates[i-1].BestFitness)
	}
}

func TestOptimizeSimulatedAnnealing(t *testing.T) {
	params := testParameters()
	params.UseSimulatedAnnealing = true
	params.MaxGenerations = 20

	result, err := New(testLogger()).Optimize(context.Background(), testTasks(), testWorkers(), params, nil)
	require.NoError(t, err)
	assert.Zero(t, result.Fitness.DependencyViolations)
}

func TestOptimizeRandomTopology(t *testing.T) {
	params := testParameters()
	params.IslandCount = 3
	params.MaxGenerations = 15
	params.Topology = TopologyRandom
	params.MigrationInterval = 5
	params.MigrationCount = 1

	result, err := New(testLogger()).Optimize(context.Background(), testTasks(), testWorkers(), params, nil)
	require.NoError(t, err)
	require.NotNil(t, result.Best)
	assert.Positive(t, result.Diagnostics.MigrationEvents)
}
