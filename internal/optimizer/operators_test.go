package optimizer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTournamentSelectPrefersHigherFitness(t *testing.T) {
	scores := []FitnessBreakdown{
		{Total: 0.1}, {Total: 0.9}, {Total: 0.3}, {Total: 0.5},
	}
	rng := rand.New(rand.NewSource(7))

	// 有放回抽样不保证每次都选中最优，但最优个体的当选频率必须遥遥领先
	counts := make(map[int]int)
	for i := 0; i < 1000; i++ {
		counts[tournamentSelect(scores, 3, rng)]++
	}
	for idx := range scores {
		if idx == 1 {
			continue
		}
		assert.Greater(t, counts[1], counts[idx])
	}
}

func TestSinglePointCrossoverPreservesTaskOrder(t *testing.T) {
	inst := mustInstance(testTasks(), testWorkers())
	rng := rand.New(rand.NewSource(1))

	ini := newInitializer(inst, rng, testParameters())
	p1 := ini.createRandom()
	p2 := ini.createRandom()

	c1, c2 := singlePointCrossover(p1, p2, rng)

	require.Len(t, c1.Assignments, len(p1.Assignments))
	require.Len(t, c2.Assignments, len(p2.Assignments))
	for i, key := range inst.topoOrder {
		assert.Equal(t, key, c1.Assignments[i].TaskID)
		assert.Equal(t, key, c2.Assignments[i].TaskID)
	}

	// 每个基因都来自两个父代之一
	for i := range c1.Assignments {
		w := c1.Assignments[i].WorkerID
		assert.True(t, w == p1.Assignments[i].WorkerID || w == p2.Assignments[i].WorkerID)
	}
}

func TestCrossoverOffspringFeasibleAfterReschedule(t *testing.T) {
	inst := mustInstance(testTasks(), testWorkers())
	rng := rand.New(rand.NewSource(2))
	eval := newEvaluator(inst, DefaultParameters().Weights, ConstraintModeSoft, newFitnessCache())

	ini := newInitializer(inst, rng, testParameters())
	for trial := 0; trial < 50; trial++ {
		c1, c2 := singlePointCrossover(ini.createRandom(), ini.createRandom(), rng)
		inst.reschedule(c1, false)
		inst.reschedule(c2, false)

		assert.Zero(t, eval.evaluate(c1).DependencyViolations)
		assert.Zero(t, eval.evaluate(c2).DependencyViolations)
	}
}

func TestMutateRateZeroLeavesSolutionUntouched(t *testing.T) {
	inst := mustInstance(testTasks(), testWorkers())
	rng := rand.New(rand.NewSource(3))

	params := testParameters()
	params.MutationRate = 0
	mut := newMutator(inst, rng, params)

	s := newInitializer(inst, rng, params).createRandom()
	before := s.Clone()
	mut.mutate(s)

	assert.Equal(t, before, s, "变异概率为 0 时解必须保持逐位相同")
}

func TestMutateRateOnePreservesDependencyInvariant(t *testing.T) {
	inst := mustInstance(testTasks(), testWorkers())
	rng := rand.New(rand.NewSource(4))
	eval := newEvaluator(inst, DefaultParameters().Weights, ConstraintModeSoft, newFitnessCache())

	params := testParameters()
	params.MutationRate = 1
	mut := newMutator(inst, rng, params)
	ini := newInitializer(inst, rng, params)

	changed := make([]int, len(inst.topoOrder))
	for trial := 0; trial < 50; trial++ {
		s := ini.createRandom()
		before := s.Clone()
		mut.mutate(s)

		require.Len(t, s.Assignments, len(inst.topoOrder))
		for i, key := range inst.topoOrder {
			assert.Equal(t, key, s.Assignments[i].TaskID)
			if s.Assignments[i] != before.Assignments[i] {
				changed[i]++
			}
		}
		assert.Zero(t, eval.evaluate(s).DependencyViolations, "变异后必须恢复依赖顺序")
	}

	// 变异率为 1 时每个基因都会被扰动，统计上每个基因位都必须观察到过变化
	for i, cnt := range changed {
		assert.Greater(t, cnt, 0, "基因位 %d（%s）在所有试验中都未发生变化", i, inst.topoOrder[i])
	}
}

func TestInitializerPopulation(t *testing.T) {
	inst := mustInstance(testTasks(), testWorkers())
	rng := rand.New(rand.NewSource(5))
	eval := newEvaluator(inst, DefaultParameters().Weights, ConstraintModeSoft, newFitnessCache())

	pop := newInitializer(inst, rng, testParameters()).createPopulation(20)

	require.Len(t, pop, 20)
	for _, s := range pop {
		require.Len(t, s.Assignments, 5)
		b := eval.evaluate(s)
		assert.Zero(t, b.DependencyViolations, "初始解必须满足依赖约束")
	}
}
