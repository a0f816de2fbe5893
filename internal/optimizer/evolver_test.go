package optimizer

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvolver(t *testing.T, params Parameters) *evolver {
	t.Helper()
	inst := mustInstance(testTasks(), testWorkers())
	eval := newEvaluator(inst, params.Weights, params.ConstraintMode, newFitnessCache())
	rng := rand.New(rand.NewSource(params.RandomSeed))
	return newEvolver(inst, params, eval, rng, time.Now().Add(time.Minute))
}

func TestEvolverBestMonotonicallyImproves(t *testing.T) {
	ev := newTestEvolver(t, testParameters())
	ev.initialize()

	prev := ev.bestFit.Total
	for i := 0; i < 30; i++ {
		if ev.step(context.Background()).Terminal() {
			break
		}
		assert.GreaterOrEqual(t, ev.bestFit.Total, prev, "精英保留下逐代最优不允许退化")
		prev = ev.bestFit.Total
	}
}

func TestEvolverMaxGenerations(t *testing.T) {
	params := testParameters()
	params.MaxGenerations = 5
	ev := newTestEvolver(t, params)
	ev.initialize()

	var state IslandState
	for !state.Terminal() {
		state = ev.step(context.Background())
	}

	assert.Equal(t, StateMaxGenerationsReached, state)
	assert.Equal(t, 5, ev.generation)
}

func TestEvolverPlateauConvergence(t *testing.T) {
	params := testParameters()
	params.MaxGenerations = 1000
	params.PlateauWindow = 5
	params.PlateauEpsilon = 1
	// 阈值设为 1 意味着任何一代的进步都算平台期，5 代后必然收敛
	ev := newTestEvolver(t, params)
	ev.initialize()

	var state IslandState
	for !state.Terminal() {
		state = ev.step(context.Background())
	}

	assert.Equal(t, StateConverged, state)
	assert.Equal(t, 5, ev.generation)
}

func TestEvolverTimeout(t *testing.T) {
	params := testParameters()
	inst := mustInstance(testTasks(), testWorkers())
	eval := newEvaluator(inst, params.Weights, params.ConstraintMode, newFitnessCache())
	ev := newEvolver(inst, params, eval, rand.New(rand.NewSource(1)), time.Now().Add(-time.Second))
	ev.initialize()

	assert.Equal(t, StateTimedOut, ev.step(context.Background()))
}

func TestEvolverContextCancellation(t *testing.T) {
	ev := newTestEvolver(t, testParameters())
	ev.initialize()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, StateTimedOut, ev.step(ctx))
}

func TestEvolverPopulationSizeStable(t *testing.T) {
	params := testParameters()
	ev := newTestEvolver(t, params)
	ev.initialize()

	for i := 0; i < 10; i++ {
		ev.step(context.Background())
		require.Len(t, ev.population, params.PopulationSize)
	}
}

func TestAcceptMigrantsReplacesWorst(t *testing.T) {
	params := testParameters()
	ev := newTestEvolver(t, params)
	ev.initialize()

	// 迁入不改变种群规模，且迁入后历史最优不低于迁入个体
	migrant := ev.best.Clone()
	ev.acceptMigrants([]*Solution{migrant, migrant.Clone()})

	assert.Len(t, ev.population, params.PopulationSize)
	assert.GreaterOrEqual(t, ev.bestFit.Total, ev.eval.evaluate(migrant).Total)
}

func TestRefinersNeverDegrade(t *testing.T) {
	inst := mustInstance(testTasks(), testWorkers())
	cache := newFitnessCache()
	eval := newEvaluator(inst, DefaultParameters().Weights, ConstraintModeSoft, cache)
	rng := rand.New(rand.NewSource(9))

	lsParams := testParameters()
	lsParams.UseLocalSearch = true
	saParams := testParameters()
	saParams.UseSimulatedAnnealing = true

	ini := newInitializer(inst, rng, lsParams)
	refiners := []refiner{
		newLocalSearch(inst, eval, lsParams),
		newAnnealer(inst, eval, rng, saParams),
	}

	for _, r := range refiners {
		for trial := 0; trial < 20; trial++ {
			s := ini.createRandom()
			before := eval.evaluate(s)
			_, after := r.refine(s, before)
			assert.GreaterOrEqual(t, after.Total, before.Total, "精炼不允许让个体变差")
		}
	}
}

func TestLocalSearchShiftsLateStartEarlier(t *testing.T) {
	inst := mustInstance(testTasks(), testWorkers())
	params := testParameters()
	params.UseLocalSearch = true
	params.RefinerIterations = 100
	eval := newEvaluator(inst, params.Weights, ConstraintModeSoft, newFitnessCache())

	// 把末位任务推迟到远晚于依赖下限的时刻：重指派无法缩短完工时间，
	// 只有时间平移移动能把它拉回来
	s := newInitializer(inst, rand.New(rand.NewSource(13)), params).createGreedy()
	last := len(s.Assignments) - 1
	s.Assignments[last].Start += 4
	inst.reschedule(s, false)

	before := eval.evaluate(s)
	ls := newLocalSearch(inst, eval, params)
	_, after := ls.refine(s, before)

	assert.Greater(t, after.Total, before.Total)
	assert.Less(t, after.Makespan, before.Makespan, "局部搜索必须能通过时间平移缩短完工时间")
}

func TestAnnealerNeighborhoodIncludesTimeShifts(t *testing.T) {
	inst := mustInstance(testTasks(), testWorkers())
	params := testParameters()
	params.UseSimulatedAnnealing = true
	eval := newEvaluator(inst, params.Weights, ConstraintModeSoft, newFitnessCache())
	an := newAnnealer(inst, eval, rand.New(rand.NewSource(17)), params)

	s := newInitializer(inst, rand.New(rand.NewSource(18)), params).createGreedy()

	// 多个工人的情况下邻域也必须包含时间平移：
	// 抽样足够多次后一定能观察到执行人完全不变的邻居
	timeMoves := 0
	for i := 0; i < 100; i++ {
		neighbor := an.randomNeighbor(s)
		same := true
		for j := range s.Assignments {
			if neighbor.Assignments[j].WorkerID != s.Assignments[j].WorkerID {
				same = false
				break
			}
		}
		if same {
			timeMoves++
		}
	}
	assert.Greater(t, timeMoves, 0)
}

func TestAnnealerStopsAtMinTemperature(t *testing.T) {
	inst := mustInstance(testTasks(), testWorkers())
	cache := newFitnessCache()
	params := testParameters()
	params.UseSimulatedAnnealing = true
	params.InitialTemperature = 1
	params.CoolingRate = 0.1
	params.MinTemperature = 0.5
	params.RefinerIterations = 10000
	eval := newEvaluator(inst, params.Weights, ConstraintModeSoft, cache)
	an := newAnnealer(inst, eval, rand.New(rand.NewSource(19)), params)

	s := newInitializer(inst, rand.New(rand.NewSource(20)), params).createRandom()
	before := eval.evaluate(s)
	an.refine(s, before)

	// 第一轮迭代后温度即低于下限，评估只发生两次：初始解一次 + 唯一的邻居一次
	assert.EqualValues(t, 2, cache.hits.Load()+cache.misses.Load())
}

func TestLocalSearchDeterministic(t *testing.T) {
	inst := mustInstance(testTasks(), testWorkers())
	params := testParameters()
	params.UseLocalSearch = true

	ini := newInitializer(inst, rand.New(rand.NewSource(11)), params)
	s := ini.createRandom()

	run := func() (*Solution, FitnessBreakdown) {
		eval := newEvaluator(inst, params.Weights, ConstraintModeSoft, newFitnessCache())
		ls := newLocalSearch(inst, eval, params)
		return ls.refine(s.Clone(), eval.evaluate(s))
	}

	s1, f1 := run()
	s2, f2 := run()
	assert.Equal(t, s1, s2, "局部搜索的邻域枚举是确定性的")
	assert.Equal(t, f1, f2)
}
