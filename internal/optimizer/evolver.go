package optimizer

import (
	"context"
	"math/rand"
	"sort"
	"time"
)

// IslandState 单个岛屿的演化状态机
type IslandState string

const (
	StateInitialized           IslandState = "initialized"
	StateEvolving              IslandState = "evolving"
	StateConverged             IslandState = "converged"
	StateTimedOut              IslandState = "timed_out"
	StateMaxGenerationsReached IslandState = "max_generations_reached"
)

// Terminal 返回该状态是否为终止状态
func (s IslandState) Terminal() bool {
	return s == StateConverged || s == StateTimedOut || s == StateMaxGenerationsReached
}

// evolver 单个岛屿上的演化引擎，不涉及任何并发，由 island 调度器驱动
type evolver struct {
	inst   *instance
	params Parameters
	eval   *evaluator
	rng    *rand.Rand

	init    *initializer
	mut     *mutator
	refiner refiner

	population []*Solution
	scores     []FitnessBreakdown

	generation int
	state      IslandState
	deadline   time.Time

	best    *Solution
	bestFit FitnessBreakdown
	plateau int
}

func newEvolver(inst *instance, params Parameters, eval *evaluator, rng *rand.Rand, deadline time.Time) *evolver {
	e := &evolver{
		inst:     inst,
		params:   params,
		eval:     eval,
		rng:      rng,
		init:     newInitializer(inst, rng, params),
		mut:      newMutator(inst, rng, params),
		state:    StateInitialized,
		deadline: deadline,
	}
	if params.UseLocalSearch {
		e.refiner = newLocalSearch(inst, eval, params)
	} else if params.UseSimulatedAnnealing {
		e.refiner = newAnnealer(inst, eval, rng, params)
	}
	return e
}

// initialize 构造并评估初始种群
func (e *evolver) initialize() {
	e.population = e.init.createPopulation(e.params.PopulationSize)
	e.scores = make([]FitnessBreakdown, len(e.population))
	for i, s := range e.population {
		e.scores[i] = e.eval.evaluate(s)
	}

	e.best = e.population[0].Clone()
	e.bestFit = e.scores[0]
	for i := 1; i < len(e.scores); i++ {
		if e.scores[i].Total > e.bestFit.Total {
			e.best = e.population[i].Clone()
			e.bestFit = e.scores[i]
		}
	}

	e.state = StateEvolving
}

// step 推进一代。返回推进后的状态，调用方据此决定是否继续以及是否触发迁移
func (e *evolver) step(ctx context.Context) IslandState {
	if e.state != StateEvolving {
		return e.state
	}
	if ctx.Err() != nil || time.Now().After(e.deadline) {
		e.state = StateTimedOut
		return e.state
	}

	next := make([]*Solution, 0, e.params.PopulationSize)

	// 精英保留：最优个体原样带入下一代，保证逐代最优单调不降
	for _, i := range e.rankedIndices()[:e.params.EliteCount] {
		next = append(next, e.population[i].Clone())
	}

	for len(next) < e.params.PopulationSize {
		p1 := e.population[tournamentSelect(e.scores, e.params.TournamentSize, e.rng)]
		p2 := e.population[tournamentSelect(e.scores, e.params.TournamentSize, e.rng)]

		var c1, c2 *Solution
		if e.rng.Float64() < e.params.CrossoverRate {
			c1, c2 = singlePointCrossover(p1, p2, e.rng)
			e.inst.reschedule(c1, e.params.ConstraintMode == ConstraintModeHard)
			e.inst.reschedule(c2, e.params.ConstraintMode == ConstraintModeHard)
		} else {
			c1, c2 = p1.Clone(), p2.Clone()
		}

		e.mut.mutate(c1)
		next = append(next, e.refineOffspring(c1))
		if len(next) < e.params.PopulationSize {
			e.mut.mutate(c2)
			next = append(next, e.refineOffspring(c2))
		}
	}

	e.population = next
	for i, s := range e.population {
		e.scores[i] = e.eval.evaluate(s)
	}
	e.generation++

	e.updateBest(true)

	if e.state == StateEvolving && e.generation >= e.params.MaxGenerations {
		e.state = StateMaxGenerationsReached
	}
	return e.state
}

// refineOffspring 对子代执行精炼（如果启用了局部搜索或退火）
func (e *evolver) refineOffspring(s *Solution) *Solution {
	if e.refiner == nil {
		return s
	}
	refined, _ := e.refiner.refine(s, e.eval.evaluate(s))
	return refined
}

// updateBest 更新岛屿历史最优；recordPlateau 为 true 时顺带做平台期收敛判定
// （迁入触发的更新不参与平台期计数，避免一代之内重复计数）
func (e *evolver) updateBest(recordPlateau bool) {
	genBest := e.scores[0]
	genBestIdx := 0
	for i := 1; i < len(e.scores); i++ {
		if e.scores[i].Total > genBest.Total {
			genBest = e.scores[i]
			genBestIdx = i
		}
	}

	improvement := genBest.Total - e.bestFit.Total
	if improvement > 0 {
		e.best = e.population[genBestIdx].Clone()
		e.bestFit = genBest
	}

	if recordPlateau && e.params.PlateauWindow > 0 {
		if improvement <= e.params.PlateauEpsilon {
			e.plateau++
			if e.plateau >= e.params.PlateauWindow {
				e.state = StateConverged
			}
		} else {
			e.plateau = 0
		}
	}
}

// rankedIndices 返回按适应度从高到低排列的种群下标
func (e *evolver) rankedIndices() []int {
	idx := make([]int, len(e.population))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return e.scores[idx[a]].Total > e.scores[idx[b]].Total
	})
	return idx
}

// emigrants 选出适应度最高的 count 个个体的副本用于迁出，原种群不变
func (e *evolver) emigrants(count int) []*Solution {
	if count > len(e.population) {
		count = len(e.population)
	}
	out := make([]*Solution, 0, count)
	for _, i := range e.rankedIndices()[:count] {
		out = append(out, e.population[i].Clone())
	}
	return out
}

// acceptMigrants 用迁入个体替换种群中最差的个体，种群规模保持不变
func (e *evolver) acceptMigrants(migrants []*Solution) {
	if len(migrants) == 0 {
		return
	}
	ranked := e.rankedIndices()
	for k, m := range migrants {
		if k >= len(ranked) {
			break
		}
		i := ranked[len(ranked)-1-k]
		e.population[i] = m.Clone()
		e.scores[i] = e.eval.evaluate(e.population[i])
	}
	e.updateBest(false)
}
