package optimizer

import (
	"math"
	"math/rand"
)

// annealer 模拟退火精炼器：几何降温，按 Metropolis 准则接受劣解
// 始终记录搜索过程中见过的最优解并返回它，保证精炼不会让个体变差
type annealer struct {
	inst *instance
	eval *evaluator
	rng  *rand.Rand
	hard bool

	initialTemp float64
	coolingRate float64
	minTemp     float64
	iterations  int
}

func newAnnealer(inst *instance, eval *evaluator, rng *rand.Rand, params Parameters) *annealer {
	return &annealer{
		inst:        inst,
		eval:        eval,
		rng:         rng,
		hard:        params.ConstraintMode == ConstraintModeHard,
		initialTemp: params.InitialTemperature,
		coolingRate: params.CoolingRate,
		minTemp:     params.MinTemperature,
		iterations:  params.RefinerIterations,
	}
}

func (an *annealer) refine(s *Solution, b FitnessBreakdown) (*Solution, FitnessBreakdown) {
	current := s
	currentFit := b
	best := s
	bestFit := b

	temp := an.initialTemp
	for iter := 0; iter < an.iterations; iter++ {
		neighbor := an.randomNeighbor(current)
		neighborFit := an.eval.evaluate(neighbor)

		// delta > 0 表示邻居更差（总分越大越好）
		delta := currentFit.Total - neighborFit.Total
		if delta <= 0 || an.rng.Float64() < math.Exp(-delta/temp) {
			current = neighbor
			currentFit = neighborFit
			if currentFit.Total > bestFit.Total {
				best = current
				bestFit = currentFit
			}
		}

		// 温度降到下限即终止，迭代数上限只是兜底
		temp *= an.coolingRate
		if temp < an.minTemp {
			break
		}
	}

	return best, bestFit
}

// randomNeighbor 从与局部搜索相同的移动集合中随机取一个邻居：
// 重指派一个任务的执行人，或在依赖可行窗口内平移一个任务的开始时间，再恢复时序可行性
func (an *annealer) randomNeighbor(s *Solution) *Solution {
	neighbor := s.Clone()

	pos := an.rng.Intn(len(neighbor.Assignments))
	a := &neighbor.Assignments[pos]

	reassigned := false
	if len(an.inst.workers) > 1 && an.rng.Float64() < 0.5 {
		for {
			w := an.inst.workers[an.rng.Intn(len(an.inst.workers))]
			if w.WorkerKey != a.WorkerID {
				a.WorkerID = w.WorkerKey
				reassigned = true
				break
			}
		}
	}
	if !reassigned {
		delta := an.inst.duration(a.TaskID) / 2
		if delta <= 0 {
			delta = 1
		}
		floor := an.inst.dependencyFloor(neighbor, a.TaskID)
		start := a.Start + (an.rng.Float64()*2-1)*delta
		if start < floor {
			start = floor
		}
		a.Start = start
	}

	an.inst.reschedule(neighbor, an.hard)
	return neighbor
}
