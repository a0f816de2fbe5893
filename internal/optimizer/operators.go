package optimizer

import (
	"math/rand"
)

// tournamentSelect 锦标赛选择：有放回地随机抽取 k 个个体，返回其中适应度最高者的下标
func tournamentSelect(scores []FitnessBreakdown, k int, rng *rand.Rand) int {
	best := rng.Intn(len(scores))
	bestTotal := scores[best].Total
	for i := 1; i < k; i++ {
		cand := rng.Intn(len(scores))
		if scores[cand].Total > bestTotal {
			best = cand
			bestTotal = scores[cand].Total
		}
	}
	return best
}

// singlePointCrossover 基于任务序的单点交叉：
// 切点在 [1, n-1] 中均匀选取，子代 A 在切点前取父代 1 的指派、切点后取父代 2 的指派，子代 B 取补
// 交叉后必须重算开始时间（继承下来的指派组合可能破坏时序可行性），由调用方完成
func singlePointCrossover(p1, p2 *Solution, rng *rand.Rand) (*Solution, *Solution) {
	n := len(p1.Assignments)
	if n < 2 {
		return p1.Clone(), p2.Clone()
	}

	cut := 1 + rng.Intn(n-1)

	c1 := &Solution{Assignments: make([]Assignment, n)}
	c2 := &Solution{Assignments: make([]Assignment, n)}
	copy(c1.Assignments[:cut], p1.Assignments[:cut])
	copy(c1.Assignments[cut:], p2.Assignments[cut:])
	copy(c2.Assignments[:cut], p2.Assignments[:cut])
	copy(c2.Assignments[cut:], p1.Assignments[cut:])

	return c1, c2
}

// mutator 变异算子：对每个任务独立地以 rate 的概率做一次扰动
type mutator struct {
	inst *instance
	rng  *rand.Rand
	rate float64
	hard bool
}

func newMutator(inst *instance, rng *rand.Rand, params Parameters) *mutator {
	return &mutator{
		inst: inst,
		rng:  rng,
		rate: params.MutationRate,
		hard: params.ConstraintMode == ConstraintModeHard,
	}
}

// mutate 就地变异。扰动方式二选一：
// 重指派到另一个随机合格工人，或在依赖可行窗口内平移开始时间（下限被钳制在前置任务完工时间）
// 变异过的解需要重排时序，把被推迟任务的后继顺延，保证依赖偏序不被破坏
func (m *mutator) mutate(s *Solution) {
	if m.rate <= 0 {
		return
	}

	mutated := false
	for i := range s.Assignments {
		if m.rng.Float64() >= m.rate {
			continue
		}

		a := &s.Assignments[i]
		task := m.inst.taskIndex[a.TaskID]

		reassigned := false
		if m.rng.Float64() < 0.5 {
			reassigned = m.reassign(a)
		}
		if !reassigned {
			m.shiftStart(s, a, task.EstimatedHours)
		}
		mutated = true
	}

	if mutated {
		m.inst.reschedule(s, m.hard)
	}
}

// reassign 把任务重指派到另一个合格工人，只有一个候选时返回 false 交给时间平移兜底
func (m *mutator) reassign(a *Assignment) bool {
	task := m.inst.taskIndex[a.TaskID]

	candidates := make([]string, 0, len(m.inst.workers))
	for _, w := range m.inst.workers {
		if w.WorkerKey == a.WorkerID {
			continue
		}
		ok := true
		for _, skill := range m.inst.skillKeys[task.TaskKey] {
			if w.Skills[skill] < task.SkillRequirements[skill] {
				ok = false
				break
			}
		}
		if ok {
			candidates = append(candidates, w.WorkerKey)
		}
	}
	if len(candidates) == 0 {
		// 没有其它合格工人时放宽到所有其它工人
		for _, w := range m.inst.workers {
			if w.WorkerKey != a.WorkerID {
				candidates = append(candidates, w.WorkerKey)
			}
		}
	}
	if len(candidates) == 0 {
		return false
	}

	a.WorkerID = candidates[m.rng.Intn(len(candidates))]
	return true
}

// shiftStart 在 [floor, start+delta] 范围内平移开始时间，floor 是前置任务完工时间的最大值
func (m *mutator) shiftStart(s *Solution, a *Assignment, duration float64) {
	delta := duration / 2
	if delta <= 0 {
		delta = 1
	}

	floor := m.inst.dependencyFloor(s, a.TaskID)
	start := a.Start + (m.rng.Float64()*2-1)*delta
	if start < floor {
		start = floor
	}
	a.Start = start
}
