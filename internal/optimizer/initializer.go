package optimizer

import (
	"math/rand"

	"github.com/nc-lab-dev/task-scheduler/backend/internal/domain"
)

// initializer 初始种群构造器，混合贪心构造和随机构造两类个体
type initializer struct {
	inst           *instance
	rng            *rand.Rand
	hard           bool
	greedyFraction float64
}

func newInitializer(inst *instance, rng *rand.Rand, params Parameters) *initializer {
	return &initializer{
		inst:           inst,
		rng:            rng,
		hard:           params.ConstraintMode == ConstraintModeHard,
		greedyFraction: params.GreedyFraction,
	}
}

// createPopulation 生成初始种群：
// 第一个贪心个体保持纯净，其余贪心个体做轻微扰动，剩余个体完全随机
// 即使没有工人满足技能门槛，任务也一定会被指派（由适应度去惩罚技能缺口），初始化本身不会失败
func (ini *initializer) createPopulation(size int) []*Solution {
	pop := make([]*Solution, 0, size)

	greedyCount := int(float64(size)*ini.greedyFraction + 0.5)
	if greedyCount > size {
		greedyCount = size
	}

	for i := 0; i < greedyCount; i++ {
		s := ini.createGreedy()
		if i > 0 {
			ini.perturb(s)
		}
		pop = append(pop, s)
	}
	for len(pop) < size {
		pop = append(pop, ini.createRandom())
	}

	return pop
}

// createRandom 按拓扑序给每个任务随机挑选一个合格工人；
// 开始时间取依赖完工时间和该工人空闲时间中的较大者，保证初始解可行
func (ini *initializer) createRandom() *Solution {
	s := &Solution{Assignments: make([]Assignment, 0, len(ini.inst.topoOrder))}

	ends := make(map[string]float64, len(ini.inst.topoOrder))
	workerFree := make(map[string]float64, len(ini.inst.workers))

	for _, key := range ini.inst.topoOrder {
		task := ini.inst.taskIndex[key]

		candidates := ini.eligibleWorkers(task)
		worker := candidates[ini.rng.Intn(len(candidates))]

		start := workerFree[worker.WorkerKey]
		for _, dep := range task.Dependencies {
			if ends[dep] > start {
				start = ends[dep]
			}
		}

		s.Assignments = append(s.Assignments, Assignment{TaskID: key, WorkerID: worker.WorkerKey, Start: start})
		ends[key] = start + task.EstimatedHours
		workerFree[worker.WorkerKey] = start + task.EstimatedHours
	}

	return s
}

// createGreedy 按拓扑序贪心构造：在最早可用的工人中选技能匹配最好的
func (ini *initializer) createGreedy() *Solution {
	s := &Solution{Assignments: make([]Assignment, 0, len(ini.inst.topoOrder))}

	ends := make(map[string]float64, len(ini.inst.topoOrder))
	workerFree := make(map[string]float64, len(ini.inst.workers))

	for _, key := range ini.inst.topoOrder {
		task := ini.inst.taskIndex[key]

		depEnd := 0.0
		for _, dep := range task.Dependencies {
			if ends[dep] > depEnd {
				depEnd = ends[dep]
			}
		}

		var best *domain.Worker
		bestScore := 0.0
		for _, w := range ini.inst.workers {
			// 技能匹配得分减去空闲时间，兼顾匹配度和负载
			score := ini.skillMatch(task, w) - workerFree[w.WorkerKey]
			if best == nil || score > bestScore {
				best = w
				bestScore = score
			}
		}

		start := depEnd
		if workerFree[best.WorkerKey] > start {
			start = workerFree[best.WorkerKey]
		}

		s.Assignments = append(s.Assignments, Assignment{TaskID: key, WorkerID: best.WorkerKey, Start: start})
		ends[key] = start + task.EstimatedHours
		workerFree[best.WorkerKey] = start + task.EstimatedHours
	}

	return s
}

// perturb 对贪心个体做少量随机重指派，避免初始种群过于同质
func (ini *initializer) perturb(s *Solution) {
	n := len(s.Assignments)
	count := n/5 + 1
	for i := 0; i < count; i++ {
		pos := ini.rng.Intn(n)
		task := ini.inst.taskIndex[s.Assignments[pos].TaskID]
		candidates := ini.eligibleWorkers(task)
		s.Assignments[pos].WorkerID = candidates[ini.rng.Intn(len(candidates))].WorkerKey
	}
	ini.inst.reschedule(s, ini.hard)
}

// eligibleWorkers 返回满足全部技能门槛的工人；
// 没有任何工人达标时退化为全量工人（技能缺口交给适应度惩罚）
func (ini *initializer) eligibleWorkers(task *domain.Task) []*domain.Worker {
	eligible := make([]*domain.Worker, 0, len(ini.inst.workers))
	for _, w := range ini.inst.workers {
		ok := true
		for _, skill := range ini.inst.skillKeys[task.TaskKey] {
			if w.Skills[skill] < task.SkillRequirements[skill] {
				ok = false
				break
			}
		}
		if ok {
			eligible = append(eligible, w)
		}
	}
	if len(eligible) == 0 {
		return ini.inst.workers
	}
	return eligible
}

// skillMatch 工人对任务的技能匹配得分：达标 +1，不达标按缺口扣分
func (ini *initializer) skillMatch(task *domain.Task, w *domain.Worker) float64 {
	score := 0.0
	for _, skill := range ini.inst.skillKeys[task.TaskKey] {
		required := task.SkillRequirements[skill]
		level := w.Skills[skill]
		if level >= required {
			score++
		} else {
			score -= required - level
		}
	}
	return score
}
